package backtest

import (
	"errors"
	"fmt"
	"time"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ErrInvalidSide is returned when an order side is not BUY or SELL. It is a
// programming error in the strategy, not a data problem, and always
// propagates to the caller.
var ErrInvalidSide = errors.New("side must be BUY or SELL")

type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Bar is one OHLCV(+open interest) observation at a fixed timeframe.
type Bar struct {
	Time         time.Time
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       float64
	OpenInterest float64
}

// Order is a market order requested by a strategy at bar i. It carries no
// price: it executes at bar i+1's open with slippage applied.
type Order struct {
	Side   Side
	Size   int
	Reason string
}

// Fill is the executed result of one Order. Immutable once created.
type Fill struct {
	Time     time.Time `json:"time"`
	Side     Side      `json:"side"`
	Size     int       `json:"size"`
	Price    float64   `json:"price"`
	Fee      float64   `json:"fee"`
	Slippage float64   `json:"slippage"`
}

// Trade is a closed ledger entry synthesized from the fill stream: one
// open-to-close episode of directional exposure, possibly spanning several
// fills.
type Trade struct {
	Direction      Direction `json:"direction"`
	EntryTime      time.Time `json:"entry_time"`
	ExitTime       time.Time `json:"exit_time"`
	EntryPrice     float64   `json:"entry_price"`
	ExitPrice      float64   `json:"exit_price"`
	Contracts      int       `json:"contracts"`
	GrossPnL       float64   `json:"gross_pnl"`
	Fees           float64   `json:"fees"`
	NetPnL         float64   `json:"net_pnl"`
	BarsHeld       int       `json:"bars_held"`
	HoldingMinutes float64   `json:"holding_minutes"`
}

// EquityPoint is one sample of the equity curve: cash plus unrealized PnL
// valued at that bar's close.
type EquityPoint struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

// MalformedSeriesError reports a bar series rejected at the data-loading
// boundary, before a run starts. The engine itself never re-validates bars.
type MalformedSeriesError struct {
	Reason string
}

func (e *MalformedSeriesError) Error() string {
	return fmt.Sprintf("malformed bar series: %s", e.Reason)
}
