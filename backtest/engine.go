package backtest

import (
	"fmt"
	"time"
)

// Config holds the static execution parameters of one run.
type Config struct {
	ContractMultiplier float64 // notional scaling per point
	FeeRate            float64 // commission per side as fraction of notional
	TickSize           float64
	SlippageTicks      int
	InitialCash        float64
}

// DefaultConfig mirrors a stock-index futures contract: multiplier 300,
// 2bp commission per side, 0.2 tick, one tick of slippage.
func DefaultConfig() Config {
	return Config{
		ContractMultiplier: 300,
		FeeRate:            2e-4,
		TickSize:           0.2,
		SlippageTicks:      1,
		InitialCash:        1_000_000,
	}
}

// Result is the terminal state of one run: the equity curve, every fill,
// and the ledger of closed trades.
type Result struct {
	InitialCash float64       `json:"initial_cash"`
	EquityCurve []EquityPoint `json:"equity_curve"`
	Fills       []Fill        `json:"fills"`
	Trades      []Trade       `json:"trades"`
}

// FinalEquity returns the last equity sample, or the initial cash for an
// empty curve.
func (r *Result) FinalEquity() float64 {
	if len(r.EquityCurve) == 0 {
		return r.InitialCash
	}
	return r.EquityCurve[len(r.EquityCurve)-1].Equity
}

// openTrade accumulates the in-progress ledger entry while the position is
// away from flat. The Backtester holds at most one.
type openTrade struct {
	direction  Direction
	entryTime  time.Time
	entryIndex int
	entryPrice float64
	maxSize    int
	fees       float64
	grossPnL   float64
}

// Backtester replays a bar series through a strategy: orders decided at
// bar i execute at bar i+1's open, the account is marked to market at
// every close, and a trade ledger is synthesized from the fill stream.
//
// A Backtester is single-use state for one run; Run resets everything, so
// parameter sweeps should construct one Backtester (and one strategy
// instance) per run.
type Backtester struct {
	series   *Series
	strategy Strategy
	cfg      Config

	position Position
	cash     float64
	pending  []Order
	fills    []Fill
	curve    []EquityPoint
	trades   []Trade
	open     *openTrade
}

// New creates a Backtester over the given series and strategy.
func New(series *Series, strategy Strategy, cfg Config) *Backtester {
	return &Backtester{series: series, strategy: strategy, cfg: cfg}
}

// Run executes the replay loop and returns the terminal state. Any error
// aborts the run; a partial equity curve is never authoritative.
func (bt *Backtester) Run() (*Result, error) {
	bt.position = Position{}
	bt.cash = bt.cfg.InitialCash
	bt.pending = nil
	bt.fills = nil
	bt.curve = nil
	bt.trades = nil
	bt.open = nil

	if err := bt.strategy.Init(bt.series); err != nil {
		return nil, fmt.Errorf("strategy init: %w", err)
	}

	n := bt.series.Len()
	for i := 0; i < n-1; i++ {
		bar := bt.series.Bar(i)

		// The strategy sees a value copy of the position, never the
		// engine's mutable state.
		orders := bt.strategy.OnBar(i, bar, bt.position)
		bt.pending = append(bt.pending, orders...)

		if len(bt.pending) > 0 {
			next := bt.series.Bar(i + 1)
			if err := bt.execPending(next.Time, next.Open); err != nil {
				return nil, err
			}
		}

		bt.markToMarket(bar.Time, bar.Close)
	}

	// Final mark at the last close captures terminal unrealized PnL.
	last := bt.series.Bar(n - 1)
	bt.markToMarket(last.Time, last.Close)

	return &Result{
		InitialCash: bt.cfg.InitialCash,
		EquityCurve: bt.curve,
		Fills:       bt.fills,
		Trades:      bt.trades,
	}, nil
}

// execPending fills every queued order at the next bar's open, in the
// order the strategy returned them. Sequential application matters when a
// bar carries both a closing and a re-opening order.
func (bt *Backtester) execPending(execTime time.Time, openPrice float64) error {
	for _, od := range bt.pending {
		slip := float64(bt.cfg.SlippageTicks) * bt.cfg.TickSize

		// Adverse fill: buyers pay up, sellers receive less.
		var price float64
		switch od.Side {
		case SideBuy:
			price = openPrice + slip
		case SideSell:
			price = openPrice - slip
		default:
			return fmt.Errorf("order %q size %d: %w", od.Side, od.Size, ErrInvalidSide)
		}

		notional := price * bt.cfg.ContractMultiplier * float64(od.Size)
		fee := abs(notional) * bt.cfg.FeeRate

		// Realized PnL is computed against the position before
		// mutation; opening or adding never realizes anything.
		var realized float64
		before := bt.position.Contracts
		if od.Side == SideSell && before > 0 {
			closed := minInt(before, od.Size)
			realized = (price - bt.position.AvgPrice) * bt.cfg.ContractMultiplier * float64(closed)
		} else if od.Side == SideBuy && before < 0 {
			closed := minInt(-before, od.Size)
			realized = (bt.position.AvgPrice - price) * bt.cfg.ContractMultiplier * float64(closed)
		}

		if err := bt.position.ApplyFill(od.Side, od.Size, price); err != nil {
			return err
		}
		bt.cash += realized
		bt.cash -= fee

		bt.fills = append(bt.fills, Fill{
			Time:     execTime,
			Side:     od.Side,
			Size:     od.Size,
			Price:    price,
			Fee:      fee,
			Slippage: slip,
		})

		bt.updateLedger(execTime, price, fee, realized)
	}
	bt.pending = bt.pending[:0]
	return nil
}

// updateLedger advances the open-trade accumulator after one fill: opens
// on flat-to-open, accumulates fees and realized PnL, closes on a return
// to flat, and on a flip closes the old trade and opens a new one from the
// residual size.
func (bt *Backtester) updateLedger(execTime time.Time, price, fee, realized float64) {
	after := bt.position.Contracts
	var dirAfter Direction
	switch {
	case after > 0:
		dirAfter = DirectionLong
	case after < 0:
		dirAfter = DirectionShort
	}

	if bt.open == nil {
		if after == 0 {
			return
		}
		bt.open = bt.newOpenTrade(dirAfter, execTime, fee, realized)
		return
	}

	t := bt.open
	t.fees += fee
	t.grossPnL += realized
	if after != 0 && dirAfter == t.direction {
		t.entryPrice = bt.position.AvgPrice
		if absInt(after) > t.maxSize {
			t.maxSize = absInt(after)
		}
	}

	flipped := (t.direction == DirectionLong && after < 0) || (t.direction == DirectionShort && after > 0)
	if after != 0 && !flipped {
		return
	}

	exitIndex, ok := bt.series.IndexOf(execTime)
	barsHeld := 0
	if ok && exitIndex > t.entryIndex {
		barsHeld = exitIndex - t.entryIndex
	}
	bt.trades = append(bt.trades, Trade{
		Direction:      t.direction,
		EntryTime:      t.entryTime,
		ExitTime:       execTime,
		EntryPrice:     t.entryPrice,
		ExitPrice:      price,
		Contracts:      t.maxSize,
		GrossPnL:       t.grossPnL,
		Fees:           t.fees,
		NetPnL:         t.grossPnL - t.fees,
		BarsHeld:       barsHeld,
		HoldingMinutes: execTime.Sub(t.entryTime).Minutes(),
	})
	bt.open = nil

	if after != 0 {
		// The residual of a flip is a fresh trade opened at the fill
		// price; its fees and PnL were already booked above.
		bt.open = bt.newOpenTrade(dirAfter, execTime, 0, 0)
	}
}

func (bt *Backtester) newOpenTrade(dir Direction, execTime time.Time, fee, realized float64) *openTrade {
	idx, _ := bt.series.IndexOf(execTime)
	return &openTrade{
		direction:  dir,
		entryTime:  execTime,
		entryIndex: idx,
		entryPrice: bt.position.AvgPrice,
		maxSize:    absInt(bt.position.Contracts),
		fees:       fee,
		grossPnL:   realized,
	}
}

// markToMarket appends one equity sample: cash plus unrealized PnL on the
// open position valued at the given price.
func (bt *Backtester) markToMarket(t time.Time, price float64) {
	var unrealized float64
	if bt.position.Contracts != 0 {
		unrealized = (price - bt.position.AvgPrice) * bt.cfg.ContractMultiplier * float64(bt.position.Contracts)
	}
	bt.curve = append(bt.curve, EquityPoint{Time: t, Equity: bt.cash + unrealized})
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
