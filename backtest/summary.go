package backtest

import (
	"math"
	"time"
)

// DefaultBarsPerYear is the annualization constant for minute bars over
// roughly four active trading hours per session: 252 days x 4 hours x 60
// minutes. It materially changes volatility and the Sharpe-like ratio, so
// it is a named, overridable parameter rather than a hardcode.
const DefaultBarsPerYear = 252 * 4 * 60

// SummaryConfig controls summary computation.
type SummaryConfig struct {
	// BarsPerYear scales per-bar volatility to annual terms. Zero means
	// DefaultBarsPerYear.
	BarsPerYear float64
}

// TradeStats are the ledger-derived statistics. They only exist when at
// least one trade closed.
type TradeStats struct {
	WinRate           float64 `json:"win_rate"`
	MaxTradeGain      float64 `json:"max_trade_gain"`
	MaxTradeLoss      float64 `json:"max_trade_loss"`
	AvgFeePerTrade    float64 `json:"avg_fee_per_trade"`
	TotalGrossPnL     float64 `json:"total_gross_pnl"`
	TotalNetPnL       float64 `json:"total_net_pnl"`
	AvgBarsHeld       float64 `json:"avg_bars_held"`
	MaxBarsHeld       int     `json:"max_bars_held"`
	AvgHoldingMinutes float64 `json:"avg_holding_minutes"`
	MaxHoldingMinutes float64 `json:"max_holding_minutes"`
}

// Summary aggregates a completed run. Volatility and Sharpe are nil when
// the return series has no variance (fewer than two bars, or a perfectly
// flat curve).
type Summary struct {
	Start         time.Time   `json:"start"`
	End           time.Time   `json:"end"`
	InitialCash   float64     `json:"initial_cash"`
	FinalEquity   float64     `json:"final_equity"`
	TotalReturn   float64     `json:"total_return"`
	VolatilityAnn *float64    `json:"volatility_ann,omitempty"`
	SharpeLike    *float64    `json:"sharpe_like,omitempty"`
	MaxDrawdown   float64     `json:"max_drawdown"`
	Fills         int         `json:"fills"`
	TotalFees     float64     `json:"total_fees"`
	Trades        int         `json:"trades"`
	TradeStats    *TradeStats `json:"trade_stats,omitempty"`
}

// Summarize derives aggregate statistics from a run's equity curve and
// trade ledger. An empty result yields the zero Summary, never an error:
// an empty series is a valid, if uninteresting, backtest outcome.
func Summarize(res *Result, cfg SummaryConfig) Summary {
	if res == nil || len(res.EquityCurve) == 0 {
		return Summary{}
	}
	barsPerYear := cfg.BarsPerYear
	if barsPerYear <= 0 {
		barsPerYear = DefaultBarsPerYear
	}

	curve := res.EquityCurve
	first := curve[0].Equity
	last := curve[len(curve)-1].Equity

	s := Summary{
		Start:       curve[0].Time,
		End:         curve[len(curve)-1].Time,
		InitialCash: res.InitialCash,
		FinalEquity: last,
		Fills:       len(res.Fills),
		Trades:      len(res.Trades),
	}
	if first != 0 {
		s.TotalReturn = last/first - 1
	}

	// Per-bar percentage returns.
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev != 0 {
			returns = append(returns, curve[i].Equity/prev-1)
		}
	}
	if sd := stddev(returns); sd > 0 {
		scale := math.Sqrt(barsPerYear)
		vol := sd * scale
		sharpe := mean(returns) / sd * scale
		s.VolatilityAnn = &vol
		s.SharpeLike = &sharpe
	}

	// Max drawdown: min(equity / running_max - 1).
	runningMax := curve[0].Equity
	for _, p := range curve {
		if p.Equity > runningMax {
			runningMax = p.Equity
		}
		if runningMax > 0 {
			if dd := p.Equity/runningMax - 1; dd < s.MaxDrawdown {
				s.MaxDrawdown = dd
			}
		}
	}

	for _, f := range res.Fills {
		s.TotalFees += f.Fee
	}

	if len(res.Trades) > 0 {
		s.TradeStats = tradeStats(res.Trades)
	}
	return s
}

func tradeStats(trades []Trade) *TradeStats {
	ts := &TradeStats{
		MaxTradeGain:      math.Inf(-1),
		MaxTradeLoss:      math.Inf(1),
		MaxHoldingMinutes: math.Inf(-1),
	}
	wins := 0
	var fees, bars, minutes float64
	for _, t := range trades {
		if t.NetPnL > 0 {
			wins++
		}
		if t.NetPnL > ts.MaxTradeGain {
			ts.MaxTradeGain = t.NetPnL
		}
		if t.NetPnL < ts.MaxTradeLoss {
			ts.MaxTradeLoss = t.NetPnL
		}
		ts.TotalGrossPnL += t.GrossPnL
		ts.TotalNetPnL += t.NetPnL
		fees += t.Fees
		bars += float64(t.BarsHeld)
		if t.BarsHeld > ts.MaxBarsHeld {
			ts.MaxBarsHeld = t.BarsHeld
		}
		minutes += t.HoldingMinutes
		if t.HoldingMinutes > ts.MaxHoldingMinutes {
			ts.MaxHoldingMinutes = t.HoldingMinutes
		}
	}
	n := float64(len(trades))
	ts.WinRate = float64(wins) / n
	ts.AvgFeePerTrade = fees / n
	ts.AvgBarsHeld = bars / n
	ts.AvgHoldingMinutes = minutes / n
	return ts
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the sample standard deviation (n-1 denominator).
func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}
