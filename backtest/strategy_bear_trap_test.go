package backtest

import (
	"testing"
	"time"
)

// trapSeries builds a congested 1m tape: flat around 100 with 0.4 ranges,
// an optional step to 101 (bars 50-69) that widens the 5m MA range, and a
// three-bar flush to 99.4 ending at bar 120.
func trapSeries(t *testing.T, withStep bool) *Series {
	t.Helper()
	bars := make([]Bar, 126)
	for i := range bars {
		c := 100.0
		if withStep && i >= 50 && i <= 69 {
			c = 101.0
		}
		switch i {
		case 118:
			c = 99.7
		case 119:
			c = 99.5
		case 120:
			c = 99.4
		}
		bars[i] = Bar{
			Time:   t0.Add(time.Duration(i) * time.Minute),
			Open:   c,
			High:   c + 0.2,
			Low:    c - 0.2,
			Close:  c,
			Volume: 10,
		}
	}
	series, err := NewSeries(bars)
	if err != nil {
		t.Fatal(err)
	}
	return series
}

func newTrapStrategy(t *testing.T, p BearTrapParams, series *Series) *BearTrapStrategy {
	t.Helper()
	s, err := NewBearTrapStrategy(p)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Init(series); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestBearTrapEntryOnSetup(t *testing.T) {
	series := trapSeries(t, true)
	s := newTrapStrategy(t, BearTrapParams{Contracts: 2}, series)

	orders := s.OnBar(120, series.Bar(120), Position{})
	if len(orders) != 1 {
		t.Fatalf("orders = %+v, want one entry", orders)
	}
	if orders[0].Side != SideBuy || orders[0].Size != 2 || orders[0].Reason != "bear_trap_long_entry" {
		t.Fatalf("got %+v, want BUY x2 bear_trap_long_entry", orders[0])
	}
}

func TestBearTrapNoEntryWithoutMARange(t *testing.T) {
	// Without the step the 5m MA range stays narrow, so the same flush
	// does not qualify.
	series := trapSeries(t, false)
	s := newTrapStrategy(t, BearTrapParams{}, series)

	if orders := s.OnBar(120, series.Bar(120), Position{}); len(orders) != 0 {
		t.Fatalf("orders = %+v, want none", orders)
	}
}

func TestBearTrapShortDirection(t *testing.T) {
	series := trapSeries(t, true)
	s := newTrapStrategy(t, BearTrapParams{Direction: "short"}, series)

	orders := s.OnBar(120, series.Bar(120), Position{})
	if len(orders) != 1 || orders[0].Side != SideSell || orders[0].Reason != "bear_trap_short_entry" {
		t.Fatalf("orders = %+v, want SELL bear_trap_short_entry", orders)
	}
}

func TestBearTrapTimedExitAndCooldown(t *testing.T) {
	series := trapSeries(t, true)
	s := newTrapStrategy(t, BearTrapParams{HoldBars: 2, CooldownBars: 2}, series)

	bar := series.Bar(120)
	long := Position{Contracts: 1, AvgPrice: 100}

	// First holding bar: nothing yet.
	if orders := s.OnBar(120, bar, long); len(orders) != 0 {
		t.Fatalf("orders = %+v, want none before hold expires", orders)
	}
	// Second holding bar closes the position.
	orders := s.OnBar(120, bar, long)
	if len(orders) != 1 {
		t.Fatalf("orders = %+v, want timed exit", orders)
	}
	if orders[0].Side != SideSell || orders[0].Size != 1 || orders[0].Reason != "hold_2_bars_exit" {
		t.Fatalf("got %+v, want SELL x1 hold_2_bars_exit", orders[0])
	}

	// Cooldown: the setup still qualifies at bar 120, but re-entry is
	// blocked for two bars.
	for k := 0; k < 2; k++ {
		if orders := s.OnBar(120, bar, Position{}); len(orders) != 0 {
			t.Fatalf("cooldown bar %d: orders = %+v, want none", k, orders)
		}
	}
	if orders := s.OnBar(120, bar, Position{}); len(orders) != 1 {
		t.Fatalf("orders = %+v, want entry after cooldown", orders)
	}
}

func TestBearTrapShortExitCoversWithBuy(t *testing.T) {
	series := trapSeries(t, true)
	s := newTrapStrategy(t, BearTrapParams{Direction: "short", HoldBars: 1}, series)

	orders := s.OnBar(120, series.Bar(120), Position{Contracts: -2, AvgPrice: 100})
	if len(orders) != 1 || orders[0].Side != SideBuy || orders[0].Size != 2 {
		t.Fatalf("orders = %+v, want BUY x2 cover", orders)
	}
}

func TestNewBearTrapStrategyRejectsBadDirection(t *testing.T) {
	if _, err := NewBearTrapStrategy(BearTrapParams{Direction: "sideways"}); err == nil {
		t.Fatal("direction sideways accepted, want error")
	}
}
