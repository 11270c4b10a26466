package backtest

import (
	"testing"
	"time"
)

// breakoutSeries builds a flat tape long enough for the 30m SMA(20) gate
// (21 completed half-hour windows), with closes spiked to 105 at the given
// bar indices.
func breakoutSeries(t *testing.T, spikes ...int) *Series {
	t.Helper()
	spiked := make(map[int]bool, len(spikes))
	for _, i := range spikes {
		spiked[i] = true
	}
	bars := make([]Bar, 610)
	for i := range bars {
		c := 100.0
		if spiked[i] {
			c = 105.0
		}
		bars[i] = Bar{
			Time:   t0.Add(time.Duration(i) * time.Minute),
			Open:   c,
			High:   c,
			Low:    c,
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

func newBreakout(t *testing.T, p BreakoutParams, series *Series) *BreakoutStrategy {
	t.Helper()
	s := NewBreakoutStrategy(p)
	if err := s.Init(series); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestBreakoutEntryOnTwoBarTrigger(t *testing.T) {
	// Bars 603 and 604 sit at positions 3 and 4 of the same 5m block and
	// both close above the prior two completed 5m highs.
	series := breakoutSeries(t, 603, 604)
	s := newBreakout(t, BreakoutParams{Contracts: 2}, series)

	orders := s.OnBar(604, series.Bar(604), Position{})
	if len(orders) != 1 {
		t.Fatalf("orders = %+v, want one entry", orders)
	}
	if orders[0].Side != SideBuy || orders[0].Size != 2 || orders[0].Reason != "breakout_entry" {
		t.Fatalf("got %+v, want BUY x2 breakout_entry", orders[0])
	}
}

func TestBreakoutSingleBarSpikeNoEntry(t *testing.T) {
	series := breakoutSeries(t, 604)
	s := newBreakout(t, BreakoutParams{}, series)
	if orders := s.OnBar(604, series.Bar(604), Position{}); len(orders) != 0 {
		t.Fatalf("orders = %+v, want none for a one-bar spike", orders)
	}
}

func TestBreakoutEarlyBlockPairNoEntry(t *testing.T) {
	// Bars 601 and 602 break out too, but at block positions 1 and 2.
	series := breakoutSeries(t, 601, 602)
	s := newBreakout(t, BreakoutParams{}, series)
	if orders := s.OnBar(602, series.Bar(602), Position{}); len(orders) != 0 {
		t.Fatalf("orders = %+v, want none early in the block", orders)
	}
}

func TestBreakoutDecliningSMAGateBlocksEntry(t *testing.T) {
	// A falling tape keeps the 30m SMA(20) slope negative even though the
	// spikes clear every prior high.
	bars := make([]Bar, 610)
	for i := range bars {
		c := 1000.0 - 0.1*float64(i)
		if i == 603 || i == 604 {
			c = 2000.0
		}
		bars[i] = Bar{
			Time:  t0.Add(time.Duration(i) * time.Minute),
			Open:  c,
			High:  c,
			Low:   c,
			Close: c,
		}
	}
	series, err := NewSeries(bars)
	if err != nil {
		t.Fatal(err)
	}
	s := newBreakout(t, BreakoutParams{}, series)
	if orders := s.OnBar(604, series.Bar(604), Position{}); len(orders) != 0 {
		t.Fatalf("orders = %+v, want none against a falling 30m SMA", orders)
	}
}

func TestBreakoutOneEntryPerBlock(t *testing.T) {
	series := breakoutSeries(t, 603, 604)
	s := newBreakout(t, BreakoutParams{}, series)

	if orders := s.OnBar(604, series.Bar(604), Position{}); len(orders) != 1 {
		t.Fatalf("orders = %+v, want entry", orders)
	}
	// Still flat in the same block (order not yet filled): no second order.
	if orders := s.OnBar(604, series.Bar(604), Position{}); len(orders) != 0 {
		t.Fatalf("orders = %+v, want block latch to hold", orders)
	}
}

func TestBreakoutTimedExit(t *testing.T) {
	series := breakoutSeries(t)
	s := newBreakout(t, BreakoutParams{HoldBars: 2}, series)

	long := Position{Contracts: 2, AvgPrice: 100}
	if orders := s.OnBar(100, series.Bar(100), long); len(orders) != 0 {
		t.Fatalf("orders = %+v, want none before hold expires", orders)
	}
	orders := s.OnBar(101, series.Bar(101), long)
	if len(orders) != 1 {
		t.Fatalf("orders = %+v, want timed exit", orders)
	}
	if orders[0].Side != SideSell || orders[0].Size != 2 || orders[0].Reason != "breakout_timed_exit" {
		t.Fatalf("got %+v, want SELL x2 breakout_timed_exit", orders[0])
	}
}
