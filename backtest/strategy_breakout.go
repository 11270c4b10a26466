package backtest

import (
	"math"
	"time"

	"futbt/indicators"
)

// BreakoutParams configures BreakoutStrategy.
type BreakoutParams struct {
	HoldBars  int `yaml:"hold_bars" json:"hold_bars"`
	Contracts int `yaml:"contracts" json:"contracts"`
}

func (p BreakoutParams) withDefaults() BreakoutParams {
	if p.HoldBars <= 0 {
		p.HoldBars = 20
	}
	if p.Contracts <= 0 {
		p.Contracts = 1
	}
	return p
}

// BreakoutStrategy buys 1-minute range expansion gated by the 30-minute
// trend: the 30m SMA(20) slope must be flat-to-up, and the last two
// 1-minute closes must both clear the high of the previous two completed
// 5-minute bars, late in their 5-minute block. One entry per block;
// positions are closed after a fixed hold.
type BreakoutStrategy struct {
	p BreakoutParams

	smaFlatUp []bool    // 30m gate, 1m-aligned
	prev2High []float64 // prior-two-5m-bar high, 1m-aligned
	blockID   []time.Time
	blockPos  []int
	closes    []float64
	n         int

	holdCounter    int
	lastEntryBlock time.Time
}

func NewBreakoutStrategy(p BreakoutParams) *BreakoutStrategy {
	return &BreakoutStrategy{p: p.withDefaults()}
}

func (s *BreakoutStrategy) Name() string { return "breakout" }

func (s *BreakoutStrategy) Init(series *Series) error {
	bars := series.Bars()
	s.n = len(bars)
	s.holdCounter = 0
	s.lastEntryBlock = time.Time{}

	s.closes = series.Closes()

	bars30 := Resample(bars, 30*time.Minute)
	closes30 := make([]float64, len(bars30))
	for i, b := range bars30 {
		closes30[i] = b.Close
	}
	sma20 := indicators.RollingMean(closes30, 20)
	align30 := AlignForward(bars, bars30)
	s.smaFlatUp = make([]bool, len(bars))
	for i := range bars {
		j := align30[i]
		if j < 1 || math.IsNaN(sma20[j]) || math.IsNaN(sma20[j-1]) {
			continue
		}
		s.smaFlatUp[i] = sma20[j]-sma20[j-1] >= 0
	}

	bars5 := Resample(bars, 5*time.Minute)
	align5 := AlignForward(bars, bars5)
	s.prev2High = make([]float64, len(bars))
	for i := range bars {
		j := align5[i]
		// High of the two completed 5m bars before the current block.
		if j < 1 {
			s.prev2High[i] = math.NaN()
			continue
		}
		h := bars5[j].High
		if bars5[j-1].High > h {
			h = bars5[j-1].High
		}
		s.prev2High[i] = h
	}

	s.blockID = make([]time.Time, len(bars))
	s.blockPos = make([]int, len(bars))
	for i, b := range bars {
		start := b.Time.Truncate(5 * time.Minute)
		s.blockID[i] = start
		s.blockPos[i] = int(b.Time.Sub(start) / time.Minute)
	}
	return nil
}

func (s *BreakoutStrategy) OnBar(i int, bar Bar, pos Position) []Order {
	if i < 1 || i >= s.n-1 {
		return nil
	}

	if pos.Contracts != 0 {
		s.holdCounter++
		if s.holdCounter >= s.p.HoldBars {
			s.holdCounter = 0
			return []Order{{Side: SideSell, Size: pos.Contracts, Reason: "breakout_timed_exit"}}
		}
		return nil
	}

	if !s.smaFlatUp[i] {
		return nil
	}
	if !s.breakoutAt(i) || !s.breakoutAt(i-1) {
		return nil
	}
	// Both trigger bars must sit late in the same 5m block.
	if s.blockPos[i] < 3 || s.blockPos[i-1] < 3 || !s.blockID[i].Equal(s.blockID[i-1]) {
		return nil
	}
	if s.blockID[i].Equal(s.lastEntryBlock) {
		return nil
	}

	s.lastEntryBlock = s.blockID[i]
	s.holdCounter = 0
	return []Order{{Side: SideBuy, Size: s.p.Contracts, Reason: "breakout_entry"}}
}

func (s *BreakoutStrategy) breakoutAt(i int) bool {
	ref := s.prev2High[i]
	return !math.IsNaN(ref) && s.closes[i] > ref
}
