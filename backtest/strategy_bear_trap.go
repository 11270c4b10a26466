package backtest

import (
	"fmt"
	"math"
	"time"

	"futbt/indicators"
)

// BearTrapParams configures BearTrapStrategy.
type BearTrapParams struct {
	// Direction is "long" (buy the trap) or "short" (mirror entry).
	Direction    string `yaml:"direction" json:"direction"`
	HoldBars     int    `yaml:"hold_bars" json:"hold_bars"`
	CooldownBars int    `yaml:"cooldown_bars" json:"cooldown_bars"`
	Contracts    int    `yaml:"contracts" json:"contracts"`
}

func (p BearTrapParams) withDefaults() BearTrapParams {
	if p.Direction == "" {
		p.Direction = "long"
	}
	if p.HoldBars <= 0 {
		p.HoldBars = 20
	}
	if p.CooldownBars <= 0 {
		p.CooldownBars = 5
	}
	if p.Contracts <= 0 {
		p.Contracts = 1
	}
	return p
}

// BearTrapStrategy trades the failed-breakdown setup on 1-minute bars
// using two coarser frames derived internally:
//
//   - 30m: at least 3 of the last 4 bars sit in a 3-bar overlap zone
//   - 5m: the 20-bar range of the 5-bar MA is wide relative to the average
//     bar amplitude X, and the MACD DIF floor over 10 bars holds above
//     1.2x the 40-bar floor
//   - 1m: price has dropped at least X below the 20-bar high (the trap)
//     while at least 7 of the last 20 bars overlap
//
// Entries are held for a fixed number of bars, then closed, followed by a
// cooldown during which no new entry is taken.
type BearTrapStrategy struct {
	p BearTrapParams

	overlap1m []bool
	high      []float64

	bars30m    []Bar
	overlap30m []bool
	align30m   []int

	align5m   []int
	maRange20 []float64
	ampX      []float64
	dif5m     []float64

	n int

	cooldown int
	heldBars int
}

func NewBearTrapStrategy(p BearTrapParams) (*BearTrapStrategy, error) {
	pp := p.withDefaults()
	if pp.Direction != "long" && pp.Direction != "short" {
		return nil, fmt.Errorf("bear_trap: direction must be long or short, got %q", pp.Direction)
	}
	return &BearTrapStrategy{p: pp}, nil
}

func (s *BearTrapStrategy) Name() string { return "bear_trap" }

func (s *BearTrapStrategy) Init(series *Series) error {
	bars := series.Bars()
	s.n = len(bars)
	s.cooldown = 0
	s.heldBars = 0

	s.high = make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		s.high[i] = b.High
		lows[i] = b.Low
	}
	s.overlap1m = indicators.OverlapWindow(s.high, lows, 3)

	bars5m := Resample(bars, 5*time.Minute)
	s.bars30m = Resample(bars, 30*time.Minute)
	s.align5m = AlignForward(bars, bars5m)
	s.align30m = AlignForward(bars, s.bars30m)

	highs30, lows30 := columns(s.bars30m)
	s.overlap30m = indicators.OverlapWindow(highs30, lows30, 3)

	closes5 := make([]float64, len(bars5m))
	amp5 := make([]float64, len(bars5m))
	for i, b := range bars5m {
		closes5[i] = b.Close
		amp5[i] = b.High - b.Low
	}
	sma5 := indicators.SMA(closes5, 5)
	maxMA := indicators.RollingMax(sma5, 20)
	minMA := indicators.RollingMin(sma5, 20)
	s.maRange20 = make([]float64, len(bars5m))
	for i := range bars5m {
		s.maRange20[i] = maxMA[i] - minMA[i]
	}
	s.ampX = indicators.RollingMean(amp5, 20)
	s.dif5m = indicators.ComputeMACD(closes5, 12, 26, 9).DIF

	return nil
}

func (s *BearTrapStrategy) OnBar(i int, bar Bar, pos Position) []Order {
	if i < 40 || i >= s.n-1 {
		return nil
	}

	// Timed exit while holding, then cooldown.
	if pos.Contracts != 0 {
		s.heldBars++
		if s.heldBars >= s.p.HoldBars {
			exitSide := SideSell
			if pos.Contracts < 0 {
				exitSide = SideBuy
			}
			s.heldBars = 0
			s.cooldown = s.p.CooldownBars
			return []Order{{
				Side:   exitSide,
				Size:   absInt(pos.Contracts),
				Reason: fmt.Sprintf("hold_%d_bars_exit", s.p.HoldBars),
			}}
		}
		return nil
	}

	if s.cooldown > 0 {
		s.cooldown--
		return nil
	}

	j5 := s.align5m[i]
	j30 := s.align30m[i]
	if j5 < 0 || j30 < 0 {
		return nil
	}
	x := s.ampX[j5]
	if math.IsNaN(x) {
		return nil
	}

	// 30m congestion: 3 of the last 4 completed bars in overlap.
	if j30 < 3 {
		return nil
	}
	overlaps := 0
	for k := j30 - 3; k <= j30; k++ {
		if s.overlap30m[k] {
			overlaps++
		}
	}
	cond1 := overlaps >= 3

	cond2 := !math.IsNaN(s.maRange20[j5]) && s.maRange20[j5] >= 1.5*x

	cond4 := s.difFloorHolds(i)

	high20 := math.Inf(-1)
	for k := maxInt(0, i-20); k < i; k++ {
		if s.high[k] > high20 {
			high20 = s.high[k]
		}
	}
	cond5 := high20-bar.Close >= x

	overlapCount := 0
	for k := maxInt(0, i-19); k <= i; k++ {
		if s.overlap1m[k] {
			overlapCount++
		}
	}
	cond6 := overlapCount >= 7

	if !(cond1 && cond2 && cond4 && cond5 && cond6) {
		return nil
	}

	side, reason := SideBuy, "bear_trap_long_entry"
	if s.p.Direction == "short" {
		side, reason = SideSell, "bear_trap_short_entry"
	}
	s.heldBars = 0
	return []Order{{Side: side, Size: s.p.Contracts, Reason: reason}}
}

// difFloorHolds checks the MACD DIF condition on the 1m-aligned 5m series:
// the 10-bar minimum must not undercut 1.2x the 40-bar minimum.
func (s *BearTrapStrategy) difFloorHolds(i int) bool {
	dif10 := s.alignedDIFMin(i, 10)
	dif40 := s.alignedDIFMin(i, 40)
	if math.IsNaN(dif10) || math.IsNaN(dif40) {
		return false
	}
	return dif10 >= 1.2*dif40
}

func (s *BearTrapStrategy) alignedDIFMin(i, window int) float64 {
	lo := math.NaN()
	for k := maxInt(0, i-window+1); k <= i; k++ {
		j := s.align5m[k]
		if j < 0 {
			continue
		}
		v := s.dif5m[j]
		if math.IsNaN(lo) || v < lo {
			lo = v
		}
	}
	return lo
}

func columns(bars []Bar) (highs, lows []float64) {
	highs = make([]float64, len(bars))
	lows = make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
	}
	return highs, lows
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
