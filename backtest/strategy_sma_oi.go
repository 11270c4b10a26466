package backtest

import (
	"math"

	"futbt/indicators"
)

// SMAWithOIParams configures SMAWithOIStrategy.
type SMAWithOIParams struct {
	N          int  `yaml:"n" json:"n"`
	Contracts  int  `yaml:"contracts" json:"contracts"`
	AllowShort bool `yaml:"allow_short" json:"allow_short"`
}

func (p SMAWithOIParams) withDefaults() SMAWithOIParams {
	if p.N <= 0 {
		p.N = 20
	}
	if p.Contracts <= 0 {
		p.Contracts = 1
	}
	return p
}

// SMAWithOIStrategy goes long while close > SMA(n) with open interest
// rising, flat otherwise; symmetric short is optional. It rebalances to a
// target position with a single order per bar rather than emitting partial
// orders.
type SMAWithOIStrategy struct {
	p SMAWithOIParams

	sma   []float64
	oiChg []float64
}

func NewSMAWithOIStrategy(p SMAWithOIParams) *SMAWithOIStrategy {
	return &SMAWithOIStrategy{p: p.withDefaults()}
}

func (s *SMAWithOIStrategy) Name() string { return "sma_oi" }

func (s *SMAWithOIStrategy) Params() SMAWithOIParams { return s.p }

func (s *SMAWithOIStrategy) Init(series *Series) error {
	s.sma = indicators.SMA(series.Closes(), s.p.N)
	s.oiChg = indicators.Diff(series.OpenInterests())
	return nil
}

func (s *SMAWithOIStrategy) OnBar(i int, bar Bar, pos Position) []Order {
	oiUp := !math.IsNaN(s.oiChg[i]) && s.oiChg[i] > 0
	longSignal := bar.Close > s.sma[i] && oiUp
	shortSignal := s.p.AllowShort && bar.Close < s.sma[i] && oiUp

	target := 0
	if longSignal {
		target = s.p.Contracts
	} else if shortSignal {
		target = -s.p.Contracts
	}

	delta := target - pos.Contracts
	switch {
	case delta > 0:
		return []Order{{Side: SideBuy, Size: delta, Reason: "target_up"}}
	case delta < 0:
		return []Order{{Side: SideSell, Size: -delta, Reason: "target_down"}}
	default:
		return nil
	}
}
