package backtest

import "time"

// Series is an ordered, time-indexed bar table. It is fixed for the
// duration of one backtest run; the engine and strategies only read it.
type Series struct {
	bars  []Bar
	index map[time.Time]int
}

// NewSeries validates bars and wraps them in a Series. Validation happens
// here, at the ingestion boundary: the engine assumes a well-formed series
// and performs no per-bar re-checks.
func NewSeries(bars []Bar) (*Series, error) {
	if len(bars) == 0 {
		return nil, &MalformedSeriesError{Reason: "empty series"}
	}
	index := make(map[time.Time]int, len(bars))
	for i, b := range bars {
		if b.Time.IsZero() {
			return nil, &MalformedSeriesError{Reason: "zero timestamp"}
		}
		if i > 0 && !bars[i-1].Time.Before(b.Time) {
			return nil, &MalformedSeriesError{Reason: "timestamps not strictly ascending"}
		}
		index[b.Time] = i
	}
	return &Series{bars: bars, index: index}, nil
}

// Len returns the number of bars.
func (s *Series) Len() int { return len(s.bars) }

// Bar returns the bar at position i (0..Len-1).
func (s *Series) Bar(i int) Bar { return s.bars[i] }

// Bars returns the underlying bar slice. Callers must treat it as
// read-only.
func (s *Series) Bars() []Bar { return s.bars }

// IndexOf maps a bar timestamp back to its position. The second return
// value is false for timestamps not in the series.
func (s *Series) IndexOf(t time.Time) (int, bool) {
	i, ok := s.index[t]
	return i, ok
}

// Closes returns the close column as a slice, for indicator precomputation.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.bars))
	for i, b := range s.bars {
		out[i] = b.Close
	}
	return out
}

// OpenInterests returns the open interest column as a slice.
func (s *Series) OpenInterests() []float64 {
	out := make([]float64, len(s.bars))
	for i, b := range s.bars {
		out[i] = b.OpenInterest
	}
	return out
}
