package backtest

import (
	"testing"
	"time"
)

func TestResampleFiveMinute(t *testing.T) {
	// 09:31..09:40, one bar per minute. Right-closed windows: 09:31-09:35
	// label 09:35, 09:36-09:40 label 09:40.
	start := time.Date(2010, 4, 16, 9, 31, 0, 0, time.UTC)
	var bars []Bar
	for i := 0; i < 10; i++ {
		price := 100 + float64(i)
		bars = append(bars, Bar{
			Time:         start.Add(time.Duration(i) * time.Minute),
			Open:         price,
			High:         price + 1,
			Low:          price - 1,
			Close:        price + 0.5,
			Volume:       10,
			OpenInterest: float64(1000 + i),
		})
	}

	out := Resample(bars, 5*time.Minute)
	if len(out) != 2 {
		t.Fatalf("got %d bars, want 2", len(out))
	}

	first := out[0]
	if !first.Time.Equal(start.Add(4 * time.Minute)) {
		t.Fatalf("first label = %v, want 09:35", first.Time)
	}
	if first.Open != 100 || first.Close != 104.5 {
		t.Fatalf("first open/close = %v/%v, want 100/104.5", first.Open, first.Close)
	}
	if first.High != 105 || first.Low != 99 {
		t.Fatalf("first high/low = %v/%v, want 105/99", first.High, first.Low)
	}
	if first.Volume != 50 {
		t.Fatalf("first volume = %v, want 50", first.Volume)
	}
	if first.OpenInterest != 1004 {
		t.Fatalf("first open interest = %v, want last value 1004", first.OpenInterest)
	}
}

func TestResampleBoundaryBarBelongsToItsWindow(t *testing.T) {
	// A bar stamped exactly on a boundary closes that window.
	base := time.Date(2010, 4, 16, 9, 35, 0, 0, time.UTC)
	bars := []Bar{
		{Time: base.Add(-time.Minute), Open: 1, High: 1, Low: 1, Close: 1},
		{Time: base, Open: 2, High: 2, Low: 2, Close: 2},
		{Time: base.Add(time.Minute), Open: 3, High: 3, Low: 3, Close: 3},
	}
	out := Resample(bars, 5*time.Minute)
	if len(out) != 2 {
		t.Fatalf("got %d bars, want 2", len(out))
	}
	if !out[0].Time.Equal(base) || out[0].Close != 2 {
		t.Fatalf("first window = %v close %v, want label 09:35 close 2", out[0].Time, out[0].Close)
	}
}

func TestAlignForward(t *testing.T) {
	start := time.Date(2010, 4, 16, 9, 31, 0, 0, time.UTC)
	var base []Bar
	for i := 0; i < 10; i++ {
		base = append(base, Bar{Time: start.Add(time.Duration(i) * time.Minute)})
	}
	coarse := Resample(base, 5*time.Minute)

	idx := AlignForward(base, coarse)
	// Before the first 5m window completes at 09:35, nothing to align.
	for i := 0; i < 4; i++ {
		if idx[i] != -1 {
			t.Fatalf("idx[%d] = %d, want -1", i, idx[i])
		}
	}
	// 09:35 onward sees the first completed window.
	for i := 4; i < 9; i++ {
		if idx[i] != 0 {
			t.Fatalf("idx[%d] = %d, want 0", i, idx[i])
		}
	}
	if idx[9] != 1 {
		t.Fatalf("idx[9] = %d, want 1", idx[9])
	}
}

func TestResampleEmpty(t *testing.T) {
	if got := Resample(nil, 5*time.Minute); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}
