// Package indicators provides the rolling-window and moving-average
// primitives the bundled strategies precompute during Init. All functions
// are pure: they take value slices and return freshly allocated slices of
// the same length, padded with NaN where the window is not yet full.
package indicators

import "math"

// SMA returns the simple moving average with window n. Leading bars with
// fewer than n samples average whatever is available (min periods 1).
func SMA(values []float64, n int) []float64 {
	out := make([]float64, len(values))
	if n <= 0 {
		n = 1
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= n {
			sum -= values[i-n]
		}
		width := i + 1
		if width > n {
			width = n
		}
		out[i] = sum / float64(width)
	}
	return out
}

// EMA returns the exponential moving average with span n
// (alpha = 2/(n+1), seeded with the first value).
func EMA(values []float64, n int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	if n <= 0 {
		n = 1
	}
	alpha := 2.0 / (float64(n) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// MACD holds the three MACD series: DIF (fast-slow EMA spread), DEA
// (signal line) and the histogram.
type MACD struct {
	DIF  []float64
	DEA  []float64
	Hist []float64
}

// ComputeMACD returns MACD(fast, slow, signal) of the input series. The
// conventional parameters are 12, 26, 9.
func ComputeMACD(values []float64, fast, slow, signal int) MACD {
	emaFast := EMA(values, fast)
	emaSlow := EMA(values, slow)
	dif := make([]float64, len(values))
	for i := range values {
		dif[i] = emaFast[i] - emaSlow[i]
	}
	dea := EMA(dif, signal)
	hist := make([]float64, len(values))
	for i := range values {
		hist[i] = dif[i] - dea[i]
	}
	return MACD{DIF: dif, DEA: dea, Hist: hist}
}

// Diff returns the first difference of the series. The first element is
// NaN, matching a one-bar lookback that does not exist yet.
func Diff(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i] - values[i-1]
	}
	return out
}

// RollingMax returns the maximum over the trailing n samples. Bars with an
// incomplete window are NaN.
func RollingMax(values []float64, n int) []float64 {
	return rollingExtreme(values, n, func(a, b float64) bool { return a > b })
}

// RollingMin returns the minimum over the trailing n samples. Bars with an
// incomplete window are NaN.
func RollingMin(values []float64, n int) []float64 {
	return rollingExtreme(values, n, func(a, b float64) bool { return a < b })
}

func rollingExtreme(values []float64, n int, better func(a, b float64) bool) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if n <= 0 || i < n-1 {
			out[i] = math.NaN()
			continue
		}
		best := values[i-n+1]
		for j := i - n + 2; j <= i; j++ {
			if better(values[j], best) {
				best = values[j]
			}
		}
		out[i] = best
	}
	return out
}

// RollingMean returns the mean over the trailing n samples. Bars with an
// incomplete window are NaN.
func RollingMean(values []float64, n int) []float64 {
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= n {
			sum -= values[i-n]
		}
		if n <= 0 || i < n-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(n)
	}
	return out
}

// OverlapWindow reports, per bar, whether the trailing n bars share a
// common price interval: max(lows) <= min(highs). Used as a congestion
// gauge by the trap strategy. Bars with an incomplete window are false.
func OverlapWindow(highs, lows []float64, n int) []bool {
	out := make([]bool, len(highs))
	for i := range highs {
		if n <= 0 || i < n-1 {
			continue
		}
		maxLow := lows[i-n+1]
		minHigh := highs[i-n+1]
		for j := i - n + 2; j <= i; j++ {
			if lows[j] > maxLow {
				maxLow = lows[j]
			}
			if highs[j] < minHigh {
				minHigh = highs[j]
			}
		}
		out[i] = maxLow <= minHigh
	}
	return out
}
