package backtest

import "time"

// Resample aggregates bars into coarser right-closed, right-labeled
// frames: a bar stamped t belongs to the window (end-d, end], and the
// output bar carries the window end as its timestamp. Open is the first
// open, high/low the extremes, close and open interest the last values,
// volume the sum.
//
// Input bars must be time-ordered, which Series guarantees.
func Resample(bars []Bar, d time.Duration) []Bar {
	if len(bars) == 0 || d <= 0 {
		return nil
	}
	var out []Bar
	var cur Bar
	var curEnd time.Time
	started := false

	flush := func() {
		if started {
			out = append(out, cur)
		}
	}

	for _, b := range bars {
		end := windowEnd(b.Time, d)
		if !started || !end.Equal(curEnd) {
			flush()
			curEnd = end
			cur = Bar{
				Time:         end,
				Open:         b.Open,
				High:         b.High,
				Low:          b.Low,
				Close:        b.Close,
				Volume:       b.Volume,
				OpenInterest: b.OpenInterest,
			}
			started = true
			continue
		}
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
		cur.OpenInterest = b.OpenInterest
	}
	flush()
	return out
}

// windowEnd maps t to the end of its right-closed window: timestamps on a
// boundary map to themselves.
func windowEnd(t time.Time, d time.Duration) time.Time {
	tr := t.Truncate(d)
	if tr.Equal(t) {
		return t
	}
	return tr.Add(d)
}

// AlignForward maps each base-frame timestamp to the index of the latest
// coarse bar at or before it, or -1 while no coarse bar has completed yet.
// This is the forward-fill join the multi-timeframe strategies use to look
// up coarse-frame features from a base-frame bar without peeking ahead.
func AlignForward(base []Bar, coarse []Bar) []int {
	out := make([]int, len(base))
	j := -1
	for i, b := range base {
		for j+1 < len(coarse) && !coarse[j+1].Time.After(b.Time) {
			j++
		}
		out[i] = j
	}
	return out
}
