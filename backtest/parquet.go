package backtest

import (
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"
)

// barRecord is the on-disk Parquet schema for minute bars.
type barRecord struct {
	Symbol       string  `parquet:"symbol,optional"`
	Timestamp    int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open         float64 `parquet:"open"`
	High         float64 `parquet:"high"`
	Low          float64 `parquet:"low"`
	Close        float64 `parquet:"close"`
	Volume       float64 `parquet:"volume"`
	OpenInterest float64 `parquet:"open_interest,optional"`
}

// LoadParquet reads a bar series from a Parquet file, optionally filtered
// by symbol. Rows are sorted by time and validated the same way as the
// CSV path.
func LoadParquet(path string, symbol string) (*Series, error) {
	records, err := parquet.ReadFile[barRecord](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}

	bars := make([]Bar, 0, len(records))
	for _, r := range records {
		if symbol != "" && r.Symbol != symbol {
			continue
		}
		bars = append(bars, Bar{
			Time:         time.UnixMilli(r.Timestamp).In(time.Local),
			Open:         r.Open,
			High:         r.High,
			Low:          r.Low,
			Close:        r.Close,
			Volume:       r.Volume,
			OpenInterest: r.OpenInterest,
		})
	}
	sortBars(bars)
	return NewSeries(bars)
}

// WriteParquet persists a bar slice, mainly so converted CSV data can be
// reloaded without reparsing.
func WriteParquet(path string, symbol string, bars []Bar) error {
	records := make([]barRecord, len(bars))
	for i, b := range bars {
		records[i] = barRecord{
			Symbol:       symbol,
			Timestamp:    b.Time.UnixMilli(),
			Open:         b.Open,
			High:         b.High,
			Low:          b.Low,
			Close:        b.Close,
			Volume:       b.Volume,
			OpenInterest: b.OpenInterest,
		}
	}
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}
	return nil
}
