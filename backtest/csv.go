package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// LoadOptions controls CSV ingestion.
type LoadOptions struct {
	// Symbol filters rows by their symbol column when non-empty.
	Symbol string
	// GBK decodes the file from GBK before parsing. Mainland data
	// vendors commonly export minute bars in that encoding.
	GBK bool
}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
}

// LoadCSV reads a bar series from a CSV file. Required columns (any
// casing): date, open, high, low, close, volume; open_interest, money and
// symbol are optional. Rows are sorted by time; structural problems are
// reported as MalformedSeriesError so a run fails fast before the engine
// starts.
func LoadCSV(path string, opts LoadOptions) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if opts.GBK {
		r = transform.NewReader(f, simplifiedchinese.GBK.NewDecoder())
	}
	return ReadCSV(r, opts)
}

// ReadCSV parses a bar series from an already-open CSV stream.
func ReadCSV(r io.Reader, opts LoadOptions) (*Series, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, &MalformedSeriesError{Reason: "empty series"}
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"date", "open", "high", "low", "close", "volume"} {
		if _, ok := col[required]; !ok {
			return nil, &MalformedSeriesError{Reason: fmt.Sprintf("missing column %q", required)}
		}
	}
	oiCol, hasOI := col["open_interest"]
	symCol, hasSym := col["symbol"]

	var bars []Bar
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", line, err)
		}
		line++

		if hasSym && opts.Symbol != "" && strings.TrimSpace(rec[symCol]) != opts.Symbol {
			continue
		}

		t, err := parseTime(rec[col["date"]])
		if err != nil {
			return nil, &MalformedSeriesError{Reason: fmt.Sprintf("row %d: %v", line, err)}
		}
		b := Bar{Time: t}
		for _, fld := range []struct {
			name string
			dst  *float64
		}{
			{"open", &b.Open},
			{"high", &b.High},
			{"low", &b.Low},
			{"close", &b.Close},
			{"volume", &b.Volume},
		} {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[col[fld.name]]), 64)
			if err != nil {
				return nil, &MalformedSeriesError{Reason: fmt.Sprintf("row %d: bad %s: %v", line, fld.name, err)}
			}
			*fld.dst = v
		}
		if hasOI {
			// Empty cells mean no OI data; anything else must parse.
			if cell := strings.TrimSpace(rec[oiCol]); cell != "" {
				v, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					return nil, &MalformedSeriesError{Reason: fmt.Sprintf("row %d: bad open_interest: %v", line, err)}
				}
				b.OpenInterest = v
			}
		}
		bars = append(bars, b)
	}

	sortBars(bars)
	return NewSeries(bars)
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// WriteEquityCSV writes the equity curve as (time, equity) rows.
func WriteEquityCSV(w io.Writer, curve []EquityPoint) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()
	if err := cw.Write([]string{"time", "equity"}); err != nil {
		return err
	}
	for _, p := range curve {
		if err := cw.Write([]string{
			p.Time.Format("2006-01-02 15:04:05"),
			formatF(p.Equity),
		}); err != nil {
			return err
		}
	}
	return nil
}

// WriteTradesCSV writes the closed-trade ledger.
func WriteTradesCSV(w io.Writer, trades []Trade) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()
	if err := cw.Write([]string{
		"direction", "entry_time", "exit_time", "entry_price", "exit_price",
		"contracts", "gross_pnl", "fees", "net_pnl", "bars_held", "holding_minutes",
	}); err != nil {
		return err
	}
	for _, t := range trades {
		if err := cw.Write([]string{
			string(t.Direction),
			t.EntryTime.Format("2006-01-02 15:04:05"),
			t.ExitTime.Format("2006-01-02 15:04:05"),
			formatF(t.EntryPrice), formatF(t.ExitPrice),
			strconv.Itoa(t.Contracts),
			formatF(t.GrossPnL), formatF(t.Fees), formatF(t.NetPnL),
			strconv.Itoa(t.BarsHeld), formatF(t.HoldingMinutes),
		}); err != nil {
			return err
		}
	}
	return nil
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func sortBars(bars []Bar) {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
}
