package backtest

import (
	"encoding/json"
	"io"
)

// Report bundles one run's outputs for external reporting collaborators.
type Report struct {
	Symbol      string        `json:"symbol,omitempty"`
	Strategy    string        `json:"strategy"`
	Summary     Summary       `json:"summary"`
	Trades      []Trade       `json:"trades"`
	Fills       []Fill        `json:"fills,omitempty"`
	EquityCurve []EquityPoint `json:"equity_curve,omitempty"`
}

// NewReport assembles a Report from a finished run.
func NewReport(symbol string, strategy Strategy, res *Result, sumCfg SummaryConfig) Report {
	return Report{
		Symbol:      symbol,
		Strategy:    strategy.Name(),
		Summary:     Summarize(res, sumCfg),
		Trades:      res.Trades,
		Fills:       res.Fills,
		EquityCurve: res.EquityCurve,
	}
}

// WriteReportJSON writes an indented JSON report.
func WriteReportJSON(w io.Writer, report Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
