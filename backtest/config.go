package backtest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLConfig is the on-disk run configuration.
type YAMLConfig struct {
	Data struct {
		CSV     string `yaml:"csv"`
		Parquet string `yaml:"parquet"`
		Symbol  string `yaml:"symbol"`
		GBK     bool   `yaml:"gbk"`
	} `yaml:"data"`

	// FeeRate and SlippageTicks are pointers so an explicit zero (a
	// free-of-cost backtest) is distinguishable from an omitted field,
	// which keeps the default.
	Backtest struct {
		ContractMultiplier float64  `yaml:"contract_multiplier"`
		FeeRate            *float64 `yaml:"fee_rate"`
		TickSize           float64  `yaml:"tick_size"`
		SlippageTicks      *int     `yaml:"slippage_ticks"`
		InitialCash        float64  `yaml:"initial_cash"`
		BarsPerYear        float64  `yaml:"bars_per_year"`
	} `yaml:"backtest"`

	Strategy struct {
		Type   string         `yaml:"type"`
		Params map[string]any `yaml:"params"`
	} `yaml:"strategy"`
}

// RunConfig is the validated, ready-to-run form of YAMLConfig.
type RunConfig struct {
	CSVPath     string
	ParquetPath string
	Symbol      string
	GBK         bool

	Engine   Config
	Summary  SummaryConfig
	Strategy Strategy
}

// DefaultRunConfig uses the stock-index futures defaults and the reference
// SMA+OI strategy.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Engine:   DefaultConfig(),
		Summary:  SummaryConfig{BarsPerYear: DefaultBarsPerYear},
		Strategy: NewSMAWithOIStrategy(SMAWithOIParams{}),
	}
}

// LoadRunConfig reads and validates a YAML run configuration.
func LoadRunConfig(path string) (RunConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return RunConfig{}, fmt.Errorf("read config: %w", err)
	}

	var yc YAMLConfig
	if err := yaml.Unmarshal(raw, &yc); err != nil {
		return RunConfig{}, fmt.Errorf("parse yaml: %w", err)
	}

	cfg := DefaultRunConfig()
	cfg.CSVPath = yc.Data.CSV
	cfg.ParquetPath = yc.Data.Parquet
	cfg.Symbol = yc.Data.Symbol
	cfg.GBK = yc.Data.GBK
	if cfg.CSVPath == "" && cfg.ParquetPath == "" {
		return RunConfig{}, fmt.Errorf("config: data.csv or data.parquet is required")
	}

	if yc.Backtest.ContractMultiplier > 0 {
		cfg.Engine.ContractMultiplier = yc.Backtest.ContractMultiplier
	}
	if yc.Backtest.FeeRate != nil {
		cfg.Engine.FeeRate = *yc.Backtest.FeeRate
	}
	if yc.Backtest.TickSize > 0 {
		cfg.Engine.TickSize = yc.Backtest.TickSize
	}
	if yc.Backtest.SlippageTicks != nil {
		cfg.Engine.SlippageTicks = *yc.Backtest.SlippageTicks
	}
	if yc.Backtest.InitialCash > 0 {
		cfg.Engine.InitialCash = yc.Backtest.InitialCash
	}
	if yc.Backtest.BarsPerYear > 0 {
		cfg.Summary.BarsPerYear = yc.Backtest.BarsPerYear
	}

	strat, err := BuildStrategy(yc.Strategy.Type, yc.Strategy.Params)
	if err != nil {
		return RunConfig{}, err
	}
	cfg.Strategy = strat

	return cfg, nil
}

// LoadSeries loads the configured bar series, preferring Parquet when both
// sources are set.
func (c RunConfig) LoadSeries() (*Series, error) {
	if c.ParquetPath != "" {
		return LoadParquet(c.ParquetPath, c.Symbol)
	}
	return LoadCSV(c.CSVPath, LoadOptions{Symbol: c.Symbol, GBK: c.GBK})
}

// BuildStrategy constructs a strategy by type name with loosely-typed
// params (from YAML or JSON). An empty type selects the reference SMA+OI
// strategy.
func BuildStrategy(typ string, params map[string]any) (Strategy, error) {
	switch typ {
	case "", "sma_oi":
		var p SMAWithOIParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return NewSMAWithOIStrategy(p), nil
	case "bear_trap":
		var p BearTrapParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return NewBearTrapStrategy(p)
	case "breakout":
		var p BreakoutParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return NewBreakoutStrategy(p), nil
	default:
		return nil, fmt.Errorf("unknown strategy.type: %s", typ)
	}
}

// decodeParams round-trips the loose map through YAML into a typed params
// struct.
func decodeParams(params map[string]any, out any) error {
	if params == nil {
		return nil
	}
	b, err := yaml.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode strategy params: %w", err)
	}
	if err := yaml.Unmarshal(b, out); err != nil {
		return fmt.Errorf("parse strategy params: %w", err)
	}
	return nil
}
