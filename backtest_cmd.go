package main

import (
	"context"
	"fmt"
	"os"

	"futbt/backtest"
	"futbt/store"
	"futbt/util"
)

// runBacktest executes one configured run: YAML config when given,
// otherwise the CLI flags, mirroring the reference SMA+OI setup.
func runBacktest() error {
	cfg, err := resolveRunConfig()
	if err != nil {
		return err
	}

	series, err := cfg.LoadSeries()
	if err != nil {
		return err
	}

	bt := backtest.New(series, cfg.Strategy, cfg.Engine)
	res, err := bt.Run()
	if err != nil {
		return err
	}
	report := backtest.NewReport(cfg.Symbol, cfg.Strategy, res, cfg.Summary)

	if dbPath != "" {
		st, err := store.Open(dbPath, util.NewLogger(logLevel))
		if err != nil {
			return err
		}
		defer st.Close()
		id, err := st.SaveRun(context.Background(), report)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "run saved as id %d in %s\n", id, dbPath)
	}

	if equityOut != "" {
		if err := writeFile(equityOut, func(f *os.File) error {
			return backtest.WriteEquityCSV(f, res.EquityCurve)
		}); err != nil {
			return err
		}
	}
	if tradesOut != "" {
		if err := writeFile(tradesOut, func(f *os.File) error {
			return backtest.WriteTradesCSV(f, res.Trades)
		}); err != nil {
			return err
		}
	}

	if outPath == "" {
		return backtest.WriteReportJSON(os.Stdout, report)
	}
	return writeFile(outPath, func(f *os.File) error {
		return backtest.WriteReportJSON(f, report)
	})
}

func resolveRunConfig() (backtest.RunConfig, error) {
	if configPath != "" {
		return backtest.LoadRunConfig(configPath)
	}

	if csvPath == "" && parquetPath == "" {
		return backtest.RunConfig{}, fmt.Errorf("either -config or -csv/-parquet is required")
	}
	cfg := backtest.DefaultRunConfig()
	cfg.CSVPath = csvPath
	cfg.ParquetPath = parquetPath
	cfg.Symbol = symbol
	cfg.GBK = gbk
	cfg.Engine.ContractMultiplier = multiplier
	cfg.Engine.FeeRate = feeRate
	cfg.Engine.TickSize = tickSize
	cfg.Engine.SlippageTicks = slippageTicks
	cfg.Strategy = backtest.NewSMAWithOIStrategy(backtest.SMAWithOIParams{
		N:          smaN,
		Contracts:  contracts,
		AllowShort: allowShort,
	})
	return cfg, nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return write(f)
}
