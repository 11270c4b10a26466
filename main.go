package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"futbt/api"
	"futbt/store"
	"futbt/util"
)

var (
	configPath string
	outPath    string
	equityOut  string
	tradesOut  string
	dbPath     string

	csvPath       string
	parquetPath   string
	symbol        string
	gbk           bool
	multiplier    float64
	feeRate       float64
	tickSize      float64
	slippageTicks int
	contracts     int
	smaN          int
	allowShort    bool

	serveMode bool
	port      int
	logLevel  string
)

func main() {
	flag.StringVar(&configPath, "config", "", "YAML run configuration path (overrides the data/engine flags)")
	flag.StringVar(&outPath, "out", "", "report JSON output path (default stdout)")
	flag.StringVar(&equityOut, "equity-out", "", "equity curve CSV output path")
	flag.StringVar(&tradesOut, "trades-out", "", "trade ledger CSV output path")
	flag.StringVar(&dbPath, "db", "", "SQLite results database path (optional; runs are persisted when set)")

	flag.StringVar(&csvPath, "csv", "", "bar series CSV path (columns: date,open,high,low,close,volume[,open_interest,symbol])")
	flag.StringVar(&parquetPath, "parquet", "", "bar series Parquet path")
	flag.StringVar(&symbol, "symbol", "", "filter rows by symbol, e.g. IF1005")
	flag.BoolVar(&gbk, "gbk", false, "decode the CSV from GBK")
	flag.Float64Var(&multiplier, "multiplier", 300, "contract multiplier, e.g. IF=300")
	flag.Float64Var(&feeRate, "fee-rate", 2e-4, "commission per side as fraction of notional")
	flag.Float64Var(&tickSize, "tick-size", 0.2, "tick size")
	flag.IntVar(&slippageTicks, "slippage-ticks", 1, "slippage in ticks for market orders")
	flag.IntVar(&contracts, "contracts", 1, "target contracts for the reference strategy")
	flag.IntVar(&smaN, "sma-n", 20, "SMA window for the reference strategy")
	flag.BoolVar(&allowShort, "allow-short", false, "enable shorting in the reference strategy")

	flag.BoolVar(&serveMode, "serve", false, "start the HTTP API instead of running one backtest")
	flag.IntVar(&port, "port", 19530, "HTTP API port")
	flag.StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")
	flag.Parse()

	if serveMode {
		if err := runServer(); err != nil {
			log.Fatalf("server: %v", err)
		}
		return
	}

	if err := runBacktest(); err != nil {
		fmt.Fprintf(os.Stderr, "backtest: %v\n", err)
		os.Exit(1)
	}
}

func runServer() error {
	logger := util.NewLogger(logLevel)

	if dbPath == "" {
		dbPath = "futbt.db"
	}
	st, err := store.Open(dbPath, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := api.NewServer(st, port, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case s := <-sig:
		logger.Info("shutting down", "signal", s.String())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Stop(ctx)
	}
}
