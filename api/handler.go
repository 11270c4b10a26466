package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"futbt/backtest"
	"futbt/store"
)

// Handler serves the backtest endpoints.
type Handler struct {
	store *store.ResultStore
	log   *slog.Logger
}

func NewHandler(st *store.ResultStore, log *slog.Logger) *Handler {
	return &Handler{store: st, log: log}
}

// BacktestRequest is the JSON body of POST /api/backtest. Data paths refer
// to files visible to the server process.
type BacktestRequest struct {
	CSV     string `json:"csv"`
	Parquet string `json:"parquet"`
	Symbol  string `json:"symbol"`
	GBK     bool   `json:"gbk"`

	// FeeRate and SlippageTicks are pointers so an explicit zero is
	// distinguishable from an omitted field, which keeps the default.
	ContractMultiplier float64  `json:"contract_multiplier"`
	FeeRate            *float64 `json:"fee_rate"`
	TickSize           float64  `json:"tick_size"`
	SlippageTicks      *int     `json:"slippage_ticks"`
	InitialCash        float64  `json:"initial_cash"`
	BarsPerYear        float64  `json:"bars_per_year"`

	Strategy       string         `json:"strategy"`
	StrategyParams map[string]any `json:"strategy_params"`
}

func (r BacktestRequest) runConfig() (backtest.RunConfig, error) {
	cfg := backtest.DefaultRunConfig()
	cfg.CSVPath = r.CSV
	cfg.ParquetPath = r.Parquet
	cfg.Symbol = r.Symbol
	cfg.GBK = r.GBK
	if cfg.CSVPath == "" && cfg.ParquetPath == "" {
		return backtest.RunConfig{}, errors.New("csv or parquet path is required")
	}
	if r.ContractMultiplier > 0 {
		cfg.Engine.ContractMultiplier = r.ContractMultiplier
	}
	if r.FeeRate != nil {
		cfg.Engine.FeeRate = *r.FeeRate
	}
	if r.TickSize > 0 {
		cfg.Engine.TickSize = r.TickSize
	}
	if r.SlippageTicks != nil {
		cfg.Engine.SlippageTicks = *r.SlippageTicks
	}
	if r.InitialCash > 0 {
		cfg.Engine.InitialCash = r.InitialCash
	}
	if r.BarsPerYear > 0 {
		cfg.Summary.BarsPerYear = r.BarsPerYear
	}

	strat, err := backtest.BuildStrategy(r.Strategy, r.StrategyParams)
	if err != nil {
		return backtest.RunConfig{}, err
	}
	cfg.Strategy = strat
	return cfg, nil
}

// RunBacktest loads the requested series, runs one backtest, persists the
// report, and returns it with its run id.
func (h *Handler) RunBacktest(c *gin.Context) {
	var req BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg, err := req.runConfig()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	series, err := cfg.LoadSeries()
	if err != nil {
		var malformed *backtest.MalformedSeriesError
		status := http.StatusInternalServerError
		if errors.As(err, &malformed) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	bt := backtest.New(series, cfg.Strategy, cfg.Engine)
	res, err := bt.Run()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	report := backtest.NewReport(cfg.Symbol, cfg.Strategy, res, cfg.Summary)
	id, err := h.store.SaveRun(c.Request.Context(), report)
	if err != nil {
		h.log.Error("save run failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "report": report})
}

// ListRuns returns persisted run summaries, newest first.
func (h *Handler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := h.store.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(runs), "data": runs})
}

// GetRun returns one persisted run with its ledger and equity curve.
func (h *Handler) GetRun(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}
	rec, trades, curve, err := h.store.GetRun(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run":          rec,
		"trades":       trades,
		"equity_curve": curve,
	})
}
