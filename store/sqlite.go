// Package store persists completed backtest runs to SQLite so results
// survive the process and can be listed and compared later. The store is
// an explicitly constructed dependency passed by reference; there are no
// package-level singletons, which keeps concurrent runs independent.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"futbt/backtest"
)

// RunRecord is one persisted backtest run.
type RunRecord struct {
	ID        int64            `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	Symbol    string           `json:"symbol"`
	Strategy  string           `json:"strategy"`
	Summary   backtest.Summary `json:"summary"`
}

// ResultStore writes and reads backtest reports in a SQLite database.
type ResultStore struct {
	db  *sql.DB
	log *slog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TEXT NOT NULL,
	symbol     TEXT NOT NULL,
	strategy   TEXT NOT NULL,
	summary    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS trades (
	run_id          INTEGER NOT NULL REFERENCES runs(id),
	seq             INTEGER NOT NULL,
	direction       TEXT NOT NULL,
	entry_time      TEXT NOT NULL,
	exit_time       TEXT NOT NULL,
	entry_price     REAL NOT NULL,
	exit_price      REAL NOT NULL,
	contracts       INTEGER NOT NULL,
	gross_pnl       REAL NOT NULL,
	fees            REAL NOT NULL,
	net_pnl         REAL NOT NULL,
	bars_held       INTEGER NOT NULL,
	holding_minutes REAL NOT NULL,
	PRIMARY KEY (run_id, seq)
);
CREATE TABLE IF NOT EXISTS equity (
	run_id INTEGER NOT NULL REFERENCES runs(id),
	seq    INTEGER NOT NULL,
	time   TEXT NOT NULL,
	equity REAL NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

// Open creates (or opens) the results database and applies the schema.
func Open(path string, log *slog.Logger) (*ResultStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &ResultStore{db: db, log: log}, nil
}

// Close closes the underlying database.
func (s *ResultStore) Close() error { return s.db.Close() }

// SaveRun persists a report and returns the new run id.
func (s *ResultStore) SaveRun(ctx context.Context, report backtest.Report) (int64, error) {
	summary, err := json.Marshal(report.Summary)
	if err != nil {
		return 0, fmt.Errorf("encode summary: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (created_at, symbol, strategy, summary) VALUES (?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339), report.Symbol, report.Strategy, string(summary),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	for i, t := range report.Trades {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO trades (run_id, seq, direction, entry_time, exit_time, entry_price,
				exit_price, contracts, gross_pnl, fees, net_pnl, bars_held, holding_minutes)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, string(t.Direction),
			t.EntryTime.Format(time.RFC3339), t.ExitTime.Format(time.RFC3339),
			t.EntryPrice, t.ExitPrice, t.Contracts,
			t.GrossPnL, t.Fees, t.NetPnL, t.BarsHeld, t.HoldingMinutes,
		); err != nil {
			return 0, fmt.Errorf("insert trade %d: %w", i, err)
		}
	}
	for i, p := range report.EquityCurve {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO equity (run_id, seq, time, equity) VALUES (?, ?, ?, ?)`,
			id, i, p.Time.Format(time.RFC3339), p.Equity,
		); err != nil {
			return 0, fmt.Errorf("insert equity point %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	if s.log != nil {
		s.log.Info("run saved", "id", id, "symbol", report.Symbol,
			"strategy", report.Strategy, "trades", len(report.Trades))
	}
	return id, nil
}

// ListRuns returns persisted runs, newest first.
func (s *ResultStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, symbol, strategy, summary FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetRun returns one persisted run with its trade ledger and equity curve.
func (s *ResultStore) GetRun(ctx context.Context, id int64) (RunRecord, []backtest.Trade, []backtest.EquityPoint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, symbol, strategy, summary FROM runs WHERE id = ?`, id)
	rec, err := scanRun(row)
	if err != nil {
		return RunRecord{}, nil, nil, err
	}

	trades, err := s.runTrades(ctx, id)
	if err != nil {
		return RunRecord{}, nil, nil, err
	}
	curve, err := s.runEquity(ctx, id)
	if err != nil {
		return RunRecord{}, nil, nil, err
	}
	return rec, trades, curve, nil
}

func (s *ResultStore) runTrades(ctx context.Context, id int64) ([]backtest.Trade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT direction, entry_time, exit_time, entry_price, exit_price, contracts,
			gross_pnl, fees, net_pnl, bars_held, holding_minutes
		 FROM trades WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	defer rows.Close()

	var out []backtest.Trade
	for rows.Next() {
		var t backtest.Trade
		var dir, entry, exit string
		if err := rows.Scan(&dir, &entry, &exit, &t.EntryPrice, &t.ExitPrice, &t.Contracts,
			&t.GrossPnL, &t.Fees, &t.NetPnL, &t.BarsHeld, &t.HoldingMinutes); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.Direction = backtest.Direction(dir)
		if t.EntryTime, err = time.Parse(time.RFC3339, entry); err != nil {
			return nil, fmt.Errorf("parse entry time: %w", err)
		}
		if t.ExitTime, err = time.Parse(time.RFC3339, exit); err != nil {
			return nil, fmt.Errorf("parse exit time: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *ResultStore) runEquity(ctx context.Context, id int64) ([]backtest.EquityPoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT time, equity FROM equity WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("load equity: %w", err)
	}
	defer rows.Close()

	var out []backtest.EquityPoint
	for rows.Next() {
		var p backtest.EquityPoint
		var ts string
		if err := rows.Scan(&ts, &p.Equity); err != nil {
			return nil, fmt.Errorf("scan equity point: %w", err)
		}
		if p.Time, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, fmt.Errorf("parse equity time: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var rec RunRecord
	var created, summary string
	if err := row.Scan(&rec.ID, &created, &rec.Symbol, &rec.Strategy, &summary); err != nil {
		if err == sql.ErrNoRows {
			return RunRecord{}, fmt.Errorf("run not found")
		}
		return RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	t, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return RunRecord{}, fmt.Errorf("parse created_at: %w", err)
	}
	rec.CreatedAt = t
	if err := json.Unmarshal([]byte(summary), &rec.Summary); err != nil {
		return RunRecord{}, fmt.Errorf("decode summary: %w", err)
	}
	return rec, nil
}
