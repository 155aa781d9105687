package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"CookieBroker/internal/model"
)

// SQLiteRecorder persists history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so the CLI and dashboards can read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id           TEXT PRIMARY KEY,
			timestamp    INTEGER NOT NULL,
			side         TEXT NOT NULL,
			stock_id     INTEGER NOT NULL,
			symbol       TEXT NOT NULL,
			amount       INTEGER NOT NULL,
			value        REAL,
			cookies      REAL,
			resting_diff REAL,
			mode         TEXT,
			cost_basis   REAL,
			profit       REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol)`,

		`CREATE TABLE IF NOT EXISTS cycles (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			duration_ms INTEGER,
			buys        INTEGER,
			sells       INTEGER,
			balance     REAL,
			paused      INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_ts ON cycles(timestamp)`,

		`CREATE TABLE IF NOT EXISTS quotes (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp     INTEGER NOT NULL,
			symbol        TEXT NOT NULL,
			value         REAL,
			mode          TEXT,
			delta         REAL,
			resting_value REAL,
			held          INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quotes_symbol_ts ON quotes(symbol, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordTrade stores a trade under a fresh UUID and returns it.
func (r *SQLiteRecorder) RecordTrade(t *model.Trade) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	ts := t.ExecutedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := r.db.Exec(`INSERT INTO trades
		(id, timestamp, side, stock_id, symbol, amount, value, cookies,
		 resting_diff, mode, cost_basis, profit)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		id, ts.Unix(), string(t.Side), t.StockID, t.Symbol, t.Amount, t.Value, t.Cookies,
		t.RestingDiff, t.Mode.String(), t.CostBasis, t.Profit,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *SQLiteRecorder) RecordCycle(evt *CycleEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	paused := 0
	if evt.Paused {
		paused = 1
	}
	_, err := r.db.Exec(`INSERT INTO cycles
		(timestamp, duration_ms, buys, sells, balance, paused, error)
		VALUES (?,?,?,?,?,?,?)`,
		evt.StartedAt.Unix(), evt.Duration.Milliseconds(), evt.Buys, evt.Sells,
		evt.Balance, paused, evt.Error,
	)
	return err
}

// RecordQuotes writes one row per stock in a single transaction.
func (r *SQLiteRecorder) RecordQuotes(at time.Time, stocks []model.Stock) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO quotes
		(timestamp, symbol, value, mode, delta, resting_value, held)
		VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, s := range stocks {
		if _, err := stmt.Exec(at.Unix(), s.Symbol, s.Value, s.Mode.String(), s.Delta, s.RestingValue, s.Held); err != nil {
			tx.Rollback()
			return fmt.Errorf("quote %s: %w", s.Symbol, err)
		}
	}
	return tx.Commit()
}

// RecentTrades returns up to limit trades, newest first.
func (r *SQLiteRecorder) RecentTrades(limit int) ([]TradeRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(`SELECT id, timestamp, side, stock_id, symbol, amount, value,
		cookies, resting_diff, mode, cost_basis, profit
		FROM trades ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRow
	for rows.Next() {
		var (
			row  TradeRow
			ts   int64
			side string
			mode string
		)
		if err := rows.Scan(&row.ID, &ts, &side, &row.StockID, &row.Symbol, &row.Amount, &row.Value,
			&row.Cookies, &row.RestingDiff, &mode, &row.CostBasis, &row.Profit); err != nil {
			return nil, err
		}
		row.Side = model.Side(side)
		row.ExecutedAt = time.Unix(ts, 0)
		if err := row.Mode.UnmarshalText([]byte(mode)); err != nil {
			log.Printf("[WARN] trade %s: %v", row.ID, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
