// Package sqlite persists generated signals durably. It is the system of
// record behind the Redis cache; FindLatest drives the hold-period check.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"cryptosignals/internal/model"
)

// Config configures the SQLite store.
type Config struct {
	DBPath string // path to SQLite database file, e.g. "data/signals.db"
}

// Store is a single-writer SQLite signal store.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens the database, enables WAL mode, and creates the schema.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			id           TEXT    PRIMARY KEY,
			market_id    TEXT    NOT NULL,
			symbol       TEXT    NOT NULL,
			timeframe    TEXT    NOT NULL,
			direction    TEXT    NOT NULL,
			confidence   INTEGER,
			tradeable    INTEGER NOT NULL,
			scores       TEXT    NOT NULL,
			gates        TEXT    NOT NULL,
			rationale    TEXT    NOT NULL,
			generated_at INTEGER NOT NULL,
			hold_until   INTEGER NOT NULL,
			expires_at   INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_signals_latest
			ON signals (market_id, timeframe, generated_at DESC);
	`)
	return err
}

const signalColumns = `id, market_id, symbol, timeframe, direction, confidence, tradeable,
	scores, gates, rationale, generated_at, hold_until, expires_at`

// Insert stores one signal. Component scores and gates are stored as JSON
// blobs; they are read back whole, never queried by field.
func (s *Store) Insert(ctx context.Context, sig *model.Signal) error {
	scores, err := json.Marshal(sig.Scores)
	if err != nil {
		return &model.PersistenceError{Op: "insert", Err: fmt.Errorf("marshal scores: %w", err)}
	}
	gates, err := json.Marshal(sig.Gates)
	if err != nil {
		return &model.PersistenceError{Op: "insert", Err: fmt.Errorf("marshal gates: %w", err)}
	}

	var confidence sql.NullInt64
	if sig.Confidence != nil {
		confidence = sql.NullInt64{Int64: int64(*sig.Confidence), Valid: true}
	}
	var expires sql.NullInt64
	if sig.ExpiresAt != nil {
		expires = sql.NullInt64{Int64: sig.ExpiresAt.Unix(), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO signals (`+signalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sig.ID, sig.MarketID, sig.Symbol, string(sig.Timeframe), string(sig.Direction),
		confidence, boolToInt(sig.Tradeable), string(scores), string(gates),
		sig.Rationale, sig.GeneratedAt.Unix(), sig.HoldUntil.Unix(), expires,
	)
	if err != nil {
		return &model.PersistenceError{Op: "insert", Err: err}
	}
	return nil
}

// FindLatest returns the most recently generated signal for a market and
// timeframe, or (nil, nil) when none exists.
func (s *Store) FindLatest(ctx context.Context, marketID string, tf model.Timeframe) (*model.Signal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+signalColumns+`
		FROM signals
		WHERE market_id = ? AND timeframe = ?
		ORDER BY generated_at DESC
		LIMIT 1
	`, marketID, string(tf))

	sig, err := scanSignal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &model.PersistenceError{Op: "find_latest", Err: err}
	}
	return sig, nil
}

// History returns up to limit signals for a market and timeframe, newest
// first. Used by the gateway's replay endpoint.
func (s *Store) History(ctx context.Context, marketID string, tf model.Timeframe, limit int) ([]*model.Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+signalColumns+`
		FROM signals
		WHERE market_id = ? AND timeframe = ?
		ORDER BY generated_at DESC
		LIMIT ?
	`, marketID, string(tf), limit)
	if err != nil {
		return nil, &model.PersistenceError{Op: "history", Err: err}
	}
	defer rows.Close()

	var out []*model.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, &model.PersistenceError{Op: "history", Err: err}
		}
		out = append(out, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, &model.PersistenceError{Op: "history", Err: err}
	}
	return out, nil
}

// scanSignal reads one row in signalColumns order.
func scanSignal(row interface{ Scan(dest ...any) error }) (*model.Signal, error) {
	var (
		sig        model.Signal
		timeframe  string
		direction  string
		confidence sql.NullInt64
		tradeable  int
		scores     string
		gates      string
		generated  int64
		holdUntil  int64
		expires    sql.NullInt64
	)
	err := row.Scan(&sig.ID, &sig.MarketID, &sig.Symbol, &timeframe, &direction,
		&confidence, &tradeable, &scores, &gates, &sig.Rationale,
		&generated, &holdUntil, &expires)
	if err != nil {
		return nil, err
	}

	sig.Timeframe = model.Timeframe(timeframe)
	sig.Direction = model.Direction(direction)
	sig.Tradeable = tradeable != 0
	if confidence.Valid {
		c := int(confidence.Int64)
		sig.Confidence = &c
	}
	if err := json.Unmarshal([]byte(scores), &sig.Scores); err != nil {
		return nil, fmt.Errorf("unmarshal scores: %w", err)
	}
	if err := json.Unmarshal([]byte(gates), &sig.Gates); err != nil {
		return nil, fmt.Errorf("unmarshal gates: %w", err)
	}
	sig.GeneratedAt = time.Unix(generated, 0).UTC()
	sig.HoldUntil = time.Unix(holdUntil, 0).UTC()
	if expires.Valid {
		t := time.Unix(expires.Int64, 0).UTC()
		sig.ExpiresAt = &t
	}
	return &sig, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
