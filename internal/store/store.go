// Package store persists scan runs and their recommendations in SQLite.
// Core evaluation stays pure; this is the repository layer around it.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure Go SQLite driver

	"ivcrush/pkg/model"
)

// Store wraps the database connection
type Store struct {
	conn *sql.DB
	path string
}

// Run is a persisted scan run header
type Run struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Profile      string    `json:"profile"`
	Universe     string    `json:"universe"`
	TotalScanned int       `json:"total_scanned"`
	Tradeable    int       `json:"tradeable"`
	Skipped      int       `json:"skipped"`
}

// Recommendation is one stored per-ticker result within a run
type Recommendation struct {
	RunID    string          `json:"run_id"`
	Ticker   string          `json:"ticker"`
	Strategy string          `json:"strategy"`
	Score    float64         `json:"score"`
	VRPRatio float64         `json:"vrp_ratio"`
	Result   json.RawMessage `json:"result"` // full AnalysisResult
}

// Open creates the database file (and its directory) if needed and runs
// the schema migration.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	conn.SetMaxOpenConns(1) // serialized writes; reads share the same conn
	s := &Store{conn: conn, path: dbPath}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	created_at    TIMESTAMP NOT NULL,
	profile       TEXT NOT NULL,
	universe      TEXT NOT NULL DEFAULT '',
	total_scanned INTEGER NOT NULL,
	tradeable     INTEGER NOT NULL,
	skipped       INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS recommendations (
	run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	ticker    TEXT NOT NULL,
	strategy  TEXT NOT NULL,
	score     REAL NOT NULL,
	vrp_ratio REAL NOT NULL,
	result    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_recommendations_run ON recommendations(run_id);
`
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// SaveScan persists one scan result with all its recommendations in a
// single transaction and returns the new run ID.
func (s *Store) SaveScan(ctx context.Context, universe string, scan *model.ScanResult) (string, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, profile, universe, total_scanned, tradeable, skipped)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, time.Now().UTC(), scan.Profile, universe, scan.TotalScanned, len(scan.Results), len(scan.Skipped))
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	for _, result := range scan.Results {
		top := result.Recommended()
		if top == nil {
			continue
		}
		raw, err := json.Marshal(result)
		if err != nil {
			return "", fmt.Errorf("encoding result for %s: %w", result.Ticker, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO recommendations (run_id, ticker, strategy, score, vrp_ratio, result)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, result.Ticker, string(top.Type), top.Score, result.VRP.Ratio, string(raw))
		if err != nil {
			return "", fmt.Errorf("inserting recommendation for %s: %w", result.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return id, nil
}

// ListRuns returns the most recent runs, newest first
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, created_at, profile, universe, total_scanned, tradeable, skipped
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.Profile, &r.Universe, &r.TotalScanned, &r.Tradeable, &r.Skipped); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRecommendations returns a run's stored results, best score first
func (s *Store) GetRecommendations(ctx context.Context, runID string) ([]Recommendation, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT run_id, ticker, strategy, score, vrp_ratio, result
		 FROM recommendations WHERE run_id = ? ORDER BY score DESC`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading recommendations: %w", err)
	}
	defer rows.Close()

	var recs []Recommendation
	for rows.Next() {
		var r Recommendation
		var raw []byte
		if err := rows.Scan(&r.RunID, &r.Ticker, &r.Strategy, &r.Score, &r.VRPRatio, &raw); err != nil {
			return nil, fmt.Errorf("scanning recommendation: %w", err)
		}
		r.Result = json.RawMessage(raw)
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
