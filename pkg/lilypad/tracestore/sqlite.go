package tracestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/0xA-10/lilypad/pkg/lilypad"
)

// SQLiteStore persists traces to SQLite. It is suitable for
// single-process use.
//
// Node snapshots are stored as JSON, so a loaded record holds the JSON
// forms of its values: numbers come back as float64 and structs as maps.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens or creates a store at path, a file path such as
// "./traces.db" or ":memory:" for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// Each pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS traces (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL UNIQUE,
			pipeline TEXT NOT NULL,
			pattern TEXT NOT NULL,
			steps INTEGER NOT NULL,
			error TEXT NOT NULL,
			started_at TEXT NOT NULL,
			duration_ns INTEGER NOT NULL,
			nodes BLOB NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_traces_pipeline
		ON traces(pipeline)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SaveTrace implements lilypad.TraceSink.
func (s *SQLiteStore) SaveTrace(ctx context.Context, rec lilypad.TraceRecord) error {
	if rec.RunID == "" {
		return ErrMissingRunID
	}
	nodes, err := json.Marshal(rec.Nodes)
	if err != nil {
		return fmt.Errorf("encode nodes: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO traces (run_id, pipeline, pattern, steps, error, started_at, duration_ns, nodes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`, rec.RunID, rec.Pipeline, rec.Pattern, len(rec.Nodes), rec.Error,
		rec.StartedAt.UTC().Format(time.RFC3339Nano), int64(rec.Duration), nodes)
	if err != nil {
		return fmt.Errorf("save trace: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save trace: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateRun, rec.RunID)
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, runID string) (lilypad.TraceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return lilypad.TraceRecord{}, ErrStoreClosed
	}

	var (
		rec        lilypad.TraceRecord
		startedAt  string
		durationNS int64
		nodes      []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, pipeline, pattern, error, started_at, duration_ns, nodes
		FROM traces
		WHERE run_id = ?
	`, runID).Scan(&rec.RunID, &rec.Pipeline, &rec.Pattern, &rec.Error, &startedAt, &durationNS, &nodes)
	if errors.Is(err, sql.ErrNoRows) {
		return lilypad.TraceRecord{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return lilypad.TraceRecord{}, fmt.Errorf("load trace: %w", err)
	}

	rec.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	rec.Duration = time.Duration(durationNS)
	if err := json.Unmarshal(nodes, &rec.Nodes); err != nil {
		return lilypad.TraceRecord{}, fmt.Errorf("decode nodes: %w", err)
	}
	return rec, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, q Query) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	var (
		where []string
		args  []any
	)
	if q.Pipeline != "" {
		where = append(where, "pipeline = ?")
		args = append(args, q.Pipeline)
	}
	if q.FailedOnly {
		where = append(where, "error <> ''")
	}
	query := "SELECT run_id, pipeline, pattern, steps, error, started_at, duration_ns FROM traces"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list traces: %w", err)
	}
	defer rows.Close()

	infos := []Info{}
	for rows.Next() {
		var (
			info       Info
			startedAt  string
			durationNS int64
		)
		if err := rows.Scan(&info.RunID, &info.Pipeline, &info.Pattern, &info.Steps, &info.Error, &startedAt, &durationNS); err != nil {
			return nil, fmt.Errorf("scan trace info: %w", err)
		}
		info.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		info.Duration = time.Duration(durationNS)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate traces: %w", err)
	}
	return infos, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
