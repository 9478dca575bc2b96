// Package tracestore persists finished pipeline runs for later audit.
//
// A store is an append-only lilypad.TraceSink: every run is saved once under
// its run id and never rewritten. Attach one with lilypad.WithTraceSink.
//
//	store, err := tracestore.NewSQLiteStore("traces.db")
//	p, err := lilypad.Compile(pattern, segs, lilypad.WithTraceSink(store))
package tracestore

import (
	"context"
	"errors"
	"time"

	"github.com/0xA-10/lilypad/pkg/lilypad"
)

// Store persists trace records. Implementations must be safe for
// concurrent use.
type Store interface {
	lilypad.TraceSink

	// Get returns the record saved under runID, or ErrNotFound.
	Get(ctx context.Context, runID string) (lilypad.TraceRecord, error)

	// List returns summaries of the stored runs, newest first. An empty
	// store yields an empty slice, not an error.
	List(ctx context.Context, q Query) ([]Info, error)

	// Close releases any resources (connections, files).
	Close() error
}

// Query filters List.
type Query struct {
	// Pipeline keeps only runs of the named pipeline when set.
	Pipeline string
	// FailedOnly keeps only runs that ended with an error.
	FailedOnly bool
	// Limit caps the number of results; zero means no limit.
	Limit int
}

// Info summarizes a stored run without its snapshots.
type Info struct {
	RunID     string        `json:"run_id"`
	Pipeline  string        `json:"pipeline"`
	Pattern   string        `json:"pattern"`
	Steps     int           `json:"steps"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Failed reports whether the run ended with an error.
func (i Info) Failed() bool {
	return i.Error != ""
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates no run is stored under the id.
	ErrNotFound = errors.New("trace not found")

	// ErrDuplicateRun indicates a run id was saved twice.
	ErrDuplicateRun = errors.New("trace already stored for run")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("trace store closed")

	// ErrMissingRunID indicates a record without a run id.
	ErrMissingRunID = errors.New("trace record has no run id")
)

func summarize(rec lilypad.TraceRecord) Info {
	return Info{
		RunID:     rec.RunID,
		Pipeline:  rec.Pipeline,
		Pattern:   rec.Pattern,
		Steps:     len(rec.Nodes),
		Error:     rec.Error,
		StartedAt: rec.StartedAt,
		Duration:  rec.Duration,
	}
}

func (q Query) match(i Info) bool {
	if q.Pipeline != "" && i.Pipeline != q.Pipeline {
		return false
	}
	if q.FailedOnly && !i.Failed() {
		return false
	}
	return true
}
