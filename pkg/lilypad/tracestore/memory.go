package tracestore

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/0xA-10/lilypad/pkg/lilypad"
)

// MemoryStore keeps traces in process memory. Data is lost when the
// process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]lilypad.TraceRecord
	order   []string // run ids in save order
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]lilypad.TraceRecord)}
}

// SaveTrace implements lilypad.TraceSink.
func (m *MemoryStore) SaveTrace(ctx context.Context, rec lilypad.TraceRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.RunID == "" {
		return ErrMissingRunID
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	if _, ok := m.records[rec.RunID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRun, rec.RunID)
	}

	// Node snapshots are already deep copies; only the slice is ours to own.
	rec.Nodes = slices.Clone(rec.Nodes)
	m.records[rec.RunID] = rec
	m.order = append(m.order, rec.RunID)
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context, runID string) (lilypad.TraceRecord, error) {
	if err := ctx.Err(); err != nil {
		return lilypad.TraceRecord{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return lilypad.TraceRecord{}, ErrStoreClosed
	}
	rec, ok := m.records[runID]
	if !ok {
		return lilypad.TraceRecord{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	rec.Nodes = slices.Clone(rec.Nodes)
	return rec, nil
}

// List implements Store.
func (m *MemoryStore) List(ctx context.Context, q Query) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}

	infos := make([]Info, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		info := summarize(m.records[m.order[i]])
		if !q.match(info) {
			continue
		}
		infos = append(infos, info)
		if q.Limit > 0 && len(infos) == q.Limit {
			break
		}
	}
	return infos, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.records = nil
	m.order = nil
	return nil
}

// Len returns the number of stored runs.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
