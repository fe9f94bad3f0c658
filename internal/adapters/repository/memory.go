package repository

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store used by tests and as a substitution
// point for the core's narrow storage dependency. Values are stored in
// their encoded form so reads decode fresh copies, matching the isolation
// of the SQLite implementation.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[Key][]byte
	closed bool

	// FailSets makes the next n Set calls fail; used to exercise the
	// write-retry path in tests.
	failSets int
	failErr  error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[Key][]byte)}
}

// FailNextSets arranges for the next n Set calls to return err.
func (m *MemoryStore) FailNextSets(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSets = n
	m.failErr = err
}

// Get reads the requested keys.
func (m *MemoryStore) Get(ctx context.Context, keys ...Key) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var snap Snapshot
	if m.closed {
		return snap, ErrClosed
	}
	for _, key := range keys {
		value, ok := m.data[key]
		if !ok {
			continue
		}
		if err := decodeInto(&snap, key, value); err != nil {
			return snap, err
		}
	}
	return snap, nil
}

// Set writes every non-nil field of changes atomically.
func (m *MemoryStore) Set(ctx context.Context, changes Changes) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.failSets > 0 {
		m.failSets--
		return m.failErr
	}

	encoded, err := encodeChanges(changes)
	if err != nil {
		return err
	}
	for key, value := range encoded {
		m.data[key] = value
	}
	return nil
}

// Close marks the store closed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*SQLiteStore)(nil)
