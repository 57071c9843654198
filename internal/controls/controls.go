// Package controls persists per-user operator controls: the next-chip
// counter shown to and settable by operators. The counter is advisory except
// when an operator explicitly sets it, in which case it takes precedence over
// the sheet-derived pointer on the next allocation for that user. Backends:
// in-memory (tests), SQLite (single-node default) and Postgres.
package controls

import (
	"context"
	"sync"
)

// State is the stored control record for one user key.
type State struct {
	// NextChip is the chip pointer. After every successful submission the
	// service records the post-submission pointer here for display.
	NextChip int
	// Operator marks a value set through the counter endpoint. It is
	// consumed by the next allocation, which clears the flag.
	Operator bool
}

// Store is the interface for control-state backends.
type Store interface {
	Get(ctx context.Context, userKey string) (State, bool, error)
	Set(ctx context.Context, userKey string, state State) error
	// Reset drops all stored counters. Sheet-derived state is unaffected.
	Reset(ctx context.Context) error
	Close() error
}

// Memory implements Store backed by process memory. Intended for tests.
type Memory struct {
	mu    sync.Mutex
	users map[string]State
}

// NewMemory returns an in-memory control store.
func NewMemory() *Memory { return &Memory{users: make(map[string]State)} }

// Get returns the stored state for userKey.
func (m *Memory) Get(_ context.Context, userKey string) (State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.users[userKey]
	return st, ok, nil
}

// Set stores state for userKey.
func (m *Memory) Set(_ context.Context, userKey string, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userKey] = state
	return nil
}

// Reset drops all stored counters.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = make(map[string]State)
	return nil
}

// Close is a no-op for the memory backend.
func (m *Memory) Close() error { return nil }
