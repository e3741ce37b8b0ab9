// Package mock provides an in-memory test double for the history store.
//
// The mock records every method call for assertion in tests and exposes
// exported fields that control what it returns. It is safe for concurrent
// use via an internal mutex.
package mock

import (
	"context"
	"sync"

	"github.com/glimt/datascout/internal/history"
)

// Call records the name and arguments of a single method invocation.
type Call struct {
	// Method is the name of the interface method that was called.
	Method string

	// Args holds the non-context arguments passed to the method, in order.
	Args []any
}

// Store is a configurable test double for [history.Store]. All exported *Err
// fields default to nil (success); all exported *Result fields default to nil
// (empty slice returned).
type Store struct {
	mu    sync.Mutex
	calls []Call

	// Added accumulates every record passed to Add.
	Added []history.Record

	// AddErr is returned by Add when non-nil.
	AddErr error

	// RecentResult is returned by Recent. When nil, an empty non-nil slice
	// is returned.
	RecentResult []history.Record

	// RecentErr is returned by Recent when non-nil.
	RecentErr error

	// SearchResult is returned by Search. When nil, an empty non-nil slice
	// is returned.
	SearchResult []history.Record

	// SearchErr is returned by Search when non-nil.
	SearchErr error

	// PingErr is returned by Ping when non-nil.
	PingErr error
}

var _ history.Store = (*Store)(nil)

// Add implements [history.Store].
func (m *Store) Add(_ context.Context, rec history.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "Add", Args: []any{rec}})
	if m.AddErr != nil {
		return m.AddErr
	}
	m.Added = append(m.Added, rec)
	return nil
}

// Recent implements [history.Store].
func (m *Store) Recent(_ context.Context, limit int) ([]history.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "Recent", Args: []any{limit}})
	if m.RecentErr != nil {
		return nil, m.RecentErr
	}
	if m.RecentResult == nil {
		return []history.Record{}, nil
	}
	return m.RecentResult, nil
}

// Search implements [history.Store].
func (m *Store) Search(_ context.Context, query string, limit int) ([]history.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "Search", Args: []any{query, limit}})
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	if m.SearchResult == nil {
		return []history.Record{}, nil
	}
	return m.SearchResult, nil
}

// Ping implements [history.Store].
func (m *Store) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "Ping"})
	return m.PingErr
}

// Close implements [history.Store].
func (m *Store) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "Close"})
}

// Calls returns a copy of all recorded method invocations.
func (m *Store) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times the named method was invoked.
func (m *Store) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset clears all recorded calls and accumulated records.
func (m *Store) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.Added = nil
}
