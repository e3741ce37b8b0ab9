// Package history records answered questions for audit and the /history
// command. Each record captures who asked, what was asked, the final answer,
// and how much work the orchestrator did to produce it.
package history

import (
	"context"
	"time"
)

// Record is a single answered question.
type Record struct {
	// ID is assigned by the store on insert.
	ID int64

	// AskerID is the Discord user ID of the asker.
	AskerID string

	// AskerName is the human-readable name of the asker.
	AskerName string

	// ChannelID is the Discord channel the question was asked in.
	ChannelID string

	// Command is the slash command that produced this record (e.g. "ask-data").
	Command string

	// Question is the user's question verbatim.
	Question string

	// Answer is the final answer text returned to the user.
	Answer string

	// Status is "ok" or "error".
	Status string

	// ModelCalls is the number of model completions the orchestrator made.
	ModelCalls int

	// ToolCalls is the number of tools the orchestrator dispatched.
	ToolCalls int

	// Duration is the end-to-end question handling time.
	Duration time.Duration

	// AskedAt is when the question was received.
	AskedAt time.Time
}

// Store persists and retrieves question records.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Add appends a record. The store assigns Record.ID.
	Add(ctx context.Context, rec Record) error

	// Recent returns the most recent records in reverse chronological order,
	// at most limit entries.
	Recent(ctx context.Context, limit int) ([]Record, error)

	// Search performs a full-text search over questions and answers,
	// returning at most limit matches, newest first.
	Search(ctx context.Context, query string, limit int) ([]Record, error)

	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases storage resources.
	Close()
}

// Nop is a Store that records nothing. It is used when no database is
// configured so callers never need a nil check.
type Nop struct{}

var _ Store = Nop{}

func (Nop) Add(context.Context, Record) error { return nil }

func (Nop) Recent(context.Context, int) ([]Record, error) { return []Record{}, nil }

func (Nop) Search(context.Context, string, int) ([]Record, error) { return []Record{}, nil }

func (Nop) Ping(context.Context) error { return nil }

func (Nop) Close() {}
