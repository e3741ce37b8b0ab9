package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ddlQuestionRecords creates the audit table. The GIN index backs the
// full-text [PostgresStore.Search].
const ddlQuestionRecords = `
CREATE TABLE IF NOT EXISTS question_records (
    id           BIGSERIAL    PRIMARY KEY,
    asker_id     TEXT         NOT NULL,
    asker_name   TEXT         NOT NULL DEFAULT '',
    channel_id   TEXT         NOT NULL DEFAULT '',
    command      TEXT         NOT NULL DEFAULT '',
    question     TEXT         NOT NULL,
    answer       TEXT         NOT NULL,
    status       TEXT         NOT NULL DEFAULT 'ok',
    model_calls  INT          NOT NULL DEFAULT 0,
    tool_calls   INT          NOT NULL DEFAULT 0,
    duration_ns  BIGINT       NOT NULL DEFAULT 0,
    asked_at     TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_question_records_asked_at
    ON question_records (asked_at);

CREATE INDEX IF NOT EXISTS idx_question_records_asker
    ON question_records (asker_id);

CREATE INDEX IF NOT EXISTS idx_question_records_fts
    ON question_records USING GIN (to_tsvector('english', question || ' ' || answer));
`

// PostgresStore is a [Store] backed by a PostgreSQL question_records table.
//
// All methods are safe for concurrent use; the underlying [pgxpool.Pool]
// handles connection management.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to the database at dsn, verifies the connection,
// and ensures the schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("history store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history store: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, ddlQuestionRecords); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history store: migrate: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Add implements [Store].
func (s *PostgresStore) Add(ctx context.Context, rec Record) error {
	const q = `
		INSERT INTO question_records
		    (asker_id, asker_name, channel_id, command, question, answer,
		     status, model_calls, tool_calls, duration_ns, asked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	askedAt := rec.AskedAt
	if askedAt.IsZero() {
		askedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, q,
		rec.AskerID,
		rec.AskerName,
		rec.ChannelID,
		rec.Command,
		rec.Question,
		rec.Answer,
		rec.Status,
		rec.ModelCalls,
		rec.ToolCalls,
		rec.Duration.Nanoseconds(),
		askedAt,
	)
	if err != nil {
		return fmt.Errorf("history store: add: %w", err)
	}
	return nil
}

// Recent implements [Store].
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	const q = `
		SELECT id, asker_id, asker_name, channel_id, command, question, answer,
		       status, model_calls, tool_calls, duration_ns, asked_at
		FROM   question_records
		ORDER  BY asked_at DESC
		LIMIT  $1`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("history store: recent: %w", err)
	}
	return collectRecords(rows)
}

// Search implements [Store]. The query is passed to plainto_tsquery so no
// special operator syntax is required.
func (s *PostgresStore) Search(ctx context.Context, query string, limit int) ([]Record, error) {
	const q = `
		SELECT id, asker_id, asker_name, channel_id, command, question, answer,
		       status, model_calls, tool_calls, duration_ns, asked_at
		FROM   question_records
		WHERE  to_tsvector('english', question || ' ' || answer)
		       @@ plainto_tsquery('english', $1)
		ORDER  BY asked_at DESC
		LIMIT  $2`

	rows, err := s.pool.Query(ctx, q, query, limit)
	if err != nil {
		return nil, fmt.Errorf("history store: search: %w", err)
	}
	return collectRecords(rows)
}

// Ping implements [Store].
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close implements [Store].
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// collectRecords drains rows into a slice. The slice is non-nil even when
// empty so callers can range without a nil check.
func collectRecords(rows pgx.Rows) ([]Record, error) {
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var (
			rec        Record
			durationNS int64
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.AskerID,
			&rec.AskerName,
			&rec.ChannelID,
			&rec.Command,
			&rec.Question,
			&rec.Answer,
			&rec.Status,
			&rec.ModelCalls,
			&rec.ToolCalls,
			&durationNS,
			&rec.AskedAt,
		); err != nil {
			return nil, fmt.Errorf("history store: scan: %w", err)
		}
		rec.Duration = time.Duration(durationNS)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history store: rows: %w", err)
	}
	return out, nil
}
