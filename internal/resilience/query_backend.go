package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/glimt/datascout/internal/athena"
	"github.com/glimt/datascout/internal/mcp/tools/athenaquery"
)

// QueryBackend wraps an Athena query backend with a shared circuit breaker.
// When the backend trips, tool calls fail fast with [ErrCircuitOpen]; the
// failure reaches the model as ordinary tool-result error content, so the
// orchestration loop keeps running.
//
// Validation failures (rejected SQL, missing ids) do not count against the
// breaker: only real backend failures should trip it.
type QueryBackend struct {
	inner   athenaquery.Backend
	breaker *CircuitBreaker
}

var _ athenaquery.Backend = (*QueryBackend)(nil)

// NewQueryBackend wraps inner with a circuit breaker using cfg. An empty
// cfg.Name defaults to "athena".
func NewQueryBackend(inner athenaquery.Backend, cfg CircuitBreakerConfig) *QueryBackend {
	if cfg.Name == "" {
		cfg.Name = "athena"
	}
	return &QueryBackend{
		inner:   inner,
		breaker: NewCircuitBreaker(cfg),
	}
}

// State returns the breaker's current state.
func (b *QueryBackend) State() State {
	return b.breaker.State()
}

// guard runs fn through the breaker, keeping validation errors out of the
// failure accounting.
func (b *QueryBackend) guard(fn func() error) error {
	var verr error
	err := b.breaker.Execute(func() error {
		if err := fn(); err != nil {
			var v *athena.ValidationError
			if errors.As(err, &v) {
				verr = err
				return nil
			}
			return err
		}
		return nil
	})
	if verr != nil {
		return verr
	}
	return err
}

func (b *QueryBackend) Submit(ctx context.Context, sql string) (string, error) {
	var id string
	err := b.guard(func() error {
		var err error
		id, err = b.inner.Submit(ctx, sql)
		return err
	})
	return id, err
}

func (b *QueryBackend) Status(ctx context.Context, id string) (*athena.JobStatus, error) {
	var st *athena.JobStatus
	err := b.guard(func() error {
		var err error
		st, err = b.inner.Status(ctx, id)
		return err
	})
	return st, err
}

func (b *QueryBackend) Results(ctx context.Context, id string, maxRows int32) (*athena.ResultSet, error) {
	var rs *athena.ResultSet
	err := b.guard(func() error {
		var err error
		rs, err = b.inner.Results(ctx, id, maxRows)
		return err
	})
	return rs, err
}

func (b *QueryBackend) RawOutput(ctx context.Context, id string, maxBytes int64) (*athena.RawOutput, error) {
	var out *athena.RawOutput
	err := b.guard(func() error {
		var err error
		out, err = b.inner.RawOutput(ctx, id, maxBytes)
		return err
	})
	return out, err
}

func (b *QueryBackend) PresignURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	var url string
	err := b.guard(func() error {
		var err error
		url, err = b.inner.PresignURL(ctx, bucket, key, expiry)
		return err
	})
	return url, err
}
