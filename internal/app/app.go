// Package app wires the Datascout subsystems into the question-answering
// flow behind the /ask-data command. It owns per-question lifecycle:
// building the system prompt, running the orchestration loop, and recording
// the outcome in metrics and history.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glimt/datascout/internal/config"
	"github.com/glimt/datascout/internal/discord/commands"
	"github.com/glimt/datascout/internal/history"
	"github.com/glimt/datascout/internal/mcp"
	"github.com/glimt/datascout/internal/observe"
	"github.com/glimt/datascout/internal/orchestrator"
	"github.com/glimt/datascout/pkg/provider/llm"
	"github.com/glimt/datascout/pkg/types"
)

// askCommandName labels metrics and history records for /ask-data.
const askCommandName = "ask-data"

// App answers data questions. It implements [commands.Asker].
//
// Each question runs an isolated conversation: no state is carried from one
// question to the next. The ask tuning knobs can be swapped at runtime via
// [App.ApplyAsk] for config hot reload.
type App struct {
	provider llm.Provider
	host     mcp.Host
	store    history.Store
	metrics  *observe.Metrics
	log      *slog.Logger

	mu  sync.RWMutex
	ask config.AskConfig
	loc *time.Location
}

var _ commands.Asker = (*App)(nil)

// Option configures an App.
type Option func(*App)

// WithMetrics attaches a metrics recorder.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.log = l }
}

// New creates an App. The timezone in ask.Timezone is resolved once here;
// an empty timezone means UTC.
func New(provider llm.Provider, host mcp.Host, store history.Store, ask config.AskConfig, opts ...Option) (*App, error) {
	loc := time.UTC
	if ask.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(ask.Timezone)
		if err != nil {
			return nil, fmt.Errorf("app: load timezone %q: %w", ask.Timezone, err)
		}
	}

	a := &App{
		provider: provider,
		host:     host,
		store:    store,
		ask:      ask,
		loc:      loc,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	if a.store == nil {
		a.store = history.Nop{}
	}
	return a, nil
}

// ApplyAsk swaps the ask tuning knobs at runtime. The timezone is re-resolved;
// an invalid timezone keeps the old location and logs a warning.
func (a *App) ApplyAsk(ask config.AskConfig) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ask.Timezone != a.ask.Timezone {
		loc, err := time.LoadLocation(ask.Timezone)
		switch {
		case ask.Timezone == "":
			a.loc = time.UTC
		case err != nil:
			a.log.Warn("keeping old timezone, new one is invalid", "timezone", ask.Timezone, "err", err)
		default:
			a.loc = loc
		}
	}
	a.ask = ask
	a.log.Info("ask tuning updated", "max_iterations", ask.MaxIterations, "timezone", ask.Timezone)
}

// askSettings returns a consistent snapshot of the tuning knobs.
func (a *App) askSettings() (config.AskConfig, *time.Location) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ask, a.loc
}

// Ask answers one data question end to end: a fresh conversation is run
// through the model/tool loop and the outcome is recorded in metrics and
// the history store. The returned answer is ready to post to the channel.
func (a *App) Ask(ctx context.Context, req commands.AskRequest) (string, error) {
	ask, loc := a.askSettings()
	start := time.Now()

	if a.metrics != nil {
		a.metrics.InFlightQuestions.Add(ctx, 1)
		defer a.metrics.InFlightQuestions.Add(ctx, -1)
	}

	a.log.Info("answering question", "asker", req.AskerID, "channel", req.ChannelID)

	rec := &countingRecorder{inner: a.recorder()}
	orch := orchestrator.New(a.provider, a.host,
		orchestrator.WithRecorder(rec),
		orchestrator.WithLogger(a.log),
	)

	conv := []types.Message{types.UserText(req.Question)}
	answer, err := orch.Run(ctx, conv, buildSystemPrompt(start, loc), ask.MaxIterations)

	elapsed := time.Since(start)
	status := "ok"
	if err != nil {
		status = "error"
	}
	if a.metrics != nil {
		a.metrics.RecordQuestion(ctx, askCommandName, status, elapsed)
	}
	a.record(ctx, req, answer, status, rec, elapsed, start)

	if err != nil {
		return "", fmt.Errorf("app: answer question: %w", err)
	}
	a.log.Info("question answered",
		"asker", req.AskerID,
		"model_calls", rec.modelCalls.Load(),
		"tool_calls", rec.toolCalls.Load(),
		"duration_ms", elapsed.Milliseconds(),
	)
	return answer, nil
}

// record writes the history entry. History failures never fail the question.
func (a *App) record(ctx context.Context, req commands.AskRequest, answer, status string, rec *countingRecorder, elapsed time.Duration, askedAt time.Time) {
	err := a.store.Add(ctx, history.Record{
		AskerID:    req.AskerID,
		AskerName:  req.AskerName,
		ChannelID:  req.ChannelID,
		Command:    askCommandName,
		Question:   req.Question,
		Answer:     answer,
		Status:     status,
		ModelCalls: int(rec.modelCalls.Load()),
		ToolCalls:  int(rec.toolCalls.Load()),
		Duration:   elapsed,
		AskedAt:    askedAt,
	})
	if err != nil {
		a.log.Warn("failed to record question history", "err", err)
	}
}

// recorder returns the metrics as an orchestrator.Recorder, or nil.
func (a *App) recorder() orchestrator.Recorder {
	if a.metrics == nil {
		return nil
	}
	return a.metrics
}

// countingRecorder counts model and tool calls for one question while
// forwarding measurements to the shared metrics recorder.
type countingRecorder struct {
	inner      orchestrator.Recorder
	modelCalls atomic.Int64
	toolCalls  atomic.Int64
}

func (r *countingRecorder) RecordModelCall(ctx context.Context, d time.Duration, err error) {
	r.modelCalls.Add(1)
	if r.inner != nil {
		r.inner.RecordModelCall(ctx, d, err)
	}
}

func (r *countingRecorder) RecordToolCall(ctx context.Context, name string, d time.Duration, isError bool) {
	r.toolCalls.Add(1)
	if r.inner != nil {
		r.inner.RecordToolCall(ctx, name, d, isError)
	}
}
