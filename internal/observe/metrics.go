// Package observe provides application-wide observability primitives for
// Datascout: OpenTelemetry metrics, distributed tracing, and HTTP middleware
// that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Datascout metrics.
const meterName = "github.com/glimt/datascout"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// ModelCallDuration tracks LLM completion latency per orchestration step.
	ModelCallDuration metric.Float64Histogram

	// ToolExecutionDuration tracks tool execution latency.
	ToolExecutionDuration metric.Float64Histogram

	// QueryPollDuration tracks end-to-end Athena query wait time, from
	// submission until the poller observed a terminal state.
	QueryPollDuration metric.Float64Histogram

	// QuestionDuration tracks end-to-end question handling latency, from
	// command receipt until the final answer was sent.
	QuestionDuration metric.Float64Histogram

	// --- Counters ---

	// ModelCalls counts model completions. Use with attribute:
	//   attribute.String("status", ...)
	ModelCalls metric.Int64Counter

	// ToolCalls counts tool invocations. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	ToolCalls metric.Int64Counter

	// Questions counts answered questions. Use with attributes:
	//   attribute.String("command", ...), attribute.String("status", ...)
	Questions metric.Int64Counter

	// QueriesSubmitted counts Athena query submissions by terminal state.
	QueriesSubmitted metric.Int64Counter

	// --- Gauges ---

	// InFlightQuestions tracks the number of questions currently being
	// orchestrated.
	InFlightQuestions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Tool calls
// complete in milliseconds while a cold Athena query can take a minute, so
// the range is wide.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ModelCallDuration, err = m.Float64Histogram("datascout.model.duration",
		metric.WithDescription("Latency of a single LLM completion."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ToolExecutionDuration, err = m.Float64Histogram("datascout.tool_execution.duration",
		metric.WithDescription("Latency of tool execution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.QueryPollDuration, err = m.Float64Histogram("datascout.query_poll.duration",
		metric.WithDescription("Wait time from query submission to a terminal state."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.QuestionDuration, err = m.Float64Histogram("datascout.question.duration",
		metric.WithDescription("End-to-end question handling latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ModelCalls, err = m.Int64Counter("datascout.model.calls",
		metric.WithDescription("Total model completions by status."),
	); err != nil {
		return nil, err
	}
	if met.ToolCalls, err = m.Int64Counter("datascout.tool.calls",
		metric.WithDescription("Total tool invocations by tool name and status."),
	); err != nil {
		return nil, err
	}
	if met.Questions, err = m.Int64Counter("datascout.questions",
		metric.WithDescription("Total answered questions by command and status."),
	); err != nil {
		return nil, err
	}
	if met.QueriesSubmitted, err = m.Int64Counter("datascout.queries.submitted",
		metric.WithDescription("Total Athena query submissions by terminal state."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.InFlightQuestions, err = m.Int64UpDownCounter("datascout.in_flight_questions",
		metric.WithDescription("Number of questions currently being orchestrated."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("datascout.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordModelCall records one model completion. Implements part of the
// orchestrator's Recorder contract.
func (m *Metrics) RecordModelCall(ctx context.Context, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ModelCallDuration.Record(ctx, d.Seconds())
	m.ModelCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordToolCall records one dispatched tool call. Implements part of the
// orchestrator's Recorder contract.
func (m *Metrics) RecordToolCall(ctx context.Context, tool string, d time.Duration, isError bool) {
	status := "ok"
	if isError {
		status = "error"
	}
	m.ToolExecutionDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("tool", tool)),
	)
	m.ToolCalls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("status", status),
		),
	)
}

// RecordQuestion records one completed question with its end-to-end latency.
func (m *Metrics) RecordQuestion(ctx context.Context, command, status string, d time.Duration) {
	m.QuestionDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("command", command)),
	)
	m.Questions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("command", command),
			attribute.String("status", status),
		),
	)
}

// RecordQueryPoll records one completed query poll with the terminal state
// the poller observed (succeeded, failed, cancelled, timeout).
func (m *Metrics) RecordQueryPoll(ctx context.Context, state string, d time.Duration) {
	m.QueryPollDuration.Record(ctx, d.Seconds())
	m.QueriesSubmitted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("state", state)),
	)
}
