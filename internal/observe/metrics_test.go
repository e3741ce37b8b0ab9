package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumFor returns the int64 counter value at the data point matching the
// given attribute, or -1 when not found.
func sumFor(met *metricdata.Metrics, key, value string) int64 {
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		return -1
	}
	for _, dp := range sum.DataPoints {
		for _, kv := range dp.Attributes.ToSlice() {
			if string(kv.Key) == key && kv.Value.AsString() == value {
				return dp.Value
			}
		}
	}
	return -1
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestHistogramObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	histograms := []struct {
		name string
		h    metric.Float64Histogram
	}{
		{"datascout.model.duration", m.ModelCallDuration},
		{"datascout.tool_execution.duration", m.ToolExecutionDuration},
		{"datascout.query_poll.duration", m.QueryPollDuration},
		{"datascout.question.duration", m.QuestionDuration},
	}

	for _, tc := range histograms {
		tc.h.Record(ctx, 0.123)
		tc.h.Record(ctx, 0.456)
	}

	rm := collect(t, reader)

	for _, tc := range histograms {
		t.Run(tc.name, func(t *testing.T) {
			met := findMetric(rm, tc.name)
			if met == nil {
				t.Fatalf("metric %q not found", tc.name)
			}
			hist, ok := met.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("metric %q is not a histogram", tc.name)
			}
			if len(hist.DataPoints) == 0 {
				t.Fatalf("metric %q has no data points", tc.name)
			}
			if got := hist.DataPoints[0].Count; got != 2 {
				t.Errorf("sample count = %d, want 2", got)
			}
		})
	}
}

func TestRecordModelCall(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordModelCall(ctx, 800*time.Millisecond, nil)
	m.RecordModelCall(ctx, time.Second, nil)
	m.RecordModelCall(ctx, 100*time.Millisecond, errors.New("throttled"))

	rm := collect(t, reader)
	met := findMetric(rm, "datascout.model.calls")
	if met == nil {
		t.Fatal("metric not found")
	}
	if got := sumFor(met, "status", "ok"); got != 2 {
		t.Errorf("ok count = %d, want 2", got)
	}
	if got := sumFor(met, "status", "error"); got != 1 {
		t.Errorf("error count = %d, want 1", got)
	}

	hist := findMetric(rm, "datascout.model.duration")
	if hist == nil {
		t.Fatal("duration metric not found")
	}
	data, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok || len(data.DataPoints) == 0 {
		t.Fatal("no duration samples")
	}
	if got := data.DataPoints[0].Count; got != 3 {
		t.Errorf("duration sample count = %d, want 3", got)
	}
}

func TestRecordToolCall(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordToolCall(ctx, "athena_query", 50*time.Millisecond, false)
	m.RecordToolCall(ctx, "athena_query", 60*time.Millisecond, true)
	m.RecordToolCall(ctx, "glue_list_databases", 10*time.Millisecond, false)

	rm := collect(t, reader)
	met := findMetric(rm, "datascout.tool.calls")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 3 {
		t.Errorf("total tool calls = %d, want 3", total)
	}
	if got := sumFor(met, "status", "error"); got != 1 {
		t.Errorf("error count = %d, want 1", got)
	}
}

func TestRecordQuestion(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordQuestion(ctx, "ask-data", "ok", 12*time.Second)
	m.RecordQuestion(ctx, "ask-data", "ok", 8*time.Second)
	m.RecordQuestion(ctx, "ask-data", "error", time.Second)

	rm := collect(t, reader)
	met := findMetric(rm, "datascout.questions")
	if met == nil {
		t.Fatal("metric not found")
	}
	if got := sumFor(met, "status", "ok"); got != 2 {
		t.Errorf("ok count = %d, want 2", got)
	}
}

func TestRecordQueryPoll(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordQueryPoll(ctx, "succeeded", 3*time.Second)
	m.RecordQueryPoll(ctx, "timeout", 60*time.Second)

	rm := collect(t, reader)
	met := findMetric(rm, "datascout.queries.submitted")
	if met == nil {
		t.Fatal("metric not found")
	}
	if got := sumFor(met, "state", "succeeded"); got != 1 {
		t.Errorf("succeeded count = %d, want 1", got)
	}
	if got := sumFor(met, "state", "timeout"); got != 1 {
		t.Errorf("timeout count = %d, want 1", got)
	}
}

func TestInFlightQuestionsGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.InFlightQuestions.Add(ctx, 1)
	m.InFlightQuestions.Add(ctx, 1)
	m.InFlightQuestions.Add(ctx, -1)

	rm := collect(t, reader)
	met := findMetric(rm, "datascout.in_flight_questions")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}
	if len(sum.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if got := sum.DataPoints[0].Value; got != 1 {
		t.Errorf("gauge value = %d, want 1", got)
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different pointers")
	}
}
