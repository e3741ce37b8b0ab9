// Package athenaquery provides built-in MCP tools for running Athena queries
// and retrieving their results.
//
// Five tools are exported via [Tools]:
//   - "athena_query"      — submits a SELECT/EXPLAIN statement, returns the
//     query execution id. Mutating and DDL statements are rejected before
//     the backend is contacted.
//   - "athena_status"     — returns the current state and output location of
//     one query execution.
//   - "athena_results"    — polls until the query reaches a terminal state,
//     then returns up to max_rows rows.
//   - "athena_result_csv" — reads the raw result CSV from S3, optionally
//     capped with a byte-range read.
//   - "s3_presign"        — returns a short-lived download URL for an S3
//     object.
//
// All handlers are safe for concurrent use and respect context cancellation
// (the poll loop suspends cooperatively).
package athenaquery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glimt/datascout/internal/athena"
	"github.com/glimt/datascout/internal/mcp/tools"
	"github.com/glimt/datascout/pkg/types"
)

// Backend is the backend slice the query tools need. *athena.Client
// implements it.
type Backend interface {
	Submit(ctx context.Context, sql string) (string, error)
	Status(ctx context.Context, id string) (*athena.JobStatus, error)
	Results(ctx context.Context, id string, maxRows int32) (*athena.ResultSet, error)
	RawOutput(ctx context.Context, id string, maxBytes int64) (*athena.RawOutput, error)
	PresignURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
}

// queryArgs is the JSON-decoded input for "athena_query".
type queryArgs struct {
	SQL string `json:"sql"`
}

// queryResult is the JSON-encoded output of "athena_query".
type queryResult struct {
	QueryExecutionID string `json:"query_execution_id"`
}

// idArgs carries a query execution id. Both spellings are accepted because
// models alternate between them.
type idArgs struct {
	QueryExecutionID      string `json:"query_execution_id"`
	QueryExecutionIDCamel string `json:"queryExecutionId"`
}

// id returns whichever spelling was provided.
func (a idArgs) id() string {
	if a.QueryExecutionID != "" {
		return a.QueryExecutionID
	}
	return a.QueryExecutionIDCamel
}

// statusResult is the JSON-encoded output of "athena_status".
type statusResult struct {
	State          string `json:"state"`
	OutputLocation string `json:"output_location"`
}

// resultsArgs is the JSON-decoded input for "athena_results".
type resultsArgs struct {
	idArgs
	MaxRows  int32 `json:"max_rows"`
	WaitMs   int64 `json:"wait_ms"`
	MaxWaitS int64 `json:"max_wait_s"`
}

// resultCSVArgs is the JSON-decoded input for "athena_result_csv".
type resultCSVArgs struct {
	idArgs
	MaxBytes int64 `json:"max_bytes"`

	// Encoding is accepted for interface compatibility; output is always
	// UTF-8 with invalid sequences replaced.
	Encoding string `json:"encoding"`
}

// presignArgs is the JSON-decoded input for "s3_presign".
type presignArgs struct {
	Bucket   string `json:"bucket"`
	Key      string `json:"key"`
	ExpiresS int64  `json:"expires_s"`
}

// presignResult is the JSON-encoded output of "s3_presign".
type presignResult struct {
	URL            string `json:"url"`
	ExpiresSeconds int64  `json:"expires_seconds"`
}

// Defaults supplies operator-configured fallbacks applied when a tool call
// omits the corresponding argument. Zero fields fall back to the package
// constants in internal/athena.
type Defaults struct {
	PollInterval time.Duration
	MaxWait      time.Duration
	MaxRows      int32
}

// effective fills zero fields with the package constants.
func (d Defaults) effective() Defaults {
	if d.PollInterval <= 0 {
		d.PollInterval = athena.DefaultPollInterval
	}
	if d.MaxWait <= 0 {
		d.MaxWait = athena.DefaultMaxWait
	}
	if d.MaxRows <= 0 {
		d.MaxRows = athena.DefaultMaxRows
	}
	return d
}

// Tools returns the query tool set backed by backend. clock drives the
// result poller's suspension; nil means the real clock. At most one
// Defaults value is honoured.
func Tools(backend Backend, clock athena.Clock, defaults ...Defaults) []tools.Tool {
	poller := &athena.Poller{Backend: backend, Clock: clock}

	var def Defaults
	if len(defaults) > 0 {
		def = defaults[0]
	}
	def = def.effective()

	return []tools.Tool{
		{
			Definition: types.ToolDefinition{
				Name:        "athena_query",
				Description: "Run a SELECT/EXPLAIN statement in Athena; returns the query execution id. Mutating statements are rejected.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"sql": map[string]any{
							"type":        "string",
							"description": "The SQL statement to run. Only SELECT/EXPLAIN are allowed.",
						},
					},
					"required": []string{"sql"},
				},
			},
			Handler: queryHandler(backend),
		},
		{
			Definition: types.ToolDefinition{
				Name:        "athena_status",
				Description: "Return the current state and output location of a query execution.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"query_execution_id": map[string]any{
							"type":        "string",
							"description": "Id returned by athena_query.",
						},
					},
					"required": []string{"query_execution_id"},
				},
			},
			Handler: statusHandler(backend),
		},
		{
			Definition: types.ToolDefinition{
				Name:        "athena_results",
				Description: "Poll a query execution until it finishes, then return up to max_rows rows with column headers.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"query_execution_id": map[string]any{
							"type":        "string",
							"description": "Id returned by athena_query.",
						},
						"max_rows": map[string]any{
							"type":        "integer",
							"description": "Maximum number of rows to return.",
							"default":     def.MaxRows,
						},
						"wait_ms": map[string]any{
							"type":        "integer",
							"description": "Suspension between status checks, in milliseconds.",
							"default":     def.PollInterval.Milliseconds(),
						},
						"max_wait_s": map[string]any{
							"type":        "integer",
							"description": "Wall-clock budget for the whole poll, in seconds.",
							"default":     int64(def.MaxWait.Seconds()),
						},
					},
					"required": []string{"query_execution_id"},
				},
			},
			Handler: resultsHandler(poller, def),
		},
		{
			Definition: types.ToolDefinition{
				Name:        "athena_result_csv",
				Description: "Read the result CSV of a finished query from S3 and return it as text, capped at max_bytes.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"query_execution_id": map[string]any{
							"type":        "string",
							"description": "Id returned by athena_query.",
						},
						"max_bytes": map[string]any{
							"type":        "integer",
							"description": "Maximum number of bytes to read from the result object.",
							"default":     athena.DefaultMaxBytes,
						},
					},
					"required": []string{"query_execution_id"},
				},
			},
			Handler: resultCSVHandler(backend),
		},
		{
			Definition: types.ToolDefinition{
				Name:        "s3_presign",
				Description: "Return a presigned download URL for the result file or any S3 object.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"bucket": map[string]any{
							"type":        "string",
							"description": "S3 bucket name.",
						},
						"key": map[string]any{
							"type":        "string",
							"description": "S3 object key.",
						},
						"expires_s": map[string]any{
							"type":        "integer",
							"description": "URL lifetime in seconds.",
							"default":     athena.DefaultPresignExpiry,
						},
					},
					"required": []string{"bucket", "key"},
				},
			},
			Handler: presignHandler(backend),
		},
	}
}

func queryHandler(backend Backend) func(ctx context.Context, args string) (string, error) {
	return func(ctx context.Context, args string) (string, error) {
		var in queryArgs
		if err := decodeArgs(args, &in); err != nil {
			return "", err
		}

		id, err := backend.Submit(ctx, in.SQL)
		if err != nil {
			return "", err
		}
		return encodeResult(queryResult{QueryExecutionID: id})
	}
}

func statusHandler(backend Backend) func(ctx context.Context, args string) (string, error) {
	return func(ctx context.Context, args string) (string, error) {
		var in idArgs
		if err := decodeArgs(args, &in); err != nil {
			return "", err
		}

		st, err := backend.Status(ctx, in.id())
		if err != nil {
			return "", err
		}
		return encodeResult(statusResult{State: st.State, OutputLocation: st.OutputLocation})
	}
}

func resultsHandler(poller *athena.Poller, def Defaults) func(ctx context.Context, args string) (string, error) {
	return func(ctx context.Context, args string) (string, error) {
		var in resultsArgs
		if err := decodeArgs(args, &in); err != nil {
			return "", err
		}

		interval := time.Duration(in.WaitMs) * time.Millisecond
		if interval <= 0 {
			interval = def.PollInterval
		}
		maxWait := time.Duration(in.MaxWaitS) * time.Second
		if maxWait <= 0 {
			maxWait = def.MaxWait
		}
		maxRows := in.MaxRows
		if maxRows <= 0 {
			maxRows = def.MaxRows
		}

		rs, err := poller.Poll(ctx, in.id(), interval, maxWait, maxRows)
		if err != nil {
			return "", err
		}
		return encodeResult(rs)
	}
}

func resultCSVHandler(backend Backend) func(ctx context.Context, args string) (string, error) {
	return func(ctx context.Context, args string) (string, error) {
		var in resultCSVArgs
		if err := decodeArgs(args, &in); err != nil {
			return "", err
		}

		out, err := backend.RawOutput(ctx, in.id(), in.MaxBytes)
		if err != nil {
			return "", err
		}
		return encodeResult(out)
	}
}

func presignHandler(backend Backend) func(ctx context.Context, args string) (string, error) {
	return func(ctx context.Context, args string) (string, error) {
		var in presignArgs
		if err := decodeArgs(args, &in); err != nil {
			return "", err
		}

		expiry := in.ExpiresS
		if expiry <= 0 {
			expiry = athena.DefaultPresignExpiry
		}

		url, err := backend.PresignURL(ctx, in.Bucket, in.Key, time.Duration(expiry)*time.Second)
		if err != nil {
			return "", err
		}
		return encodeResult(presignResult{URL: url, ExpiresSeconds: expiry})
	}
}

// decodeArgs unmarshals a JSON args string, tolerating an empty string.
func decodeArgs(args string, v any) error {
	if args == "" {
		args = "{}"
	}
	if err := json.Unmarshal([]byte(args), v); err != nil {
		return fmt.Errorf("athenaquery: invalid arguments: %w", err)
	}
	return nil
}

// encodeResult marshals a tool result to its JSON wire form.
func encodeResult(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("athenaquery: encode result: %w", err)
	}
	return string(data), nil
}
