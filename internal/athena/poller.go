package athena

import (
	"context"
	"time"

	athenatypes "github.com/aws/aws-sdk-go-v2/service/athena/types"
)

// Poll timing defaults applied when a tool call omits them.
const (
	// DefaultPollInterval is the suspension between status checks.
	DefaultPollInterval = 400 * time.Millisecond

	// DefaultMaxWait is the wall-clock budget for one polled query.
	DefaultMaxWait = 60 * time.Second
)

// StatusResultser is the backend slice the poller drives: one status check
// plus one bounded result fetch. *Client implements it.
type StatusResultser interface {
	Status(ctx context.Context, id string) (*JobStatus, error)
	Results(ctx context.Context, id string, maxRows int32) (*ResultSet, error)
}

// Poller waits for a query execution to reach a terminal state.
//
// The state machine is Running → Succeeded|Failed|Cancelled, with a derived
// TimedOut imposed by the caller's wall-clock budget. The elapsed-time check
// runs on every iteration independent of the remote state, so a query that
// never reports a terminal state is still bounded.
type Poller struct {
	// Backend performs the status and result calls.
	Backend StatusResultser

	// Clock supplies time reads and suspension. Nil means the real clock.
	Clock Clock
}

// Poll repeatedly checks the state of the query execution with the given id
// until it succeeds, fails, or exceeds maxWait.
//
// On success it fetches and returns up to maxRows rows. A FAILED or
// CANCELLED state yields *RemoteFailureError with the backend's reason; an
// exceeded budget yields *TimeoutError. Between checks the caller suspends
// for interval; nothing runs during that suspension.
func (p *Poller) Poll(ctx context.Context, id string, interval, maxWait time.Duration, maxRows int32) (*ResultSet, error) {
	if id == "" {
		return nil, &ValidationError{Reason: "missing query execution id"}
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	clk := p.Clock
	if clk == nil {
		clk = RealClock()
	}

	start := clk.Now()
	for {
		st, err := p.Backend.Status(ctx, id)
		if err != nil {
			return nil, err
		}

		switch st.State {
		case string(athenatypes.QueryExecutionStateSucceeded):
			return p.Backend.Results(ctx, id, maxRows)
		case string(athenatypes.QueryExecutionStateFailed),
			string(athenatypes.QueryExecutionStateCancelled):
			return nil, &RemoteFailureError{State: st.State, Reason: st.Reason}
		}

		if elapsed := clk.Now().Sub(start); elapsed >= maxWait {
			return nil, &TimeoutError{Elapsed: elapsed}
		}
		if err := clk.Sleep(ctx, interval); err != nil {
			return nil, err
		}
	}
}
