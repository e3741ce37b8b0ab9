package athena

import (
	"fmt"
	"time"
)

// ValidationError reports input rejected before any backend call was made:
// a disallowed SQL statement or a missing required identifier.
type ValidationError struct {
	// Reason describes what was wrong with the input.
	Reason string
}

func (e *ValidationError) Error() string {
	return "athena: validation: " + e.Reason
}

// RemoteFailureError reports a query that reached a terminal failure state
// on the backend (FAILED or CANCELLED), carrying the remote reason verbatim.
type RemoteFailureError struct {
	// State is the terminal state the query reached.
	State string

	// Reason is the backend's state-change reason, possibly empty.
	Reason string
}

func (e *RemoteFailureError) Error() string {
	return fmt.Sprintf("athena: query %s: %s", e.State, e.Reason)
}

// TimeoutError reports that a query did not reach a terminal state within
// the caller's wall-clock budget. It is distinct from RemoteFailureError so
// callers can tell "never finished" from "finished badly".
type TimeoutError struct {
	// Elapsed is the wall-clock time spent polling before giving up.
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("athena: query timed out after %s", e.Elapsed)
}
