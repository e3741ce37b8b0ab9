package athena

import (
	"context"
	"time"
)

// Clock abstracts wall-clock reads and suspension so the poller can be
// tested deterministically without real delays.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep suspends for d or until ctx is done, returning ctx.Err() in the
	// latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// realClock implements Clock with the time package.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RealClock returns a Clock backed by the time package.
func RealClock() Clock { return realClock{} }
