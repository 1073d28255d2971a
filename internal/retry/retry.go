// Package retry runs remote calls under a bounded exponential backoff policy.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
)

// Policy bounds a retry loop
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultPolicy makes three attempts total, waiting 2s then 4s
var DefaultPolicy = Policy{MaxAttempts: 3, BaseDelay: time.Second}

// Delay returns the wait before attempt n+1, i.e. 2^n * BaseDelay
func (p Policy) Delay(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	return p.BaseDelay * time.Duration(int64(1)<<uint(n))
}

type terminalError struct {
	err error
}

func (e *terminalError) Error() string { return e.err.Error() }
func (e *terminalError) Unwrap() error { return e.err }

// Terminal marks err as not worth retrying
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &terminalError{err: err}
}

// IsTerminal reports whether err was marked with Terminal
func IsTerminal(err error) bool {
	var t *terminalError
	return errors.As(err, &t)
}

// Do calls fn until it succeeds, returns a terminal error, the attempt budget runs out or
// ctx is done. It returns the number of attempts made and the last error.
func Do(ctx context.Context, clock clockwork.Clock, p Policy, fn func(ctx context.Context, attempt int) error) (int, error) {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return attempt, nil
		}
		if IsTerminal(lastErr) || attempt == p.MaxAttempts {
			return attempt, lastErr
		}

		select {
		case <-clock.After(p.Delay(attempt)):
		case <-ctx.Done():
			return attempt, errors.Join(lastErr, ctx.Err())
		}
	}
	return p.MaxAttempts, lastErr
}
