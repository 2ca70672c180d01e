// Package retry runs an operation under a fixed attempt budget. Each attempt reports
// one of three outcomes: Success stops with no error, Fail stops with the attempt's
// error, Retry consumes one unit of budget and tries again.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenk/backoff"
)

// Outcome is the verdict of a single attempt.
type Outcome int

const (
	// Success ends the loop without error.
	Success Outcome = iota
	// Retry asks for another attempt if the budget allows.
	Retry
	// Fail ends the loop with the attempt's error.
	Fail
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Retry:
		return "retry"
	case Fail:
		return "fail"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// DefaultAttempts is the budget used when Policy.Attempts is not positive.
const DefaultAttempts = 3

// Policy bounds a retry loop.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// Attempt is one try; attempt counts from 1.
type Attempt func(ctx context.Context, attempt int) (Outcome, error)

// ExhaustedError is returned when every attempt asked for a retry.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempt(s): %v", e.Attempts, e.Last)
}

// Unwrap returns the last attempt's error.
func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Do runs fn until it succeeds, fails, or the budget is spent.
func Do(ctx context.Context, p Policy, fn Attempt) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	// WithMaxRetries treats zero as unlimited, so a single attempt stops outright.
	var b backoff.BackOff = &backoff.StopBackOff{}
	if attempts > 1 {
		b = backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(attempts-1))
	}
	bctx := backoff.WithContext(b, ctx)

	var (
		n       int
		lastErr error
		final   Outcome
	)
	op := func() error {
		if err := ctx.Err(); err != nil {
			final = Fail
			lastErr = err
			return backoff.Permanent(err)
		}
		n++
		outcome, err := fn(ctx, n)
		final = outcome
		switch outcome {
		case Success:
			lastErr = nil
			return nil
		case Fail:
			if err == nil {
				err = fmt.Errorf("attempt %d failed", n)
			}
			lastErr = err
			return backoff.Permanent(err)
		default:
			if err == nil {
				err = fmt.Errorf("attempt %d requested a retry", n)
			}
			lastErr = err
			return err
		}
	}

	err := backoff.Retry(op, bctx)
	switch {
	case final == Success && err == nil:
		return nil
	case final == Fail:
		return lastErr
	case lastErr == nil:
		return err
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return &ExhaustedError{Attempts: n, Last: lastErr}
	}
}
