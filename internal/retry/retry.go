// Package retry runs operations under a bounded attempt budget.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"time"

	"github.com/conn-castle/release-rust/internal/messages"
)

// Policy describes how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of tries, the first one included.
	MaxAttempts int
	// Backoff returns the delay before the given retry (1 for the first retry).
	Backoff func(retry int) time.Duration
	// Retryable classifies errors; nil treats every error as retryable.
	Retryable func(error) bool
	// Sleep waits between attempts; nil waits on a timer and honours ctx.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry observes each failed attempt that will be retried.
	OnRetry func(attempt int, err error)
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// attempt budget is spent. It returns the number of attempts made and the
// last error.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) (int, error) {
	if p.MaxAttempts < 1 {
		return 0, fmt.Errorf(messages.RetryAttemptsInvalidFmt, p.MaxAttempts)
	}
	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = op(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		if attempt == p.MaxAttempts || !p.retryable(err) {
			return attempt, err
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		if sleepErr := p.sleep(ctx, p.delay(attempt)); sleepErr != nil {
			return attempt, sleepErr
		}
	}
	return p.MaxAttempts, err
}

func (p Policy) retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

func (p Policy) delay(retry int) time.Duration {
	if p.Backoff == nil {
		return 0
	}
	return p.Backoff(retry)
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Constant waits d between attempts.
func Constant(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

// Jitter waits base plus a random 1..spread milliseconds between attempts.
func Jitter(base time.Duration, spreadMillis int) func(int) time.Duration {
	return func(int) time.Duration {
		if spreadMillis < 1 {
			return base
		}
		return base + time.Duration(rand.IntN(spreadMillis)+1)*time.Millisecond
	}
}

// Exponential doubles base on every retry up to limit.
func Exponential(base, limit time.Duration) func(int) time.Duration {
	return func(retry int) time.Duration {
		d := base
		for i := 1; i < retry && d < limit; i++ {
			d *= 2
		}
		if d > limit {
			return limit
		}
		return d
	}
}

// Network is the policy for lookups against remote APIs.
func Network() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff:     Exponential(250*time.Millisecond, 2*time.Second),
		Retryable:   IsTransient,
	}
}

// Upload is the policy for release asset uploads.
func Upload() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff:     Jitter(10*time.Millisecond, 200),
	}
}

// IsTransient reports errors worth another attempt: network failures and
// errors that say so through a Temporary method.
func IsTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var temp interface{ Temporary() bool }
	if errors.As(err, &temp) {
		return temp.Temporary()
	}
	return false
}
