package retry

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(context.Context, time.Duration) error { return nil }

func TestDoSucceedsAfterFailures(t *testing.T) {
	var slept []time.Duration
	p := Policy{
		MaxAttempts: 3,
		Backoff:     Constant(5 * time.Millisecond),
		Sleep: func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	}
	calls := 0
	attempts, err := p.Do(context.Background(), func(context.Context, int) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{5 * time.Millisecond, 5 * time.Millisecond}, slept)
}

func TestDoStopsAtBudget(t *testing.T) {
	p := Policy{MaxAttempts: 2, Sleep: noSleep}
	boom := errors.New("boom")
	attempts, err := p.Do(context.Background(), func(context.Context, int) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, attempts)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("permanent")
	p := Policy{
		MaxAttempts: 5,
		Sleep:       noSleep,
		Retryable:   func(err error) bool { return !errors.Is(err, permanent) },
	}
	attempts, err := p.Do(context.Background(), func(context.Context, int) error { return permanent })
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}

func TestDoReportsRetries(t *testing.T) {
	var seen []int
	p := Policy{
		MaxAttempts: 3,
		Sleep:       noSleep,
		OnRetry:     func(attempt int, _ error) { seen = append(seen, attempt) },
	}
	_, _ = p.Do(context.Background(), func(context.Context, int) error { return errors.New("x") })
	assert.Equal(t, []int{1, 2}, seen)
}

func TestDoRejectsEmptyBudget(t *testing.T) {
	_, err := Policy{}.Do(context.Background(), func(context.Context, int) error { return nil })
	require.Error(t, err)
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := Policy{MaxAttempts: 3, Backoff: Constant(time.Hour)}
	attempts, err := p.Do(ctx, func(context.Context, int) error { return errors.New("x") })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestJitterRange(t *testing.T) {
	backoff := Jitter(10*time.Millisecond, 200)
	for i := 0; i < 100; i++ {
		d := backoff(1)
		assert.GreaterOrEqual(t, d, 11*time.Millisecond)
		assert.LessOrEqual(t, d, 210*time.Millisecond)
	}
}

func TestExponential(t *testing.T) {
	backoff := Exponential(100*time.Millisecond, 300*time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, backoff(1))
	assert.Equal(t, 200*time.Millisecond, backoff(2))
	assert.Equal(t, 300*time.Millisecond, backoff(3))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.False(t, IsTransient(errors.New("plain")))
}

func TestUploadPolicy(t *testing.T) {
	p := Upload()
	assert.Equal(t, 3, p.MaxAttempts)
}
