package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func isTransient(err error) bool { return errors.Is(err, errTransient) }

func TestOn_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := On(context.Background(), Policy{MaxAttempts: 3}, isTransient, func(_ context.Context, attempt int) error {
		calls++
		assert.Equal(t, 1, attempt)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestOn_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := On(context.Background(), Policy{MaxAttempts: 3}, isTransient, func(_ context.Context, attempt int) error {
		calls++
		require.Equal(t, calls, attempt)
		if calls < 3 {
			return errTransient
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestOn_ExhaustionReturnsLastError(t *testing.T) {
	calls := 0
	err := On(context.Background(), Policy{MaxAttempts: 3}, isTransient, func(context.Context, int) error {
		calls++
		return errTransient
	})
	require.ErrorIs(t, err, errTransient)
	require.Equal(t, 3, calls)
}

func TestOn_NonRetryableFailsImmediately(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0
	err := On(context.Background(), Policy{MaxAttempts: 3}, isTransient, func(context.Context, int) error {
		calls++
		return fatal
	})
	require.ErrorIs(t, err, fatal)
	require.Equal(t, 1, calls)
}

func TestOn_ZeroPolicyRunsOnce(t *testing.T) {
	calls := 0
	err := On(context.Background(), Policy{}, isTransient, func(context.Context, int) error {
		calls++
		return errTransient
	})
	require.ErrorIs(t, err, errTransient)
	require.Equal(t, 1, calls)
}

func TestOn_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- On(ctx, Policy{MaxAttempts: 3, MinBackoff: time.Hour}, isTransient, func(context.Context, int) error {
			calls++
			return errTransient
		})
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("retry did not stop on cancellation")
	}
}

func TestBackoffFor(t *testing.T) {
	p := Policy{MinBackoff: 10 * time.Millisecond}
	assert.Equal(t, 10*time.Millisecond, backoffFor(p, 1))
	assert.Equal(t, 20*time.Millisecond, backoffFor(p, 2))
	assert.Equal(t, 40*time.Millisecond, backoffFor(p, 3))
}
