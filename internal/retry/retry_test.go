package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Rrens/social-content-generator/internal/retry"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Delay(t *testing.T) {
	p := retry.DefaultPolicy
	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 4*time.Second, p.Delay(2))
	assert.Equal(t, 8*time.Second, p.Delay(3))
}

func TestDo_StopsOnTerminal(t *testing.T) {
	calls := 0
	attempts, err := retry.Do(context.Background(), clockwork.NewFakeClock(), retry.DefaultPolicy,
		func(ctx context.Context, attempt int) error {
			calls++
			return retry.Terminal(errors.New("quota exhausted"))
		})

	require.Error(t, err)
	assert.True(t, retry.IsTerminal(err))
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesWithBackoff(t *testing.T) {
	clock := clockwork.NewFakeClock()
	start := clock.Now()

	var seen []time.Duration
	done := make(chan struct{})
	var attempts int
	var err error

	go func() {
		defer close(done)
		attempts, err = retry.Do(context.Background(), clock, retry.DefaultPolicy,
			func(ctx context.Context, attempt int) error {
				seen = append(seen, clock.Since(start))
				return errors.New("bad gateway")
			})
	}()

	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	clock.Advance(2 * time.Second)
	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	clock.Advance(4 * time.Second)
	<-done

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{0, 2 * time.Second, 6 * time.Second}, seen)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	var attempts int
	var err error
	go func() {
		defer close(done)
		attempts, err = retry.Do(ctx, clock, retry.DefaultPolicy, func(ctx context.Context, attempt int) error {
			return errors.New("timeout")
		})
	}()

	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	cancel()
	<-done

	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_SucceedsAfterTransient(t *testing.T) {
	clock := clockwork.NewFakeClock()
	done := make(chan struct{})
	var attempts int
	var err error
	go func() {
		defer close(done)
		attempts, err = retry.Do(context.Background(), clock, retry.DefaultPolicy, func(ctx context.Context, attempt int) error {
			if attempt == 1 {
				return errors.New("503")
			}
			return nil
		})
	}()

	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	clock.Advance(2 * time.Second)
	<-done

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}
