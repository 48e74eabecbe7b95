package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() Policy {
	return Policy{MaxAttempts: 3, Base: time.Millisecond, Max: 5 * time.Millisecond, Multiplier: 2}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	sentinel := errors.New("always fails")
	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	p := fastPolicy()
	fatal := errors.New("fatal")
	p.Retryable = func(err error) bool { return !errors.Is(err, fatal) }

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return fatal
	})
	require.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 5, Base: 50 * time.Millisecond, Max: time.Second, Multiplier: 2}

	calls := 0
	errc := make(chan error, 1)
	go func() {
		errc <- p.Do(ctx, func(context.Context) error {
			calls++
			return errors.New("transient")
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancellation")
	}
	assert.Equal(t, 1, calls)
}

func TestNormalizedFillsZeroFields(t *testing.T) {
	p := Policy{}.normalized()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, p.Base)
	assert.Equal(t, 2*time.Second, p.Max)
	assert.Equal(t, 2.0, p.Multiplier)
}

func TestJitterStaysWithinBounds(t *testing.T) {
	d := 100 * time.Millisecond
	for i := 0; i < 50; i++ {
		j := jitter(d)
		assert.GreaterOrEqual(t, j, d/2)
		assert.LessOrEqual(t, j, d)
	}
}
