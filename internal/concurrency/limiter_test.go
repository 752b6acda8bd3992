package concurrency

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLimiter_AllowsUpToMaxConcurrency(t *testing.T) {
	limiter := NewLimiter("test", 2, time.Second)

	require.NoError(t, limiter.Acquire(context.Background()))
	require.NoError(t, limiter.Acquire(context.Background()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- limiter.Acquire(context.Background())
	}()

	select {
	case <-errCh:
		t.Fatal("third Acquire should have blocked")
	case <-time.After(50 * time.Millisecond):
	}

	limiter.Release()
	require.NoError(t, <-errCh)

	limiter.Release()
	limiter.Release()
}

func TestLimiter_QueueTimeout(t *testing.T) {
	limiter := NewLimiter("test", 1, 20*time.Millisecond)
	require.NoError(t, limiter.Acquire(context.Background()))
	defer limiter.Release()

	err := limiter.Acquire(context.Background())
	require.Error(t, err)
	var timeoutErr *ErrQueueTimeout
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "test", timeoutErr.Limiter)
}

func TestLimiter_ContextCancellation(t *testing.T) {
	limiter := NewLimiter("test", 1, time.Second)
	require.NoError(t, limiter.Acquire(context.Background()))
	defer limiter.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := limiter.Acquire(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLimiter_Do(t *testing.T) {
	limiter := NewLimiter("test", 1, time.Second)
	var ran atomic.Bool

	err := limiter.Do(context.Background(), func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ran.Load())
}
