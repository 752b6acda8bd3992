package parserpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	sdlerrors "github.com/sdlctl/sdlctl/internal/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPool_RunsTasksUpToWorkerCount(t *testing.T) {
	p := New(Config{Workers: 2})
	defer p.Stop()

	var running int32
	var maxSeen int32

	task := func(ctx context.Context) (interface{}, error) {
		n := atomic.AddInt32(&running, 1)
		if n > atomic.LoadInt32(&maxSeen) {
			atomic.StoreInt32(&maxSeen, n)
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil, nil
	}

	errCh := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, err := p.Submit(context.Background(), "t", task)
			errCh <- err
		}()
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, <-errCh)
	}

	assert.LessOrEqual(t, atomic.LoadInt32(&maxSeen), int32(2))
}

func TestPool_TaskTimeout(t *testing.T) {
	p := New(Config{Workers: 1, TaskTimeoutMs: 10})
	defer p.Stop()

	_, err := p.Submit(context.Background(), "slow-file", func(ctx context.Context) (interface{}, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	require.Error(t, err)
	var sdlErr *sdlerrors.SdlError
	require.ErrorAs(t, err, &sdlErr)
	assert.Equal(t, sdlerrors.TaskTimeout, sdlErr.Code)
}

func TestPool_QueueTimeout(t *testing.T) {
	p := New(Config{Workers: 1, QueueTimeoutMs: 15})
	defer p.Stop()

	block := make(chan struct{})
	go p.Submit(context.Background(), "blocker", func(ctx context.Context) (interface{}, error) {
		<-block
		return nil, nil
	})
	time.Sleep(5 * time.Millisecond)

	_, err := p.Submit(context.Background(), "waiter", func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	close(block)

	require.Error(t, err)
	var sdlErr *sdlerrors.SdlError
	require.ErrorAs(t, err, &sdlErr)
	assert.Equal(t, sdlerrors.QueueTimeout, sdlErr.Code)
}

func TestPool_ClearQueue(t *testing.T) {
	p := New(Config{Workers: 1})
	defer p.Stop()

	block := make(chan struct{})
	go p.Submit(context.Background(), "blocker", func(ctx context.Context) (interface{}, error) {
		<-block
		return nil, nil
	})
	time.Sleep(5 * time.Millisecond)

	resultCh := make(chan error, 1)
	go func() {
		_, err := p.Submit(context.Background(), "queued", func(ctx context.Context) (interface{}, error) {
			return nil, nil
		})
		resultCh <- err
	}()
	time.Sleep(5 * time.Millisecond)

	cleared := p.ClearQueue()
	assert.Equal(t, 1, cleared)

	err := <-resultCh
	require.Error(t, err)
	close(block)
}

func TestPool_Drain(t *testing.T) {
	p := New(Config{Workers: 2})
	defer p.Stop()

	for i := 0; i < 3; i++ {
		go p.Submit(context.Background(), "t", func(ctx context.Context) (interface{}, error) {
			time.Sleep(10 * time.Millisecond)
			return nil, nil
		})
	}

	p.Drain()
}
