// Package parserpool implements the bounded worker pool that runs one
// parse task per source file: a fixed number of workers drain a FIFO
// queue, each task gets at most taskTimeoutMs to run once dequeued, and a
// caller that cannot get a queue slot within queueTimeoutMs gets a
// QueueTimeout error instead of blocking forever (spec §4.3). The
// Start/Stop/WaitGroup lifecycle follows this codebase's scheduler
// (internal/scheduler/scheduler.go in the ancestor tool); concurrency is
// bounded by the fixed worker count.
package parserpool

import (
	"container/list"
	"context"
	"sync"
	"time"

	sdlerrors "github.com/sdlctl/sdlctl/internal/errors"
)

// Task is one unit of work submitted to the pool — typically "parse this
// file" — returning an arbitrary result or error.
type Task func(ctx context.Context) (interface{}, error)

// job pairs a task with the channel its result is delivered on and the
// time it was enqueued, from which timeout errors report elapsed time.
type job struct {
	name      string
	task      Task
	enqueued  time.Time
	resultCh  chan jobResult
}

type jobResult struct {
	value interface{}
	err   error
}

// Config tunes pool concurrency and timeouts.
type Config struct {
	Workers        int
	QueueTimeoutMs int
	TaskTimeoutMs  int
}

// Pool runs Tasks across a fixed worker count, preserving FIFO submission
// order within the queue.
type Pool struct {
	cfg Config

	mu      sync.Mutex
	cond    *sync.Cond
	queue   *list.List // of *job
	closed  bool

	wg sync.WaitGroup
}

// New creates a Pool and starts its workers.
func New(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	p := &Pool{
		cfg:   cfg,
		queue: list.New(),
	}
	p.cond = sync.NewCond(&p.mu)

	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go p.runWorker()
	}

	return p
}

// Submit enqueues a task and blocks until it runs and completes, the
// caller's context is canceled, or the task waits in the queue longer than
// QueueTimeoutMs.
func (p *Pool) Submit(ctx context.Context, name string, task Task) (interface{}, error) {
	j := &job{
		name:     name,
		task:     task,
		enqueued: time.Now(),
		resultCh: make(chan jobResult, 1),
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, sdlerrors.New(sdlerrors.InternalError, "parser pool is closed", nil)
	}
	elem := p.queue.PushBack(j)
	p.mu.Unlock()
	p.cond.Signal()

	var queueCtx context.Context
	var cancel context.CancelFunc
	if p.cfg.QueueTimeoutMs > 0 {
		queueCtx, cancel = context.WithTimeout(ctx, time.Duration(p.cfg.QueueTimeoutMs)*time.Millisecond)
	} else {
		queueCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	select {
	case result := <-j.resultCh:
		return result.value, result.err
	case <-queueCtx.Done():
		if !p.removeIfPending(elem) {
			// A worker already dequeued the task, so the queue timeout no
			// longer applies: wait for its result.
			select {
			case result := <-j.resultCh:
				return result.value, result.err
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		waited := time.Since(j.enqueued).Milliseconds()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, sdlerrors.NewQueueTimeoutError(name, waited)
	}
}

func (p *Pool) removeIfPending(elem *list.Element) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for e := p.queue.Front(); e != nil; e = e.Next() {
		if e == elem {
			p.queue.Remove(e)
			return true
		}
	}
	return false
}

func (p *Pool) runWorker() {
	defer p.wg.Done()

	for {
		j := p.nextJob()
		if j == nil {
			return
		}

		taskCtx := context.Background()
		var cancel context.CancelFunc
		if p.cfg.TaskTimeoutMs > 0 {
			taskCtx, cancel = context.WithTimeout(taskCtx, time.Duration(p.cfg.TaskTimeoutMs)*time.Millisecond)
		} else {
			taskCtx, cancel = context.WithCancel(taskCtx)
		}

		value, err := j.task(taskCtx)
		if taskCtx.Err() == context.DeadlineExceeded {
			elapsed := time.Since(j.enqueued).Milliseconds()
			err = sdlerrors.NewTaskTimeoutError(j.name, elapsed)
		}
		cancel()

		select {
		case j.resultCh <- jobResult{value: value, err: err}:
		default:
			// Submitter already gave up (queue timeout); drop the result.
		}
	}
}

// nextJob blocks until a job is available or the pool is stopped, in which
// case it returns nil.
func (p *Pool) nextJob() *job {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.queue.Len() == 0 && !p.closed {
		p.cond.Wait()
	}

	if p.queue.Len() == 0 {
		return nil
	}

	front := p.queue.Front()
	p.queue.Remove(front)
	return front.Value.(*job)
}

// Drain blocks until no task is waiting in the queue, without stopping the
// pool. It does not wait for tasks a worker has already dequeued to
// finish. Mainly used by tests and by the indexer between its two passes.
func (p *Pool) Drain() {
	for {
		p.mu.Lock()
		empty := p.queue.Len() == 0
		p.mu.Unlock()
		if empty {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

// ClearQueue discards every task still waiting in the queue (not yet
// picked up by a worker), delivering a QueueTimeout result to each
// submitter. In-flight tasks are left to finish.
func (p *Pool) ClearQueue() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	cleared := 0
	for e := p.queue.Front(); e != nil; {
		next := e.Next()
		j := e.Value.(*job)
		select {
		case j.resultCh <- jobResult{err: sdlerrors.NewQueueTimeoutError(j.name, time.Since(j.enqueued).Milliseconds())}:
		default:
		}
		p.queue.Remove(e)
		cleared++
		e = next
	}
	return cleared
}

// Stop closes the pool and waits for all workers to exit. Pending queued
// tasks are discarded first.
func (p *Pool) Stop() {
	p.ClearQueue()

	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()

	p.wg.Wait()
}
