// Package hostexec serializes work onto the analysis host's single execution
// thread. The program model is only touched from inside a queued job.
package hostexec

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// ErrClosed is returned for work submitted after Close.
var ErrClosed = errors.New("host execution queue closed")

type job struct {
	fn   func()
	done chan struct{}
}

// Queue runs submitted jobs one at a time, in submission order, on a single
// goroutine.
type Queue struct {
	jobs   chan job
	logger *log.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewQueue starts the worker. depth bounds the number of pending jobs.
func NewQueue(depth int, logger *log.Logger) *Queue {
	if depth <= 0 {
		depth = 64
	}
	q := &Queue{
		jobs:   make(chan job, depth),
		logger: logger,
	}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *Queue) run() {
	defer q.wg.Done()
	for j := range q.jobs {
		q.exec(j)
	}
}

func (q *Queue) exec(j job) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Printf("[Queue] job panicked: %v", r)
		}
		if j.done != nil {
			close(j.done)
		}
	}()
	j.fn()
}

func (q *Queue) submit(ctx context.Context, j job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs fn on the host thread and waits for it. If ctx ends first Do returns
// ctx.Err(); a job that already started still runs to completion.
func (q *Queue) Do(ctx context.Context, fn func()) error {
	j := job{fn: fn, done: make(chan struct{})}
	if err := q.submit(ctx, j); err != nil {
		return err
	}
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DoErr is Do for functions that fail. A panic in fn surfaces as an error.
func (q *Queue) DoErr(ctx context.Context, fn func() error) error {
	var err error
	qerr := q.Do(ctx, func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("host job panicked: %v", r)
			}
		}()
		err = fn()
	})
	if qerr != nil {
		return qerr
	}
	return err
}

// Go enqueues fn without waiting, for background analysis work.
func (q *Queue) Go(fn func()) error {
	return q.submit(context.Background(), job{fn: fn})
}

// Close stops accepting work, drains pending jobs and waits for the worker.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()
	q.wg.Wait()
}
