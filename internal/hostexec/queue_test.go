package hostexec

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	q := NewQueue(8, log.New(io.Discard, "", 0))
	t.Cleanup(q.Close)
	return q
}

func TestDoRunsSerially(t *testing.T) {
	q := newTestQueue(t)

	var (
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := q.Do(context.Background(), func() {
				// only the queue goroutine touches these
				active++
				if active > maxSeen {
					maxSeen = active
				}
				time.Sleep(time.Millisecond)
				active--
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestDoPreservesOrder(t *testing.T) {
	q := newTestQueue(t)
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		require.NoError(t, q.Go(func() { got = append(got, i) }))
	}
	require.NoError(t, q.Do(context.Background(), func() {}))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestDoStopsWaitingOnCancel(t *testing.T) {
	q := newTestQueue(t)
	release := make(chan struct{})
	finished := make(chan struct{})
	require.NoError(t, q.Go(func() { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Do(ctx, func() { close(finished) })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// the abandoned job still executes once the host thread is free
	close(release)
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("abandoned job never ran")
	}
}

func TestDoErr(t *testing.T) {
	q := newTestQueue(t)
	boom := errors.New("boom")
	assert.ErrorIs(t, q.DoErr(context.Background(), func() error { return boom }), boom)

	err := q.DoErr(context.Background(), func() error { panic("bad model state") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad model state")

	// the worker survived the panic
	assert.NoError(t, q.Do(context.Background(), func() {}))
}

func TestClosedQueueRejectsWork(t *testing.T) {
	q := NewQueue(1, log.New(io.Discard, "", 0))
	q.Close()
	q.Close()
	assert.ErrorIs(t, q.Do(context.Background(), func() {}), ErrClosed)
	assert.ErrorIs(t, q.Go(func() {}), ErrClosed)
}
