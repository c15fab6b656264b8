package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_WaitsForDelay(t *testing.T) {
	s := New(2, 0)
	defer s.Shutdown(context.Background())

	start := time.Now()
	var ranAt time.Time
	h, err := s.Submit(context.Background(), 50*time.Millisecond, func() {
		ranAt = time.Now()
	})
	require.NoError(t, err)

	<-h.Done()
	assert.True(t, h.Ran())
	assert.GreaterOrEqual(t, ranAt.Sub(start), 50*time.Millisecond)
}

func TestSubmit_ZeroDelayRunsImmediately(t *testing.T) {
	s := New(1, 0)
	defer s.Shutdown(context.Background())

	h, err := s.Submit(context.Background(), 0, func() {})
	require.NoError(t, err)

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}
	assert.True(t, h.Ran())
}

func TestSubmit_FullQueueBlocksInsteadOfDropping(t *testing.T) {
	s := New(1, 1)
	defer s.Shutdown(context.Background())

	release := make(chan struct{})
	first, err := s.Submit(context.Background(), 0, func() { <-release })
	require.NoError(t, err)

	// Wait until the worker holds the first task so the queue slot is free.
	require.Eventually(t, func() bool { return s.Stats().InFlight == 1 }, time.Second, 5*time.Millisecond)

	second, err := s.Submit(context.Background(), 0, func() {})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = s.Submit(ctx, 0, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var thirdRan atomic.Bool
	done := make(chan Handle, 1)
	go func() {
		h, err := s.Submit(context.Background(), 0, func() { thirdRan.Store(true) })
		if err == nil {
			done <- h
		}
	}()

	close(release)
	<-first.Done()
	<-second.Done()

	select {
	case h := <-done:
		<-h.Done()
	case <-time.After(2 * time.Second):
		t.Fatal("blocked submission never completed")
	}
	assert.True(t, thirdRan.Load())
}

func TestScheduler_BoundsConcurrency(t *testing.T) {
	const workers = 3
	s := New(workers, 0)
	defer s.Shutdown(context.Background())

	var running, peak atomic.Int64
	var handles []Handle
	for i := 0; i < 12; i++ {
		h, err := s.Submit(context.Background(), time.Millisecond, func() {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
		})
		require.NoError(t, err)
		handles = append(handles, h)
	}
	for _, h := range handles {
		<-h.Done()
	}

	assert.LessOrEqual(t, peak.Load(), int64(workers))
	assert.Equal(t, int64(12), s.Stats().Completed)
}

func TestShutdown_DrainsPendingWork(t *testing.T) {
	s := New(2, 0)

	var ran atomic.Int64
	for i := 0; i < 6; i++ {
		_, err := s.Submit(context.Background(), 20*time.Millisecond, func() { ran.Add(1) })
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.Equal(t, int64(6), ran.Load())

	_, err := s.Submit(context.Background(), 0, func() {})
	assert.ErrorIs(t, err, ErrSchedulerClosed)

	// A second shutdown is a no-op.
	assert.NoError(t, s.Shutdown(context.Background()))
}

func TestShutdown_TimeoutAbandonsSleepingTasks(t *testing.T) {
	s := New(1, 0)

	h, err := s.Submit(context.Background(), time.Hour, func() {
		t.Error("abandoned task must not run")
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Shutdown(ctx), context.DeadlineExceeded)

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("abandoned task was never released")
	}
	assert.False(t, h.Ran())
}

func TestShutdown_ReleasesBlockedSubmitters(t *testing.T) {
	s := New(1, 1)

	_, err := s.Submit(context.Background(), time.Hour, func() {})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.Stats().InFlight == 1 }, time.Second, 5*time.Millisecond)
	queued, err := s.Submit(context.Background(), 0, func() {})
	require.NoError(t, err)

	type result struct {
		h   Handle
		err error
	}
	results := make(chan result, 3)
	for i := 0; i < 3; i++ {
		go func() {
			h, err := s.Submit(context.Background(), 0, func() {})
			results <- result{h, err}
		}()
	}
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Shutdown(ctx), context.DeadlineExceeded)

	<-queued.Done()
	assert.False(t, queued.Ran())
	for i := 0; i < 3; i++ {
		select {
		case r := <-results:
			if r.err != nil {
				assert.ErrorIs(t, r.err, ErrSchedulerClosed)
				continue
			}
			select {
			case <-r.h.Done():
				assert.False(t, r.h.Ran())
			case <-time.After(time.Second):
				t.Fatal("task submitted during shutdown was never released")
			}
		case <-time.After(time.Second):
			t.Fatal("submitter still blocked after shutdown")
		}
	}
}

func TestScheduler_SurvivesPanics(t *testing.T) {
	s := New(1, 0)
	defer s.Shutdown(context.Background())

	h, err := s.Submit(context.Background(), 0, func() { panic("boom") })
	require.NoError(t, err)
	<-h.Done()

	var wg sync.WaitGroup
	wg.Add(1)
	_, err = s.Submit(context.Background(), 0, wg.Done)
	require.NoError(t, err)
	wg.Wait()
}

func TestNew_Defaults(t *testing.T) {
	s := New(0, 0)
	defer s.Shutdown(context.Background())

	stats := s.Stats()
	assert.Equal(t, DefaultWorkers, stats.Workers)
	assert.Equal(t, DefaultWorkers*8, stats.QueueCap)
}
