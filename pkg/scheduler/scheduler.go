// Package scheduler runs delayed work on a fixed pool of workers.
//
// Delayed mock responses are handed to the scheduler so that artificial
// latency occupies a pool worker instead of stretching arbitrary numbers of
// goroutines. A full queue makes Submit wait; work is never dropped.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pretender-dev/pretender/pkg/logging"
)

// DefaultWorkers is the pool size used when none is configured.
const DefaultWorkers = 10

// ErrSchedulerClosed is returned by Submit once Shutdown has begun.
var ErrSchedulerClosed = errors.New("scheduler closed")

type task struct {
	delay time.Duration
	fn    func()
	done  chan struct{}
	ran   atomic.Bool
}

// Handle tracks one submitted task.
type Handle struct {
	t *task
}

// Done is closed when the task has finished or was abandoned by a forced
// shutdown.
func (h Handle) Done() <-chan struct{} {
	return h.t.done
}

// Ran reports whether the task function ran. Only meaningful after Done.
func (h Handle) Ran() bool {
	return h.t.ran.Load()
}

// Scheduler is a bounded worker pool that sleeps for each task's delay
// before running it.
type Scheduler struct {
	workers  int
	queueCap int
	queue    chan *task
	quit     chan struct{}
	log      *slog.Logger

	mu      sync.RWMutex
	closed  bool
	pending sync.WaitGroup
	exited  sync.WaitGroup

	submitted atomic.Int64
	completed atomic.Int64
	inFlight  atomic.Int64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Scheduler) {
		if log != nil {
			s.log = log
		}
	}
}

// New starts a scheduler with the given number of workers. queueCap bounds
// how many tasks may wait for a worker; zero means workers*8.
func New(workers, queueCap int, opts ...Option) *Scheduler {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueCap <= 0 {
		queueCap = workers * 8
	}

	s := &Scheduler{
		workers:  workers,
		queueCap: queueCap,
		queue:    make(chan *task, queueCap),
		quit:     make(chan struct{}),
		log:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.exited.Add(workers)
	for i := 0; i < workers; i++ {
		go s.worker()
	}
	return s
}

// Submit queues fn to run after delay. If the queue is full it waits until
// there is room, ctx is done or shutdown stops the workers.
func (s *Scheduler) Submit(ctx context.Context, delay time.Duration, fn func()) (Handle, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return Handle{}, ErrSchedulerClosed
	}
	s.pending.Add(1)
	s.mu.RUnlock()

	t := &task{delay: delay, fn: fn, done: make(chan struct{})}
	select {
	case s.queue <- t:
		s.submitted.Add(1)
		return Handle{t: t}, nil
	case <-ctx.Done():
		s.pending.Done()
		return Handle{}, ctx.Err()
	case <-s.quit:
		s.pending.Done()
		return Handle{}, ErrSchedulerClosed
	}
}

func (s *Scheduler) worker() {
	defer s.exited.Done()
	for {
		select {
		case t := <-s.queue:
			s.run(t)
		case <-s.quit:
			return
		}
	}
}

func (s *Scheduler) run(t *task) {
	s.inFlight.Add(1)
	defer func() {
		s.inFlight.Add(-1)
		close(t.done)
		s.pending.Done()
	}()

	// Tasks picked up after a forced shutdown began are abandoned.
	select {
	case <-s.quit:
		return
	default:
	}

	if t.delay > 0 {
		timer := time.NewTimer(t.delay)
		select {
		case <-timer.C:
		case <-s.quit:
			timer.Stop()
			return
		}
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("scheduled task panicked", "panic", fmt.Sprint(r))
		}
	}()
	t.ran.Store(true)
	t.fn()
	s.completed.Add(1)
}

// Shutdown stops accepting work and waits for queued and running tasks to
// finish. If ctx ends first, sleeping tasks are abandoned and ctx's error
// is returned.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(drained)
	}()

	var err error
	select {
	case <-drained:
	case <-ctx.Done():
		err = ctx.Err()
		s.log.Warn("scheduler shutdown timed out, abandoning delayed tasks", "in_flight", s.inFlight.Load(), "queued", len(s.queue))
	}

	close(s.quit)
	s.exited.Wait()
	s.abandonQueued(drained)
	return err
}

// abandonQueued releases tasks that never reached a worker until nothing is
// pending. A submitter that was already blocked on a full queue may still
// get its task in after the workers exit; it is released here too.
func (s *Scheduler) abandonQueued(drained <-chan struct{}) {
	for {
		select {
		case t := <-s.queue:
			close(t.done)
			s.pending.Done()
		case <-drained:
			return
		}
	}
}

// Stats is a point-in-time view of the scheduler.
type Stats struct {
	Workers   int
	QueueCap  int
	Queued    int
	InFlight  int64
	Submitted int64
	Completed int64
}

// Stats returns current counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Workers:   s.workers,
		QueueCap:  s.queueCap,
		Queued:    len(s.queue),
		InFlight:  s.inFlight.Load(),
		Submitted: s.submitted.Load(),
		Completed: s.completed.Load(),
	}
}
