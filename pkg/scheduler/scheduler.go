package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TaskFunc is the unit of work the scheduler runs.
type TaskFunc func(ctx context.Context) error

// Phase is the scheduler's lifecycle phase.
type Phase string

const (
	// Idle means the scheduler is constructed or stopped.
	Idle Phase = "idle"
	// Armed means the periodic timer is set and no run is in flight.
	Armed Phase = "armed"
	// Executing means a run is in flight.
	Executing Phase = "executing"
)

// State is a snapshot of the scheduler.
type State struct {
	Phase    Phase
	NextFire time.Time // zero when idle
}

// Result is the outcome of one task execution. Every caller coalesced onto
// the same run receives the same Result.
type Result struct {
	ExecutionID uuid.UUID
	Err         error
}

// run is one in-flight execution. done is closed after err is final.
type run struct {
	id   uuid.UUID
	done chan struct{}
	err  error
}

// Scheduler runs a task periodically and on demand with a single-flight
// guarantee: at most one execution is in flight at any instant. A trigger
// arriving mid-run attaches to that run instead of starting another.
type Scheduler struct {
	task     TaskFunc
	interval time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	armed    bool
	current  *run
	nextFire time.Time
	stopCh   chan struct{}
}

// New creates a scheduler for the task at the given interval.
func New(task TaskFunc, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		task:     task,
		interval: interval,
		logger:   logger,
	}
}

// Start runs the task once immediately, then arms the periodic timer.
// Starting an armed scheduler is a reported no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.armed {
		s.mu.Unlock()
		s.logger.Info("scheduler already armed")
		return
	}
	s.armed = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	s.logger.Info("scheduler armed", zap.Duration("interval", s.interval))
	go s.loop(stopCh)
}

// Stop cancels the timer. An execution in flight finishes, but no further
// ticks fire.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.armed {
		return
	}
	s.armed = false
	s.nextFire = time.Time{}
	close(s.stopCh)
	s.logger.Info("scheduler stopped")
}

// TriggerAndWait requests an immediate execution and waits for the run
// that satisfies it: a fresh one, or the one already in flight. When ctx
// expires the wait is abandoned but the run itself continues.
func (s *Scheduler) TriggerAndWait(ctx context.Context) (Result, error) {
	r, coalesced := s.ensureRun()
	if coalesced {
		s.logger.Debug("trigger coalesced onto in-flight run",
			zap.String("execution_id", r.id.String()))
	}

	select {
	case <-r.done:
		return Result{ExecutionID: r.id, Err: r.err}, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// State returns a snapshot of the scheduler's phase and next fire time.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.current != nil:
		return State{Phase: Executing, NextFire: s.nextFire}
	case s.armed:
		return State{Phase: Armed, NextFire: s.nextFire}
	default:
		return State{Phase: Idle}
	}
}

// loop drives the periodic ticks until stopCh closes.
func (s *Scheduler) loop(stopCh chan struct{}) {
	// Initial run before the first tick.
	r, _ := s.ensureRun()
	<-r.done

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.setNextFire(time.Now().Add(s.interval))

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.setNextFire(time.Now().Add(s.interval))
			// A tick during an in-flight run coalesces with it.
			s.ensureRun()
		}
	}
}

// ensureRun returns the in-flight run, starting one if none exists. The
// second return reports whether the caller was coalesced onto an existing
// run.
func (s *Scheduler) ensureRun() (*run, bool) {
	s.mu.Lock()
	if s.current != nil {
		r := s.current
		s.mu.Unlock()
		return r, true
	}
	r := &run{id: uuid.New(), done: make(chan struct{})}
	s.current = r
	s.mu.Unlock()

	go s.execute(r)
	return r, false
}

// execute runs the task once and publishes its outcome to every waiter.
func (s *Scheduler) execute(r *run) {
	defer func() {
		if p := recover(); p != nil {
			r.err = fmt.Errorf("task panic: %v", p)
		}

		s.mu.Lock()
		s.current = nil
		s.mu.Unlock()
		close(r.done)

		if r.err != nil {
			s.logger.Error("run failed",
				zap.String("execution_id", r.id.String()), zap.Error(r.err))
		} else {
			s.logger.Info("run completed",
				zap.String("execution_id", r.id.String()))
		}
	}()

	s.logger.Info("run started", zap.String("execution_id", r.id.String()))
	r.err = s.task(context.Background())
}

func (s *Scheduler) setNextFire(t time.Time) {
	s.mu.Lock()
	if s.armed {
		s.nextFire = t
	}
	s.mu.Unlock()
}
