package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/notifykit/notifykit/pkg/logger"
)

// dispatchRunner is the single-send path the scheduler fires into.
// *Dispatcher satisfies it.
type dispatchRunner interface {
	Dispatch(ctx context.Context, id string) error
}

// Scheduler converts "deliver later" into a cancellable one-shot trigger.
// It keeps a single timer slot per notification id: scheduling the same id
// again cancels the prior timer before arming the new one, so duplicate or
// overlapping timers cannot exist.
type Scheduler struct {
	dispatcher dispatchRunner
	logger     *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

// NewScheduler creates a scheduler firing into the given dispatcher.
func NewScheduler(dispatcher dispatchRunner, opts ...SchedulerOption) (*Scheduler, error) {
	if dispatcher == nil {
		return nil, ErrDispatcherNil
	}

	options := &schedulerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	return &Scheduler{
		dispatcher: dispatcher,
		logger:     options.logger,
		timers:     make(map[string]*time.Timer),
	}, nil
}

// Schedule arms a one-shot delivery trigger for the notification. A fireAt at
// or before now delivers synchronously instead of arming a zero-delay timer:
// the caller observes no delay window and no timer exists for a cancellation
// to race against. Only one active schedule may exist per id; a second call
// for the same id cancels the prior timer before arming.
func (s *Scheduler) Schedule(ctx context.Context, id string, fireAt time.Time) error {
	delay := time.Until(fireAt)
	if delay <= 0 {
		return s.dispatcher.Dispatch(ctx, id)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSchedulerClosed
	}
	if t, ok := s.timers[id]; ok {
		t.Stop()
	}
	s.timers[id] = time.AfterFunc(delay, func() { s.fire(id) })
	s.mu.Unlock()

	s.logger.LogAttrs(ctx, slog.LevelDebug, "delivery scheduled",
		logger.NotificationID(id),
		slog.Time("fire_at", fireAt),
	)
	return nil
}

// fire runs when a timer elapses. The registration is removed before
// dispatching, so a concurrent Cancel observes "no pending schedule" the
// moment delivery has begun; once running, delivery is never interrupted.
func (s *Scheduler) fire(id string) {
	s.mu.Lock()
	delete(s.timers, id)
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}

	if err := s.dispatcher.Dispatch(context.Background(), id); err != nil {
		s.logger.LogAttrs(context.Background(), slog.LevelError, "scheduled dispatch failed",
			logger.NotificationID(id),
			logger.Error(err),
		)
	}
}

// Cancel disarms the pending schedule for the id if one exists, returning
// whether a pending schedule was actually prevented from firing. Calling it
// concurrently with the fire instant is safe: once the timer callback has
// started, Cancel reports false and delivery proceeds untouched.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[id]
	if !ok {
		return false
	}
	delete(s.timers, id)
	return t.Stop()
}

// Pending reports whether the id currently has an armed schedule.
func (s *Scheduler) Pending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[id]
	return ok
}

// Close disarms all timers and rejects further scheduling.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	return nil
}
