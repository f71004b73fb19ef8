package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/notifykit/notifykit/pkg/logger"
)

// Dispatcher fans a ready notification out to its resolved channels, folds the
// per-channel outcomes into one delivery verdict and drives the retry loop.
//
// All read-modify-write cycles on a notification record are serialized through
// a per-notification-id critical section: a retry sweep and a self-armed
// backoff timer racing on the same record degenerate into a delivery attempt
// followed by a terminal-state no-op. Different notifications proceed fully in
// parallel; there is no global lock.
type Dispatcher struct {
	storage        Storage
	registry       *Registry
	backoff        BackoffStrategy
	adapterTimeout time.Duration
	logger         *slog.Logger

	locks lockTable

	timersMu    sync.Mutex
	retryTimers map[string]*time.Timer
	closed      bool
}

// NewDispatcher creates a dispatcher delivering through the given adapter
// registry and persisting outcomes to storage.
func NewDispatcher(storage Storage, registry *Registry, opts ...DispatcherOption) (*Dispatcher, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	if registry == nil {
		return nil, ErrRegistryNil
	}

	options := &dispatcherOptions{
		backoff:        LinearBackoff{BaseDelay: 30 * time.Second},
		adapterTimeout: 10 * time.Second,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Dispatcher{
		storage:        storage,
		registry:       registry,
		backoff:        options.backoff,
		adapterTimeout: options.adapterTimeout,
		logger:         options.logger,
		retryTimers:    make(map[string]*time.Timer),
	}, nil
}

// Dispatch runs one delivery attempt for the notification. It is idempotent
// with respect to already-terminal records: dispatching a sent, cancelled or
// retry-exhausted failed notification is a no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, id string) error {
	release := d.locks.acquire(id)
	defer release()

	n, err := d.storage.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load notification %s: %w", id, err)
	}

	switch n.Status {
	case StatusSent, StatusDelivered, StatusCancelled:
		return nil
	case StatusFailed:
		if n.RetriesExhausted() {
			return nil
		}
	}

	// An empty channel set cannot occur for a non-cancelled record; if it
	// does, the record is unroutable and terminates here.
	if len(n.Channels) == 0 {
		n.Status = StatusCancelled
		return d.persistOutcome(ctx, n)
	}

	n.RetryCount++

	successes := d.fanOut(ctx, n)

	switch {
	case successes > 0:
		now := time.Now()
		n.Status = StatusSent
		n.SentAt = &now
		d.logger.LogAttrs(ctx, slog.LevelInfo, "notification sent",
			logger.NotificationID(n.ID),
			logger.UserID(n.UserID),
			logger.Attempt(n.RetryCount),
			logger.Count(successes),
		)
	case n.RetriesExhausted():
		n.Status = StatusFailed
		d.logger.LogAttrs(ctx, slog.LevelWarn, "notification failed, retries exhausted",
			logger.NotificationID(n.ID),
			logger.UserID(n.UserID),
			logger.Attempt(n.RetryCount),
		)
	default:
		n.Status = StatusPending
		delay := d.backoff.NextInterval(n.RetryCount)
		d.armRetry(n.ID, delay)
		d.logger.LogAttrs(ctx, slog.LevelInfo, "notification delivery failed, retry armed",
			logger.NotificationID(n.ID),
			logger.Attempt(n.RetryCount),
			logger.Duration(delay),
		)
	}

	return d.persistOutcome(ctx, n)
}

// fanOut invokes every channel adapter concurrently and waits for all
// outcomes. A failure or panic in one channel never blocks or aborts the
// others; the call completes only once every channel has reported.
func (d *Dispatcher) fanOut(ctx context.Context, n *Notification) int {
	results := make(chan error, len(n.Channels))
	for _, ch := range n.Channels {
		go func(ch Channel) {
			results <- d.deliverToChannel(ctx, ch, *n)
		}(ch)
	}

	successes := 0
	for range n.Channels {
		if err := <-results; err == nil {
			successes++
		}
	}
	return successes
}

// deliverToChannel runs a single adapter call under the adapter timeout.
// A panicking adapter is treated identically to one returning an error.
func (d *Dispatcher) deliverToChannel(ctx context.Context, ch Channel, n Notification) (retErr error) {
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("panic in %s adapter: %v", ch, r)
			d.logger.LogAttrs(ctx, slog.LevelError, "channel adapter panicked",
				logger.NotificationID(n.ID),
				logger.Channel(string(ch)),
				slog.Any("panic", r),
			)
		}
	}()

	adapter, ok := d.registry.Get(ch)
	if !ok {
		d.logger.LogAttrs(ctx, slog.LevelError, "no adapter registered for channel",
			logger.NotificationID(n.ID),
			logger.Channel(string(ch)),
		)
		return fmt.Errorf("%w: %s", ErrAdapterNotFound, ch)
	}

	// A hung adapter must not stall its fan-out slot indefinitely.
	ctx, cancel := context.WithTimeout(ctx, d.adapterTimeout)
	defer cancel()

	if err := adapter.Deliver(ctx, n); err != nil {
		d.logger.LogAttrs(ctx, slog.LevelWarn, "channel delivery failed",
			logger.NotificationID(n.ID),
			logger.Channel(string(ch)),
			logger.Error(err),
		)
		return err
	}
	return nil
}

// persistOutcome writes the delivery verdict back. A storage failure here is
// an orchestration error: the record is force-failed without consuming a
// retry so it stays visible rather than silently dropped.
func (d *Dispatcher) persistOutcome(ctx context.Context, n *Notification) error {
	err := d.storage.Update(ctx, *n)
	if err == nil {
		return nil
	}

	d.logger.LogAttrs(ctx, slog.LevelError, "failed to persist delivery outcome",
		logger.NotificationID(n.ID),
		logger.Error(err),
	)

	forced := *n
	forced.Status = StatusFailed
	if ferr := d.storage.Update(ctx, forced); ferr != nil {
		return errors.Join(err, ferr)
	}
	return err
}

// armRetry arms a one-shot retry timer for the notification. The table holds
// a single slot per id: re-arming cancels the prior timer first, so duplicate
// or overlapping retry timers cannot accumulate.
func (d *Dispatcher) armRetry(id string, delay time.Duration) {
	d.timersMu.Lock()
	defer d.timersMu.Unlock()

	if d.closed {
		return
	}
	if t, ok := d.retryTimers[id]; ok {
		t.Stop()
	}
	d.retryTimers[id] = time.AfterFunc(delay, func() {
		d.timersMu.Lock()
		delete(d.retryTimers, id)
		closed := d.closed
		d.timersMu.Unlock()
		if closed {
			return
		}

		if err := d.Dispatch(context.Background(), id); err != nil {
			d.logger.LogAttrs(context.Background(), slog.LevelError, "retry dispatch failed",
				logger.NotificationID(id),
				logger.Error(err),
			)
		}
	})
}

// withLock runs fn inside the per-id critical section, serializing it with
// any in-flight delivery of the same notification. Used by cancellation so a
// status check and its write cannot interleave with a delivery verdict.
func (d *Dispatcher) withLock(id string, fn func() error) error {
	release := d.locks.acquire(id)
	defer release()
	return fn()
}

// CancelRetry disarms a pending retry timer, reporting whether one existed.
// Called when a notification is cancelled or deleted.
func (d *Dispatcher) CancelRetry(id string) bool {
	d.timersMu.Lock()
	defer d.timersMu.Unlock()

	t, ok := d.retryTimers[id]
	if !ok {
		return false
	}
	delete(d.retryTimers, id)
	return t.Stop()
}

// Close disarms every pending retry timer. In-flight deliveries finish on
// their own; only future retries are dropped.
func (d *Dispatcher) Close() error {
	d.timersMu.Lock()
	defer d.timersMu.Unlock()

	d.closed = true
	for id, t := range d.retryTimers {
		t.Stop()
		delete(d.retryTimers, id)
	}
	return nil
}

// lockTable provides per-notification-id mutual exclusion. Entries are
// reference counted and removed once the last holder releases, so the table
// does not grow with the notification history.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*idLock
}

type idLock struct {
	mu   sync.Mutex
	refs int
}

func (t *lockTable) acquire(id string) (release func()) {
	t.mu.Lock()
	if t.locks == nil {
		t.locks = make(map[string]*idLock)
	}
	l, ok := t.locks[id]
	if !ok {
		l = &idLock{}
		t.locks[id] = l
	}
	l.refs++
	t.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		t.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(t.locks, id)
		}
		t.mu.Unlock()
	}
}
