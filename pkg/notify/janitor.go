package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/notifykit/notifykit/pkg/logger"
)

// RetryResult summarizes one pass over failed notifications.
type RetryResult struct {
	Retried   int `json:"retried"`
	Succeeded int `json:"succeeded"`
}

// Janitor runs two independent periodic sweeps decoupled from all request
// paths: a coarse retention sweep deleting old expired records, and a fine
// retry sweep redelivering failed notifications whose retry budget is not
// spent. The retry sweep is a safety net for lost in-process timers; it
// funnels through the dispatcher's per-id critical section, so racing a
// self-armed backoff timer is harmless.
type Janitor struct {
	storage    Storage
	dispatcher dispatchRunner

	retention         time.Duration
	retentionInterval time.Duration
	retryInterval     time.Duration
	logger            *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewJanitor creates a janitor sweeping the given storage.
func NewJanitor(storage Storage, dispatcher dispatchRunner, opts ...JanitorOption) (*Janitor, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	if dispatcher == nil {
		return nil, ErrDispatcherNil
	}

	options := &janitorOptions{
		retention:         30 * 24 * time.Hour,
		retentionInterval: time.Hour,
		retryInterval:     5 * time.Minute,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Janitor{
		storage:           storage,
		dispatcher:        dispatcher,
		retention:         options.retention,
		retentionInterval: options.retentionInterval,
		retryInterval:     options.retryInterval,
		logger:            options.logger,
	}, nil
}

// Start launches both sweep loops in the background.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cancel != nil {
		return fmt.Errorf("janitor already started")
	}

	ctx, j.cancel = context.WithCancel(ctx)

	j.wg.Add(2)
	go j.loop(ctx, j.retentionInterval, func(ctx context.Context) {
		deleted, err := j.RunRetentionSweep(ctx)
		if err != nil {
			j.logger.LogAttrs(ctx, slog.LevelError, "retention sweep failed",
				logger.Component("janitor"),
				logger.Error(err),
			)
			return
		}
		if deleted > 0 {
			j.logger.LogAttrs(ctx, slog.LevelInfo, "retention sweep deleted notifications",
				logger.Component("janitor"),
				logger.Count(deleted),
			)
		}
	})
	go j.loop(ctx, j.retryInterval, func(ctx context.Context) {
		res, err := j.RunRetrySweep(ctx)
		if err != nil {
			j.logger.LogAttrs(ctx, slog.LevelError, "retry sweep failed",
				logger.Component("janitor"),
				logger.Error(err),
			)
			return
		}
		if res.Retried > 0 {
			j.logger.LogAttrs(ctx, slog.LevelInfo, "retry sweep finished",
				logger.Component("janitor"),
				slog.Int("retried", res.Retried),
				slog.Int("succeeded", res.Succeeded),
			)
		}
	})

	j.logger.LogAttrs(ctx, slog.LevelInfo, "janitor started",
		logger.Component("janitor"),
		slog.Duration("retention_interval", j.retentionInterval),
		slog.Duration("retry_interval", j.retryInterval),
	)
	return nil
}

func (j *Janitor) loop(ctx context.Context, interval time.Duration, sweep func(context.Context)) {
	defer j.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep(ctx)
		}
	}
}

// Stop halts both sweep loops and waits for an in-flight sweep to finish.
func (j *Janitor) Stop() error {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel == nil {
		return fmt.Errorf("janitor not started")
	}

	cancel()
	j.wg.Wait()

	j.logger.LogAttrs(context.Background(), slog.LevelInfo, "janitor stopped",
		logger.Component("janitor"),
	)
	return nil
}

// Run starts the janitor and returns a function suitable for errgroup.
func (j *Janitor) Run(ctx context.Context) func() error {
	return func() error {
		if err := j.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return j.Stop()
	}
}

// RunRetentionSweep deletes notifications older than the retention window
// whose expiry has passed. Exposed for manual triggering and tests.
func (j *Janitor) RunRetentionSweep(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-j.retention)
	return j.storage.DeleteExpired(ctx, cutoff)
}

// RunRetrySweep redelivers every failed notification with retry budget left.
// Exposed for manual triggering and tests.
func (j *Janitor) RunRetrySweep(ctx context.Context) (RetryResult, error) {
	return sweepFailed(ctx, j.storage, j.dispatcher)
}

// sweepFailed is the shared core of the janitor's retry sweep and the
// manager's RetryFailed operation.
func sweepFailed(ctx context.Context, storage Storage, dispatcher dispatchRunner) (RetryResult, error) {
	failed, err := storage.ListByStatus(ctx, StatusFailed)
	if err != nil {
		return RetryResult{}, fmt.Errorf("failed to list failed notifications: %w", err)
	}

	var res RetryResult
	for _, n := range failed {
		if n.RetriesExhausted() {
			continue
		}
		res.Retried++
		if err := dispatcher.Dispatch(ctx, n.ID); err != nil {
			continue
		}
		if cur, err := storage.Get(ctx, n.ID); err == nil && cur.Status == StatusSent {
			res.Succeeded++
		}
	}
	return res, nil
}
