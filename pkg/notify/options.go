package notify

import (
	"log/slog"
	"time"
)

type dispatcherOptions struct {
	backoff        BackoffStrategy
	adapterTimeout time.Duration
	logger         *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*dispatcherOptions)

// WithBackoff sets the retry backoff strategy.
func WithBackoff(b BackoffStrategy) DispatcherOption {
	return func(o *dispatcherOptions) {
		if b != nil {
			o.backoff = b
		}
	}
}

// WithAdapterTimeout bounds a single channel adapter call so a hung adapter
// cannot stall its slot in the fan-out.
func WithAdapterTimeout(d time.Duration) DispatcherOption {
	return func(o *dispatcherOptions) {
		if d > 0 {
			o.adapterTimeout = d
		}
	}
}

// WithDispatcherLogger sets the logger for the Dispatcher.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(o *dispatcherOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

type schedulerOptions struct {
	logger *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*schedulerOptions)

// WithSchedulerLogger sets the logger for the Scheduler.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(o *schedulerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

type bulkOptions struct {
	batchSize int
	pause     time.Duration
	logger    *slog.Logger
}

// BulkOption configures a BulkCoordinator.
type BulkOption func(*bulkOptions)

// WithBatchSize caps how many single-send calls run concurrently per batch.
func WithBatchSize(n int) BulkOption {
	return func(o *bulkOptions) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithBatchPause sets the pacing delay between consecutive batches.
func WithBatchPause(d time.Duration) BulkOption {
	return func(o *bulkOptions) {
		if d >= 0 {
			o.pause = d
		}
	}
}

// WithBulkLogger sets the logger for the BulkCoordinator.
func WithBulkLogger(logger *slog.Logger) BulkOption {
	return func(o *bulkOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

type janitorOptions struct {
	retention         time.Duration
	retentionInterval time.Duration
	retryInterval     time.Duration
	logger            *slog.Logger
}

// JanitorOption configures a Janitor.
type JanitorOption func(*janitorOptions)

// WithRetentionWindow sets how long notifications are kept before the
// retention sweep may delete them.
func WithRetentionWindow(d time.Duration) JanitorOption {
	return func(o *janitorOptions) {
		if d > 0 {
			o.retention = d
		}
	}
}

// WithRetentionInterval sets the cadence of the retention sweep.
func WithRetentionInterval(d time.Duration) JanitorOption {
	return func(o *janitorOptions) {
		if d > 0 {
			o.retentionInterval = d
		}
	}
}

// WithRetrySweepInterval sets the cadence of the failed-retry sweep.
func WithRetrySweepInterval(d time.Duration) JanitorOption {
	return func(o *janitorOptions) {
		if d > 0 {
			o.retryInterval = d
		}
	}
}

// WithJanitorLogger sets the logger for the Janitor.
func WithJanitorLogger(logger *slog.Logger) JanitorOption {
	return func(o *janitorOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

type managerOptions struct {
	cfg     Config
	backoff BackoffStrategy
	logger  *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerOptions)

// WithConfig applies engine configuration (retry budget, timeouts, batch
// sizing). Zero-valued fields fall back to defaults.
func WithConfig(cfg Config) ManagerOption {
	return func(o *managerOptions) {
		o.cfg = cfg.withDefaults()
	}
}

// WithManagerBackoff overrides the retry backoff strategy used by the
// manager's dispatcher.
func WithManagerBackoff(b BackoffStrategy) ManagerOption {
	return func(o *managerOptions) {
		if b != nil {
			o.backoff = b
		}
	}
}

// WithManagerLogger sets the logger shared by the manager and the components
// it constructs.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(o *managerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
