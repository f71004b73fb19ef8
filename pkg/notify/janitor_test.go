package notify_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifykit/notifykit/pkg/notify"
)

func TestJanitorRetentionSweep(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	storage := notify.NewMemoryStorage()

	old := time.Now().Add(-31 * 24 * time.Hour)
	expired := time.Now().Add(-time.Hour)

	sweepable := newNotification("old-expired", "user-1", notify.StatusSent)
	sweepable.CreatedAt = old
	sweepable.ExpiresAt = &expired
	require.NoError(t, storage.Create(ctx, sweepable))

	eternal := newNotification("old-no-expiry", "user-1", notify.StatusSent)
	eternal.CreatedAt = old
	require.NoError(t, storage.Create(ctx, eternal))

	fresh := newNotification("fresh-expired", "user-1", notify.StatusSent)
	fresh.ExpiresAt = &expired
	require.NoError(t, storage.Create(ctx, fresh))

	j, err := notify.NewJanitor(storage, &countingRunner{},
		notify.WithRetentionWindow(30*24*time.Hour),
	)
	require.NoError(t, err)

	deleted, err := j.RunRetentionSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = storage.Get(ctx, "old-expired")
	assert.ErrorIs(t, err, notify.ErrNotificationNotFound)
	_, err = storage.Get(ctx, "old-no-expiry")
	assert.NoError(t, err, "no expiry means kept regardless of age")
	_, err = storage.Get(ctx, "fresh-expired")
	assert.NoError(t, err, "expired but younger than the retention window")
}

func TestJanitorRetrySweep(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	storage := notify.NewMemoryStorage()

	// Budget left: the sweep redelivers it.
	retryable := newNotification("retryable", "user-1", notify.StatusFailed)
	retryable.RetryCount = 1
	retryable.MaxRetries = 3
	require.NoError(t, storage.Create(ctx, retryable))

	// Budget spent: the sweep skips it.
	exhausted := newNotification("exhausted", "user-1", notify.StatusFailed)
	exhausted.RetryCount = 3
	exhausted.MaxRetries = 3
	require.NoError(t, storage.Create(ctx, exhausted))

	// Not failed: out of scope.
	require.NoError(t, storage.Create(ctx, newNotification("sent", "user-1", notify.StatusSent)))

	registry := notify.NewRegistry(&stubAdapter{channel: notify.ChannelInApp})
	d, err := notify.NewDispatcher(storage, registry)
	require.NoError(t, err)
	defer d.Close()

	j, err := notify.NewJanitor(storage, d)
	require.NoError(t, err)

	res, err := j.RunRetrySweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Retried)
	assert.Equal(t, 1, res.Succeeded)

	got, err := storage.Get(ctx, "retryable")
	require.NoError(t, err)
	assert.Equal(t, notify.StatusSent, got.Status)
	assert.Equal(t, 2, got.RetryCount)

	got, err = storage.Get(ctx, "exhausted")
	require.NoError(t, err)
	assert.Equal(t, notify.StatusFailed, got.Status)
	assert.Equal(t, 3, got.RetryCount, "untouched")
}

func TestJanitorRetrySweepCountsFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	storage := notify.NewMemoryStorage()

	n := newNotification("still-failing", "user-1", notify.StatusFailed)
	n.RetryCount = 1
	n.MaxRetries = 2
	require.NoError(t, storage.Create(ctx, n))

	registry := notify.NewRegistry(&stubAdapter{
		channel: notify.ChannelInApp,
		deliver: func(context.Context, notify.Notification) error {
			return errors.New("still down")
		},
	})
	d, err := notify.NewDispatcher(storage, registry)
	require.NoError(t, err)
	defer d.Close()

	j, err := notify.NewJanitor(storage, d)
	require.NoError(t, err)

	res, err := j.RunRetrySweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Retried)
	assert.Equal(t, 0, res.Succeeded)
}

func TestJanitorLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	storage := notify.NewMemoryStorage()

	old := time.Now().Add(-31 * 24 * time.Hour)
	expired := time.Now().Add(-time.Hour)
	sweepable := newNotification("old-expired", "user-1", notify.StatusSent)
	sweepable.CreatedAt = old
	sweepable.ExpiresAt = &expired
	require.NoError(t, storage.Create(ctx, sweepable))

	j, err := notify.NewJanitor(storage, &countingRunner{},
		notify.WithRetentionWindow(30*24*time.Hour),
		notify.WithRetentionInterval(10*time.Millisecond),
		notify.WithRetrySweepInterval(10*time.Millisecond),
	)
	require.NoError(t, err)

	require.NoError(t, j.Start(ctx))
	assert.Error(t, j.Start(ctx), "double start rejected")

	require.Eventually(t, func() bool {
		_, err := storage.Get(ctx, "old-expired")
		return errors.Is(err, notify.ErrNotificationNotFound)
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, j.Stop())
	assert.Error(t, j.Stop(), "double stop rejected")
}

func TestJanitorRun(t *testing.T) {
	t.Parallel()

	runner := &countingRunner{}
	j, err := notify.NewJanitor(notify.NewMemoryStorage(), runner,
		notify.WithRetrySweepInterval(5*time.Millisecond),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	var done atomic.Bool
	go func() {
		_ = j.Run(ctx)()
		done.Store(true)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	require.Eventually(t, func() bool { return done.Load() }, 2*time.Second, 5*time.Millisecond)
}

func TestNewJanitorValidation(t *testing.T) {
	t.Parallel()

	_, err := notify.NewJanitor(nil, &countingRunner{})
	assert.ErrorIs(t, err, notify.ErrStorageNil)

	_, err = notify.NewJanitor(notify.NewMemoryStorage(), nil)
	assert.ErrorIs(t, err, notify.ErrDispatcherNil)
}
