package channel_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifykit/notifykit/pkg/channel"
	"github.com/notifykit/notifykit/pkg/notify"
)

func inAppNotification(id, userID string) notify.Notification {
	return notify.Notification{
		ID:      id,
		UserID:  userID,
		Type:    notify.TypeGameInvite,
		Title:   "Invite",
		Message: "Wanna play?",
	}
}

func TestInAppDeliverToSubscriber(t *testing.T) {
	t.Parallel()

	a := channel.NewInApp(8)
	defer a.Close()
	assert.Equal(t, notify.ChannelInApp, a.Channel())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := a.Subscribe(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, a.Deliver(context.Background(), inAppNotification("n-1", "user-1")))

	select {
	case n := <-sub:
		assert.Equal(t, "n-1", n.ID)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the notification")
	}
}

func TestInAppDeliverWithoutSubscriberSucceeds(t *testing.T) {
	t.Parallel()

	a := channel.NewInApp(8)
	defer a.Close()

	// The stored record is the inbox; a missing live subscriber is not a failure.
	assert.NoError(t, a.Deliver(context.Background(), inAppNotification("n-1", "user-1")))
}

func TestInAppDeliverIsScopedToUser(t *testing.T) {
	t.Parallel()

	a := channel.NewInApp(8)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	other, err := a.Subscribe(ctx, "user-2")
	require.NoError(t, err)

	require.NoError(t, a.Deliver(context.Background(), inAppNotification("n-1", "user-1")))

	select {
	case n := <-other:
		t.Fatalf("user-2 received user-1's notification %s", n.ID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInAppSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	t.Parallel()

	a := channel.NewInApp(1)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := a.Subscribe(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, a.Deliver(context.Background(), inAppNotification("n-1", "user-1")))
	require.NoError(t, a.Deliver(context.Background(), inAppNotification("n-2", "user-1")))

	n := <-sub
	assert.Equal(t, "n-1", n.ID)
	select {
	case n := <-sub:
		t.Fatalf("overflowed message %s should have been dropped", n.ID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInAppUnsubscribeOnContextDone(t *testing.T) {
	t.Parallel()

	a := channel.NewInApp(8)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := a.Subscribe(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, 1, a.SubscriberCount("user-1"))

	cancel()

	require.Eventually(t, func() bool {
		return a.SubscriberCount("user-1") == 0
	}, 2*time.Second, 5*time.Millisecond)

	// The subscription channel is closed after unsubscribe.
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-sub:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
}

func TestInAppClose(t *testing.T) {
	t.Parallel()

	a := channel.NewInApp(8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := a.Subscribe(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close(), "idempotent")

	_, ok := <-sub
	assert.False(t, ok, "subscriber channels closed on shutdown")

	assert.ErrorIs(t, a.Deliver(context.Background(), inAppNotification("n-1", "user-1")), channel.ErrClosed)
	_, err = a.Subscribe(context.Background(), "user-1")
	assert.ErrorIs(t, err, channel.ErrClosed)
}
