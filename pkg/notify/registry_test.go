package notify_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifykit/notifykit/pkg/notify"
)

// stubAdapter is a minimal Adapter for registry and dispatcher tests.
type stubAdapter struct {
	channel notify.Channel
	deliver func(ctx context.Context, n notify.Notification) error
}

func (s *stubAdapter) Channel() notify.Channel { return s.channel }

func (s *stubAdapter) Deliver(ctx context.Context, n notify.Notification) error {
	if s.deliver == nil {
		return nil
	}
	return s.deliver(ctx, n)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	inApp := &stubAdapter{channel: notify.ChannelInApp}
	email := &stubAdapter{channel: notify.ChannelEmail}

	r := notify.NewRegistry(inApp, email)

	got, ok := r.Get(notify.ChannelInApp)
	require.True(t, ok)
	assert.Same(t, inApp, got)

	_, ok = r.Get(notify.ChannelSMS)
	assert.False(t, ok)

	assert.ElementsMatch(t, []notify.Channel{notify.ChannelInApp, notify.ChannelEmail}, r.Channels())

	// Registering the same channel replaces the adapter.
	replacement := &stubAdapter{channel: notify.ChannelEmail}
	r.Register(replacement)
	got, ok = r.Get(notify.ChannelEmail)
	require.True(t, ok)
	assert.Same(t, replacement, got)

	r.Register(nil) // ignored
	assert.Len(t, r.Channels(), 2)
}
