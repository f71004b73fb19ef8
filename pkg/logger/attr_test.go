package logger_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifykit/notifykit/pkg/logger"
)

func TestGroup(t *testing.T) {
	attr := logger.Group("delivery", slog.String("channel", "email"), slog.Int("attempt", 2))
	require.Equal(t, "delivery", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "channel", g[0].Key)
	assert.Equal(t, "attempt", g[1].Key)
}

func TestError(t *testing.T) {
	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	empty := logger.Error(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestErrors(t *testing.T) {
	err1 := errors.New("first")
	err2 := errors.New("second")

	attr := logger.Errors(err1, nil, err2)
	require.Equal(t, "errors", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, err1, g[0].Value.Any())
	assert.Equal(t, err2, g[1].Value.Any())

	empty := logger.Errors(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestUserID(t *testing.T) {
	attr := logger.UserID("user-123")
	require.Equal(t, "user_id", attr.Key)
	assert.Equal(t, "user-123", attr.Value.Any())

	empty := logger.UserID("")
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestNotificationID(t *testing.T) {
	attr := logger.NotificationID("notif-1")
	require.Equal(t, "notification_id", attr.Key)
	assert.Equal(t, "notif-1", attr.Value.Any())

	empty := logger.NotificationID("")
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestChannel(t *testing.T) {
	attr := logger.Channel("webhook")
	require.Equal(t, "channel", attr.Key)
	assert.Equal(t, "webhook", attr.Value.Any())
}

func TestAttempt(t *testing.T) {
	attr := logger.Attempt(3)
	require.Equal(t, "attempt", attr.Key)
	assert.Equal(t, int64(3), attr.Value.Int64())
}

func TestComponent(t *testing.T) {
	attr := logger.Component("janitor")
	require.Equal(t, "component", attr.Key)
	assert.Equal(t, "janitor", attr.Value.Any())
}
