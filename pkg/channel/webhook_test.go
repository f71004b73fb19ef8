package channel_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifykit/notifykit/pkg/channel"
	"github.com/notifykit/notifykit/pkg/notify"
)

func webhookNotification(url string) notify.Notification {
	return notify.Notification{
		ID:      "n-1",
		UserID:  "user-1",
		Type:    notify.TypeSystemAlert,
		Title:   "Hello",
		Message: "World",
		Data:    map[string]any{"webhook_url": url},
		Status:  notify.StatusPending,
	}
}

func TestWebhookDeliver(t *testing.T) {
	t.Parallel()

	type received struct {
		body      []byte
		signature string
		timestamp int64
		id        string
	}
	got := make(chan received, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ts, _ := strconv.ParseInt(r.Header.Get("X-Notify-Timestamp"), 10, 64)
		got <- received{
			body:      body,
			signature: r.Header.Get("X-Notify-Signature"),
			timestamp: ts,
			id:        r.Header.Get("X-Notify-ID"),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w, err := channel.NewWebhook("secret")
	require.NoError(t, err)
	assert.Equal(t, notify.ChannelWebhook, w.Channel())

	require.NoError(t, w.Deliver(context.Background(), webhookNotification(srv.URL)))

	r := <-got
	assert.Equal(t, "n-1", r.id)

	var payload notify.Notification
	require.NoError(t, json.Unmarshal(r.body, &payload))
	assert.Equal(t, "Hello", payload.Title)

	// The receiver can authenticate the delivery.
	require.NoError(t, channel.VerifySignature("secret", r.timestamp, r.body, r.signature, time.Minute))
	assert.Error(t, channel.VerifySignature("wrong-secret", r.timestamp, r.body, r.signature, time.Minute))
	assert.Error(t, channel.VerifySignature("secret", r.timestamp, []byte("tampered"), r.signature, time.Minute))
}

func TestWebhookDeliverNon2xx(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w, err := channel.NewWebhook("secret")
	require.NoError(t, err)

	err = w.Deliver(context.Background(), webhookNotification(srv.URL))
	assert.ErrorIs(t, err, channel.ErrDeliveryFailed)
}

func TestWebhookDeliverNoEndpoint(t *testing.T) {
	t.Parallel()

	w, err := channel.NewWebhook("secret")
	require.NoError(t, err)

	n := webhookNotification("")
	n.Data = nil
	err = w.Deliver(context.Background(), n)
	assert.ErrorIs(t, err, channel.ErrNoRecipient)
}

func TestWebhookEndpointFuncOverride(t *testing.T) {
	t.Parallel()

	var hit bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
	}))
	defer srv.Close()

	w, err := channel.NewWebhook("secret",
		channel.WithEndpointFunc(func(n notify.Notification) string { return srv.URL }),
	)
	require.NoError(t, err)

	n := webhookNotification("")
	n.Data = nil
	require.NoError(t, w.Deliver(context.Background(), n))
	assert.True(t, hit)
}

func TestNewWebhookValidation(t *testing.T) {
	t.Parallel()

	_, err := channel.NewWebhook("")
	assert.ErrorIs(t, err, channel.ErrInvalidConfig)
}

func TestVerifySignatureTimestampWindow(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"id":"n-1"}`)
	stale := time.Now().Add(-10 * time.Minute).Unix()
	sig := channel.Sign("secret", stale, payload)

	assert.Error(t, channel.VerifySignature("secret", stale, payload, sig, time.Minute), "outside the window")
	assert.NoError(t, channel.VerifySignature("secret", stale, payload, sig, 0), "zero maxAge disables the check")
}
