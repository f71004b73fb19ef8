package channel

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/notifykit/notifykit/pkg/notify"
)

// EndpointFunc resolves the destination URL for a notification.
type EndpointFunc func(n notify.Notification) string

// Webhook delivers notifications as signed HTTP POST requests. Payloads are
// signed with HMAC-SHA256 bound to a timestamp, matching the signature scheme
// used by Stripe-style webhook providers.
type Webhook struct {
	client   *http.Client
	secret   string
	endpoint EndpointFunc
}

// WebhookOption configures a Webhook adapter.
type WebhookOption func(*Webhook)

// WithHTTPClient overrides the HTTP client. The default uses a 10s timeout.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(w *Webhook) {
		if client != nil {
			w.client = client
		}
	}
}

// WithEndpointFunc overrides how the destination URL is resolved. The default
// reads the "webhook_url" key of the notification data map.
func WithEndpointFunc(fn EndpointFunc) WebhookOption {
	return func(w *Webhook) {
		if fn != nil {
			w.endpoint = fn
		}
	}
}

// NewWebhook creates a webhook adapter signing payloads with secret.
func NewWebhook(secret string, opts ...WebhookOption) (*Webhook, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: signing secret is required", ErrInvalidConfig)
	}

	w := &Webhook{
		client:   &http.Client{Timeout: 10 * time.Second},
		secret:   secret,
		endpoint: defaultEndpoint,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

func defaultEndpoint(n notify.Notification) string {
	if url, ok := n.Data["webhook_url"].(string); ok {
		return url
	}
	return ""
}

func (w *Webhook) Channel() notify.Channel { return notify.ChannelWebhook }

// Deliver POSTs the notification as JSON. Any non-2xx response is a failed
// delivery so the dispatcher's retry loop takes over.
func (w *Webhook) Deliver(ctx context.Context, n notify.Notification) error {
	url := w.endpoint(n)
	if url == "" {
		return fmt.Errorf("%w: no webhook url for user %s", ErrNoRecipient, n.UserID)
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}

	ts := time.Now().Unix()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Notify-Signature", Sign(w.secret, ts, payload))
	req.Header.Set("X-Notify-Timestamp", strconv.FormatInt(ts, 10))
	req.Header.Set("X-Notify-ID", n.ID)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: endpoint returned %d", ErrDeliveryFailed, resp.StatusCode)
	}
	return nil
}

// Sign computes the hex HMAC-SHA256 signature of "timestamp.payload".
// Timestamp binding prevents replay of captured deliveries.
func Sign(secret string, timestamp int64, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(h, "%d.%s", timestamp, payload)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature validates a received webhook payload against its signature
// headers. maxAge of zero disables the timestamp window check.
func VerifySignature(secret string, timestamp int64, payload []byte, signature string, maxAge time.Duration) error {
	if maxAge > 0 {
		age := time.Since(time.Unix(timestamp, 0))
		if age > maxAge {
			return fmt.Errorf("%w: signature timestamp too old: %v", ErrDeliveryFailed, age)
		}
		if age < -time.Minute {
			return fmt.Errorf("%w: signature timestamp is in the future", ErrDeliveryFailed)
		}
	}

	expected := Sign(secret, timestamp, payload)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("%w: signature mismatch", ErrDeliveryFailed)
	}
	return nil
}
