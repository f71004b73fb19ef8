package channel

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/mrz1836/postmark"

	"github.com/notifykit/notifykit/pkg/notify"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// EmailConfig holds Postmark delivery configuration.
type EmailConfig struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN,required"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN,required"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
}

// RecipientFunc resolves the destination email address for a notification.
type RecipientFunc func(n notify.Notification) string

// emailSender is the subset of the Postmark client the adapter uses.
// Narrowed for testability.
type emailSender interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// Email delivers notifications through Postmark's transactional API.
type Email struct {
	client    emailSender
	sender    string
	recipient RecipientFunc
}

// EmailOption configures an Email adapter.
type EmailOption func(*Email)

// WithRecipientFunc overrides how the destination address is resolved.
// The default reads the "email" key of the notification data map.
func WithRecipientFunc(fn RecipientFunc) EmailOption {
	return func(e *Email) {
		if fn != nil {
			e.recipient = fn
		}
	}
}

// NewEmail creates a Postmark-backed email adapter. All tokens are required
// up front so a misconfigured service fails at startup, not at first send.
func NewEmail(cfg EmailConfig, opts ...EmailOption) (*Email, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, fmt.Errorf("%w: PostmarkServerToken is required", ErrInvalidConfig)
	}
	if cfg.PostmarkAccountToken == "" {
		return nil, fmt.Errorf("%w: PostmarkAccountToken is required", ErrInvalidConfig)
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: SenderEmail is required", ErrInvalidConfig)
	}
	if !emailRegex.MatchString(cfg.SenderEmail) {
		return nil, fmt.Errorf("%w: SenderEmail must be a valid email address", ErrInvalidConfig)
	}

	e := &Email{
		client:    postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		sender:    cfg.SenderEmail,
		recipient: defaultRecipient,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func defaultRecipient(n notify.Notification) string {
	if addr, ok := n.Data["email"].(string); ok {
		return addr
	}
	return ""
}

func (e *Email) Channel() notify.Channel { return notify.ChannelEmail }

// Deliver sends the notification title as subject and message as text body.
func (e *Email) Deliver(ctx context.Context, n notify.Notification) error {
	to := e.recipient(n)
	if to == "" {
		return fmt.Errorf("%w: no email address for user %s", ErrNoRecipient, n.UserID)
	}
	if !emailRegex.MatchString(to) {
		return fmt.Errorf("%w: invalid email address %q", ErrNoRecipient, to)
	}

	resp, err := e.client.SendEmail(ctx, postmark.Email{
		From:       e.sender,
		To:         to,
		Subject:    n.Title,
		TextBody:   n.Message,
		Tag:        string(n.Type),
		TrackOpens: true,
	})
	if err != nil {
		return errors.Join(ErrDeliveryFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(
			ErrDeliveryFailed,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		)
	}
	return nil
}
