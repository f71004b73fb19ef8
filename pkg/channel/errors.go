package channel

import "errors"

var (
	// ErrInvalidConfig is returned when an adapter is constructed with an
	// incomplete or invalid configuration.
	ErrInvalidConfig = errors.New("invalid channel configuration")

	// ErrNoRecipient is returned when a notification carries no usable
	// destination for the channel (missing email address, webhook URL, etc).
	ErrNoRecipient = errors.New("no recipient for channel")

	// ErrDeliveryFailed is returned when the remote endpoint rejected or
	// failed the delivery.
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrClosed is returned when delivering through an adapter that has been
	// shut down.
	ErrClosed = errors.New("channel closed")
)
