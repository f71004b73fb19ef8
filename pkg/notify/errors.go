package notify

import "errors"

// Common errors
var (
	// ErrStorageNil is returned when a nil storage is provided to a constructor.
	ErrStorageNil = errors.New("storage cannot be nil")

	// ErrRegistryNil is returned when a nil adapter registry is provided.
	ErrRegistryNil = errors.New("adapter registry cannot be nil")

	// ErrDispatcherNil is returned when a nil dispatcher is provided.
	ErrDispatcherNil = errors.New("dispatcher cannot be nil")

	// ErrInvalidRequest is returned when a send or template request is missing
	// required fields. Rejected synchronously; nothing enters the store.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotificationNotFound is returned when a notification id is unknown.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrTemplateNotFound is returned when a template id is unknown.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrTemplateInactive is returned when sending references a deactivated template.
	ErrTemplateInactive = errors.New("template is not active")

	// ErrInvalidState is returned when an operation is illegal for the
	// notification's current status, e.g. cancelling a sent notification.
	ErrInvalidState = errors.New("invalid notification state for operation")

	// ErrAdapterNotFound is returned when a channel has no registered adapter.
	ErrAdapterNotFound = errors.New("no adapter registered for channel")

	// ErrEmptyRecipients is returned when a bulk request resolves to no
	// recipients. This is a terminal validation failure for the whole request.
	ErrEmptyRecipients = errors.New("bulk request has no recipients")

	// ErrSchedulerClosed is returned when scheduling after Close.
	ErrSchedulerClosed = errors.New("scheduler is closed")
)
