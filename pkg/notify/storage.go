package notify

import (
	"context"
	"time"
)

// Storage handles notification persistence and retrieval. The engine treats
// the storage as the single owner of notification records: every component
// reads a copy, mutates it, and writes it back under the dispatcher's
// per-notification lock.
type Storage interface {
	// Create stores a new notification.
	Create(ctx context.Context, n Notification) error

	// Get retrieves a single notification by id.
	Get(ctx context.Context, id string) (*Notification, error)

	// Update replaces a stored notification.
	Update(ctx context.Context, n Notification) error

	// List returns notifications for a user, newest first.
	List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error)

	// ListByStatus returns all notifications currently in any of the given
	// statuses, across users. Used by the retry sweep.
	ListByStatus(ctx context.Context, statuses ...Status) ([]Notification, error)

	// MarkRead sets the read timestamp on the given notifications.
	// Legal in any state, including terminal ones.
	MarkRead(ctx context.Context, userID string, ids ...string) error

	// MarkAllRead sets the read timestamp on every unread notification of the user.
	MarkAllRead(ctx context.Context, userID string) error

	// Delete removes notifications entirely, bypassing state transitions.
	Delete(ctx context.Context, userID string, ids ...string) error

	// DeleteExpired removes notifications created before the cutoff whose
	// ExpiresAt is set and has passed. Records without ExpiresAt are never
	// removed. Returns the number of deleted records.
	DeleteExpired(ctx context.Context, createdBefore time.Time) (int, error)

	// CountUnread returns the number of unread, unexpired notifications.
	CountUnread(ctx context.Context, userID string) (int, error)

	// Stats aggregates counts by status, type and channel. An empty userID
	// aggregates across all users.
	Stats(ctx context.Context, userID string) (Stats, error)
}

// PreferenceStorage persists per-user channel preferences.
type PreferenceStorage interface {
	// GetPreferences returns all stored preferences for the user.
	// An empty slice means the user has never set any.
	GetPreferences(ctx context.Context, userID string) ([]Preference, error)

	// SetPreferences replaces the user's preference set wholesale.
	SetPreferences(ctx context.Context, userID string, prefs []Preference) error
}

// TemplateStorage persists message templates.
type TemplateStorage interface {
	CreateTemplate(ctx context.Context, t Template) error
	GetTemplate(ctx context.Context, id string) (*Template, error)
	UpdateTemplate(ctx context.Context, t Template) error
	DeleteTemplate(ctx context.Context, id string) error
	ListTemplates(ctx context.Context) ([]Template, error)
}

// ListOptions provides filtering and pagination options for listing notifications.
type ListOptions struct {
	Limit      int        // Maximum number of notifications to return (0 = no limit)
	Offset     int        // Number of notifications to skip for pagination
	OnlyUnread bool       // When true, only return unread notifications
	Statuses   []Status   // If specified, only return notifications in these statuses
	Types      []Type     // If specified, only return notifications of these types
	Since      *time.Time // If specified, only return notifications created after this time
}

// Stats is an aggregate view over stored notifications.
type Stats struct {
	Total     int             `json:"total"`
	Unread    int             `json:"unread"`
	ByStatus  map[Status]int  `json:"by_status"`
	ByType    map[Type]int    `json:"by_type"`
	ByChannel map[Channel]int `json:"by_channel"`
}
