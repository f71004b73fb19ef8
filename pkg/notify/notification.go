package notify

import (
	"time"
)

// Type categorizes a notification. The set is closed: the preference engine
// materializes one default preference record per known type, so new types must
// be added to KnownTypes as well.
type Type string

const (
	TypeGameInvite  Type = "game_invite"
	TypeSystemAlert Type = "system_alert"
	TypeTransaction Type = "transaction_confirmation"
	TypeReminder    Type = "reminder"
	TypePromotion   Type = "promotion"
)

// KnownTypes returns every notification type the engine recognizes.
func KnownTypes() []Type {
	return []Type{
		TypeGameInvite,
		TypeSystemAlert,
		TypeTransaction,
		TypeReminder,
		TypePromotion,
	}
}

// Channel identifies a delivery medium. Adapters register under these
// identifiers; new channels extend the registry, not a branch statement.
type Channel string

const (
	ChannelInApp   Channel = "in_app"
	ChannelEmail   Channel = "email"
	ChannelSMS     Channel = "sms"
	ChannelPush    Channel = "push"
	ChannelWebhook Channel = "webhook"
)

// Priority represents the notification priority level.
// The zero value is treated as unset and defaults to PriorityMedium.
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

// Status represents the lifecycle state of a notification.
type Status string

const (
	// StatusPending means the notification awaits its first or a retried
	// delivery attempt.
	StatusPending Status = "pending"
	// StatusScheduled means the notification is future-dated and armed in the
	// scheduler.
	StatusScheduled Status = "scheduled"
	// StatusSent is terminal: at least one channel accepted the notification.
	StatusSent Status = "sent"
	// StatusDelivered is reserved for channel-receipt confirmation. It is part
	// of the enum for forward compatibility and is never produced by this
	// engine.
	StatusDelivered Status = "delivered"
	// StatusFailed means delivery failed. It is terminal once retries are
	// exhausted; the janitor's retry sweep may still redeliver records whose
	// retry budget is not spent.
	StatusFailed Status = "failed"
	// StatusCancelled is terminal: either every channel was filtered out by
	// preferences or an explicit cancel was issued.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status accepts no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusSent, StatusDelivered, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Frequency describes how often a user wants to receive a notification type.
// Only FrequencyImmediate is enacted by the dispatcher; the rest are
// informational.
type Frequency string

const (
	FrequencyImmediate Frequency = "immediate"
	FrequencyDigest    Frequency = "digest"
)

// Notification is one user-facing message instance. The storage layer
// exclusively owns stored records; components operate on copies.
type Notification struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	Type         Type           `json:"type"`
	Title        string         `json:"title"`
	Message      string         `json:"message"`
	Data         map[string]any `json:"data,omitempty"`
	Priority     Priority       `json:"priority"`
	Channels     []Channel      `json:"channels"`
	Status       Status         `json:"status"`
	ScheduledFor *time.Time     `json:"scheduled_for,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	ExpiresAt    *time.Time     `json:"expires_at,omitempty"`
	RetryCount   int            `json:"retry_count"`
	MaxRetries   int            `json:"max_retries"`
	SentAt       *time.Time     `json:"sent_at,omitempty"`
	ReadAt       *time.Time     `json:"read_at,omitempty"`
}

// IsExpired returns true if the notification has expired.
// A notification without ExpiresAt never expires.
func (n *Notification) IsExpired() bool {
	if n.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*n.ExpiresAt)
}

// IsRead reports whether the notification has been marked as read.
// Read tracking is orthogonal to Status and may be set from any state.
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

// MarkAsRead records the read timestamp without touching the status.
func (n *Notification) MarkAsRead() {
	now := time.Now()
	n.ReadAt = &now
}

// RetriesExhausted reports whether the retry budget is spent.
func (n *Notification) RetriesExhausted() bool {
	return n.RetryCount >= n.MaxRetries
}

// Preference is the per (user, type) delivery policy. An explicit update
// replaces the whole record, it is never merged.
type Preference struct {
	UserID    string    `json:"user_id"`
	Type      Type      `json:"type"`
	Channels  []Channel `json:"channels"`
	Enabled   bool      `json:"enabled"`
	Frequency Frequency `json:"frequency"`
}

// Template is a reusable parameterized message. Subject and Content may
// contain {{name}} placeholders substituted at send time; rendering never
// mutates the template.
type Template struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      Type      `json:"type"`
	Channels  []Channel `json:"channels"`
	Subject   string    `json:"subject"`
	Content   string    `json:"content"`
	Variables []string  `json:"variables,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
