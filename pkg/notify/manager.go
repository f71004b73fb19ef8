package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/notifykit/notifykit/pkg/logger"
)

// SendRequest describes one notification to create and deliver. Title and
// Message may come from a template instead, in which case Data supplies the
// template variables and the template's channel list is the candidate set
// unless Channels overrides it.
type SendRequest struct {
	UserID       string         `json:"user_id"`
	Type         Type           `json:"type"`
	Title        string         `json:"title"`
	Message      string         `json:"message"`
	Data         map[string]any `json:"data,omitempty"`
	Channels     []Channel      `json:"channels,omitempty"`
	Priority     Priority       `json:"priority,omitempty"`
	TemplateID   string         `json:"template_id,omitempty"`
	ScheduledFor *time.Time     `json:"scheduled_for,omitempty"`
	ExpiresAt    *time.Time     `json:"expires_at,omitempty"`
	MaxRetries   int            `json:"max_retries,omitempty"`
}

// Manager is the engine's inbound API surface. It wires the preference
// engine, template engine, storage, scheduler, dispatcher and bulk
// coordinator behind one façade; callers distinguish outcomes by inspecting
// the returned notification's status, not by catching panics.
type Manager struct {
	storage   Storage
	prefs     PreferenceStorage
	templates TemplateStorage

	dispatcher *Dispatcher
	scheduler  *Scheduler
	bulk       *BulkCoordinator

	maxRetries int
	logger     *slog.Logger
}

// NewManager assembles the engine. The registry decides which channels are
// actually deliverable; notifications may still carry channel identifiers
// without an adapter, those channels simply fail delivery.
func NewManager(
	storage Storage,
	prefs PreferenceStorage,
	templates TemplateStorage,
	registry *Registry,
	opts ...ManagerOption,
) (*Manager, error) {
	if storage == nil || prefs == nil || templates == nil {
		return nil, ErrStorageNil
	}
	if registry == nil {
		return nil, ErrRegistryNil
	}

	options := &managerOptions{
		cfg:    DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backoff := options.backoff
	if backoff == nil {
		backoff = LinearBackoff{BaseDelay: options.cfg.RetryBaseDelay}
	}

	dispatcher, err := NewDispatcher(storage, registry,
		WithBackoff(backoff),
		WithAdapterTimeout(options.cfg.AdapterTimeout),
		WithDispatcherLogger(options.logger),
	)
	if err != nil {
		return nil, err
	}

	scheduler, err := NewScheduler(dispatcher, WithSchedulerLogger(options.logger))
	if err != nil {
		return nil, err
	}

	m := &Manager{
		storage:    storage,
		prefs:      prefs,
		templates:  templates,
		dispatcher: dispatcher,
		scheduler:  scheduler,
		maxRetries: options.cfg.MaxRetries,
		logger:     options.logger,
	}

	m.bulk, err = NewBulkCoordinator(m,
		WithBatchSize(options.cfg.BulkBatchSize),
		WithBatchPause(options.cfg.BulkBatchPause),
		WithBulkLogger(options.logger),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Send creates a notification, filters its channels through the user's
// preferences and delivers it. Future-dated requests are armed in the
// scheduler; everything else is dispatched synchronously. The returned
// notification reflects the stored state after the operation: cancelled when
// preferences filtered out every channel, scheduled when future-dated, or the
// first delivery verdict otherwise.
func (m *Manager) Send(ctx context.Context, req SendRequest) (*Notification, error) {
	if err := m.validateSend(req); err != nil {
		return nil, err
	}

	title, message, candidates, err := m.resolveContent(ctx, req)
	if err != nil {
		return nil, err
	}

	effective, err := m.resolveChannels(ctx, req.UserID, req.Type, candidates)
	if err != nil {
		return nil, err
	}

	n := Notification{
		ID:           uuid.New().String(),
		UserID:       req.UserID,
		Type:         req.Type,
		Title:        title,
		Message:      message,
		Data:         req.Data,
		Priority:     req.Priority,
		Channels:     effective,
		Status:       StatusPending,
		ScheduledFor: req.ScheduledFor,
		CreatedAt:    time.Now(),
		ExpiresAt:    req.ExpiresAt,
		MaxRetries:   req.MaxRetries,
	}
	if n.Priority == 0 {
		n.Priority = PriorityMedium
	}
	if n.MaxRetries <= 0 {
		n.MaxRetries = m.maxRetries
	}

	// Preferences filtered out every channel: the record is kept for the
	// user's history but never enters a delivery path.
	if len(effective) == 0 {
		n.Status = StatusCancelled
		if err := m.storage.Create(ctx, n); err != nil {
			return nil, fmt.Errorf("failed to store notification: %w", err)
		}
		m.logger.LogAttrs(ctx, slog.LevelInfo, "notification cancelled by preferences",
			logger.NotificationID(n.ID),
			logger.UserID(n.UserID),
		)
		return &n, nil
	}

	future := req.ScheduledFor != nil && req.ScheduledFor.After(time.Now())
	if future {
		n.Status = StatusScheduled
	}

	if err := m.storage.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to store notification: %w", err)
	}

	if future {
		if err := m.scheduler.Schedule(ctx, n.ID, *req.ScheduledFor); err != nil {
			return nil, err
		}
		return &n, nil
	}

	if err := m.dispatcher.Dispatch(ctx, n.ID); err != nil {
		return nil, err
	}
	return m.storage.Get(ctx, n.ID)
}

// Schedule is Send with an explicit delivery time. A time at or before now
// delivers immediately and synchronously.
func (m *Manager) Schedule(ctx context.Context, req SendRequest, at time.Time) (*Notification, error) {
	req.ScheduledFor = &at
	return m.Send(ctx, req)
}

// SendBulk expands a bulk request into per-recipient sends through the bulk
// coordinator.
func (m *Manager) SendBulk(ctx context.Context, req BulkRequest) (BulkResult, error) {
	return m.bulk.SendBulk(ctx, req)
}

// CancelScheduled cancels a notification that has not yet reached a terminal
// state, disarming any pending schedule or retry timer. The status check and
// the cancelled write run inside the dispatcher's per-id critical section, so
// a cancel racing an in-flight delivery waits for the verdict instead of
// clobbering it. Cancelling a record whose delivery has already started (or
// finished) returns ErrInvalidState.
func (m *Manager) CancelScheduled(ctx context.Context, id string) error {
	// Disarm the schedule before taking the lock. A false result means the
	// timer either never existed or has already fired and handed the record
	// to the dispatcher.
	timerStopped := m.scheduler.Cancel(id)

	var userID string
	err := m.dispatcher.withLock(id, func() error {
		n, err := m.storage.Get(ctx, id)
		if err != nil {
			return err
		}
		userID = n.UserID

		switch n.Status {
		case StatusScheduled:
			if !timerStopped {
				return fmt.Errorf("%w: delivery already started for notification %q", ErrInvalidState, id)
			}
		case StatusPending:
			// A retry timer firing concurrently blocks on this critical
			// section and then sees the cancelled record, so disarming here
			// is race-free either way.
			m.dispatcher.CancelRetry(id)
		default:
			return fmt.Errorf("%w: cannot cancel notification in status %q", ErrInvalidState, n.Status)
		}

		n.Status = StatusCancelled
		if err := m.storage.Update(ctx, *n); err != nil {
			return fmt.Errorf("failed to cancel notification: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.logger.LogAttrs(ctx, slog.LevelInfo, "notification cancelled",
		logger.NotificationID(id),
		logger.UserID(userID),
	)
	return nil
}

// Get retrieves a single notification.
func (m *Manager) Get(ctx context.Context, id string) (*Notification, error) {
	return m.storage.Get(ctx, id)
}

// List returns a page of the user's notifications, newest first.
func (m *Manager) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	return m.storage.List(ctx, userID, opts)
}

// MarkRead records the read timestamp on the given notifications. Read
// tracking is independent of status: it succeeds on terminal records too.
func (m *Manager) MarkRead(ctx context.Context, userID string, ids ...string) error {
	return m.storage.MarkRead(ctx, userID, ids...)
}

// MarkAllRead records the read timestamp on all the user's unread notifications.
func (m *Manager) MarkAllRead(ctx context.Context, userID string) error {
	return m.storage.MarkAllRead(ctx, userID)
}

// Delete removes a notification entirely, disarming any timers first.
func (m *Manager) Delete(ctx context.Context, id, userID string) error {
	m.scheduler.Cancel(id)
	m.dispatcher.CancelRetry(id)
	return m.storage.Delete(ctx, userID, id)
}

// CountUnread returns the user's unread notification count.
func (m *Manager) CountUnread(ctx context.Context, userID string) (int, error) {
	return m.storage.CountUnread(ctx, userID)
}

// Stats aggregates notification counts by status, type and channel.
// An empty userID aggregates across all users.
func (m *Manager) Stats(ctx context.Context, userID string) (Stats, error) {
	return m.storage.Stats(ctx, userID)
}

// RetryFailed redelivers every failed notification whose retry budget is not
// spent and reports how many were retried and how many reached sent.
func (m *Manager) RetryFailed(ctx context.Context) (RetryResult, error) {
	return sweepFailed(ctx, m.storage, m.dispatcher)
}

// GetPreferences returns the user's delivery preferences, materializing and
// persisting the defaults on first access so a user without stored
// preferences behaves identically to one with explicit defaults.
func (m *Manager) GetPreferences(ctx context.Context, userID string) ([]Preference, error) {
	prefs, err := m.prefs.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(prefs) > 0 {
		return prefs, nil
	}

	defaults := DefaultPreferences(userID)
	if err := m.prefs.SetPreferences(ctx, userID, defaults); err != nil {
		return nil, fmt.Errorf("failed to persist default preferences: %w", err)
	}
	return defaults, nil
}

// SetPreferences replaces the user's preference set wholesale.
func (m *Manager) SetPreferences(ctx context.Context, userID string, prefs []Preference) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}
	for i := range prefs {
		if prefs[i].Type == "" {
			return fmt.Errorf("%w: preference type is required", ErrInvalidRequest)
		}
		if prefs[i].Frequency == "" {
			prefs[i].Frequency = FrequencyImmediate
		}
	}
	return m.prefs.SetPreferences(ctx, userID, prefs)
}

// CreateTemplate stores a new message template.
func (m *Manager) CreateTemplate(ctx context.Context, t Template) (*Template, error) {
	if t.Name == "" {
		return nil, fmt.Errorf("%w: template name is required", ErrInvalidRequest)
	}
	if t.Content == "" {
		return nil, fmt.Errorf("%w: template content is required", ErrInvalidRequest)
	}

	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	if err := m.templates.CreateTemplate(ctx, t); err != nil {
		return nil, err
	}

	m.logger.LogAttrs(ctx, slog.LevelInfo, "template created",
		logger.TemplateID(t.ID),
		slog.String("name", t.Name),
	)
	return &t, nil
}

// UpdateTemplate replaces a stored template, refreshing its update timestamp.
func (m *Manager) UpdateTemplate(ctx context.Context, t Template) (*Template, error) {
	existing, err := m.templates.GetTemplate(ctx, t.ID)
	if err != nil {
		return nil, err
	}

	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now()
	if err := m.templates.UpdateTemplate(ctx, t); err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTemplate removes a template.
func (m *Manager) DeleteTemplate(ctx context.Context, id string) error {
	return m.templates.DeleteTemplate(ctx, id)
}

// ListTemplates returns all stored templates.
func (m *Manager) ListTemplates(ctx context.Context) ([]Template, error) {
	return m.templates.ListTemplates(ctx)
}

// Dispatcher returns the underlying dispatcher, e.g. for wiring a Janitor.
func (m *Manager) Dispatcher() *Dispatcher {
	return m.dispatcher
}

// Scheduler returns the underlying scheduler.
func (m *Manager) Scheduler() *Scheduler {
	return m.scheduler
}

// Storage returns the underlying notification storage.
func (m *Manager) Storage() Storage {
	return m.storage
}

// Close disarms all schedule and retry timers. Stored notifications are
// untouched; a janitor retry sweep can resume failed deliveries later.
func (m *Manager) Close() error {
	m.scheduler.Close()
	return m.dispatcher.Close()
}

func (m *Manager) validateSend(req SendRequest) error {
	if req.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}
	if req.Type == "" {
		return fmt.Errorf("%w: notification type is required", ErrInvalidRequest)
	}
	if req.TemplateID == "" && req.Title == "" && req.Message == "" {
		return fmt.Errorf("%w: title or message is required without a template", ErrInvalidRequest)
	}
	return nil
}

// resolveContent renders the template when one is referenced and decides the
// candidate channel set before preference filtering.
func (m *Manager) resolveContent(ctx context.Context, req SendRequest) (title, message string, candidates []Channel, err error) {
	title, message, candidates = req.Title, req.Message, req.Channels

	if req.TemplateID == "" {
		return title, message, candidates, nil
	}

	tmpl, err := m.templates.GetTemplate(ctx, req.TemplateID)
	if err != nil {
		return "", "", nil, err
	}
	if !tmpl.IsActive {
		return "", "", nil, fmt.Errorf("%w: %s", ErrTemplateInactive, tmpl.ID)
	}

	title, message = tmpl.Render(req.Data)
	if len(candidates) == 0 {
		candidates = tmpl.Channels
	}
	return title, message, candidates, nil
}

// resolveChannels materializes default preferences when the user has none and
// intersects the candidate channels with the user's allow-list for the type.
func (m *Manager) resolveChannels(ctx context.Context, userID string, typ Type, candidates []Channel) ([]Channel, error) {
	prefs, err := m.prefs.GetPreferences(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	if len(prefs) == 0 {
		prefs = DefaultPreferences(userID)
		if err := m.prefs.SetPreferences(ctx, userID, prefs); err != nil {
			return nil, fmt.Errorf("failed to persist default preferences: %w", err)
		}
	}

	return FilterChannels(candidates, typ, prefs), nil
}
