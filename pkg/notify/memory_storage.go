package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStorage implements Storage, PreferenceStorage and TemplateStorage in
// process memory. It is the reference implementation: suitable for
// development, testing and single-process deployments.
type MemoryStorage struct {
	mu            sync.RWMutex
	notifications map[string]*Notification
	byUser        map[string][]string // userID -> notification ids, append order
	preferences   map[string][]Preference
	templates     map[string]*Template
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		notifications: make(map[string]*Notification),
		byUser:        make(map[string][]string),
		preferences:   make(map[string][]Preference),
		templates:     make(map[string]*Template),
	}
}

func (s *MemoryStorage) Create(ctx context.Context, n Notification) error {
	if n.ID == "" {
		return fmt.Errorf("%w: notification id is required", ErrInvalidRequest)
	}
	if n.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.notifications[n.ID]; exists {
		return fmt.Errorf("notification %s already exists", n.ID)
	}

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	stored := cloneNotification(n)
	s.notifications[n.ID] = &stored
	s.byUser[n.UserID] = append(s.byUser[n.UserID], n.ID)
	return nil
}

func (s *MemoryStorage) Get(ctx context.Context, id string) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notifications[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}

	// Return a copy to prevent external mutation of stored data
	out := cloneNotification(*n)
	return &out, nil
}

func (s *MemoryStorage) Update(ctx context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notifications[n.ID]; !ok {
		return ErrNotificationNotFound
	}

	stored := cloneNotification(n)
	s.notifications[n.ID] = &stored
	return nil
}

func (s *MemoryStorage) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []Notification
	for _, id := range s.byUser[userID] {
		n := s.notifications[id]
		if n == nil || !matchesListOptions(n, opts) {
			continue
		}
		filtered = append(filtered, cloneNotification(*n))
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	start := opts.Offset
	if start > len(filtered) {
		return []Notification{}, nil
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(filtered) {
		end = len(filtered)
	}

	return filtered[start:end], nil
}

func (s *MemoryStorage) ListByStatus(ctx context.Context, statuses ...Status) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Notification
	for _, n := range s.notifications {
		for _, st := range statuses {
			if n.Status == st {
				out = append(out, cloneNotification(*n))
				break
			}
		}
	}
	return out, nil
}

func (s *MemoryStorage) MarkRead(ctx context.Context, userID string, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		n, ok := s.notifications[id]
		if !ok || n.UserID != userID {
			continue
		}
		n.MarkAsRead()
	}
	return nil
}

func (s *MemoryStorage) MarkAllRead(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.byUser[userID] {
		if n := s.notifications[id]; n != nil && !n.IsRead() {
			n.MarkAsRead()
		}
	}
	return nil
}

func (s *MemoryStorage) Delete(ctx context.Context, userID string, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		if n, ok := s.notifications[id]; ok && n.UserID == userID {
			idSet[id] = true
			delete(s.notifications, id)
		}
	}
	s.byUser[userID] = dropIDs(s.byUser[userID], idSet)
	return nil
}

func (s *MemoryStorage) DeleteExpired(ctx context.Context, createdBefore time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := make(map[string]map[string]bool) // userID -> ids
	for id, n := range s.notifications {
		// Records without an expiry are never retention-swept regardless of age.
		if n.ExpiresAt == nil || !n.IsExpired() {
			continue
		}
		if !n.CreatedAt.Before(createdBefore) {
			continue
		}
		if deleted[n.UserID] == nil {
			deleted[n.UserID] = make(map[string]bool)
		}
		deleted[n.UserID][id] = true
		delete(s.notifications, id)
	}

	count := 0
	for userID, idSet := range deleted {
		s.byUser[userID] = dropIDs(s.byUser[userID], idSet)
		count += len(idSet)
	}
	return count, nil
}

func (s *MemoryStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, id := range s.byUser[userID] {
		if n := s.notifications[id]; n != nil && !n.IsRead() && !n.IsExpired() {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStorage) Stats(ctx context.Context, userID string) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		ByStatus:  make(map[Status]int),
		ByType:    make(map[Type]int),
		ByChannel: make(map[Channel]int),
	}

	for _, n := range s.notifications {
		if userID != "" && n.UserID != userID {
			continue
		}
		stats.Total++
		if !n.IsRead() {
			stats.Unread++
		}
		stats.ByStatus[n.Status]++
		stats.ByType[n.Type]++
		for _, ch := range n.Channels {
			stats.ByChannel[ch]++
		}
	}
	return stats, nil
}

// GetPreferences implements PreferenceStorage.
func (s *MemoryStorage) GetPreferences(ctx context.Context, userID string) ([]Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefs := s.preferences[userID]
	out := make([]Preference, len(prefs))
	copy(out, prefs)
	return out, nil
}

// SetPreferences implements PreferenceStorage. The stored set is replaced
// wholesale, never merged.
func (s *MemoryStorage) SetPreferences(ctx context.Context, userID string, prefs []Preference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]Preference, len(prefs))
	copy(stored, prefs)
	for i := range stored {
		stored[i].UserID = userID
	}
	s.preferences[userID] = stored
	return nil
}

func (s *MemoryStorage) CreateTemplate(ctx context.Context, t Template) error {
	if t.ID == "" {
		return fmt.Errorf("%w: template id is required", ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.templates[t.ID]; exists {
		return fmt.Errorf("template %s already exists", t.ID)
	}
	stored := t
	s.templates[t.ID] = &stored
	return nil
}

func (s *MemoryStorage) GetTemplate(ctx context.Context, id string) (*Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.templates[id]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	out := *t
	return &out, nil
}

func (s *MemoryStorage) UpdateTemplate(ctx context.Context, t Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[t.ID]; !ok {
		return ErrTemplateNotFound
	}
	stored := t
	s.templates[t.ID] = &stored
	return nil
}

func (s *MemoryStorage) DeleteTemplate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[id]; !ok {
		return ErrTemplateNotFound
	}
	delete(s.templates, id)
	return nil
}

func (s *MemoryStorage) ListTemplates(ctx context.Context) ([]Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Template, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func matchesListOptions(n *Notification, opts ListOptions) bool {
	if n.IsExpired() {
		return false
	}
	if opts.OnlyUnread && n.IsRead() {
		return false
	}
	if len(opts.Statuses) > 0 {
		found := false
		for _, st := range opts.Statuses {
			if n.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(opts.Types) > 0 {
		found := false
		for _, t := range opts.Types {
			if n.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if opts.Since != nil && n.CreatedAt.Before(*opts.Since) {
		return false
	}
	return true
}

func cloneNotification(n Notification) Notification {
	out := n
	if n.Channels != nil {
		out.Channels = make([]Channel, len(n.Channels))
		copy(out.Channels, n.Channels)
	}
	if n.Data != nil {
		out.Data = make(map[string]any, len(n.Data))
		for k, v := range n.Data {
			out.Data[k] = v
		}
	}
	return out
}

func dropIDs(ids []string, remove map[string]bool) []string {
	if len(remove) == 0 {
		return ids
	}
	kept := ids[:0]
	for _, id := range ids {
		if !remove[id] {
			kept = append(kept, id)
		}
	}
	return kept
}
