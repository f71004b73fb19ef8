package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage implements Storage on top of Redis, giving the engine a
// durable variant behind the same contract: notifications survive process
// restarts and the janitor's retry sweep can resume deliveries whose
// in-process timers were lost.
//
// Layout: one JSON value per notification, plus per-user and per-status sets
// used as indexes.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// RedisStorageOption configures a RedisStorage.
type RedisStorageOption func(*RedisStorage)

// WithKeyPrefix overrides the default "notify" key prefix.
func WithKeyPrefix(prefix string) RedisStorageOption {
	return func(s *RedisStorage) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisStorage creates a Redis-backed notification storage.
func NewRedisStorage(client *redis.Client, opts ...RedisStorageOption) (*RedisStorage, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: redis client is required", ErrStorageNil)
	}

	s := &RedisStorage{client: client, prefix: "notify"}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *RedisStorage) key(id string) string {
	return s.prefix + ":notification:" + id
}

func (s *RedisStorage) userKey(userID string) string {
	return s.prefix + ":user:" + userID
}

func (s *RedisStorage) statusKey(status Status) string {
	return s.prefix + ":status:" + string(status)
}

func (s *RedisStorage) Create(ctx context.Context, n Notification) error {
	if n.ID == "" {
		return fmt.Errorf("%w: notification id is required", ErrInvalidRequest)
	}
	if n.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(n.ID), payload, 0)
		pipe.SAdd(ctx, s.userKey(n.UserID), n.ID)
		pipe.SAdd(ctx, s.statusKey(n.Status), n.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	return nil
}

func (s *RedisStorage) Get(ctx context.Context, id string) (*Notification, error) {
	payload, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load notification: %w", err)
	}

	var n Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notification: %w", err)
	}
	return &n, nil
}

func (s *RedisStorage) Update(ctx context.Context, n Notification) error {
	old, err := s.Get(ctx, n.ID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(n.ID), payload, 0)
		if old.Status != n.Status {
			pipe.SRem(ctx, s.statusKey(old.Status), n.ID)
			pipe.SAdd(ctx, s.statusKey(n.Status), n.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	return nil
}

func (s *RedisStorage) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	all, err := s.loadSet(ctx, s.userKey(userID))
	if err != nil {
		return nil, err
	}

	var filtered []Notification
	for i := range all {
		n := &all[i]
		if matchesListOptions(n, opts) {
			filtered = append(filtered, *n)
		}
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

func (s *RedisStorage) ListByStatus(ctx context.Context, statuses ...Status) ([]Notification, error) {
	var out []Notification
	for _, st := range statuses {
		batch, err := s.loadSet(ctx, s.statusKey(st))
		if err != nil {
			return nil, err
		}
		// The status index may lag the record itself; trust the record.
		for _, n := range batch {
			if n.Status == st {
				out = append(out, n)
			}
		}
	}
	return out, nil
}

func (s *RedisStorage) MarkRead(ctx context.Context, userID string, ids ...string) error {
	for _, id := range ids {
		n, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotificationNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if n.UserID != userID || n.IsRead() {
			continue
		}
		n.MarkAsRead()
		if err := s.Update(ctx, *n); err != nil {
			return err
		}
	}
	return nil
}

func (s *RedisStorage) MarkAllRead(ctx context.Context, userID string) error {
	ids, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to load user index: %w", err)
	}
	return s.MarkRead(ctx, userID, ids...)
}

func (s *RedisStorage) Delete(ctx context.Context, userID string, ids ...string) error {
	for _, id := range ids {
		n, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotificationNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if n.UserID != userID {
			continue
		}
		if err := s.remove(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (s *RedisStorage) DeleteExpired(ctx context.Context, createdBefore time.Time) (int, error) {
	all, err := s.loadAll(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for i := range all {
		n := &all[i]
		if n.ExpiresAt == nil || !n.IsExpired() {
			continue
		}
		if !n.CreatedAt.Before(createdBefore) {
			continue
		}
		if err := s.remove(ctx, n); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func (s *RedisStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	all, err := s.loadSet(ctx, s.userKey(userID))
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range all {
		if !all[i].IsRead() && !all[i].IsExpired() {
			count++
		}
	}
	return count, nil
}

func (s *RedisStorage) Stats(ctx context.Context, userID string) (Stats, error) {
	var (
		all []Notification
		err error
	)
	if userID == "" {
		all, err = s.loadAll(ctx)
	} else {
		all, err = s.loadSet(ctx, s.userKey(userID))
	}
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		ByStatus:  make(map[Status]int),
		ByType:    make(map[Type]int),
		ByChannel: make(map[Channel]int),
	}
	for i := range all {
		n := &all[i]
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

func (s *RedisStorage) remove(ctx context.Context, n *Notification) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(n.ID))
		pipe.SRem(ctx, s.userKey(n.UserID), n.ID)
		pipe.SRem(ctx, s.statusKey(n.Status), n.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}

// loadSet fetches every notification referenced by the given index set,
// dropping dangling ids.
func (s *RedisStorage) loadSet(ctx context.Context, setKey string) ([]Notification, error) {
	ids, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load index %s: %w", setKey, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load notifications: %w", err)
	}

	out := make([]Notification, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var n Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notification: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *RedisStorage) loadAll(ctx context.Context) ([]Notification, error) {
	statuses := []Status{
		StatusPending, StatusScheduled, StatusSent,
		StatusDelivered, StatusFailed, StatusCancelled,
	}

	var out []Notification
	seen := make(map[string]bool)
	for _, st := range statuses {
		batch, err := s.loadSet(ctx, s.statusKey(st))
		if err != nil {
			return nil, err
		}
		for _, n := range batch {
			if !seen[n.ID] {
				seen[n.ID] = true
				out = append(out, n)
			}
		}
	}
	return out, nil
}
