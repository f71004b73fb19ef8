package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/notifykit/notifykit/pkg/logger"
)

// Sender is the single-send path the bulk coordinator expands into.
// *Manager satisfies it.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (*Notification, error)
}

// BulkRequest addresses one logical notification to many recipients.
type BulkRequest struct {
	UserIDs    []string       `json:"user_ids"`
	Type       Type           `json:"type"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Data       map[string]any `json:"data,omitempty"`
	Channels   []Channel      `json:"channels,omitempty"`
	Priority   Priority       `json:"priority,omitempty"`
	TemplateID string         `json:"template_id,omitempty"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
}

// BulkResult carries aggregate outcome counts, not per-recipient detail.
type BulkResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// BulkCoordinator expands a bulk request into per-recipient single-send calls
// under a fixed concurrency cap, pacing between batches to bound simultaneous
// load on channel adapters.
type BulkCoordinator struct {
	sender    Sender
	batchSize int
	pause     time.Duration
	logger    *slog.Logger
}

// NewBulkCoordinator creates a bulk coordinator around the given sender.
func NewBulkCoordinator(sender Sender, opts ...BulkOption) (*BulkCoordinator, error) {
	if sender == nil {
		return nil, fmt.Errorf("%w: sender is required", ErrInvalidRequest)
	}

	options := &bulkOptions{
		batchSize: 100,
		pause:     100 * time.Millisecond,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &BulkCoordinator{
		sender:    sender,
		batchSize: options.batchSize,
		pause:     options.pause,
		logger:    options.logger,
	}, nil
}

// SendBulk fans the request out to every recipient. Per-recipient failures
// are isolated: they are counted, never propagated, and never abort the
// remaining recipients. An empty recipient list fails the whole request.
func (b *BulkCoordinator) SendBulk(ctx context.Context, req BulkRequest) (BulkResult, error) {
	if len(req.UserIDs) == 0 {
		return BulkResult{}, ErrEmptyRecipients
	}

	var sent, failed atomic.Int64

	for start := 0; start < len(req.UserIDs); start += b.batchSize {
		end := min(start+b.batchSize, len(req.UserIDs))

		var wg sync.WaitGroup
		for _, userID := range req.UserIDs[start:end] {
			wg.Add(1)
			go func(userID string) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						failed.Add(1)
						b.logger.LogAttrs(ctx, slog.LevelError, "bulk send panicked",
							logger.UserID(userID),
							slog.Any("panic", r),
						)
					}
				}()

				if _, err := b.sender.Send(ctx, b.perRecipient(req, userID)); err != nil {
					failed.Add(1)
					b.logger.LogAttrs(ctx, slog.LevelWarn, "bulk send failed for recipient",
						logger.UserID(userID),
						logger.Error(err),
					)
					return
				}
				sent.Add(1)
			}(userID)
		}
		wg.Wait()

		// Pace between batches, but not after the last one.
		if end < len(req.UserIDs) && b.pause > 0 {
			select {
			case <-ctx.Done():
				return BulkResult{Sent: int(sent.Load()), Failed: int(failed.Load())}, ctx.Err()
			case <-time.After(b.pause):
			}
		}
	}

	result := BulkResult{Sent: int(sent.Load()), Failed: int(failed.Load())}
	b.logger.LogAttrs(ctx, slog.LevelInfo, "bulk send finished",
		logger.Count(len(req.UserIDs)),
		slog.Int("sent", result.Sent),
		slog.Int("failed", result.Failed),
	)
	return result, nil
}

func (b *BulkCoordinator) perRecipient(req BulkRequest, userID string) SendRequest {
	return SendRequest{
		UserID:     userID,
		Type:       req.Type,
		Title:      req.Title,
		Message:    req.Message,
		Data:       req.Data,
		Channels:   req.Channels,
		Priority:   req.Priority,
		TemplateID: req.TemplateID,
		ExpiresAt:  req.ExpiresAt,
	}
}
