package channel

import (
	"context"
	"sync"

	"github.com/notifykit/notifykit/pkg/notify"
)

// InApp is the zero-configuration in-app channel: delivery means handing the
// notification to live subscribers of the recipient. A user with no active
// subscriber still counts as delivered, since the record itself is the inbox
// and is readable through storage at any time.
type InApp struct {
	bufferSize int

	mu     sync.RWMutex
	subs   map[string]map[chan notify.Notification]struct{}
	closed bool
}

// NewInApp creates an in-app adapter. bufferSize is the per-subscriber
// channel buffer; slow subscribers whose buffer is full miss messages rather
// than block deliveries.
func NewInApp(bufferSize int) *InApp {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &InApp{
		bufferSize: bufferSize,
		subs:       make(map[string]map[chan notify.Notification]struct{}),
	}
}

func (a *InApp) Channel() notify.Channel { return notify.ChannelInApp }

// Deliver pushes the notification to every live subscriber of the user.
// Sends never block: a full subscriber buffer drops the message for that
// subscriber only.
func (a *InApp) Deliver(ctx context.Context, n notify.Notification) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return ErrClosed
	}

	for ch := range a.subs[n.UserID] {
		select {
		case ch <- n:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel receiving the user's notifications as they are
// delivered. The subscription ends when ctx is done; the returned channel is
// closed then.
func (a *InApp) Subscribe(ctx context.Context, userID string) (<-chan notify.Notification, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, ErrClosed
	}

	ch := make(chan notify.Notification, a.bufferSize)
	if a.subs[userID] == nil {
		a.subs[userID] = make(map[chan notify.Notification]struct{})
	}
	a.subs[userID][ch] = struct{}{}

	go func() {
		<-ctx.Done()
		a.unsubscribe(userID, ch)
	}()

	return ch, nil
}

func (a *InApp) unsubscribe(userID string, ch chan notify.Notification) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.subs[userID][ch]; !ok {
		return
	}
	delete(a.subs[userID], ch)
	if len(a.subs[userID]) == 0 {
		delete(a.subs, userID)
	}
	close(ch)
}

// SubscriberCount reports the number of live subscribers for a user.
func (a *InApp) SubscriberCount(userID string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.subs[userID])
}

// Close drops all subscriptions and closes their channels. Subsequent
// Deliver and Subscribe calls return ErrClosed.
func (a *InApp) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	for userID, set := range a.subs {
		for ch := range set {
			close(ch)
		}
		delete(a.subs, userID)
	}
	return nil
}
