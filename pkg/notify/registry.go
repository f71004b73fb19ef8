package notify

import (
	"context"
	"sync"
)

// Adapter is the uniform delivery contract every channel implements. Adapters
// own their protocol (SMTP, SMS gateway, push service, outbound webhook) and
// report failure through the returned error; they should not panic, but the
// dispatcher recovers panics defensively on their behalf.
type Adapter interface {
	// Channel returns the identifier the adapter serves.
	Channel() Channel

	// Deliver sends one notification through the adapter's medium.
	Deliver(ctx context.Context, n Notification) error
}

// Registry maps channel identifiers to adapters. New channels extend the
// registry; there is no branch-per-channel anywhere in the engine.
type Registry struct {
	mu       sync.RWMutex
	adapters map[Channel]Adapter
}

// NewRegistry creates a registry pre-populated with the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[Channel]Adapter, len(adapters))}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces the adapter for its channel.
func (r *Registry) Register(a Adapter) {
	if a == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Channel()] = a
}

// Get returns the adapter registered for the channel.
func (r *Registry) Get(ch Channel) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[ch]
	return a, ok
}

// Channels returns the identifiers with a registered adapter.
func (r *Registry) Channels() []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Channel, 0, len(r.adapters))
	for ch := range r.adapters {
		out = append(out, ch)
	}
	return out
}
