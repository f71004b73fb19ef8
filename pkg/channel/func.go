package channel

import (
	"context"

	"github.com/notifykit/notifykit/pkg/notify"
)

// FuncAdapter adapts a plain function into a notify.Adapter. Useful for
// tests and for channels too small to deserve a dedicated type.
type FuncAdapter struct {
	channel notify.Channel
	deliver func(ctx context.Context, n notify.Notification) error
}

// NewFunc wraps fn as an adapter for the given channel.
func NewFunc(ch notify.Channel, fn func(ctx context.Context, n notify.Notification) error) *FuncAdapter {
	return &FuncAdapter{channel: ch, deliver: fn}
}

func (f *FuncAdapter) Channel() notify.Channel { return f.channel }

func (f *FuncAdapter) Deliver(ctx context.Context, n notify.Notification) error {
	return f.deliver(ctx, n)
}
