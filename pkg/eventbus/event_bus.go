// Package eventbus provides publish/subscribe infrastructure for execution lifecycle events.
package eventbus

import (
	"context"

	"github.com/quartetdev/quartet/pkg/events"
)

type EventHandler func(ctx context.Context, event events.Event) error

// EventBus distributes execution lifecycle events. Handlers are registered
// per event type before Subscribe is called.
type EventBus interface {
	Publish(ctx context.Context, key string, event events.Event) error
	Handle(eventType events.EventType, handler EventHandler)
	Subscribe(ctx context.Context) error
	Close(ctx context.Context) error
	GenerateID() string
}
