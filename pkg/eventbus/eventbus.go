// Package eventbus defines the contract for publishing and consuming
// application events.
package eventbus

import "context"

// Event is implemented by every published event.
type Event interface {
	Type() string
}

// HandlerFunc processes one event.
type HandlerFunc func(ctx context.Context, event Event) error

// Bus publishes events and dispatches them to registered handlers.
type Bus interface {
	Emit(ctx context.Context, event Event) error
	Register(eventType string, handler HandlerFunc)
}
