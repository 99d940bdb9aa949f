package events

import "context"

// EventPublisher receives one InvocationEvent per completed action call.
// Implementations are called on the invoking goroutine, after the response
// envelope has been read, and must be safe for concurrent use.
type EventPublisher interface {
	PublishInvoked(ctx context.Context, event *InvocationEvent) error
}

// NoOpPublisher drops every event. It stands in when PUBLISH_EVENTS is off.
type NoOpPublisher struct{}

func (*NoOpPublisher) PublishInvoked(context.Context, *InvocationEvent) error { return nil }

// CallbackPublisher hands events to a function, e.g. to collect them in tests
// or forward them to an in-process sink.
type CallbackPublisher struct {
	fn func(ctx context.Context, event *InvocationEvent) error
}

// NewCallbackPublisher wraps fn. A nil fn behaves like NoOpPublisher.
func NewCallbackPublisher(fn func(ctx context.Context, event *InvocationEvent) error) *CallbackPublisher {
	return &CallbackPublisher{fn: fn}
}

func (p *CallbackPublisher) PublishInvoked(ctx context.Context, event *InvocationEvent) error {
	if p.fn == nil {
		return nil
	}
	return p.fn(ctx, event)
}
