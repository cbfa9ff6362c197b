package events

import "context"

// All matches every event name or every category when used at registration
const All = "all"

// DefaultPriority is used by Register; lower priorities run first
const DefaultPriority = 500

// Handler receives an event. Returning false vetoes the event and stops
// propagation to later handlers.
type Handler func(ctx context.Context, event, category string, payload interface{}) bool

// Emitter publishes events synchronously
type Emitter interface {
	Trigger(ctx context.Context, event, category string, payload interface{}) bool
}

type handlerKey struct {
	event    string
	category string
}

type registration struct {
	priority int
	seq      uint64
	fn       Handler
}
