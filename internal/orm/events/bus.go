// Package events is a synchronous publish/subscribe bus. Subscribers are
// keyed by event name and category and may veto an event by returning false.
package events

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Bus dispatches events to registered handlers in priority order
type Bus struct {
	mu       sync.RWMutex
	handlers map[handlerKey][]registration
	seq      uint64
	logger   *zap.Logger
}

// Option configures a Bus
type Option func(*Bus)

// WithLogger sets the logger used to report vetoes
func WithLogger(logger *zap.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// NewBus creates an empty event bus
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		handlers: make(map[handlerKey][]registration),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Register subscribes fn to event/category at the default priority.
// Either argument may be All.
func (b *Bus) Register(event, category string, fn Handler) {
	b.RegisterWithPriority(event, category, DefaultPriority, fn)
}

// RegisterWithPriority subscribes fn to event/category. Handlers with equal
// priority run in registration order.
func (b *Bus) RegisterWithPriority(event, category string, priority int, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	key := handlerKey{event: event, category: category}
	b.handlers[key] = append(b.handlers[key], registration{
		priority: priority,
		seq:      b.seq,
		fn:       fn,
	})
}

// HasHandlers returns true if any handler would receive event/category
func (b *Bus) HasHandlers(event, category string) bool {
	return len(b.collect(event, category)) > 0
}

// Trigger runs every matching handler. It returns false as soon as a
// handler vetoes; remaining handlers are skipped.
func (b *Bus) Trigger(ctx context.Context, event, category string, payload interface{}) bool {
	for _, reg := range b.collect(event, category) {
		if !reg.fn(ctx, event, category, payload) {
			b.logger.Debug("event vetoed",
				zap.String("event", event),
				zap.String("category", category),
				zap.Int("priority", reg.priority),
			)
			return false
		}
	}
	return true
}

// collect gathers exact, per-event, per-category and global handlers
func (b *Bus) collect(event, category string) []registration {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := []handlerKey{
		{event: event, category: category},
		{event: event, category: All},
		{event: All, category: category},
		{event: All, category: All},
	}

	seen := make(map[handlerKey]bool, len(keys))
	var regs []registration
	for _, key := range keys {
		if seen[key] {
			continue
		}
		seen[key] = true
		regs = append(regs, b.handlers[key]...)
	}

	sort.SliceStable(regs, func(i, j int) bool {
		if regs[i].priority != regs[j].priority {
			return regs[i].priority < regs[j].priority
		}
		return regs[i].seq < regs[j].seq
	})
	return regs
}
