// Package bus is the shared event bus drag services publish lifecycle
// events on.
//
// Events are identified by name and carry a positional argument list. The
// drag service always puts the bag name first, so a handler for "drop"
// receives [bag, element, target, source, sibling].
package bus

import (
	"log/slog"
	"sync"
)

// Handler receives the arguments of one emitted event.
type Handler func(args []any)

// Emitter publishes events.
type Emitter interface {
	Emit(event string, args []any)
}

// Subscriber registers handlers for events.
type Subscriber interface {
	On(event string, h Handler) (off func())
}

// subscription is one registered handler.
type subscription struct {
	id uint64
	h  Handler
}

// Bus is an in-process publish/subscribe hub. It is safe for concurrent use.
// Handlers run synchronously on the emitting goroutine, in registration
// order, and must not block.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]subscription
	nextID uint64
	logger *slog.Logger
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		subs:   make(map[string][]subscription),
		logger: slog.Default().With("component", "bus"),
	}
}

// SetLogger sets the logger used to report handler panics.
func (b *Bus) SetLogger(logger *slog.Logger) {
	b.logger = logger
}

// On registers h for event and returns a function that removes it.
// The returned function is safe to call more than once.
func (b *Bus) On(event string, h Handler) func() {
	if h == nil {
		return func() {}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[event] = append(b.subs[event], subscription{id: id, h: h})
	b.mu.Unlock()

	return func() { b.off(event, id) }
}

// OnMany registers every handler in handlers, keyed by event name, and
// returns a function that removes all of them.
func (b *Bus) OnMany(handlers map[string]Handler) func() {
	offs := make([]func(), 0, len(handlers))
	for event, h := range handlers {
		offs = append(offs, b.On(event, h))
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

func (b *Bus) off(event string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[event]
	for i, s := range subs {
		if s.id == id {
			b.subs[event] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[event]) == 0 {
		delete(b.subs, event)
	}
}

// Emit delivers args to every handler registered for event.
// A panicking handler is logged and does not stop delivery to the rest.
func (b *Bus) Emit(event string, args []any) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs[event]))
	copy(subs, b.subs[event])
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(event, s.h, args)
	}
}

func (b *Bus) deliver(event string, h Handler, args []any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bus handler panic", "event", event, "panic", r)
		}
	}()
	h(args)
}

// Count returns the number of handlers registered for event.
func (b *Bus) Count(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[event])
}
