package event

import (
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Bus is a double-buffered event bus for game events. Events emitted during
// tick N are delivered at the start of tick N+1, after Swap. Emit, Swap, and
// Dispatch run on the game loop goroutine; only handler registration is
// guarded for startup wiring.
//
// Handlers are stored as pre-bound closures, so reflection is only paid once
// per Subscribe, not on every delivery. A panicking handler is logged and
// skipped; the tick never dies to a bad subscriber.
type Bus struct {
	mu       sync.Mutex
	front    map[reflect.Type][]any
	back     map[reflect.Type][]any
	handlers map[reflect.Type][]handler
	log      *zap.Logger
}

type handler struct {
	name string
	fn   func(any)
}

func NewBus(log *zap.Logger) *Bus {
	return &Bus{
		front:    make(map[reflect.Type][]any),
		back:     make(map[reflect.Type][]any),
		handlers: make(map[reflect.Type][]handler),
		log:      log,
	}
}

func typeKey[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Emit queues an event into the back buffer. Main goroutine only.
func Emit[T any](b *Bus, ev T) {
	t := typeKey[T]()
	b.back[t] = append(b.back[t], ev)
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := typeKey[T]()
	b.handlers[t] = append(b.handlers[t], handler{
		name: t.Name(),
		fn:   func(ev any) { fn(ev.(T)) },
	})
}

// Swap rotates back→front and clears the new back buffer. Called once at
// tick start, before Dispatch.
func (b *Bus) Swap() {
	b.front, b.back = b.back, b.front
	for k := range b.back {
		b.back[k] = b.back[k][:0]
	}
}

// Dispatch delivers all front-buffer events to their subscribed handlers.
func (b *Bus) Dispatch() {
	for t, events := range b.front {
		for _, ev := range events {
			for _, h := range b.handlers[t] {
				b.deliver(h, ev)
			}
		}
	}
}

func (b *Bus) deliver(h handler, ev any) {
	defer func() {
		if rec := recover(); rec != nil {
			b.log.Error("event handler panic recovered",
				zap.String("event", h.name),
				zap.Any("panic", rec),
			)
		}
	}()
	h.fn(ev)
}

// Pending returns the number of events waiting in the back buffer, for the
// overload warning in the game loop's tick accounting.
func (b *Bus) Pending() int {
	n := 0
	for _, events := range b.back {
		n += len(events)
	}
	return n
}
