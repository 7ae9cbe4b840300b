package event

import (
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Bus is a double-buffered event bus. Events emitted in tick N are readable
// in tick N+1. SwapBuffers() is called at tick start by EventDispatchSystem.
//
// Events are delivered in emission order across all types. Delivery is
// fire-and-forget: a handler that panics is logged and skipped, and the
// remaining handlers and events still run.
type Bus struct {
	mu       sync.Mutex // only protects handler registration
	front    []queued
	back     []queued
	handlers map[reflect.Type][]func(any)
	log      *zap.Logger
}

type queued struct {
	t  reflect.Type
	ev any
}

func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		handlers: make(map[reflect.Type][]func(any)),
		log:      log,
	}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Emit queues an event into the back buffer (will be readable next tick).
// A nil bus drops the event.
func Emit[T any](b *Bus, event T) {
	if b == nil {
		return
	}
	b.back = append(b.back, queued{t: typeOf[T](), ev: event})
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := typeOf[T]()
	b.handlers[t] = append(b.handlers[t], func(ev any) { fn(ev.(T)) })
}

// SwapBuffers rotates back→front and clears the new back buffer.
// Called once at tick start.
func (b *Bus) SwapBuffers() {
	b.front, b.back = b.back, b.front[:0]
}

// DispatchAll delivers all front-buffer events to their subscribed handlers
// in the order they were emitted. Returns the number of events delivered.
func (b *Bus) DispatchAll() int {
	events := b.front
	for _, q := range events {
		for _, h := range b.handlers[q.t] {
			b.call(q.t, h, q.ev)
		}
	}
	b.front = events[:0]
	return len(events)
}

// Pending returns the number of events waiting in the back buffer.
func (b *Bus) Pending() int {
	return len(b.back)
}

func (b *Bus) call(t reflect.Type, h func(any), ev any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Warn("event handler panic",
				zap.String("event", t.String()),
				zap.Any("panic", r),
			)
		}
	}()
	h(ev)
}
