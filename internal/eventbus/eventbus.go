package eventbus

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
)

// Handler processes events of type T.
type Handler[T any] func(context.Context, T)

// Bus is an in-process event dispatcher keyed by the event's dynamic type.
// Dispatch is synchronous: Publish returns after every handler ran.
type Bus struct {
	mu      sync.RWMutex
	nextID  int
	byEvent map[reflect.Type]map[int]func(context.Context, any)
}

// New creates a new Bus.
func New() *Bus {
	return &Bus{byEvent: make(map[reflect.Type]map[int]func(context.Context, any))}
}

func (b *Bus) subscribe(t reflect.Type, h func(context.Context, any)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	handlers := b.byEvent[t]
	if handlers == nil {
		handlers = make(map[int]func(context.Context, any))
		b.byEvent[t] = handlers
	}
	handlers[id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.byEvent[t], id)
		if len(b.byEvent[t]) == 0 {
			delete(b.byEvent, t)
		}
	}
}

func (b *Bus) emit(ctx context.Context, e any) {
	if b == nil {
		return
	}
	t := reflect.TypeOf(e)
	b.mu.RLock()
	handlers := make([]func(context.Context, any), 0, len(b.byEvent[t]))
	for _, h := range b.byEvent[t] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, e)
	}
}

var global atomic.Pointer[Bus]

// Use sets the global bus. Passing nil disables event publishing.
func Use(b *Bus) { global.Store(b) }

// Subscribe registers h with the global bus.
func Subscribe[T any](h Handler[T]) (unsubscribe func()) {
	b := global.Load()
	if b == nil {
		return func() {}
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	return b.subscribe(t, func(ctx context.Context, v any) { h(ctx, v.(T)) })
}

// Publish sends e through the global bus.
func Publish[T any](ctx context.Context, e T) {
	if b := global.Load(); b != nil {
		b.emit(ctx, e)
	}
}
