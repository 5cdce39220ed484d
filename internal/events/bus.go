package events

import (
	"sync"

	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// Handler receives the payload published for the event it is subscribed to.
type Handler func(payload interface{})

// Bus is a synchronous publish/subscribe broker. Handlers for a name run in
// subscription order, in the publisher's goroutine. A handler may publish
// further events; nested publishes run to completion before the outer
// publish's remaining handlers. Checkout step transitions rely on this
// depth-first ordering.
//
// Bus itself is not a serialization point: callers that need single-writer
// semantics (the flow controller) hold their own lock around Publish.
type Bus struct {
	mu       sync.Mutex
	handlers map[string][]*subscription
	nextID   uint64
	logger   *zap.Logger
}

type subscription struct {
	id      uint64
	handler Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]*subscription),
		logger:   util.GetLogger(),
	}
}

// Subscribe registers handler for name and returns a function that removes
// the registration.
func (b *Bus) Subscribe(name string, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &subscription{id: b.nextID, handler: handler}
	b.handlers[name] = append(b.handlers[name], sub)

	id := sub.id
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.handlers[name]
		for i, s := range subs {
			if s.id == id {
				b.handlers[name] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish invokes every handler subscribed to name, synchronously and in
// subscription order. A panicking handler is recovered and logged so that
// sibling handlers still run.
func (b *Bus) Publish(name string, payload interface{}) {
	b.mu.Lock()
	subs := make([]*subscription, len(b.handlers[name]))
	copy(subs, b.handlers[name])
	b.mu.Unlock()

	for _, sub := range subs {
		b.invoke(name, sub, payload)
	}
}

func (b *Bus) invoke(name string, sub *subscription, payload interface{}) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked",
				zap.String("event", name),
				zap.Any("panic", r))
		}
	}()
	sub.handler(payload)
}
