// Package events implements the synchronous in-process publish/subscribe registry
// used to notify listeners about chat state changes.
package events

import (
	"go.uber.org/zap"
	"sync"
)

// Name identifies an event kind
type Name string

const (
	// Message carries a storage.Message
	Message Name = "message"
	// UserJoined carries the newly created storage.User
	UserJoined Name = "userJoined"
	// UserStatusChange carries the storage.User whose presence changed
	UserStatusChange Name = "userStatusChange"
)

// Handler receives the event payload
type Handler func(payload interface{})

type subscription struct {
	id      uint64
	handler Handler
}

// Bus delivers events to handlers synchronously in registration order
type Bus struct {
	logger *zap.SugaredLogger

	mu       sync.RWMutex
	nextID   uint64
	handlers map[Name][]subscription
}

func NewBus(logger *zap.SugaredLogger) *Bus {
	return &Bus{
		logger:   logger,
		handlers: make(map[Name][]subscription),
	}
}

// On registers handler for name and returns a function removing it.
// The returned function may be called more than once.
func (b *Bus) On(name Name, handler Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[name] = append(b.handlers[name], subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.off(name, id) })
	}
}

func (b *Bus) off(name Name, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[name]
	for i, sub := range subs {
		if sub.id == id {
			// copy so that an in-flight Emit keeps iterating its own slice
			b.handlers[name] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Emit calls every handler registered for name with payload.
// A panicking handler is logged and does not stop delivery to the others.
func (b *Bus) Emit(name Name, payload interface{}) {
	b.mu.RLock()
	subs := b.handlers[name]
	b.mu.RUnlock()

	for _, sub := range subs {
		b.deliver(name, sub.handler, payload)
	}
}

func (b *Bus) deliver(name Name, handler Handler, payload interface{}) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Errorf("Handler for %s event panicked: %v", name, r)
		}
	}()

	handler(payload)
}

// HandlerCount returns the number of handlers registered for name
func (b *Bus) HandlerCount(name Name) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.handlers[name])
}
