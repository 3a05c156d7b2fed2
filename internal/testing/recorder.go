package testing

import (
	"mock-chat-backend/internal/events"
	"mock-chat-backend/internal/storage"
	"sync"
)

// Subscriber is satisfied by events.Bus and chat.Service
type Subscriber interface {
	On(name events.Name, handler events.Handler) func()
}

// Recorded is a single delivered event
type Recorded struct {
	Name    events.Name
	Payload interface{}
}

// Recorder keeps every event delivered to it, it is safe for concurrent use
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

// Record subscribes a new Recorder to all chat events of sub
func Record(sub Subscriber) (*Recorder, func()) {
	r := &Recorder{}

	var offs []func()
	for _, name := range []events.Name{events.Message, events.UserJoined, events.UserStatusChange} {
		name := name
		offs = append(offs, sub.On(name, func(payload interface{}) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, Recorded{Name: name, Payload: payload})
		}))
	}

	return r, func() {
		for _, off := range offs {
			off()
		}
	}
}

// Events returns a copy of recorded events in delivery order
func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Recorded, len(r.events))
	copy(out, r.events)
	return out
}

// Names returns names of recorded events in delivery order
func (r *Recorder) Names() []events.Name {
	var names []events.Name
	for _, e := range r.Events() {
		names = append(names, e.Name)
	}
	return names
}

// Count returns the number of recorded events with provided name
func (r *Recorder) Count(name events.Name) int {
	n := 0
	for _, e := range r.Events() {
		if e.Name == name {
			n++
		}
	}
	return n
}

// Messages returns payloads of recorded message events
func (r *Recorder) Messages() []storage.Message {
	var out []storage.Message
	for _, e := range r.Events() {
		if m, ok := e.Payload.(storage.Message); ok {
			out = append(out, m)
		}
	}
	return out
}

// Users returns payloads of recorded userJoined and userStatusChange events
func (r *Recorder) Users() []storage.User {
	var out []storage.User
	for _, e := range r.Events() {
		if u, ok := e.Payload.(storage.User); ok {
			out = append(out, u)
		}
	}
	return out
}
