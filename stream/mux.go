// Package stream feeds the engine from the live side of the system: a
// websocket consumer with reconnect, conversion of push payloads into
// canonical hotspot records, an optional raw-frame capture spool, and a
// generic fan-out mux for delivering engine events to any number of
// listeners.
package stream

import (
	"sync"

	"github.com/google/uuid"
)

// subscriberBuffer bounds how far an event listener may lag before
// publishes to it are dropped.
const subscriberBuffer = 16

// Mux is a subscribe/unsubscribe fan-out for values of type T. Publish
// never blocks: a subscriber that stops draining its channel misses
// events rather than stalling the publisher.
type Mux[T any] struct {
	mu          sync.Mutex
	subscribers map[string]chan T
	closed      bool
}

// NewMux returns an empty mux.
func NewMux[T any]() *Mux[T] {
	return &Mux[T]{subscribers: make(map[string]chan T)}
}

// Subscribe registers a new listener and returns its id along with the
// receive channel. The id identifies the channel when unsubscribing.
func (m *Mux[T]) Subscribe() (string, <-chan T) {
	id := uuid.NewString()
	ch := make(chan T, subscriberBuffer)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		close(ch)
		return id, ch
	}
	m.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a listener and closes its channel. Unknown ids
// are ignored.
func (m *Mux[T]) Unsubscribe(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.subscribers[id]; ok {
		close(ch)
		delete(m.subscribers, id)
	}
}

// Publish delivers v to every subscriber whose buffer has room.
func (m *Mux[T]) Publish(v T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	for _, ch := range m.subscribers {
		select {
		case ch <- v:
		default:
		}
	}
}

// Len returns the number of live subscribers.
func (m *Mux[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers)
}

// Close closes every subscriber channel and shuts the mux down. Further
// publishes are dropped and further subscriptions return closed
// channels.
func (m *Mux[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for id, ch := range m.subscribers {
		close(ch)
		delete(m.subscribers, id)
	}
}
