package coordinator

import (
	"sync"

	"provwatch/features/providers"

	"github.com/rs/zerolog/log"
)

// Snapshot is the full status table as delivered to observers.
type Snapshot = map[string]providers.StatusRecord

// Listener receives the full current snapshot on every mutation. Listeners
// must not block; slow consumers should buffer on their own side.
type Listener func(Snapshot)

// Bus fans status snapshots out to registered listeners. A panicking
// listener is isolated and logged; it never prevents the remaining listeners
// from being notified and never propagates to the publisher.
type Bus struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener
}

func NewBus() *Bus {
	return &Bus{listeners: make(map[int]Listener)}
}

// Subscribe registers a listener and returns its unsubscribe function.
func (b *Bus) Subscribe(l Listener) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = l
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// Publish delivers the snapshot to every listener in turn.
func (b *Bus) Publish(snapshot Snapshot) {
	b.mu.RLock()
	listeners := make([]Listener, 0, len(b.listeners))
	for _, l := range b.listeners {
		listeners = append(listeners, l)
	}
	b.mu.RUnlock()

	for _, l := range listeners {
		b.notify(l, snapshot)
	}
}

func (b *Bus) notify(l Listener, snapshot Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Status listener panicked during notification")
		}
	}()
	l(snapshot)
}

// Len returns the number of registered listeners.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}
