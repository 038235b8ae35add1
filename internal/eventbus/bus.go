package eventbus

import (
	"sync"

	"bitchat/internal/domain"
)

// SubscriberCapacity bounds how many undelivered events a subscriber may
// queue before Emit drops further events for it rather than blocking the
// publisher. A slow subscriber should not be able to stall the mesh loop.
const SubscriberCapacity = 64

// Bus is a typed, in-process publish/subscribe fan-out. It implements
// domain.EventEmitter, so any component that only needs to publish can
// depend on that narrower interface instead of this concrete type.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan domain.Event
	next int
}

var _ domain.EventEmitter = (*Bus)(nil)

// New returns an empty event bus.
func New() *Bus {
	return &Bus{subs: make(map[int]chan domain.Event)}
}

// Emit fans e out to every current subscriber. A subscriber whose queue is
// full drops this event rather than blocking the caller — events report
// state transitions a poller can re-derive, not a guaranteed delivery log.
func (b *Bus) Emit(e domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a new listener and returns its channel along with an
// unsubscribe function. Callers must call unsubscribe when done, or the
// channel leaks for the life of the Bus.
func (b *Bus) Subscribe() (<-chan domain.Event, func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	ch := make(chan domain.Event, SubscriberCapacity)
	b.subs[id] = ch
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if ch, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
	return ch, unsubscribe
}

// OnFavoriteStatusChanged is a convenience wrapper around Subscribe that
// only invokes handler for FavoriteStatusChanged events, running handler on
// its own goroutine until stop is called.
func (b *Bus) OnFavoriteStatusChanged(handler func(domain.FavoriteStatusChangedEvent)) (stop func()) {
	ch, unsubscribe := b.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range ch {
			if e.FavoriteStatusChanged != nil {
				handler(*e.FavoriteStatusChanged)
			}
		}
	}()
	return func() {
		unsubscribe()
		<-done
	}
}
