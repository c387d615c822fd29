package session

import (
	"context"
	"sort"
	"sync"
)

// Broker is an in-memory Store. Listeners are called synchronously and in
// publish order; a listener must not call Publish itself.
type Broker struct {
	delivery sync.Mutex

	mu        sync.Mutex
	current   *Session
	listeners map[uint64]Listener
	nextID    uint64
}

func NewBroker(initial *Session) *Broker {
	return &Broker{
		current:   initial.Clone(),
		listeners: make(map[uint64]Listener),
	}
}

func (b *Broker) Current(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current.Clone(), nil
}

func (b *Broker) Subscribe(fn Listener) *Subscription {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.mu.Unlock()

	return NewSubscription(func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	})
}

func (b *Broker) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

// Publish replaces the current session and notifies every listener.
func (b *Broker) Publish(kind EventKind, s *Session) {
	b.delivery.Lock()
	defer b.delivery.Unlock()

	b.mu.Lock()
	if kind != ProfileChanged {
		b.current = s.Clone()
	}
	ev := Event{Kind: kind, Session: b.current.Clone()}
	ids := make([]uint64, 0, len(b.listeners))
	for id := range b.listeners {
		ids = append(ids, id)
	}
	b.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		b.mu.Lock()
		fn, ok := b.listeners[id]
		b.mu.Unlock()
		if !ok {
			continue
		}
		fn(Event{Kind: ev.Kind, Session: ev.Session.Clone()})
	}
}

func (b *Broker) SignIn(s *Session) {
	b.Publish(SignedIn, s)
}

func (b *Broker) Refresh(s *Session) {
	b.Publish(TokenRefreshed, s)
}

func (b *Broker) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.Publish(SignedOut, nil)
	return nil
}
