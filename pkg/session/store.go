package session

import (
	"context"
	"sync"
)

type EventKind int

const (
	Initial EventKind = iota
	SignedIn
	SignedOut
	TokenRefreshed
	// ProfileChanged is emitted when the signed-in user's profile was updated
	// (role change by an admin). The session itself may be unchanged.
	ProfileChanged
)

func (k EventKind) String() string {
	switch k {
	case Initial:
		return "initial"
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	case TokenRefreshed:
		return "token_refreshed"
	case ProfileChanged:
		return "profile_changed"
	default:
		return "unknown"
	}
}

// Event always carries the complete new session, nil after sign-out.
type Event struct {
	Kind    EventKind
	Session *Session
}

type Listener func(Event)

// Store is the authentication capability the portal core consumes.
type Store interface {
	Current(ctx context.Context) (*Session, error)
	Subscribe(fn Listener) *Subscription
	SignOut(ctx context.Context) error
}

// Subscription is the handle returned by Store.Subscribe. Unsubscribe may be
// called any number of times; the release runs once.
type Subscription struct {
	once    sync.Once
	release func()
}

func NewSubscription(release func()) *Subscription {
	return &Subscription{release: release}
}

func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.release != nil {
			s.release()
		}
	})
}
