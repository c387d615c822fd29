// Package shell owns the application's session subscription and keeps the
// role resolver in step with it.
package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"autoportal/pkg/guard"
	"autoportal/pkg/resolver"
	"autoportal/pkg/session"
)

var ErrNotStarted = errors.New("shell not started")

type Shell struct {
	store    session.Store
	resolver *resolver.Resolver
	guard    *guard.Guard
	logger   *slog.Logger

	mu      sync.RWMutex
	current *session.Session
	changes uint64
	sub     *session.Subscription
	started bool
	closed  bool

	closeOnce sync.Once
}

func New(store session.Store, res *resolver.Resolver, g *guard.Guard, logger *slog.Logger) *Shell {
	if logger == nil {
		logger = slog.Default()
	}
	return &Shell{store: store, resolver: res, guard: g, logger: logger}
}

// Start subscribes to session changes and loads the current session. A
// notification that arrives before the initial load completes wins over it,
// including one the store delivers from inside Subscribe.
func (s *Shell) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started || s.closed {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	// The store may call onChange before Subscribe returns, so mu is not held here.
	sub := s.store.Subscribe(s.onChange)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sub.Unsubscribe()
		return nil
	}
	s.sub = sub
	s.mu.Unlock()

	cur, err := s.store.Current(ctx)
	if err != nil {
		s.logger.Warn("initial session load failed", "error", err)
		cur = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.changes > 0 || s.closed {
		return nil
	}
	s.replace(cur)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	return nil
}

func (s *Shell) onChange(ev session.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.changes++
	s.logger.Debug("session changed", "event", ev.Kind.String(), "signed_in", ev.Session.Valid())
	s.replace(ev.Session)
}

// replace must be called with mu held. The resolver is invalidated in the
// same step so no reader sees the new session paired with the old role.
func (s *Shell) replace(next *session.Session) {
	if !next.Valid() {
		next = nil
	}
	s.current = next.Clone()
	s.resolver.Invalidate(s.current)
}

func (s *Shell) Session() *session.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

func (s *Shell) Resolver() *resolver.Resolver {
	return s.resolver
}

// Decide evaluates rule against the shell's current session and role.
func (s *Shell) Decide(rule guard.Rule) guard.Decision {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.guard.Decide(s.current, s.resolver.State(), rule)
}

// Await waits for the role resolution and then decides.
func (s *Shell) Await(ctx context.Context, rule guard.Rule) (guard.Decision, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return guard.Decision{Kind: guard.Defer}, ErrNotStarted
	}

	if _, err := s.resolver.Wait(ctx); err != nil {
		return guard.Decision{Kind: guard.Defer}, err
	}
	return s.Decide(rule), nil
}

func (s *Shell) SignOut(ctx context.Context) error {
	return s.store.SignOut(ctx)
}

// Close releases the subscription. Safe to call more than once.
func (s *Shell) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		sub := s.sub
		s.mu.Unlock()

		sub.Unsubscribe()
		s.resolver.Close()
	})
}
