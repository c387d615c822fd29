// Package resolver maps the signed-in user onto their Role and keeps that
// answer cached until the authentication state changes.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"autoportal/pkg/role"
	"autoportal/pkg/session"
)

// RoleSource looks up the role stored on a user's profile. A missing profile
// is reported as role.None with a nil error.
type RoleSource interface {
	RoleForUser(ctx context.Context, userID string) (role.Role, error)
}

var ErrClosed = errors.New("resolver closed")

type State struct {
	UserID  string
	Role    role.Role
	Loading bool
	Err     error
}

// For reports whether the state was resolved for s. A state resolved for
// another user (or for nobody) must not be used to authorize s.
func (st State) For(s *session.Session) bool {
	if s == nil {
		return st.UserID == ""
	}
	return st.UserID == s.UserID
}

// Lookup performs one resolution outside of any cache.
func Lookup(ctx context.Context, source RoleSource, userID string) State {
	if userID == "" {
		return State{}
	}
	r, err := source.RoleForUser(ctx, userID)
	if err != nil {
		return State{UserID: userID, Role: role.None, Err: err}
	}
	return State{UserID: userID, Role: r}
}

type Resolver struct {
	source  RoleSource
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	gen     uint64
	state   State
	settled chan struct{}
	cancel  context.CancelFunc
}

type Option func(*Resolver)

// WithTimeout bounds each profile fetch. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

func New(source RoleSource, logger *slog.Logger, opts ...Option) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		source:  source,
		logger:  logger,
		state:   State{Loading: true},
		settled: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the cached value. It never starts a fetch.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Invalidate drops the cached role and starts resolving it for s. The role is
// cleared before this returns; any fetch started by an earlier call is
// cancelled and its result ignored.
func (r *Resolver) Invalidate(s *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gen++
	gen := r.gen
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.reopen()

	if !s.Valid() {
		r.settle(State{})
		return
	}

	userID := s.UserID
	r.state = State{UserID: userID, Role: role.None, Loading: true}

	ctx, cancel := context.WithCancel(context.Background())
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), r.timeout)
	}
	r.cancel = cancel

	go r.fetch(ctx, cancel, gen, userID)
}

func (r *Resolver) fetch(ctx context.Context, cancel context.CancelFunc, gen uint64, userID string) {
	defer cancel()

	st := Lookup(ctx, r.source, userID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.gen {
		r.logger.Debug("discarding superseded role resolution", "user", userID)
		return
	}
	if st.Err != nil {
		r.logger.Warn("role resolution failed", "user", userID, "error", st.Err)
	} else {
		r.logger.Debug("role resolved", "user", userID, "role", st.Role.String())
	}
	r.cancel = nil
	r.settle(st)
}

// Wait blocks until the latest invalidation has settled.
func (r *Resolver) Wait(ctx context.Context) (State, error) {
	for {
		r.mu.Lock()
		if !r.state.Loading {
			st := r.state
			r.mu.Unlock()
			return st, nil
		}
		ch := r.settled
		r.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return r.State(), ctx.Err()
		}
	}
}

// Close cancels any in-flight fetch and releases waiters.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	if r.state.Loading {
		r.settle(State{UserID: r.state.UserID, Err: ErrClosed})
	}
}

// reopen and settle must be called with mu held.
func (r *Resolver) reopen() {
	select {
	case <-r.settled:
		r.settled = make(chan struct{})
	default:
	}
}

func (r *Resolver) settle(st State) {
	st.Loading = false
	r.state = st
	select {
	case <-r.settled:
	default:
		close(r.settled)
	}
}
