package session

import (
	"context"
	"time"
)

// Session is the client-side proof of authentication. A nil *Session means
// nobody is signed in.
type Session struct {
	UserID      string `json:"userId" mapstructure:"user_id"`
	AccessToken string `json:"accessToken" mapstructure:"access_token"`
}

func (s *Session) Valid() bool {
	return s != nil && s.UserID != "" && s.AccessToken != ""
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// SameUser reports whether a and b are both present and belong to one user.
func SameUser(a, b *Session) bool {
	return a != nil && b != nil && a.UserID == b.UserID
}

// Record is the server-side row backing an issued access token.
type Record struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type Repository interface {
	Create(ctx context.Context, userID, sessionID string) (string, error)
	IsValid(ctx context.Context, sessionID string) (bool, error)
	Invalidate(ctx context.Context, sessionID string) error
	InvalidateUser(ctx context.Context, userID string) error
}
