package claims

import (
	"context"
	"errors"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
)

type contextKey string

const (
	TokenContextKey contextKey = "token"

	DefaultTTL = time.Hour
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the access token payload. StandardClaims.Id carries the
// server-side session ID the token was issued for.
type Claims struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	jwt.StandardClaims
}

func New(userID, email, sessionID string, now time.Time, ttl time.Duration) *Claims {
	c := &Claims{}
	c.User.ID = userID
	c.User.Email = email
	c.Id = sessionID
	c.IssuedAt = now.UTC().Unix()
	c.ExpiresAt = now.Add(ttl).UTC().Unix()
	return c
}

func (c *Claims) SessionID() string {
	return c.Id
}

func Sign(c *Claims, secret []byte) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
}

// Parse verifies an HS256 token and returns its claims. Tokens without a
// user or session ID are rejected.
func Parse(token string, secret []byte) (*Claims, error) {
	c := &Claims{}
	t, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (interface{}, error) {
		method, ok := t.Method.(*jwt.SigningMethodHMAC)
		if !ok || method.Alg() != "HS256" {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil || !t.Valid || c.User.ID == "" || c.Id == "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, TokenContextKey, c)
}

func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(TokenContextKey).(*Claims)
	if !ok || c == nil || c.User.ID == "" {
		return nil, false
	}
	return c, true
}
