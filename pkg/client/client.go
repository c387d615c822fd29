// Package client talks to the portal API. A Client is both the session store
// and the role source for a client-side shell: sign-in, refresh and sign-out
// are published to subscribers in the order they complete.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"autoportal/pkg/role"
	"autoportal/pkg/session"
	"autoportal/pkg/user"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrNoSession    = errors.New("not signed in")
)

// APIError is a non-2xx response the client has no sentinel for.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client

	broker *session.Broker
}

func New(baseURL string, httpClient *http.Client, initial *session.Session) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    httpClient,
		broker:  session.NewBroker(initial),
	}
}

func (c *Client) Current(ctx context.Context) (*session.Session, error) {
	return c.broker.Current(ctx)
}

func (c *Client) Subscribe(fn session.Listener) *session.Subscription {
	return c.broker.Subscribe(fn)
}

type tokenResponse struct {
	Token     string `json:"token"`
	UserID    string `json:"userId"`
	ExpiresAt int64  `json:"expiresAt"`
}

func (t tokenResponse) session() *session.Session {
	return &session.Session{UserID: t.UserID, AccessToken: t.Token}
}

// SignIn accepts an email address or a username.
func (c *Client) SignIn(ctx context.Context, login, password string) (*session.Session, error) {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/login", "", user.LoginForm{Login: login, Password: password}, &resp); err != nil {
		return nil, err
	}
	s := resp.session()
	c.broker.SignIn(s)
	return s.Clone(), nil
}

// Register creates an account. The session is nil when the server holds new
// accounts for confirmation.
func (c *Client) Register(ctx context.Context, form user.RegisterForm) (*session.Session, error) {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/register", "", form, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, nil
	}
	s := resp.session()
	c.broker.SignIn(s)
	return s.Clone(), nil
}

func (c *Client) Refresh(ctx context.Context) (*session.Session, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/refresh", token, nil, &resp); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			c.broker.Publish(session.SignedOut, nil)
		}
		return nil, err
	}
	s := resp.session()
	c.broker.Refresh(s)
	return s.Clone(), nil
}

// SignOut ends the server session and clears the local one. The local
// session is cleared even when the server call fails.
func (c *Client) SignOut(ctx context.Context) error {
	token, err := c.token(ctx)
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}

	err = c.do(ctx, http.MethodPost, "/api/logout", token, nil, nil)
	c.broker.Publish(session.SignedOut, nil)
	if err != nil && !errors.Is(err, ErrUnauthorized) {
		return err
	}
	return nil
}

type SessionInfo struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	ExpiresAt int64  `json:"expiresAt"`
}

func (c *Client) Whoami(ctx context.Context) (*SessionInfo, error) {
	var info SessionInfo
	if err := c.Get(ctx, "/api/session", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// RoleForUser reads the role on a profile. A profile the caller cannot see
// or that does not exist resolves to role.None without error.
func (c *Client) RoleForUser(ctx context.Context, userID string) (role.Role, error) {
	var resp struct {
		Role role.Role `json:"role"`
	}
	err := c.Get(ctx, "/api/profiles/"+url.PathEscape(userID)+"/role", &resp)
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden):
		return role.None, nil
	case err != nil:
		return role.None, err
	}
	return resp.Role, nil
}

func (c *Client) ResolveUsername(ctx context.Context, username string) (string, error) {
	var resp struct {
		Email string `json:"email"`
	}
	body := map[string]string{"username": username}
	if err := c.do(ctx, http.MethodPost, "/api/resolve-username", "", body, &resp); err != nil {
		return "", err
	}
	return resp.Email, nil
}

func (c *Client) CreateUser(ctx context.Context, form user.CreateForm) (string, error) {
	var resp struct {
		UserID string `json:"userId"`
	}
	if err := c.authed(ctx, http.MethodPost, "/api/admin/users", form, &resp); err != nil {
		return "", err
	}
	return resp.UserID, nil
}

// UpdateUser applies an admin update. When the target is the signed-in user
// subscribers get a ProfileChanged event so their cached role is dropped.
func (c *Client) UpdateUser(ctx context.Context, id string, form user.UpdateForm) error {
	if err := c.authed(ctx, http.MethodPut, "/api/admin/users/"+url.PathEscape(id), form, nil); err != nil {
		return err
	}

	current, err := c.broker.Current(ctx)
	if err != nil {
		return err
	}
	if current.Valid() && current.UserID == id {
		c.broker.Publish(session.ProfileChanged, nil)
	}
	return nil
}

// Get fetches an authenticated resource into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.authed(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) authed(ctx context.Context, method, path string, in, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, token, in, out)
}

func (c *Client) token(ctx context.Context) (string, error) {
	s, err := c.broker.Current(ctx)
	if err != nil {
		return "", err
	}
	if !s.Valid() {
		return "", ErrNoSession
	}
	return s.AccessToken, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	}

	var body map[string]any
	msg := resp.Status
	if json.NewDecoder(resp.Body).Decode(&body) == nil {
		for _, key := range []string{"message", "error"} {
			if s, ok := body[key].(string); ok && s != "" {
				msg = s
				break
			}
		}
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
