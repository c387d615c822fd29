package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"autoportal/pkg/profile"
	"autoportal/pkg/role"
	"autoportal/pkg/session"
)

type ServiceInterface interface {
	Register(ctx context.Context, form RegisterForm) (*User, string, error)
	Login(ctx context.Context, login, password string) (*User, string, error)
	Logout(ctx context.Context, userID, sessionID string) error
	Refresh(ctx context.Context, userID, sessionID string) (string, error)
	ResolveUsername(ctx context.Context, username string) (string, error)
	CreateUser(ctx context.Context, form CreateForm) (*User, error)
	UpdateUser(ctx context.Context, id string, form UpdateForm) (bool, error)
	AuthStatus(ctx context.Context, id string) (bool, error)

	Profile(ctx context.Context, id string) (*profile.Profile, error)
	UpdateProfile(ctx context.Context, id string, form profile.DetailsForm) (*profile.Profile, error)
	UpdateClient(ctx context.Context, id string, form profile.ClientForm) (*profile.Profile, error)
}

type Service struct {
	Repo     Repository
	Profiles profile.Repository
	Session  session.Repository
	Roles    profile.Invalidator
	Logger   *slog.Logger

	// RequireConfirmedEmail rejects sign-in for accounts whose email has not
	// been confirmed by an admin.
	RequireConfirmedEmail bool
	NewID                 func() string
}

func NewService(repo Repository, profiles profile.Repository, session session.Repository, roles profile.Invalidator, logger *slog.Logger) *Service {
	if roles == nil {
		roles = profile.NoopInvalidator
	}
	return &Service{
		Repo:     repo,
		Profiles: profiles,
		Session:  session,
		Roles:    roles,
		Logger:   logger,
		NewID:    uuid.NewString,
	}
}

func (s *Service) Register(ctx context.Context, form RegisterForm) (*User, string, error) {
	if exist, err := s.Repo.FindByEmail(ctx, form.Email); exist != nil && err == nil {
		return nil, "", ErrExists
	}
	if _, err := s.Profiles.FindByUsername(ctx, form.Username); err == nil {
		return nil, "", ErrUsernameTaken
	}

	user, err := s.createAccount(ctx, form.Email, form.Password, false, &profile.Profile{
		Username:  form.Username,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Role:      role.Client,
	})
	if err != nil {
		return nil, "", err
	}

	if s.RequireConfirmedEmail {
		return user, "", nil
	}

	sessionID, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, sessionID, nil
}

// Login accepts either an email address or a username.
func (s *Service) Login(ctx context.Context, login, password string) (*User, string, error) {
	email := login
	if !strings.Contains(login, "@") {
		resolved, err := s.ResolveUsername(ctx, login)
		if err != nil {
			return nil, "", ErrNotFound
		}
		email = resolved
	}

	user, err := s.Repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", ErrNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	if s.RequireConfirmedEmail && !user.EmailConfirmed {
		return nil, "", ErrEmailNotConfirmed
	}

	sessionID, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, sessionID, nil
}

func (s *Service) Logout(ctx context.Context, userID, sessionID string) error {
	if err := s.Session.Invalidate(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}
	s.forgetRole(ctx, userID)
	return nil
}

// Refresh replaces sessionID with a new session for the same user.
func (s *Service) Refresh(ctx context.Context, userID, sessionID string) (string, error) {
	if err := s.Session.Invalidate(ctx, sessionID); err != nil {
		return "", fmt.Errorf("failed to invalidate session: %w", err)
	}
	return s.startSession(ctx, userID)
}

func (s *Service) ResolveUsername(ctx context.Context, username string) (string, error) {
	p, err := s.Profiles.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, profile.ErrNotFound) {
			s.Logger.Error("resolve username", "username", username, "error", err)
		}
		return "", ErrUnknownUsername
	}

	u, err := s.Repo.FindByID(ctx, p.ID)
	if err != nil || u.Email == "" {
		return "", ErrNoEmail
	}
	return u.Email, nil
}

// CreateUser is the admin path: the email is confirmed up front and no
// session is started for the new account.
func (s *Service) CreateUser(ctx context.Context, form CreateForm) (*User, error) {
	if exist, err := s.Repo.FindByEmail(ctx, form.Email); exist != nil && err == nil {
		return nil, ErrExists
	}

	username := form.Username
	if username == "" {
		username, _, _ = strings.Cut(strings.ToLower(form.Email), "@")
	}
	if _, err := s.Profiles.FindByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	}

	r := role.Client
	if form.Role != nil {
		if !form.Role.Valid() {
			return nil, ErrInvalidRole
		}
		r = *form.Role
	}

	user, err := s.createAccount(ctx, form.Email, form.Password, true, &profile.Profile{
		Username:  username,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Phone:     form.Phone,
		Role:      r,
	})
	if err != nil {
		return nil, err
	}

	s.forgetRole(ctx, user.ID)
	return user, nil
}

// UpdateUser applies the non-nil fields of form. It reports false when there
// was nothing to change.
func (s *Service) UpdateUser(ctx context.Context, id string, form UpdateForm) (bool, error) {
	if form.Empty() {
		return false, nil
	}

	if _, err := s.Repo.FindByID(ctx, id); err != nil {
		return false, err
	}

	var ch Changes
	if form.NewPassword != nil && *form.NewPassword != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*form.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return false, fmt.Errorf("hashing password error: %w", err)
		}
		h := string(hashed)
		ch.PasswordHash = &h
	}
	ch.EmailConfirmed = form.EmailConfirmed

	if err := s.Repo.Update(ctx, id, ch); err != nil {
		return false, err
	}

	// A reset password signs the user out everywhere.
	if ch.PasswordHash != nil {
		if err := s.Session.InvalidateUser(ctx, id); err != nil {
			return false, fmt.Errorf("failed to revoke sessions: %w", err)
		}
	}

	if form.Role != nil {
		if err := s.Profiles.UpdateRole(ctx, id, *form.Role); err != nil {
			return false, err
		}
		s.forgetRole(ctx, id)
	}
	return true, nil
}

func (s *Service) AuthStatus(ctx context.Context, id string) (bool, error) {
	u, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	return u.EmailConfirmed, nil
}

func (s *Service) Profile(ctx context.Context, id string) (*profile.Profile, error) {
	return s.Profiles.FindByID(ctx, id)
}

// UpdateProfile is the self-service edit of a user's own details.
func (s *Service) UpdateProfile(ctx context.Context, id string, form profile.DetailsForm) (*profile.Profile, error) {
	if err := s.Profiles.UpdateDetails(ctx, id, form); err != nil {
		return nil, err
	}
	return s.Profiles.FindByID(ctx, id)
}

// UpdateClient is the admin edit of a client's details and, optionally, role.
func (s *Service) UpdateClient(ctx context.Context, id string, form profile.ClientForm) (*profile.Profile, error) {
	var r role.Role
	if form.Role != "" {
		if r = role.Parse(form.Role); !r.Valid() {
			return nil, ErrInvalidRole
		}
	}

	current, err := s.Profiles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Profiles.UpdateDetails(ctx, id, form.DetailsForm); err != nil {
		return nil, err
	}
	if r.Valid() && r != current.Role {
		if err := s.Profiles.UpdateRole(ctx, id, r); err != nil {
			return nil, err
		}
		s.forgetRole(ctx, id)
	}
	return s.Profiles.FindByID(ctx, id)
}

func (s *Service) createAccount(ctx context.Context, email, password string, confirmed bool, p *profile.Profile) (*User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password error: %w", err)
	}

	user := &User{
		ID:             s.NewID(),
		Email:          strings.ToLower(email),
		Password:       string(hashedPassword),
		EmailConfirmed: confirmed,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return nil, err
	}

	p.ID = user.ID
	if err := s.Profiles.Create(ctx, p); err != nil {
		if derr := s.Repo.Delete(ctx, user.ID); derr != nil {
			s.Logger.Error("rollback account", "user", user.ID, "error", derr)
		}
		if errors.Is(err, profile.ErrExists) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return user, nil
}

// startSession records a new session and drops any cached role for the user,
// since every sign-in or refresh is an authentication state change.
func (s *Service) startSession(ctx context.Context, userID string) (string, error) {
	sessionID := s.NewID()
	if _, err := s.Session.Create(ctx, userID, sessionID); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	s.forgetRole(ctx, userID)
	return sessionID, nil
}

func (s *Service) forgetRole(ctx context.Context, userID string) {
	if err := s.Roles.Invalidate(ctx, userID); err != nil {
		s.Logger.Warn("role cache invalidation failed", "user", userID, "error", err)
	}
}
