// Package auth authenticates users and issues session tokens carried in a cookie.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_restaurant/internal/domain"
	"github.com/fjod/go_restaurant/internal/store"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type RegisterInput struct {
	Username string
	Password string
	Email    string
	FullName string
	Phone    *string
}

// Session is what a successful login hands back to the transport.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

type Service struct {
	users       store.UserRepository
	tokens      *Tokens
	revocations Revocations
}

func NewService(users store.UserRepository, tokens *Tokens, revocations Revocations) *Service {
	return &Service{users: users, tokens: tokens, revocations: revocations}
}

// Register creates a customer account and logs it in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.CreateUser(ctx, &domain.User{
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: hash,
		Email:        strings.TrimSpace(in.Email),
		FullName:     strings.TrimSpace(in.FullName),
		Phone:        in.Phone,
		Role:         domain.RoleCustomer,
	})
	switch {
	case errors.Is(err, store.ErrUsernameTaken):
		return nil, domain.NewValidationError("username", "username already exists")
	case errors.Is(err, store.ErrEmailTaken):
		return nil, domain.NewValidationError("email", "email already registered")
	case err != nil:
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.newSession(u)
}

func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	u, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if err := CheckPassword(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.newSession(u)
}

// Logout revokes the token for the rest of its lifetime. Invalid tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.revocations.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// Authenticate resolves a session token into the caller's identity.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.Identity, error) {
	if token == "" {
		return nil, domain.ErrAuthenticationRequired
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthenticationRequired, err)
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTransientIO, err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: session revoked", domain.ErrAuthenticationRequired)
	}
	return &domain.Identity{UserID: claims.UserID, Role: claims.Role}, nil
}

// CurrentUser loads the account behind an identity.
func (s *Service) CurrentUser(ctx context.Context, id *domain.Identity) (*domain.User, error) {
	if id == nil {
		return nil, domain.ErrAuthenticationRequired
	}
	return s.users.GetUser(ctx, id.UserID)
}

func (s *Service) newSession(u *domain.User) (*Session, error) {
	token, claims, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Token: token, ExpiresAt: claims.ExpiresAt.Time}, nil
}
