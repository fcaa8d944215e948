// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"bharat-rewards/internal/model"
	"bharat-rewards/internal/repository"
)

// RegisterRequest describes a new account.
type RegisterRequest struct {
	Name     string `validate:"required,max=64"`
	Email    string `validate:"required,email"`
	Password string `validate:"max=128"`
}

// AccountService handles registration, login and profile lookups.
type AccountService struct {
	users     *repository.UserRepository
	sessions  *repository.SessionRepository
	validator *validator.Validate
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(
	users *repository.UserRepository,
	sessions *repository.SessionRepository,
	validate *validator.Validate,
) *AccountService {
	if validate == nil {
		validate = validator.New()
	}
	return &AccountService{
		users:     users,
		sessions:  sessions,
		validator: validate,
	}
}

// Register creates a USER account. Emails are unique case-insensitively.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	user, err := s.users.Register(ctx, req.Name, req.Email, req.Password, model.RoleUser)
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to register: %w", err)
	}
	return user, nil
}

// Login binds the matching user to sessionKey.
// Returns repository.ErrInvalidCredentials on a bad email or password.
func (s *AccountService) Login(ctx context.Context, sessionKey, email, password string) (*model.User, error) {
	sess, err := s.sessions.Login(ctx, sessionKey, email, password)
	if err != nil {
		return nil, err
	}
	return &sess.User, nil
}

// Logout clears the session bound to sessionKey.
func (s *AccountService) Logout(ctx context.Context, sessionKey string) error {
	return s.sessions.Logout(ctx, sessionKey)
}

// Current returns the latest stored copy of the user bound to sessionKey.
// Returns repository.ErrNoSession when nobody is logged in, including when
// the bound user no longer exists.
func (s *AccountService) Current(ctx context.Context, sessionKey string) (*model.User, error) {
	snapshot, err := s.sessions.CurrentUser(ctx, sessionKey)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, snapshot.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, repository.ErrNoSession
		}
		return nil, fmt.Errorf("failed to load current user: %w", err)
	}
	return user, nil
}
