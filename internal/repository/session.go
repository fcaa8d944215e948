package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bharat-rewards/internal/model"
	"bharat-rewards/internal/pkg/kv"
)

// Session errors.
var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong
	// password. No session is written in that case.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrNoSession is returned when no session is bound to the key.
	ErrNoSession = errors.New("no active session")
)

// SessionRepository binds authenticated user snapshots to caller-owned
// session keys (one per chat, browser tab or request context).
type SessionRepository struct {
	sessions *collection[model.Session]
	users    *UserRepository
	now      func() time.Time
}

// NewSessionRepository creates a new SessionRepository instance.
func NewSessionRepository(store kv.Store, users *UserRepository) *SessionRepository {
	return &SessionRepository{
		sessions: newCollection[model.Session](store, KeySessions),
		users:    users,
		now:      time.Now,
	}
}

// Login matches email case-insensitively against all users (first match
// wins). A user with a password requires an exact match; a user without one
// accepts any password, including an empty one. On success the session for
// key is replaced and returned. On failure any existing session for key is
// left untouched.
func (r *SessionRepository) Login(ctx context.Context, key, email, password string) (*model.Session, error) {
	if key == "" {
		return nil, fmt.Errorf("failed to login: empty session key")
	}

	user, err := r.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.Password != "" && user.Password != password {
		return nil, ErrInvalidCredentials
	}

	sess := model.Session{
		Key:       key,
		User:      *user,
		CreatedAt: r.now().UTC(),
	}
	err = r.sessions.update(ctx, func(doc *document[model.Session]) (bool, error) {
		doc.upsert(key, sess)
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write session: %w", err)
	}

	return &sess, nil
}

// Logout removes the session for key unconditionally.
func (r *SessionRepository) Logout(ctx context.Context, key string) error {
	err := r.sessions.update(ctx, func(doc *document[model.Session]) (bool, error) {
		return doc.remove(key), nil
	})
	if err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// Current returns the session bound to key, or ErrNoSession.
func (r *SessionRepository) Current(ctx context.Context, key string) (*model.Session, error) {
	doc, _, err := r.sessions.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	sess, ok := doc.get(key)
	if !ok {
		return nil, ErrNoSession
	}
	return &sess, nil
}

// CurrentUser returns the user snapshot of the session bound to key.
func (r *SessionRepository) CurrentUser(ctx context.Context, key string) (*model.User, error) {
	sess, err := r.Current(ctx, key)
	if err != nil {
		return nil, err
	}
	return &sess.User, nil
}

// List returns all active sessions in creation order.
func (r *SessionRepository) List(ctx context.Context) ([]model.Session, error) {
	sessions, err := r.sessions.list(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}
