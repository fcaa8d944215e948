package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"bharat-rewards/internal/model"
	"bharat-rewards/internal/pkg/kv"
)

// Common errors for user operations.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// UserRepository handles user persistence.
type UserRepository struct {
	users    *collection[model.User]
	sessions *collection[model.Session]
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(store kv.Store) *UserRepository {
	return &UserRepository{
		users:    newCollection[model.User](store, KeyUsers),
		sessions: newCollection[model.Session](store, KeySessions),
	}
}

// List returns all users in insertion order.
func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	users, err := r.users.list(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// GetByID retrieves a user by id.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	doc, _, err := r.users.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user, ok := doc.get(id)
	if !ok {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

// FindByEmail returns the first user, in insertion order, whose email
// matches case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	doc, _, err := r.users.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user, ok := findByEmail(doc, email); ok {
		return &user, nil
	}
	return nil, ErrUserNotFound
}

func findByEmail(doc *document[model.User], email string) (model.User, bool) {
	needle := normalizeEmail(email)
	for _, id := range doc.Order {
		user, ok := doc.Items[id]
		if ok && normalizeEmail(user.Email) == needle {
			return user, true
		}
	}
	return model.User{}, false
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Save upserts the user by id: an existing record is replaced in place, a
// new one is appended. Every session holding a snapshot of this user is
// refreshed to the saved copy.
func (r *UserRepository) Save(ctx context.Context, user model.User) error {
	if user.ID == "" {
		return fmt.Errorf("failed to save user: empty id")
	}

	err := r.users.update(ctx, func(doc *document[model.User]) (bool, error) {
		doc.upsert(user.ID, user)
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	if err := r.refreshSessions(ctx, user); err != nil {
		return fmt.Errorf("failed to refresh sessions: %w", err)
	}
	return nil
}

// refreshSessions overwrites the snapshot of every session bound to user.
func (r *UserRepository) refreshSessions(ctx context.Context, user model.User) error {
	return r.sessions.update(ctx, func(doc *document[model.Session]) (bool, error) {
		changed := false
		for key, sess := range doc.Items {
			if sess.User.ID == user.ID {
				sess.User = user
				doc.Items[key] = sess
				changed = true
			}
		}
		return changed, nil
	})
}

// Register creates a user with a fresh id and zeroed points, wallet and
// solved count. An empty role defaults to USER. Registration fails with
// ErrEmailTaken if the email is already in use (case-insensitive).
func (r *UserRepository) Register(ctx context.Context, name, email, password string, role model.Role) (*model.User, error) {
	if role == "" {
		role = model.RoleUser
	}

	user := model.User{
		ID:       uuid.NewString(),
		Email:    strings.TrimSpace(email),
		Password: password,
		Name:     strings.TrimSpace(name),
		Role:     role,
	}

	err := r.users.update(ctx, func(doc *document[model.User]) (bool, error) {
		if _, taken := findByEmail(doc, user.Email); taken {
			return false, ErrEmailTaken
		}
		doc.upsert(user.ID, user)
		return true, nil
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	return &user, nil
}

// Update applies fn to the stored user atomically with respect to other
// writers and persists the result. fn may run more than once when writes
// race, so it must only touch the user it is given. Bound sessions follow
// the saved copy.
func (r *UserRepository) Update(ctx context.Context, id string, fn func(user *model.User) error) (*model.User, error) {
	var updated model.User
	err := r.users.update(ctx, func(doc *document[model.User]) (bool, error) {
		user, ok := doc.get(id)
		if !ok {
			return false, ErrUserNotFound
		}
		if err := fn(&user); err != nil {
			return false, err
		}
		user.ID = id
		doc.upsert(id, user)
		updated = user
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if err := r.refreshSessions(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to refresh sessions: %w", err)
	}
	return &updated, nil
}

// AdjustPoints adds delta to the user's points, clamping at zero, and
// increments the solved count when solved is true.
func (r *UserRepository) AdjustPoints(ctx context.Context, id string, delta int64, solved bool) (*model.User, error) {
	return r.Update(ctx, id, func(user *model.User) error {
		user.Points += delta
		if user.Points < 0 {
			user.Points = 0
		}
		if solved {
			user.SolvedCount++
		}
		return nil
	})
}
