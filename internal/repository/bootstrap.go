package repository

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"bharat-rewards/internal/model"
	"bharat-rewards/internal/pkg/kv"
)

// SeedAdminID is the id given to the seeded administrator.
const SeedAdminID = "admin-1"

// AdminSeed describes the administrator created on first run.
type AdminSeed struct {
	Email    string
	Password string
	Name     string
}

// Initialize ensures an administrator and the settings record exist.
// It is idempotent: the admin is only seeded when no ADMIN user exists, and
// settings are only written when absent.
func Initialize(ctx context.Context, store kv.Store, seed AdminSeed, defaults model.AppSettings) error {
	users := newCollection[model.User](store, KeyUsers)

	seeded := false
	err := users.update(ctx, func(doc *document[model.User]) (bool, error) {
		seeded = false
		for _, u := range doc.Items {
			if u.Role == model.RoleAdmin {
				return false, nil
			}
		}

		admin := model.User{
			ID:       SeedAdminID,
			Email:    seed.Email,
			Password: seed.Password,
			Name:     seed.Name,
			Role:     model.RoleAdmin,
		}
		if existing, ok := findByEmail(doc, seed.Email); ok {
			// Promote the account already holding the admin email.
			admin = existing
			admin.Role = model.RoleAdmin
		}
		doc.upsert(admin.ID, admin)
		seeded = true
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	if seeded {
		log.Info().Str("email", seed.Email).Msg("Seeded administrator account")
	}

	written, err := NewSettingsRepository(store, defaults).EnsureDefault(ctx)
	if err != nil {
		return err
	}
	if written {
		log.Info().
			Int64("min_redeem_points", defaults.MinRedeemPoints).
			Int64("points_per_question", defaults.PointsPerQuestion).
			Float64("currency_rate", defaults.CurrencyRate).
			Msg("Seeded default settings")
	}

	return nil
}
