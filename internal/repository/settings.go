package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bharat-rewards/internal/model"
	"bharat-rewards/internal/pkg/kv"
)

// SettingsRepository handles the settings singleton.
type SettingsRepository struct {
	store    kv.Store
	defaults model.AppSettings
}

// NewSettingsRepository creates a new SettingsRepository. defaults is
// returned by Get while nothing is stored.
func NewSettingsRepository(store kv.Store, defaults model.AppSettings) *SettingsRepository {
	return &SettingsRepository{store: store, defaults: defaults}
}

// Get returns the stored settings, or the defaults if none are stored.
// Reading never persists the defaults.
func (r *SettingsRepository) Get(ctx context.Context) (model.AppSettings, error) {
	entry, err := r.store.Get(ctx, KeySettings)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return r.defaults, nil
		}
		return model.AppSettings{}, fmt.Errorf("failed to load settings: %w", err)
	}

	var settings model.AppSettings
	if err := json.Unmarshal(entry.Value, &settings); err != nil {
		return model.AppSettings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	return settings, nil
}

// Save overwrites the stored settings.
func (r *SettingsRepository) Save(ctx context.Context, settings model.AppSettings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		var version int64
		entry, err := r.store.Get(ctx, KeySettings)
		switch {
		case err == nil:
			version = entry.Version
		case errors.Is(err, kv.ErrNotFound):
			version = 0
		default:
			return fmt.Errorf("failed to save settings: %w", err)
		}

		_, err = r.store.Put(ctx, KeySettings, payload, version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, kv.ErrVersionConflict) {
			return fmt.Errorf("failed to save settings: %w", err)
		}
	}
	return fmt.Errorf("failed to save settings: %w", ErrTooManyConflicts)
}

// EnsureDefault persists the defaults if no settings are stored.
// Returns true if the defaults were written.
func (r *SettingsRepository) EnsureDefault(ctx context.Context) (bool, error) {
	payload, err := json.Marshal(r.defaults)
	if err != nil {
		return false, fmt.Errorf("failed to encode settings: %w", err)
	}

	_, err = r.store.Put(ctx, KeySettings, payload, 0)
	if err != nil {
		// Someone else stored settings first; theirs stand.
		if errors.Is(err, kv.ErrVersionConflict) {
			return false, nil
		}
		return false, fmt.Errorf("failed to seed settings: %w", err)
	}
	return true, nil
}
