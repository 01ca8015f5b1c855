package clinic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const settingsKey = "clinic:scheduling:settings"

// Store persists the clinic's scheduling settings.
type Store struct {
	redis    *redis.Client
	defaults *Settings
}

// NewStore creates a settings store over the given Redis client. Until staff
// save settings, Get falls back to defaults; nil means DefaultSettings. This
// is how deploy-time configuration (timezone, horizons) reaches the engine.
func NewStore(redisClient *redis.Client, defaults *Settings) *Store {
	if defaults == nil {
		defaults = DefaultSettings()
	}
	return &Store{redis: redisClient, defaults: defaults}
}

// Get retrieves the scheduling settings, returning the configured defaults
// if none were ever saved.
func (s *Store) Get(ctx context.Context) (*Settings, error) {
	data, err := s.redis.Get(ctx, settingsKey).Bytes()
	if err == redis.Nil {
		fallback := *s.defaults
		return &fallback, nil
	}
	if err != nil {
		return nil, fmt.Errorf("clinic: get settings: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("clinic: unmarshal settings: %w", err)
	}
	return &settings, nil
}

// Set validates and saves the scheduling settings.
func (s *Store) Set(ctx context.Context, settings *Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("clinic: marshal settings: %w", err)
	}
	if err := s.redis.Set(ctx, settingsKey, data, 0).Err(); err != nil {
		return fmt.Errorf("clinic: set settings: %w", err)
	}
	return nil
}
