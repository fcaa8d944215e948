package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// Empty values are treated as unset by viper.
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("STORAGE_BACKEND", "")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, "bharatrewards_", cfg.Storage.KeyPrefix)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.False(t, cfg.GenerationEnabled())
	assert.Equal(t, "admin@bharatrewards.com", cfg.Admin.Email)
	assert.Equal(t, int64(14000), cfg.Rewards.MinRedeemPoints)
	assert.Equal(t, int64(10), cfg.Rewards.PointsPerQuestion)
	assert.Equal(t, float64(35), cfg.Rewards.CurrencyRate)
	assert.Equal(t, 5, cfg.Quiz.DefaultCount)
	assert.Equal(t, 10*time.Second, cfg.Database.ConnectTimeout)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("BOT_TOKEN", "123:abc")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.Storage.Backend)
	assert.True(t, cfg.GenerationEnabled())
	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("storage:\n  backend: postgres\nquiz:\n  default_count: 3\n  max_count: 9\nwhitelist:\n  chats: [42]\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, BackendPostgres, cfg.Storage.Backend)
	assert.Equal(t, 3, cfg.Quiz.DefaultCount)
	assert.True(t, cfg.IsChatAllowed(42))
	assert.False(t, cfg.IsChatAllowed(7))
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "sqlite")

	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "n"}
	assert.Equal(t, "postgres://u:p@db:5433/n?sslmode=disable", d.DSN())
}
