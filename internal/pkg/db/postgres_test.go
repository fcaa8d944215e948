package db

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bharat-rewards/internal/config"
)

func TestApplyPoolSettings_Defaults(t *testing.T) {
	cfg := &config.DatabaseConfig{Host: "localhost", Port: 5432, User: "u", Name: "n"}
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	require.NoError(t, err)

	applyPoolSettings(poolConfig, cfg)

	assert.Equal(t, int32(4), poolConfig.MaxConns)
	assert.Equal(t, int32(1), poolConfig.MinConns)
	assert.Equal(t, 10*time.Second, poolConfig.ConnConfig.ConnectTimeout)
	assert.Equal(t, time.Hour, poolConfig.MaxConnLifetime)
	assert.Equal(t, 30*time.Minute, poolConfig.MaxConnIdleTime)
}

func TestApplyPoolSettings_Configured(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:            "localhost",
		Port:            5432,
		User:            "u",
		Name:            "n",
		PoolSize:        12,
		ConnectTimeout:  3 * time.Second,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: time.Minute,
	}
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	require.NoError(t, err)

	applyPoolSettings(poolConfig, cfg)

	assert.Equal(t, int32(12), poolConfig.MaxConns)
	assert.Equal(t, 3*time.Second, poolConfig.ConnConfig.ConnectTimeout)
	assert.Equal(t, 5*time.Minute, poolConfig.MaxConnLifetime)
	assert.Equal(t, time.Minute, poolConfig.MaxConnIdleTime)
}
