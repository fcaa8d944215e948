package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"bharat-rewards/internal/model"
	"bharat-rewards/internal/pkg/kv"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupPostgresStore creates a PostgreSQL container and returns a store
// backed by it. Skips the test if Docker is not available.
func setupPostgresStore(t *testing.T) kv.Store {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, kv.Migrate(ctx, pool))
	return kv.NewPostgresStore(pool, "bharatrewards_")
}

func TestPostgres_EndToEnd(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()

	require.NoError(t, Initialize(ctx, store, testSeed, model.DefaultSettings()))

	users := NewUserRepository(store)
	sessions := NewSessionRepository(store, users)
	redeems := NewRedeemRepository(store)

	u, err := users.Register(ctx, "Asha", "asha@example.com", "pw", model.RoleUser)
	require.NoError(t, err)

	_, err = sessions.Login(ctx, "tg:42", "ASHA@example.com", "pw")
	require.NoError(t, err)

	_, err = users.AdjustPoints(ctx, u.ID, 15000, true)
	require.NoError(t, err)

	current, err := sessions.CurrentUser(ctx, "tg:42")
	require.NoError(t, err)
	assert.Equal(t, int64(15000), current.Points)
	assert.Equal(t, int64(1), current.SolvedCount)

	req, err := redeems.Add(ctx, model.RedeemRequest{UserID: u.ID, UserName: u.Name, Points: 14000, Amount: 400})
	require.NoError(t, err)

	_, err = redeems.UpdateStatus(ctx, req.ID, model.RedeemApproved)
	require.NoError(t, err)

	all, err := users.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, SeedAdminID, all[0].ID)
	assert.Equal(t, u.ID, all[1].ID)

	got, err := redeems.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RedeemApproved, got.Status)
}
