package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bharat-rewards/internal/model"
	"bharat-rewards/internal/repository"
)

func TestRedeemService_Request(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	player := env.newPlayer(t, "asha", 20000)

	req, err := env.redeem.Request(ctx, player.ID, 14000)
	require.NoError(t, err)
	assert.Equal(t, model.RedeemPending, req.Status)
	assert.Equal(t, int64(14000), req.Points)
	assert.Equal(t, 400.0, req.Amount)
	assert.Equal(t, "asha", req.UserName)

	stored, err := env.users.GetByID(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), stored.Points)

	mine, err := env.redeem.ListByUser(ctx, player.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, req.ID, mine[0].ID)
}

func TestRedeemService_RequestRejectsBadAmounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	player := env.newPlayer(t, "asha", 15000)

	_, err := env.redeem.Request(ctx, player.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = env.redeem.Request(ctx, player.ID, 13999)
	assert.ErrorIs(t, err, ErrBelowMinimum)

	_, err = env.redeem.Request(ctx, player.ID, 16000)
	assert.ErrorIs(t, err, ErrInsufficientPoints)

	_, err = env.redeem.Request(ctx, "missing", 14000)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	stored, err := env.users.GetByID(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), stored.Points)

	all, err := env.redeem.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRedeemService_AmountRounded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	player := env.newPlayer(t, "asha", 20000)

	req, err := env.redeem.Request(ctx, player.ID, 14001)
	require.NoError(t, err)
	assert.Equal(t, 400.03, req.Amount)
}

func TestRedeemService_Approve(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	player := env.newPlayer(t, "asha", 14000)

	req, err := env.redeem.Request(ctx, player.ID, 14000)
	require.NoError(t, err)

	approved, err := env.redeem.Approve(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RedeemApproved, approved.Status)

	stored, err := env.users.GetByID(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, 400.0, stored.WalletBalance)
	assert.Equal(t, int64(0), stored.Points)

	_, err = env.redeem.Reject(ctx, req.ID)
	assert.ErrorIs(t, err, repository.ErrRedeemFinalized)

	pending, err := env.redeem.List(ctx, model.RedeemPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRedeemService_RejectRefunds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	player := env.newPlayer(t, "asha", 15000)

	req, err := env.redeem.Request(ctx, player.ID, 14000)
	require.NoError(t, err)

	rejected, err := env.redeem.Reject(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RedeemRejected, rejected.Status)

	stored, err := env.users.GetByID(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), stored.Points)
	assert.Equal(t, 0.0, stored.WalletBalance)

	_, err = env.redeem.Approve(ctx, req.ID)
	assert.ErrorIs(t, err, repository.ErrRedeemFinalized)
}

func TestRedeemService_UnknownRequest(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.redeem.Approve(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrRedeemNotFound)
}

func TestRedeemService_RequestValidatesRecord(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.redeem.Request(context.Background(), "", 14000)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRedeemService_FailedSettlementReopensRequest(t *testing.T) {
	for _, tt := range []struct {
		name   string
		decide func(env *testEnv, id string) (*model.RedeemRequest, error)
	}{
		{"approve", func(env *testEnv, id string) (*model.RedeemRequest, error) {
			return env.redeem.Approve(context.Background(), id)
		}},
		{"reject", func(env *testEnv, id string) (*model.RedeemRequest, error) {
			return env.redeem.Reject(context.Background(), id)
		}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()

			// A request whose owner no longer exists cannot be settled.
			orphan, err := env.redeems.Add(ctx, model.RedeemRequest{UserID: "gone", Points: 14000, Amount: 400})
			require.NoError(t, err)

			req, err := tt.decide(env, orphan.ID)
			assert.ErrorIs(t, err, repository.ErrUserNotFound)
			assert.Nil(t, req)

			stored, err := env.redeems.Get(ctx, orphan.ID)
			require.NoError(t, err)
			assert.Equal(t, model.RedeemPending, stored.Status)
			assert.Nil(t, stored.DecidedAt)
		})
	}
}
