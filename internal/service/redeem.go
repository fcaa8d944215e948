package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"bharat-rewards/internal/model"
	"bharat-rewards/internal/pkg/lock"
	"bharat-rewards/internal/pkg/metrics"
	"bharat-rewards/internal/repository"
)

// RedeemService converts points into wallet currency through admin-approved
// requests.
type RedeemService struct {
	users    *repository.UserRepository
	redeems  *repository.RedeemRepository
	settings *repository.SettingsRepository
	userLock  *lock.UserLock
	metrics   *metrics.Metrics
	validator *validator.Validate
}

// NewRedeemService creates a new RedeemService instance.
func NewRedeemService(
	users *repository.UserRepository,
	redeems *repository.RedeemRepository,
	settings *repository.SettingsRepository,
	userLock *lock.UserLock,
	m *metrics.Metrics,
	validate *validator.Validate,
) *RedeemService {
	if validate == nil {
		validate = validator.New()
	}
	return &RedeemService{
		users:     users,
		redeems:   redeems,
		settings:  settings,
		userLock:  userLock,
		metrics:   m,
		validator: validate,
	}
}

// Request deducts points from userID and files a PENDING request worth
// points / currencyRate. points must reach the configured minimum and be
// covered by the user's balance.
func (s *RedeemService) Request(ctx context.Context, userID string, points int64) (*model.RedeemRequest, error) {
	if points <= 0 {
		return nil, ErrInvalidAmount
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if points < settings.MinRedeemPoints {
		return nil, ErrBelowMinimum
	}

	draft := model.RedeemRequest{
		UserID: userID,
		Points: points,
		Amount: roundCurrency(settings.PointsToCurrency(points)),
	}
	if err := s.validator.Struct(draft); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var req *model.RedeemRequest
	err = s.userLock.WithLockContext(ctx, userID, lockTimeout, func() error {
		user, err := s.users.Update(ctx, userID, func(u *model.User) error {
			if u.Points < points {
				return ErrInsufficientPoints
			}
			u.Points -= points
			return nil
		})
		if err != nil {
			return err
		}

		draft.UserName = user.Name
		req, err = s.redeems.Add(ctx, draft)
		if err != nil {
			// Give the points back; the request was never filed.
			if _, refundErr := s.users.AdjustPoints(ctx, userID, points, false); refundErr != nil {
				log.Error().Err(refundErr).Str("user_id", userID).Int64("points", points).Msg("Failed to refund points")
			}
			return fmt.Errorf("failed to file redeem request: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			return nil, ErrUserBusy
		}
		return nil, err
	}

	s.metrics.RedeemDecision(string(model.RedeemPending))
	log.Info().
		Str("user_id", userID).
		Str("request_id", req.ID).
		Int64("points", points).
		Float64("amount", req.Amount).
		Msg("Redeem request filed")

	return req, nil
}

// ListByUser returns a user's requests in filing order.
func (s *RedeemService) ListByUser(ctx context.Context, userID string) ([]model.RedeemRequest, error) {
	return s.redeems.ListByUser(ctx, userID)
}

// List returns requests, all of them when status is empty.
func (s *RedeemService) List(ctx context.Context, status model.RedeemStatus) ([]model.RedeemRequest, error) {
	if status == "" {
		return s.redeems.List(ctx)
	}
	return s.redeems.ListByStatus(ctx, status)
}

// Approve marks a PENDING request APPROVED and credits its amount to the
// user's wallet. If the credit fails the request is reopened.
func (s *RedeemService) Approve(ctx context.Context, requestID string) (*model.RedeemRequest, error) {
	return s.decide(ctx, requestID, model.RedeemApproved, func(req *model.RedeemRequest) error {
		_, err := s.users.Update(ctx, req.UserID, func(u *model.User) error {
			u.WalletBalance = roundCurrency(u.WalletBalance + req.Amount)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to credit wallet: %w", err)
		}
		return nil
	})
}

// Reject marks a PENDING request REJECTED and refunds its points. If the
// refund fails the request is reopened.
func (s *RedeemService) Reject(ctx context.Context, requestID string) (*model.RedeemRequest, error) {
	return s.decide(ctx, requestID, model.RedeemRejected, func(req *model.RedeemRequest) error {
		if _, err := s.users.AdjustPoints(ctx, req.UserID, req.Points, false); err != nil {
			return fmt.Errorf("failed to refund points: %w", err)
		}
		return nil
	})
}

// decide records status on the request, then runs settle under the user's
// lock. The status change comes first so a request is settled at most once.
// When settle fails the request goes back to PENDING; if that also fails
// the decided request is returned along with the error.
func (s *RedeemService) decide(
	ctx context.Context,
	requestID string,
	status model.RedeemStatus,
	settle func(req *model.RedeemRequest) error,
) (*model.RedeemRequest, error) {
	req, err := s.redeems.UpdateStatus(ctx, requestID, status)
	if err != nil {
		return nil, err
	}

	err = s.userLock.WithLockContext(ctx, req.UserID, lockTimeout, func() error {
		return settle(req)
	})
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			err = ErrUserBusy
		}
		if _, reopenErr := s.redeems.Reopen(ctx, req.ID, status); reopenErr != nil {
			log.Error().Err(reopenErr).Str("request_id", req.ID).Msg("Failed to reopen redeem request")
			return req, err
		}
		log.Warn().Err(err).Str("request_id", req.ID).Str("status", string(status)).Msg("Redeem settlement failed, request reopened")
		return nil, err
	}

	s.metrics.RedeemDecision(string(status))
	log.Info().
		Str("request_id", req.ID).
		Str("user_id", req.UserID).
		Str("status", string(status)).
		Int64("points", req.Points).
		Float64("amount", req.Amount).
		Msg("Redeem request decided")
	return req, nil
}

// roundCurrency rounds to two decimal places.
func roundCurrency(v float64) float64 {
	return math.Round(v*100) / 100
}
