package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"bharat-rewards/internal/model"
	"bharat-rewards/internal/pkg/lock"
	"bharat-rewards/internal/quiz"
	"bharat-rewards/internal/repository"
)

// AdminService backs the administrator commands.
type AdminService struct {
	users     *repository.UserRepository
	settings  *repository.SettingsRepository
	questions *repository.QuestionRepository
	registry  *quiz.Registry
	userLock  *lock.UserLock
	validator *validator.Validate
}

// NewAdminService creates a new AdminService instance.
func NewAdminService(
	users *repository.UserRepository,
	settings *repository.SettingsRepository,
	questions *repository.QuestionRepository,
	registry *quiz.Registry,
	userLock *lock.UserLock,
	validate *validator.Validate,
) *AdminService {
	if validate == nil {
		validate = validator.New()
	}
	return &AdminService{
		users:     users,
		settings:  settings,
		questions: questions,
		registry:  registry,
		userLock:  userLock,
		validator: validate,
	}
}

// ListUsers returns every account in registration order.
func (s *AdminService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.users.List(ctx)
}

// FindUserByEmail looks a user up case-insensitively.
func (s *AdminService) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.users.FindByEmail(ctx, email)
}

// AdjustPoints adds delta (possibly negative) to a user's points.
// Points never drop below zero.
func (s *AdminService) AdjustPoints(ctx context.Context, userID string, delta int64) (*model.User, error) {
	if delta == 0 {
		return nil, ErrInvalidAmount
	}

	var user *model.User
	err := s.userLock.WithLockContext(ctx, userID, lockTimeout, func() error {
		var err error
		user, err = s.users.AdjustPoints(ctx, userID, delta, false)
		return err
	})
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			return nil, ErrUserBusy
		}
		return nil, err
	}

	log.Info().Str("user_id", userID).Int64("delta", delta).Int64("points", user.Points).Msg("Admin adjusted points")
	return user, nil
}

// GetSettings returns the stored settings, or the defaults.
func (s *AdminService) GetSettings(ctx context.Context) (model.AppSettings, error) {
	return s.settings.Get(ctx)
}

// UpdateSettings validates and stores settings.
func (s *AdminService) UpdateSettings(ctx context.Context, settings model.AppSettings) error {
	if err := s.validator.Struct(settings); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := s.settings.Save(ctx, settings); err != nil {
		return err
	}
	log.Info().
		Int64("min_redeem_points", settings.MinRedeemPoints).
		Int64("points_per_question", settings.PointsPerQuestion).
		Float64("currency_rate", settings.CurrencyRate).
		Msg("Settings updated")
	return nil
}

// AddQuestion stores a custom question. Multiple-choice kinds need exactly
// four options, one of which is the correct answer.
func (s *AdminService) AddQuestion(ctx context.Context, q model.Question) (*model.Question, error) {
	q.QuestionText = strings.TrimSpace(q.QuestionText)
	q.CorrectAnswer = strings.TrimSpace(q.CorrectAnswer)
	if len(q.Options) > 0 {
		options := make([]string, len(q.Options))
		for i, o := range q.Options {
			options[i] = strings.TrimSpace(o)
		}
		q.Options = options
	}

	kind, err := s.registry.Lookup(q.Type)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(q); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !kind.MultipleChoice {
		q.Options = nil
	}
	if !kind.Valid(quiz.Draft{QuestionText: q.QuestionText, CorrectAnswer: q.CorrectAnswer, Options: q.Options}) {
		return nil, fmt.Errorf("%w: %s questions need %d options including the answer", ErrInvalidInput, q.Type, quiz.OptionCount)
	}

	return s.questions.Add(ctx, q)
}

// ListQuestions returns custom questions, all of them when category is empty.
func (s *AdminService) ListQuestions(ctx context.Context, category model.Category) ([]model.Question, error) {
	return s.questions.List(ctx, category)
}

// DeleteQuestion removes a custom question and returns it.
// An unknown id is repository.ErrQuestionNotFound.
func (s *AdminService) DeleteQuestion(ctx context.Context, id string) (*model.Question, error) {
	q, err := s.questions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.questions.Delete(ctx, id); err != nil {
		return nil, err
	}
	return q, nil
}
