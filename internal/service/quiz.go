package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"bharat-rewards/internal/model"
	"bharat-rewards/internal/pkg/lock"
	"bharat-rewards/internal/pkg/metrics"
	"bharat-rewards/internal/quiz"
	"bharat-rewards/internal/repository"
)

// lockTimeout bounds how long an operation waits for a per-user lock.
const lockTimeout = 5 * time.Second

// Round is a quiz round in progress for one session.
type Round struct {
	SessionKey string
	UserID     string
	Category   model.Category
	Questions  []model.Question
	Sources    []quiz.Source
	Index      int
	Correct    int
	Earned     int64
	StartedAt  time.Time
}

// Current returns the question awaiting an answer, or nil when finished.
func (r *Round) Current() *model.Question {
	if r == nil || r.Index >= len(r.Questions) {
		return nil
	}
	q := r.Questions[r.Index]
	return &q
}

// Total returns the number of questions in the round.
func (r *Round) Total() int {
	return len(r.Questions)
}

func (r *Round) clone() *Round {
	c := *r
	c.Questions = append([]model.Question(nil), r.Questions...)
	c.Sources = append([]quiz.Source(nil), r.Sources...)
	return &c
}

// AnswerResult describes the outcome of one answer.
type AnswerResult struct {
	Correct  bool
	Expected string
	Awarded  int64
	User     *model.User
	Next     *model.Question
	Finished bool
	Round    *Round
}

// QuizService runs quiz rounds and awards points for correct answers.
type QuizService struct {
	blender      *quiz.Blender
	registry     *quiz.Registry
	users        *repository.UserRepository
	sessions     *repository.SessionRepository
	settings     *repository.SettingsRepository
	userLock     *lock.UserLock
	metrics      *metrics.Metrics
	defaultCount int
	maxCount     int

	mu     sync.Mutex
	rounds map[string]*Round
}

// NewQuizService creates a new QuizService instance.
func NewQuizService(
	blender *quiz.Blender,
	registry *quiz.Registry,
	users *repository.UserRepository,
	sessions *repository.SessionRepository,
	settings *repository.SettingsRepository,
	userLock *lock.UserLock,
	m *metrics.Metrics,
	defaultCount, maxCount int,
) *QuizService {
	if defaultCount <= 0 {
		defaultCount = 5
	}
	if maxCount < defaultCount {
		maxCount = defaultCount
	}
	return &QuizService{
		blender:      blender,
		registry:     registry,
		users:        users,
		sessions:     sessions,
		settings:     settings,
		userLock:     userLock,
		metrics:      m,
		defaultCount: defaultCount,
		maxCount:     maxCount,
		rounds:       make(map[string]*Round),
	}
}

// Categories returns the playable question kinds.
func (s *QuizService) Categories() []*quiz.Kind {
	return s.registry.List()
}

// Start begins a round for sessionKey, replacing any round in progress.
// A count of zero uses the default size; larger counts are capped.
func (s *QuizService) Start(ctx context.Context, sessionKey, userID string, category model.Category, count int) (*Round, error) {
	if count <= 0 {
		count = s.defaultCount
	}
	if count > s.maxCount {
		count = s.maxCount
	}

	batch, err := s.blender.Supply(ctx, category, count)
	if err != nil {
		return nil, err
	}
	if len(batch.Items) == 0 {
		return nil, ErrNoQuestions
	}

	round := &Round{
		SessionKey: sessionKey,
		UserID:     userID,
		Category:   category,
		StartedAt:  time.Now(),
	}
	for _, item := range batch.Items {
		round.Questions = append(round.Questions, item.Question)
		round.Sources = append(round.Sources, item.Source)
	}

	s.mu.Lock()
	s.rounds[sessionKey] = round
	s.mu.Unlock()

	log.Info().
		Str("session", sessionKey).
		Str("category", string(category)).
		Int("questions", round.Total()).
		Int("custom", batch.Count(quiz.SourceCustom)).
		Int("generated", batch.Count(quiz.SourceGenerated)).
		Int("fallback", batch.Count(quiz.SourceFallback)).
		Msg("Quiz round started")

	return round.clone(), nil
}

// Round returns a copy of the round in progress for sessionKey.
func (s *QuizService) Round(sessionKey string) (*Round, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rounds[sessionKey]
	if !ok {
		return nil, false
	}
	return r.clone(), true
}

// Answer judges answer against the current question. A correct answer
// awards the configured points per question and counts as solved. The
// round advances either way and is removed once finished. A round whose
// player is no longer logged in under sessionKey is dropped with
// ErrSessionEnded.
func (s *QuizService) Answer(ctx context.Context, sessionKey, answer string) (*AnswerResult, error) {
	var result *AnswerResult
	err := s.userLock.WithLockContext(ctx, "round:"+sessionKey, lockTimeout, func() error {
		var err error
		result, err = s.answer(ctx, sessionKey, answer)
		return err
	})
	if errors.Is(err, lock.ErrLockTimeout) {
		return nil, ErrUserBusy
	}
	return result, err
}

func (s *QuizService) answer(ctx context.Context, sessionKey, answer string) (*AnswerResult, error) {
	s.mu.Lock()
	round, ok := s.rounds[sessionKey]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNoActiveRound
	}

	q := round.Current()
	if q == nil {
		return nil, ErrNoActiveRound
	}

	if err := s.checkPlayer(ctx, round); err != nil {
		return nil, err
	}

	result := &AnswerResult{
		Correct:  s.registry.CheckAnswer(*q, answer),
		Expected: q.CorrectAnswer,
	}
	s.metrics.AnswerSubmitted(string(q.Type), result.Correct)

	if result.Correct {
		settings, err := s.settings.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load settings: %w", err)
		}
		user, err := s.award(ctx, round.UserID, settings.PointsPerQuestion)
		if err != nil {
			return nil, err
		}
		result.Awarded = settings.PointsPerQuestion
		result.User = user
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Quit may have removed the round while points were awarded.
	if current, ok := s.rounds[sessionKey]; !ok || current != round {
		result.Finished = true
		result.Round = round.clone()
		return result, nil
	}

	round.Index++
	if result.Correct {
		round.Correct++
		round.Earned += result.Awarded
	}
	result.Next = round.Current()
	result.Finished = result.Next == nil
	if result.Finished {
		delete(s.rounds, sessionKey)
		log.Info().
			Str("session", sessionKey).
			Int("correct", round.Correct).
			Int("total", round.Total()).
			Int64("earned", round.Earned).
			Msg("Quiz round finished")
	}
	result.Round = round.clone()
	return result, nil
}

// checkPlayer verifies the round's player still holds the session and drops
// the round otherwise.
func (s *QuizService) checkPlayer(ctx context.Context, round *Round) error {
	session, err := s.sessions.Current(ctx, round.SessionKey)
	switch {
	case err == nil && session.User.ID == round.UserID:
		return nil
	case err == nil, errors.Is(err, repository.ErrNoSession):
		s.mu.Lock()
		if s.rounds[round.SessionKey] == round {
			delete(s.rounds, round.SessionKey)
		}
		s.mu.Unlock()
		log.Info().
			Str("session", round.SessionKey).
			Str("user_id", round.UserID).
			Msg("Quiz round dropped, player no longer logged in")
		return ErrSessionEnded
	default:
		return fmt.Errorf("failed to load session: %w", err)
	}
}

// award credits points and a solved question to userID.
func (s *QuizService) award(ctx context.Context, userID string, points int64) (*model.User, error) {
	var user *model.User
	err := s.userLock.WithLockContext(ctx, userID, lockTimeout, func() error {
		var err error
		user, err = s.users.AdjustPoints(ctx, userID, points, true)
		return err
	})
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			return nil, ErrUserBusy
		}
		return nil, fmt.Errorf("failed to award points: %w", err)
	}
	return user, nil
}

// Quit ends the round for sessionKey and returns it.
func (s *QuizService) Quit(sessionKey string) (*Round, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rounds[sessionKey]
	if !ok {
		return nil, false
	}
	delete(s.rounds, sessionKey)
	return r.clone(), true
}

// ActiveRounds returns the number of rounds in progress.
func (s *QuizService) ActiveRounds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rounds)
}
