package service

import (
	"context"

	"github.com/stretchr/testify/require"

	"bharat-rewards/internal/model"
	"bharat-rewards/internal/pkg/kv"
	"bharat-rewards/internal/pkg/lock"
	"bharat-rewards/internal/pkg/metrics"
	"bharat-rewards/internal/quiz"
	"bharat-rewards/internal/repository"
)

// testingT is satisfied by both *testing.T and *rapid.T.
type testingT interface {
	require.TestingT
	Helper()
}

// testEnv wires every service over one in-memory store.
type testEnv struct {
	store     *kv.MemoryStore
	users     *repository.UserRepository
	sessions  *repository.SessionRepository
	redeems   *repository.RedeemRepository
	settings  *repository.SettingsRepository
	questions *repository.QuestionRepository
	registry  *quiz.Registry

	accounts *AccountService
	quizzes  *QuizService
	redeem   *RedeemService
	admin    *AdminService
	ranking  *RankingService
}

func newTestEnv(t testingT) *testEnv {
	t.Helper()

	store := kv.NewMemoryStore("test_")
	users := repository.NewUserRepository(store)
	sessions := repository.NewSessionRepository(store, users)
	redeems := repository.NewRedeemRepository(store)
	settings := repository.NewSettingsRepository(store, model.DefaultSettings())
	questions := repository.NewQuestionRepository(store)
	registry := quiz.NewDefaultRegistry()
	userLock := lock.NewUserLock()
	m := metrics.New()

	blender := quiz.NewBlender(registry, questions, nil, m)

	return &testEnv{
		store:     store,
		users:     users,
		sessions:  sessions,
		redeems:   redeems,
		settings:  settings,
		questions: questions,
		registry:  registry,
		accounts:  NewAccountService(users, sessions, nil),
		quizzes:   NewQuizService(blender, registry, users, sessions, settings, userLock, m, 5, 20),
		redeem:    NewRedeemService(users, redeems, settings, userLock, m, nil),
		admin:     NewAdminService(users, settings, questions, registry, userLock, nil),
		ranking:   NewRankingService(users),
	}
}

// newPlayer registers a user holding points.
func (e *testEnv) newPlayer(t testingT, name string, points int64) *model.User {
	t.Helper()
	ctx := context.Background()

	u, err := e.users.Register(ctx, name, name+"@example.com", "", model.RoleUser)
	require.NoError(t, err)
	if points > 0 {
		u, err = e.users.AdjustPoints(ctx, u.ID, points, false)
		require.NoError(t, err)
	}
	return u
}

// login binds u to sessionKey.
func (e *testEnv) login(t testingT, sessionKey string, u *model.User) {
	t.Helper()
	_, err := e.sessions.Login(context.Background(), sessionKey, u.Email, "")
	require.NoError(t, err)
}
