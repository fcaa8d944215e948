package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bharat-rewards/internal/model"
	"bharat-rewards/internal/quiz"
	"bharat-rewards/internal/repository"
)

func TestAdminService_Settings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	got, err := env.admin.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(), got)

	err = env.admin.UpdateSettings(ctx, model.AppSettings{MinRedeemPoints: 0, PointsPerQuestion: 10, CurrencyRate: 35})
	assert.ErrorIs(t, err, ErrInvalidInput)

	want := model.AppSettings{MinRedeemPoints: 5000, PointsPerQuestion: 20, CurrencyRate: 50}
	require.NoError(t, env.admin.UpdateSettings(ctx, want))

	got, err = env.admin.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAdminService_AdjustPoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	player := env.newPlayer(t, "asha", 100)

	u, err := env.admin.AdjustPoints(ctx, player.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(150), u.Points)

	u, err = env.admin.AdjustPoints(ctx, player.ID, -1000)
	require.NoError(t, err)
	assert.Equal(t, int64(0), u.Points)

	_, err = env.admin.AdjustPoints(ctx, player.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = env.admin.AdjustPoints(ctx, "missing", 5)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestAdminService_Questions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	math, err := env.admin.AddQuestion(ctx, model.Question{
		Type: model.CategoryMath, QuestionText: " 3 + 4 = ? ", CorrectAnswer: "7",
		Options: []string{"ignored"},
	})
	require.NoError(t, err)
	assert.Equal(t, "3 + 4 = ?", math.QuestionText)
	assert.Nil(t, math.Options)

	_, err = env.admin.AddQuestion(ctx, model.Question{
		Type: model.CategoryQuiz, QuestionText: "Capital of India?", CorrectAnswer: "New Delhi",
		Options: []string{"New Delhi", "Mumbai", "Chennai", "Kolkata"},
	})
	require.NoError(t, err)

	_, err = env.admin.AddQuestion(ctx, model.Question{
		Type: model.CategoryQuiz, QuestionText: "Q?", CorrectAnswer: "A", Options: []string{"A", "B"},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.admin.AddQuestion(ctx, model.Question{Type: model.CategoryPuzzle, QuestionText: "", CorrectAnswer: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.admin.AddQuestion(ctx, model.Question{Type: "RIDDLE", QuestionText: "q", CorrectAnswer: "a"})
	assert.ErrorIs(t, err, quiz.ErrUnknownCategory)

	all, err := env.admin.ListQuestions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	removed, err := env.admin.DeleteQuestion(ctx, math.ID)
	require.NoError(t, err)
	assert.Equal(t, math.QuestionText, removed.QuestionText)

	maths, err := env.admin.ListQuestions(ctx, model.CategoryMath)
	require.NoError(t, err)
	assert.Empty(t, maths)

	_, err = env.admin.DeleteQuestion(ctx, math.ID)
	assert.ErrorIs(t, err, repository.ErrQuestionNotFound)
}

func TestAdminService_AddQuestionLeavesCallerOptions(t *testing.T) {
	env := newTestEnv(t)
	options := []string{" Delhi ", "Mumbai", "Chennai", " Kolkata"}

	q, err := env.admin.AddQuestion(context.Background(), model.Question{
		Type: model.CategoryQuiz, QuestionText: "Capital?", CorrectAnswer: "Delhi", Options: options,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Delhi", "Mumbai", "Chennai", "Kolkata"}, q.Options)
	assert.Equal(t, []string{" Delhi ", "Mumbai", "Chennai", " Kolkata"}, options)
}
