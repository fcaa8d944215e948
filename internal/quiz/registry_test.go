package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bharat-rewards/internal/model"
)

func TestDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()
	assert.Equal(t, 4, r.Count())

	var order []model.Category
	for _, k := range r.List() {
		order = append(order, k.Category)
	}
	assert.Equal(t, model.Categories(), order)
}

func TestRegistry_RegisterRejectsIncompleteKinds(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(&Kind{Prompt: "x %d", Match: foldMatch}))
	assert.Error(t, r.Register(&Kind{Category: "X", Match: foldMatch}))
	assert.Error(t, r.Register(&Kind{Category: "X", Prompt: "x %d"}))
	assert.NoError(t, r.Register(&Kind{Category: "X", Prompt: "x %d", Match: foldMatch}))

	// Extra kinds sort after the built-in ones.
	require.NoError(t, r.Register(BuiltinKinds()[0]))
	kinds := r.List()
	require.Len(t, kinds, 2)
	assert.Equal(t, model.CategoryMath, kinds[0].Category)
}

func TestRegistry_BuildPrompt(t *testing.T) {
	r := NewDefaultRegistry()

	tests := []struct {
		category model.Category
		contains string
	}{
		{model.CategoryMath, "Generate 3 math problems"},
		{model.CategoryQuiz, "Generate 3 Indian trivia questions"},
		{model.CategoryPuzzle, "Generate 3 riddles"},
		{model.CategoryTyping, "Generate 3 short facts about India"},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			prompt, err := r.BuildPrompt(tt.category, 3)
			require.NoError(t, err)
			assert.Contains(t, prompt, tt.contains)
		})
	}

	_, err := r.BuildPrompt("RIDDLE", 3)
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestRegistry_FallbackSets(t *testing.T) {
	r := NewDefaultRegistry()

	sizes := map[model.Category]int{
		model.CategoryMath:   3,
		model.CategoryQuiz:   2,
		model.CategoryPuzzle: 1,
		model.CategoryTyping: 1,
	}
	for category, size := range sizes {
		qs, err := r.Fallback(category)
		require.NoError(t, err)
		assert.Len(t, qs, size, category)
		for _, q := range qs {
			assert.Equal(t, category, q.Type)
			assert.NotEmpty(t, q.ID)
		}
	}

	_, err := r.Fallback("RIDDLE")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestCheckAnswer(t *testing.T) {
	r := NewDefaultRegistry()

	tests := []struct {
		name   string
		q      model.Question
		given  string
		expect bool
	}{
		{"math exact", model.Question{Type: model.CategoryMath, CorrectAnswer: "27"}, "27", true},
		{"math numeric", model.Question{Type: model.CategoryMath, CorrectAnswer: "25"}, " 25.0 ", true},
		{"math wrong", model.Question{Type: model.CategoryMath, CorrectAnswer: "50"}, "51", false},
		{"math text answer", model.Question{Type: model.CategoryMath, CorrectAnswer: "Even"}, "even", true},
		{"quiz case", model.Question{Type: model.CategoryQuiz, CorrectAnswer: "Peacock"}, "peacock", true},
		{"quiz wrong", model.Question{Type: model.CategoryQuiz, CorrectAnswer: "Rupee"}, "Yen", false},
		{"puzzle trimmed", model.Question{Type: model.CategoryPuzzle, CorrectAnswer: "m"}, "  M ", true},
		{"typing exact", model.Question{Type: model.CategoryTyping, CorrectAnswer: "India is big."}, "India  is\tbig.", true},
		{"typing case", model.Question{Type: model.CategoryTyping, CorrectAnswer: "India is big."}, "india is big.", false},
		{"unknown type", model.Question{Type: "OTHER", CorrectAnswer: "Yes"}, "yes", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, r.CheckAnswer(tt.q, tt.given))
		})
	}
}

func TestKindValid(t *testing.T) {
	quiz, ok := NewDefaultRegistry().Get(model.CategoryQuiz)
	require.True(t, ok)

	assert.True(t, quiz.Valid(Draft{QuestionText: "Q", CorrectAnswer: "b", Options: []string{"A", "B", "C", "D"}}))
	assert.False(t, quiz.Valid(Draft{QuestionText: "Q", CorrectAnswer: "E", Options: []string{"A", "B", "C", "D"}}))
	assert.False(t, quiz.Valid(Draft{QuestionText: "Q", CorrectAnswer: "A"}))
}
