package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"bharat-rewards/internal/model"
	"bharat-rewards/internal/pkg/kv"
)

// ErrQuestionNotFound is returned when a custom question does not exist.
var ErrQuestionNotFound = errors.New("question not found")

// QuestionRepository handles admin-authored custom questions.
type QuestionRepository struct {
	questions *collection[model.Question]
}

// NewQuestionRepository creates a new QuestionRepository instance.
func NewQuestionRepository(store kv.Store) *QuestionRepository {
	return &QuestionRepository{
		questions: newCollection[model.Question](store, KeyCustomQuestions),
	}
}

// List returns custom questions in insertion order. An empty category
// returns all of them.
func (r *QuestionRepository) List(ctx context.Context, category model.Category) ([]model.Question, error) {
	all, err := r.questions.list(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	if category == "" {
		return all, nil
	}

	out := make([]model.Question, 0, len(all))
	for _, q := range all {
		if q.Type == category {
			out = append(out, q)
		}
	}
	return out, nil
}

// Get returns a custom question by id.
func (r *QuestionRepository) Get(ctx context.Context, id string) (*model.Question, error) {
	doc, _, err := r.questions.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	q, ok := doc.get(id)
	if !ok {
		return nil, ErrQuestionNotFound
	}
	return &q, nil
}

// Add appends a custom question, assigning an id when it has none.
func (r *QuestionRepository) Add(ctx context.Context, q model.Question) (*model.Question, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}

	err := r.questions.update(ctx, func(doc *document[model.Question]) (bool, error) {
		doc.upsert(q.ID, q)
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add question: %w", err)
	}
	return &q, nil
}

// Delete removes a custom question by id. A missing id is a no-op.
// Returns true if a question was removed.
func (r *QuestionRepository) Delete(ctx context.Context, id string) (bool, error) {
	removed := false
	err := r.questions.update(ctx, func(doc *document[model.Question]) (bool, error) {
		removed = doc.remove(id)
		return removed, nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete question: %w", err)
	}
	return removed, nil
}
