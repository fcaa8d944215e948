// Package quiz composes question batches for quiz rounds and checks answers.
package quiz

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"bharat-rewards/internal/model"
)

// ErrUnknownCategory is returned for a category with no registered Kind.
var ErrUnknownCategory = errors.New("unknown question category")

// Draft is a question before it is given an id and a type. It is also the
// JSON shape requested from the generation service.
type Draft struct {
	QuestionText  string   `json:"questionText"`
	CorrectAnswer string   `json:"correctAnswer"`
	Options       []string `json:"options,omitempty"`
}

// Kind describes one question category: how to ask the generation service
// for it, what to serve when generation is unavailable, and how answers are
// judged.
type Kind struct {
	Category model.Category
	// Title is the display name shown to players.
	Title string
	// Prompt is a format string taking the number of items to generate.
	Prompt string
	// MultipleChoice kinds carry exactly OptionCount options per question.
	MultipleChoice bool
	// Fallback is the built-in set served without generation.
	Fallback []Draft
	// Match reports whether given is an acceptable answer to expected.
	Match func(expected, given string) bool
}

// OptionCount is the number of options on a multiple-choice question.
const OptionCount = 4

// BuildPrompt returns the generation prompt for count items.
func (k *Kind) BuildPrompt(count int) string {
	return fmt.Sprintf(k.Prompt, count)
}

// Valid reports whether d is usable as a question of this kind.
func (k *Kind) Valid(d Draft) bool {
	if d.QuestionText == "" || d.CorrectAnswer == "" {
		return false
	}
	if !k.MultipleChoice {
		return true
	}
	if len(d.Options) != OptionCount {
		return false
	}
	for _, opt := range d.Options {
		if foldMatch(opt, d.CorrectAnswer) {
			return true
		}
	}
	return false
}

// Registry manages question kinds.
// It provides a thread-safe way to register and retrieve kinds by category.
type Registry struct {
	kinds map[model.Category]*Kind
	mu    sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		kinds: make(map[model.Category]*Kind),
	}
}

// NewDefaultRegistry creates a registry holding the four built-in kinds.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, k := range BuiltinKinds() {
		// Built-in kinds are always well formed.
		_ = r.Register(k)
	}
	return r
}

// Register adds a kind to the registry.
// If a kind for the same category already exists, it will be replaced.
func (r *Registry) Register(k *Kind) error {
	if k == nil {
		return fmt.Errorf("cannot register nil kind")
	}
	if k.Category == "" {
		return fmt.Errorf("kind category cannot be empty")
	}
	if k.Prompt == "" {
		return fmt.Errorf("kind %s has no prompt", k.Category)
	}
	if k.Match == nil {
		return fmt.Errorf("kind %s has no answer matcher", k.Category)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[k.Category] = k
	return nil
}

// Get retrieves a kind by category.
func (r *Registry) Get(category model.Category) (*Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[category]
	return k, ok
}

// Lookup is Get returning ErrUnknownCategory for a missing kind.
func (r *Registry) Lookup(category model.Category) (*Kind, error) {
	k, ok := r.Get(category)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	return k, nil
}

// List returns all registered kinds, built-in categories first in display
// order, then any others by name.
func (r *Registry) List() []*Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rank := make(map[model.Category]int)
	for i, c := range model.Categories() {
		rank[c] = i
	}

	kinds := make([]*Kind, 0, len(r.kinds))
	for _, k := range r.kinds {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		ri, iok := rank[kinds[i].Category]
		rj, jok := rank[kinds[j].Category]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return kinds[i].Category < kinds[j].Category
		}
	})
	return kinds
}

// Count returns the number of registered kinds.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.kinds)
}

// BuildPrompt returns the generation prompt for count items of category.
func (r *Registry) BuildPrompt(category model.Category, count int) (string, error) {
	k, err := r.Lookup(category)
	if err != nil {
		return "", err
	}
	return k.BuildPrompt(count), nil
}

// Fallback returns the built-in questions for category with fresh ids.
func (r *Registry) Fallback(category model.Category) ([]model.Question, error) {
	k, err := r.Lookup(category)
	if err != nil {
		return nil, err
	}
	batch := "fb-" + uuid.NewString()[:8]
	out := make([]model.Question, 0, len(k.Fallback))
	for i, d := range k.Fallback {
		out = append(out, toQuestion(fmt.Sprintf("%s-%d", batch, i+1), category, d))
	}
	return out, nil
}

// CheckAnswer judges given against q using its kind's matcher. Questions of
// an unregistered type are compared case-insensitively.
func (r *Registry) CheckAnswer(q model.Question, given string) bool {
	if k, ok := r.Get(q.Type); ok {
		return k.Match(q.CorrectAnswer, given)
	}
	return foldMatch(q.CorrectAnswer, given)
}

func toQuestion(id string, category model.Category, d Draft) model.Question {
	q := model.Question{
		ID:            id,
		Type:          category,
		QuestionText:  d.QuestionText,
		CorrectAnswer: d.CorrectAnswer,
	}
	if len(d.Options) > 0 {
		q.Options = append([]string(nil), d.Options...)
	}
	return q
}
