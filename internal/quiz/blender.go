package quiz

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"bharat-rewards/internal/model"
	"bharat-rewards/internal/pkg/metrics"
)

// ErrInvalidCount is returned for a negative count.
var ErrInvalidCount = errors.New("question count must not be negative")

// Source is where a served question came from.
type Source string

// Question sources, in priority order.
const (
	SourceCustom    Source = "custom"
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
)

// Item is a served question tagged with its source.
type Item struct {
	model.Question
	Source Source `json:"source"`
}

// Batch is the result of one Supply call.
type Batch struct {
	Category  model.Category
	Requested int
	Items     []Item
	// GenerationErr is the generation failure that was replaced by fallback
	// content, if any. It is informational; the batch is still usable.
	GenerationErr error
}

// Questions returns the served questions in order.
func (b *Batch) Questions() []model.Question {
	out := make([]model.Question, len(b.Items))
	for i, item := range b.Items {
		out[i] = item.Question
	}
	return out
}

// Count returns how many items came from src.
func (b *Batch) Count(src Source) int {
	n := 0
	for _, item := range b.Items {
		if item.Source == src {
			n++
		}
	}
	return n
}

// Short reports whether fewer questions than requested were available.
func (b *Batch) Short() bool {
	return len(b.Items) < b.Requested
}

// GenerateRequest asks a Generator for Count drafts of one category.
type GenerateRequest struct {
	Category       model.Category
	Count          int
	Prompt         string
	MultipleChoice bool
}

// Generator produces new questions. Implementations make a single attempt
// and report any failure; the blender owns the fallback.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) ([]Draft, error)
}

// CustomSource lists admin-authored questions of a category.
type CustomSource interface {
	List(ctx context.Context, category model.Category) ([]model.Question, error)
}

// Blender composes question batches: custom questions first, then
// generated ones, then the built-in fallback set.
type Blender struct {
	registry  *Registry
	custom    CustomSource
	generator Generator
	metrics   *metrics.Metrics
	shuffle   func(qs []model.Question)
}

// NewBlender creates a Blender. A nil generator means no generation
// credential is configured and every shortfall is served from fallback.
// m may be nil.
func NewBlender(registry *Registry, custom CustomSource, generator Generator, m *metrics.Metrics) *Blender {
	return &Blender{
		registry:  registry,
		custom:    custom,
		generator: generator,
		metrics:   m,
		shuffle: func(qs []model.Question) {
			rand.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
		},
	}
}

// HasGenerator reports whether a generation service is configured.
func (b *Blender) HasGenerator() bool {
	return b.generator != nil
}

// Supply returns at most count questions of category. It errors only on an
// unknown category, a negative count or a custom-question storage failure;
// generation failures are recovered with fallback content and reported on
// the batch.
func (b *Blender) Supply(ctx context.Context, category model.Category, count int) (*Batch, error) {
	if count < 0 {
		return nil, ErrInvalidCount
	}
	kind, err := b.registry.Lookup(category)
	if err != nil {
		return nil, err
	}

	batch := &Batch{Category: category, Requested: count}
	if count == 0 {
		return batch, nil
	}

	custom, err := b.custom.List(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to load custom questions: %w", err)
	}
	b.shuffle(custom)
	if len(custom) > count {
		custom = custom[:count]
	}
	for _, q := range custom {
		batch.Items = append(batch.Items, Item{Question: q, Source: SourceCustom})
	}

	if remaining := count - len(batch.Items); remaining > 0 && b.HasGenerator() {
		b.generate(ctx, kind, remaining, batch)
	}

	if remaining := count - len(batch.Items); remaining > 0 {
		if !b.HasGenerator() {
			log.Debug().Str("category", string(category)).Msg("No generator configured, using fallback questions")
		}
		b.fill(kind, remaining, batch)
	}

	b.metrics.QuestionsServed(string(category), string(SourceCustom), batch.Count(SourceCustom))
	b.metrics.QuestionsServed(string(category), string(SourceGenerated), batch.Count(SourceGenerated))
	b.metrics.QuestionsServed(string(category), string(SourceFallback), batch.Count(SourceFallback))

	return batch, nil
}

// generate makes one generation attempt for remaining items and appends the
// valid ones. Failures are logged and recorded on the batch.
func (b *Blender) generate(ctx context.Context, kind *Kind, remaining int, batch *Batch) {
	drafts, err := b.generator.Generate(ctx, GenerateRequest{
		Category:       kind.Category,
		Count:          remaining,
		Prompt:         kind.BuildPrompt(remaining),
		MultipleChoice: kind.MultipleChoice,
	})
	if err != nil {
		batch.GenerationErr = err
		b.metrics.GenerationFailed(string(kind.Category))
		log.Warn().Err(err).
			Str("category", string(kind.Category)).
			Int("remaining", remaining).
			Msg("Question generation failed, using fallback questions")
		return
	}

	prefix := strings.ToLower(string(kind.Category))
	accepted, dropped := 0, 0
	for _, d := range drafts {
		if accepted == remaining {
			break
		}
		if !kind.Valid(d) {
			dropped++
			continue
		}
		if !kind.MultipleChoice {
			d.Options = nil
		}
		batch.Items = append(batch.Items, Item{
			Question: toQuestion(prefix+"-"+uuid.NewString(), kind.Category, d),
			Source:   SourceGenerated,
		})
		accepted++
	}

	if dropped > 0 || accepted < remaining {
		log.Warn().
			Str("category", string(kind.Category)).
			Int("requested", remaining).
			Int("accepted", accepted).
			Int("dropped", dropped).
			Msg("Generation returned too few usable questions")
	}
}

// fill appends up to remaining fallback questions.
func (b *Blender) fill(kind *Kind, remaining int, batch *Batch) {
	fallback, err := b.registry.Fallback(kind.Category)
	if err != nil {
		return
	}
	if len(fallback) > remaining {
		fallback = fallback[:remaining]
	}
	for _, q := range fallback {
		batch.Items = append(batch.Items, Item{Question: q, Source: SourceFallback})
	}
}
