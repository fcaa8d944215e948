package quiz

import (
	"context"
	"errors"
	"testing"

	"pgregory.net/rapid"

	"bharat-rewards/internal/model"
)

// **Property 1: Batches never exceed the requested count**
// For any count, custom supply and generator behaviour, Supply returns at
// most count items, and exactly count whenever the sources together can
// cover it.
func TestProperty_SupplyBounded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		category := rapid.SampledFrom(model.Categories()).Draw(t, "category")
		count := rapid.IntRange(0, 12).Draw(t, "count")
		customN := rapid.IntRange(0, 8).Draw(t, "custom")
		mode := rapid.IntRange(0, 2).Draw(t, "generator")

		var customs []model.Question
		for i := 0; i < customN; i++ {
			customs = append(customs, model.Question{
				ID: rapid.StringMatching(`[a-z]{6}`).Draw(t, "id"), Type: category,
				QuestionText: "q", CorrectAnswer: "a",
			})
		}

		var gen Generator
		switch mode {
		case 1:
			gen = &fakeGenerator{}
		case 2:
			gen = &fakeGenerator{err: errors.New("boom")}
		}

		b := NewBlender(NewDefaultRegistry(), &fakeCustom{questions: customs}, gen, nil)
		batch, err := b.Supply(context.Background(), category, count)
		if err != nil {
			t.Fatalf("supply failed: %v", err)
		}

		if len(batch.Items) > count {
			t.Fatalf("got %d items for count %d", len(batch.Items), count)
		}

		kind, _ := NewDefaultRegistry().Get(category)
		available := customN + len(kind.Fallback)
		if mode == 1 {
			available = count
		}
		if available >= count && len(batch.Items) != count {
			t.Fatalf("expected %d items, got %d", count, len(batch.Items))
		}

		want := customN
		if want > count {
			want = count
		}
		if batch.Count(SourceCustom) != want {
			t.Fatalf("expected %d custom items, got %d", want, batch.Count(SourceCustom))
		}
		for _, item := range batch.Items {
			if item.Type != category {
				t.Fatalf("item %s has type %s, want %s", item.ID, item.Type, category)
			}
		}
	})
}

// **Property 2: Custom questions come first**
// Every custom item precedes every generated or fallback item.
func TestProperty_CustomFirst(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(1, 10).Draw(t, "count")
		customN := rapid.IntRange(0, 10).Draw(t, "custom")

		b := NewBlender(NewDefaultRegistry(), &fakeCustom{questions: customMath(customN)}, &fakeGenerator{}, nil)
		batch, err := b.Supply(context.Background(), model.CategoryMath, count)
		if err != nil {
			t.Fatalf("supply failed: %v", err)
		}

		seenOther := false
		for _, item := range batch.Items {
			if item.Source != SourceCustom {
				seenOther = true
			} else if seenOther {
				t.Fatalf("custom item %s after non-custom item", item.ID)
			}
		}
	})
}
