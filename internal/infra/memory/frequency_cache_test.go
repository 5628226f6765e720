package memory

import (
	"context"
	"testing"
	"time"

	"assoc-quiz-service/internal/app"
	"assoc-quiz-service/internal/domain"
)

func TestFrequencyCacheCaches(t *testing.T) {
	source := &countingSource{FrequencySource: app.NewReactionFrequencies(seededStore(t).Reactions())}
	cache := NewFrequencyCache(source, time.Minute)

	entries, err := cache.FrequencyTable(context.Background(), 1, domain.SelectionOptions{})
	if err != nil {
		t.Fatalf("frequency table: %v", err)
	}
	if len(entries) != 2 || entries[0].Count != 2 {
		t.Fatalf("unexpected table %+v", entries)
	}
	if source.calls != 1 {
		t.Fatalf("expected source once, got %d", source.calls)
	}

	if _, err := cache.FrequencyTable(context.Background(), 1, domain.SelectionOptions{}); err != nil {
		t.Fatalf("frequency table 2: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected cache hit, source calls %d", source.calls)
	}

	// A different selection is a different key.
	if _, err := cache.FrequencyTable(context.Background(), 1, domain.SelectionOptions{Sex: "female"}); err != nil {
		t.Fatalf("frequency table 3: %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("expected miss for new options, source calls %d", source.calls)
	}
}

func TestFrequencyCacheExpires(t *testing.T) {
	source := &countingSource{FrequencySource: app.NewReactionFrequencies(seededStore(t).Reactions())}
	cache := NewFrequencyCache(source, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.clock = func() time.Time { return now }

	_, _ = cache.FrequencyTable(context.Background(), 1, domain.SelectionOptions{})
	now = now.Add(2 * time.Minute)
	_, _ = cache.FrequencyTable(context.Background(), 1, domain.SelectionOptions{})
	if source.calls != 2 {
		t.Fatalf("expected reload after expiry, source calls %d", source.calls)
	}
}

type countingSource struct {
	app.FrequencySource
	calls int
}

func (s *countingSource) FrequencyTable(ctx context.Context, stimulusID int64, opts domain.SelectionOptions) ([]domain.FrequencyEntry, error) {
	s.calls++
	return s.FrequencySource.FrequencyTable(ctx, stimulusID, opts)
}

func seededStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	store := NewStore()
	cat, _ := store.Stimuli().Create(ctx, domain.Stimulus{Text: "cat"})
	alice, _ := store.People().Create(ctx, domain.Person{Attributes: domain.Attributes{"sex": "female", "age": 30}})
	bob, _ := store.People().Create(ctx, domain.Person{Attributes: domain.Attributes{"sex": "male", "age": 45.0}})
	err := store.Reactions().CreateMany(ctx, []domain.Reaction{
		{Reaction: text("dog"), PersonID: alice.ID, StimulusID: cat.ID, QuizID: 1},
		{Reaction: text("mouse"), PersonID: bob.ID, StimulusID: cat.ID, QuizID: 1},
		{Reaction: text("dog"), PersonID: bob.ID, StimulusID: cat.ID, QuizID: 2},
	})
	if err != nil {
		t.Fatalf("seed reactions: %v", err)
	}
	return store
}

func text(s string) *string { return &s }

func TestFrequencyCacheInvalidateDropsAllSelections(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{FrequencySource: app.NewReactionFrequencies(seededStore(t).Reactions())}
	cache := NewFrequencyCache(source, time.Minute)

	_, _ = cache.FrequencyTable(ctx, 1, domain.SelectionOptions{})
	_, _ = cache.FrequencyTable(ctx, 1, domain.SelectionOptions{Sex: "male"})
	_, _ = cache.FrequencyTable(ctx, 11, domain.SelectionOptions{})
	if source.calls != 3 {
		t.Fatalf("expected 3 loads, got %d", source.calls)
	}

	if err := cache.Invalidate(ctx, 1); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = cache.FrequencyTable(ctx, 1, domain.SelectionOptions{})
	_, _ = cache.FrequencyTable(ctx, 1, domain.SelectionOptions{Sex: "male"})
	if source.calls != 5 {
		t.Fatalf("expected both selections of stimulus 1 reloaded, source calls %d", source.calls)
	}
	// Stimulus 11 shares the digit prefix but must stay cached.
	_, _ = cache.FrequencyTable(ctx, 11, domain.SelectionOptions{})
	if source.calls != 5 {
		t.Fatalf("expected stimulus 11 still cached, source calls %d", source.calls)
	}
}
