package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"assoc-quiz-service/internal/app"
	"assoc-quiz-service/internal/domain"
	"assoc-quiz-service/internal/infra/memory"
	"github.com/google/go-cmp/cmp"
)

func TestBuildFrequencyTableFirstOccurrenceOrder(t *testing.T) {
	got := app.BuildFrequencyTable(reactionsOf("dog", "dog", "cat", "dog"))
	want := []domain.FrequencyEntry{
		{Reaction: ptr("dog"), Count: 3},
		{Reaction: ptr("cat"), Count: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildFrequencyTableIsExact(t *testing.T) {
	reactions := reactionsOf("Dog", "dog", "dog ")
	reactions = append(reactions, domain.Reaction{}, domain.Reaction{})
	got := app.BuildFrequencyTable(reactions)
	want := []domain.FrequencyEntry{
		{Reaction: ptr("Dog"), Count: 1},
		{Reaction: ptr("dog"), Count: 1},
		{Reaction: ptr("dog "), Count: 1},
		{Reaction: nil, Count: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildBrief(t *testing.T) {
	got := app.BuildBrief([]domain.FrequencyEntry{
		{Reaction: ptr("dog"), Count: 3},
		{Reaction: ptr(""), Count: 2},
		{Reaction: ptr("cat"), Count: 1},
	})
	want := domain.Brief{Total: 6, Distinct: 3, Single: 1, Null: 2}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if empty := app.BuildBrief(nil); empty != (domain.Brief{}) {
		t.Fatalf("expected zero brief, got %+v", empty)
	}
}

func TestIsNullReaction(t *testing.T) {
	for _, s := range []string{"", "nil", "/", "?", "??", "???"} {
		if !app.IsNullReaction(ptr(s)) {
			t.Fatalf("expected %q to be null", s)
		}
	}
	if !app.IsNullReaction(nil) {
		t.Fatalf("expected absent reaction to be null")
	}
	for _, s := range []string{"Nil", "NIL", "????", " ", "//", "dog", "null"} {
		if app.IsNullReaction(ptr(s)) {
			t.Fatalf("expected %q not to be null", s)
		}
	}
}

func TestDictionaryLookup(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	importer := newImporter(store, store.Stimuli(), nil)
	_, err := importer.Persist(ctx, domain.ImportBatch{
		Stimuli: []string{"cat"},
		People: []domain.ParticipantPayload{
			{Data: map[string]any{"sex": "female"}, Reactions: []map[string]any{{"reaction": "dog", "stimulus": "cat"}}},
			{Data: map[string]any{"sex": "male"}, Reactions: []map[string]any{{"reaction": "dog", "stimulus": "cat"}}},
			{Data: map[string]any{"sex": "male"}, Reactions: []map[string]any{{"reaction": "???", "stimulus": "cat"}}},
		},
	})
	if err != nil {
		t.Fatalf("persist: %v", err)
	}

	service := app.NewDictionaryService(store.Stimuli(), app.NewReactionFrequencies(store.Reactions()))

	dict, err := service.Lookup(ctx, "  cat ", domain.SelectionOptions{})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if dict.Word != "cat" || dict.StimulusID != 1 {
		t.Fatalf("unexpected dictionary header %+v", dict)
	}
	if want := (domain.Brief{Total: 3, Distinct: 2, Single: 1, Null: 1}); dict.Brief != want {
		t.Fatalf("expected brief %+v, got %+v", want, dict.Brief)
	}

	male, err := service.Lookup(ctx, "cat", domain.SelectionOptions{Sex: "male"})
	if err != nil {
		t.Fatalf("lookup male: %v", err)
	}
	if male.Brief.Total != 2 {
		t.Fatalf("expected 2 male reactions, got %+v", male.Brief)
	}

	if _, err := service.Lookup(ctx, "house", domain.SelectionOptions{}); !errors.Is(err, domain.ErrStimulusNotFound) {
		t.Fatalf("expected stimulus not found, got %v", err)
	}
	if _, err := service.Lookup(ctx, "  ", domain.SelectionOptions{}); !errors.Is(err, domain.ErrEmptyWord) {
		t.Fatalf("expected empty word error, got %v", err)
	}
}

func reactionsOf(texts ...string) []domain.Reaction {
	out := make([]domain.Reaction, 0, len(texts))
	for _, text := range texts {
		out = append(out, domain.Reaction{Reaction: ptr(text)})
	}
	return out
}

func TestDictionaryReflectsReactionsImportedAfterLookup(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	cache := memory.NewFrequencyCache(app.NewReactionFrequencies(store.Reactions()), 10*time.Minute)
	importer := newImporter(store, store.Stimuli(), nil)
	importer.InvalidateOnPersist(cache)
	service := app.NewDictionaryService(store.Stimuli(), cache)

	batch := domain.ImportBatch{
		Stimuli: []string{"cat"},
		People: []domain.ParticipantPayload{{
			Reactions: []map[string]any{{"reaction": "dog", "stimulus": "cat"}},
		}},
	}

	if _, err := importer.Persist(ctx, batch); err != nil {
		t.Fatalf("first persist: %v", err)
	}
	if dict, err := service.Lookup(ctx, "cat", domain.SelectionOptions{}); err != nil || dict.Brief.Total != 1 {
		t.Fatalf("first lookup: total=%d err=%v", dict.Brief.Total, err)
	}

	if _, err := importer.Persist(ctx, batch); err != nil {
		t.Fatalf("second persist: %v", err)
	}
	dict, err := service.Lookup(ctx, "cat", domain.SelectionOptions{})
	if err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if stored := len(store.AllReactions()); dict.Brief.Total != stored {
		t.Fatalf("expected brief total %d to match stored reactions, got %d", stored, dict.Brief.Total)
	}
}
