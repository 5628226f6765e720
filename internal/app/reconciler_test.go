package app_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"assoc-quiz-service/internal/app"
	"assoc-quiz-service/internal/domain"
	"assoc-quiz-service/internal/infra/memory"
)

func TestReconcilerKnownStimuliBindWithoutCreation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedStimuli(t, store, "cat", "house")
	stimuli := &countingStimuli{StimulusRepository: store.Stimuli()}

	rec, err := app.NewReconciler(ctx, stimuli, store.Quizzes(), domain.Settings{"title": "Q"}, []string{"house", "cat"})
	if err != nil {
		t.Fatalf("new reconciler: %v", err)
	}
	if missing := slices.Collect(rec.MissingStimuli()); len(missing) != 0 {
		t.Fatalf("expected no missing stimuli, got %v", missing)
	}

	bound, err := rec.BindStimuli(ctx)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if stimuli.creates != 0 {
		t.Fatalf("expected no creations, got %d", stimuli.creates)
	}
	if len(bound) != 2 || bound[0].Text != "house" || bound[1].Text != "cat" {
		t.Fatalf("expected input order preserved, got %+v", bound)
	}
	if got := store.QuizStimuli(rec.Quiz().ID); !slices.Equal(got, []int64{2, 1}) {
		t.Fatalf("expected join rows [2 1], got %v", got)
	}
}

func TestReconcilerMissingStimuliIsRestartable(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedStimuli(t, store, "cat")

	rec, err := app.NewReconciler(ctx, store.Stimuli(), store.Quizzes(), nil, []string{"dog", "cat", "sun", "dog"})
	if err != nil {
		t.Fatalf("new reconciler: %v", err)
	}
	want := []string{"dog", "sun", "dog"}
	if got := slices.Collect(rec.MissingStimuli()); !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got := slices.Collect(rec.MissingStimuli()); !slices.Equal(got, want) {
		t.Fatalf("second pass: expected %v, got %v", want, got)
	}
	if rec.Quiz().Ready() {
		t.Fatalf("quiz with unresolved stimuli must not be ready")
	}
}

func TestReconcilerBindRefetchesCreatedStimuli(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	rec, err := app.NewReconciler(ctx, store.Stimuli(), store.Quizzes(), nil, []string{"dog", "cat"})
	if err != nil {
		t.Fatalf("new reconciler: %v", err)
	}
	for text := range rec.MissingStimuli() {
		if _, err := store.Stimuli().Create(ctx, domain.Stimulus{Text: text}); err != nil {
			t.Fatalf("create %q: %v", text, err)
		}
	}

	bound, err := rec.BindStimuli(ctx)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	for _, s := range bound {
		if !s.Resolved() {
			t.Fatalf("expected resolved stimulus, got %+v", s)
		}
	}
	if !rec.Quiz().Ready() {
		t.Fatalf("expected quiz ready after bind")
	}
}

func TestReconcilerBindFailsOnUnresolved(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedStimuli(t, store, "cat")

	rec, err := app.NewReconciler(ctx, store.Stimuli(), store.Quizzes(), nil, []string{"cat", "dog"})
	if err != nil {
		t.Fatalf("new reconciler: %v", err)
	}

	_, err = rec.BindStimuli(ctx)
	var missing *domain.MissingStimuliError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingStimuliError, got %v", err)
	}
	if !errors.Is(err, domain.ErrMissingStimuli) {
		t.Fatalf("expected error to match ErrMissingStimuli")
	}
	if !slices.Equal(missing.Texts, []string{"dog"}) {
		t.Fatalf("expected [dog] missing, got %v", missing.Texts)
	}
	if got := store.QuizStimuli(rec.Quiz().ID); len(got) != 0 {
		t.Fatalf("expected no partial bind, got %v", got)
	}
}

func TestReconcilerRequiresStimuli(t *testing.T) {
	store := memory.NewStore()
	_, err := app.NewReconciler(context.Background(), store.Stimuli(), store.Quizzes(), nil, nil)
	if !errors.Is(err, domain.ErrNoStimuli) {
		t.Fatalf("expected ErrNoStimuli, got %v", err)
	}
}

type countingStimuli struct {
	app.StimulusRepository
	creates int
}

func (s *countingStimuli) Create(ctx context.Context, stimulus domain.Stimulus) (domain.Stimulus, error) {
	s.creates++
	return s.StimulusRepository.Create(ctx, stimulus)
}

// forgetfulStimuli reports success without writing anything.
type forgetfulStimuli struct {
	app.StimulusRepository
}

func (forgetfulStimuli) Create(_ context.Context, stimulus domain.Stimulus) (domain.Stimulus, error) {
	return stimulus, nil
}

func seedStimuli(t *testing.T, store *memory.Store, texts ...string) {
	t.Helper()
	for _, text := range texts {
		if _, err := store.Stimuli().Create(context.Background(), domain.Stimulus{Text: text}); err != nil {
			t.Fatalf("seed %q: %v", text, err)
		}
	}
}
