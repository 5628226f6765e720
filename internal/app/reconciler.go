package app

import (
	"context"
	"fmt"
	"iter"

	"assoc-quiz-service/internal/domain"
)

// Reconciler matches the stimulus texts of one quiz against the store and binds
// the quiz once every stimulus has an id. Stimulus creation is left to the caller:
//
//	for text := range r.MissingStimuli() { /* create text in the store */ }
//	stimuli, err := r.BindStimuli(ctx)
//
// A Reconciler belongs to a single import and is not safe for concurrent use.
type Reconciler struct {
	stimuli StimulusRepository
	quizzes QuizRepository
	texts   []string
	quiz    domain.Quiz
}

// NewReconciler creates the quiz row from settings and caches the store lookup
// of every stimulus text. Duplicate texts keep their positions.
func NewReconciler(ctx context.Context, stimuli StimulusRepository, quizzes QuizRepository, settings domain.Settings, texts []string) (*Reconciler, error) {
	if len(texts) == 0 {
		return nil, domain.ErrNoStimuli
	}
	quiz, err := quizzes.Create(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("create quiz: %w", err)
	}
	r := &Reconciler{
		stimuli: stimuli,
		quizzes: quizzes,
		texts:   append([]string(nil), texts...),
		quiz:    quiz,
	}
	if r.quiz.Stimuli, err = r.fetch(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Quiz returns the quiz with the currently cached stimuli.
func (r *Reconciler) Quiz() domain.Quiz {
	quiz := r.quiz
	quiz.Stimuli = append([]domain.Stimulus(nil), r.quiz.Stimuli...)
	return quiz
}

// MissingStimuli yields the cached stimulus texts that have no id, in input order.
// The sequence is derived from the cache on every iteration.
func (r *Reconciler) MissingStimuli() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, s := range r.quiz.Stimuli {
			if s.Resolved() {
				continue
			}
			if !yield(s.Text) {
				return
			}
		}
	}
}

// BindStimuli refetches every stimulus from the store, fails with a
// *domain.MissingStimuliError if any is still unresolved and otherwise writes
// the quiz/stimulus association in a single call.
func (r *Reconciler) BindStimuli(ctx context.Context) ([]domain.Stimulus, error) {
	stimuli, err := r.fetch(ctx)
	if err != nil {
		return nil, err
	}
	r.quiz.Stimuli = stimuli

	var missing []string
	for _, s := range stimuli {
		if !s.Resolved() {
			missing = append(missing, s.Text)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.MissingStimuliError{QuizID: r.quiz.ID, Texts: missing}
	}

	if err := r.quizzes.InsertStimuli(ctx, r.quiz.ID, stimuli); err != nil {
		return nil, fmt.Errorf("bind stimuli to quiz %d: %w", r.quiz.ID, err)
	}
	return append([]domain.Stimulus(nil), stimuli...), nil
}

func (r *Reconciler) fetch(ctx context.Context) ([]domain.Stimulus, error) {
	stimuli := make([]domain.Stimulus, 0, len(r.texts))
	for _, text := range r.texts {
		id, _, err := r.stimuli.FindID(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("find stimulus %q: %w", text, err)
		}
		stimuli = append(stimuli, domain.Stimulus{ID: id, Text: text})
	}
	return stimuli, nil
}
