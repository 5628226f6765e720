package app

import (
	"context"

	"assoc-quiz-service/internal/domain"
)

// StimulusRepository looks up and creates stimuli by exact text.
type StimulusRepository interface {
	// FindID returns the id of the stimulus with the given text, if any.
	FindID(ctx context.Context, text string) (int64, bool, error)
	Create(ctx context.Context, stimulus domain.Stimulus) (domain.Stimulus, error)
}

// QuizRepository creates quizzes and binds them to their stimuli.
type QuizRepository interface {
	Create(ctx context.Context, settings domain.Settings) (domain.Quiz, error)
	// InsertStimuli writes the quiz/stimulus join rows in the given order.
	InsertStimuli(ctx context.Context, quizID int64, stimuli []domain.Stimulus) error
}

// PersonRepository creates participant records.
type PersonRepository interface {
	Create(ctx context.Context, person domain.Person) (domain.Person, error)
}

// ReactionRepository stores reactions in bulk.
type ReactionRepository interface {
	CreateMany(ctx context.Context, reactions []domain.Reaction) error
}

// ReactionFinder fetches the reactions to a stimulus matching the selection, in insertion order.
type ReactionFinder interface {
	FindByParams(ctx context.Context, stimulusID int64, opts domain.SelectionOptions) ([]domain.Reaction, error)
}

// ImportLock serializes imports that may touch overlapping stimuli.
type ImportLock interface {
	// Acquire returns domain.ErrImportInProgress when the lock is already held.
	Acquire(ctx context.Context) (release func(), err error)
}
