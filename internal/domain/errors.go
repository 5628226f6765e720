package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoStimuli is returned when a quiz is created without any stimulus.
	ErrNoStimuli = errors.New("quiz has no stimuli")
	// ErrMissingStimuli is returned when stimuli are still unresolved at bind time.
	ErrMissingStimuli = errors.New("some stimuli are missing from the store")
	// ErrQuizNotFound indicates a quiz id has no record.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrStimulusNotFound indicates a dictionary word has no stimulus record.
	ErrStimulusNotFound = errors.New("stimulus not found")
	// ErrEmptyWord is returned for a blank dictionary word.
	ErrEmptyWord = errors.New("word is empty")
	// ErrImportInProgress is returned when another import holds the import lock.
	ErrImportInProgress = errors.New("another import is in progress")
)

// MissingStimuliError lists the stimulus texts that had no id when binding a quiz.
type MissingStimuliError struct {
	QuizID int64
	Texts  []string
}

func (e *MissingStimuliError) Error() string {
	return fmt.Sprintf("quiz %d: %v: %s", e.QuizID, ErrMissingStimuli, strings.Join(e.Texts, ", "))
}

func (e *MissingStimuliError) Unwrap() error {
	return ErrMissingStimuli
}
