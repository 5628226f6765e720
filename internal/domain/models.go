package domain

import (
	"fmt"
	"time"
)

// Settings holds quiz-level flags keyed by column name.
type Settings map[string]any

// Attributes holds demographic person fields keyed by canonical name.
type Attributes map[string]any

// Stimulus is a word shown to participants. ID is zero until the store assigns one.
type Stimulus struct {
	ID          int64   `json:"id,omitempty"`
	Text        string  `json:"stimulus"`
	Translation *string `json:"translation,omitempty"`
}

// Resolved reports whether the stimulus carries a store-assigned id.
func (s Stimulus) Resolved() bool {
	return s.ID != 0
}

// Quiz groups an ordered stimulus list under one set of settings.
type Quiz struct {
	ID       int64      `json:"id"`
	Settings Settings   `json:"settings"`
	Stimuli  []Stimulus `json:"stimuli"`
}

// Ready reports whether every stimulus of the quiz has a resolved id.
func (q Quiz) Ready() bool {
	for _, s := range q.Stimuli {
		if !s.Resolved() {
			return false
		}
	}
	return true
}

// Person is a participant record created once per import.
type Person struct {
	ID         int64      `json:"id"`
	UUID       string     `json:"uuid"`
	QuizID     int64      `json:"quizId"`
	IsReviewed bool       `json:"isReviewed"`
	Attributes Attributes `json:"attributes"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Reaction is one participant answer to one stimulus.
// ReactionTime and Keylog are either both set or both nil; nil marks a no-response event.
type Reaction struct {
	Reaction           *string `json:"reaction"`
	ReactionTime       *int64  `json:"reactionTime,omitempty"`
	Keylog             *string `json:"keylog,omitempty"`
	Translation        *string `json:"translation,omitempty"`
	TranslationComment *string `json:"translationComment,omitempty"`
	PersonID           int64   `json:"personId"`
	StimulusID         int64   `json:"stimulusId"`
	QuizID             int64   `json:"quizId"`
}

// FrequencyEntry counts one distinct reaction text. A nil Reaction groups absent answers.
type FrequencyEntry struct {
	Reaction *string `json:"reaction"`
	Count    int     `json:"count"`
}

// Brief summarizes a frequency table.
type Brief struct {
	Total    int `json:"total"`
	Distinct int `json:"distinct"`
	Single   int `json:"single"`
	Null     int `json:"null"`
}

// Dictionary is the aggregated view of reactions to one stimulus.
type Dictionary struct {
	StimulusID int64            `json:"stimulusId"`
	Word       string           `json:"word"`
	Entries    []FrequencyEntry `json:"dictionary"`
	Brief      Brief            `json:"brief"`
}

// SelectionOptions narrows the reactions aggregated into a dictionary.
// Zero values leave a dimension unfiltered.
type SelectionOptions struct {
	QuizID         int64  `json:"quizId,omitempty" yaml:"quiz_id"`
	Sex            string `json:"sex,omitempty" yaml:"sex"`
	AgeFrom        int    `json:"ageFrom,omitempty" yaml:"age_from"`
	AgeTo          int    `json:"ageTo,omitempty" yaml:"age_to"`
	NativeLanguage string `json:"nativeLanguage,omitempty" yaml:"native_language"`
	Region         string `json:"region,omitempty" yaml:"region"`
}

// ParticipantPayload is one participant as delivered by an experiment export.
type ParticipantPayload struct {
	Data      map[string]any   `json:"data" yaml:"data"`
	Reactions []map[string]any `json:"reactions" yaml:"reactions"`
}

// ImportBatch is the raw result of one experiment session.
type ImportBatch struct {
	Stimuli      []string             `json:"stimuli" yaml:"stimuli"`
	QuizSettings Settings             `json:"quiz_settings" yaml:"quiz_settings"`
	People       []ParticipantPayload `json:"people" yaml:"people"`
}

// ImportReport describes what an import wrote.
type ImportReport struct {
	QuizID           int64 `json:"quizId"`
	CreatedStimuli   int   `json:"createdStimuli"`
	People           int   `json:"people"`
	Reactions        int   `json:"reactions"`
	DroppedReactions int   `json:"droppedReactions"`
}

// Key renders the options as a stable cache key.
func (o SelectionOptions) Key() string {
	return fmt.Sprintf("quiz=%d|sex=%s|age=%d-%d|lang=%s|region=%s",
		o.QuizID, o.Sex, o.AgeFrom, o.AgeTo, o.NativeLanguage, o.Region)
}
