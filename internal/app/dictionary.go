package app

import (
	"context"
	"fmt"
	"strings"

	"assoc-quiz-service/internal/domain"
)

// nullReactions are the answers that count as "no answer". A nil reaction is null as well.
var nullReactions = map[string]struct{}{
	"":    {},
	"nil": {},
	"/":   {},
	"?":   {},
	"??":  {},
	"???": {},
}

// IsNullReaction reports whether a reaction text stands for a non-response.
// Matching is exact and case-sensitive.
func IsNullReaction(reaction *string) bool {
	if reaction == nil {
		return true
	}
	_, ok := nullReactions[*reaction]
	return ok
}

// BuildFrequencyTable groups reactions by exact text, in order of first occurrence.
func BuildFrequencyTable(reactions []domain.Reaction) []domain.FrequencyEntry {
	table := make([]domain.FrequencyEntry, 0)
	positions := make(map[string]int)
	absent := -1
	for _, r := range reactions {
		if r.Reaction == nil {
			if absent < 0 {
				absent = len(table)
				table = append(table, domain.FrequencyEntry{})
			}
			table[absent].Count++
			continue
		}
		pos, ok := positions[*r.Reaction]
		if !ok {
			text := *r.Reaction
			pos = len(table)
			positions[text] = pos
			table = append(table, domain.FrequencyEntry{Reaction: &text})
		}
		table[pos].Count++
	}
	return table
}

// BuildBrief derives summary counts from a frequency table in a single pass.
func BuildBrief(table []domain.FrequencyEntry) domain.Brief {
	var brief domain.Brief
	for _, entry := range table {
		brief.Total += entry.Count
		brief.Distinct++
		if entry.Count == 1 {
			brief.Single++
		}
		if IsNullReaction(entry.Reaction) {
			brief.Null += entry.Count
		}
	}
	return brief
}

// StimulusFinder resolves a stimulus text to its id.
type StimulusFinder interface {
	FindID(ctx context.Context, text string) (int64, bool, error)
}

// FrequencySource produces the frequency table of a stimulus for a selection.
type FrequencySource interface {
	FrequencyTable(ctx context.Context, stimulusID int64, opts domain.SelectionOptions) ([]domain.FrequencyEntry, error)
}

// FrequencyInvalidator drops cached frequency tables of stimuli that received new reactions.
type FrequencyInvalidator interface {
	Invalidate(ctx context.Context, stimulusIDs ...int64) error
}

// ReactionFrequencies builds frequency tables from the reactions a finder returns.
type ReactionFrequencies struct {
	finder ReactionFinder
}

func NewReactionFrequencies(finder ReactionFinder) *ReactionFrequencies {
	return &ReactionFrequencies{finder: finder}
}

func (f *ReactionFrequencies) FrequencyTable(ctx context.Context, stimulusID int64, opts domain.SelectionOptions) ([]domain.FrequencyEntry, error) {
	reactions, err := f.finder.FindByParams(ctx, stimulusID, opts)
	if err != nil {
		return nil, fmt.Errorf("find reactions: %w", err)
	}
	return BuildFrequencyTable(reactions), nil
}

// DictionaryService answers dictionary queries for a stimulus word.
type DictionaryService struct {
	stimuli StimulusFinder
	source  FrequencySource
}

func NewDictionaryService(stimuli StimulusFinder, source FrequencySource) *DictionaryService {
	return &DictionaryService{stimuli: stimuli, source: source}
}

// Lookup returns the frequency table and brief for the reactions to word.
func (s *DictionaryService) Lookup(ctx context.Context, word string, opts domain.SelectionOptions) (domain.Dictionary, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return domain.Dictionary{}, domain.ErrEmptyWord
	}
	id, ok, err := s.stimuli.FindID(ctx, word)
	if err != nil {
		return domain.Dictionary{}, fmt.Errorf("find stimulus %q: %w", word, err)
	}
	if !ok {
		return domain.Dictionary{}, domain.ErrStimulusNotFound
	}

	table, err := s.source.FrequencyTable(ctx, id, opts)
	if err != nil {
		return domain.Dictionary{}, err
	}
	return domain.Dictionary{
		StimulusID: id,
		Word:       word,
		Entries:    table,
		Brief:      BuildBrief(table),
	}, nil
}
