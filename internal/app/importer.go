package app

import (
	"context"
	"fmt"

	"assoc-quiz-service/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Importer writes the results of an experiment session: quiz, missing stimuli,
// people and their reactions.
type Importer struct {
	stimuli   StimulusRepository
	quizzes   QuizRepository
	people    PersonRepository
	reactions ReactionRepository
	logger    *zap.Logger
	newUUID   func() string

	invalidator FrequencyInvalidator
}

func NewImporter(stimuli StimulusRepository, quizzes QuizRepository, people PersonRepository, reactions ReactionRepository, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		stimuli:   stimuli,
		quizzes:   quizzes,
		people:    people,
		reactions: reactions,
		logger:    logger,
		newUUID:   uuid.NewString,
	}
}

// InvalidateOnPersist registers a cache to clear for every stimulus that
// received reactions during Persist.
func (i *Importer) InvalidateOnPersist(invalidator FrequencyInvalidator) {
	i.invalidator = invalidator
}

// Persist reconciles the batch stimuli, then creates one person per participant
// with the reactions whose stimulus resolved. Reactions to unknown stimuli are
// dropped and counted. Reconciliation failures abort before any person is written;
// quiz and stimulus rows created up to that point are not rolled back.
func (i *Importer) Persist(ctx context.Context, batch domain.ImportBatch) (domain.ImportReport, error) {
	quiz, created, err := i.reconcile(ctx, batch)
	if err != nil {
		return domain.ImportReport{}, err
	}

	report := domain.ImportReport{QuizID: quiz.ID, CreatedStimuli: created}
	touched := make(map[int64]struct{})
	defer i.invalidate(ctx, touched)

	// First occurrence wins, matching a linear scan of the stimulus list.
	index := make(map[string]int64, len(quiz.Stimuli))
	for _, s := range quiz.Stimuli {
		if _, ok := index[s.Text]; !ok {
			index[s.Text] = s.ID
		}
	}

	for n, participant := range batch.People {
		person, err := i.people.Create(ctx, domain.Person{
			UUID:       i.newUUID(),
			QuizID:     quiz.ID,
			IsReviewed: true,
			Attributes: normalizePerson(participant.Data),
		})
		if err != nil {
			return report, fmt.Errorf("create person %d: %w", n, err)
		}
		report.People++

		reactions := make([]domain.Reaction, 0, len(participant.Reactions))
		for _, raw := range participant.Reactions {
			payload, err := normalizeReaction(raw)
			if err != nil {
				report.DroppedReactions++
				i.logger.Warn("dropping malformed reaction",
					zap.Int64("quiz_id", quiz.ID),
					zap.Int64("person_id", person.ID),
					zap.Error(err))
				continue
			}
			stimulusID, ok := index[payload.stimulus]
			if !ok {
				report.DroppedReactions++
				i.logger.Warn("dropping reaction to unknown stimulus",
					zap.Int64("quiz_id", quiz.ID),
					zap.Int64("person_id", person.ID),
					zap.String("stimulus", payload.stimulus))
				continue
			}
			r := payload.reaction
			r.PersonID = person.ID
			r.QuizID = quiz.ID
			r.StimulusID = stimulusID
			reactions = append(reactions, r)
		}

		if len(reactions) == 0 {
			continue
		}
		if err := i.reactions.CreateMany(ctx, reactions); err != nil {
			return report, fmt.Errorf("create reactions for person %d: %w", person.ID, err)
		}
		report.Reactions += len(reactions)
		for _, r := range reactions {
			touched[r.StimulusID] = struct{}{}
		}
	}

	i.logger.Info("import persisted",
		zap.Int64("quiz_id", report.QuizID),
		zap.Int("created_stimuli", report.CreatedStimuli),
		zap.Int("people", report.People),
		zap.Int("reactions", report.Reactions),
		zap.Int("dropped_reactions", report.DroppedReactions))
	return report, nil
}

// reconcile creates the quiz, creates each missing stimulus once and binds the set.
func (i *Importer) reconcile(ctx context.Context, batch domain.ImportBatch) (domain.Quiz, int, error) {
	rec, err := NewReconciler(ctx, i.stimuli, i.quizzes, batch.QuizSettings, batch.Stimuli)
	if err != nil {
		return domain.Quiz{}, 0, err
	}

	created := make(map[string]struct{})
	for text := range rec.MissingStimuli() {
		if _, ok := created[text]; ok {
			continue
		}
		if _, err := i.stimuli.Create(ctx, domain.Stimulus{Text: text}); err != nil {
			return domain.Quiz{}, len(created), fmt.Errorf("create stimulus %q: %w", text, err)
		}
		created[text] = struct{}{}
	}

	stimuli, err := rec.BindStimuli(ctx)
	if err != nil {
		return domain.Quiz{}, len(created), err
	}
	quiz := rec.Quiz()
	quiz.Stimuli = stimuli
	return quiz, len(created), nil
}

// invalidate clears cached frequency tables of the touched stimuli. A failure is
// logged only; the reactions are already stored and the cache TTL bounds staleness.
func (i *Importer) invalidate(ctx context.Context, touched map[int64]struct{}) {
	if i.invalidator == nil || len(touched) == 0 {
		return
	}
	ids := make([]int64, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	if err := i.invalidator.Invalidate(ctx, ids...); err != nil {
		i.logger.Warn("invalidate frequency cache", zap.Int64s("stimulus_ids", ids), zap.Error(err))
	}
}
