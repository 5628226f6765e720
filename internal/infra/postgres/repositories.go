package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"assoc-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

type stimulusModel struct {
	bun.BaseModel `bun:"table:stimuli"`

	ID          int64   `bun:"id,pk,autoincrement"`
	Stimulus    string  `bun:"stimulus,notnull"`
	Translation *string `bun:"translation"`
}

type quizModel struct {
	bun.BaseModel `bun:"table:quizzes"`

	ID        int64           `bun:"id,pk,autoincrement"`
	Settings  domain.Settings `bun:"settings,type:jsonb,notnull"`
	CreatedAt time.Time       `bun:"created_at,notnull,default:current_timestamp"`
}

type quizStimulusModel struct {
	bun.BaseModel `bun:"table:quiz_stimuli"`

	QuizID     int64 `bun:"quiz_id,pk"`
	Position   int   `bun:"position,pk"`
	StimulusID int64 `bun:"stimulus_id,notnull"`
}

type personModel struct {
	bun.BaseModel `bun:"table:people"`

	ID         int64             `bun:"id,pk,autoincrement"`
	UUID       string            `bun:"uuid,notnull"`
	QuizID     int64             `bun:"quiz_id,notnull"`
	IsReviewed bool              `bun:"is_reviewed,notnull"`
	Attributes domain.Attributes `bun:"attributes,type:jsonb,notnull"`
	CreatedAt  time.Time         `bun:"created_at,notnull,default:current_timestamp"`
}

type reactionModel struct {
	bun.BaseModel `bun:"table:reactions"`

	ID                 int64   `bun:"id,pk,autoincrement"`
	Reaction           *string `bun:"reaction"`
	ReactionTime       *int64  `bun:"reaction_time"`
	Keylog             *string `bun:"keylog"`
	Translation        *string `bun:"translation"`
	TranslationComment *string `bun:"translation_comment"`
	PersonID           int64   `bun:"person_id,notnull"`
	StimulusID         int64   `bun:"stimulus_id,notnull"`
	QuizID             int64   `bun:"quiz_id,notnull"`
}

// StimulusRepository reads and writes the stimuli table.
type StimulusRepository struct {
	db bun.IDB
}

func NewStimulusRepository(db bun.IDB) *StimulusRepository {
	return &StimulusRepository{db: db}
}

func (r *StimulusRepository) FindID(ctx context.Context, text string) (int64, bool, error) {
	var id int64
	err := r.db.NewSelect().
		Model((*stimulusModel)(nil)).
		Column("id").
		Where("stimulus = ?", text).
		Limit(1).
		Scan(ctx, &id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find stimulus id: %w", err)
	}
	return id, true, nil
}

// Create inserts a stimulus; an existing row with the same text is returned instead.
func (r *StimulusRepository) Create(ctx context.Context, stimulus domain.Stimulus) (domain.Stimulus, error) {
	m := &stimulusModel{Stimulus: stimulus.Text, Translation: stimulus.Translation}
	_, err := r.db.NewInsert().
		Model(m).
		On("CONFLICT (stimulus) DO UPDATE").
		Set("stimulus = EXCLUDED.stimulus").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return domain.Stimulus{}, fmt.Errorf("insert stimulus: %w", err)
	}
	stimulus.ID = m.ID
	return stimulus, nil
}

// QuizRepository writes quizzes and their stimulus bindings.
type QuizRepository struct {
	db bun.IDB
}

func NewQuizRepository(db bun.IDB) *QuizRepository {
	return &QuizRepository{db: db}
}

func (r *QuizRepository) Create(ctx context.Context, settings domain.Settings) (domain.Quiz, error) {
	if settings == nil {
		settings = domain.Settings{}
	}
	m := &quizModel{Settings: settings}
	if _, err := r.db.NewInsert().Model(m).Returning("id, created_at").Exec(ctx); err != nil {
		return domain.Quiz{}, fmt.Errorf("insert quiz: %w", err)
	}
	return domain.Quiz{ID: m.ID, Settings: settings}, nil
}

func (r *QuizRepository) InsertStimuli(ctx context.Context, quizID int64, stimuli []domain.Stimulus) error {
	rows := make([]quizStimulusModel, 0, len(stimuli))
	for i, s := range stimuli {
		if !s.Resolved() {
			return fmt.Errorf("stimulus %q: %w", s.Text, domain.ErrMissingStimuli)
		}
		rows = append(rows, quizStimulusModel{QuizID: quizID, Position: i, StimulusID: s.ID})
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := r.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("insert quiz stimuli: %w", err)
	}
	return nil
}

// PersonRepository writes the people table.
type PersonRepository struct {
	db bun.IDB
}

func NewPersonRepository(db bun.IDB) *PersonRepository {
	return &PersonRepository{db: db}
}

func (r *PersonRepository) Create(ctx context.Context, person domain.Person) (domain.Person, error) {
	attrs := person.Attributes
	if attrs == nil {
		attrs = domain.Attributes{}
	}
	m := &personModel{
		UUID:       person.UUID,
		QuizID:     person.QuizID,
		IsReviewed: person.IsReviewed,
		Attributes: attrs,
	}
	if _, err := r.db.NewInsert().Model(m).Returning("id, created_at").Exec(ctx); err != nil {
		return domain.Person{}, fmt.Errorf("insert person: %w", err)
	}
	person.ID = m.ID
	person.CreatedAt = m.CreatedAt
	return person, nil
}

// ReactionRepository writes the reactions table.
type ReactionRepository struct {
	db bun.IDB
}

func NewReactionRepository(db bun.IDB) *ReactionRepository {
	return &ReactionRepository{db: db}
}

func (r *ReactionRepository) CreateMany(ctx context.Context, reactions []domain.Reaction) error {
	if len(reactions) == 0 {
		return nil
	}
	rows := make([]reactionModel, 0, len(reactions))
	for _, reaction := range reactions {
		rows = append(rows, reactionModel{
			Reaction:           reaction.Reaction,
			ReactionTime:       reaction.ReactionTime,
			Keylog:             reaction.Keylog,
			Translation:        reaction.Translation,
			TranslationComment: reaction.TranslationComment,
			PersonID:           reaction.PersonID,
			StimulusID:         reaction.StimulusID,
			QuizID:             reaction.QuizID,
		})
	}
	if _, err := r.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("insert reactions: %w", err)
	}
	return nil
}
