package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"assoc-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ReactionFinder runs dictionary selection queries against Postgres.
type ReactionFinder struct {
	pool *pgxpool.Pool
}

func NewReactionFinder(pool *pgxpool.Pool) *ReactionFinder {
	return &ReactionFinder{pool: pool}
}

// FindID resolves a stimulus text for dictionary lookups.
func (f *ReactionFinder) FindID(ctx context.Context, text string) (int64, bool, error) {
	rows, err := f.pool.Query(ctx, `SELECT id FROM stimuli WHERE stimulus = $1 LIMIT 1`, text)
	if err != nil {
		return 0, false, fmt.Errorf("find stimulus id: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return 0, false, rows.Err()
	}
	var id int64
	if err := rows.Scan(&id); err != nil {
		return 0, false, fmt.Errorf("scan stimulus id: %w", err)
	}
	return id, true, nil
}

func (f *ReactionFinder) FindByParams(ctx context.Context, stimulusID int64, opts domain.SelectionOptions) ([]domain.Reaction, error) {
	query, args := selectionQuery(stimulusID, opts)
	rows, err := f.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reactions: %w", err)
	}
	defer rows.Close()

	var reactions []domain.Reaction
	for rows.Next() {
		var r domain.Reaction
		if err := rows.Scan(
			&r.Reaction,
			&r.ReactionTime,
			&r.Keylog,
			&r.Translation,
			&r.TranslationComment,
			&r.PersonID,
			&r.StimulusID,
			&r.QuizID,
		); err != nil {
			return nil, fmt.Errorf("scan reaction: %w", err)
		}
		reactions = append(reactions, r)
	}
	return reactions, rows.Err()
}

// selectionQuery builds the filtered reaction query; person filters read the attributes JSONB.
func selectionQuery(stimulusID int64, opts domain.SelectionOptions) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT r.reaction, r.reaction_time, r.keylog, r.translation, r.translation_comment,
       r.person_id, r.stimulus_id, r.quiz_id
FROM reactions r
JOIN people p ON p.id = r.person_id
WHERE r.stimulus_id = $1`)
	args := []any{stimulusID}
	add := func(cond string, arg any) {
		args = append(args, arg)
		sb.WriteString(" AND ")
		sb.WriteString(strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}

	if opts.QuizID != 0 {
		add("r.quiz_id = ?", opts.QuizID)
	}
	if opts.Sex != "" {
		add("p.attributes->>'sex' = ?", opts.Sex)
	}
	if opts.NativeLanguage != "" {
		add("p.attributes->>'native_language' = ?", opts.NativeLanguage)
	}
	if opts.Region != "" {
		add("p.attributes->>'region' = ?", opts.Region)
	}
	if opts.AgeFrom != 0 {
		add("(p.attributes->>'age')::numeric >= ?", opts.AgeFrom)
	}
	if opts.AgeTo != 0 {
		add("(p.attributes->>'age')::numeric <= ?", opts.AgeTo)
	}
	sb.WriteString(" ORDER BY r.id")
	return sb.String(), args
}
