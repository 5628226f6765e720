package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"assoc-quiz-service/internal/domain"
)

// Store is an in-memory stand-in for the relational store (useful for tests/demos).
// Each repository view shares the same tables.
type Store struct {
	mu          sync.RWMutex
	clock       func() time.Time
	stimuli     []domain.Stimulus
	quizzes     map[int64]domain.Quiz
	quizStimuli map[int64][]int64
	people      map[int64]domain.Person
	reactions   []domain.Reaction
	nextQuiz    int64
	nextPerson  int64
}

func NewStore() *Store {
	return &Store{
		clock:       time.Now,
		quizzes:     make(map[int64]domain.Quiz),
		quizStimuli: make(map[int64][]int64),
		people:      make(map[int64]domain.Person),
	}
}

// Stimuli returns the stimulus repository view.
func (s *Store) Stimuli() *StimulusRepository { return &StimulusRepository{s} }

// Quizzes returns the quiz repository view.
func (s *Store) Quizzes() *QuizRepository { return &QuizRepository{s} }

// People returns the person repository view.
func (s *Store) People() *PersonRepository { return &PersonRepository{s} }

// Reactions returns the reaction repository view, which also answers dictionary queries.
func (s *Store) Reactions() *ReactionRepository { return &ReactionRepository{s} }

// QuizStimuli returns the stimulus ids bound to a quiz, in binding order.
func (s *Store) QuizStimuli(quizID int64) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int64(nil), s.quizStimuli[quizID]...)
}

// AllReactions returns a copy of every stored reaction.
func (s *Store) AllReactions() []domain.Reaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Reaction(nil), s.reactions...)
}

// AllPeople returns every stored person ordered by id.
func (s *Store) AllPeople() []domain.Person {
	s.mu.RLock()
	defer s.mu.RUnlock()
	people := make([]domain.Person, 0, len(s.people))
	for id := int64(1); id <= s.nextPerson; id++ {
		if p, ok := s.people[id]; ok {
			people = append(people, p)
		}
	}
	return people
}

type StimulusRepository struct{ s *Store }

func (r *StimulusRepository) FindID(_ context.Context, text string) (int64, bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, st := range r.s.stimuli {
		if st.Text == text {
			return st.ID, true, nil
		}
	}
	return 0, false, nil
}

// Create appends a stimulus row. Text uniqueness is not enforced, like a store without a unique index.
func (r *StimulusRepository) Create(_ context.Context, stimulus domain.Stimulus) (domain.Stimulus, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stimulus.ID = int64(len(r.s.stimuli) + 1)
	r.s.stimuli = append(r.s.stimuli, stimulus)
	return stimulus, nil
}

type QuizRepository struct{ s *Store }

func (r *QuizRepository) Create(_ context.Context, settings domain.Settings) (domain.Quiz, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextQuiz++
	quiz := domain.Quiz{ID: r.s.nextQuiz, Settings: settings}
	r.s.quizzes[quiz.ID] = quiz
	return quiz, nil
}

func (r *QuizRepository) InsertStimuli(_ context.Context, quizID int64, stimuli []domain.Stimulus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	quiz, ok := r.s.quizzes[quizID]
	if !ok {
		return fmt.Errorf("quiz %d: %w", quizID, domain.ErrQuizNotFound)
	}
	ids := make([]int64, 0, len(stimuli))
	for _, st := range stimuli {
		if !st.Resolved() {
			return fmt.Errorf("stimulus %q: %w", st.Text, domain.ErrMissingStimuli)
		}
		ids = append(ids, st.ID)
	}
	r.s.quizStimuli[quizID] = append(r.s.quizStimuli[quizID], ids...)
	quiz.Stimuli = append([]domain.Stimulus(nil), stimuli...)
	r.s.quizzes[quizID] = quiz
	return nil
}

type PersonRepository struct{ s *Store }

func (r *PersonRepository) Create(_ context.Context, person domain.Person) (domain.Person, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextPerson++
	person.ID = r.s.nextPerson
	person.CreatedAt = r.s.clock()
	r.s.people[person.ID] = person
	return person, nil
}

type ReactionRepository struct{ s *Store }

func (r *ReactionRepository) CreateMany(_ context.Context, reactions []domain.Reaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, reaction := range reactions {
		if reaction.StimulusID == 0 {
			return fmt.Errorf("reaction without stimulus: %w", domain.ErrStimulusNotFound)
		}
	}
	r.s.reactions = append(r.s.reactions, reactions...)
	return nil
}

// FindByParams filters stored reactions by stimulus and by the attributes of the reacting person.
func (r *ReactionRepository) FindByParams(_ context.Context, stimulusID int64, opts domain.SelectionOptions) ([]domain.Reaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Reaction
	for _, reaction := range r.s.reactions {
		if reaction.StimulusID != stimulusID {
			continue
		}
		if opts.QuizID != 0 && reaction.QuizID != opts.QuizID {
			continue
		}
		if !matchesPerson(r.s.people[reaction.PersonID], opts) {
			continue
		}
		out = append(out, reaction)
	}
	return out, nil
}

func matchesPerson(p domain.Person, opts domain.SelectionOptions) bool {
	if opts.Sex != "" && attrString(p.Attributes, "sex") != opts.Sex {
		return false
	}
	if opts.NativeLanguage != "" && attrString(p.Attributes, "native_language") != opts.NativeLanguage {
		return false
	}
	if opts.Region != "" && attrString(p.Attributes, "region") != opts.Region {
		return false
	}
	if opts.AgeFrom != 0 || opts.AgeTo != 0 {
		age, ok := attrInt(p.Attributes, "age")
		if !ok {
			return false
		}
		if opts.AgeFrom != 0 && age < opts.AgeFrom {
			return false
		}
		if opts.AgeTo != 0 && age > opts.AgeTo {
			return false
		}
	}
	return true
}

func attrString(attrs domain.Attributes, key string) string {
	v, ok := attrs[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func attrInt(attrs domain.Attributes, key string) (int, bool) {
	switch v := attrs[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}
