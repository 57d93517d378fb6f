package memory

import (
	"context"
	"sort"
	"sync"

	"adaptive-quiz-service/internal/domain"
)

// QuestionStore is an in-memory implementation of app.QuestionStore and
// app.DatasetStore (useful for tests/demos).
type QuestionStore struct {
	mu        sync.RWMutex
	nextID    int64
	questions map[int64]domain.QuestionRecord
	// order keeps insertion order per (user, dataset).
	order    map[datasetKey][]int64
	onDelete []func(questionIDs []int64)
}

type datasetKey struct {
	userID int64
	name   string
}

func NewQuestionStore() *QuestionStore {
	return &QuestionStore{
		questions: make(map[int64]domain.QuestionRecord),
		order:     make(map[datasetKey][]int64),
	}
}

func (s *QuestionStore) CreateDataset(_ context.Context, userID int64, name string, questions []domain.QuestionRecord) ([]domain.QuestionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := datasetKey{userID: userID, name: name}
	if len(s.order[key]) > 0 {
		return nil, domain.ErrDatasetExists
	}

	stored := make([]domain.QuestionRecord, 0, len(questions))
	for _, q := range questions {
		s.nextID++
		q.ID = s.nextID
		q.UserID = userID
		q.Dataset = name
		answers := make([]domain.AnswerOption, len(q.Answers))
		for i, a := range q.Answers {
			s.nextID++
			a.ID = s.nextID
			a.QuestionID = q.ID
			answers[i] = a
		}
		q.Answers = answers
		s.questions[q.ID] = q
		s.order[key] = append(s.order[key], q.ID)
		stored = append(stored, q)
	}
	return stored, nil
}

func (s *QuestionStore) ListDatasets(_ context.Context, userID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0)
	for key, ids := range s.order {
		if key.userID == userID && len(ids) > 0 {
			names = append(names, key.name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// OnDelete registers fn to run with the question ids of every deleted dataset,
// the in-memory counterpart of a foreign key cascade.
func (s *QuestionStore) OnDelete(fn func(questionIDs []int64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDelete = append(s.onDelete, fn)
}

func (s *QuestionStore) DeleteDataset(_ context.Context, userID int64, name string) error {
	s.mu.Lock()
	key := datasetKey{userID: userID, name: name}
	ids, ok := s.order[key]
	if !ok || len(ids) == 0 {
		s.mu.Unlock()
		return domain.ErrDatasetNotFound
	}
	for _, id := range ids {
		delete(s.questions, id)
	}
	delete(s.order, key)
	hooks := append([]func([]int64){}, s.onDelete...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(ids)
	}
	return nil
}

// DropUser deletes every dataset the user owns.
func (s *QuestionStore) DropUser(userID int64) {
	s.mu.Lock()
	var ids []int64
	for key, qids := range s.order {
		if key.userID != userID {
			continue
		}
		for _, id := range qids {
			delete(s.questions, id)
		}
		ids = append(ids, qids...)
		delete(s.order, key)
	}
	hooks := append([]func([]int64){}, s.onDelete...)
	s.mu.Unlock()

	if len(ids) == 0 {
		return
	}
	for _, fn := range hooks {
		fn(ids)
	}
}

func (s *QuestionStore) ListQuestions(_ context.Context, userID int64, dataset string) ([]domain.QuestionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.order[datasetKey{userID: userID, name: dataset}]
	out := make([]domain.QuestionRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.questions[id])
	}
	return out, nil
}

func (s *QuestionStore) GetQuestion(_ context.Context, questionID int64) (domain.QuestionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.questions[questionID]
	if !ok {
		return domain.QuestionRecord{}, domain.ErrQuestionNotFound
	}
	return q, nil
}
