package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"adaptive-quiz-service/internal/domain"
)

type countingStore struct {
	*QuestionStore
	calls int
}

func (s *countingStore) GetQuestion(ctx context.Context, id int64) (domain.QuestionRecord, error) {
	s.calls++
	return s.QuestionStore.GetQuestion(ctx, id)
}

func seededStore(t *testing.T) (*countingStore, domain.QuestionRecord) {
	t.Helper()
	store := NewQuestionStore()
	stored, err := store.CreateDataset(context.Background(), 1, "math", []domain.QuestionRecord{sampleQuestion()})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return &countingStore{QuestionStore: store}, stored[0]
}

func sampleQuestion() domain.QuestionRecord {
	return domain.QuestionRecord{
		Text: "What is 2 + 2?",
		Answers: []domain.AnswerOption{
			{Text: "3", Correct: false},
			{Text: "4", Correct: true},
		},
	}
}

func TestQuestionCacheCaches(t *testing.T) {
	store, q := seededStore(t)
	cache := NewQuestionCache(store, time.Minute)

	if _, err := cache.GetQuestion(context.Background(), q.ID); err != nil {
		t.Fatalf("get question: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("expected store once, got %d", store.calls)
	}

	got, err := cache.GetQuestion(context.Background(), q.ID)
	if err != nil {
		t.Fatalf("get question 2: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("expected cache hit, store calls %d", store.calls)
	}
	if got.Text != q.Text || len(got.Answers) != 2 {
		t.Fatalf("unexpected cached question %+v", got)
	}
}

func TestQuestionCacheExpires(t *testing.T) {
	store, q := seededStore(t)
	cache := NewQuestionCache(store, time.Minute)
	now := time.Now()
	cache.clock = func() time.Time { return now }

	if _, err := cache.GetQuestion(context.Background(), q.ID); err != nil {
		t.Fatalf("get question: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := cache.GetQuestion(context.Background(), q.ID); err != nil {
		t.Fatalf("get question after ttl: %v", err)
	}
	if store.calls != 2 {
		t.Fatalf("expected reload after ttl, store calls %d", store.calls)
	}
}

func TestQuestionCacheDoesNotCacheMisses(t *testing.T) {
	store, _ := seededStore(t)
	cache := NewQuestionCache(store, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := cache.GetQuestion(context.Background(), 404); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
	if store.calls != 2 {
		t.Fatalf("expected every miss to reach the store, calls %d", store.calls)
	}
}
