package app_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"
	"adaptive-quiz-service/internal/infra/memory"
)

// fixedRand keeps the queue in build order and always draws value.
type fixedRand struct{ value int }

func (r fixedRand) Intn(n int) int { return r.value % n }

func (r fixedRand) Shuffle(int, func(i, j int)) {}

type engine struct {
	svc       *app.QuizService
	questions *memory.QuestionStore
	sessions  *memory.SessionStore
}

func newEngine(rnd app.Rand) engine {
	questions := memory.NewQuestionStore()
	sessions := memory.NewSessionStore()
	return engine{
		svc:       app.NewQuizServiceWithRand(questions, sessions, nil, rnd),
		questions: questions,
		sessions:  sessions,
	}
}

// question builds a record whose answers are flagged by key ('1' = correct).
func question(text, key string) domain.QuestionRecord {
	q := domain.QuestionRecord{Text: text}
	for i, c := range key {
		q.Answers = append(q.Answers, domain.AnswerOption{Text: string(rune('A' + i)), Correct: c == '1'})
	}
	return q
}

func (e engine) seed(t *testing.T, userID int64, dataset string, qs ...domain.QuestionRecord) []domain.QuestionRecord {
	t.Helper()
	stored, err := e.questions.CreateDataset(context.Background(), userID, dataset, qs)
	if err != nil {
		t.Fatalf("seed dataset: %v", err)
	}
	return stored
}

func (e engine) queue(t *testing.T, userID int64) []domain.DebugEntry {
	t.Helper()
	entries, err := e.svc.Debug(context.Background(), userID)
	if err != nil {
		t.Fatalf("debug: %v", err)
	}
	return entries
}

func assertContiguous(t *testing.T, entries []domain.DebugEntry) {
	t.Helper()
	for i, e := range entries {
		if e.Position != i {
			t.Fatalf("positions not contiguous: %+v", entries)
		}
	}
}

func questionIDs(entries []domain.DebugEntry) []int64 {
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.QuestionID
	}
	return ids
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestStartBuildsDoubledContiguousQueue(t *testing.T) {
	ctx := context.Background()
	e := newEngine(rand.New(rand.NewSource(1)))
	e.seed(t, 1, "math", question("q1", "10"), question("q2", "011"), question("q3", "1"))

	total, err := e.svc.Start(ctx, 1, "math")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if total != 6 {
		t.Fatalf("expected 6 entries, got %d", total)
	}
	queue := e.queue(t, 1)
	if len(queue) != 6 {
		t.Fatalf("expected 6 queued, got %d", len(queue))
	}
	assertContiguous(t, queue)
}

func TestStartUnknownDataset(t *testing.T) {
	e := newEngine(nil)
	e.seed(t, 1, "math", question("q1", "1"))

	if _, err := e.svc.Start(context.Background(), 1, "history"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	// Datasets are scoped to their owner.
	if _, err := e.svc.Start(context.Background(), 2, "math"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for another user, got %v", err)
	}
}

func TestStartReplacesPreviousQueue(t *testing.T) {
	ctx := context.Background()
	e := newEngine(nil)
	e.seed(t, 1, "math", question("q1", "1"), question("q2", "01"))

	if _, err := e.svc.Start(ctx, 1, "math"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := e.svc.Start(ctx, 1, "math"); err != nil {
		t.Fatalf("restart: %v", err)
	}
	queue := e.queue(t, 1)
	if len(queue) != 4 {
		t.Fatalf("expected restart to replace the queue, got %d entries", len(queue))
	}
	assertContiguous(t, queue)
}

func TestNextHidesCorrectnessAndFinishes(t *testing.T) {
	ctx := context.Background()
	e := newEngine(fixedRand{})
	stored := e.seed(t, 1, "math", question("What is 2 + 2?", "01"))

	view, err := e.svc.Next(ctx, 1)
	if err != nil {
		t.Fatalf("next on empty queue: %v", err)
	}
	if !view.Finished {
		t.Fatalf("expected finished on empty queue, got %+v", view)
	}

	if _, err := e.svc.Start(ctx, 1, "math"); err != nil {
		t.Fatalf("start: %v", err)
	}
	view, err = e.svc.Next(ctx, 1)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if view.Finished || view.ID != stored[0].ID || view.Text != "What is 2 + 2?" || len(view.Answers) != 2 {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestSubmitCorrectRemovesEntry(t *testing.T) {
	ctx := context.Background()
	e := newEngine(fixedRand{})
	stored := e.seed(t, 1, "math", question("q1", "10"), question("q2", "01"))
	if _, err := e.svc.Start(ctx, 1, "math"); err != nil {
		t.Fatalf("start: %v", err)
	}

	q1 := stored[0]
	outcome, err := e.svc.SubmitAnswer(ctx, 1, domain.AnswerSubmission{QuestionID: q1.ID, AnswerIDs: q1.CorrectIDs(), TimeSpent: 3})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !outcome.Correct || outcome.NewScore != 10 || outcome.Remaining != 3 || outcome.Finished {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if !equalIDs(outcome.CorrectAnswers, q1.CorrectIDs()) {
		t.Fatalf("expected correct answers %v, got %v", q1.CorrectIDs(), outcome.CorrectAnswers)
	}

	queue := e.queue(t, 1)
	assertContiguous(t, queue)
	want := []int64{stored[1].ID, stored[0].ID, stored[1].ID}
	if got := questionIDs(queue); !equalIDs(got, want) {
		t.Fatalf("queue = %v, want %v", got, want)
	}
}

func TestSubmitIncorrectReinsertsAhead(t *testing.T) {
	ctx := context.Background()
	// Offset 3, queue order q1 q2 q3 q1 q2 q3.
	e := newEngine(fixedRand{value: 0})
	stored := e.seed(t, 1, "math", question("q1", "10"), question("q2", "01"), question("q3", "1"))
	q1, q2, q3 := stored[0].ID, stored[1].ID, stored[2].ID
	if _, err := e.svc.Start(ctx, 1, "math"); err != nil {
		t.Fatalf("start: %v", err)
	}

	outcome, err := e.svc.SubmitAnswer(ctx, 1, domain.AnswerSubmission{QuestionID: q1, TimeSpent: 2})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.Correct || outcome.NewScore != -5 || outcome.Remaining != 6 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}

	queue := e.queue(t, 1)
	assertContiguous(t, queue)
	want := []int64{q2, q3, q1, q1, q2, q3}
	if got := questionIDs(queue); !equalIDs(got, want) {
		t.Fatalf("queue = %v, want %v", got, want)
	}
}

func queueTexts(entries []domain.DebugEntry) []string {
	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Text
	}
	return texts
}

func TestSubmitIncorrectReinsertsAtOffset(t *testing.T) {
	tests := []struct {
		name   string
		draw   int
		missed string
		want   string
	}{
		{name: "head offset 3", draw: 0, missed: "A", want: "BCADEFGABCDEFG"},
		{name: "head offset 4", draw: 1, missed: "A", want: "BCDAEFGABCDEFG"},
		{name: "head offset 5", draw: 2, missed: "A", want: "BCDEAFGABCDEFG"},
		{name: "middle offset 3", draw: 0, missed: "D", want: "ABCEFDGABCDEFG"},
		{name: "middle offset 5", draw: 2, missed: "D", want: "ABCEFGADBCDEFG"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			e := newEngine(fixedRand{value: tc.draw})
			var qs []domain.QuestionRecord
			for _, text := range []string{"A", "B", "C", "D", "E", "F", "G"} {
				qs = append(qs, question(text, "10"))
			}
			stored := e.seed(t, 1, "letters", qs...)
			ids := make(map[string]int64, len(stored))
			for _, q := range stored {
				ids[q.Text] = q.ID
			}
			if _, err := e.svc.Start(ctx, 1, "letters"); err != nil {
				t.Fatalf("start: %v", err)
			}

			before := queueTexts(e.queue(t, 1))
			current := -1
			for i, text := range before {
				if text == tc.missed {
					current = i
					break
				}
			}

			outcome, err := e.svc.SubmitAnswer(ctx, 1, domain.AnswerSubmission{QuestionID: ids[tc.missed]})
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			if outcome.Correct || outcome.Remaining != len(before) {
				t.Fatalf("unexpected outcome %+v", outcome)
			}

			queue := e.queue(t, 1)
			assertContiguous(t, queue)
			after := queueTexts(queue)
			got := ""
			for _, text := range after {
				got += text
			}
			if got != tc.want {
				t.Fatalf("queue = %s, want %s", got, tc.want)
			}

			// With the answered entry taken out, entries at or after the
			// insertion point move up by exactly one and nothing else moves.
			remaining := append(append([]string{}, before[:current]...), before[current+1:]...)
			insertAt := current + 3 + tc.draw - 1
			if after[insertAt] != tc.missed {
				t.Fatalf("expected %s at %d, got %v", tc.missed, insertAt, after)
			}
			for r, text := range remaining {
				moved := r
				if r >= insertAt {
					moved = r + 1
				}
				if after[moved] != text {
					t.Fatalf("entry %s at %d moved to unexpected slot: %v", text, r, after)
				}
			}
		})
	}
}

func TestSubmitIncorrectCapsAtTail(t *testing.T) {
	ctx := context.Background()
	e := newEngine(fixedRand{value: 2})
	stored := e.seed(t, 1, "solo", question("q1", "01"))
	q := stored[0]
	if _, err := e.svc.Start(ctx, 1, "solo"); err != nil {
		t.Fatalf("start: %v", err)
	}

	// One entry left after removal, so the miss lands right after it.
	outcome, err := e.svc.SubmitAnswer(ctx, 1, domain.AnswerSubmission{QuestionID: q.ID})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.Remaining != 2 {
		t.Fatalf("expected 2 remaining, got %+v", outcome)
	}
	assertContiguous(t, e.queue(t, 1))

	// Drain to one entry, then miss it: the queue is empty after removal.
	if _, err := e.svc.SubmitAnswer(ctx, 1, domain.AnswerSubmission{QuestionID: q.ID, AnswerIDs: q.CorrectIDs()}); err != nil {
		t.Fatalf("submit correct: %v", err)
	}
	outcome, err = e.svc.SubmitAnswer(ctx, 1, domain.AnswerSubmission{QuestionID: q.ID})
	if err != nil {
		t.Fatalf("submit last: %v", err)
	}
	if outcome.Remaining != 1 || outcome.Finished {
		t.Fatalf("expected the missed question back, got %+v", outcome)
	}
	queue := e.queue(t, 1)
	if len(queue) != 1 || queue[0].Position != 0 {
		t.Fatalf("expected a single entry at position 0, got %+v", queue)
	}
}

func TestSubmitRejections(t *testing.T) {
	ctx := context.Background()
	e := newEngine(nil)
	stored := e.seed(t, 1, "math", question("q1", "10"), question("q2", "01"))
	if _, err := e.svc.Start(ctx, 1, "math"); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := e.svc.SubmitAnswer(ctx, 1, domain.AnswerSubmission{QuestionID: 999}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	foreign := stored[1].Answers[0].ID
	_, err := e.svc.SubmitAnswer(ctx, 1, domain.AnswerSubmission{QuestionID: stored[0].ID, AnswerIDs: []int64{foreign}})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}

	// Rejected submissions leave no trace.
	if n := len(e.queue(t, 1)); n != 4 {
		t.Fatalf("expected untouched queue, got %d entries", n)
	}
	if _, err := e.svc.Score(ctx, 1); !errors.Is(err, domain.ErrLedgerNotFound) {
		t.Fatalf("expected no ledger, got %v", err)
	}
}

func TestMathScenario(t *testing.T) {
	ctx := context.Background()
	e := newEngine(rand.New(rand.NewSource(11)))
	stored := e.seed(t, 1, "math", question("Q1", "100"), question("Q2", "011"))
	q1, q2 := stored[0], stored[1]

	total, err := e.svc.Start(ctx, 1, "math")
	if err != nil || total != 4 {
		t.Fatalf("start: total=%d err=%v", total, err)
	}

	outcome, err := e.svc.SubmitAnswer(ctx, 1, domain.AnswerSubmission{QuestionID: q1.ID, AnswerIDs: []int64{q1.Answers[0].ID}})
	if err != nil {
		t.Fatalf("submit q1: %v", err)
	}
	if !outcome.Correct || outcome.NewScore != 10 || outcome.Remaining != 3 {
		t.Fatalf("unexpected q1 outcome %+v", outcome)
	}

	outcome, err = e.svc.SubmitAnswer(ctx, 1, domain.AnswerSubmission{QuestionID: q2.ID, AnswerIDs: []int64{q2.Answers[1].ID}})
	if err != nil {
		t.Fatalf("submit q2: %v", err)
	}
	if outcome.Correct || outcome.NewScore != 5 || outcome.Remaining != 3 {
		t.Fatalf("unexpected q2 outcome %+v", outcome)
	}
	assertContiguous(t, e.queue(t, 1))

	byID := map[int64]domain.QuestionRecord{q1.ID: q1, q2.ID: q2}
	for i := 0; i < 10 && !outcome.Finished; i++ {
		view, err := e.svc.Next(ctx, 1)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		outcome, err = e.svc.SubmitAnswer(ctx, 1, domain.AnswerSubmission{QuestionID: view.ID, AnswerIDs: byID[view.ID].CorrectIDs()})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	if !outcome.Finished || outcome.Remaining != 0 {
		t.Fatalf("expected finished quiz, got %+v", outcome)
	}
	ledger, err := e.svc.Score(ctx, 1)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if ledger.Score != 10*ledger.Correct-5*ledger.Incorrect || ledger.Correct != 4 || ledger.Incorrect != 1 {
		t.Fatalf("unexpected ledger %+v", ledger)
	}
}

func TestLedgerArithmetic(t *testing.T) {
	ctx := context.Background()
	e := newEngine(rand.New(rand.NewSource(5)))
	stored := e.seed(t, 1, "math", question("q1", "10"), question("q2", "01"), question("q3", "11"))
	byID := map[int64]domain.QuestionRecord{}
	for _, q := range stored {
		byID[q.ID] = q
	}
	if _, err := e.svc.Start(ctx, 1, "math"); err != nil {
		t.Fatalf("start: %v", err)
	}

	pick := rand.New(rand.NewSource(8))
	var spent int64
	correct, incorrect := 0, 0
	for i := 0; i < 25; i++ {
		view, err := e.svc.Next(ctx, 1)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if view.Finished {
			break
		}
		sub := domain.AnswerSubmission{QuestionID: view.ID, TimeSpent: int64(pick.Intn(20))}
		if pick.Intn(2) == 0 {
			sub.AnswerIDs = byID[view.ID].CorrectIDs()
			correct++
		} else {
			incorrect++
		}
		spent += sub.TimeSpent
		if _, err := e.svc.SubmitAnswer(ctx, 1, sub); err != nil {
			t.Fatalf("submit: %v", err)
		}
		assertContiguous(t, e.queue(t, 1))
	}

	ledger, err := e.svc.Score(ctx, 1)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if ledger.Correct != correct || ledger.Incorrect != incorrect {
		t.Fatalf("ledger %+v, want correct=%d incorrect=%d", ledger, correct, incorrect)
	}
	if ledger.Score != 10*correct-5*incorrect || ledger.TimeSpent != spent {
		t.Fatalf("ledger %+v, want score=%d time=%d", ledger, 10*correct-5*incorrect, spent)
	}
}

func TestResetIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e := newEngine(nil)
	e.seed(t, 1, "math", question("q1", "1"))
	if _, err := e.svc.Start(ctx, 1, "math"); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := e.svc.Reset(ctx, 1); err != nil {
			t.Fatalf("reset %d: %v", i, err)
		}
	}
	status, err := e.svc.Status(ctx, 1)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Remaining != 0 || status.Active || status.Dataset != "" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestStatusReportsActiveDataset(t *testing.T) {
	ctx := context.Background()
	e := newEngine(nil)
	e.seed(t, 1, "geo", question("q1", "1"), question("q2", "01"))
	if _, err := e.svc.Start(ctx, 1, "geo"); err != nil {
		t.Fatalf("start: %v", err)
	}
	status, err := e.svc.Status(ctx, 1)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Remaining != 4 || !status.Active || status.Dataset != "geo" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestTopIsBoundedAndSorted(t *testing.T) {
	ctx := context.Background()
	e := newEngine(fixedRand{})
	for user := int64(1); user <= 15; user++ {
		stored := e.seed(t, user, "math", question("q", "1"))
		if _, err := e.svc.Start(ctx, user, "math"); err != nil {
			t.Fatalf("start: %v", err)
		}
		// user n answers correctly n%3 times.
		for i := int64(0); i < user%3; i++ {
			if _, err := e.svc.SubmitAnswer(ctx, user, domain.AnswerSubmission{QuestionID: stored[0].ID, AnswerIDs: stored[0].CorrectIDs()}); err != nil {
				t.Fatalf("submit: %v", err)
			}
		}
		if user%3 == 0 {
			if _, err := e.svc.SubmitAnswer(ctx, user, domain.AnswerSubmission{QuestionID: stored[0].ID}); err != nil {
				t.Fatalf("submit: %v", err)
			}
		}
	}

	cases := []struct {
		limit int
		want  int
	}{
		{limit: 10, want: 10},
		{limit: 0, want: 10},
		{limit: 3, want: 3},
		{limit: 1000, want: 15},
	}
	for _, tc := range cases {
		top, err := e.svc.Top(ctx, tc.limit)
		if err != nil {
			t.Fatalf("top(%d): %v", tc.limit, err)
		}
		if len(top) != tc.want {
			t.Fatalf("top(%d) returned %d entries, want %d", tc.limit, len(top), tc.want)
		}
		for i := 1; i < len(top); i++ {
			if top[i].Score > top[i-1].Score {
				t.Fatalf("top(%d) not sorted: %+v", tc.limit, top)
			}
		}
	}
}

func TestConcurrentSubmissionsForOneUser(t *testing.T) {
	ctx := context.Background()
	e := newEngine(rand.New(rand.NewSource(2)))
	var qs []domain.QuestionRecord
	for i := 0; i < 8; i++ {
		qs = append(qs, question("q", "10"))
	}
	stored := e.seed(t, 1, "math", qs...)
	if _, err := e.svc.Start(ctx, 1, "math"); err != nil {
		t.Fatalf("start: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(stored)*2)
	for _, q := range stored {
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(q domain.QuestionRecord) {
				defer wg.Done()
				_, err := e.svc.SubmitAnswer(ctx, 1, domain.AnswerSubmission{QuestionID: q.ID, AnswerIDs: q.CorrectIDs(), TimeSpent: 1})
				errs <- err
			}(q)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent submit: %v", err)
		}
	}

	ledger, err := e.svc.Score(ctx, 1)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if ledger.Correct != 16 || ledger.Score != 160 || ledger.TimeSpent != 16 {
		t.Fatalf("lost updates: %+v", ledger)
	}
	if n := len(e.queue(t, 1)); n != 0 {
		t.Fatalf("expected empty queue, got %d", n)
	}
}

func TestConcurrentUsersAreIndependent(t *testing.T) {
	ctx := context.Background()
	e := newEngine(nil)
	var wg sync.WaitGroup
	for user := int64(1); user <= 10; user++ {
		stored := e.seed(t, user, "math", question("q1", "10"), question("q2", "01"))
		wg.Add(1)
		go func(user int64, stored []domain.QuestionRecord) {
			defer wg.Done()
			if _, err := e.svc.Start(ctx, user, "math"); err != nil {
				t.Errorf("start %d: %v", user, err)
				return
			}
			for _, q := range stored {
				if _, err := e.svc.SubmitAnswer(ctx, user, domain.AnswerSubmission{QuestionID: q.ID}); err != nil {
					t.Errorf("submit %d: %v", user, err)
				}
			}
		}(user, stored)
	}
	wg.Wait()

	for user := int64(1); user <= 10; user++ {
		queue := e.queue(t, user)
		if len(queue) != 4 {
			t.Fatalf("user %d: expected 4 entries, got %d", user, len(queue))
		}
		assertContiguous(t, queue)
	}
}

// gappyStore reports positions with gaps until Renumber is called.
type gappyStore struct {
	*memory.SessionStore
	mu        sync.Mutex
	gaps      bool
	renumbers int
}

func (s *gappyStore) Entries(ctx context.Context, userID int64) ([]domain.QueueEntry, error) {
	entries, err := s.SessionStore.Entries(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gaps {
		for i := range entries {
			entries[i].Position = i * 2
		}
	}
	return entries, nil
}

func (s *gappyStore) Renumber(ctx context.Context, userID int64) error {
	s.mu.Lock()
	s.gaps = false
	s.renumbers++
	s.mu.Unlock()
	return s.SessionStore.Renumber(ctx, userID)
}

func TestReadsRepairPositionGaps(t *testing.T) {
	ctx := context.Background()
	questions := memory.NewQuestionStore()
	store := &gappyStore{SessionStore: memory.NewSessionStore()}
	svc := app.NewQuizServiceWithRand(questions, store, nil, fixedRand{})
	if _, err := questions.CreateDataset(ctx, 1, "math", []domain.QuestionRecord{question("q1", "1"), question("q2", "01")}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.Start(ctx, 1, "math"); err != nil {
		t.Fatalf("start: %v", err)
	}

	store.mu.Lock()
	store.gaps = true
	store.mu.Unlock()

	queue, err := svc.Debug(ctx, 1)
	if err != nil {
		t.Fatalf("debug: %v", err)
	}
	assertContiguous(t, queue)
	if store.renumbers != 1 {
		t.Fatalf("expected one repair, got %d", store.renumbers)
	}
}

func TestLeaderboardHubReceivesScoreUpdates(t *testing.T) {
	ctx := context.Background()
	e := newEngine(fixedRand{})
	stored := e.seed(t, 1, "math", question("q1", "1"))
	if _, err := e.svc.Start(ctx, 1, "math"); err != nil {
		t.Fatalf("start: %v", err)
	}

	updates, cancel := e.svc.Leaderboard().Subscribe()
	defer cancel()
	<-updates

	if _, err := e.svc.SubmitAnswer(ctx, 1, domain.AnswerSubmission{QuestionID: stored[0].ID, AnswerIDs: stored[0].CorrectIDs()}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	select {
	case snap := <-updates:
		if len(snap.Entries) != 1 || snap.Entries[0].UserID != 1 || snap.Entries[0].Score != 10 {
			t.Fatalf("unexpected snapshot %+v", snap)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no leaderboard update")
	}
}
