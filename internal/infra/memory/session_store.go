package memory

import (
	"context"
	"sort"
	"sync"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore.
// Queues are kept ordered by position. Between transactions position equals
// slice index; inside one a removed entry may leave a gap until CloseGap.
type SessionStore struct {
	mu      sync.Mutex
	queues  map[int64][]domain.QueueEntry
	ledgers map[int64]domain.ScoreLedger
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		queues:  make(map[int64][]domain.QueueEntry),
		ledgers: make(map[int64]domain.ScoreLedger),
	}
}

// InTx holds the store lock for the whole of fn and publishes its writes only
// when fn succeeds.
func (s *SessionStore) InTx(ctx context.Context, _ int64, fn func(tx app.SessionTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &sessionTx{
		store:   s,
		queues:  make(map[int64][]domain.QueueEntry),
		ledgers: make(map[int64]domain.ScoreLedger),
	}
	if err := fn(tx); err != nil {
		return err
	}
	for userID, queue := range tx.queues {
		if len(queue) == 0 {
			delete(s.queues, userID)
			continue
		}
		s.queues[userID] = queue
	}
	for userID, ledger := range tx.ledgers {
		s.ledgers[userID] = ledger
	}
	return nil
}

func (s *SessionStore) Entries(_ context.Context, userID int64) ([]domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.QueueEntry(nil), s.queues[userID]...), nil
}

func (s *SessionStore) Clear(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.queues, userID)
	return nil
}

func (s *SessionStore) Renumber(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	renumber(s.queues[userID])
	return nil
}

// DropQuestions removes every queued occurrence of the given questions and
// closes the gaps left behind.
func (s *SessionStore) DropQuestions(questionIDs []int64) {
	drop := make(map[int64]struct{}, len(questionIDs))
	for _, id := range questionIDs {
		drop[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, queue := range s.queues {
		kept := queue[:0]
		for _, e := range queue {
			if _, ok := drop[e.QuestionID]; !ok {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(s.queues, userID)
			continue
		}
		renumber(kept)
		s.queues[userID] = kept
	}
}

// DropUser deletes the user's queue and ledger.
func (s *SessionStore) DropUser(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.queues, userID)
	delete(s.ledgers, userID)
}

func (s *SessionStore) Ledger(_ context.Context, userID int64) (domain.ScoreLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, ok := s.ledgers[userID]
	if !ok {
		return domain.ScoreLedger{}, domain.ErrLedgerNotFound
	}
	return ledger, nil
}

func (s *SessionStore) TopScores(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	s.mu.Lock()
	entries := make([]domain.LeaderboardEntry, 0, len(s.ledgers))
	for _, l := range s.ledgers {
		entries = append(entries, domain.LeaderboardEntry{UserID: l.UserID, Score: l.Score})
	}
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID < entries[j].UserID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// sessionTx copies a user's queue on first touch and works on the copy.
type sessionTx struct {
	store   *SessionStore
	queues  map[int64][]domain.QueueEntry
	ledgers map[int64]domain.ScoreLedger
}

func (t *sessionTx) queue(userID int64) []domain.QueueEntry {
	if q, ok := t.queues[userID]; ok {
		return q
	}
	q := append([]domain.QueueEntry(nil), t.store.queues[userID]...)
	t.queues[userID] = q
	return q
}

func (t *sessionTx) ReplaceQueue(_ context.Context, userID int64, entries []domain.QueueEntry) error {
	q := append([]domain.QueueEntry(nil), entries...)
	sort.SliceStable(q, func(i, j int) bool { return q[i].Position < q[j].Position })
	renumber(q)
	t.queues[userID] = q
	return nil
}

func (t *sessionTx) FindEntry(_ context.Context, userID, questionID int64) (domain.QueueEntry, error) {
	for _, e := range t.queue(userID) {
		if e.QuestionID == questionID {
			return e, nil
		}
	}
	return domain.QueueEntry{}, domain.ErrEntryNotFound
}

func (t *sessionTx) RemoveEntry(_ context.Context, entry domain.QueueEntry) error {
	q := t.queue(entry.UserID)
	for i, e := range q {
		if e.Position == entry.Position {
			t.queues[entry.UserID] = append(q[:i], q[i+1:]...)
			return nil
		}
	}
	return domain.ErrEntryNotFound
}

func (t *sessionTx) CloseGap(_ context.Context, userID int64, position int) error {
	q := t.queue(userID)
	for i := range q {
		if q[i].Position > position {
			q[i].Position--
		}
	}
	return nil
}

func (t *sessionTx) MaxPosition(_ context.Context, userID int64) (int, bool, error) {
	q := t.queue(userID)
	if len(q) == 0 {
		return 0, false, nil
	}
	return q[len(q)-1].Position, true, nil
}

func (t *sessionTx) InsertEntry(_ context.Context, entry domain.QueueEntry) error {
	q := t.queue(entry.UserID)
	idx := len(q)
	for i := range q {
		if q[i].Position >= entry.Position {
			if idx == len(q) {
				idx = i
			}
			q[i].Position++
		}
	}
	q = append(q, domain.QueueEntry{})
	copy(q[idx+1:], q[idx:])
	q[idx] = entry
	t.queues[entry.UserID] = q
	return nil
}

func (t *sessionTx) Count(_ context.Context, userID int64) (int, error) {
	return len(t.queue(userID)), nil
}

func (t *sessionTx) LoadLedger(_ context.Context, userID int64) (domain.ScoreLedger, error) {
	if l, ok := t.ledgers[userID]; ok {
		return l, nil
	}
	if l, ok := t.store.ledgers[userID]; ok {
		return l, nil
	}
	return domain.ScoreLedger{UserID: userID}, nil
}

func (t *sessionTx) SaveLedger(_ context.Context, ledger domain.ScoreLedger) error {
	t.ledgers[ledger.UserID] = ledger
	return nil
}

func renumber(q []domain.QueueEntry) {
	for i := range q {
		q[i].Position = i
	}
}
