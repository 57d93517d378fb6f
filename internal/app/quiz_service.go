package app

import (
	"context"
	"fmt"
	"log"

	"adaptive-quiz-service/internal/domain"
)

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
)

// QuestionStore reads question content (Postgres, in-memory, or a cache in front of either).
type QuestionStore interface {
	ListQuestions(ctx context.Context, userID int64, dataset string) ([]domain.QuestionRecord, error)
	GetQuestion(ctx context.Context, questionID int64) (domain.QuestionRecord, error)
}

// SessionStore persists quiz queues and score ledgers.
type SessionStore interface {
	// InTx runs fn in one transaction scoped to userID. fn's error rolls everything back.
	InTx(ctx context.Context, userID int64, fn func(tx SessionTx) error) error
	// Entries returns the user's queue ordered by position.
	Entries(ctx context.Context, userID int64) ([]domain.QueueEntry, error)
	Clear(ctx context.Context, userID int64) error
	// Renumber rewrites positions to 0..n-1 keeping their current order.
	Renumber(ctx context.Context, userID int64) error
	Ledger(ctx context.Context, userID int64) (domain.ScoreLedger, error)
	// TopScores ranks ledgers by score, highest first. A non-positive limit returns all.
	TopScores(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// SessionTx is the set of mutations available inside SessionStore.InTx.
type SessionTx interface {
	// ReplaceQueue drops the user's queue and writes entries in its place.
	ReplaceQueue(ctx context.Context, userID int64, entries []domain.QueueEntry) error
	// FindEntry returns the lowest-position occurrence of questionID.
	FindEntry(ctx context.Context, userID, questionID int64) (domain.QueueEntry, error)
	// RemoveEntry deletes entry and leaves its position empty until CloseGap.
	RemoveEntry(ctx context.Context, entry domain.QueueEntry) error
	// CloseGap moves every entry after position down by one.
	CloseGap(ctx context.Context, userID int64, position int) error
	MaxPosition(ctx context.Context, userID int64) (int, bool, error)
	// InsertEntry moves every entry at or after entry.Position up by one and stores entry.
	InsertEntry(ctx context.Context, entry domain.QueueEntry) error
	Count(ctx context.Context, userID int64) (int, error)
	// LoadLedger returns the user's ledger, or a zero ledger if none exists yet.
	LoadLedger(ctx context.Context, userID int64) (domain.ScoreLedger, error)
	SaveLedger(ctx context.Context, ledger domain.ScoreLedger) error
}

// Scoreboard serves the public ranking.
type Scoreboard interface {
	SetScore(ctx context.Context, userID int64, score int) error
	// Remove drops a deleted user from the ranking.
	Remove(ctx context.Context, userID int64) error
	Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// QuizService runs adaptive quiz sessions.
type QuizService struct {
	questions QuestionStore
	sessions  SessionStore
	board     Scoreboard
	hub       *LeaderboardHub
	rnd       Rand
	locks     *userLocks
}

// NewQuizService wires the engine. A nil board ranks straight from the session store.
func NewQuizService(questions QuestionStore, sessions SessionStore, board Scoreboard) *QuizService {
	return NewQuizServiceWithRand(questions, sessions, board, nil)
}

// NewQuizServiceWithRand is NewQuizService with a caller supplied random source,
// which makes shuffles and reinsertion offsets reproducible.
func NewQuizServiceWithRand(questions QuestionStore, sessions SessionStore, board Scoreboard, rnd Rand) *QuizService {
	if board == nil {
		board = storeScoreboard{sessions: sessions}
	}
	return &QuizService{
		questions: questions,
		sessions:  sessions,
		board:     board,
		hub:       NewLeaderboardHub(),
		rnd:       newLockedRand(rnd),
		locks:     newUserLocks(),
	}
}

// Leaderboard exposes the hub that streams ranking updates.
func (s *QuizService) Leaderboard() *LeaderboardHub {
	return s.hub
}

// Start builds a fresh queue from the dataset, replacing any queue the user had.
func (s *QuizService) Start(ctx context.Context, userID int64, dataset string) (int, error) {
	questions, err := s.questions.ListQuestions(ctx, userID, dataset)
	if err != nil {
		return 0, err
	}
	if len(questions) == 0 {
		return 0, domain.ErrDatasetEmpty
	}
	entries := buildQueue(userID, questions, s.rnd)

	unlock := s.locks.lock(userID)
	defer unlock()

	err = s.sessions.InTx(ctx, userID, func(tx SessionTx) error {
		return tx.ReplaceQueue(ctx, userID, entries)
	})
	if err != nil {
		return 0, fmt.Errorf("start quiz: %w", err)
	}
	return len(entries), nil
}

// Next returns the question at the head of the queue, or a finished view.
func (s *QuizService) Next(ctx context.Context, userID int64) (domain.QuestionView, error) {
	entries, err := s.entries(ctx, userID)
	if err != nil {
		return domain.QuestionView{}, err
	}
	if len(entries) == 0 {
		return domain.QuestionView{Finished: true}, nil
	}

	question, err := s.questions.GetQuestion(ctx, entries[0].QuestionID)
	if err != nil {
		return domain.QuestionView{}, err
	}
	view := domain.QuestionView{
		ID:      question.ID,
		Text:    question.Text,
		Answers: make([]domain.OptionView, 0, len(question.Answers)),
	}
	for _, a := range question.Answers {
		view.Answers = append(view.Answers, domain.OptionView{ID: a.ID, Text: a.Text})
	}
	return view, nil
}

// Status reports how much of the quiz is left and which dataset it came from.
func (s *QuizService) Status(ctx context.Context, userID int64) (domain.QuizStatus, error) {
	entries, err := s.entries(ctx, userID)
	if err != nil {
		return domain.QuizStatus{}, err
	}
	status := domain.QuizStatus{Remaining: len(entries), Active: len(entries) > 0}
	if len(entries) == 0 {
		return status, nil
	}

	question, err := s.questions.GetQuestion(ctx, entries[0].QuestionID)
	if err == nil {
		status.Dataset = question.Dataset
	}
	return status, nil
}

// Debug dumps the whole queue in order.
func (s *QuizService) Debug(ctx context.Context, userID int64) ([]domain.DebugEntry, error) {
	entries, err := s.entries(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.DebugEntry, 0, len(entries))
	for _, e := range entries {
		question, err := s.questions.GetQuestion(ctx, e.QuestionID)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.DebugEntry{QuestionID: e.QuestionID, Text: question.Text, Position: e.Position})
	}
	return out, nil
}

// Reset drops the user's queue. The score ledger is kept.
func (s *QuizService) Reset(ctx context.Context, userID int64) error {
	unlock := s.locks.lock(userID)
	defer unlock()
	return s.sessions.Clear(ctx, userID)
}

// SubmitAnswer scores an answer and reschedules the question when it was missed.
func (s *QuizService) SubmitAnswer(ctx context.Context, userID int64, submission domain.AnswerSubmission) (domain.AnswerOutcome, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	var outcome domain.AnswerOutcome
	err := s.sessions.InTx(ctx, userID, func(tx SessionTx) error {
		entry, err := tx.FindEntry(ctx, userID, submission.QuestionID)
		if err != nil {
			return err
		}
		question, err := s.questions.GetQuestion(ctx, submission.QuestionID)
		if err != nil {
			return err
		}
		correct, err := evaluate(question, submission.AnswerIDs)
		if err != nil {
			return err
		}

		// The slot stays empty while a miss is rescheduled, so the offset
		// counts from the position the question was answered at.
		if err := tx.RemoveEntry(ctx, entry); err != nil {
			return err
		}

		ledger, err := tx.LoadLedger(ctx, userID)
		if err != nil {
			return err
		}
		ledger.UserID = userID
		ledger = applyResult(ledger, correct, submission.TimeSpent)
		if err := tx.SaveLedger(ctx, ledger); err != nil {
			return err
		}

		if !correct {
			maxPos, hasRemaining, err := tx.MaxPosition(ctx, userID)
			if err != nil {
				return err
			}
			pos := reinsertPosition(entry.Position, reinsertOffset(s.rnd), maxPos, hasRemaining)
			if err := tx.InsertEntry(ctx, domain.QueueEntry{UserID: userID, QuestionID: question.ID, Position: pos}); err != nil {
				return err
			}
		}
		if err := tx.CloseGap(ctx, userID, entry.Position); err != nil {
			return err
		}

		remaining, err := tx.Count(ctx, userID)
		if err != nil {
			return err
		}
		outcome = domain.AnswerOutcome{
			Correct:        correct,
			NewScore:       ledger.Score,
			Remaining:      remaining,
			Finished:       remaining == 0,
			CorrectAnswers: question.CorrectIDs(),
		}
		return nil
	})
	if err != nil {
		return domain.AnswerOutcome{}, err
	}

	s.publishScore(ctx, userID, outcome.NewScore)
	return outcome, nil
}

// Score returns the user's ledger.
func (s *QuizService) Score(ctx context.Context, userID int64) (domain.ScoreLedger, error) {
	return s.sessions.Ledger(ctx, userID)
}

// Top returns the highest scores, at most limit entries. Non-positive limits use the default.
func (s *QuizService) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	if limit > maxLeaderboardSize {
		limit = maxLeaderboardSize
	}
	entries, err := s.board.Top(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Forget removes a deleted user from the ranking and refreshes live subscribers.
func (s *QuizService) Forget(ctx context.Context, userID int64) error {
	if err := s.board.Remove(ctx, userID); err != nil {
		return fmt.Errorf("remove user %d from scoreboard: %w", userID, err)
	}
	if s.hub.HasSubscribers() {
		if top, err := s.Top(ctx, defaultLeaderboardSize); err == nil {
			s.hub.Publish(top)
		}
	}
	return nil
}

// entries loads the queue and repairs position gaps left by an interrupted write.
func (s *QuizService) entries(ctx context.Context, userID int64) ([]domain.QueueEntry, error) {
	entries, err := s.sessions.Entries(ctx, userID)
	if err != nil {
		return nil, err
	}
	if contiguous(entries) {
		return entries, nil
	}

	log.Printf("repairing queue positions for user %d", userID)
	unlock := s.locks.lock(userID)
	defer unlock()
	if err := s.sessions.Renumber(ctx, userID); err != nil {
		return nil, fmt.Errorf("renumber queue: %w", err)
	}
	return s.sessions.Entries(ctx, userID)
}

// publishScore updates the scoreboard after a committed submission. The ledger
// is the source of truth, so scoreboard failures are only logged.
func (s *QuizService) publishScore(ctx context.Context, userID int64, score int) {
	if err := s.board.SetScore(ctx, userID, score); err != nil {
		log.Printf("scoreboard update for user %d failed: %v", userID, err)
		return
	}
	if !s.hub.HasSubscribers() {
		return
	}
	top, err := s.Top(ctx, defaultLeaderboardSize)
	if err != nil {
		log.Printf("leaderboard snapshot failed: %v", err)
		return
	}
	s.hub.Publish(top)
}

// storeScoreboard ranks directly from the persisted ledgers.
type storeScoreboard struct {
	sessions SessionStore
}

func (b storeScoreboard) SetScore(context.Context, int64, int) error { return nil }

func (b storeScoreboard) Remove(context.Context, int64) error { return nil }

func (b storeScoreboard) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	return b.sessions.TopScores(ctx, limit)
}
