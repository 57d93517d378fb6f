package app

import (
	"math/rand"
	"sync"
	"time"

	"adaptive-quiz-service/internal/domain"
)

const (
	// Points applied to the ledger per submission.
	correctPoints   = 10
	incorrectPoints = -5

	// A missed question comes back this many positions ahead (inclusive range).
	reinsertMinOffset = 3
	reinsertMaxOffset = 5

	// Every question of a dataset appears this many times in a fresh queue.
	occurrencesPerQuestion = 2
)

// Rand is the randomness the quiz engine needs. *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// lockedRand serializes access to a Rand shared by concurrent requests.
type lockedRand struct {
	mu  sync.Mutex
	rnd Rand
}

func newLockedRand(rnd Rand) *lockedRand {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &lockedRand{rnd: rnd}
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}

func (r *lockedRand) Shuffle(n int, swap func(i, j int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rnd.Shuffle(n, swap)
}

// buildQueue lists every question twice, shuffles the combined list and
// numbers the result from zero.
func buildQueue(userID int64, questions []domain.QuestionRecord, rnd Rand) []domain.QueueEntry {
	ids := make([]int64, 0, len(questions)*occurrencesPerQuestion)
	for i := 0; i < occurrencesPerQuestion; i++ {
		for _, q := range questions {
			ids = append(ids, q.ID)
		}
	}
	rnd.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	entries := make([]domain.QueueEntry, len(ids))
	for pos, id := range ids {
		entries[pos] = domain.QueueEntry{UserID: userID, QuestionID: id, Position: pos}
	}
	return entries
}

// reinsertOffset draws the distance a missed question travels.
func reinsertOffset(rnd Rand) int {
	return reinsertMinOffset + rnd.Intn(reinsertMaxOffset-reinsertMinOffset+1)
}

// reinsertPosition returns where a missed question goes back into the queue.
// current is the position it was answered at, maxPos the highest position
// still queued. An empty queue always takes the question at position 0.
func reinsertPosition(current, offset, maxPos int, hasRemaining bool) int {
	if !hasRemaining {
		return 0
	}
	return min(current+offset, maxPos+1)
}

// contiguous reports whether entries, ordered by position, are numbered 0..n-1.
func contiguous(entries []domain.QueueEntry) bool {
	for i, e := range entries {
		if e.Position != i {
			return false
		}
	}
	return true
}

// applyResult folds one submission into the ledger.
func applyResult(ledger domain.ScoreLedger, correct bool, timeSpent int64) domain.ScoreLedger {
	if correct {
		ledger.Score += correctPoints
		ledger.Correct++
	} else {
		ledger.Score += incorrectPoints
		ledger.Incorrect++
	}
	ledger.TimeSpent += timeSpent
	return ledger
}

// evaluate checks the chosen answer ids against the question. The answer is
// correct only when the chosen set equals the set of correct options.
func evaluate(question domain.QuestionRecord, chosen []int64) (bool, error) {
	valid := make(map[int64]struct{}, len(question.Answers))
	for _, a := range question.Answers {
		valid[a.ID] = struct{}{}
	}

	selected := make(map[int64]struct{}, len(chosen))
	for _, id := range chosen {
		if _, ok := valid[id]; !ok {
			return false, domain.ErrAnswerNotInQuestion
		}
		selected[id] = struct{}{}
	}

	correctIDs := question.CorrectIDs()
	if len(selected) != len(correctIDs) {
		return false, nil
	}
	for _, id := range correctIDs {
		if _, ok := selected[id]; !ok {
			return false, nil
		}
	}
	return true, nil
}
