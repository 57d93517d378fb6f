package postgres

import (
	"context"
	"errors"
	"fmt"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// SessionStore keeps quiz queues and score ledgers in Postgres.
//
// Invariants:
//   - (user_id, position) is unique, checked at commit (deferred key), so a
//     shift of many rows never trips on its own intermediate state.
//   - Every mutation runs under pg_advisory_xact_lock(user_id); writers for one
//     user serialize across service instances, other users are unaffected.
type SessionStore struct {
	pool *pgxpool.Pool
}

func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

func (s *SessionStore) InTx(ctx context.Context, userID int64, fn func(tx app.SessionTx) error) error {
	tx, err := s.begin(ctx, userID)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&sessionTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *SessionStore) begin(ctx context.Context, userID int64) (pgx.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, userID); err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("lock user %d: %w", userID, err)
	}
	return tx, nil
}

func (s *SessionStore) Entries(ctx context.Context, userID int64) ([]domain.QueueEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, question_id, position FROM quiz_entries WHERE user_id = $1 ORDER BY position`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.QueueEntry, 0)
	for rows.Next() {
		var e domain.QueueEntry
		if err := rows.Scan(&e.UserID, &e.QuestionID, &e.Position); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Clear takes the user's advisory lock so it never interleaves with a
// submission running on another instance.
func (s *SessionStore) Clear(ctx context.Context, userID int64) error {
	tx, err := s.begin(ctx, userID)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM quiz_entries WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *SessionStore) Renumber(ctx context.Context, userID int64) error {
	tx, err := s.begin(ctx, userID)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE quiz_entries q
		 SET position = r.rn
		 FROM (
			SELECT ctid, ROW_NUMBER() OVER (ORDER BY position) - 1 AS rn
			FROM quiz_entries
			WHERE user_id = $1
		 ) r
		 WHERE q.ctid = r.ctid AND q.position <> r.rn`,
		userID,
	); err != nil {
		return fmt.Errorf("renumber queue: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *SessionStore) Ledger(ctx context.Context, userID int64) (domain.ScoreLedger, error) {
	ledger := domain.ScoreLedger{UserID: userID}
	err := s.pool.QueryRow(ctx,
		`SELECT score, correct, incorrect, time_spent FROM user_scores WHERE user_id = $1`,
		userID,
	).Scan(&ledger.Score, &ledger.Correct, &ledger.Incorrect, &ledger.TimeSpent)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ScoreLedger{}, domain.ErrLedgerNotFound
	}
	if err != nil {
		return domain.ScoreLedger{}, fmt.Errorf("get ledger: %w", err)
	}
	return ledger, nil
}

// TopScores returns ledgers by score, highest first. A non-positive limit returns all.
func (s *SessionStore) TopScores(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	query := `SELECT user_id, score FROM user_scores ORDER BY score DESC, user_id`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("top scores: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.LeaderboardEntry, 0)
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Score); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type sessionTx struct {
	tx pgx.Tx
}

func (t *sessionTx) ReplaceQueue(ctx context.Context, userID int64, entries []domain.QueueEntry) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM quiz_entries WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	rows := make([][]interface{}, len(entries))
	for i, e := range entries {
		rows[i] = []interface{}{userID, e.QuestionID, e.Position}
	}
	_, err := t.tx.CopyFrom(ctx,
		pgx.Identifier{"quiz_entries"},
		[]string{"user_id", "question_id", "position"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("write queue: %w", err)
	}
	return nil
}

func (t *sessionTx) FindEntry(ctx context.Context, userID, questionID int64) (domain.QueueEntry, error) {
	entry := domain.QueueEntry{UserID: userID, QuestionID: questionID}
	err := t.tx.QueryRow(ctx,
		`SELECT position FROM quiz_entries
		 WHERE user_id = $1 AND question_id = $2
		 ORDER BY position
		 LIMIT 1`,
		userID, questionID,
	).Scan(&entry.Position)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QueueEntry{}, domain.ErrEntryNotFound
	}
	if err != nil {
		return domain.QueueEntry{}, fmt.Errorf("find entry: %w", err)
	}
	return entry, nil
}

func (t *sessionTx) RemoveEntry(ctx context.Context, entry domain.QueueEntry) error {
	tag, err := t.tx.Exec(ctx,
		`DELETE FROM quiz_entries WHERE user_id = $1 AND position = $2`,
		entry.UserID, entry.Position,
	)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func (t *sessionTx) CloseGap(ctx context.Context, userID int64, position int) error {
	if _, err := t.tx.Exec(ctx,
		`UPDATE quiz_entries SET position = position - 1 WHERE user_id = $1 AND position > $2`,
		userID, position,
	); err != nil {
		return fmt.Errorf("close gap: %w", err)
	}
	return nil
}

func (t *sessionTx) MaxPosition(ctx context.Context, userID int64) (int, bool, error) {
	var max *int
	if err := t.tx.QueryRow(ctx,
		`SELECT MAX(position) FROM quiz_entries WHERE user_id = $1`,
		userID,
	).Scan(&max); err != nil {
		return 0, false, fmt.Errorf("max position: %w", err)
	}
	if max == nil {
		return 0, false, nil
	}
	return *max, true, nil
}

func (t *sessionTx) InsertEntry(ctx context.Context, entry domain.QueueEntry) error {
	if _, err := t.tx.Exec(ctx,
		`UPDATE quiz_entries SET position = position + 1 WHERE user_id = $1 AND position >= $2`,
		entry.UserID, entry.Position,
	); err != nil {
		return fmt.Errorf("make room: %w", err)
	}
	if _, err := t.tx.Exec(ctx,
		`INSERT INTO quiz_entries (user_id, question_id, position) VALUES ($1, $2, $3)`,
		entry.UserID, entry.QuestionID, entry.Position,
	); err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (t *sessionTx) Count(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM quiz_entries WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count queue: %w", err)
	}
	return n, nil
}

func (t *sessionTx) LoadLedger(ctx context.Context, userID int64) (domain.ScoreLedger, error) {
	ledger := domain.ScoreLedger{UserID: userID}
	err := t.tx.QueryRow(ctx,
		`SELECT score, correct, incorrect, time_spent FROM user_scores WHERE user_id = $1 FOR UPDATE`,
		userID,
	).Scan(&ledger.Score, &ledger.Correct, &ledger.Incorrect, &ledger.TimeSpent)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger, nil
	}
	if err != nil {
		return domain.ScoreLedger{}, fmt.Errorf("load ledger: %w", err)
	}
	return ledger, nil
}

func (t *sessionTx) SaveLedger(ctx context.Context, ledger domain.ScoreLedger) error {
	if _, err := t.tx.Exec(ctx,
		`INSERT INTO user_scores (user_id, score, correct, incorrect, time_spent)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE SET
			score = EXCLUDED.score,
			correct = EXCLUDED.correct,
			incorrect = EXCLUDED.incorrect,
			time_spent = EXCLUDED.time_spent`,
		ledger.UserID, ledger.Score, ledger.Correct, ledger.Incorrect, ledger.TimeSpent,
	); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}
