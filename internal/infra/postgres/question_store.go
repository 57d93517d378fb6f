package postgres

import (
	"context"
	"errors"
	"fmt"

	"adaptive-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionStore reads and writes datasets in Postgres. It implements
// app.QuestionStore and app.DatasetStore.
type QuestionStore struct {
	pool *pgxpool.Pool
}

func NewQuestionStore(pool *pgxpool.Pool) *QuestionStore {
	return &QuestionStore{pool: pool}
}

func (s *QuestionStore) ListQuestions(ctx context.Context, userID int64, dataset string) ([]domain.QuestionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, dataset_name, question_text
		 FROM questions
		 WHERE user_id = $1 AND dataset_name = $2
		 ORDER BY id`,
		userID, dataset,
	)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	questions := make([]domain.QuestionRecord, 0)
	ids := make([]int64, 0)
	for rows.Next() {
		var q domain.QuestionRecord
		if err := rows.Scan(&q.ID, &q.UserID, &q.Dataset, &q.Text); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
		ids = append(ids, q.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return questions, nil
	}

	answers, err := s.answers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range questions {
		questions[i].Answers = answers[questions[i].ID]
	}
	return questions, nil
}

func (s *QuestionStore) GetQuestion(ctx context.Context, questionID int64) (domain.QuestionRecord, error) {
	var q domain.QuestionRecord
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, dataset_name, question_text FROM questions WHERE id = $1`,
		questionID,
	).Scan(&q.ID, &q.UserID, &q.Dataset, &q.Text)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuestionRecord{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.QuestionRecord{}, fmt.Errorf("get question: %w", err)
	}

	answers, err := s.answers(ctx, []int64{q.ID})
	if err != nil {
		return domain.QuestionRecord{}, err
	}
	q.Answers = answers[q.ID]
	return q, nil
}

func (s *QuestionStore) answers(ctx context.Context, questionIDs []int64) (map[int64][]domain.AnswerOption, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, question_id, answer_text, is_correct
		 FROM answers
		 WHERE question_id = ANY($1)
		 ORDER BY id`,
		questionIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]domain.AnswerOption, len(questionIDs))
	for rows.Next() {
		var a domain.AnswerOption
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Text, &a.Correct); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		out[a.QuestionID] = append(out[a.QuestionID], a)
	}
	return out, rows.Err()
}

// CreateDataset inserts every question and its answers in one transaction.
func (s *QuestionStore) CreateDataset(ctx context.Context, userID int64, name string, questions []domain.QuestionRecord) ([]domain.QuestionRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Serializes concurrent uploads of the same user so the existence check holds.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, userID); err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM questions WHERE user_id = $1 AND dataset_name = $2)`,
		userID, name,
	).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDatasetExists
	}

	stored := make([]domain.QuestionRecord, 0, len(questions))
	for _, q := range questions {
		q.UserID = userID
		q.Dataset = name
		if err := tx.QueryRow(ctx,
			`INSERT INTO questions (user_id, dataset_name, question_text) VALUES ($1, $2, $3) RETURNING id`,
			userID, name, q.Text,
		).Scan(&q.ID); err != nil {
			return nil, fmt.Errorf("insert question: %w", err)
		}

		answers := make([]domain.AnswerOption, len(q.Answers))
		for i, a := range q.Answers {
			a.QuestionID = q.ID
			if err := tx.QueryRow(ctx,
				`INSERT INTO answers (question_id, answer_text, is_correct) VALUES ($1, $2, $3) RETURNING id`,
				q.ID, a.Text, a.Correct,
			).Scan(&a.ID); err != nil {
				return nil, fmt.Errorf("insert answer: %w", err)
			}
			answers[i] = a
		}
		q.Answers = answers
		stored = append(stored, q)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *QuestionStore) ListDatasets(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT dataset_name FROM questions WHERE user_id = $1 ORDER BY dataset_name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeleteDataset removes the dataset. Queue entries pointing at its questions
// cascade away; the engine closes the resulting position gaps on next read.
func (s *QuestionStore) DeleteDataset(ctx context.Context, userID int64, name string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM questions WHERE user_id = $1 AND dataset_name = $2`,
		userID, name,
	)
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDatasetNotFound
	}
	return nil
}
