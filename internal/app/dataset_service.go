package app

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"adaptive-quiz-service/internal/domain"
)

// DatasetStore persists uploaded datasets.
type DatasetStore interface {
	// CreateDataset stores questions under name and returns them with ids assigned.
	// It fails with domain.ErrDatasetExists when the user already owns name.
	CreateDataset(ctx context.Context, userID int64, name string, questions []domain.QuestionRecord) ([]domain.QuestionRecord, error)
	ListDatasets(ctx context.Context, userID int64) ([]string, error)
	DeleteDataset(ctx context.Context, userID int64, name string) error
}

// UploadFile is one question file of a dataset upload.
type UploadFile struct {
	Name    string
	Content []byte
}

// DatasetService handles dataset upload, listing and removal.
type DatasetService struct {
	datasets  DatasetStore
	questions QuestionStore
}

func NewDatasetService(datasets DatasetStore, questions QuestionStore) *DatasetService {
	return &DatasetService{datasets: datasets, questions: questions}
}

// Upload parses every file and stores them as one dataset. Nothing is stored
// if any file is malformed.
func (s *DatasetService) Upload(ctx context.Context, userID int64, name string, files []UploadFile) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("%w: dataset name is required", domain.ErrInvalidInput)
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("%w: no files uploaded", domain.ErrInvalidInput)
	}

	questions := make([]domain.QuestionRecord, 0, len(files))
	for _, f := range files {
		q, err := ParseQuestionFile(f.Name, f.Content)
		if err != nil {
			return 0, err
		}
		q.UserID = userID
		q.Dataset = name
		questions = append(questions, q)
	}

	stored, err := s.datasets.CreateDataset(ctx, userID, name, questions)
	if err != nil {
		return 0, err
	}
	return len(stored), nil
}

// List returns the names of the user's datasets.
func (s *DatasetService) List(ctx context.Context, userID int64) ([]string, error) {
	return s.datasets.ListDatasets(ctx, userID)
}

// Questions returns every question of a dataset, correctness included.
func (s *DatasetService) Questions(ctx context.Context, userID int64, name string) ([]domain.QuestionRecord, error) {
	questions, err := s.questions.ListQuestions(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, domain.ErrDatasetEmpty
	}
	return questions, nil
}

// Delete removes a dataset owned by the user.
func (s *DatasetService) Delete(ctx context.Context, userID int64, name string) error {
	return s.datasets.DeleteDataset(ctx, userID, name)
}

// ParseQuestionFile reads one question in the upload format:
//
//	line 1: answer key, one 0/1 per answer, optionally prefixed with X
//	line 2: question text
//	rest:   answers, blank lines ignored
func ParseQuestionFile(name string, content []byte) (domain.QuestionRecord, error) {
	if !utf8.Valid(content) {
		return domain.QuestionRecord{}, fmt.Errorf("%w: cannot read file %s", domain.ErrInvalidInput, name)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) < 3 {
		return domain.QuestionRecord{}, fmt.Errorf("%w: file %s has an invalid format", domain.ErrInvalidInput, name)
	}

	key := strings.TrimPrefix(strings.TrimSpace(lines[0]), "X")
	for _, c := range key {
		if c != '0' && c != '1' {
			return domain.QuestionRecord{}, fmt.Errorf("%w: file %s has invalid answer marks", domain.ErrInvalidInput, name)
		}
	}

	var answers []string
	for _, line := range lines[2:] {
		if line = strings.TrimSpace(line); line != "" {
			answers = append(answers, line)
		}
	}
	if len(answers) == 0 || len(key) < len(answers) {
		return domain.QuestionRecord{}, fmt.Errorf("%w: file %s answer key does not cover every answer", domain.ErrInvalidInput, name)
	}

	q := domain.QuestionRecord{
		Text:    strings.TrimSpace(lines[1]),
		Answers: make([]domain.AnswerOption, len(answers)),
	}
	for i, text := range answers {
		q.Answers[i] = domain.AnswerOption{Text: text, Correct: key[i] == '1'}
	}
	return q, nil
}
