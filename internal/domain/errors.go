package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Concrete errors wrap one of these; match with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrRateLimited  = errors.New("rate limited")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

var (
	// ErrDatasetEmpty is returned when a dataset has no questions for the user.
	ErrDatasetEmpty = fmt.Errorf("%w: no questions in dataset", ErrNotFound)
	// ErrDatasetNotFound indicates the user owns no dataset with that name.
	ErrDatasetNotFound = fmt.Errorf("%w: dataset not found", ErrNotFound)
	// ErrEntryNotFound is returned when an answered question is not in the user's queue.
	ErrEntryNotFound = fmt.Errorf("%w: question is not in the quiz", ErrNotFound)
	// ErrQuestionNotFound indicates a question id that does not exist.
	ErrQuestionNotFound = fmt.Errorf("%w: question not found", ErrNotFound)
	// ErrLedgerNotFound is returned before a user has submitted any answer.
	ErrLedgerNotFound = fmt.Errorf("%w: no score recorded", ErrNotFound)
	// ErrUserNotFound indicates an unknown user id or email.
	ErrUserNotFound = fmt.Errorf("%w: user not found", ErrNotFound)
	// ErrDatasetExists is returned when uploading a dataset name the user already owns.
	ErrDatasetExists = fmt.Errorf("%w: dataset already exists", ErrConflict)
	// ErrUserExists is returned when a username or email is already registered.
	ErrUserExists = fmt.Errorf("%w: user already exists", ErrConflict)
	// ErrAnswerNotInQuestion indicates a submitted answer id that belongs to another question.
	ErrAnswerNotInQuestion = fmt.Errorf("%w: answer does not belong to question", ErrInvalidInput)
	// ErrTokenUsed is returned when a reset token is presented a second time.
	ErrTokenUsed = fmt.Errorf("%w: token already used", ErrInvalidInput)
	// ErrBadCredentials is returned for a failed login.
	ErrBadCredentials = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	// ErrResetTooSoon is returned when a password reset is requested again within the cooldown.
	ErrResetTooSoon = fmt.Errorf("%w: wait before requesting another password reset", ErrRateLimited)
	// ErrAdminOnly is returned when a non-admin calls an account management operation.
	ErrAdminOnly = fmt.Errorf("%w: admin access required", ErrForbidden)
)
