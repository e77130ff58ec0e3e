// Package errors defines the error taxonomy shared by index construction
// and query execution.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedDocument marks a document that could not be reduced to a
	// term sequence. Construction skips or aborts depending on configuration.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrStorage marks an unreadable or unwritable persisted structure.
	// Fatal to the operation in progress.
	ErrStorage = errors.New("storage fault")

	// ErrInconsistentIndex marks a lexicon locator outside the posting
	// store's bounds or a posting list that contradicts its recorded
	// statistics. Surfaced immediately on first detection.
	ErrInconsistentIndex = errors.New("inconsistent index")

	// ErrInvalidInput marks a caller mistake (bad mode, bad scorer name).
	ErrInvalidInput = errors.New("invalid input")
)

type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}
