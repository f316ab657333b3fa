// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// ErrDuplicateEntry is returned when a write-once record already exists.
	ErrDuplicateEntry = errors.New("duplicate entry")

	// ErrInvalidInvoice is returned when a document fails validation before
	// entering the pipeline.
	ErrInvalidInvoice = errors.New("invalid invoice")
)

// RetrievalError wraps a pattern store read failure. Recall surfaces these to
// its caller without retrying; retry policy belongs to the store layer.
type RetrievalError struct {
	Err    error
	Source string
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval from %s failed: %v", e.Source, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// NewRetrievalError creates a retrieval error for the given memory source.
func NewRetrievalError(source string, err error) error {
	return &RetrievalError{Source: source, Err: err}
}

// LearningError wraps a failure during a learning event. Learning events are
// at-least-once: entries recorded before the failure are not rolled back.
type LearningError struct {
	Err        error
	DocumentID string
}

func (e *LearningError) Error() string {
	return fmt.Sprintf("learning for document %s failed: %v", e.DocumentID, e.Err)
}

func (e *LearningError) Unwrap() error {
	return e.Err
}

// NewLearningError creates a learning error for the given document.
func NewLearningError(documentID string, err error) error {
	return &LearningError{DocumentID: documentID, Err: err}
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
