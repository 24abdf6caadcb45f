// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound          = errors.New("not found")
	ErrDuplicateEntry    = errors.New("duplicate entry")
	ErrDatabaseCorrupted = errors.New("database corrupted")

	// Extraction errors.
	ErrExtractionFormat  = errors.New("extraction response is not well-formed")
	ErrExtractionFailed  = errors.New("extraction failed")
	ErrExtractionTimeout = errors.New("extraction timed out")

	// Matching and order errors.
	ErrNoMatchFound   = errors.New("no catalog match found")
	ErrAmbiguousMatch = errors.New("ambiguous catalog match")
	ErrItemNotInOrder = errors.New("item not in order")

	// Provider and session errors.
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrStateCorrupt        = errors.New("session state corrupt")

	// Configuration errors.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// MatchError reports a catalog lookup that did not produce an accepted item.
// It wraps ErrNoMatchFound or ErrAmbiguousMatch.
type MatchError struct {
	Err        error
	Query      string
	Candidate  string
	Similarity float64
}

func (e *MatchError) Error() string {
	if e.Candidate != "" {
		return fmt.Sprintf("%v: %q (best %q at %.2f)", e.Err, e.Query, e.Candidate, e.Similarity)
	}
	return fmt.Sprintf("%v: %q", e.Err, e.Query)
}

func (e *MatchError) Unwrap() error {
	return e.Err
}

// ItemNotInOrderError names the item a modification tried to touch.
type ItemNotInOrderError struct {
	ItemName string
}

func (e *ItemNotInOrderError) Error() string {
	return fmt.Sprintf("%v: %q", ErrItemNotInOrder, e.ItemName)
}

func (e *ItemNotInOrderError) Unwrap() error {
	return ErrItemNotInOrder
}

// UserError carries a message meant for the person at the terminal alongside
// the underlying cause.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err == nil {
		return e.UserMessage
	}
	return e.UserMessage + ": " + e.Err.Error()
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError wraps err with a message for the CLI user.
func NewUserError(userMessage string, err error) error {
	return &UserError{Err: err, UserMessage: userMessage}
}

// Kind returns a stable snake_case name for an error, used in logs and metric labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStateCorrupt):
		return "state_corrupt"
	case errors.Is(err, ErrExtractionTimeout):
		return "extraction_timeout"
	case errors.Is(err, ErrExtractionFailed), errors.Is(err, ErrExtractionFormat):
		return "extraction_failed"
	case errors.Is(err, ErrNoMatchFound):
		return "no_match_found"
	case errors.Is(err, ErrAmbiguousMatch):
		return "ambiguous_match"
	case errors.Is(err, ErrItemNotInOrder):
		return "item_not_in_order"
	case errors.Is(err, ErrRateLimit):
		return "rate_limited"
	case errors.Is(err, ErrProviderUnavailable):
		return "provider_unavailable"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}

// IsConversational reports whether err is a dialog-level failure that the guest can
// resolve by rephrasing, as opposed to a systemic one.
func IsConversational(err error) bool {
	return errors.Is(err, ErrNoMatchFound) ||
		errors.Is(err, ErrAmbiguousMatch) ||
		errors.Is(err, ErrItemNotInOrder) ||
		errors.Is(err, ErrExtractionFailed) ||
		errors.Is(err, ErrExtractionFormat)
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
