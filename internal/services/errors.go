// Package services defines the business logic for content generation,
// refinement sessions, entries, and proposal feedback. This file centralizes
// common service-level error values so that they can be consistently
// returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import (
	"errors"
	"fmt"
	"time"
)

// Validation and lookup errors.
var (
	// ErrEmptyInstruction is returned when a generation request carries a
	// blank instruction.
	ErrEmptyInstruction = errors.New("instruction is empty")

	// ErrInstructionTooLong is returned when the instruction exceeds the
	// configured maximum length.
	ErrInstructionTooLong = errors.New("instruction too long")

	// ErrInvalidMode is returned when the generation mode is not one of
	// multiField, block, or singleField.
	ErrInvalidMode = errors.New("invalid generation mode")

	// ErrFieldSelection is returned when the selected fields do not satisfy
	// the mode's arity (multiField needs at least one, block and singleField
	// exactly one).
	ErrFieldSelection = errors.New("invalid field selection for mode")

	// ErrEntryNotFound indicates that the requested content entry does not
	// exist or is not accessible to the current user.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrGenerationNotFound indicates that the referenced generation round
	// does not exist or is not accessible to the current user.
	ErrGenerationNotFound = errors.New("generation not found")

	// ErrInvalidFeedback is returned when a feedback value is outside the
	// allowed set (currently -1 or 1).
	ErrInvalidFeedback = errors.New("feedback value must be -1 or 1")

	// ErrDuplicateFeedback is returned when a user attempts to rate a
	// generation they have already rated.
	ErrDuplicateFeedback = errors.New("feedback already exists")

	// ErrModelUnavailable is returned when the model call failed after all
	// retry attempts.
	ErrModelUnavailable = errors.New("model unavailable")
)

// RateLimitError is returned when the per-user generation budget denies a
// request. ResetTime tells the caller when the window reopens so handlers
// can emit a Retry-After header.
type RateLimitError struct {
	ResetTime time.Time
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("generation budget exceeded, resets at %s", e.ResetTime.UTC().Format(time.RFC3339))
}

// IsRateLimit reports whether err is a budget denial and returns the typed
// error when it is.
func IsRateLimit(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}
