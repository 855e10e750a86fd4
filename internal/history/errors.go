// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

// =============================================================================
// ERRORS
// =============================================================================

// Sentinel errors for the store. Compare with errors.Is.
var (
	// ErrNotFound is returned for an unknown conversation id. Normal UI flow
	// never produces one, so callers surface it as a generic warning.
	ErrNotFound = &StoreError{Message: "conversation not found"}

	// ErrFavoriteLimit is returned when favoriting would exceed the favorite
	// ceiling. The conversation is left unchanged.
	ErrFavoriteLimit = &StoreError{Message: "favorite limit exceeded"}
)

// StoreError represents a history-store error.
type StoreError struct {
	Message string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing store errors.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// PersistenceError reports a failed history write. The in-memory mutation
// has already been applied; durability is not guaranteed until a later
// write succeeds.
type PersistenceError struct {
	Path  string
	Cause error
}

func (e *PersistenceError) Error() string {
	return "failed to persist history to " + e.Path + ": " + e.Cause.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}
