package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrUnauthorized     = fmt.Errorf("unauthorized")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")

	// Domain errors
	//
	// ErrNotFound also covers ownership failures so callers cannot probe for
	// resources they do not own.
	ErrNotFound         = fmt.Errorf("not found")
	ErrConflict         = fmt.Errorf("conflict")
	ErrExtractionFailed = fmt.Errorf("extraction failed")
	ErrStorage          = fmt.Errorf("storage error")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// StorageError wraps an unexpected persistence failure so it matches [ErrStorage]
// while keeping the underlying cause inspectable.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// IsDomainError reports whether err belongs to the user-facing taxonomy
// (anything other than storage and unexpected failures).
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrInvalidArgument, ErrInvalidInput, ErrMissingArgument,
		ErrConflict, ErrUnauthorized, ErrNotAuthenticated,
		ErrNotFound, ErrExtractionFailed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
