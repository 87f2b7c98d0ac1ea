// Package errors provides shared error wrapping helpers used across every
// buffrs component. Component-specific error kinds (manifest validation
// failures, resolver conflicts, cache integrity failures, ...) live as
// exported sentinels or typed errors in their owning packages; this
// package only carries the wrapping convention shared by all of them.
package errors

import "fmt"

// Common cross-cutting errors that do not belong to any single component.
var (
	ErrInvalidPath = fmt.Errorf("invalid path")
	ErrEmptyPaths  = fmt.Errorf("source and destination paths cannot be empty")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
