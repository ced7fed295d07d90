// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/apporo/app-compression/internal/issue"
)

const (
	// ExitFailure is returned for failed jobs and unexpected errors.
	ExitFailure = 1
	// ExitUsage is returned when the request itself is invalid (bad options,
	// bad manifest, unusable output).
	ExitUsage = 2
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCodeFor maps job errors onto process exit codes.
func exitCodeFor(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	switch issue.KindOf(err) {
	case issue.InvalidStreamWriter, issue.InvalidJobOptions:
		return ExitUsage
	default:
		return ExitFailure
	}
}
