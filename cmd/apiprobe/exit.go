package main

import (
	"errors"
	"fmt"
)

// Exit codes for the CLI.
const (
	ExitSuccess      = 0 // every probe passed
	ExitFailure      = 1 // a probe failed, the run was interrupted or the harness broke
	ExitCommandError = 2 // bad flags, arguments or configuration; nothing was run
)

// ExitError carries the process exit code for an error returned by a command.
type ExitError struct {
	Code    int
	Message string
	Err     error
	// Quiet errors have already been reported to the user.
	Quiet bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an error with an exit code.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// exitCode extracts the exit code from err. Errors without one are harness
// failures.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

func isQuiet(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Quiet
}
