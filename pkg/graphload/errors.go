package graphload

import (
	"errors"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	summary, err := loader.Load(ctx, cfg)
//	if errors.Is(err, graphload.ErrConnectionLost) {
//	    // The database went away mid-run; summary holds partial counts
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates the graph database could not be reached.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrConnectionLost indicates the connection broke while a load was in progress.
	// This is the only execution error that escapes the batch executor.
	ErrConnectionLost = errors.New("connection lost")

	// ErrInvalidInput indicates an input file is missing, unreadable or malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrFileNotFound indicates a named file does not exist in the source.
	ErrFileNotFound = errors.New("file not found")

	// ErrLabelMismatch indicates edge files reference labels that no node file provides.
	ErrLabelMismatch = errors.New("label mismatch")

	// ErrLoadIncomplete indicates some records failed and fail-fast stopped the run.
	ErrLoadIncomplete = errors.New("load incomplete")

	// ErrUnsupportedBackend indicates the requested graph backend is unknown.
	ErrUnsupportedBackend = errors.New("unsupported backend")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")

	// ErrHealthCheckFailed indicates the pre-load write probe did not succeed.
	ErrHealthCheckFailed = errors.New("health check failed")
)

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrUnsupportedBackend),
		errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	case errors.Is(err, ErrConnectionFailed),
		errors.Is(err, ErrConnectionLost),
		errors.Is(err, ErrHealthCheckFailed):
		return ExitConnectionError
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrFileNotFound),
		errors.Is(err, ErrLabelMismatch):
		return ExitInputError
	case errors.Is(err, ErrLoadIncomplete):
		return ExitLoadIncomplete
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "unknown flag") ||
		strings.Contains(errStr, "missing required argument") ||
		strings.Contains(errStr, "unknown shorthand flag") ||
		strings.Contains(errStr, "accepts 1 arg") ||
		strings.Contains(errStr, "required flag") ||
		strings.Contains(errStr, "invalid argument") {
		return ExitUsageError
	}
	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}
