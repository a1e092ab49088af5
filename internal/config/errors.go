package config

import (
	"errors"
	"fmt"
)

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrEmptyDataDir is returned when no data directory is configured.
	ErrEmptyDataDir = errors.New("invalid data directory: must not be empty")

	// ErrInvalidReportDays is returned when report_days is not positive.
	ErrInvalidReportDays = errors.New("invalid report days: must be positive")

	// ErrInvalidFormat is returned for a report format other than
	// markdown, json or text.
	ErrInvalidFormat = errors.New("invalid report format: must be markdown, json or text")

	// ErrInvalidConcurrency is returned when concurrency is below 1.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be at least 1")

	// ErrConfigNotFound is returned when an explicitly given configuration
	// file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)

// AccountError reports an invalid per-account override.
type AccountError struct {
	Dir string
	Err error
}

func (e *AccountError) Error() string {
	return fmt.Sprintf("account %s: %v", e.Dir, e.Err)
}

func (e *AccountError) Unwrap() error {
	return e.Err
}
