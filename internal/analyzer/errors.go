package analyzer

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTool is returned when no analyzer is registered under a name.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidInput is returned when invocation parameters cannot be decoded.
	ErrInvalidInput = errors.New("invalid tool input")
)

// MissingColumnError reports that an analyzer's mandatory identifying
// column is absent after alias resolution.
type MissingColumnError struct {
	// Column is the human name of the missing column, e.g. "Campaign".
	Column string

	// File is the canonical export name, e.g. "campaigns.csv".
	File string

	// Message overrides the default text when an analyzer words it differently.
	Message string
}

// Error returns the user-facing message.
func (e *MissingColumnError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Could not find '%s' column in %s", e.Column, e.File)
}

// PanicError wraps a value recovered from a panicking analyzer.
type PanicError struct {
	Value any
}

// Error returns the recovered value as text.
func (e *PanicError) Error() string {
	return fmt.Sprintf("%v", e.Value)
}
