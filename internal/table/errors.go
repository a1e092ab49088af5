package table

import "errors"

var (
	// ErrNotFound is returned when the input path does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrUnreadableFile is returned when the file exists but no candidate
	// encoding or spreadsheet reader could open it.
	ErrUnreadableFile = errors.New("unreadable file")

	// ErrEmptyFile is returned when the file holds no lines at all.
	ErrEmptyFile = errors.New("file is empty")
)
