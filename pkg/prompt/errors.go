package prompt

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("prompt: aborted")
	// ErrCancelled is returned when the user declines to save.
	ErrCancelled = errors.New("prompt: save cancelled")
)
