package state

import "errors"

var (
	// ErrUnknownField is returned for names the form does not declare.
	ErrUnknownField = errors.New("state: unknown field")
	// ErrSubmitting is returned when an edit arrives while a submission is in flight.
	ErrSubmitting = errors.New("state: form is submitting")
	// ErrUnmounted is returned once the screen owning the store has gone away.
	ErrUnmounted = errors.New("state: form is unmounted")
	// ErrNotFileField is returned when a file operation targets a non-file field.
	ErrNotFileField = errors.New("state: not a file field")
	// ErrFileField is returned when SetValue targets a file field.
	ErrFileField = errors.New("state: use SetFile for file fields")
	// ErrInvalidValue is returned when a value cannot be coerced to the field kind.
	ErrInvalidValue = errors.New("state: invalid value for field")
)
