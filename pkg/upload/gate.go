package upload

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTooLarge reports a file above the gate's byte ceiling.
	ErrTooLarge = errors.New("upload: file too large")
	// ErrUnsupportedType reports a MIME type outside the gate's allow-list.
	ErrUnsupportedType = errors.New("upload: unsupported file type")
	// ErrEmptyFile reports a zero-byte selection.
	ErrEmptyFile = errors.New("upload: file is empty")
)

const megabyte = 1 << 20

// Gate is a hard accept/reject check applied before a file enters form state.
// It never resizes or truncates.
type Gate struct {
	Name         string
	MaxBytes     int64
	AllowedTypes []string
	SizeMessage  string
	TypeMessage  string
}

// ImageGate guards the project-wide image fields.
var ImageGate = Gate{
	Name:     "image",
	MaxBytes: 1 * megabyte,
	AllowedTypes: []string{
		"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp", "image/svg+xml",
	},
	SizeMessage: "Image size must be 1MB or less",
	TypeMessage: "Only JPG, JPEG, PNG, GIF, WEBP and SVG images are allowed",
}

// UploaderGate guards the category and gallery uploader.
var UploaderGate = Gate{
	Name:     "uploader",
	MaxBytes: 5 * megabyte,
	AllowedTypes: []string{
		"image/png", "image/jpeg", "image/jpg", "image/svg+xml", "image/webp",
	},
	SizeMessage: "File size must be 5MB or less",
	TypeMessage: "Only PNG, JPEG, JPG, SVG and WEBP files are allowed",
}

// GateFor resolves a gate by name; unknown or empty names use ImageGate.
func GateFor(name string) Gate {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case UploaderGate.Name:
		return UploaderGate
	default:
		return ImageGate
	}
}

// GateError describes a rejected file. Message is the user-facing text shown
// under the field.
type GateError struct {
	Gate    string
	Reason  error
	Message string
}

func (e *GateError) Error() string {
	return fmt.Sprintf("upload: %s gate: %s", e.Gate, e.Message)
}

func (e *GateError) Unwrap() error {
	return e.Reason
}

// Check accepts files up to and including MaxBytes whose content type is on
// the allow-list.
func (g Gate) Check(file File) error {
	if file.Size <= 0 {
		return &GateError{Gate: g.Name, Reason: ErrEmptyFile, Message: "Please select a file"}
	}
	if g.MaxBytes > 0 && file.Size > g.MaxBytes {
		return &GateError{Gate: g.Name, Reason: ErrTooLarge, Message: g.SizeMessage}
	}
	if len(g.AllowedTypes) > 0 && !g.allows(file.ContentType) {
		return &GateError{Gate: g.Name, Reason: ErrUnsupportedType, Message: g.TypeMessage}
	}
	return nil
}

func (g Gate) allows(contentType string) bool {
	ct := normalizeContentType(contentType)
	for _, allowed := range g.AllowedTypes {
		if ct == allowed {
			return true
		}
	}
	return false
}
