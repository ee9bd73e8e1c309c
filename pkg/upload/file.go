package upload

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// File is a user-selected upload held in memory until submission.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

// NewFile builds a File from raw bytes, sniffing the content type when the
// caller does not supply one.
func NewFile(name, contentType string, data []byte) File {
	name = strings.TrimSpace(name)
	if strings.TrimSpace(contentType) == "" {
		contentType = detectContentType(name, data)
	}
	return File{
		Name:        name,
		ContentType: normalizeContentType(contentType),
		Size:        int64(len(data)),
		Data:        data,
	}
}

// Open reads a file from disk.
func Open(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("upload: read %s: %w", path, err)
	}
	return NewFile(filepath.Base(path), "", data), nil
}

func detectContentType(name string, data []byte) string {
	if ext := filepath.Ext(name); ext != "" {
		if byExt := mime.TypeByExtension(strings.ToLower(ext)); byExt != "" {
			return byExt
		}
	}
	if len(data) == 0 {
		return "application/octet-stream"
	}
	return http.DetectContentType(data)
}

func normalizeContentType(raw string) string {
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	return strings.ToLower(mediaType)
}

// FileState distinguishes the three intents a file field can carry.
type FileState int

const (
	// Unchanged keeps whatever the server already stores (possibly nothing).
	Unchanged FileState = iota
	// Cleared asks the server to drop the stored file.
	Cleared
	// Replaced uploads a new file.
	Replaced
)

func (s FileState) String() string {
	switch s {
	case Unchanged:
		return "unchanged"
	case Cleared:
		return "cleared"
	case Replaced:
		return "replaced"
	default:
		return fmt.Sprintf("FileState(%d)", int(s))
	}
}

// FileValue is the value stored in form state for a file field. Existing is
// the server URL of the currently persisted file, kept across replacement so a
// rejected upload can roll back to it.
type FileValue struct {
	State    FileState
	File     *File
	Existing string
}

// UnchangedFile returns a value retaining the existing server file, if any.
func UnchangedFile(existing string) FileValue {
	return FileValue{State: Unchanged, Existing: strings.TrimSpace(existing)}
}

// ClearedFile returns a value requesting removal of the stored file.
func ClearedFile(existing string) FileValue {
	return FileValue{State: Cleared, Existing: strings.TrimSpace(existing)}
}

// ReplacedFile returns a value carrying a new upload.
func ReplacedFile(file File, existing string) FileValue {
	f := file
	return FileValue{State: Replaced, File: &f, Existing: strings.TrimSpace(existing)}
}

// HasFile reports whether the field resolves to a file after submission:
// either a new upload or an untouched server file.
func (v FileValue) HasFile() bool {
	switch v.State {
	case Replaced:
		return v.File != nil
	case Unchanged:
		return v.Existing != ""
	default:
		return false
	}
}
