package state

import (
	"errors"

	"github.com/goliatone/go-storeform/pkg/upload"
)

// SetFile runs the field's gate and, on acceptance, replaces the field value
// with the new upload and mints a fresh preview URL (revoking the previous
// one). A rejected file sets the field error and leaves the previous value
// and preview untouched; the *upload.GateError is returned.
func (s *Store) SetFile(name string, file upload.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	field, err := s.editableLocked(name)
	if err != nil {
		return err
	}
	if !field.IsFile() {
		return ErrNotFileField
	}

	if err := upload.GateFor(field.Gate).Check(file); err != nil {
		var gateErr *upload.GateError
		if errors.As(err, &gateErr) {
			s.errors[name] = gateErr.Message
		}
		return err
	}

	existing := fileValue(s.values[name]).Existing
	s.revokeLocked(name)
	s.values[name] = upload.ReplacedFile(file, existing)
	s.previews[name] = upload.Preview{URL: s.minter.Mint(file)}
	s.dirty[name] = struct{}{}
	delete(s.errors, name)
	return nil
}

// ClearFile marks a file field as cleared and drops its preview.
func (s *Store) ClearFile(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	field, err := s.editableLocked(name)
	if err != nil {
		return err
	}
	if !field.IsFile() {
		return ErrNotFileField
	}
	existing := fileValue(s.values[name]).Existing
	s.revokeLocked(name)
	s.values[name] = upload.ClearedFile(existing)
	s.dirty[name] = struct{}{}
	return nil
}

// RestoreFile rolls a file field back to the persisted server image (or to
// no file on the create path), revoking any local preview. It is allowed
// while submitting because the coordinator uses it to undo a rejected upload.
func (s *Store) RestoreFile(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return ErrUnmounted
	}
	field, ok := s.form.Field(name)
	if !ok {
		return ErrUnknownField
	}
	if !field.IsFile() {
		return ErrNotFileField
	}
	existing := fileValue(s.values[name]).Existing
	s.revokeLocked(name)
	s.values[name] = upload.UnchangedFile(existing)
	if existing != "" {
		s.previews[name] = upload.Preview{URL: existing, Existing: true}
	}
	return nil
}

// File returns the tri-state value of a file field.
func (s *Store) File(name string) (upload.FileValue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[name].(upload.FileValue)
	return value, ok
}

// Preview returns the preview shown for a file field.
func (s *Store) Preview(name string) (upload.Preview, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	preview, ok := s.previews[name]
	return preview, ok
}

// revokeLocked drops a field's preview, releasing minted object URLs. Server
// URLs are never revoked.
func (s *Store) revokeLocked(name string) {
	preview, ok := s.previews[name]
	if !ok {
		return
	}
	if !preview.Existing {
		s.minter.Revoke(preview.URL)
	}
	delete(s.previews, name)
}
