// Package state is the Form State Store. A Store owns the values, errors,
// dirty set, image previews and lookup lists of one mounted form, keyed by
// the names its model.Form declares.
//
// Values are normalised by field kind: scalar kinds hold strings,
// multiselect holds []string, and file fields hold an upload.FileValue. The
// value map always contains exactly the declared keys.
//
// A Store is safe for concurrent use; loaders apply asynchronous results from
// their own goroutines. Once Unmount is called every mutation is rejected with
// ErrUnmounted, which doubles as the stale-response guard.
package state

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-storeform/pkg/model"
	"github.com/goliatone/go-storeform/pkg/upload"
)

// Store holds the live state of one form instance.
type Store struct {
	mu sync.Mutex

	form       model.Form
	id         string
	values     map[string]any
	errors     map[string]string
	dirty      map[string]struct{}
	previews   map[string]upload.Preview
	lookups    map[string]*lookupEntry
	submitting bool
	mounted    bool
	minter     upload.URLMinter
}

// Option configures a Store.
type Option func(*Store)

// WithURLMinter overrides the object-URL minter used for previews.
func WithURLMinter(minter upload.URLMinter) Option {
	return func(s *Store) {
		if minter != nil {
			s.minter = minter
		}
	}
}

// WithID seeds the record identifier, switching validation to the edit path.
func WithID(id string) Option {
	return func(s *Store) {
		s.id = strings.TrimSpace(id)
	}
}

// New creates a mounted store with every declared field at its default.
func New(form model.Form, opts ...Option) *Store {
	s := &Store{
		form:     form,
		values:   make(map[string]any, len(form.Fields)),
		errors:   make(map[string]string),
		dirty:    make(map[string]struct{}),
		previews: make(map[string]upload.Preview),
		lookups:  make(map[string]*lookupEntry),
		mounted:  true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.minter == nil {
		s.minter = upload.NewObjectURLs()
	}
	for _, field := range form.Fields {
		s.values[field.Name] = defaultValue(field)
	}
	return s
}

// Form returns the descriptor the store was built from.
func (s *Store) Form() model.Form {
	return s.form
}

// ID returns the record identifier; empty on the create path.
func (s *Store) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// SetID records the identifier handed over by navigation state.
func (s *Store) SetID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return ErrUnmounted
	}
	s.id = strings.TrimSpace(id)
	return nil
}

// Hydrate maps a fetched record onto the declared fields. Declared keys
// absent from the record fall back to their defaults, fields the user already
// edited are left alone, and file fields holding a URL get an existing-image
// preview. Errors are cleared. Hydrating twice with the same record is a
// no-op the second time.
func (s *Store) Hydrate(record map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return ErrUnmounted
	}

	// Coerce everything first so a bad field leaves the store untouched.
	next := make(map[string]any, len(s.form.Fields))
	for _, field := range s.form.Fields {
		if _, edited := s.dirty[field.Name]; edited || field.IsFile() {
			continue
		}
		raw, present := record[field.Name]
		if !present {
			next[field.Name] = defaultValue(field)
			continue
		}
		value, err := coerce(field, raw)
		if err != nil {
			return fmt.Errorf("state: hydrate %s: %w", field.Name, err)
		}
		next[field.Name] = value
	}

	if raw, ok := record[s.form.IdentifierKey()]; ok && raw != nil {
		if id := strings.TrimSpace(fmt.Sprint(raw)); id != "" {
			s.id = id
		}
	}
	for _, field := range s.form.FileFields() {
		if _, edited := s.dirty[field.Name]; edited {
			continue
		}
		url := ""
		if raw, present := record[field.Name]; present {
			url = stringValue(raw)
		}
		s.revokeLocked(field.Name)
		s.values[field.Name] = upload.UnchangedFile(url)
		if url != "" {
			s.previews[field.Name] = upload.Preview{URL: url, Existing: true}
		}
	}
	for name, value := range next {
		s.values[name] = value
	}

	s.errors = make(map[string]string)
	return nil
}

// SetValue writes a non-file field and marks it dirty. When the value
// changes, every field that (transitively) depends on it is reset to its
// default; the reset names are returned so the caller can recompute their
// option sets.
func (s *Store) SetValue(name string, value any) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	field, err := s.editableLocked(name)
	if err != nil {
		return nil, err
	}
	if field.IsFile() {
		return nil, ErrFileField
	}

	next, err := coerce(field, value)
	if err != nil {
		return nil, err
	}
	changed := !equalValues(s.values[name], next)
	s.values[name] = next
	s.dirty[name] = struct{}{}
	delete(s.errors, name)

	if !changed {
		return nil, nil
	}
	return s.resetDependentsLocked(name), nil
}

func (s *Store) resetDependentsLocked(name string) []string {
	var reset []string
	queue := []string{name}
	seen := map[string]struct{}{name: {}}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, dep := range s.form.Dependents(current) {
			if _, ok := seen[dep.Name]; ok {
				continue
			}
			seen[dep.Name] = struct{}{}
			if dep.IsFile() {
				s.revokeLocked(dep.Name)
				s.values[dep.Name] = upload.ClearedFile(fileValue(s.values[dep.Name]).Existing)
			} else {
				s.values[dep.Name] = defaultValue(dep)
			}
			s.dirty[dep.Name] = struct{}{}
			delete(s.errors, dep.Name)
			reset = append(reset, dep.Name)
			queue = append(queue, dep.Name)
		}
	}
	return reset
}

// Value returns the current value of a declared field.
func (s *Store) Value(name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[name]
	if !ok {
		return nil, false
	}
	return cloneValue(value), true
}

// Values returns a copy of the whole value map.
func (s *Store) Values() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = cloneValue(v)
	}
	return out
}

// SetError attaches a message to a declared field. An empty message clears it.
func (s *Store) SetError(name, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return ErrUnmounted
	}
	if _, ok := s.values[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	if strings.TrimSpace(message) == "" {
		delete(s.errors, name)
		return nil
	}
	s.errors[name] = message
	return nil
}

// ClearError removes the message attached to a field.
func (s *Store) ClearError(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.errors, name)
}

// ReplaceErrors swaps the whole error map, dropping undeclared keys and empty
// messages.
func (s *Store) ReplaceErrors(errs map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return ErrUnmounted
	}
	s.errors = make(map[string]string, len(errs))
	for name, message := range errs {
		if _, ok := s.values[name]; !ok || strings.TrimSpace(message) == "" {
			continue
		}
		s.errors[name] = message
	}
	return nil
}

// Errors returns a copy of the error map.
func (s *Store) Errors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.errors))
	for k, v := range s.errors {
		out[k] = v
	}
	return out
}

// Error returns the message attached to a field.
func (s *Store) Error(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors[name]
}

// IsDirty reports whether the user edited a field.
func (s *Store) IsDirty(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.dirty[name]
	return ok
}

// Dirty lists the edited field names in sorted order.
func (s *Store) Dirty() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.dirty))
	for name := range s.dirty {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// BeginSubmit flips the submitting flag. It returns false when a submission
// is already in flight or the store is unmounted, which makes it the
// re-entrancy lock for the coordinator.
func (s *Store) BeginSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting || !s.mounted {
		return false
	}
	s.submitting = true
	return true
}

// EndSubmit clears the submitting flag.
func (s *Store) EndSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
}

// Submitting reports whether a submission is in flight.
func (s *Store) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

// Mounted reports whether the owning screen is still mounted.
func (s *Store) Mounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounted
}

// Unmount revokes every minted preview URL and rejects further mutations.
func (s *Store) Unmount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return
	}
	for name := range s.previews {
		s.revokeLocked(name)
	}
	s.mounted = false
}

func (s *Store) editableLocked(name string) (model.Field, error) {
	if !s.mounted {
		return model.Field{}, ErrUnmounted
	}
	if s.submitting {
		return model.Field{}, ErrSubmitting
	}
	field, ok := s.form.Field(name)
	if !ok {
		return model.Field{}, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return field, nil
}
