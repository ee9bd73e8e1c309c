package state

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-storeform/pkg/model"
)

// LookupStatus tracks a server-fetched option list.
type LookupStatus int

const (
	LookupIdle LookupStatus = iota
	LookupLoading
	LookupReady
	LookupFailed
)

func (s LookupStatus) String() string {
	switch s {
	case LookupIdle:
		return "idle"
	case LookupLoading:
		return "loading"
	case LookupReady:
		return "ready"
	case LookupFailed:
		return "failed"
	default:
		return fmt.Sprintf("LookupStatus(%d)", int(s))
	}
}

type lookupEntry struct {
	status LookupStatus
	items  []map[string]any
	err    error
}

// Metadata keys controlling how lookup records map onto select options.
const (
	MetaValueKey  = "valueKey"
	MetaLabelKey  = "labelKey"
	MetaFilterKey = "filterKey"
)

// BeginLookup marks a lookup list as loading.
func (s *Store) BeginLookup(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return ErrUnmounted
	}
	s.lookups[name] = &lookupEntry{status: LookupLoading}
	return nil
}

// ResolveLookup stores a fetched list. Field values are never touched, so a
// list arriving after the user picked an option cannot overwrite the pick.
func (s *Store) ResolveLookup(name string, items []map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return ErrUnmounted
	}
	s.lookups[name] = &lookupEntry{status: LookupReady, items: items}
	return nil
}

// FailLookup records a fetch failure.
func (s *Store) FailLookup(name string, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return ErrUnmounted
	}
	s.lookups[name] = &lookupEntry{status: LookupFailed, err: err}
	return nil
}

// LookupStatus reports the state of a lookup list.
func (s *Store) LookupStatus(name string) LookupStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.lookups[name]
	if !ok {
		return LookupIdle
	}
	return entry.status
}

// LookupItems returns the fetched records of a ready lookup.
func (s *Store) LookupItems(name string) ([]map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.lookups[name]
	if !ok || entry.status != LookupReady {
		return nil, false
	}
	return entry.items, true
}

// LookupsReady reports whether every lookup the form declares is ready.
func (s *Store) LookupsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name := range s.form.Lookups {
		entry, ok := s.lookups[name]
		if !ok || entry.status != LookupReady {
			return false
		}
	}
	return true
}

// Options returns the option set of a select field. Static options are
// always ready. Lookup-backed options are empty and not ready until the list
// resolves; fields with DependsOn are filtered to records whose filter key
// (default: the parent field name) matches the parent's current value.
func (s *Store) Options(name string) ([]model.Option, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	field, ok := s.form.Field(name)
	if !ok {
		return nil, false
	}
	if field.Lookup == "" {
		return field.Options, true
	}
	entry, ok := s.lookups[field.Lookup]
	if !ok || entry.status != LookupReady {
		return nil, false
	}

	parentValue := ""
	filterKey := ""
	if field.DependsOn != "" {
		parentValue = stringValue(s.values[field.DependsOn])
		if parentValue == "" {
			// Nothing to choose from until the parent is picked.
			return nil, true
		}
		filterKey = metaOr(field, MetaFilterKey, field.DependsOn)
	}

	valueKey := metaOr(field, MetaValueKey, "id")
	labelKey := metaOr(field, MetaLabelKey, "name")
	options := make([]model.Option, 0, len(entry.items))
	for _, item := range entry.items {
		if filterKey != "" && stringValue(item[filterKey]) != parentValue {
			continue
		}
		value := stringValue(item[valueKey])
		if value == "" {
			continue
		}
		label := stringValue(item[labelKey])
		if label == "" {
			label = value
		}
		options = append(options, model.Option{Label: label, Value: value})
	}
	return options, true
}

// Selected returns the lookup record matching a select field's current value.
func (s *Store) Selected(name string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	field, ok := s.form.Field(name)
	if !ok || field.Lookup == "" {
		return nil, false
	}
	entry, ok := s.lookups[field.Lookup]
	if !ok || entry.status != LookupReady {
		return nil, false
	}
	current := stringValue(s.values[name])
	if current == "" {
		return nil, false
	}
	valueKey := metaOr(field, MetaValueKey, "id")
	for _, item := range entry.items {
		if stringValue(item[valueKey]) == current {
			return item, true
		}
	}
	return nil, false
}

// Extras returns the selected lookup record of every lookup-backed field,
// keyed by field name, for use in rule conditions.
func (s *Store) Extras() map[string]any {
	extras := make(map[string]any)
	for _, field := range s.form.Fields {
		if field.Lookup == "" {
			continue
		}
		if record, ok := s.Selected(field.Name); ok {
			extras[field.Name] = record
		}
	}
	return extras
}

func metaOr(field model.Field, key, fallback string) string {
	if value := strings.TrimSpace(field.Metadata[key]); value != "" {
		return value
	}
	return fallback
}
