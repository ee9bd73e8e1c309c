// Package registry is the Field Registry: a static, per-entity catalogue of
// ordered field descriptors. Forms are loaded once (from embedded schema
// files, a caller-supplied fs.FS, or an OpenAPI document) and handed out as
// copies, so a mounted screen can never mutate the shared schema.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-storeform/pkg/model"
)

var (
	// ErrUnknownEntity is returned when no form is registered for an entity.
	ErrUnknownEntity = errors.New("registry: unknown entity")
	// ErrDuplicateEntity is returned when an entity is registered twice.
	ErrDuplicateEntity = errors.New("registry: duplicate entity")
)

// Registry stores entity forms keyed by entity name. It is safe for
// concurrent readers once construction completes.
type Registry struct {
	forms map[string]model.Form
}

// New builds a registry from already-constructed forms.
func New(forms ...model.Form) (*Registry, error) {
	r := &Registry{forms: make(map[string]model.Form, len(forms))}
	for _, form := range forms {
		if err := r.register(form, "inline"); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) register(form model.Form, source string) error {
	normalized, err := normalizeForm(form, source)
	if err != nil {
		return err
	}
	if _, exists := r.forms[normalized.Entity]; exists {
		return fmt.Errorf("%w %q (%s)", ErrDuplicateEntity, normalized.Entity, source)
	}
	r.forms[normalized.Entity] = normalized
	return nil
}

// Form returns a copy of the entity's form.
func (r *Registry) Form(entity string) (model.Form, bool) {
	if r == nil {
		return model.Form{}, false
	}
	form, ok := r.forms[strings.TrimSpace(entity)]
	if !ok {
		return model.Form{}, false
	}
	return cloneForm(form), true
}

// MustForm is Form for callers that treat a missing entity as a programming
// error.
func (r *Registry) MustForm(entity string) model.Form {
	form, ok := r.Form(entity)
	if !ok {
		panic(fmt.Sprintf("%v: %q", ErrUnknownEntity, entity))
	}
	return form
}

// Fields returns the entity's ordered field descriptors.
func (r *Registry) Fields(entity string) ([]model.Field, error) {
	form, ok := r.Form(entity)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}
	return form.Fields, nil
}

// Entities lists registered entity names in sorted order.
func (r *Registry) Entities() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.forms))
	for name := range r.forms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Empty reports whether the registry holds no forms.
func (r *Registry) Empty() bool {
	return r == nil || len(r.forms) == 0
}

func cloneForm(src model.Form) model.Form {
	out := src
	out.Fields = make([]model.Field, len(src.Fields))
	for i, field := range src.Fields {
		out.Fields[i] = cloneField(field)
	}
	out.Rules = append([]model.Rule(nil), src.Rules...)
	out.Lookups = cloneStrings(src.Lookups)
	out.Messages = cloneStrings(src.Messages)
	return out
}

func cloneField(src model.Field) model.Field {
	out := src
	out.Options = append([]model.Option(nil), src.Options...)
	if len(src.Validations) > 0 {
		out.Validations = make([]model.ValidationRule, len(src.Validations))
		for i, rule := range src.Validations {
			out.Validations[i] = model.ValidationRule{Kind: rule.Kind, Params: cloneStrings(rule.Params)}
		}
	}
	out.Metadata = cloneStrings(src.Metadata)
	if values, ok := src.Default.([]any); ok {
		out.Default = append([]any(nil), values...)
	}
	return out
}

func cloneStrings(src map[string]string) map[string]string {
	if src == nil {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
