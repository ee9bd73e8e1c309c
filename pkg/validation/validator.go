// Package validation is the Cross-Field Validator. A Validator runs an
// ordered list of rules against a snapshot of form state. Every rule runs;
// when two rules flag the same field the earlier rule's message is kept.
package validation

import (
	"fmt"
	"sort"
	"time"

	"github.com/goliatone/go-storeform/pkg/condition"
	"github.com/goliatone/go-storeform/pkg/model"
)

// Errors maps field names to the message shown under the field.
type Errors map[string]string

// Merge copies entries from other that e does not already hold.
func (e Errors) Merge(other Errors) {
	for field, message := range other {
		if _, exists := e[field]; exists || message == "" {
			continue
		}
		e[field] = message
	}
}

// Fields lists the failing field names in sorted order.
func (e Errors) Fields() []string {
	out := make([]string, 0, len(e))
	for field := range e {
		out = append(out, field)
	}
	sort.Strings(out)
	return out
}

// Input is the snapshot a rule reads. Values holds the normalised store
// values (file fields carry upload.FileValue). Lookups holds the lists that
// are ready; a missing key means the list is still loading.
type Input struct {
	Form    model.Form
	Values  map[string]any
	ID      string
	Now     time.Time
	Extras  map[string]any
	Lookups map[string][]map[string]any
}

// LookupReady reports whether the named lookup list has arrived.
func (in Input) LookupReady(name string) bool {
	_, ok := in.Lookups[name]
	return ok
}

func (in Input) label(name string) string {
	if field, ok := in.Form.Field(name); ok {
		return field.DisplayLabel()
	}
	return name
}

func (in Input) now() time.Time {
	if in.Now.IsZero() {
		return time.Now()
	}
	return in.Now
}

// Rule produces the error fragment for one constraint.
type Rule interface {
	Validate(in Input) Errors
}

// RuleFunc adapts a function into a Rule.
type RuleFunc func(in Input) Errors

// Validate calls fn.
func (fn RuleFunc) Validate(in Input) Errors {
	return fn(in)
}

// Validator evaluates rules in order.
type Validator struct {
	rules []Rule
}

// New builds a validator from explicit rules.
func New(rules ...Rule) Validator {
	out := make([]Rule, 0, len(rules))
	for _, rule := range rules {
		if rule != nil {
			out = append(out, rule)
		}
	}
	return Validator{rules: out}
}

// Len returns the number of rules.
func (v Validator) Len() int {
	return len(v.rules)
}

// Validate runs every rule and merges the results.
func (v Validator) Validate(in Input) Errors {
	errs := Errors{}
	for _, rule := range v.rules {
		errs.Merge(rule.Validate(in))
	}
	return errs
}

// ValidateFields runs every rule but only reports the named fields. It backs
// blur/change validation where only the touched inputs should light up.
func (v Validator) ValidateFields(in Input, names ...string) Errors {
	all := v.Validate(in)
	out := Errors{}
	for _, name := range names {
		if message, ok := all[name]; ok {
			out[name] = message
		}
	}
	return out
}

// FromForm builds the validator for a form: one FieldRules entry per field,
// followed by the declared cross-field rules in order. File fields marked
// required without an explicit requiredIfNew rule get one appended.
func FromForm(form model.Form) (Validator, error) {
	rules := make([]Rule, 0, len(form.Fields)+len(form.Rules))
	for _, field := range form.Fields {
		rule, err := FieldRules(field)
		if err != nil {
			return Validator{}, err
		}
		rules = append(rules, rule)
	}

	covered := map[string]struct{}{}
	for _, decl := range form.Rules {
		rule, err := fromDecl(decl)
		if err != nil {
			return Validator{}, fmt.Errorf("validation: %s rule on %s: %w", decl.Kind, form.Entity, err)
		}
		if decl.Kind == model.RuleRequiredIfNew {
			covered[decl.Field] = struct{}{}
		}
		rules = append(rules, rule)
	}
	for _, field := range form.FileFields() {
		if _, ok := covered[field.Name]; field.Required && !ok {
			rules = append(rules, RequiredIfNew(field.Name, ""))
		}
	}
	return New(rules...), nil
}

func fromDecl(decl model.Rule) (Rule, error) {
	switch decl.Kind {
	case model.RuleRequiredIfNew:
		return RequiredIfNew(decl.Field, decl.Message), nil
	case model.RuleDateRange:
		return DateRange(decl.Start, decl.End, decl.Message), nil
	case model.RuleFutureEnd:
		return FutureEnd(decl.Field, decl.Message), nil
	case model.RuleRequiredWhen:
		expr, err := condition.Compile(decl.When)
		if err != nil {
			return nil, err
		}
		return RequiredWhen(decl.Field, expr, decl.Message), nil
	case model.RuleLookupMember:
		return LookupMember(LookupMatch{
			Field:     decl.Field,
			Lookup:    decl.Lookup,
			Key:       decl.Key,
			Parent:    decl.Parent,
			ParentKey: decl.ParentKey,
			Message:   decl.Message,
		}), nil
	default:
		return nil, fmt.Errorf("unknown rule kind %q", decl.Kind)
	}
}
