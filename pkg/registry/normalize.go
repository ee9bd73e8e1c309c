package registry

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-storeform/pkg/condition"
	"github.com/goliatone/go-storeform/pkg/model"
)

func normalizeForm(form model.Form, source string) (model.Form, error) {
	form.Entity = strings.TrimSpace(form.Entity)
	if form.Entity == "" {
		return model.Form{}, fmt.Errorf("registry: %s: entity name is required", source)
	}
	form.Endpoints.Upsert = strings.TrimSpace(form.Endpoints.Upsert)
	if form.Endpoints.Upsert == "" {
		return model.Form{}, fmt.Errorf("registry: %s: entity %q has no upsert endpoint", source, form.Entity)
	}
	if len(form.Fields) == 0 {
		return model.Form{}, fmt.Errorf("registry: %s: entity %q declares no fields", source, form.Entity)
	}

	switch form.EmptyPolicy {
	case "":
		form.EmptyPolicy = model.EmptyOmit
	case model.EmptyOmit, model.EmptyString:
	default:
		return model.Form{}, fmt.Errorf("registry: %s: entity %q has unknown empty policy %q", source, form.Entity, form.EmptyPolicy)
	}

	declared := make(map[string]struct{}, len(form.Fields))
	for i := range form.Fields {
		field := &form.Fields[i]
		field.Name = strings.TrimSpace(field.Name)
		if field.Name == "" {
			return model.Form{}, fmt.Errorf("registry: %s: entity %q has a field without a name", source, form.Entity)
		}
		if _, dup := declared[field.Name]; dup {
			return model.Form{}, fmt.Errorf("registry: %s: entity %q declares field %q twice", source, form.Entity, field.Name)
		}
		declared[field.Name] = struct{}{}

		if field.Kind == "" {
			field.Kind = model.KindText
		}
		if !field.Kind.Valid() {
			return model.Form{}, fmt.Errorf("registry: %s: field %s.%s has unknown kind %q", source, form.Entity, field.Name, field.Kind)
		}
		if field.IsFile() {
			switch field.Gate {
			case "":
				field.Gate = model.GateImage
			case model.GateImage, model.GateUploader:
			default:
				return model.Form{}, fmt.Errorf("registry: %s: field %s.%s has unknown gate %q", source, form.Entity, field.Name, field.Gate)
			}
		}
		if field.Lookup != "" {
			if _, ok := form.Lookups[field.Lookup]; !ok {
				return model.Form{}, fmt.Errorf("registry: %s: field %s.%s references undeclared lookup %q", source, form.Entity, field.Name, field.Lookup)
			}
		}
	}

	for _, field := range form.Fields {
		if field.DependsOn == "" {
			continue
		}
		if field.DependsOn == field.Name {
			return model.Form{}, fmt.Errorf("registry: %s: field %s.%s depends on itself", source, form.Entity, field.Name)
		}
		if _, ok := declared[field.DependsOn]; !ok {
			return model.Form{}, fmt.Errorf("registry: %s: field %s.%s depends on undeclared field %q", source, form.Entity, field.Name, field.DependsOn)
		}
	}

	for i, rule := range form.Rules {
		if err := checkRule(rule, declared, form.Lookups); err != nil {
			return model.Form{}, fmt.Errorf("registry: %s: entity %q rule %d: %w", source, form.Entity, i, err)
		}
	}
	return form, nil
}

func checkRule(rule model.Rule, declared map[string]struct{}, lookups map[string]string) error {
	need := func(names ...string) error {
		for _, name := range names {
			if name == "" {
				return fmt.Errorf("%s rule is missing a field reference", rule.Kind)
			}
			if _, ok := declared[name]; !ok {
				return fmt.Errorf("%s rule references undeclared field %q", rule.Kind, name)
			}
		}
		return nil
	}

	switch rule.Kind {
	case model.RuleRequiredIfNew, model.RuleFutureEnd:
		return need(rule.Field)
	case model.RuleDateRange:
		return need(rule.Start, rule.End)
	case model.RuleRequiredWhen:
		if err := need(rule.Field); err != nil {
			return err
		}
		if _, err := condition.Compile(rule.When); err != nil {
			return err
		}
		return nil
	case model.RuleLookupMember:
		if err := need(rule.Field); err != nil {
			return err
		}
		if rule.Parent != "" {
			if err := need(rule.Parent); err != nil {
				return err
			}
		}
		if _, ok := lookups[rule.Lookup]; !ok {
			return fmt.Errorf("lookupMember rule references undeclared lookup %q", rule.Lookup)
		}
		return nil
	default:
		return fmt.Errorf("unknown rule kind %q", rule.Kind)
	}
}
