package validation

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-storeform/pkg/condition"
	"github.com/goliatone/go-storeform/pkg/upload"
)

// RequiredIfNew requires a file on the create path only. With an identifier
// present an untouched file field is valid even when empty because the
// server keeps the stored file; an explicit clear still fails.
func RequiredIfNew(field, message string) Rule {
	return RuleFunc(func(in Input) Errors {
		value, _ := in.Values[field].(upload.FileValue)
		if value.HasFile() {
			return nil
		}
		if in.ID != "" && value.State == upload.Unchanged {
			return nil
		}
		return Errors{field: orDefault(message, requiredMessage(in.label(field)))}
	})
}

// DateRange requires end to be strictly after start when both are set. The
// error lands on the end field. Unparseable values are left to FieldRules.
func DateRange(start, end, message string) Rule {
	return RuleFunc(func(in Input) Errors {
		startText := strings.TrimSpace(textValue(in.Values[start]))
		endText := strings.TrimSpace(textValue(in.Values[end]))
		if startText == "" || endText == "" {
			return nil
		}
		ref := in.now()
		from, err := ParseDateTime(startText, ref)
		if err != nil {
			return nil
		}
		to, err := ParseDateTime(endText, ref)
		if err != nil {
			return nil
		}
		if to.After(from) {
			return nil
		}
		fallback := fmt.Sprintf("%s must be after %s", in.label(end), in.label(start))
		return Errors{end: orDefault(message, fallback)}
	})
}

// FutureEnd requires a populated field to lie after Input.Now.
func FutureEnd(field, message string) Rule {
	return RuleFunc(func(in Input) Errors {
		text := strings.TrimSpace(textValue(in.Values[field]))
		if text == "" {
			return nil
		}
		now := in.now()
		at, err := ParseDateTime(text, now)
		if err != nil {
			return nil
		}
		if at.After(now) {
			return nil
		}
		fallback := fmt.Sprintf("%s must be in the future", in.label(field))
		return Errors{field: orDefault(message, fallback)}
	})
}

// RequiredWhen requires field while expr holds against the current values
// and extras. Evaluation errors leave the field optional.
func RequiredWhen(field string, expr condition.Expr, message string) Rule {
	return RuleFunc(func(in Input) Errors {
		active, err := expr.Eval(condition.Context{Values: in.Values, Extras: in.Extras})
		if err != nil || !active {
			return nil
		}
		value := in.Values[field]
		if file, ok := value.(upload.FileValue); ok {
			if file.HasFile() {
				return nil
			}
		} else if !isEmpty(value) {
			return nil
		}
		return Errors{field: orDefault(message, requiredMessage(in.label(field)))}
	})
}

// LookupMatch describes a LookupMember rule.
type LookupMatch struct {
	Field     string
	Lookup    string
	Key       string
	Parent    string
	ParentKey string
	Message   string
}

// LookupMember requires a field's value to exist in a lookup list and, with
// Parent set, to belong to the parent's current value. The rule is deferred
// until the list is ready so a record hydrated before its options arrive is
// not flagged.
func LookupMember(match LookupMatch) Rule {
	key := orDefault(match.Key, "id")
	parentKey := orDefault(match.ParentKey, match.Parent)
	return RuleFunc(func(in Input) Errors {
		value := strings.TrimSpace(textValue(in.Values[match.Field]))
		if value == "" || !in.LookupReady(match.Lookup) {
			return nil
		}
		for _, item := range in.Lookups[match.Lookup] {
			if textValue(item[key]) != value {
				continue
			}
			if match.Parent == "" {
				return nil
			}
			parent := strings.TrimSpace(textValue(in.Values[match.Parent]))
			if parent == "" || textValue(item[parentKey]) == parent {
				return nil
			}
			break
		}
		fallback := fmt.Sprintf("%s is not a valid option", in.label(match.Field))
		return Errors{match.Field: orDefault(match.Message, fallback)}
	})
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}
