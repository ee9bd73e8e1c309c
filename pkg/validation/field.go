package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-storeform/pkg/model"
)

type fieldRules struct {
	field    model.Field
	patterns map[int]*regexp.Regexp
}

// FieldRules checks a field's own declaration: requiredness (file fields are
// left to RequiredIfNew), the declared validations, and that number and
// datetime fields parse. Empty optional values pass.
func FieldRules(field model.Field) (Rule, error) {
	rule := fieldRules{field: field, patterns: map[int]*regexp.Regexp{}}
	for idx, v := range field.Validations {
		if v.Kind != model.ValidationRulePattern {
			continue
		}
		re, err := regexp.Compile(v.Params["pattern"])
		if err != nil {
			return nil, fmt.Errorf("validation: field %s pattern: %w", field.Name, err)
		}
		rule.patterns[idx] = re
	}
	return rule, nil
}

func (r fieldRules) Validate(in Input) Errors {
	field := r.field
	if field.IsFile() {
		return nil
	}
	label := field.DisplayLabel()
	value := in.Values[field.Name]

	if isEmpty(value) {
		if field.Required {
			return Errors{field.Name: requiredMessage(label)}
		}
		return nil
	}

	text := strings.TrimSpace(textValue(value))
	switch field.Kind {
	case model.KindNumber:
		if _, err := strconv.ParseFloat(text, 64); err != nil {
			return Errors{field.Name: fmt.Sprintf("%s must be a number", label)}
		}
	case model.KindDateTime:
		if _, err := ParseDateTime(text, in.now()); err != nil {
			return Errors{field.Name: fmt.Sprintf("%s is not a valid date", label)}
		}
	}

	for idx, v := range field.Validations {
		if message := r.check(idx, v, label, value, text); message != "" {
			return Errors{field.Name: message}
		}
	}
	return nil
}

func (r fieldRules) check(idx int, v model.ValidationRule, label string, value any, text string) string {
	custom := strings.TrimSpace(v.Params["message"])
	pick := func(fallback string) string {
		if custom != "" {
			return custom
		}
		return fallback
	}
	threshold := v.Params["value"]

	switch v.Kind {
	case model.ValidationRulePattern:
		if re := r.patterns[idx]; re != nil && !re.MatchString(text) {
			return pick(fmt.Sprintf("%s format is invalid", label))
		}
	case model.ValidationRuleMin, model.ValidationRuleMax:
		number, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return pick(fmt.Sprintf("%s must be a number", label))
		}
		limit, err := strconv.ParseFloat(threshold, 64)
		if err != nil {
			return ""
		}
		if v.Kind == model.ValidationRuleMin && number < limit {
			return pick(fmt.Sprintf("%s must be at least %s", label, threshold))
		}
		if v.Kind == model.ValidationRuleMax && number > limit {
			return pick(fmt.Sprintf("%s must be at most %s", label, threshold))
		}
	case model.ValidationRuleMinLength, model.ValidationRuleMaxLength:
		limit, err := strconv.Atoi(threshold)
		if err != nil {
			return ""
		}
		length := utf8.RuneCountInString(text)
		if list, ok := value.([]string); ok {
			length = len(list)
		}
		if v.Kind == model.ValidationRuleMinLength && length < limit {
			return pick(fmt.Sprintf("%s must be at least %d characters", label, limit))
		}
		if v.Kind == model.ValidationRuleMaxLength && length > limit {
			return pick(fmt.Sprintf("%s must be at most %d characters", label, limit))
		}
	case model.ValidationRuleNonNegative:
		number, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return pick(fmt.Sprintf("%s must be a number", label))
		}
		if number < 0 {
			return pick(fmt.Sprintf("%s cannot be negative", label))
		}
	case model.ValidationRulePercent:
		number, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return pick(fmt.Sprintf("%s must be a number", label))
		}
		if number < 0 || number > 100 {
			return pick(fmt.Sprintf("%s must be between 0 and 100", label))
		}
	}
	return ""
}

func requiredMessage(label string) string {
	return fmt.Sprintf("%s is required", label)
}
