package validation

import (
	"strings"

	"github.com/goliatone/go-storeform/pkg/model"
	"github.com/goliatone/go-storeform/pkg/upload"
)

// Known is a message the server may echo back that belongs to a specific
// field. Image marks upload failures, which roll the file field back.
type Known struct {
	Field   string
	Message string
	Image   bool
}

// Catalog lists the field-level messages of a form: upload gate rejections
// and missing-image messages for every file field, and the ordering message
// of every date range.
func Catalog(form model.Form) []Known {
	var out []Known
	requiredMessages := map[string]string{}
	for _, rule := range form.Rules {
		if rule.Kind == model.RuleRequiredIfNew && strings.TrimSpace(rule.Message) != "" {
			requiredMessages[rule.Field] = rule.Message
		}
	}

	for _, field := range form.FileFields() {
		gate := upload.GateFor(field.Gate)
		out = append(out,
			Known{Field: field.Name, Message: gate.SizeMessage, Image: true},
			Known{Field: field.Name, Message: gate.TypeMessage, Image: true},
			Known{Field: field.Name, Message: orDefault(requiredMessages[field.Name], requiredMessage(field.DisplayLabel())), Image: true},
		)
	}

	in := Input{Form: form}
	for _, rule := range form.Rules {
		if rule.Kind != model.RuleDateRange {
			continue
		}
		fallback := in.label(rule.End) + " must be after " + in.label(rule.Start)
		out = append(out, Known{Field: rule.End, Message: orDefault(rule.Message, fallback)})
	}
	return out
}

// Match finds the first catalog entry for a server message. Comparison
// ignores case and surrounding whitespace along with trailing punctuation.
func Match(catalog []Known, message string) (Known, bool) {
	matches := MatchAll(catalog, message)
	if len(matches) == 0 {
		return Known{}, false
	}
	return matches[0], true
}

// MatchAll returns every catalog entry for a server message in catalog
// order. File fields sharing a gate share its messages, so an upload
// rejection can match several fields.
func MatchAll(catalog []Known, message string) []Known {
	needle := normalizeMessage(message)
	if needle == "" {
		return nil
	}
	var out []Known
	for _, known := range catalog {
		if normalizeMessage(known.Message) == needle {
			out = append(out, known)
		}
	}
	return out
}

func normalizeMessage(message string) string {
	message = strings.TrimSpace(strings.ToLower(message))
	return strings.TrimRight(message, ".!")
}
