package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-storeform/pkg/model"
)

const (
	extensionKind      = "x-storeform-kind"
	extensionDependsOn = "x-storeform-depends-on"
	extensionLookup    = "x-storeform-lookup"
	extensionOrder     = "x-storeform-order"
	extensionEntity    = "x-storeform-entity"
	extensionGetByID   = "x-storeform-getbyid"
	extensionRedirect  = "x-storeform-redirect"
	extensionGate      = "x-storeform-gate"
)

// ErrOperationNotFound is returned when the OpenAPI document has no operation
// with the requested id.
var ErrOperationNotFound = errors.New("registry: openapi operation not found")

// FromOpenAPI derives an entity form from the request body of an OpenAPI 3
// operation. Multipart bodies are preferred, then JSON. Binary strings become
// file fields, date/date-time strings datetime fields, enums selects, and
// enum arrays multiselects; x-storeform-* extensions override the inference.
// Field order follows x-storeform-order, then name.
func FromOpenAPI(ctx context.Context, raw []byte, operationID string) (model.Form, error) {
	if err := ctx.Err(); err != nil {
		return model.Form{}, err
	}
	if len(raw) == 0 {
		return model.Form{}, errors.New("registry: openapi document is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return model.Form{}, fmt.Errorf("registry: load openapi document: %w", err)
	}

	path, op := findOperation(doc, operationID)
	if op == nil {
		return model.Form{}, fmt.Errorf("%w: %q", ErrOperationNotFound, operationID)
	}

	schema := requestSchema(op.RequestBody)
	if schema == nil {
		return model.Form{}, fmt.Errorf("registry: operation %q has no request body schema", operationID)
	}

	entity := extensionString(op.Extensions, extensionEntity)
	if entity == "" {
		entity = operationID
	}
	form := model.Form{
		Entity: entity,
		Title:  strings.TrimSpace(op.Summary),
		Endpoints: model.Endpoints{
			Upsert:   path,
			GetByID:  extensionString(op.Extensions, extensionGetByID),
			Redirect: extensionString(op.Extensions, extensionRedirect),
		},
		Fields: convertProperties(schema),
	}
	return normalizeForm(form, "openapi:"+operationID)
}

// LoadOpenAPI registers one form per operation id on a new registry.
func LoadOpenAPI(ctx context.Context, raw []byte, operationIDs ...string) (*Registry, error) {
	r := &Registry{forms: make(map[string]model.Form, len(operationIDs))}
	for _, id := range operationIDs {
		form, err := FromOpenAPI(ctx, raw, id)
		if err != nil {
			return nil, err
		}
		if err := r.register(form, "openapi:"+id); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func findOperation(doc *openapi3.T, operationID string) (string, *openapi3.Operation) {
	if doc == nil || doc.Paths == nil {
		return "", nil
	}
	for path, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for _, op := range []*openapi3.Operation{item.Post, item.Put, item.Patch} {
			if op != nil && op.OperationID == operationID {
				return path, op
			}
		}
	}
	return "", nil
}

func requestSchema(body *openapi3.RequestBodyRef) *openapi3.Schema {
	if body == nil || body.Value == nil {
		return nil
	}
	for _, mediaType := range []string{"multipart/form-data", "application/json", "application/x-www-form-urlencoded"} {
		if mt, ok := body.Value.Content[mediaType]; ok && mt.Schema != nil && mt.Schema.Value != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

type orderedField struct {
	order int
	field model.Field
}

func convertProperties(schema *openapi3.Schema) []model.Field {
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	ordered := make([]orderedField, 0, len(schema.Properties))
	for name, ref := range schema.Properties {
		if ref == nil || ref.Value == nil {
			continue
		}
		prop := ref.Value
		field := model.Field{
			Name:      name,
			Kind:      inferKind(prop),
			Label:     strings.TrimSpace(prop.Title),
			Required:  required[name],
			Default:   prop.Default,
			DependsOn: extensionString(prop.Extensions, extensionDependsOn),
			Lookup:    extensionString(prop.Extensions, extensionLookup),
			Gate:      extensionString(prop.Extensions, extensionGate),
		}
		field.Options = enumOptions(prop)
		field.Validations = validationsFor(prop)

		order := len(schema.Properties) + 1
		if raw, ok := prop.Extensions[extensionOrder]; ok {
			if n, ok := toInt(raw); ok {
				order = n
			}
		}
		ordered = append(ordered, orderedField{order: order, field: field})
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].order != ordered[j].order {
			return ordered[i].order < ordered[j].order
		}
		return ordered[i].field.Name < ordered[j].field.Name
	})

	fields := make([]model.Field, 0, len(ordered))
	for _, entry := range ordered {
		fields = append(fields, entry.field)
	}
	return fields
}

func inferKind(prop *openapi3.Schema) model.FieldKind {
	if override := extensionString(prop.Extensions, extensionKind); override != "" {
		return model.FieldKind(override)
	}
	switch {
	case prop.Type.Is(openapi3.TypeString):
		switch prop.Format {
		case "binary", "byte":
			return model.KindFile
		case "date", "date-time", "time":
			return model.KindDateTime
		case "html":
			return model.KindRichText
		}
		if len(prop.Enum) > 0 {
			return model.KindSelect
		}
		return model.KindText
	case prop.Type.Is(openapi3.TypeInteger), prop.Type.Is(openapi3.TypeNumber):
		return model.KindNumber
	case prop.Type.Is(openapi3.TypeArray):
		if prop.Items != nil && prop.Items.Value != nil {
			if prop.Items.Value.Format == "binary" {
				return model.KindFile
			}
			if len(prop.Items.Value.Enum) > 0 {
				return model.KindMultiSelect
			}
		}
		return model.KindMultiSelect
	case prop.Type.Is(openapi3.TypeBoolean):
		return model.KindSelect
	default:
		return model.KindText
	}
}

func enumOptions(prop *openapi3.Schema) []model.Option {
	values := prop.Enum
	if len(values) == 0 && prop.Items != nil && prop.Items.Value != nil {
		values = prop.Items.Value.Enum
	}
	if len(values) == 0 && prop.Type.Is(openapi3.TypeBoolean) {
		values = []any{"1", "0"}
	}
	if len(values) == 0 {
		return nil
	}
	out := make([]model.Option, 0, len(values))
	for _, value := range values {
		text := fmt.Sprint(value)
		out = append(out, model.Option{Label: text, Value: text})
	}
	return out
}

func validationsFor(prop *openapi3.Schema) []model.ValidationRule {
	var rules []model.ValidationRule
	add := func(kind, key, value string) {
		rules = append(rules, model.ValidationRule{Kind: kind, Params: map[string]string{key: value}})
	}
	if prop.Min != nil {
		add(model.ValidationRuleMin, "value", strconv.FormatFloat(*prop.Min, 'f', -1, 64))
	}
	if prop.Max != nil {
		add(model.ValidationRuleMax, "value", strconv.FormatFloat(*prop.Max, 'f', -1, 64))
	}
	if prop.MinLength > 0 {
		add(model.ValidationRuleMinLength, "value", strconv.FormatUint(prop.MinLength, 10))
	}
	if prop.MaxLength != nil {
		add(model.ValidationRuleMaxLength, "value", strconv.FormatUint(*prop.MaxLength, 10))
	}
	if prop.Pattern != "" {
		add(model.ValidationRulePattern, "pattern", prop.Pattern)
	}
	return rules
}

func extensionString(ext map[string]any, key string) string {
	raw, ok := ext[key]
	if !ok {
		return ""
	}
	text, ok := raw.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(text)
}

func toInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	default:
		return 0, false
	}
}
