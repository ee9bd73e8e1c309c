package model

import "strings"

// FieldKind is the closed set of input kinds a dashboard form can declare.
type FieldKind string

const (
	KindText        FieldKind = "text"
	KindNumber      FieldKind = "number"
	KindSelect      FieldKind = "select"
	KindMultiSelect FieldKind = "multiselect"
	KindFile        FieldKind = "file"
	KindDateTime    FieldKind = "datetime"
	KindRichText    FieldKind = "richtext"
)

// Valid reports whether the kind belongs to the supported set.
func (k FieldKind) Valid() bool {
	switch k {
	case KindText, KindNumber, KindSelect, KindMultiSelect, KindFile, KindDateTime, KindRichText:
		return true
	default:
		return false
	}
}

const (
	ValidationRuleMin         = "min"
	ValidationRuleMax         = "max"
	ValidationRuleMinLength   = "minLength"
	ValidationRuleMaxLength   = "maxLength"
	ValidationRulePattern     = "pattern"
	ValidationRuleNonNegative = "nonNegative"
	ValidationRulePercent     = "percent"
)

// ValidationRule represents a single-field constraint. Numeric bounds and
// length limits encode their threshold in Params["value"]; pattern rules keep
// the expression in Params["pattern"]. Params["message"] overrides the default
// error text.
type ValidationRule struct {
	Kind   string            `json:"kind" yaml:"kind"`
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

// Option is a static choice for select and multiselect fields.
type Option struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Gate names select which upload gate applies to a file field.
const (
	GateImage    = "image"
	GateUploader = "uploader"
)

// Field models a single input inside an entity form.
type Field struct {
	Name        string            `json:"name" yaml:"name"`
	Kind        FieldKind         `json:"kind" yaml:"kind"`
	Label       string            `json:"label,omitempty" yaml:"label,omitempty"`
	Required    bool              `json:"required,omitempty" yaml:"required,omitempty"`
	Default     any               `json:"default,omitempty" yaml:"default,omitempty"`
	DependsOn   string            `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
	Options     []Option          `json:"options,omitempty" yaml:"options,omitempty"`
	Lookup      string            `json:"lookup,omitempty" yaml:"lookup,omitempty"`
	Gate        string            `json:"gate,omitempty" yaml:"gate,omitempty"`
	Validations []ValidationRule  `json:"validations,omitempty" yaml:"validations,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// IsFile reports whether the field carries an upload.
func (f Field) IsFile() bool {
	return f.Kind == KindFile
}

// DisplayLabel falls back to the field name when no label is configured.
func (f Field) DisplayLabel() string {
	if label := strings.TrimSpace(f.Label); label != "" {
		return label
	}
	return f.Name
}

// Cross-field rule kinds.
const (
	RuleRequiredIfNew = "requiredIfNew"
	RuleDateRange     = "dateRange"
	RuleFutureEnd     = "futureEnd"
	RuleRequiredWhen  = "requiredWhen"
	RuleLookupMember  = "lookupMember"
)

// Rule declares a validation rule spanning more than one field (or the form
// identifier, or the clock).
//
//   - requiredIfNew: Field must hold a file when the form has no identifier.
//   - dateRange: when Start and End are both set, End must be after Start.
//   - futureEnd: a populated Field must be after the current time.
//   - requiredWhen: Field is required while the When expression holds.
//   - lookupMember: Field's value must match Key in the Lookup list; with
//     Parent set, the matched record's ParentKey must equal Parent's value.
type Rule struct {
	Kind      string `json:"kind" yaml:"kind"`
	Field     string `json:"field,omitempty" yaml:"field,omitempty"`
	Start     string `json:"start,omitempty" yaml:"start,omitempty"`
	End       string `json:"end,omitempty" yaml:"end,omitempty"`
	When      string `json:"when,omitempty" yaml:"when,omitempty"`
	Lookup    string `json:"lookup,omitempty" yaml:"lookup,omitempty"`
	Key       string `json:"key,omitempty" yaml:"key,omitempty"`
	Parent    string `json:"parent,omitempty" yaml:"parent,omitempty"`
	ParentKey string `json:"parentKey,omitempty" yaml:"parentKey,omitempty"`
	Message   string `json:"message,omitempty" yaml:"message,omitempty"`
}

// EmptyPolicy controls how nil or empty optional values travel to an endpoint.
type EmptyPolicy string

const (
	// EmptyOmit drops empty optional values from the payload.
	EmptyOmit EmptyPolicy = "omit"
	// EmptyString sends empty optional values as "".
	EmptyString EmptyPolicy = "empty"
)

// Endpoints lists the backend paths an entity form talks to. GetByID and
// Upsert are relative to the API base URL; Redirect is the list screen the
// dashboard navigates to after a successful save.
type Endpoints struct {
	GetByID  string `json:"getById,omitempty" yaml:"getById,omitempty"`
	Upsert   string `json:"upsert" yaml:"upsert"`
	List     string `json:"list,omitempty" yaml:"list,omitempty"`
	Redirect string `json:"redirect,omitempty" yaml:"redirect,omitempty"`
}

// Form is the static description of one entity's edit screen.
type Form struct {
	Entity      string            `json:"entity" yaml:"entity"`
	Title       string            `json:"title,omitempty" yaml:"title,omitempty"`
	IDField     string            `json:"idField,omitempty" yaml:"idField,omitempty"`
	Endpoints   Endpoints         `json:"endpoints" yaml:"endpoints"`
	Fields      []Field           `json:"fields" yaml:"fields"`
	Rules       []Rule            `json:"rules,omitempty" yaml:"rules,omitempty"`
	Lookups     map[string]string `json:"lookups,omitempty" yaml:"lookups,omitempty"`
	EmptyPolicy EmptyPolicy       `json:"emptyPolicy,omitempty" yaml:"emptyPolicy,omitempty"`
	Messages    map[string]string `json:"messages,omitempty" yaml:"messages,omitempty"`
}

// DefaultIDField is the payload key that distinguishes update from create.
const DefaultIDField = "id"

// IdentifierKey returns the payload key carrying the record identifier.
func (f Form) IdentifierKey() string {
	if key := strings.TrimSpace(f.IDField); key != "" {
		return key
	}
	return DefaultIDField
}

// Field returns the declared field with the given name.
func (f Form) Field(name string) (Field, bool) {
	for _, field := range f.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// FieldNames lists field names in declaration order.
func (f Form) FieldNames() []string {
	names := make([]string, 0, len(f.Fields))
	for _, field := range f.Fields {
		names = append(names, field.Name)
	}
	return names
}

// HasFileField reports whether any field is file-typed, which forces the
// whole submission to multipart.
func (f Form) HasFileField() bool {
	for _, field := range f.Fields {
		if field.IsFile() {
			return true
		}
	}
	return false
}

// FileFields returns the file-typed fields in declaration order.
func (f Form) FileFields() []Field {
	var out []Field
	for _, field := range f.Fields {
		if field.IsFile() {
			out = append(out, field)
		}
	}
	return out
}

// Dependents returns the fields declaring DependsOn == name.
func (f Form) Dependents(name string) []Field {
	var out []Field
	for _, field := range f.Fields {
		if field.DependsOn != "" && field.DependsOn == name {
			out = append(out, field)
		}
	}
	return out
}

// Message returns the configured message for key, or fallback.
func (f Form) Message(key, fallback string) string {
	if msg := strings.TrimSpace(f.Messages[key]); msg != "" {
		return msg
	}
	return fallback
}
