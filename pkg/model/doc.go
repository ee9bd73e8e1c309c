// Package model defines the typed descriptors shared by every admin screen: the
// per-entity Form, its ordered Fields, and the cross-field Rules evaluated
// before submission. Descriptors are static; a Form is built once (from the
// registry) and never mutated while a screen is mounted. Field values live in
// the state package, not here.
//
// Field kinds form a closed set (text, number, select, multiselect, file,
// datetime, richtext). Validation rules reuse canonical identifiers
// (min/max, minLength/maxLength, pattern) with string parameters so schemas
// stay deterministic when serialised, plus the dashboard-specific
// nonNegative and percent bounds.
package model
