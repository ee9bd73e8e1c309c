package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-storeform/pkg/model"
	"github.com/goliatone/go-storeform/pkg/state"
	"github.com/goliatone/go-storeform/pkg/submit"
	"github.com/goliatone/go-storeform/pkg/upload"
	"github.com/goliatone/go-storeform/pkg/validation"
)

// ClearToken is the file prompt answer that clears a stored file.
const ClearToken = "-"

// maxAttempts bounds re-prompts for a single field whose input fails
// validation; the remaining error is left for the submit round.
const maxAttempts = 3

// Form is the surface the Editor drives. *submit.Coordinator satisfies it.
type Form interface {
	Store() *state.Store
	Touch(names ...string) validation.Errors
	Submit(ctx context.Context) (submit.Result, error)
}

// Editor walks a form field by field, writing answers through the form
// state store, and submits once the user confirms.
type Editor struct {
	form   Form
	driver Driver
	logger *zap.Logger
}

// Option configures an Editor.
type Option func(*Editor)

// WithDriver overrides the prompt driver.
func WithDriver(driver Driver) Option {
	return func(e *Editor) {
		if driver != nil {
			e.driver = driver
		}
	}
}

// WithLogger sets the debug logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Editor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New returns an Editor for form. Without WithDriver it prompts on the
// process terminal.
func New(form Form, opts ...Option) (*Editor, error) {
	if form == nil {
		return nil, errors.New("prompt: form is required")
	}
	e := &Editor{
		form:   form,
		driver: NewSurveyDriver(nil),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e, nil
}

// Edit prompts for every field and submits. Fields rejected by the client
// validator or the server are prompted again until a save succeeds or the
// user declines. Declining the save returns ErrCancelled; declining a retry
// returns the failed Result.
func (e *Editor) Edit(ctx context.Context) (submit.Result, error) {
	if ctx == nil {
		return submit.Result{}, errors.New("prompt: context is required")
	}
	store := e.form.Store()
	form := store.Form()
	pending := form.FieldNames()

	for {
		for _, name := range pending {
			field, ok := form.Field(name)
			if !ok {
				continue
			}
			if err := e.promptField(ctx, store, field); err != nil {
				return submit.Result{}, err
			}
		}

		save, err := e.driver.Confirm(ctx, ConfirmConfig{
			Message: fmt.Sprintf("Save %s?", formTitle(form)),
			Default: true,
		})
		if err != nil {
			return submit.Result{}, err
		}
		if !save {
			return submit.Result{}, ErrCancelled
		}

		res, err := e.form.Submit(ctx)
		if err != nil {
			return res, err
		}
		e.logger.Debug("submit finished",
			zap.String("entity", form.Entity),
			zap.Stringer("outcome", res.Outcome),
		)

		switch res.Outcome {
		case submit.OutcomeSaved:
			return res, nil
		case submit.OutcomeInvalid:
			pending = erroredFields(form, store.Errors())
		default:
			pending = erroredFields(form, store.Errors())
			retry, err := e.driver.Confirm(ctx, ConfirmConfig{Message: "Try again?", Default: true})
			if err != nil {
				return res, err
			}
			if !retry {
				return res, nil
			}
		}
	}
}

func (e *Editor) promptField(ctx context.Context, store *state.Store, field model.Field) error {
	if msg := store.Error(field.Name); msg != "" {
		if err := e.driver.Info(ctx, "✖ "+msg); err != nil {
			return err
		}
	}
	switch field.Kind {
	case model.KindFile:
		return e.promptFile(ctx, store, field)
	case model.KindSelect:
		return e.promptSelect(ctx, store, field)
	case model.KindMultiSelect:
		return e.promptMultiSelect(ctx, store, field)
	case model.KindRichText:
		return e.promptText(ctx, store, field, func(current string) (string, error) {
			return e.driver.TextArea(ctx, TextAreaConfig{
				Message: field.DisplayLabel(),
				Default: current,
				Help:    displayHelp(field),
			})
		})
	default:
		return e.promptText(ctx, store, field, func(current string) (string, error) {
			return e.driver.Input(ctx, InputConfig{
				Message: field.DisplayLabel(),
				Default: current,
				Help:    displayHelp(field),
			})
		})
	}
}

func (e *Editor) promptText(ctx context.Context, store *state.Store, field model.Field, ask func(current string) (string, error)) error {
	for attempt := 1; ; attempt++ {
		raw, err := ask(currentString(store, field.Name))
		if err != nil {
			return err
		}
		msg, err := e.set(store, field.Name, strings.TrimSpace(raw))
		if err != nil {
			return err
		}
		if msg == "" || attempt >= maxAttempts {
			return nil
		}
		if err := e.driver.Info(ctx, "✖ "+msg); err != nil {
			return err
		}
	}
}

func (e *Editor) promptSelect(ctx context.Context, store *state.Store, field model.Field) error {
	options, ok := e.options(ctx, store, field)
	if !ok {
		return nil
	}
	current := currentString(store, field.Name)
	idx, err := e.driver.Select(ctx, SelectConfig{
		Message:      field.DisplayLabel(),
		Options:      labels(options),
		DefaultIndex: indexOfValue(options, current),
		Help:         displayHelp(field),
	})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(options) {
		return nil
	}
	return e.report(ctx, store, field.Name, options[idx].Value)
}

func (e *Editor) promptMultiSelect(ctx context.Context, store *state.Store, field model.Field) error {
	options, ok := e.options(ctx, store, field)
	if !ok {
		return nil
	}
	var current []string
	if raw, ok := store.Value(field.Name); ok {
		current, _ = raw.([]string)
	}
	indices, err := e.driver.MultiSelect(ctx, SelectConfig{
		Message:  field.DisplayLabel(),
		Options:  labels(options),
		Defaults: indicesOfValues(options, current),
		Help:     displayHelp(field),
	})
	if err != nil {
		return err
	}
	return e.report(ctx, store, field.Name, valuesFromIndices(options, indices))
}

// options resolves the choices for a select. Lookup-backed selects whose
// list has not arrived, or is empty, are skipped with a notice.
func (e *Editor) options(ctx context.Context, store *state.Store, field model.Field) ([]model.Option, bool) {
	options, ready := store.Options(field.Name)
	switch {
	case !ready:
		_ = e.driver.Info(ctx, fmt.Sprintf("%s: options are not available (%s)", field.DisplayLabel(), store.LookupStatus(field.Lookup)))
		return nil, false
	case len(options) == 0:
		_ = e.driver.Info(ctx, fmt.Sprintf("%s: no options to choose from", field.DisplayLabel()))
		return nil, false
	}
	return options, true
}

func (e *Editor) promptFile(ctx context.Context, store *state.Store, field model.Field) error {
	current, _ := store.File(field.Name)
	raw, err := e.driver.Input(ctx, InputConfig{
		Message: fmt.Sprintf("%s (path, %q to clear, blank to keep)", field.DisplayLabel(), ClearToken),
		Help:    describeFile(current),
	})
	if err != nil {
		return err
	}
	path := strings.TrimSpace(raw)
	switch path {
	case "":
		return nil
	case ClearToken:
		return store.ClearFile(field.Name)
	}

	file, err := upload.Open(path)
	if err != nil {
		return e.driver.Info(ctx, "✖ "+err.Error())
	}
	if err := store.SetFile(field.Name, file); err != nil {
		var gateErr *upload.GateError
		if errors.As(err, &gateErr) {
			return e.driver.Info(ctx, "✖ "+gateErr.Message)
		}
		return err
	}
	e.logger.Debug("file selected",
		zap.String("field", field.Name),
		zap.String("name", file.Name),
		zap.Int64("size", file.Size),
	)
	return nil
}

// set writes a value and re-validates the field, returning its message.
func (e *Editor) set(store *state.Store, name string, value any) (string, error) {
	reset, err := store.SetValue(name, value)
	if err != nil {
		return "", err
	}
	if len(reset) > 0 {
		e.logger.Debug("dependent fields reset", zap.String("field", name), zap.Strings("reset", reset))
	}
	return e.form.Touch(name)[name], nil
}

func (e *Editor) report(ctx context.Context, store *state.Store, name string, value any) error {
	msg, err := e.set(store, name, value)
	if err != nil || msg == "" {
		return err
	}
	return e.driver.Info(ctx, "✖ "+msg)
}

func erroredFields(form model.Form, errs map[string]string) []string {
	var out []string
	for _, name := range form.FieldNames() {
		if _, ok := errs[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

func formTitle(form model.Form) string {
	if form.Title != "" {
		return form.Title
	}
	return form.Entity
}

func displayHelp(field model.Field) string {
	return field.Metadata["help"]
}

func currentString(store *state.Store, name string) string {
	raw, ok := store.Value(name)
	if !ok || raw == nil {
		return ""
	}
	if s, ok := raw.(string); ok {
		return s
	}
	return fmt.Sprint(raw)
}

func describeFile(v upload.FileValue) string {
	switch {
	case v.State == upload.Replaced && v.File != nil:
		return fmt.Sprintf("selected: %s (%d bytes)", v.File.Name, v.File.Size)
	case v.State == upload.Cleared:
		return "cleared"
	case v.Existing != "":
		return "current: " + v.Existing
	default:
		return "no file"
	}
}

func labels(opts []model.Option) []string {
	out := make([]string, 0, len(opts))
	for _, opt := range opts {
		label := opt.Label
		if label == "" {
			label = opt.Value
		}
		out = append(out, label)
	}
	return out
}

func indexOfValue(opts []model.Option, value string) int {
	for i, opt := range opts {
		if opt.Value == value {
			return i
		}
	}
	return -1
}

func indicesOfValues(opts []model.Option, values []string) []int {
	var out []int
	for _, value := range values {
		if idx := indexOfValue(opts, value); idx >= 0 {
			out = append(out, idx)
		}
	}
	return out
}

func valuesFromIndices(opts []model.Option, indices []int) []string {
	out := []string{}
	for _, idx := range indices {
		if idx >= 0 && idx < len(opts) {
			out = append(out, opts[idx].Value)
		}
	}
	return out
}
