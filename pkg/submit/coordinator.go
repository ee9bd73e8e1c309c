// Package submit holds the Submission Coordinator and its record loader. The
// coordinator turns a form's state into one upsert call: it re-validates,
// encodes, flips the submitting flag, reports the outcome through the toast
// sink and maps server rejections back onto fields.
package submit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-storeform/pkg/client"
	"github.com/goliatone/go-storeform/pkg/model"
	"github.com/goliatone/go-storeform/pkg/navigate"
	"github.com/goliatone/go-storeform/pkg/notify"
	"github.com/goliatone/go-storeform/pkg/payload"
	"github.com/goliatone/go-storeform/pkg/state"
	"github.com/goliatone/go-storeform/pkg/upload"
	"github.com/goliatone/go-storeform/pkg/validation"
)

// ErrInFlight is returned when Submit is called while a submission is running.
var ErrInFlight = errors.New("submit: submission already in flight")

// DefaultRedirectDelay leaves the success toast readable before navigating.
const DefaultRedirectDelay = 2 * time.Second

// Messages shown when the server gives nothing better.
const (
	MessageTransport = "Unable to reach the server, please try again"
	MessageFailed    = "Something went wrong, please try again"
)

// API is the part of the backend client the coordinator and loader use.
type API interface {
	GetByID(ctx context.Context, path, id string) (map[string]any, error)
	List(ctx context.Context, path string) ([]map[string]any, error)
	Upsert(ctx context.Context, path string, p payload.Payload) (client.Response, error)
}

// Phase is the coordinator's position in the submit cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseSuccess
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSuccess:
		return "success"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Outcome summarises how a Submit call ended.
type Outcome int

const (
	// OutcomeSaved means the server accepted the payload.
	OutcomeSaved Outcome = iota + 1
	// OutcomeInvalid means client validation blocked the call.
	OutcomeInvalid
	// OutcomeRejected means the server answered with an error status.
	OutcomeRejected
	// OutcomeFailed means the request never produced a server answer.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSaved:
		return "saved"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result describes a finished submission. Err carries the underlying
// client error for rejected and failed outcomes.
type Result struct {
	Outcome  Outcome
	Errors   validation.Errors
	Message  string
	Response client.Response
	Err      error
}

// Coordinator submits one mounted form.
type Coordinator struct {
	form      model.Form
	store     *state.Store
	api       API
	validator validation.Validator
	catalog   []validation.Known
	sink      notify.Sink
	nav       navigate.Navigator
	templates *notify.Templates
	logger    *zap.Logger
	clock     func() time.Time
	delay     time.Duration

	inFlight atomic.Bool

	mu    sync.Mutex
	phase Phase
	done  chan struct{}
	wg    sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithNotifier sets the toast sink.
func WithNotifier(sink notify.Sink) Option {
	return func(c *Coordinator) {
		if sink != nil {
			c.sink = sink
		}
	}
}

// WithNavigator sets the navigator used for the post-save redirect.
func WithNavigator(nav navigate.Navigator) Option {
	return func(c *Coordinator) {
		if nav != nil {
			c.nav = nav
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source used by date rules.
func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithRedirectDelay overrides the delay before navigating after a save. A
// zero or negative delay keeps the user on the screen.
func WithRedirectDelay(delay time.Duration) Option {
	return func(c *Coordinator) {
		c.delay = delay
	}
}

// WithTemplates shares a success message template cache.
func WithTemplates(t *notify.Templates) Option {
	return func(c *Coordinator) {
		if t != nil {
			c.templates = t
		}
	}
}

// WithValidator replaces the validator derived from the form.
func WithValidator(v validation.Validator) Option {
	return func(c *Coordinator) {
		c.validator = v
	}
}

// New wires a coordinator for store, which must have been built from form.
func New(form model.Form, store *state.Store, api API, opts ...Option) (*Coordinator, error) {
	if store == nil {
		return nil, errors.New("submit: store is required")
	}
	if api == nil {
		return nil, errors.New("submit: api is required")
	}
	validator, err := validation.FromForm(form)
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	c := &Coordinator{
		form:      form,
		store:     store,
		api:       api,
		validator: validator,
		catalog:   validation.Catalog(form),
		sink:      notify.NewLogSink(nil),
		nav:       navigate.Func(func(string, navigate.State) {}),
		templates: notify.NewTemplates(),
		logger:    zap.NewNop(),
		clock:     time.Now,
		delay:     DefaultRedirectDelay,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.logger = c.logger.With(zap.String("entity", form.Entity))
	return c, nil
}

// Store returns the form state the coordinator submits.
func (c *Coordinator) Store() *state.Store {
	return c.store
}

// Phase reports the current phase. A failed submission settles back on idle.
func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Coordinator) setPhase(p Phase) {
	c.mu.Lock()
	prev := c.phase
	c.phase = p
	c.mu.Unlock()
	if prev != p {
		c.logger.Debug("submit phase", zap.Stringer("from", prev), zap.Stringer("to", p))
	}
}

// Input snapshots the store for the validator.
func (c *Coordinator) Input() validation.Input {
	lookups := make(map[string][]map[string]any, len(c.form.Lookups))
	for name := range c.form.Lookups {
		if items, ok := c.store.LookupItems(name); ok {
			lookups[name] = items
		}
	}
	return validation.Input{
		Form:    c.form,
		Values:  c.store.Values(),
		ID:      c.store.ID(),
		Now:     c.clock(),
		Extras:  c.store.Extras(),
		Lookups: lookups,
	}
}

// Validate runs every rule without touching the store.
func (c *Coordinator) Validate() validation.Errors {
	return c.validator.Validate(c.Input())
}

// Touch re-validates the named fields after a blur or change, setting or
// clearing only their messages.
func (c *Coordinator) Touch(names ...string) validation.Errors {
	errs := c.validator.ValidateFields(c.Input(), names...)
	for _, name := range names {
		_ = c.store.SetError(name, errs[name])
	}
	return errs
}

// Submit validates and sends the form. Only ErrInFlight, state.ErrUnmounted
// and payload encoding failures are returned as errors; every server or
// transport outcome is reported through Result and the toast sink.
func (c *Coordinator) Submit(ctx context.Context) (Result, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return Result{}, ErrInFlight
	}
	defer c.inFlight.Store(false)

	// Edits are locked before validation so the values checked are the
	// values sent.
	if !c.store.BeginSubmit() {
		if !c.store.Mounted() {
			return Result{}, state.ErrUnmounted
		}
		return Result{}, ErrInFlight
	}
	defer c.store.EndSubmit()

	if errs := c.Validate(); len(errs) > 0 {
		if err := c.store.ReplaceErrors(errs); err != nil {
			return Result{}, err
		}
		c.setPhase(PhaseIdle)
		c.logger.Debug("submit blocked by validation", zap.Strings("fields", errs.Fields()))
		return Result{Outcome: OutcomeInvalid, Errors: errs}, nil
	}
	if err := c.store.ReplaceErrors(nil); err != nil {
		return Result{}, err
	}

	values := c.store.Values()
	body, err := payload.Build(c.form, values, c.store.ID())
	if err != nil {
		return Result{}, err
	}
	c.setPhase(PhaseSubmitting)

	c.logger.Info("submitting form",
		zap.String("endpoint", c.form.Endpoints.Upsert),
		zap.Bool("multipart", body.Multipart()),
		zap.Int("bytes", body.Len()),
		zap.Bool("update", c.store.ID() != ""),
	)
	resp, err := c.api.Upsert(ctx, c.form.Endpoints.Upsert, body)
	c.store.EndSubmit()
	if err != nil {
		return c.fail(err), nil
	}
	return c.succeed(resp, values), nil
}

func (c *Coordinator) succeed(resp client.Response, values map[string]any) Result {
	c.setPhase(PhaseSuccess)
	// Save-and-stay screens keep editing the record they just created.
	if raw, ok := resp.Data[c.form.IdentifierKey()]; ok && raw != nil && c.store.ID() == "" {
		_ = c.store.SetID(fmt.Sprint(raw))
	}

	message := c.successMessage(values)
	c.sink.RemoveAll()
	c.sink.Success(message)
	c.logger.Info("form saved", zap.Int("status", resp.Status))

	if redirect := c.form.Endpoints.Redirect; redirect != "" && c.delay > 0 {
		c.scheduleRedirect(redirect)
	}
	return Result{Outcome: OutcomeSaved, Message: message, Response: resp}
}

func (c *Coordinator) successMessage(values map[string]any) string {
	data := make(map[string]any, len(values))
	for key, value := range values {
		if _, isFile := value.(upload.FileValue); isFile {
			continue
		}
		data[key] = value
	}
	title := c.form.Title
	if title == "" {
		title = c.form.Entity
	}
	message, err := c.templates.Render(c.form.Message("success", ""), title, data)
	if err != nil {
		c.logger.Warn("success message template failed", zap.Error(err))
		return title + " saved successfully"
	}
	return message
}

func (c *Coordinator) fail(err error) Result {
	c.setPhase(PhaseFailed)
	defer c.setPhase(PhaseIdle)

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		c.logger.Warn("submit transport failure", zap.Error(err))
		c.sink.RemoveAll()
		c.sink.Error(MessageTransport)
		return Result{Outcome: OutcomeFailed, Message: MessageTransport, Err: err}
	}

	c.logger.Warn("submit rejected",
		zap.Int("status", apiErr.Status),
		zap.String("message", apiErr.Message),
	)
	fieldErrs := validation.Errors{}
	for _, known := range c.matchKnown(apiErr.Message) {
		fieldErrs[known.Field] = apiErr.Message
		if known.Image {
			if err := c.store.RestoreFile(known.Field); err != nil {
				c.logger.Debug("file rollback skipped", zap.String("field", known.Field), zap.Error(err))
			}
		}
	}

	mapping := MapErrorPayload(c.form, apiErr.Fields)
	for field, messages := range mapping.Fields {
		if _, exists := fieldErrs[field]; !exists {
			fieldErrs[field] = messages[0]
		}
	}
	for field, message := range fieldErrs {
		if err := c.store.SetError(field, message); err != nil {
			c.logger.Debug("field error dropped", zap.String("field", field), zap.Error(err))
		}
	}

	message := apiErr.Message
	if message == "" && len(mapping.Form) > 0 {
		message = mapping.Form[0]
	}
	if message == "" {
		message = MessageFailed
	}
	c.sink.RemoveAll()
	c.sink.Error(message)
	return Result{Outcome: OutcomeRejected, Errors: fieldErrs, Message: message, Err: err}
}

// matchKnown resolves a server message to the fields it belongs to. When an
// upload message is shared by several file fields, only the fields holding a
// newly selected file are blamed; with none selected the first entry wins.
func (c *Coordinator) matchKnown(message string) []validation.Known {
	matches := validation.MatchAll(c.catalog, message)
	if len(matches) <= 1 {
		return matches
	}
	var replaced []validation.Known
	for _, known := range matches {
		if !known.Image {
			continue
		}
		if value, ok := c.store.File(known.Field); ok && value.State == upload.Replaced {
			replaced = append(replaced, known)
		}
	}
	if len(replaced) > 0 {
		return replaced
	}
	return matches[:1]
}

func (c *Coordinator) scheduleRedirect(path string) {
	timer := time.NewTimer(c.delay)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer timer.Stop()
		select {
		case <-timer.C:
			if !c.store.Mounted() {
				c.logger.Debug("redirect skipped, form unmounted", zap.String("path", path))
				return
			}
			c.nav.GoTo(path, nil)
		case <-c.done:
		}
	}()
}

// Wait blocks until pending redirects have fired or been cancelled.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Close unmounts the store and cancels any pending redirect.
func (c *Coordinator) Close() {
	c.store.Unmount()
	c.mu.Lock()
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	c.mu.Unlock()
	c.wg.Wait()
}
