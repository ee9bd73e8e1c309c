// Package notify is the toast sink the submission coordinator reports to.
// Only one notification is visible at a time: callers clear the sink with
// RemoveAll before showing the next message.
package notify

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Sink receives submission outcomes.
type Sink interface {
	Success(message string)
	Error(message string)
	RemoveAll()
}

// Level distinguishes success and error notifications.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is one message shown to the user.
type Notification struct {
	Level   Level
	Message string
}

// Event is a recorded sink call. RemoveAll calls are recorded with an empty
// Level so ordering can be asserted.
type Event struct {
	Level   Level
	Message string
	Clear   bool
}

// Recorder keeps the visible notifications and the full call history.
type Recorder struct {
	mu      sync.Mutex
	visible []Notification
	events  []Event
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Success(message string) {
	r.push(LevelSuccess, message)
}

func (r *Recorder) Error(message string) {
	r.push(LevelError, message)
}

func (r *Recorder) RemoveAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visible = nil
	r.events = append(r.events, Event{Clear: true})
}

func (r *Recorder) push(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visible = append(r.visible, Notification{Level: level, Message: message})
	r.events = append(r.events, Event{Level: level, Message: message})
}

// Visible returns the notifications currently on screen.
func (r *Recorder) Visible() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.visible...)
}

// Events returns every call in order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// LogSink writes notifications to a zap logger.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wraps logger; nil falls back to a no-op logger.
func NewLogSink(logger *zap.Logger) LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return LogSink{logger: logger}
}

func (s LogSink) Success(message string) {
	s.logger.Info("notification", zap.String("level", string(LevelSuccess)), zap.String("message", message))
}

func (s LogSink) Error(message string) {
	s.logger.Warn("notification", zap.String("level", string(LevelError)), zap.String("message", message))
}

func (s LogSink) RemoveAll() {}

// Writer prints notifications to a terminal.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriter returns a sink printing to out.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

func (w *Writer) Success(message string) {
	w.print("✔", message)
}

func (w *Writer) Error(message string) {
	w.print("✖", message)
}

func (w *Writer) RemoveAll() {}

func (w *Writer) print(mark, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "%s %s\n", mark, message)
}

// Multi fans calls out to several sinks.
type Multi []Sink

func (m Multi) Success(message string) {
	for _, sink := range m {
		sink.Success(message)
	}
}

func (m Multi) Error(message string) {
	for _, sink := range m {
		sink.Error(message)
	}
}

func (m Multi) RemoveAll() {
	for _, sink := range m {
		sink.RemoveAll()
	}
}
