// Package navigate abstracts screen transitions. Route state carries the
// record id into edit screens.
package navigate

import "sync"

// State is passed alongside a navigation.
type State map[string]any

// Navigator moves the user to another screen.
type Navigator interface {
	GoTo(path string, state State)
}

// Func adapts a function into a Navigator.
type Func func(path string, state State)

// GoTo calls fn.
func (fn Func) GoTo(path string, state State) {
	fn(path, state)
}

// Visit is one recorded navigation.
type Visit struct {
	Path  string
	State State
}

// Recorder records navigations.
type Recorder struct {
	mu     sync.Mutex
	visits []Visit
	notify chan Visit
}

// NewRecorder returns a recorder whose Visits channel buffers up to
// capacity navigations.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = 1
	}
	return &Recorder{notify: make(chan Visit, capacity)}
}

func (r *Recorder) GoTo(path string, state State) {
	visit := Visit{Path: path, State: state}
	r.mu.Lock()
	r.visits = append(r.visits, visit)
	r.mu.Unlock()
	select {
	case r.notify <- visit:
	default:
	}
}

// All returns the recorded navigations in order.
func (r *Recorder) All() []Visit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Visit(nil), r.visits...)
}

// Visits delivers navigations as they happen.
func (r *Recorder) Visits() <-chan Visit {
	return r.notify
}

// EditState builds the route state that opens an edit screen for id.
func EditState(id string) State {
	return State{"id": id}
}

// IDFrom reads the record id from route state.
func IDFrom(state State) string {
	if state == nil {
		return ""
	}
	id, _ := state["id"].(string)
	return id
}
