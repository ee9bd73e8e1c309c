package notify

import (
	"fmt"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
)

// DefaultSuccess is used when a form configures no success message.
const DefaultSuccess = "{{ title }} saved successfully"

// Templates renders success messages with pongo2. Compiled templates are
// cached by source.
type Templates struct {
	mu    sync.Mutex
	cache map[string]*pongo2.Template
}

// NewTemplates returns an empty template cache.
func NewTemplates() *Templates {
	return &Templates{cache: make(map[string]*pongo2.Template)}
}

// Render executes source against data. Field values are exposed at the top
// level and under "values"; "title" is always the form title.
func (t *Templates) Render(source, title string, data map[string]any) (string, error) {
	if strings.TrimSpace(source) == "" {
		source = DefaultSuccess
	}
	tpl, err := t.compile(source)
	if err != nil {
		return "", err
	}
	ctx := pongo2.Context{}
	for key, value := range data {
		ctx[key] = value
	}
	ctx["values"] = data
	ctx["title"] = title
	out, err := tpl.Execute(ctx)
	if err != nil {
		return "", fmt.Errorf("notify: render message: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (t *Templates) compile(source string) (*pongo2.Template, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cache == nil {
		t.cache = make(map[string]*pongo2.Template)
	}
	if tpl, ok := t.cache[source]; ok {
		return tpl, nil
	}
	tpl, err := pongo2.FromString(source)
	if err != nil {
		return nil, fmt.Errorf("notify: compile message: %w", err)
	}
	t.cache[source] = tpl
	return tpl, nil
}
