package testsupport

import (
	"context"
	"testing"

	"github.com/goliatone/go-storeform/pkg/model"
	"github.com/goliatone/go-storeform/pkg/registry"
)

// MustForm returns an embedded entity form. Testing helpers fail the test on
// error to keep contract tests concise.
func MustForm(t testing.TB, entity string) model.Form {
	t.Helper()

	reg, err := registry.Default()
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	form, ok := reg.Form(entity)
	if !ok {
		t.Fatalf("unknown entity %q", entity)
	}
	return form
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
