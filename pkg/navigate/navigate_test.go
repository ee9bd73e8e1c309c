package navigate_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-storeform/pkg/navigate"
)

func TestRecorder(t *testing.T) {
	rec := navigate.NewRecorder(2)
	rec.GoTo("/coupons", nil)
	rec.GoTo("/coupon/edit", navigate.EditState("7"))

	want := []navigate.Visit{
		{Path: "/coupons"},
		{Path: "/coupon/edit", State: navigate.State{"id": "7"}},
	}
	if diff := cmp.Diff(want, rec.All()); diff != "" {
		t.Fatalf("visits mismatch (-want +got):\n%s", diff)
	}
	first := <-rec.Visits()
	if first.Path != "/coupons" {
		t.Fatalf("unexpected first visit %+v", first)
	}
}

func TestFuncAndIDFrom(t *testing.T) {
	var got string
	nav := navigate.Func(func(_ string, state navigate.State) {
		got = navigate.IDFrom(state)
	})
	nav.GoTo("/banner/edit", navigate.EditState("12"))
	if got != "12" {
		t.Fatalf("expected id 12, got %q", got)
	}
	if navigate.IDFrom(nil) != "" {
		t.Fatalf("expected empty id for nil state")
	}
}
