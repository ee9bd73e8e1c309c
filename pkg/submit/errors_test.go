package submit_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-storeform/pkg/submit"
	"github.com/goliatone/go-storeform/pkg/testsupport"
)

func TestMapErrorPayload(t *testing.T) {
	form := testsupport.MustForm(t, "coupon")
	got := submit.MapErrorPayload(form, map[string][]string{
		"coupon_title":      {"Title taken", " Title taken "},
		"/data/coupon_code": {"Code exists"},
		"body[0].end_date":  {"End date invalid"},
		"non_field_errors":  {"Try again later"},
		"mystery":           {"Unknown problem"},
		"coupon_val":        {"  "},
	})
	want := submit.ErrorMapping{
		Fields: map[string][]string{
			"coupon_title": {"Title taken"},
			"coupon_code":  {"Code exists"},
			"end_date":     {"End date invalid"},
		},
	}
	if diff := cmp.Diff(want.Fields, got.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if len(got.Form) != 2 {
		t.Fatalf("expected two form-level messages, got %v", got.Form)
	}
}
