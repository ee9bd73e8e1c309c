package validation_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-storeform/pkg/condition"
	"github.com/goliatone/go-storeform/pkg/model"
	"github.com/goliatone/go-storeform/pkg/registry"
	"github.com/goliatone/go-storeform/pkg/upload"
	"github.com/goliatone/go-storeform/pkg/validation"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func formFor(t *testing.T, entity string) (model.Form, validation.Validator) {
	t.Helper()
	reg, err := registry.Default()
	require.NoError(t, err)
	form := reg.MustForm(entity)
	v, err := validation.FromForm(form)
	require.NoError(t, err)
	return form, v
}

func couponValues() map[string]any {
	return map[string]any{
		"coupon_title": "SAVE10",
		"coupon_code":  "",
		"status":       "1",
		"min_amt":      "100",
		"coupon_val":   "10",
		"start_date":   "",
		"end_date":     "",
		"coupon_img":   upload.UnchangedFile(""),
	}
}

func TestRequiredIfNew_CreateVersusEdit(t *testing.T) {
	form, v := formFor(t, "coupon")

	created := v.Validate(validation.Input{Form: form, Values: couponValues(), Now: now})
	if diff := cmp.Diff(validation.Errors{"coupon_img": "Coupon Image is required"}, created); diff != "" {
		t.Fatalf("create errors mismatch (-want +got):\n%s", diff)
	}

	edited := v.Validate(validation.Input{Form: form, Values: couponValues(), ID: "7", Now: now})
	if len(edited) != 0 {
		t.Fatalf("expected edit to pass, got %v", edited)
	}

	cleared := couponValues()
	cleared["coupon_img"] = upload.ClearedFile("https://cdn/c.png")
	errs := v.Validate(validation.Input{Form: form, Values: cleared, ID: "7", Now: now})
	if errs["coupon_img"] == "" {
		t.Fatalf("expected cleared image to fail on edit")
	}
}

func TestDateRange_EndMustFollowStart(t *testing.T) {
	form, v := formFor(t, "coupon")
	cases := []struct {
		name  string
		start string
		end   string
		fails bool
	}{
		{name: "equal", start: "2026-04-01T10:00", end: "2026-04-01T10:00", fails: true},
		{name: "before", start: "2026-04-02", end: "2026-04-01", fails: true},
		{name: "after", start: "2026-04-01", end: "2026-04-02", fails: false},
		{name: "mixed layouts", start: "2026-04-01 09:00:00", end: "2026-04-01T09:30:00Z", fails: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			values := couponValues()
			values["start_date"] = tc.start
			values["end_date"] = tc.end
			errs := v.Validate(validation.Input{Form: form, Values: values, ID: "1", Now: now})
			got := errs["end_date"]
			if tc.fails && got != "End date must be after start date" {
				t.Fatalf("expected ordering error, got %q", got)
			}
			if !tc.fails && got != "" {
				t.Fatalf("expected pass, got %q", got)
			}
			if errs["start_date"] != "" {
				t.Fatalf("ordering error must land on the end field, got %v", errs)
			}
		})
	}
}

func TestFutureEnd(t *testing.T) {
	form, v := formFor(t, "coupon")
	values := couponValues()
	values["end_date"] = "2026-02-28"
	errs := v.Validate(validation.Input{Form: form, Values: values, ID: "1", Now: now})
	if errs["end_date"] != "End Date must be in the future" {
		t.Fatalf("unexpected error %q", errs["end_date"])
	}

	values["end_date"] = "2026-03-02"
	errs = v.Validate(validation.Input{Form: form, Values: values, ID: "1", Now: now})
	if len(errs) != 0 {
		t.Fatalf("expected pass, got %v", errs)
	}
}

func TestBannerScheduledWithoutTimes(t *testing.T) {
	form, v := formFor(t, "banner")
	values := map[string]any{
		"title":      "",
		"planType":   "instant",
		"status":     "2",
		"startTime":  "",
		"endTime":    "",
		"banner_img": upload.UnchangedFile(""),
	}
	errs := v.Validate(validation.Input{Form: form, Values: values, ID: "3", Now: now})
	want := validation.Errors{
		"startTime": "Start Time is required",
		"endTime":   "End Time is required",
	}
	if diff := cmp.Diff(want, errs); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	values["status"] = "1"
	if errs := v.Validate(validation.Input{Form: form, Values: values, ID: "3", Now: now}); len(errs) != 0 {
		t.Fatalf("expected active banner without times to pass, got %v", errs)
	}
}

func TestValidate_DoesNotShortCircuit(t *testing.T) {
	form, v := formFor(t, "coupon")
	values := couponValues()
	values["coupon_title"] = ""
	values["coupon_code"] = "lower"
	values["min_amt"] = "-1"
	values["coupon_val"] = "abc"

	errs := v.Validate(validation.Input{Form: form, Values: values, Now: now})
	want := []string{"coupon_code", "coupon_img", "coupon_title", "coupon_val", "min_amt"}
	if diff := cmp.Diff(want, errs.Fields()); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if errs["coupon_code"] != "Coupon Code may only contain capital letters and digits" {
		t.Fatalf("unexpected pattern message %q", errs["coupon_code"])
	}
	if errs["min_amt"] != "Minimum Order Amount cannot be negative" {
		t.Fatalf("unexpected bound message %q", errs["min_amt"])
	}
}

func TestPercentBounds(t *testing.T) {
	rule, err := validation.FieldRules(model.Field{
		Name:        "discount",
		Kind:        model.KindNumber,
		Label:       "Discount",
		Validations: []model.ValidationRule{{Kind: model.ValidationRulePercent}},
	})
	require.NoError(t, err)
	for value, fails := range map[string]bool{"0": false, "100": false, "100.5": true, "-1": true, "": false} {
		errs := rule.Validate(validation.Input{Values: map[string]any{"discount": value}})
		if got := errs["discount"] != ""; got != fails {
			t.Fatalf("discount=%q fails=%v, want %v", value, got, fails)
		}
	}
}

func TestFirstMessagePerFieldWins(t *testing.T) {
	first := validation.RuleFunc(func(validation.Input) validation.Errors {
		return validation.Errors{"a": "first"}
	})
	second := validation.RuleFunc(func(validation.Input) validation.Errors {
		return validation.Errors{"a": "second", "b": "other"}
	})
	errs := validation.New(first, second).Validate(validation.Input{})
	if diff := cmp.Diff(validation.Errors{"a": "first", "b": "other"}, errs); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestLookupMember_DeferredUntilReady(t *testing.T) {
	form, v := formFor(t, "inventory")
	values := map[string]any{
		"category_id": "1",
		"product_id":  "20",
		"unit":        "kg",
		"quantity":    "1",
		"price":       "2",
		"discount":    "",
	}
	in := validation.Input{Form: form, Values: values, ID: "9", Now: now}
	if errs := v.Validate(in); len(errs) != 0 {
		t.Fatalf("expected membership deferred while loading, got %v", errs)
	}

	in.Lookups = map[string][]map[string]any{
		"products": {
			{"id": float64(10), "category_id": float64(1)},
			{"id": float64(20), "category_id": float64(2)},
		},
	}
	errs := v.Validate(in)
	if errs["product_id"] != "Product does not belong to the selected category" {
		t.Fatalf("unexpected errors %v", errs)
	}

	values["product_id"] = "10"
	if errs := v.Validate(in); len(errs) != 0 {
		t.Fatalf("expected pass, got %v", errs)
	}
}

func TestRequiredWhen_ReadsExtras(t *testing.T) {
	expr, err := condition.Compile("extras.product_id.subscription_required == 1")
	require.NoError(t, err)
	rule := validation.RequiredWhen("subscription_qty", expr, "")
	in := validation.Input{
		Values: map[string]any{"subscription_qty": ""},
		Extras: map[string]any{"product_id": map[string]any{"subscription_required": float64(1)}},
	}
	if got := rule.Validate(in)["subscription_qty"]; got != "subscription_qty is required" {
		t.Fatalf("unexpected message %q", got)
	}
	in.Extras = map[string]any{"product_id": map[string]any{"subscription_required": float64(0)}}
	if errs := rule.Validate(in); len(errs) != 0 {
		t.Fatalf("expected optional, got %v", errs)
	}
}

func TestParseDateTime_TimeOfDay(t *testing.T) {
	got, err := validation.ParseDateTime("09:30", now)
	require.NoError(t, err)
	if want := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	_, err = validation.ParseDateTime("tomorrow", now)
	require.Error(t, err)
}

func TestCatalogMatch(t *testing.T) {
	form, _ := formFor(t, "banner")
	catalog := validation.Catalog(form)

	known, ok := validation.Match(catalog, "image size must be 1MB or less.")
	require.True(t, ok)
	if diff := cmp.Diff(validation.Known{Field: "banner_img", Message: "Image size must be 1MB or less", Image: true}, known); diff != "" {
		t.Fatalf("match mismatch (-want +got):\n%s", diff)
	}

	known, ok = validation.Match(catalog, "End time must be after start time")
	require.True(t, ok)
	if known.Field != "endTime" || known.Image {
		t.Fatalf("unexpected match %+v", known)
	}

	_, ok = validation.Match(catalog, "Internal server error")
	require.False(t, ok)
}

func TestCatalogMatchAll_SharedGateMessages(t *testing.T) {
	form, _ := formFor(t, "rider")
	catalog := validation.Catalog(form)

	var fields []string
	for _, known := range validation.MatchAll(catalog, "Image size must be 1MB or less") {
		fields = append(fields, known.Field)
	}
	if diff := cmp.Diff([]string{"rider_img", "licence_img"}, fields); diff != "" {
		t.Fatalf("matches mismatch (-want +got):\n%s", diff)
	}

	required := validation.MatchAll(catalog, "Licence is required")
	require.Len(t, required, 1)
	require.Equal(t, "licence_img", required[0].Field)
	require.Empty(t, validation.MatchAll(catalog, "  "))
}
