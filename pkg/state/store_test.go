package state_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-storeform/pkg/model"
	"github.com/goliatone/go-storeform/pkg/state"
	"github.com/goliatone/go-storeform/pkg/upload"
)

func bannerForm() model.Form {
	return model.Form{
		Entity: "banner",
		Fields: []model.Field{
			{Name: "title", Kind: model.KindText},
			{Name: "status", Kind: model.KindSelect, Default: "1"},
			{Name: "tags", Kind: model.KindMultiSelect},
			{Name: "banner_img", Kind: model.KindFile, Gate: model.GateImage},
		},
	}
}

func inventoryForm() model.Form {
	return model.Form{
		Entity:  "inventory",
		Lookups: map[string]string{"categories": "/category/all", "products": "/product/all"},
		Fields: []model.Field{
			{Name: "category_id", Kind: model.KindSelect, Lookup: "categories"},
			{Name: "product_id", Kind: model.KindSelect, Lookup: "products", DependsOn: "category_id"},
			{Name: "variant", Kind: model.KindText, DependsOn: "product_id"},
			{Name: "quantity", Kind: model.KindNumber},
		},
	}
}

func image(size int) upload.File {
	return upload.NewFile("pic.png", "image/png", bytes.Repeat([]byte{1}, size))
}

func TestNew_SeedsDefaults(t *testing.T) {
	store := state.New(bannerForm())

	want := map[string]any{
		"title":      "",
		"status":     "1",
		"tags":       []string{},
		"banner_img": upload.UnchangedFile(""),
	}
	if diff := cmp.Diff(want, store.Values()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if store.ID() != "" {
		t.Fatalf("expected create path, got id %q", store.ID())
	}
}

func TestHydrate_IsIdempotentAndResetsAbsentKeys(t *testing.T) {
	store := state.New(bannerForm())
	if err := store.SetError("title", "Title is required"); err != nil {
		t.Fatalf("set error: %v", err)
	}

	record := map[string]any{
		"id":         float64(42),
		"title":      "Summer",
		"tags":       []any{"a", "b"},
		"banner_img": "https://cdn.example.com/b.png",
		"extra":      "ignored",
	}
	if err := store.Hydrate(record); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	first := store.Values()
	if err := store.Hydrate(record); err != nil {
		t.Fatalf("second hydrate: %v", err)
	}
	if diff := cmp.Diff(first, store.Values()); diff != "" {
		t.Fatalf("second hydrate changed state (-want +got):\n%s", diff)
	}

	want := map[string]any{
		"title":      "Summer",
		"status":     "1",
		"tags":       []string{"a", "b"},
		"banner_img": upload.UnchangedFile("https://cdn.example.com/b.png"),
	}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if store.ID() != "42" {
		t.Fatalf("expected id 42, got %q", store.ID())
	}
	if len(store.Errors()) != 0 {
		t.Fatalf("expected errors cleared, got %v", store.Errors())
	}
	preview, ok := store.Preview("banner_img")
	if !ok || !preview.Existing || preview.URL != "https://cdn.example.com/b.png" {
		t.Fatalf("unexpected preview %+v", preview)
	}
}

func TestHydrate_KeepsUserEdits(t *testing.T) {
	store := state.New(bannerForm())
	if _, err := store.SetValue("title", "Typed first"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Hydrate(map[string]any{"title": "From server", "status": "0"}); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if got, _ := store.Value("title"); got != "Typed first" {
		t.Fatalf("late hydration overwrote edit: %v", got)
	}
	if got, _ := store.Value("status"); got != "0" {
		t.Fatalf("expected untouched field hydrated, got %v", got)
	}
}

func TestHydrate_BadFieldLeavesStoreUntouched(t *testing.T) {
	store := state.New(inventoryForm())
	if err := store.SetError("quantity", "Quantity is required"); err != nil {
		t.Fatalf("set error: %v", err)
	}
	before := store.Values()

	err := store.Hydrate(map[string]any{
		"id":          float64(9),
		"category_id": float64(1),
		"product_id":  map[string]any{"id": float64(9)},
		"quantity":    float64(3),
	})
	if !errors.Is(err, state.ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if diff := cmp.Diff(before, store.Values()); diff != "" {
		t.Fatalf("failed hydrate wrote values (-want +got):\n%s", diff)
	}
	if got := store.ID(); got != "" {
		t.Fatalf("failed hydrate set id %q", got)
	}
	if got := store.Error("quantity"); got != "Quantity is required" {
		t.Fatalf("failed hydrate cleared errors, got %q", got)
	}
}

func TestSetValue_UnknownFieldAndFileField(t *testing.T) {
	store := state.New(bannerForm())
	if _, err := store.SetValue("nope", "x"); !errors.Is(err, state.ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if _, err := store.SetValue("banner_img", "x"); !errors.Is(err, state.ErrFileField) {
		t.Fatalf("expected ErrFileField, got %v", err)
	}
	if _, err := store.SetValue("title", map[string]any{}); !errors.Is(err, state.ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
}

func TestSetValue_ResetsDependentsTransitively(t *testing.T) {
	store := state.New(inventoryForm())
	mustSet(t, store, "category_id", "1")
	mustSet(t, store, "product_id", "10")
	mustSet(t, store, "variant", "large")
	mustSet(t, store, "quantity", 3)

	reset, err := store.SetValue("category_id", "2")
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if diff := cmp.Diff([]string{"product_id", "variant"}, reset); diff != "" {
		t.Fatalf("reset mismatch (-want +got):\n%s", diff)
	}
	want := map[string]any{"category_id": "2", "product_id": "", "variant": "", "quantity": "3"}
	if diff := cmp.Diff(want, store.Values()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}

	reset, err = store.SetValue("category_id", "2")
	if err != nil {
		t.Fatalf("set same: %v", err)
	}
	if len(reset) != 0 {
		t.Fatalf("unchanged value should not reset dependents, got %v", reset)
	}
}

func TestSetFile_GateBoundaryKeepsPreviousValue(t *testing.T) {
	minter := upload.NewObjectURLs()
	store := state.New(bannerForm(), state.WithURLMinter(minter))

	if err := store.SetFile("banner_img", image(1<<20)); err != nil {
		t.Fatalf("exactly 1MB should pass: %v", err)
	}
	accepted, _ := store.File("banner_img")
	preview, _ := store.Preview("banner_img")

	err := store.SetFile("banner_img", image(1<<20+1))
	if !errors.Is(err, upload.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if got := store.Error("banner_img"); got != "Image size must be 1MB or less" {
		t.Fatalf("unexpected field error %q", got)
	}
	current, _ := store.File("banner_img")
	if current.State != upload.Replaced || current.File != accepted.File {
		t.Fatalf("rejected file replaced the accepted one: %+v", current)
	}
	if again, _ := store.Preview("banner_img"); again != preview {
		t.Fatalf("preview changed after rejection: %+v", again)
	}
	if minter.Live() != 1 {
		t.Fatalf("expected one live url, got %d", minter.Live())
	}
}

func TestSetFile_ReplacingRevokesPreviousPreview(t *testing.T) {
	minter := upload.NewObjectURLs()
	store := state.New(bannerForm(), state.WithURLMinter(minter))
	if err := store.SetFile("banner_img", image(10)); err != nil {
		t.Fatalf("first: %v", err)
	}
	first, _ := store.Preview("banner_img")
	if err := store.SetFile("banner_img", image(20)); err != nil {
		t.Fatalf("second: %v", err)
	}
	if _, ok := minter.Resolve(first.URL); ok {
		t.Fatalf("previous preview %s still live", first.URL)
	}
	if minter.Live() != 1 {
		t.Fatalf("expected one live url, got %d", minter.Live())
	}
}

func TestRestoreFile_RollsBackToServerImage(t *testing.T) {
	store := state.New(bannerForm())
	if err := store.Hydrate(map[string]any{"banner_img": "https://cdn/x.png"}); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if err := store.SetFile("banner_img", image(100)); err != nil {
		t.Fatalf("set file: %v", err)
	}
	if err := store.RestoreFile("banner_img"); err != nil {
		t.Fatalf("restore: %v", err)
	}
	got, _ := store.File("banner_img")
	if diff := cmp.Diff(upload.UnchangedFile("https://cdn/x.png"), got); diff != "" {
		t.Fatalf("file mismatch (-want +got):\n%s", diff)
	}
	preview, _ := store.Preview("banner_img")
	if diff := cmp.Diff(upload.Preview{URL: "https://cdn/x.png", Existing: true}, preview); diff != "" {
		t.Fatalf("preview mismatch (-want +got):\n%s", diff)
	}
}

func TestClearFile(t *testing.T) {
	store := state.New(bannerForm())
	if err := store.Hydrate(map[string]any{"banner_img": "https://cdn/x.png"}); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if err := store.ClearFile("banner_img"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, _ := store.File("banner_img")
	if got.State != upload.Cleared || got.HasFile() {
		t.Fatalf("unexpected value %+v", got)
	}
	if _, ok := store.Preview("banner_img"); ok {
		t.Fatalf("expected preview dropped")
	}
	if err := store.ClearFile("title"); !errors.Is(err, state.ErrNotFileField) {
		t.Fatalf("expected ErrNotFileField, got %v", err)
	}
}

func TestSubmitting_BlocksEdits(t *testing.T) {
	store := state.New(bannerForm())
	if !store.BeginSubmit() {
		t.Fatalf("expected first BeginSubmit to succeed")
	}
	if store.BeginSubmit() {
		t.Fatalf("expected second BeginSubmit to be refused")
	}
	if _, err := store.SetValue("title", "x"); !errors.Is(err, state.ErrSubmitting) {
		t.Fatalf("expected ErrSubmitting, got %v", err)
	}
	if err := store.SetFile("banner_img", image(10)); !errors.Is(err, state.ErrSubmitting) {
		t.Fatalf("expected ErrSubmitting, got %v", err)
	}
	store.EndSubmit()
	if _, err := store.SetValue("title", "x"); err != nil {
		t.Fatalf("expected edit after EndSubmit, got %v", err)
	}
}

func TestUnmount_RevokesAndRejects(t *testing.T) {
	minter := upload.NewObjectURLs()
	store := state.New(bannerForm(), state.WithURLMinter(minter))
	if err := store.SetFile("banner_img", image(10)); err != nil {
		t.Fatalf("set file: %v", err)
	}
	store.Unmount()

	if minter.Live() != 0 {
		t.Fatalf("expected all previews revoked, %d live", minter.Live())
	}
	if err := store.Hydrate(map[string]any{"title": "late"}); !errors.Is(err, state.ErrUnmounted) {
		t.Fatalf("expected ErrUnmounted, got %v", err)
	}
	if err := store.ResolveLookup("x", nil); !errors.Is(err, state.ErrUnmounted) {
		t.Fatalf("expected ErrUnmounted, got %v", err)
	}
	if store.BeginSubmit() {
		t.Fatalf("unmounted store must refuse submission")
	}
}

func TestReplaceErrors_DropsUnknownKeys(t *testing.T) {
	store := state.New(bannerForm())
	if err := store.ReplaceErrors(map[string]string{"title": "Required", "ghost": "x", "status": " "}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"title": "Required"}, store.Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestOptions_FilterByParentAndLateLookups(t *testing.T) {
	store := state.New(inventoryForm())

	if _, ready := store.Options("product_id"); ready {
		t.Fatalf("options should not be ready before lookup resolves")
	}
	mustSet(t, store, "category_id", "1")
	mustSet(t, store, "product_id", "11")

	if err := store.ResolveLookup("products", []map[string]any{
		{"id": float64(10), "name": "Milk", "category_id": float64(1)},
		{"id": float64(11), "name": "Cheese", "category_id": float64(1)},
		{"id": float64(20), "name": "Bread", "category_id": float64(2)},
	}); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	options, ready := store.Options("product_id")
	if !ready {
		t.Fatalf("expected ready options")
	}
	want := []model.Option{{Label: "Milk", Value: "10"}, {Label: "Cheese", Value: "11"}}
	if diff := cmp.Diff(want, options); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
	if got, _ := store.Value("product_id"); got != "11" {
		t.Fatalf("late lookup overwrote selection: %v", got)
	}
	selected, ok := store.Selected("product_id")
	if !ok || selected["name"] != "Cheese" {
		t.Fatalf("unexpected selection %v", selected)
	}
	if store.LookupsReady() {
		t.Fatalf("categories lookup still pending")
	}
	if err := store.ResolveLookup("categories", nil); err != nil {
		t.Fatalf("resolve categories: %v", err)
	}
	if !store.LookupsReady() {
		t.Fatalf("expected all lookups ready")
	}
}

func TestLookupStatus(t *testing.T) {
	store := state.New(inventoryForm())
	if store.LookupStatus("products") != state.LookupIdle {
		t.Fatalf("expected idle")
	}
	_ = store.BeginLookup("products")
	if store.LookupStatus("products") != state.LookupLoading {
		t.Fatalf("expected loading")
	}
	_ = store.FailLookup("products", errors.New("boom"))
	if got := store.LookupStatus("products"); got != state.LookupFailed || got.String() != "failed" {
		t.Fatalf("expected failed, got %v", got)
	}
}

func mustSet(t *testing.T, store *state.Store, name string, value any) {
	t.Helper()
	if _, err := store.SetValue(name, value); err != nil {
		t.Fatalf("set %s: %v", name, err)
	}
}
