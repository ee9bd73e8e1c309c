package payload_test

import (
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-storeform/pkg/model"
	"github.com/goliatone/go-storeform/pkg/payload"
	"github.com/goliatone/go-storeform/pkg/upload"
)

type part struct {
	Name     string
	FileName string
	Type     string
	Value    string
}

func readParts(t *testing.T, p payload.Payload) []part {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(p.ContentType())
	require.NoError(t, err)
	require.Equal(t, "multipart/form-data", mediaType)

	reader := multipart.NewReader(p.Body(), params["boundary"])
	var parts []part
	for {
		next, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(next)
		require.NoError(t, err)
		got := part{Name: next.FormName(), FileName: next.FileName(), Value: string(data)}
		if got.FileName != "" {
			got.Type = next.Header.Get("Content-Type")
			got.Value = ""
		}
		parts = append(parts, got)
	}
	return parts
}

func plainForm(policy model.EmptyPolicy) model.Form {
	return model.Form{
		Entity:      "setting",
		EmptyPolicy: policy,
		Fields: []model.Field{
			{Name: "store_name", Kind: model.KindText},
			{Name: "tax", Kind: model.KindNumber},
			{Name: "days", Kind: model.KindMultiSelect},
			{Name: "about", Kind: model.KindRichText},
		},
	}
}

func TestBuild_JSONWithoutFileFields(t *testing.T) {
	values := map[string]any{
		"store_name": "Corner Shop",
		"tax":        "5",
		"days":       []string{"mon", "tue"},
		"about":      `<p onclick="x()">Hi<script>alert(1)</script></p>`,
	}
	p, err := payload.Build(plainForm(model.EmptyOmit), values, "")
	require.NoError(t, err)
	require.False(t, p.Multipart())
	require.Equal(t, payload.ContentTypeJSON, p.ContentType())

	var got map[string]any
	require.NoError(t, json.Unmarshal(p.Bytes(), &got))
	want := map[string]any{
		"store_name": "Corner Shop",
		"tax":        "5",
		"days":       []any{"mon", "tue"},
		"about":      "<p>Hi</p>",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_EmptyPolicy(t *testing.T) {
	values := map[string]any{"store_name": "", "tax": "", "days": []string{}, "about": ""}

	omit, err := payload.Build(plainForm(model.EmptyOmit), values, "12")
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"id"}, omit.Fields()); diff != "" {
		t.Fatalf("omit fields mismatch (-want +got):\n%s", diff)
	}

	empty, err := payload.Build(plainForm(model.EmptyString), values, "12")
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(empty.Bytes(), &got))
	want := map[string]any{"id": "12", "store_name": "", "tax": "", "days": []any{}, "about": ""}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
}

func couponForm() model.Form {
	return model.Form{
		Entity:      "coupon",
		EmptyPolicy: model.EmptyString,
		Fields: []model.Field{
			{Name: "coupon_title", Kind: model.KindText},
			{Name: "status", Kind: model.KindSelect},
			{Name: "start_date", Kind: model.KindDateTime},
			{Name: "coupon_img", Kind: model.KindFile},
		},
	}
}

func TestBuild_MultipartWhenAnyFileField(t *testing.T) {
	img := upload.NewFile("c.png", "image/png", []byte(strings.Repeat("x", 512)))
	values := map[string]any{
		"coupon_title": "SAVE10",
		"status":       "1",
		"start_date":   "",
		"coupon_img":   upload.ReplacedFile(img, ""),
	}
	p, err := payload.Build(couponForm(), values, "")
	require.NoError(t, err)
	require.True(t, p.Multipart())

	want := []part{
		{Name: "coupon_title", Value: "SAVE10"},
		{Name: "status", Value: "1"},
		{Name: "start_date", Value: ""},
		{Name: "coupon_img", FileName: "c.png", Type: "image/png"},
	}
	if diff := cmp.Diff(want, readParts(t, p)); diff != "" {
		t.Fatalf("parts mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_MultipartEvenWhenFileUnchanged(t *testing.T) {
	values := map[string]any{
		"coupon_title": "SAVE10",
		"status":       "1",
		"start_date":   "",
		"coupon_img":   upload.UnchangedFile("https://cdn/c.png"),
	}
	p, err := payload.Build(couponForm(), values, "44")
	require.NoError(t, err)
	require.True(t, p.Multipart())

	want := []part{
		{Name: "id", Value: "44"},
		{Name: "coupon_title", Value: "SAVE10"},
		{Name: "status", Value: "1"},
		{Name: "start_date", Value: ""},
	}
	if diff := cmp.Diff(want, readParts(t, p)); diff != "" {
		t.Fatalf("parts mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_ClearedFileSendsEmptyPart(t *testing.T) {
	form := couponForm()
	form.EmptyPolicy = model.EmptyOmit
	values := map[string]any{
		"coupon_title": "SAVE10",
		"status":       "1",
		"start_date":   "",
		"coupon_img":   upload.ClearedFile("https://cdn/c.png"),
	}
	p, err := payload.Build(form, values, "44")
	require.NoError(t, err)

	want := []part{
		{Name: "id", Value: "44"},
		{Name: "coupon_title", Value: "SAVE10"},
		{Name: "status", Value: "1"},
		{Name: "coupon_img", Value: ""},
	}
	if diff := cmp.Diff(want, readParts(t, p)); diff != "" {
		t.Fatalf("parts mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_MultiselectRepeatsParts(t *testing.T) {
	form := model.Form{
		Entity: "subscription",
		Fields: []model.Field{
			{Name: "days", Kind: model.KindMultiSelect},
			{Name: "photo", Kind: model.KindFile},
		},
	}
	p, err := payload.Build(form, map[string]any{"days": []string{"mon", "fri"}}, "")
	require.NoError(t, err)
	want := []part{{Name: "days", Value: "mon"}, {Name: "days", Value: "fri"}}
	if diff := cmp.Diff(want, readParts(t, p)); diff != "" {
		t.Fatalf("parts mismatch (-want +got):\n%s", diff)
	}
}

func TestSanitizeRichText(t *testing.T) {
	got := payload.SanitizeRichText(`<a href="https://example.com" onmouseover="x">link</a><img src=x onerror=alert(1)>`)
	if strings.Contains(got, "onmouseover") || strings.Contains(got, "onerror") {
		t.Fatalf("event handlers survived: %s", got)
	}
	if !strings.Contains(got, `href="https://example.com"`) {
		t.Fatalf("expected link kept: %s", got)
	}
}
