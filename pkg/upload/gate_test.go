package upload_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-storeform/pkg/upload"
)

func sized(name, contentType string, size int) upload.File {
	return upload.NewFile(name, contentType, bytes.Repeat([]byte{0xff}, size))
}

func TestImageGate_SizeBoundary(t *testing.T) {
	exact := sized("banner.png", "image/png", 1<<20)
	if err := upload.ImageGate.Check(exact); err != nil {
		t.Fatalf("expected exactly 1MB to pass, got %v", err)
	}

	over := sized("banner.png", "image/png", 1<<20+1)
	err := upload.ImageGate.Check(over)
	if !errors.Is(err, upload.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	var gateErr *upload.GateError
	if !errors.As(err, &gateErr) {
		t.Fatalf("expected *GateError, got %T", err)
	}
	if gateErr.Message != "Image size must be 1MB or less" {
		t.Fatalf("unexpected message %q", gateErr.Message)
	}
}

func TestGates_AreIndependent(t *testing.T) {
	gif := sized("anim.gif", "image/gif", 1024)
	if err := upload.ImageGate.Check(gif); err != nil {
		t.Fatalf("image gate should accept gif: %v", err)
	}
	if err := upload.UploaderGate.Check(gif); !errors.Is(err, upload.ErrUnsupportedType) {
		t.Fatalf("uploader gate should reject gif, got %v", err)
	}

	large := sized("hero.webp", "image/webp", 3<<20)
	if err := upload.ImageGate.Check(large); !errors.Is(err, upload.ErrTooLarge) {
		t.Fatalf("image gate should reject 3MB, got %v", err)
	}
	if err := upload.UploaderGate.Check(large); err != nil {
		t.Fatalf("uploader gate should accept 3MB, got %v", err)
	}
}

func TestGateFor(t *testing.T) {
	if got := upload.GateFor("uploader").MaxBytes; got != 5<<20 {
		t.Fatalf("uploader max = %d", got)
	}
	if got := upload.GateFor("").Name; got != "image" {
		t.Fatalf("default gate = %q", got)
	}
}

func TestNewFile_DetectsContentType(t *testing.T) {
	file := upload.NewFile("logo.svg", "", []byte("<svg></svg>"))
	if file.ContentType != "image/svg+xml" {
		t.Fatalf("content type = %q", file.ContentType)
	}
	withParams := upload.NewFile("x.png", "Image/PNG; charset=binary", []byte{1})
	if withParams.ContentType != "image/png" {
		t.Fatalf("content type = %q", withParams.ContentType)
	}
}

func TestFileValue_HasFile(t *testing.T) {
	cases := map[string]struct {
		value upload.FileValue
		want  bool
	}{
		"unchanged without server file": {upload.UnchangedFile(""), false},
		"unchanged with server file":    {upload.UnchangedFile("https://cdn/x.png"), true},
		"cleared":                       {upload.ClearedFile("https://cdn/x.png"), false},
		"replaced":                      {upload.ReplacedFile(sized("a.png", "image/png", 1), ""), true},
	}
	got := map[string]bool{}
	want := map[string]bool{}
	for name, tc := range cases {
		got[name] = tc.value.HasFile()
		want[name] = tc.want
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("HasFile mismatch (-want +got):\n%s", diff)
	}
}

func TestObjectURLs_MintRevoke(t *testing.T) {
	urls := upload.NewObjectURLs()
	file := sized("a.png", "image/png", 10)
	first := urls.Mint(file)
	second := urls.Mint(file)
	if first == second {
		t.Fatalf("expected distinct urls")
	}
	if urls.Live() != 2 {
		t.Fatalf("live = %d", urls.Live())
	}
	urls.Revoke(first)
	if _, ok := urls.Resolve(first); ok {
		t.Fatalf("revoked url still resolves")
	}
	if urls.Live() != 1 {
		t.Fatalf("live = %d", urls.Live())
	}
}
