package render

import (
	"bytes"
	"errors"
	"image/png"
	"strings"
	"testing"

	"qrmatch/internal/domain"
	"qrmatch/internal/port"
)

var _ port.Renderer = (*QRRenderer)(nil)

func TestQRRenderer_Render(t *testing.T) {
	r, err := NewQRRenderer(128, "medium")
	if err != nil {
		t.Fatal(err)
	}

	data, err := r.Render("https://example.com/docs/1")
	if err != nil {
		t.Fatal(err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if w := img.Bounds().Dx(); w != 128 {
		t.Errorf("width = %d, want 128", w)
	}
	if r.ContentType() != "image/png" {
		t.Errorf("ContentType = %s", r.ContentType())
	}
}

func TestQRRenderer_Deterministic(t *testing.T) {
	r, _ := NewQRRenderer(64, "low")
	a, _ := r.Render("same text")
	b, _ := r.Render("same text")
	if !bytes.Equal(a, b) {
		t.Error("rendering the same text twice should give identical bytes")
	}
}

func TestQRRenderer_TooLong(t *testing.T) {
	r, _ := NewQRRenderer(64, "highest")
	_, err := r.Render(strings.Repeat("x", 5000))
	if !errors.Is(err, domain.ErrRenderFailed) {
		t.Errorf("expected ErrRenderFailed, got %v", err)
	}
}

func TestNewQRRenderer_Levels(t *testing.T) {
	for _, lvl := range []string{"", "low", "medium", "high", "highest"} {
		if _, err := NewQRRenderer(0, lvl); err != nil {
			t.Errorf("level %q: %v", lvl, err)
		}
	}
	if _, err := NewQRRenderer(0, "extreme"); err == nil {
		t.Error("expected error for unknown level")
	}
}
