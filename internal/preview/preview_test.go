package preview

import (
	"bytes"
	"image/png"
	"testing"
)

func TestCardIsDecodablePNG(t *testing.T) {
	r := NewRenderer()

	data, err := r.Card("holiday_clip.mp4")
	if err != nil {
		t.Fatalf("Card failed: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("card is not a decodable PNG: %v", err)
	}

	b := img.Bounds()
	if b.Dx() != cardWidth || b.Dy() != cardHeight {
		t.Errorf("card dimensions = %dx%d, want %dx%d", b.Dx(), b.Dy(), cardWidth, cardHeight)
	}
}

func TestCardMissingFontStillRenders(t *testing.T) {
	r := &Renderer{fontPath: "nope/missing.ttf"}

	data, err := r.Card("clip.mp4")
	if err != nil {
		t.Fatalf("Card failed without a font: %v", err)
	}
	if len(data) == 0 {
		t.Error("empty card payload")
	}
}
