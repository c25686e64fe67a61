package preview

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
)

const defaultFontPath = "internal/assets/fonts/DejaVuSans.ttf"

const (
	cardWidth  = 640
	cardHeight = 360
)

// Renderer draws placeholder preview cards for media that cannot be
// decoded into a still image, such as uploaded videos.
type Renderer struct {
	fontPath string
}

// NewRenderer creates a Renderer using the bundled font.
func NewRenderer() *Renderer {
	return &Renderer{fontPath: defaultFontPath}
}

// Card renders a PNG preview card: a dark canvas with a play marker and,
// when the font is available, the filename in the bottom-left corner.
func (r *Renderer) Card(filename string) ([]byte, error) {
	dc := gg.NewContext(cardWidth, cardHeight)

	dc.SetRGB(0.09, 0.10, 0.13)
	dc.Clear()

	// Play marker in the center.
	cx := float64(cardWidth) / 2
	cy := float64(cardHeight) / 2
	dc.SetRGBA(1, 1, 1, 0.85)
	dc.MoveTo(cx-28, cy-40)
	dc.LineTo(cx-28, cy+40)
	dc.LineTo(cx+44, cy)
	dc.ClosePath()
	dc.Fill()

	// Filename label. Skipped when the font cannot be loaded; the card is
	// still a valid preview without it.
	if err := dc.LoadFontFace(r.fontPath, 18); err == nil {
		dc.SetColor(color.White)
		margin := 16.0
		dc.DrawStringAnchored(filename, margin, float64(cardHeight)-margin, 0, 0)
		dc.Fill()
	}

	buf := bytes.NewBuffer(nil)
	if err := imaging.Encode(buf, dc.Image(), imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode preview card: %w", err)
	}

	return buf.Bytes(), nil
}
