package captcha

import (
	"bytes"
	"fmt"
	"math/rand"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
)

const (
	imageWidth  = 240
	imageHeight = 80
	codeLength  = 5
)

// codeAlphabet avoids glyphs that are easy to confuse at small sizes.
var codeAlphabet = []rune("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")

// newCode returns a random challenge code.
func newCode(rng *rand.Rand) string {
	code := make([]rune, codeLength)
	for i := range code {
		code[i] = codeAlphabet[rng.Intn(len(codeAlphabet))]
	}
	return string(code)
}

// renderCode draws the challenge code as a PNG with enough distortion and
// noise to defeat naive OCR bots.
func renderCode(code string, rng *rand.Rand) ([]byte, error) {
	dc := gg.NewContext(imageWidth, imageHeight)

	// Soft gradient background
	for y := 0; y < imageHeight; y++ {
		t := float64(y) / float64(imageHeight)
		dc.SetRGB(0.92-t*0.08, 0.93-t*0.05, 0.97-t*0.1)
		dc.DrawLine(0, float64(y), imageWidth, float64(y))
		dc.Stroke()
	}

	face, err := loadFont(gobold.TTF, 34)
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	dc.SetFontFace(face)

	// Noise lines behind the glyphs
	for n := 0; n < 6; n++ {
		dc.SetRGBA(rng.Float64()*0.6, rng.Float64()*0.6, rng.Float64()*0.6, 0.35)
		dc.SetLineWidth(1 + rng.Float64()*1.5)
		dc.DrawLine(rng.Float64()*imageWidth, rng.Float64()*imageHeight,
			rng.Float64()*imageWidth, rng.Float64()*imageHeight)
		dc.Stroke()
	}

	// Each glyph gets its own jitter and rotation
	step := float64(imageWidth-40) / float64(len(code))
	for idx, r := range code {
		x := 25 + float64(idx)*step + (rng.Float64()-0.5)*6
		y := imageHeight/2 + (rng.Float64()-0.5)*14

		dc.Push()
		dc.RotateAbout(gg.Radians((rng.Float64()-0.5)*40), x, y)
		dc.SetRGB(0.1+rng.Float64()*0.2, 0.1+rng.Float64()*0.2, 0.2+rng.Float64()*0.3)
		dc.DrawStringAnchored(string(r), x, y, 0.5, 0.5)
		dc.Pop()
	}

	// Noise dots over the glyphs
	for n := 0; n < 120; n++ {
		dc.SetRGBA(rng.Float64(), rng.Float64(), rng.Float64(), 0.4)
		dc.DrawCircle(rng.Float64()*imageWidth, rng.Float64()*imageHeight, 0.8)
		dc.Fill()
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// loadFont loads a font face from byte data
func loadFont(fontData []byte, size float64) (font.Face, error) {
	f, err := truetype.Parse(fontData)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}
