package display

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

// Font is a face with the metrics the composer and raster need.
type Font struct {
	Face   font.Face
	Ascent int
	Height int
}

// DefaultFont returns the built-in 7x13 bitmap face.
func DefaultFont() *Font {
	return newFont(basicfont.Face7x13)
}

// LoadFont reads a TrueType/OpenType file and returns a face at size points.
// An empty path returns DefaultFont.
func LoadFont(path string, size float64) (*Font, error) {
	if path == "" {
		return DefaultFont(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("font face %s: %w", path, err)
	}
	return newFont(face), nil
}

func newFont(face font.Face) *Font {
	m := face.Metrics()
	return &Font{
		Face:   face,
		Ascent: m.Ascent.Round(),
		Height: m.Ascent.Round() + m.Descent.Round(),
	}
}

// Width returns the advance width of s in pixels.
func (f *Font) Width(s string) int {
	return font.MeasureString(f.Face, s).Round()
}

// Truncate shortens s with an ellipsis so that it fits in max pixels.
func (f *Font) Truncate(s string, max int) string {
	if f.Width(s) <= max {
		return s
	}
	r := []rune(s)
	for len(r) > 0 {
		r = r[:len(r)-1]
		t := string(r) + "..."
		if f.Width(t) <= max {
			return t
		}
	}
	return ""
}
