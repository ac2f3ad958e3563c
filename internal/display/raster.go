package display

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Raster draws frames into a grayscale buffer and pushes changed buffers to
// a Panel. The last drawn buffer is kept for snapshots.
type Raster struct {
	panel Panel
	font  *Font
	img   *image.Gray

	mu     sync.RWMutex
	last   *image.Gray
	pushed bool
}

// NewRaster creates a width x height Raster. panel may be nil, in which case
// frames are only kept for snapshots.
func NewRaster(panel Panel, f *Font, width, height int) *Raster {
	if f == nil {
		f = DefaultFont()
	}
	return &Raster{
		panel: panel,
		font:  f,
		img:   image.NewGray(image.Rect(0, 0, width, height)),
	}
}

// Render draws f and sends it to the panel if any pixel changed.
func (r *Raster) Render(f Frame) error {
	r.draw(f)

	r.mu.Lock()
	changed := !r.pushed || !bytes.Equal(r.last.Pix, r.img.Pix)
	if changed {
		if r.last == nil {
			r.last = image.NewGray(r.img.Bounds())
		}
		copy(r.last.Pix, r.img.Pix)
	}
	r.mu.Unlock()

	if !changed || r.panel == nil {
		r.pushed = true
		return nil
	}
	if err := r.panel.Draw(r.img.Bounds(), r.img, image.Point{}); err != nil {
		// Push again next tick.
		r.pushed = false
		return fmt.Errorf("draw panel: %w", err)
	}
	r.pushed = true
	return nil
}

// Snapshot returns a copy of the last rendered frame, or nil before the
// first render.
func (r *Raster) Snapshot() *image.Gray {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return nil
	}
	out := image.NewGray(r.last.Bounds())
	copy(out.Pix, r.last.Pix)
	return out
}

// Close blanks and halts the panel.
func (r *Raster) Close() error {
	if r.panel == nil {
		return nil
	}
	draw.Draw(r.img, r.img.Bounds(), image.Black, image.Point{}, draw.Src)
	if err := r.panel.Draw(r.img.Bounds(), r.img, image.Point{}); err != nil {
		return fmt.Errorf("clear panel: %w", err)
	}
	return r.panel.Halt()
}

func (r *Raster) draw(f Frame) {
	b := r.img.Bounds()
	draw.Draw(r.img, b, image.Black, image.Point{}, draw.Src)

	contentTop := b.Dy()
	for _, w := range f.Widgets {
		if w.Kind == Message && w.Y < contentTop {
			contentTop = w.Y
		}
	}

	for _, w := range f.Widgets {
		if !w.Visible {
			continue
		}
		if f.Notice != nil && w.Y >= contentTop {
			continue
		}
		r.drawWidget(w)
	}

	if f.Notice != nil {
		top := contentTop
		if b.Dy()-top < 2*r.font.Height {
			// Not enough room below the status row; use the whole panel.
			top = 0
			draw.Draw(r.img, b, image.Black, image.Point{}, draw.Src)
		}
		half := (b.Dy() - top) / 2
		r.centered(f.Notice.Line1, top, half)
		r.centered(f.Notice.Line2, top+half, half)
	}
}

func (r *Raster) drawWidget(w Widget) {
	clip := image.Rect(w.X, w.Y, w.X+w.Width, w.Y+r.font.Height)
	dst := r.img.SubImage(clip).(*image.Gray)

	text := w.Text
	x := w.X
	switch {
	case w.Scroll:
		x = ScrollX(w.Slot, r.img.Bounds().Dx(), r.font.Width(text), w.ScrollOffset)
	case w.Kind == Motion:
		text = r.font.Truncate(text, w.Width)
		x = w.X + w.Width - r.font.Width(text)
	default:
		text = r.font.Truncate(text, w.Width)
	}
	r.text(dst, text, x, w.Y)
}

func (r *Raster) centered(s string, top, height int) {
	if s == "" {
		return
	}
	width := r.img.Bounds().Dx()
	s = r.font.Truncate(s, width)
	x := (width - r.font.Width(s)) / 2
	y := top + (height-r.font.Height)/2
	r.text(r.img, s, x, y)
}

func (r *Raster) text(dst draw.Image, s string, x, y int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: r.font.Face,
		Dot:  fixed.P(x, y+r.font.Ascent),
	}
	d.DrawString(s)
}
