package display

import (
	"image"
	"sync"
)

// FakePanel records draws for testing.
type FakePanel struct {
	mu sync.Mutex

	// Draws counts calls to Draw.
	Draws int

	// Halted tracks if Halt was called.
	Halted bool

	// DrawError, if set, is returned by Draw.
	DrawError error
}

// Draw counts the call.
func (p *FakePanel) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.DrawError != nil {
		return p.DrawError
	}
	p.Draws++
	return nil
}

// Halt marks the panel halted.
func (p *FakePanel) Halt() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Halted = true
	return nil
}

// FakeStatus records rendered frames.
type FakeStatus struct {
	mu     sync.Mutex
	Frames []Frame
}

// Render stores f.
func (s *FakeStatus) Render(f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Frames = append(s.Frames, f)
	return nil
}

// Last returns the most recent frame.
func (s *FakeStatus) Last() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Frames) == 0 {
		return Frame{}, false
	}
	return s.Frames[len(s.Frames)-1], true
}

// FakeLarge records Show and Hide calls.
type FakeLarge struct {
	mu      sync.Mutex
	Shown   []Source
	Hides   int
	Visible bool
}

// Show records src.
func (l *FakeLarge) Show(src Source) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Shown = append(l.Shown, src)
	l.Visible = true
	return nil
}

// Hide records the call.
func (l *FakeLarge) Hide() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Hides++
	l.Visible = false
	return nil
}

// IsVisible reports the last requested visibility.
func (l *FakeLarge) IsVisible() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Visible
}
