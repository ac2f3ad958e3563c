package display

import (
	"fmt"
	"time"
)

// ComposerConfig holds status display layout and timing.
type ComposerConfig struct {
	Width          int
	Height         int
	ScrollStep     int
	ClockFormat    string
	Location       *time.Location
	NoticeDuration time.Duration
	Slots          []Slot
}

// Composer owns the widget states. Not safe for concurrent use.
type Composer struct {
	cfg     ComposerConfig
	font    *Font
	widgets []WidgetState

	message      string
	motionActive bool
	lastMotion   time.Time
	notice       *Notice
}

// NewComposer creates a Composer. Slots are moved onto the panel; slots with
// zero width extend to the right edge.
func NewComposer(cfg ComposerConfig, f *Font) (*Composer, error) {
	if f == nil {
		f = DefaultFont()
	}
	if cfg.ScrollStep < 1 {
		cfg.ScrollStep = 1
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	slots := make([]Slot, len(cfg.Slots))
	for i, s := range cfg.Slots {
		switch s.Kind {
		case Clock, Motion, Message:
		default:
			return nil, fmt.Errorf("slot %d: unknown widget kind %q", i, s.Kind)
		}
		s.X = clampInt(s.X, 0, cfg.Width-1)
		s.Y = clampInt(s.Y, 0, cfg.Height-1)
		if s.Width <= 0 || s.X+s.Width > cfg.Width {
			s.Width = cfg.Width - s.X
		}
		slots[i] = s
	}
	cfg.Slots = slots

	return &Composer{cfg: cfg, font: f, widgets: make([]WidgetState, len(slots))}, nil
}

// SetMessage replaces the message text. Visible on the next tick.
func (c *Composer) SetMessage(text string) {
	c.message = text
}

// Message returns the current message text.
func (c *Composer) Message() string {
	return c.message
}

// SetMotion records a motion state change at at.
func (c *Composer) SetMotion(active bool, at time.Time) {
	c.motionActive = active
	c.lastMotion = at
}

// ShowNotice replaces any current notice. It is shown until now plus the
// configured notice duration.
func (c *Composer) ShowNotice(line1, line2 string, now time.Time) {
	c.notice = &Notice{Line1: line1, Line2: line2, Until: now.Add(c.cfg.NoticeDuration)}
}

// ClearNotice drops the current notice if its first line is line1.
func (c *Composer) ClearNotice(line1 string) {
	if c.notice != nil && c.notice.Line1 == line1 {
		c.notice = nil
	}
}

// Notice returns the active notice at now, or nil.
func (c *Composer) Notice(now time.Time) *Notice {
	if c.notice != nil && !now.Before(c.notice.Until) {
		c.notice = nil
	}
	if c.notice == nil {
		return nil
	}
	n := *c.notice
	return &n
}

// Tick decides every slot's text, returns the frame to render, then
// advances scrolling slots by one step. A slot whose text changed starts
// again at offset 0.
func (c *Composer) Tick(now time.Time) Frame {
	notice := c.Notice(now)
	in := inputs{
		now:          now,
		clockFormat:  c.cfg.ClockFormat,
		location:     c.cfg.Location,
		motionActive: c.motionActive,
		lastMotion:   c.lastMotion,
		message:      c.message,
	}

	f := Frame{
		At:      now,
		Width:   c.cfg.Width,
		Height:  c.cfg.Height,
		Widgets: make([]Widget, len(c.widgets)),
		Notice:  notice,
	}

	for i := range c.widgets {
		slot := c.cfg.Slots[i]
		w := &c.widgets[i]

		text := widgetText(slot.Kind, in)
		if text != w.Text {
			w.Text = text
			w.ScrollOffset = 0
		}
		w.Visible = text != "" && !(notice != nil && slot.Kind == Message)

		f.Widgets[i] = Widget{Slot: slot, WidgetState: *w}

		if slot.Scroll && text != "" {
			if span := c.font.Width(text) + c.cfg.Width; span > 0 {
				w.ScrollOffset = (w.ScrollOffset + c.cfg.ScrollStep) % span
			}
		}
	}
	return f
}

// Widgets returns a copy of the current widget states.
func (c *Composer) Widgets() []WidgetState {
	return append([]WidgetState(nil), c.widgets...)
}

// TextWidth measures text in the composer's font.
func (c *Composer) TextWidth(text string) int {
	return c.font.Width(text)
}

// ScrollX returns the left edge for scrolled text. Offsets up to the text
// width move it left out of the slot; larger offsets bring it back in from
// the right edge of the screen, so a narrow slot stays blank for the part of
// the cycle the text spends off to its right.
func ScrollX(slot Slot, screenWidth, textWidth, offset int) int {
	if offset <= textWidth {
		return slot.X - offset
	}
	return slot.X + screenWidth - (offset - textWidth)
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	return max(lo, min(v, hi))
}
