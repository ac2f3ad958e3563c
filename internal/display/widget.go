package display

import (
	"fmt"
	"time"
)

// WidgetKind is the closed set of widgets.
type WidgetKind string

const (
	Clock   WidgetKind = "clock"
	Motion  WidgetKind = "motion"
	Message WidgetKind = "message"
)

// Slot places a widget on the status display.
type Slot struct {
	Kind   WidgetKind
	X, Y   int
	Width  int // 0 = to the right edge
	Scroll bool
}

// WidgetState is what a slot shows.
type WidgetState struct {
	Text         string
	ScrollOffset int
	Visible      bool
}

// inputs is the backing state widget text is derived from.
type inputs struct {
	now          time.Time
	clockFormat  string
	location     *time.Location
	motionActive bool
	lastMotion   time.Time
	message      string
}

// widgetText selects the text for kind. This is the only place widget kinds
// are dispatched.
func widgetText(kind WidgetKind, in inputs) string {
	switch kind {
	case Clock:
		return ClockText(in.now, in.clockFormat, in.location)
	case Motion:
		return MotionText(in.motionActive, in.lastMotion, in.now)
	case Message:
		return in.message
	default:
		return ""
	}
}

// ClockText formats now in loc.
func ClockText(now time.Time, layout string, loc *time.Location) string {
	if loc != nil {
		now = now.In(loc)
	}
	return now.Format(layout)
}

// MotionText reports how long ago motion was seen: "now" while active, then
// whole minutes ("7m") and whole hours ("3h"); "??" before any motion.
func MotionText(active bool, last, now time.Time) string {
	if active {
		return "now"
	}
	if last.IsZero() {
		return "??"
	}
	minutes := int(now.Sub(last) / time.Minute)
	if minutes < 0 {
		minutes = 0
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh", minutes/60)
}
