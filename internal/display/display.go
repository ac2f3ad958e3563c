// Package display composes the status display and controls the on-demand
// video display.
//
// The Composer decides what every widget slot shows and is advanced once per
// loop tick; event delivery only changes its backing state. The Raster turns
// a Frame into pixels for a Panel. Large drives the HDMI display through a
// LargeDisplay collaborator.
package display

import (
	"image"
	"time"
)

// Frame is one rendered state of the status display.
type Frame struct {
	At      time.Time
	Width   int
	Height  int
	Widgets []Widget
	Notice  *Notice
}

// Widget is a slot together with its state for one frame.
type Widget struct {
	Slot
	WidgetState
}

// Notice is a temporary two-line message shown in place of the content area.
type Notice struct {
	Line1 string
	Line2 string
	Until time.Time
}

// StatusDisplay renders frames. Called once per tick from the loop.
type StatusDisplay interface {
	Render(f Frame) error
}

// Panel is a pixel device. periph.io display drivers satisfy it.
type Panel interface {
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Halt() error
}

// LargeDisplay shows and hides the video display.
type LargeDisplay interface {
	Show(src Source) error
	Hide() error
}
