//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads one encoder from actual hardware using the Linux GPIO
// character device. Edge events on any of the three lines are forwarded to
// Edges so the controller can sample immediately instead of waiting for the
// next poll.
type RealReader struct {
	chip  *gpiocdev.Chip
	lines *gpiocdev.Lines
	pins  Pins
	edges chan struct{}
	vals  []int
}

// NewRealReader requests the encoder's lines on the named chip.
func NewRealReader(chip string, pins Pins) (*RealReader, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chip, err)
	}

	r := &RealReader{
		chip:  c,
		pins:  pins,
		edges: make(chan struct{}, 1),
		vals:  make([]int, 3),
	}

	// Encoder modules switch to ground, so the lines idle high on pull-ups.
	lines, err := c.RequestLines([]int{pins.CLK, pins.DT, pins.SW},
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(r.onEdge),
		gpiocdev.WithConsumer("smartchime"),
	)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request pins clk=%d dt=%d sw=%d: %w", pins.CLK, pins.DT, pins.SW, err)
	}
	r.lines = lines
	return r, nil
}

func (r *RealReader) onEdge(gpiocdev.LineEvent) {
	select {
	case r.edges <- struct{}{}:
	default:
	}
}

// Read returns the logical levels of the encoder.
// The switch is active low: raw 0 = pressed.
func (r *RealReader) Read() (Levels, error) {
	if err := r.lines.Values(r.vals); err != nil {
		return Levels{}, fmt.Errorf("read encoder pins: %w", err)
	}
	return Levels{
		CLK:     r.vals[0] == 1,
		DT:      r.vals[1] == 1,
		Pressed: r.vals[2] == 0,
	}, nil
}

// Edges delivers a value after any line changes.
func (r *RealReader) Edges() <-chan struct{} {
	return r.edges
}

// Close releases GPIO resources.
// Reconfigures pins to input with pull-down (matching Pi boot defaults) before
// closing to ensure clean state for system shutdown/reboot.
func (r *RealReader) Close() error {
	var errs []error

	if r.lines != nil {
		if err := r.lines.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure encoder pins: %w", err))
		}
		if err := r.lines.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close encoder pins: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
