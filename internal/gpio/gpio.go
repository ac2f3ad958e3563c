// Package gpio provides rotary encoder input reading with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Levels is one sample of an encoder's three lines, already in logical form.
type Levels struct {
	CLK     bool // raw level of the A line
	DT      bool // raw level of the B line
	Pressed bool // true = button held (switch line pulled low)
}

// Reader reads the lines of one rotary encoder.
type Reader interface {
	// Read returns the current logical levels.
	Read() (Levels, error)

	// Edges delivers a value whenever any line changes. It may be nil for
	// readers without edge detection; callers then rely on polling alone.
	Edges() <-chan struct{}

	// Close releases GPIO resources.
	Close() error
}

// Pins holds the BCM line offsets for one encoder.
type Pins struct {
	CLK int
	DT  int
	SW  int
}
