//go:build !linux

package gpio

import "errors"

// RealReader is not available on non-Linux platforms.
type RealReader struct{}

// NewRealReader returns an error on non-Linux platforms.
func NewRealReader(chip string, pins Pins) (*RealReader, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (r *RealReader) Read() (Levels, error) {
	return Levels{}, errors.New("gpio: not supported")
}

// Edges returns nil on non-Linux platforms.
func (r *RealReader) Edges() <-chan struct{} {
	return nil
}

// Close is not implemented on non-Linux platforms.
func (r *RealReader) Close() error {
	return nil
}
