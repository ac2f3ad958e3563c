package gpio

import "errors"

// FakeReader is a test double that returns scripted encoder levels.
type FakeReader struct {
	// Samples contains scripted levels to return.
	// Each call to Read() consumes the next sample.
	Samples []Levels

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error

	edges chan struct{}
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []Levels) *FakeReader {
	return &FakeReader{Samples: samples, edges: make(chan struct{}, 1)}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeReader) Read() (Levels, error) {
	if f.ReadError != nil {
		return Levels{}, f.ReadError
	}
	if len(f.Samples) == 0 {
		return Levels{}, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample, nil
}

// Edges returns the channel Kick writes to.
func (f *FakeReader) Edges() <-chan struct{} {
	return f.edges
}

// Kick simulates an edge interrupt without blocking.
func (f *FakeReader) Kick() {
	select {
	case f.edges <- struct{}{}:
	default:
	}
}

// Remaining reports how many scripted samples have not been read yet.
func (f *FakeReader) Remaining() int {
	if len(f.Samples) == 0 {
		return 0
	}
	return len(f.Samples) - 1 - f.index
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Closed = false
}
