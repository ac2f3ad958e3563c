package audio

import "sync"

// FakeOutput records calls for testing. Playback stays active until Finish
// or Stop is called.
type FakeOutput struct {
	mu sync.Mutex

	// Played lists every path passed to Play, in order.
	Played []string

	// Stops counts calls to Stop.
	Stops int

	// Volume and Muted hold the last mixer settings.
	Volume int
	Muted  bool

	// PlayError, if set, is returned by Play.
	PlayError error

	// MixerError, if set, is returned by SetVolume and SetMuted.
	MixerError error

	// NoCompletion makes Play return a nil channel.
	NoCompletion bool

	done chan struct{}
}

// NewFakeOutput creates a FakeOutput.
func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// Play records path and starts a simulated playback.
func (f *FakeOutput) Play(path string) (<-chan struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PlayError != nil {
		return nil, f.PlayError
	}
	f.Played = append(f.Played, path)
	f.finishLocked()
	if f.NoCompletion {
		return nil, nil
	}
	f.done = make(chan struct{})
	return f.done, nil
}

// Stop ends the simulated playback.
func (f *FakeOutput) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Stops++
	f.finishLocked()
	return nil
}

// Finish completes the current playback as if the sound ended.
func (f *FakeOutput) Finish() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finishLocked()
}

func (f *FakeOutput) finishLocked() {
	if f.done != nil {
		close(f.done)
		f.done = nil
	}
}

// SetVolume records level.
func (f *FakeOutput) SetVolume(level int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.MixerError != nil {
		return f.MixerError
	}
	f.Volume = level
	return nil
}

// SetMuted records muted.
func (f *FakeOutput) SetMuted(muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.MixerError != nil {
		return f.MixerError
	}
	f.Muted = muted
	return nil
}

// PlayedPaths returns a copy of Played.
func (f *FakeOutput) PlayedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Played...)
}
