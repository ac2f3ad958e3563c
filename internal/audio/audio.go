// Package audio provides the sound output device and the sound library.
package audio

// Output plays sounds and controls the mixer.
type Output interface {
	// Play starts path and returns a channel that is closed when playback
	// ends. A nil channel means the device cannot report completion.
	Play(path string) (<-chan struct{}, error)

	// Stop ends the current playback, if any.
	Stop() error

	// SetVolume sets the mixer level, 0-100.
	SetVolume(level int) error

	// SetMuted mutes or unmutes the mixer without changing the level.
	SetMuted(muted bool) error
}
