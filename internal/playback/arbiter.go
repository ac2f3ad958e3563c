// Package playback decides which sound requests reach the audio device and
// owns the volume state. It is driven only from the orchestrator loop.
package playback

import (
	"log/slog"
	"time"

	"github.com/sweeney/smartchime/internal/audio"
	"github.com/sweeney/smartchime/internal/event"
	"github.com/sweeney/smartchime/internal/metrics"
	"github.com/sweeney/smartchime/internal/throttle"
)

// Priority orders competing requests. Higher wins.
type Priority int

const (
	Motion Priority = iota + 1
	Doorbell
)

func (p Priority) String() string {
	switch p {
	case Doorbell:
		return "doorbell"
	case Motion:
		return "motion"
	default:
		return "unknown"
	}
}

// Category returns the throttle category for p.
func (p Priority) Category() throttle.Category {
	if p == Doorbell {
		return throttle.Doorbell
	}
	return throttle.Motion
}

// Request asks for one sound to be played.
type Request struct {
	SoundPath   string // empty = accept without sound
	Priority    Priority
	RequestedAt time.Time
}

// Volume is the mixer state.
type Volume struct {
	Level int // 0..100
	Muted bool
}

// Outcome describes what happened to a request.
type Outcome string

const (
	Played     Outcome = "played"
	Preempted  Outcome = "preempted" // accepted, stopped a lower priority sound
	Silent     Outcome = "silent"    // accepted, nothing to play
	Busy       Outcome = "busy"
	Throttled  Outcome = "throttled"
	PlayFailed Outcome = "failed" // accepted, device error
)

// Accepted reports whether o won arbitration.
func (o Outcome) Accepted() bool {
	return o != Busy && o != Throttled
}

// Acquirer is the throttle gate.
type Acquirer interface {
	TryAcquire(c throttle.Category, now time.Time) bool
}

// Config holds arbiter settings.
type Config struct {
	VolumeStep    int
	InitialVolume int
	MaxPlayback   time.Duration // in-flight bound when the device cannot report completion
}

type flight struct {
	priority Priority
	path     string
	done     <-chan struct{}
	deadline time.Time
}

// Arbiter serializes playback. Not safe for concurrent use.
type Arbiter struct {
	cfg    Config
	out    audio.Output
	gate   Acquirer
	sounds *audio.Library

	volume   Volume
	inflight *flight
}

// NewArbiter creates an Arbiter. sounds may be nil.
func NewArbiter(cfg Config, out audio.Output, gate Acquirer, sounds *audio.Library) *Arbiter {
	if sounds == nil {
		sounds = audio.NewLibrary("")
	}
	return &Arbiter{
		cfg:    cfg,
		out:    out,
		gate:   gate,
		sounds: sounds,
		volume: Volume{Level: clampLevel(cfg.InitialVolume)},
	}
}

// Init pushes the initial volume to the device.
func (a *Arbiter) Init() {
	a.applyMixer()
}

// RequestPlayback reports whether req was accepted. A request is accepted
// when no request of equal or higher priority is still playing and the
// gate grants its category. Accepting a doorbell stops a playing motion
// sound first. Device failures after acceptance are logged and counted but
// do not change the decision.
func (a *Arbiter) RequestPlayback(req Request) bool {
	return a.Decide(req).Accepted()
}

// Decide is RequestPlayback with the detailed outcome.
func (a *Arbiter) Decide(req Request) Outcome {
	o := a.decide(req)
	metrics.RecordPlayback(req.Priority.String(), string(o))
	switch o {
	case Busy, Throttled:
		slog.Debug("playback rejected", "priority", req.Priority, "outcome", o)
	default:
		slog.Info("playback accepted", "priority", req.Priority, "outcome", o, "sound", req.SoundPath, "muted", a.volume.Muted)
	}
	return o
}

func (a *Arbiter) decide(req Request) Outcome {
	now := req.RequestedAt
	a.reap(now)

	if a.inflight != nil && a.inflight.priority >= req.Priority {
		return Busy
	}
	if !a.gate.TryAcquire(req.Priority.Category(), now) {
		metrics.RecordThrottleDenied(string(req.Priority.Category()))
		return Throttled
	}

	outcome := Played
	if a.inflight != nil {
		if err := a.out.Stop(); err != nil {
			metrics.RecordDeviceError("audio")
			slog.Warn("stop playback failed", "error", err)
		}
		slog.Info("playback preempted", "stopped", a.inflight.priority, "by", req.Priority)
		a.inflight = nil
		outcome = Preempted
	}

	if req.SoundPath == "" {
		return Silent
	}

	done, err := a.out.Play(req.SoundPath)
	if err != nil {
		metrics.RecordDeviceError("audio")
		slog.Warn("play failed", "sound", req.SoundPath, "error", err)
		return PlayFailed
	}
	a.inflight = &flight{
		priority: req.Priority,
		path:     req.SoundPath,
		done:     done,
		deadline: now.Add(a.cfg.MaxPlayback),
	}
	return outcome
}

// reap clears the in-flight request once the device reports completion, or,
// for a device without a completion channel, once the playback bound has
// passed.
func (a *Arbiter) reap(now time.Time) {
	if a.inflight == nil {
		return
	}
	if a.inflight.done != nil {
		select {
		case <-a.inflight.done:
			a.inflight = nil
		default:
		}
		return
	}
	if !now.Before(a.inflight.deadline) {
		a.inflight = nil
	}
}

// Playing returns the priority of the in-flight request, or 0.
func (a *Arbiter) Playing(now time.Time) Priority {
	a.reap(now)
	if a.inflight == nil {
		return 0
	}
	return a.inflight.priority
}

// Volume returns the current mixer state.
func (a *Arbiter) Volume() Volume {
	return a.volume
}

// Sound returns the name of the sound used for the next doorbell.
func (a *Arbiter) Sound() string {
	return a.sounds.Current()
}

// SoundPath returns the path of the sound used for the next doorbell.
func (a *Arbiter) SoundPath() string {
	return a.sounds.Path()
}

// Change is the visible result of an applied intent.
type Change struct {
	Volume  Volume
	Sound   string // set for sound selection
	Ignored bool   // volume change while muted
}

// ApplyIntent applies a volume, mute or sound selection intent. It reports
// false for intents the arbiter does not own.
func (a *Arbiter) ApplyIntent(kind event.IntentKind) (Change, bool) {
	switch kind {
	case event.VolumeUp, event.VolumeDown:
		if a.volume.Muted {
			slog.Info("volume change ignored while muted")
			return Change{Volume: a.volume, Ignored: true}, true
		}
		delta := a.cfg.VolumeStep
		if kind == event.VolumeDown {
			delta = -delta
		}
		old := a.volume.Level
		a.volume.Level = clampLevel(old + delta)
		if a.volume.Level != old {
			a.setVolume()
		}
		slog.Info("volume adjusted", "from", old, "to", a.volume.Level)
		return Change{Volume: a.volume}, true

	case event.MuteToggle:
		a.volume.Muted = !a.volume.Muted
		a.setMuted()
		slog.Info("mute toggled", "muted", a.volume.Muted)
		return Change{Volume: a.volume}, true

	case event.NextSound, event.PreviousSound:
		if a.sounds.Len() == 0 {
			slog.Warn("cannot select sound: no sounds available")
			return Change{Volume: a.volume}, true
		}
		var name string
		if kind == event.NextSound {
			name = a.sounds.Next()
		} else {
			name = a.sounds.Previous()
		}
		slog.Info("selected sound", "sound", name)
		return Change{Volume: a.volume, Sound: name}, true
	}
	return Change{}, false
}

func (a *Arbiter) applyMixer() {
	a.setVolume()
	a.setMuted()
}

func (a *Arbiter) setVolume() {
	metrics.SetVolume(a.volume.Level, a.volume.Muted)
	if err := a.out.SetVolume(a.volume.Level); err != nil {
		metrics.RecordDeviceError("mixer")
		slog.Warn("set volume failed", "level", a.volume.Level, "error", err)
	}
}

func (a *Arbiter) setMuted() {
	metrics.SetVolume(a.volume.Level, a.volume.Muted)
	if err := a.out.SetMuted(a.volume.Muted); err != nil {
		metrics.RecordDeviceError("mixer")
		slog.Warn("set mute failed", "muted", a.volume.Muted, "error", err)
	}
}

func clampLevel(l int) int {
	if l < 0 {
		return 0
	}
	if l > 100 {
		return 100
	}
	return l
}
