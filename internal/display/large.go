package display

import (
	"log/slog"
	"time"

	"github.com/sweeney/smartchime/internal/metrics"
)

// SourceKind says what the large display is showing.
type SourceKind string

const (
	SourceIdle   SourceKind = "idle"
	SourceStream SourceKind = "stream" // the configured default stream
	SourceClip   SourceKind = "clip"   // a URL carried by an event
)

// Source is what to show.
type Source struct {
	Kind SourceKind
	URL  string
}

// Trigger records why the display became visible.
type Trigger string

const (
	TriggerNone     Trigger = ""
	TriggerManual   Trigger = "manual"
	TriggerDoorbell Trigger = "doorbell"
	TriggerMotion   Trigger = "motion"
)

// LargeState is the on-demand display state.
type LargeState struct {
	Visible     bool
	Source      Source
	TriggeredBy Trigger
	ActivatedAt time.Time
	HoldUntil   time.Time // auto-show expiry
	Manual      bool      // user override; automatic triggers are ignored
	ManualUntil time.Time // zero = until toggled again (manual show only)
}

// LargeConfig holds the large display policy.
type LargeConfig struct {
	DefaultStream string
	Hold          time.Duration // auto-show duration, renewed by further events
	ManualHold    time.Duration // 0 = a manual show is kept until toggled again
}

// Large owns LargeState and drives the collaborator. Not safe for
// concurrent use.
type Large struct {
	cfg   LargeConfig
	dev   LargeDisplay
	state LargeState
}

// NewLarge creates a hidden Large.
func NewLarge(cfg LargeConfig, dev LargeDisplay) *Large {
	return &Large{cfg: cfg, dev: dev, state: LargeState{Source: Source{Kind: SourceIdle}}}
}

// State returns a copy of the state.
func (l *Large) State() LargeState {
	return l.state
}

// Toggle flips visibility on user request. A manual show is sticky: automatic
// triggers and hold expiry leave it alone until the next Toggle, or until
// ManualHold passes when configured. A manual hide of an auto-shown display
// blocks automatic triggers only until its hold would have expired, or for
// ManualHold when configured.
func (l *Large) Toggle(now time.Time) {
	pending := l.state.HoldUntil
	l.state.HoldUntil = time.Time{}
	l.state.Manual = false
	l.state.ManualUntil = time.Time{}

	if l.state.Visible {
		until := pending
		if l.cfg.ManualHold > 0 {
			until = now.Add(l.cfg.ManualHold)
		}
		if until.After(now) {
			l.state.Manual = true
			l.state.ManualUntil = until
		}
		l.hide("manual")
		return
	}

	l.state.Manual = true
	if l.cfg.ManualHold > 0 {
		l.state.ManualUntil = now.Add(l.cfg.ManualHold)
	}
	l.show(Source{Kind: SourceStream, URL: l.cfg.DefaultStream}, TriggerManual, now)
}

// AutoShow handles a doorbell or motion event configured to show the
// display. It returns false when manual state blocks it. A visible
// auto-shown display has its hold renewed and switches only when the event
// carries a different url.
func (l *Large) AutoShow(trigger Trigger, url string, now time.Time) bool {
	if l.state.Manual {
		slog.Debug("auto show suppressed by manual state", "trigger", trigger)
		return false
	}

	src := Source{Kind: SourceStream, URL: l.cfg.DefaultStream}
	if url != "" && url != l.cfg.DefaultStream {
		src = Source{Kind: SourceClip, URL: url}
	}

	l.state.HoldUntil = now.Add(l.cfg.Hold)
	if l.state.Visible && (url == "" || l.state.Source == src) {
		l.state.TriggeredBy = trigger
		return true
	}
	l.show(src, trigger, now)
	return true
}

// Tick applies expiry. An auto-shown display hides once its hold passes;
// a timed manual state is released, hiding the display if it was shown.
func (l *Large) Tick(now time.Time) {
	if l.state.Manual {
		if l.state.ManualUntil.IsZero() || now.Before(l.state.ManualUntil) {
			return
		}
		l.state.Manual = false
		l.state.ManualUntil = time.Time{}
		if l.state.Visible {
			l.hide("manual hold expired")
		}
		return
	}
	if l.state.Visible && !now.Before(l.state.HoldUntil) {
		l.hide("hold expired")
	}
}

// Close hides the display if it is visible.
func (l *Large) Close() {
	if l.state.Visible {
		l.hide("shutdown")
	}
}

func (l *Large) show(src Source, trigger Trigger, now time.Time) {
	l.state.Visible = true
	l.state.Source = src
	l.state.TriggeredBy = trigger
	l.state.ActivatedAt = now
	slog.Info("large display shown", "trigger", trigger, "source", src.Kind, "url", src.URL)
	if err := l.dev.Show(src); err != nil {
		metrics.RecordDeviceError("hdmi")
		slog.Warn("show large display failed", "error", err)
	}
}

func (l *Large) hide(reason string) {
	l.state.Visible = false
	l.state.Source = Source{Kind: SourceIdle}
	l.state.TriggeredBy = TriggerNone
	slog.Info("large display hidden", "reason", reason)
	if err := l.dev.Hide(); err != nil {
		metrics.RecordDeviceError("hdmi")
		slog.Warn("hide large display failed", "error", err)
	}
}
