// Package orchestrator runs the single loop that serializes every effectful
// decision. Producers hand it Intents and External events over channels; a
// periodic tick advances the displays independently of event arrival.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/sweeney/smartchime/internal/display"
	"github.com/sweeney/smartchime/internal/encoder"
	"github.com/sweeney/smartchime/internal/event"
	"github.com/sweeney/smartchime/internal/metrics"
	"github.com/sweeney/smartchime/internal/mqtt"
	"github.com/sweeney/smartchime/internal/playback"
	"github.com/sweeney/smartchime/internal/status"
)

// Notice texts shown on the status display.
const (
	NoticeVolume      = "Volume:"
	NoticeMuted       = "MUTE"
	NoticeSelectSound = "Select sound:"
	NoticeDoorbell    = "Someone's at the door!"
	NoticeMotion      = "Person detected on doorbell camera!"
	NoticeTrackPrefix = "♫ "
)

// Config holds loop policy.
type Config struct {
	Heartbeat        time.Duration // 0 disables
	MotionSound      string        // path; empty = motion is silent
	AutoShowDoorbell bool
	AutoShowMotion   bool
}

// SystemPublisher receives lifecycle events.
type SystemPublisher interface {
	PublishSystem(event mqtt.SystemEvent) error
}

// Deps are the components the loop drives. Status, Tracker, Publisher,
// Connection and Network may be nil.
type Deps struct {
	Arbiter    *playback.Arbiter
	Composer   *display.Composer
	Status     display.StatusDisplay
	Large      *display.Large
	Encoders   []*encoder.Controller
	Tracker    *status.Tracker
	Publisher  SystemPublisher
	Connection mqtt.ConnectionStatus

	// Network is re-read on every heartbeat.
	Network func() *status.NetworkInfo
}

// Orchestrator owns the appliance state. Not safe for concurrent use: only
// Run touches it.
type Orchestrator struct {
	cfg Config
	Deps
	now func() time.Time

	lastDoorbell  time.Time
	motionActive  bool
	lastMotion    time.Time
	track         string
	counts        status.EventCounts
	lastHeartbeat time.Time
	renderFault   bool
}

// New creates an Orchestrator. now may be nil.
func New(cfg Config, d Deps, now func() time.Time) *Orchestrator {
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{cfg: cfg, Deps: d, now: now}
}

// Start publishes the STARTUP event and sets the heartbeat baseline.
func (o *Orchestrator) Start() {
	t := o.now()
	o.lastHeartbeat = t
	o.updateTracker(t)
	o.publish(mqtt.EventStartup, "", t, true)
}

// Run processes intents, events and ticks until a signal arrives or ctx is
// done, then publishes SHUTDOWN. It never blocks for longer than one tick
// plus the handling of one pending item.
func (o *Orchestrator) Run(ctx context.Context, intents <-chan event.Intent, events <-chan event.External, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			reason := signalName(s)
			slog.Info("shutting down", "signal", reason)
			o.publish(mqtt.EventShutdown, reason, o.now(), true)
			return nil

		case <-ctx.Done():
			o.publish(mqtt.EventShutdown, "CANCELLED", o.now(), true)
			return ctx.Err()

		case in := <-intents:
			o.HandleIntent(in)

		case ev := <-events:
			o.HandleEvent(ev)

		case <-tick:
			o.Tick(o.now())
		}
	}
}

// HandleIntent applies one user intent.
func (o *Orchestrator) HandleIntent(in event.Intent) {
	t := o.now()
	slog.Debug("intent", "kind", in.Kind, "encoder", in.Encoder)

	if in.Kind == event.DisplayToggle {
		o.Large.Toggle(t)
		return
	}

	ch, ok := o.Arbiter.ApplyIntent(in.Kind)
	if !ok {
		slog.Warn("unhandled intent", "kind", in.Kind)
		return
	}
	switch in.Kind {
	case event.NextSound, event.PreviousSound:
		name := ch.Sound
		if name == "" {
			name = "none"
		}
		o.Composer.ShowNotice(NoticeSelectSound, name, t)
	default:
		o.Composer.ShowNotice(NoticeVolume, volumeText(ch.Volume), t)
	}
}

// HandleEvent applies one external event.
func (o *Orchestrator) HandleEvent(ev event.External) {
	t := o.now()

	switch ev.Kind {
	case event.DoorbellRing:
		if !ev.Active {
			o.Composer.ClearNotice(NoticeDoorbell)
			return
		}
		o.counts.Doorbell++
		o.lastDoorbell = ev.Received
		// The video hold follows every ring, the sound and notice only
		// accepted ones.
		if o.cfg.AutoShowDoorbell {
			o.Large.AutoShow(display.TriggerDoorbell, ev.VideoURL, t)
		}
		req := playback.Request{SoundPath: o.Arbiter.SoundPath(), Priority: playback.Doorbell, RequestedAt: t}
		if o.Arbiter.RequestPlayback(req) {
			o.Composer.ShowNotice(NoticeDoorbell, "", t)
		}

	case event.MotionDetected:
		o.Composer.SetMotion(ev.Active, ev.Received)
		o.motionActive = ev.Active
		o.lastMotion = ev.Received
		if !ev.Active {
			o.Composer.ClearNotice(NoticeMotion)
			return
		}
		o.counts.Motion++
		if o.cfg.AutoShowMotion {
			o.Large.AutoShow(display.TriggerMotion, ev.VideoURL, t)
		}
		req := playback.Request{SoundPath: o.cfg.MotionSound, Priority: playback.Motion, RequestedAt: t}
		if o.Arbiter.RequestPlayback(req) {
			o.Composer.ShowNotice(NoticeMotion, "", t)
		}

	case event.MessageUpdate:
		o.counts.Message++
		o.Composer.SetMessage(ev.Text)
		slog.Info("message updated", "text", ev.Text)

	case event.TrackMetadata:
		o.counts.Track++
		if ev.Track == nil || !ev.Track.Playing || ev.Track.Title == "" {
			o.track = ""
			return
		}
		o.track = ev.Track.Title
		if ev.Track.Artist != "" {
			o.track = ev.Track.Artist + " - " + ev.Track.Title
		}
		o.Composer.ShowNotice(NoticeTrackPrefix+ev.Track.Title, ev.Track.Artist, t)

	default:
		slog.Warn("unhandled event", "kind", ev.Kind)
	}
}

// Tick advances the displays and housekeeping by one period.
func (o *Orchestrator) Tick(t time.Time) {
	frame := o.Composer.Tick(t)
	if o.Status != nil {
		if err := o.Status.Render(frame); err != nil {
			if !o.renderFault {
				slog.Warn("status display render failed", "error", err)
				o.renderFault = true
			}
			metrics.RecordDeviceError("oled")
		} else if o.renderFault {
			slog.Info("status display recovered")
			o.renderFault = false
		}
	}

	o.Large.Tick(t)
	o.Arbiter.Playing(t)
	o.updateTracker(t)

	if o.cfg.Heartbeat > 0 && t.Sub(o.lastHeartbeat) >= o.cfg.Heartbeat {
		o.lastHeartbeat = t
		if o.Network != nil && o.Tracker != nil {
			if info := o.Network(); info != nil {
				o.Tracker.SetNetwork(info)
			}
		}
		slog.Info("heartbeat", "doorbell", o.counts.Doorbell, "motion", o.counts.Motion, "message", o.counts.Message)
		o.publish(mqtt.EventHeartbeat, "", t, false)
	}
}

// State returns the loop-owned state as published to the tracker.
func (o *Orchestrator) State(t time.Time) status.State {
	vol := o.Arbiter.Volume()
	ls := o.Large.State()

	var playing string
	if p := o.Arbiter.Playing(t); p != 0 {
		playing = p.String()
	}

	encoders := make([]status.EncoderStatus, 0, len(o.Encoders))
	for _, c := range o.Encoders {
		counts := c.Counts()
		encoders = append(encoders, status.EncoderStatus{
			Name:      c.Name(),
			Position:  c.State().Position,
			Steps:     counts.Steps,
			Presses:   counts.Presses,
			Throttled: counts.Throttled,
			Bounces:   counts.Bounces,
		})
	}

	return status.State{
		Volume:       vol.Level,
		Muted:        vol.Muted,
		Sound:        o.Arbiter.Sound(),
		Playing:      playing,
		Message:      o.Composer.Message(),
		MotionActive: o.motionActive,
		LastMotion:   o.lastMotion,
		LastDoorbell: o.lastDoorbell,
		Track:        o.track,
		Large: status.LargeDisplayStatus{
			Visible:     ls.Visible,
			Source:      string(ls.Source.Kind),
			URL:         ls.Source.URL,
			TriggeredBy: string(ls.TriggeredBy),
			Manual:      ls.Manual,
		},
		Encoders: encoders,
		Counts:   o.counts,
	}
}

func (o *Orchestrator) updateTracker(t time.Time) {
	if o.Tracker == nil {
		return
	}
	o.Tracker.Update(o.State(t))
	if o.Connection != nil {
		o.Tracker.SetMQTTConnected(o.Connection.IsConnected())
	}
}

func (o *Orchestrator) publish(name, reason string, t time.Time, retained bool) {
	if o.Publisher == nil {
		return
	}
	ev := mqtt.SystemEvent{Timestamp: t, Event: name, Reason: reason, Retained: retained}
	if o.Tracker != nil {
		o.updateTracker(t)
		ev.RawPayload = status.FormatStatusEvent(o.Tracker.Snapshot(), name, reason)
	}
	if err := o.Publisher.PublishSystem(ev); err != nil {
		slog.Warn("publish system event failed", "event", name, "error", err)
		return
	}
	slog.Debug("published system event", "event", name)
}

func volumeText(v playback.Volume) string {
	if v.Muted {
		return NoticeMuted
	}
	return fmt.Sprintf("%d%%", v.Level)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}
