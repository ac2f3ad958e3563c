// Package ingress turns broker messages into normalized External events.
// Malformed payloads are logged, counted and dropped; they never end a
// subscription.
package ingress

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sweeney/smartchime/internal/event"
	"github.com/sweeney/smartchime/internal/metrics"
)

// Subscriber is the broker capability ingress needs. h may be called from
// any goroutine.
type Subscriber interface {
	Subscribe(topic string, h func(topic string, payload []byte)) error
}

// Topics names the subscribed topics. Empty topics are not subscribed.
type Topics struct {
	Doorbell string
	Motion   string
	Message  string
	Track    string
}

// Ingress parses messages and hands events to the orchestrator.
type Ingress struct {
	topics Topics
	out    chan<- event.External
	now    func() time.Time

	mu    sync.Mutex
	track event.Track
}

// New creates an Ingress that delivers to out.
func New(topics Topics, out chan<- event.External, now func() time.Time) *Ingress {
	if now == nil {
		now = time.Now
	}
	return &Ingress{topics: topics, out: out, now: now}
}

// Start subscribes to every configured topic.
func (in *Ingress) Start(sub Subscriber) error {
	for _, topic := range []string{in.topics.Doorbell, in.topics.Motion, in.topics.Message, in.topics.Track} {
		if topic == "" {
			continue
		}
		if err := sub.Subscribe(topic, in.Handle); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		slog.Info("subscribed", "topic", topic)
	}
	return nil
}

// Handle parses one message and forwards the resulting event without
// blocking. It is safe to call from broker callback goroutines.
func (in *Ingress) Handle(topic string, payload []byte) {
	received := in.now()

	ev, ok, err := in.parse(topic, payload)
	if err != nil {
		metrics.RecordMalformed(topic)
		slog.Warn("dropping malformed payload", "topic", topic, "error", err, "bytes", len(payload))
		return
	}
	if !ok {
		return
	}
	ev.Received = received

	select {
	case in.out <- ev:
		metrics.RecordEvent(string(ev.Kind))
		slog.Debug("event received", "kind", ev.Kind, "topic", topic, "active", ev.Active)
	default:
		metrics.RecordQueueDropped("ingress")
		slog.Warn("event queue full, dropping", "kind", ev.Kind, "topic", topic)
	}
}

// parse returns ok=false for well-formed messages that carry nothing to
// deliver, such as unrelated metadata items.
func (in *Ingress) parse(topic string, payload []byte) (event.External, bool, error) {
	switch topic {
	case in.topics.Doorbell:
		ev, err := ParseActivity(event.DoorbellRing, payload)
		return ev, err == nil, err
	case in.topics.Motion:
		ev, err := ParseActivity(event.MotionDetected, payload)
		return ev, err == nil, err
	case in.topics.Message:
		ev, err := ParseMessage(payload)
		return ev, err == nil, err
	case in.topics.Track:
		return in.parseTrack(payload)
	default:
		return event.External{}, false, fmt.Errorf("%w: unexpected topic", ErrMalformed)
	}
}

// parseTrack handles JSON updates, which replace the track, and shairport
// metadata items, which update one field at a time. Items are merged into
// the current track and an event is produced when the title or playback
// state changes.
func (in *Ingress) parseTrack(payload []byte) (event.External, bool, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '<' {
		it, err := parseItem(trimmed)
		if err != nil {
			return event.External{}, false, err
		}
		if !in.applyItem(it) {
			return event.External{}, false, nil
		}
	} else {
		t, err := parseTrackJSON(trimmed)
		if err != nil {
			return event.External{}, false, err
		}
		in.track = t
	}

	t := in.track
	return event.External{Kind: event.TrackMetadata, Active: t.Playing, Track: &t}, true, nil
}

// applyItem merges it into the current track and reports whether an event
// should be emitted.
func (in *Ingress) applyItem(it item) bool {
	switch it.typ + "/" + it.code {
	case "core/asar":
		in.track.Artist = it.data
	case "core/asal":
		in.track.Album = it.data
	case "core/minm":
		in.track.Title = it.data
		in.track.Playing = true
		return true
	case "ssnc/pbeg":
		in.track.Playing = true
		return true
	case "ssnc/pend":
		in.track = event.Track{}
		return true
	}
	return false
}
