// Package event defines the immutable values that producers hand to the
// orchestrator: Intents from the encoders and External events from the broker.
// This package has NO external dependencies.
package event

import "time"

// IntentKind is a discrete user intent derived from encoder input.
type IntentKind string

const (
	VolumeUp      IntentKind = "VOLUME_UP"
	VolumeDown    IntentKind = "VOLUME_DOWN"
	MuteToggle    IntentKind = "MUTE_TOGGLE"
	NextSound     IntentKind = "NEXT_SOUND"
	PreviousSound IntentKind = "PREVIOUS_SOUND"
	DisplayToggle IntentKind = "DISPLAY_TOGGLE"
)

// Intent is emitted by an encoder controller after debounce and throttling.
type Intent struct {
	Kind    IntentKind
	Encoder string // configured encoder name
	At      time.Time
}

// Kind identifies an external notification.
type Kind string

const (
	DoorbellRing   Kind = "DOORBELL"
	MotionDetected Kind = "MOTION"
	MessageUpdate  Kind = "MESSAGE"
	TrackMetadata  Kind = "TRACK"
)

// Track holds now-playing metadata from an AirPlay receiver.
type Track struct {
	Artist  string
	Title   string
	Album   string
	Playing bool
}

// External is a normalized network event. Fields not relevant to Kind are zero.
type External struct {
	Kind     Kind
	Active   bool      // doorbell/motion
	At       time.Time // timestamp carried by the payload, zero if none
	VideoURL string    // doorbell/motion, optional
	Text     string    // message
	Track    *Track    // track metadata
	Received time.Time // local receive time
}
