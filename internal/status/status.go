// Package status provides a thread-safe status tracker for the smartchime daemon.
// The orchestrator loop writes it once per tick; HTTP handlers and the
// MQTT lifecycle events read it.
package status

import (
	"sync"
	"time"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	TickMs      int64
	PollMs      int64
	DebounceMs  int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	SoundDir    string
}

// EncoderStatus summarizes one rotary encoder.
type EncoderStatus struct {
	Name      string
	Position  int
	Steps     int
	Presses   int
	Throttled int
	Bounces   int
}

// LargeDisplayStatus mirrors the large display state.
type LargeDisplayStatus struct {
	Visible     bool
	Source      string
	URL         string
	TriggeredBy string
	Manual      bool
}

// EventCounts counts accepted external events by kind.
type EventCounts struct {
	Doorbell int
	Motion   int
	Message  int
	Track    int
}

// State is the part of the snapshot owned by the orchestrator loop.
type State struct {
	Volume       int
	Muted        bool
	Sound        string
	Playing      string // priority of the in-flight sound, empty when idle
	Message      string
	MotionActive bool
	LastMotion   time.Time
	LastDoorbell time.Time
	Track        string
	Large        LargeDisplayStatus
	Encoders     []EncoderStatus
	Counts       EventCounts
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type: safe to use after the lock is released.
type Snapshot struct {
	State
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update replaces the loop-owned state. Called from the orchestrator on
// every tick.
func (t *Tracker) Update(s State) {
	s.Encoders = append([]EncoderStatus(nil), s.Encoders...)
	t.mu.Lock()
	t.snap.State = s
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Encoders = append([]EncoderStatus(nil), s.Encoders...)
	s.Now = t.now()
	return s
}
