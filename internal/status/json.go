package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string        `json:"event,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	Audio         AudioJSON     `json:"audio"`
	Message       string        `json:"message"`
	Motion        MotionJSON    `json:"motion"`
	LastDoorbell  string        `json:"last_doorbell,omitempty"`
	Track         string        `json:"track,omitempty"`
	Large         LargeJSON     `json:"large_display"`
	Encoders      []EncoderJSON `json:"encoders"`
	Counts        CountsJSON    `json:"event_counts"`
	MQTT          MQTTStatus    `json:"mqtt"`
	Network       *NetworkJSON  `json:"network,omitempty"`
	Config        ConfigJSON    `json:"config"`
}

// AudioJSON reports mixer and playback state.
type AudioJSON struct {
	Volume  int    `json:"volume"`
	Muted   bool   `json:"muted"`
	Sound   string `json:"sound"`
	Playing string `json:"playing,omitempty"`
}

// MotionJSON reports motion state.
type MotionJSON struct {
	Active bool   `json:"active"`
	Last   string `json:"last,omitempty"`
}

// LargeJSON reports the large display.
type LargeJSON struct {
	Visible     bool   `json:"visible"`
	Source      string `json:"source"`
	URL         string `json:"url,omitempty"`
	TriggeredBy string `json:"triggered_by,omitempty"`
	Manual      bool   `json:"manual"`
}

// EncoderJSON is the JSON representation of one encoder.
type EncoderJSON struct {
	Name      string `json:"name"`
	Position  int    `json:"position"`
	Steps     int    `json:"steps"`
	Presses   int    `json:"presses"`
	Throttled int    `json:"throttled"`
	Bounces   int    `json:"bounces"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Doorbell int `json:"doorbell"`
	Motion   int `json:"motion"`
	Message  int `json:"message"`
	Track    int `json:"track"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs      int64  `json:"tick_ms"`
	PollMs      int64  `json:"poll_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	SoundDir    string `json:"sound_dir"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildInner(snap Snapshot) StatusInner {
	source := snap.Large.Source
	if source == "" {
		source = "idle"
	}

	encoders := make([]EncoderJSON, 0, len(snap.Encoders))
	for _, e := range snap.Encoders {
		encoders = append(encoders, EncoderJSON(e))
	}

	return StatusInner{
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Audio: AudioJSON{
			Volume:  snap.Volume,
			Muted:   snap.Muted,
			Sound:   snap.Sound,
			Playing: snap.Playing,
		},
		Message:      snap.Message,
		Motion:       MotionJSON{Active: snap.MotionActive, Last: formatTime(snap.LastMotion)},
		LastDoorbell: formatTime(snap.LastDoorbell),
		Track:        snap.Track,
		Large: LargeJSON{
			Visible:     snap.Large.Visible,
			Source:      source,
			URL:         snap.Large.URL,
			TriggeredBy: snap.Large.TriggeredBy,
			Manual:      snap.Large.Manual,
		},
		Encoders: encoders,
		Counts: CountsJSON{
			Doorbell: snap.Counts.Doorbell,
			Motion:   snap.Counts.Motion,
			Message:  snap.Counts.Message,
			Track:    snap.Counts.Track,
		},
		MQTT: MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			TickMs:      snap.Config.TickMs,
			PollMs:      snap.Config.PollMs,
			DebounceMs:  snap.Config.DebounceMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			SoundDir:    snap.Config.SoundDir,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
