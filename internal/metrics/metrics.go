// Package metrics exposes Prometheus counters for the control loop.
// Throttle denials and rejected playback are normal outcomes; these counters
// are the only place they are visible besides debug logs.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "smartchime"

var (
	throttleDenied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "throttle_denied_total",
			Help:      "Actions dropped by the throttle gate, by category.",
		},
		[]string{"category"},
	)
	intents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_total",
			Help:      "Intents emitted by the encoder controllers, by kind.",
		},
		[]string{"kind"},
	)
	queueDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_dropped_total",
			Help:      "Values dropped because the hand-off queue was full, by source.",
		},
		[]string{"source"},
	)
	events = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "External events accepted by ingress, by kind.",
		},
		[]string{"kind"},
	)
	malformed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_malformed_total",
			Help:      "Payloads dropped by ingress because they could not be parsed, by topic.",
		},
		[]string{"topic"},
	)
	playback = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_requests_total",
			Help:      "Playback requests by priority and outcome.",
		},
		[]string{"priority", "outcome"},
	)
	deviceErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_errors_total",
			Help:      "Failed collaborator calls, by device.",
		},
		[]string{"device"},
	)
	volume = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "volume_level",
			Help:      "Current volume level (0-100); -1 while muted.",
		},
	)
	brokerConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "broker_connected",
			Help:      "1 while the MQTT connection is up.",
		},
	)
)

var registerMetrics sync.Once

// Register adds all collectors to reg once.
func Register(reg prometheus.Registerer) {
	registerMetrics.Do(func() {
		reg.MustRegister(throttleDenied, intents, queueDropped, events, malformed, playback, deviceErrors, volume, brokerConnected)
	})
}

// RecordThrottleDenied counts an action dropped by the gate.
func RecordThrottleDenied(category string) {
	throttleDenied.WithLabelValues(category).Inc()
}

// RecordIntent counts an emitted intent.
func RecordIntent(kind string) {
	intents.WithLabelValues(kind).Inc()
}

// RecordQueueDropped counts a value that did not fit the hand-off queue.
func RecordQueueDropped(source string) {
	queueDropped.WithLabelValues(source).Inc()
}

// RecordEvent counts an accepted external event.
func RecordEvent(kind string) {
	events.WithLabelValues(kind).Inc()
}

// RecordMalformed counts a dropped payload.
func RecordMalformed(topic string) {
	malformed.WithLabelValues(topic).Inc()
}

// RecordPlayback counts a playback decision.
func RecordPlayback(priority, outcome string) {
	playback.WithLabelValues(priority, outcome).Inc()
}

// RecordDeviceError counts a failed collaborator call.
func RecordDeviceError(device string) {
	deviceErrors.WithLabelValues(device).Inc()
}

// SetVolume publishes the current volume state.
func SetVolume(level int, muted bool) {
	if muted {
		volume.Set(-1)
		return
	}
	volume.Set(float64(level))
}

// SetBrokerConnected records the MQTT connection state.
func SetBrokerConnected(up bool) {
	if up {
		brokerConnected.Set(1)
		return
	}
	brokerConnected.Set(0)
}
