// Package metrics exposes Prometheus instruments for the processor.
//
// All helpers are safe on a nil *Metrics so components can run without
// instrumentation in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the processor's instruments.
//
//   - radar_messages_total{outcome}           messages reaching a terminal state
//   - radar_events_total{kind}                events persisted (located|locationless)
//   - radar_event_failures_total{stage}       persist/publish/index failures
//   - radar_geocode_lookups_total{tier}       where a lookup was answered
//   - radar_geocode_external_total{result}    external resolver calls
//   - radar_notifications_total{result}       real-time feed deliveries
//   - radar_registry_conflicts                conflicts in the current registry
//   - radar_message_duration_seconds          pipeline time per message
type Metrics struct {
	Messages        *prometheus.CounterVec
	Events          *prometheus.CounterVec
	EventFailures   *prometheus.CounterVec
	GeocodeLookups  *prometheus.CounterVec
	GeocodeExternal *prometheus.CounterVec
	Notifications   *prometheus.CounterVec
	RegistrySize    prometheus.Gauge
	MessageDuration prometheus.Histogram
}

// New creates the instruments and registers them with reg.
// A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "radar_messages_total",
			Help: "Messages that reached a terminal pipeline state.",
		}, []string{"outcome"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "radar_events_total",
			Help: "Events persisted.",
		}, []string{"kind"}),
		EventFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "radar_event_failures_total",
			Help: "Event persistence, publish and index failures.",
		}, []string{"stage"}),
		GeocodeLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "radar_geocode_lookups_total",
			Help: "Geocode lookups by answering cache tier.",
		}, []string{"tier"}),
		GeocodeExternal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "radar_geocode_external_total",
			Help: "External geocoder calls by result.",
		}, []string{"result"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "radar_notifications_total",
			Help: "Real-time notifications by handling result.",
		}, []string{"result"}),
		RegistrySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "radar_registry_conflicts",
			Help: "Conflicts in the active registry snapshot.",
		}),
		MessageDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "radar_message_duration_seconds",
			Help:    "Time spent processing one message.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Messages, m.Events, m.EventFailures,
			m.GeocodeLookups, m.GeocodeExternal, m.Notifications,
			m.RegistrySize, m.MessageDuration,
		)
	}
	return m
}

// MessageDone records a terminal outcome and its duration.
func (m *Metrics) MessageDone(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Messages.WithLabelValues(outcome).Inc()
	m.MessageDuration.Observe(elapsed.Seconds())
}

// EventStored counts a persisted event.
func (m *Metrics) EventStored(located bool) {
	if m == nil {
		return
	}
	kind := "locationless"
	if located {
		kind = "located"
	}
	m.Events.WithLabelValues(kind).Inc()
}

// EventFailed counts a failure at stage.
func (m *Metrics) EventFailed(stage string) {
	if m == nil {
		return
	}
	m.EventFailures.WithLabelValues(stage).Inc()
}

// GeocodeTier counts which tier answered a lookup.
func (m *Metrics) GeocodeTier(tier string) {
	if m == nil {
		return
	}
	m.GeocodeLookups.WithLabelValues(tier).Inc()
}

// GeocodeCall counts an external resolver call.
func (m *Metrics) GeocodeCall(result string) {
	if m == nil {
		return
	}
	m.GeocodeExternal.WithLabelValues(result).Inc()
}

// Notification counts a real-time delivery.
func (m *Metrics) Notification(result string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(result).Inc()
}

// Registry records the current registry size.
func (m *Metrics) Registry(n int) {
	if m == nil {
		return
	}
	m.RegistrySize.Set(float64(n))
}
