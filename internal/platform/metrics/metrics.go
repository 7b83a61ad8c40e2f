package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the broadcast registry.
type Metrics struct {
	registry                 *prometheus.Registry
	requestsTotal            prometheus.Counter
	roomsCreatedTotal        prometheus.Counter
	roomsDeletedTotal        prometheus.Counter
	streamStartsTotal        prometheus.Counter
	streamEndsTotal          prometheus.Counter
	orphanNotificationsTotal prometheus.Counter
	activeRooms              prometheus.Gauge
	activeSessions           prometheus.Gauge
	errorsTotal              prometheus.Counter
}

// New creates and registers Prometheus metrics for the registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audiocast_requests_total",
		Help: "Total number of HTTP requests received",
	})
	roomsCreatedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audiocast_rooms_created_total",
		Help: "Total number of rooms created",
	})
	roomsDeletedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audiocast_rooms_deleted_total",
		Help: "Total number of rooms deleted",
	})
	streamStartsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audiocast_stream_starts_total",
		Help: "Total number of stream_start notifications received",
	})
	streamEndsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audiocast_stream_ends_total",
		Help: "Total number of stream_end notifications received",
	})
	orphanNotificationsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audiocast_orphan_notifications_total",
		Help: "Total number of lifecycle notifications with no matching room",
	})
	activeRooms := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "audiocast_active_rooms",
		Help: "Number of rooms whose stream is currently publishing",
	})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "audiocast_active_sessions",
		Help: "Number of open publishing sessions in the tracker",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audiocast_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})

	registry.MustRegister(
		requestsTotal,
		roomsCreatedTotal,
		roomsDeletedTotal,
		streamStartsTotal,
		streamEndsTotal,
		orphanNotificationsTotal,
		activeRooms,
		activeSessions,
		errorsTotal,
	)

	return &Metrics{
		registry:                 registry,
		requestsTotal:            requestsTotal,
		roomsCreatedTotal:        roomsCreatedTotal,
		roomsDeletedTotal:        roomsDeletedTotal,
		streamStartsTotal:        streamStartsTotal,
		streamEndsTotal:          streamEndsTotal,
		orphanNotificationsTotal: orphanNotificationsTotal,
		activeRooms:              activeRooms,
		activeSessions:           activeSessions,
		errorsTotal:              errorsTotal,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncRoomsCreated increments the rooms created counter.
func (m *Metrics) IncRoomsCreated() {
	m.roomsCreatedTotal.Inc()
}

// IncRoomsDeleted increments the rooms deleted counter.
func (m *Metrics) IncRoomsDeleted() {
	m.roomsDeletedTotal.Inc()
}

// IncStreamStarts increments the stream_start notification counter.
func (m *Metrics) IncStreamStarts() {
	m.streamStartsTotal.Inc()
}

// IncStreamEnds increments the stream_end notification counter.
func (m *Metrics) IncStreamEnds() {
	m.streamEndsTotal.Inc()
}

// IncOrphanNotifications increments the orphan notification counter.
func (m *Metrics) IncOrphanNotifications() {
	m.orphanNotificationsTotal.Inc()
}

// SetActiveRooms sets the active rooms gauge.
func (m *Metrics) SetActiveRooms(n int) {
	m.activeRooms.Set(float64(n))
}

// SetActiveSessions sets the active sessions gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
