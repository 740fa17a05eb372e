// Package observability exposes the relay's Prometheus metrics.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects relay metrics on its own registry. It implements the
// observer interfaces of the hub, the router and the location aggregator.
//
// Usage:
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	registry := hub.NewRegistry(hub.NewDirectory(metrics), metrics, logger)
//	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
type Metrics struct {
	registry *prometheus.Registry

	// ActiveConnections is the number of registered connections.
	ActiveConnections prometheus.Gauge

	// ActiveRooms is the number of non-empty rooms.
	ActiveRooms prometheus.Gauge

	// EventsRouted counts accepted inbound events.
	// Labels: event
	EventsRouted *prometheus.CounterVec

	// EventsRejected counts rejected inbound events.
	// Labels: event, code
	EventsRejected *prometheus.CounterVec

	// FramesDropped counts outbound frames lost to full connection buffers.
	FramesDropped prometheus.Counter

	// LocationSamples counts driver samples by outcome.
	// Labels: outcome (broadcast|coalesced|flushed|stale|rejected)
	LocationSamples *prometheus.CounterVec

	// HTTPRequestDuration measures HTTP request latency.
	// Labels: method, path, status_code
	HTTPRequestDuration *prometheus.HistogramVec
}

func NewMetrics(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,

		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "relay_active_connections",
			Help: "Number of live client connections",
		}),

		ActiveRooms: factory.NewGauge(prometheus.GaugeOpts{
			Name: "relay_active_rooms",
			Help: "Number of rooms with at least one member",
		}),

		EventsRouted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_events_routed_total",
				Help: "Total number of inbound events routed by event type",
			},
			[]string{"event"},
		),

		EventsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_events_rejected_total",
				Help: "Total number of inbound events rejected by event type and error code",
			},
			[]string{"event", "code"},
		),

		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_frames_dropped_total",
			Help: "Total number of outbound frames dropped because a connection buffer was full",
		}),

		LocationSamples: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_location_samples_total",
				Help: "Total number of driver location samples by outcome",
			},
			[]string{"outcome"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "path", "status_code"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ConnectionOpened() { m.ActiveConnections.Inc() }
func (m *Metrics) ConnectionClosed() { m.ActiveConnections.Dec() }
func (m *Metrics) RoomCreated()      { m.ActiveRooms.Inc() }
func (m *Metrics) RoomDeleted()      { m.ActiveRooms.Dec() }

func (m *Metrics) EventRouted(eventType string) {
	m.EventsRouted.WithLabelValues(eventType).Inc()
}

func (m *Metrics) EventRejected(eventType, code string) {
	m.EventsRejected.WithLabelValues(eventType, code).Inc()
}

func (m *Metrics) FrameDropped() { m.FramesDropped.Inc() }

func (m *Metrics) ObserveSample(outcome string) {
	m.LocationSamples.WithLabelValues(outcome).Inc()
}

// Middleware records the latency of every echo request by route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			m.HTTPRequestDuration.
				WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}
