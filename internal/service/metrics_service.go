package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the websocket fan-out.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	wsConnections   prometheus.Gauge
	wsBroadcasts    prometheus.Counter
	wsDropped       prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	wsConnections := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections",
		Help: "Currently connected websocket clients",
	})

	wsBroadcasts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "websocket_broadcasts_total",
		Help: "Total events broadcast to websocket clients",
	})

	wsDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "websocket_dropped_messages_total",
		Help: "Messages dropped because a client could not keep up",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, wsConnections, wsBroadcasts, wsDropped, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		wsConnections:   wsConnections,
		wsBroadcasts:    wsBroadcasts,
		wsDropped:       wsDropped,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ClientConnected tracks a new websocket subscriber.
func (m *MetricsService) ClientConnected() {
	if m == nil {
		return
	}
	m.wsConnections.Inc()
}

// ClientDisconnected tracks a departed websocket subscriber.
func (m *MetricsService) ClientDisconnected() {
	if m == nil {
		return
	}
	m.wsConnections.Dec()
}

// ObserveBroadcast counts one fan-out event.
func (m *MetricsService) ObserveBroadcast() {
	if m == nil {
		return
	}
	m.wsBroadcasts.Inc()
}

// ObserveDroppedMessage counts a message dropped for a slow client.
func (m *MetricsService) ObserveDroppedMessage() {
	if m == nil {
		return
	}
	m.wsDropped.Inc()
}
