// Package metrics holds the Prometheus collectors for the server and the
// client core.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Client core
var (
	hydrationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_hydration_total",
			Help: "Content collection hydration results by outcome (backend, default, failed).",
		},
		[]string{"collection", "outcome"},
	)

	adminLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_data_loads_total",
			Help: "Admin roster and invite loads by result.",
		},
		[]string{"result"},
	)

	sessionEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_events_total",
			Help: "Session change notifications handled, by event.",
		},
		[]string{"event"},
	)

	workspacesActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "workspaces_active",
		Help: "Client workspaces currently held by the server.",
	})

	wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_state_connections",
		Help: "Open state-stream websocket connections.",
	})
)

var registerOnce sync.Once

// Init registers every collector with the default registry. Safe to call more
// than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			hydrationTotal, adminLoadsTotal, sessionEventsTotal,
			workspacesActive, wsConnections,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Hydration outcomes.
const (
	OutcomeBackend = "backend"
	OutcomeDefault = "default"
	OutcomeFailed  = "failed"
)

func ObserveHydration(collection, outcome string) {
	hydrationTotal.WithLabelValues(collection, outcome).Inc()
}

func ObserveAdminLoad(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	adminLoadsTotal.WithLabelValues(result).Inc()
}

func ObserveSessionEvent(event string) {
	sessionEventsTotal.WithLabelValues(event).Inc()
}

func WorkspaceOpened() { workspacesActive.Inc() }
func WorkspaceClosed() { workspacesActive.Dec() }

func StreamOpened() { wsConnections.Inc() }
func StreamClosed() { wsConnections.Dec() }

// Instrument records RPS, latency and in-flight requests. The path label is the
// matched chi route pattern.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
	})
}

// statusWriter captures the response code.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the instrumentation.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	w.code = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
