// Package metrics defines the Prometheus collectors of the game host.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pecking_order"

// Metrics groups the host collectors. A nil *Metrics records nothing.
type Metrics struct {
	EventsProcessed *prometheus.CounterVec
	EventDuration   prometheus.Histogram
	Rejections      *prometheus.CounterVec
	Facts           *prometheus.CounterVec
	ActiveGames     prometheus.Gauge
	Connections     prometheus.Gauge
	Wakeups         prometheus.Counter
	JournalDropped  prometheus.Counter
	SnapshotErrors  prometheus.Counter
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EventsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_processed_total",
			Help:      "Events processed by game actors",
		}, []string{"type"}),
		EventDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_duration_seconds",
			Help:      "Time to process one event including its effects",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25},
		}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Player requests rejected, by rejection event type",
		}, []string{"type"}),
		Facts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "facts_total",
			Help:      "Facts applied",
		}, []string{"type"}),
		ActiveGames: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_games",
			Help:      "Game actors loaded in memory",
		}),
		Connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Open player connections",
		}),
		Wakeups: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wakeups_total",
			Help:      "Scheduled wakeups delivered",
		}),
		JournalDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journal_dropped_total",
			Help:      "Audit records that could not be persisted",
		}),
		SnapshotErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_errors_total",
			Help:      "Snapshot writes that failed",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by route pattern",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"method", "route"}),
	}
}

// Event records one processed event.
func (m *Metrics) Event(eventType string, took time.Duration) {
	if m == nil {
		return
	}
	m.EventsProcessed.WithLabelValues(eventType).Inc()
	m.EventDuration.Observe(took.Seconds())
}

// Rejection records one rejected request.
func (m *Metrics) Rejection(eventType string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(eventType).Inc()
}

// Fact records one applied fact.
func (m *Metrics) Fact(factType string) {
	if m == nil {
		return
	}
	m.Facts.WithLabelValues(factType).Inc()
}

// Wakeup records one delivered wakeup.
func (m *Metrics) Wakeup() {
	if m == nil {
		return
	}
	m.Wakeups.Inc()
}

// Dropped records one lost audit record.
func (m *Metrics) Dropped() {
	if m == nil {
		return
	}
	m.JournalDropped.Inc()
}

// SnapshotFailed records one failed snapshot write.
func (m *Metrics) SnapshotFailed() {
	if m == nil {
		return
	}
	m.SnapshotErrors.Inc()
}

// GamesLoaded sets the active games gauge.
func (m *Metrics) GamesLoaded(n int) {
	if m == nil {
		return
	}
	m.ActiveGames.Set(float64(n))
}

// Connected adjusts the connections gauge by delta.
func (m *Metrics) Connected(delta int) {
	if m == nil {
		return
	}
	m.Connections.Add(float64(delta))
}

// Middleware records HTTP metrics labelled by chi route pattern, which keeps
// game ids out of the label set.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
