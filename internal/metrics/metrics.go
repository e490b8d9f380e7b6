// Package metrics holds the Prometheus collectors of the reservation service. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hotelsuite/internal/api"
)

type Metrics struct {
	registry *prometheus.Registry

	created     *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	noShows     prometheus.Counter
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hotel_reservations_created_total",
			Help: "Reservations created, by channel and initial status.",
		}, []string{"channel", "status"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hotel_reservations_rejected_total",
			Help: "Booking attempts rejected, by error code.",
		}, []string{"code"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hotel_reservation_transitions_total",
			Help: "Lifecycle transitions, by action and result.",
		}, []string{"action", "result"}),
		noShows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hotel_no_show_sweep_marked_total",
			Help: "Reservations marked NO_SHOW by the sweep.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hotel_http_requests_total",
			Help: "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hotel_http_request_duration_seconds",
			Help:    "HTTP request latency, by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(
		m.created, m.rejected, m.transitions, m.noShows, m.requests, m.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ReservationCreated(channel, status string) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(channel, status).Inc()
}

func (m *Metrics) BookingRejected(code string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(code).Inc()
}

func (m *Metrics) Transition(action string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.transitions.WithLabelValues(action, result).Inc()
}

func (m *Metrics) NoShowsMarked(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.noShows.Add(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency labelled with the chi route pattern, so
// path parameters do not blow up label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &api.StatusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.Code())).Inc()
		m.latency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
