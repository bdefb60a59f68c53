// internal/metrics/metrics.go
//
// Prometheus collectors for HTTP traffic and game outcomes, and the
// /metrics handler. Collectors register on the default registry.

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "worldle",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "worldle",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "route"})

	GamesStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "worldle",
		Subsystem: "game",
		Name:      "started_total",
		Help:      "Games started",
	}, []string{"mode"})

	Guesses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "worldle",
		Subsystem: "game",
		Name:      "guesses_total",
		Help:      "Guess submissions by outcome (accepted, or the rejection reason)",
	}, []string{"mode", "outcome"})

	GamesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "worldle",
		Subsystem: "game",
		Name:      "finished_total",
		Help:      "Games that reached a terminal phase",
	}, []string{"mode", "phase"})

	GuessDistance = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "worldle",
		Subsystem: "game",
		Name:      "guess_distance_km",
		Help:      "Distance between accepted guesses and the answer",
		Buckets:   []float64{0, 250, 500, 1000, 2000, 4000, 8000, 12000, 16000, 20000},
	})

	SessionsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "worldle",
		Subsystem: "store",
		Name:      "sessions_swept_total",
		Help:      "Idle games evicted from the in-memory store",
	})
)

// Handler serves the Prometheus exposition format.
func Handler() http.Handler { return promhttp.Handler() }

// Middleware records request count and latency by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
