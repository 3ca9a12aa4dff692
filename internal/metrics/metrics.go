// Package metrics exposes Prometheus instrumentation for HTTP traffic and
// order lifecycle transitions.
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
	RequestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reception",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "route", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reception",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// OrderTransitions counts successful lifecycle operations by name.
	OrderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reception",
		Subsystem: "orders",
		Name:      "transitions_total",
		Help:      "Order lifecycle operations that changed state.",
	}, []string{"transition"})
)

// Transition names recorded in OrderTransitions.
const (
	TransitionPlaced        = "placed"
	TransitionPaymentMethod = "payment_method"
	TransitionQRSubmitted   = "qr_submitted"
	TransitionReceived      = "received"
	TransitionPaid          = "paid"
	TransitionCancelled     = "cancelled"
	TransitionDeleted       = "deleted"
)

// RecordTransition increments the counter for a lifecycle transition.
func RecordTransition(name string) {
	OrderTransitions.WithLabelValues(name).Inc()
}

// Middleware records request count and latency keyed by the chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		RequestTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
