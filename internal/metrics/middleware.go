package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "recordops"

// Label values used when a request carries no route or collection.
const (
	unmatchedRoute = "unmatched"
	noCollection   = "-"
)

var labels = []string{"method", "route", "collection", "status"}

var (
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		labels,
	)

	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		labels,
	)

	requestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "HTTP requests currently being served",
		},
	)
)

// Register adds the HTTP metrics to reg. Registering twice on the same
// registerer is not an error.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{requestDuration, requestsTotal, requestsInFlight} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err //nolint:wrapcheck // registry errors are self-describing
			}
		}
	}
	return nil
}

// Middleware records request duration, count and concurrency. Requests are
// labelled by chi route pattern and the {name} collection parameter, both
// bounded by the router and the configured collections.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestsInFlight.Inc()
			defer requestsInFlight.Dec()

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route, collection := routeLabels(r)
			lv := []string{r.Method, route, collection, strconv.Itoa(statusOf(ww))}
			requestDuration.WithLabelValues(lv...).Observe(time.Since(start).Seconds())
			requestsTotal.WithLabelValues(lv...).Inc()
		})
	}
}

// routeLabels reads the matched route pattern and collection name after the
// router has served the request.
func routeLabels(r *http.Request) (route, collection string) {
	route, collection = unmatchedRoute, noCollection
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return route, collection
	}
	if p := rctx.RoutePattern(); p != "" {
		route = p
	}
	if name := rctx.URLParam("name"); name != "" {
		collection = name
	}
	return route, collection
}

// statusOf treats a handler that never wrote a header as 200.
func statusOf(ww chiMiddleware.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}
