package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Route("/collections/{name}", func(r chi.Router) {
		r.Get("/records", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		r.Post("/records", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
		})
		r.Delete("/records", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
	})
	return r
}

func serve(r http.Handler, method, path string) int {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(method, path, http.NoBody))
	return rr.Code
}

func TestMiddleware_CollectionRoute(t *testing.T) {
	r := newRouter()
	before := testutil.ToFloat64(requestsTotal.WithLabelValues("GET", "/collections/{name}/records", "usage", "200"))

	if code := serve(r, "GET", "/collections/usage/records"); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}

	after := testutil.ToFloat64(requestsTotal.WithLabelValues("GET", "/collections/{name}/records", "usage", "200"))
	if after-before != 1 {
		t.Errorf("requests_total delta = %f, want 1", after-before)
	}
	if testutil.CollectAndCount(requestDuration) == 0 {
		t.Error("expected duration observations")
	}
}

func TestMiddleware_StatusCodes(t *testing.T) {
	r := newRouter()

	tests := []struct {
		method string
		status string
	}{
		{"POST", "422"},
		{"DELETE", "502"},
	}
	for _, tc := range tests {
		t.Run(tc.method, func(t *testing.T) {
			serve(r, tc.method, "/collections/meters/records")
			val := testutil.ToFloat64(requestsTotal.WithLabelValues(tc.method, "/collections/{name}/records", "meters", tc.status))
			if val < 1 {
				t.Errorf("requests_total{%s,%s} = %f, want >= 1", tc.method, tc.status, val)
			}
		})
	}
}

func TestMiddleware_NoCollection(t *testing.T) {
	serve(newRouter(), "GET", "/health")

	val := testutil.ToFloat64(requestsTotal.WithLabelValues("GET", "/health", noCollection, "200"))
	if val < 1 {
		t.Errorf("requests_total for /health = %f, want >= 1", val)
	}
}

func TestMiddleware_Unmatched(t *testing.T) {
	if code := serve(newRouter(), "GET", "/nope"); code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}

	val := testutil.ToFloat64(requestsTotal.WithLabelValues("GET", unmatchedRoute, noCollection, "404"))
	if val < 1 {
		t.Errorf("requests_total for unmatched = %f, want >= 1", val)
	}
}

func TestMiddleware_InFlightSettles(t *testing.T) {
	serve(newRouter(), "GET", "/health")
	if v := testutil.ToFloat64(requestsInFlight); v != 0 {
		t.Errorf("requests_in_flight = %f, want 0", v)
	}
}

func TestRouteLabels_NoRouteContext(t *testing.T) {
	route, col := routeLabels(httptest.NewRequest("GET", "/x", http.NoBody))
	if route != unmatchedRoute || col != noCollection {
		t.Errorf("routeLabels = (%q, %q)", route, col)
	}
}

func TestRegister_Twice(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register: %v", err)
	}

	serve(newRouter(), "GET", "/collections/usage/records")

	if n, err := testutil.GatherAndCount(reg, "recordops_http_requests_total"); err != nil || n == 0 {
		t.Errorf("gathered %d series, err %v", n, err)
	}
}
