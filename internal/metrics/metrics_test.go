package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, m *HTTP) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", rec.Code)
	}
	return rec.Body.String()
}

func TestInstrumentUsesRoutePattern(t *testing.T) {
	m := NewHTTP()

	r := chi.NewRouter()
	r.Use(m.Instrument)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	for _, path := range []string{"/items/1", "/items/2", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	body := scrape(t, m)
	for _, want := range []string{
		`http_requests_total{method="GET",route="/items/{id}",status="204"} 2`,
		`http_requests_total{method="GET",route="unmatched",status="404"} 1`,
		"http_in_flight_requests 0",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in exposition:\n%s", want, body)
		}
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewHTTP()
	m.total.WithLabelValues("GET", "/", "200").Inc()

	body := scrape(t, m)
	if !strings.Contains(body, "http_requests_total") {
		t.Fatalf("expected http_requests_total in exposition")
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Fatalf("expected go runtime collector in exposition")
	}
}
