package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMain(m *testing.M) {
	RegisterHTTPMetrics()
	RegisterVectorizerMetrics()
	RegisterQueryMetrics()
	m.Run()
}

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/v1/queries", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/v1/languages/{lang}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	tests := []struct {
		method, target, pattern, status string
	}{
		{http.MethodPost, "/v1/queries", "/v1/queries", "200"},
		{http.MethodGet, "/v1/languages/ja", "/v1/languages/{lang}", "404"},
	}
	for _, tc := range tests {
		t.Run(tc.target, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.target, http.NoBody))

			val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(tc.method, tc.pattern, tc.status))
			if val < 1 {
				t.Errorf("expected requests_total{%s %s %s} >= 1, got %f", tc.method, tc.pattern, tc.status, val)
			}
		})
	}

	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected http_request_duration_seconds to have observations")
	}
}

func TestMiddleware_WithoutRouter(t *testing.T) {
	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/raw", http.NoBody))

	if testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "unknown", "200")) < 1 {
		t.Error("expected unrouted request under the unknown path label")
	}
}

func TestStatusWriter_FirstHeaderWins(t *testing.T) {
	rr := httptest.NewRecorder()
	w := &statusWriter{ResponseWriter: rr, status: http.StatusOK}
	w.WriteHeader(http.StatusTeapot)
	w.WriteHeader(http.StatusInternalServerError)
	if w.status != http.StatusTeapot {
		t.Errorf("expected 418, got %d", w.status)
	}
}

func TestRegister_Idempotent(t *testing.T) {
	RegisterHTTPMetrics()
	RegisterVectorizerMetrics()
	RegisterQueryMetrics()

	SemanticRewritesTotal.WithLabelValues(RewriteScripted).Inc()
	if testutil.ToFloat64(SemanticRewritesTotal.WithLabelValues(RewriteScripted)) < 1 {
		t.Error("expected semantic_rewrites_total to count")
	}
}
