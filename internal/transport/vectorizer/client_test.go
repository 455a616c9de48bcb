package vectorizer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterVectorizerMetrics()
	m.Run()
}

func newTestClient(t *testing.T, h http.HandlerFunc, dim int, langs ...string) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	return NewClient(Config{URL: u, Dimension: dim, Languages: langs, Timeout: time.Second, Logger: zap.NewNop()})
}

func TestVectorize(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/vectorize" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body["lang"] != "en" || body["content"] != "aaa" {
			t.Errorf("unexpected body %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string][]float32{"content": {0.1, 0.2, 0.3}})
	}, 3, "en")

	result, err := c.Vectorize(context.Background(), domain.VectorRequest{
		Language: "en",
		Inputs:   map[string]string{"content": "aaa"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := result.Vectors["content"]; len(got) != 3 || got[0] != 0.1 {
		t.Errorf("unexpected vector %v", got)
	}
}

func TestVectorize_MissingFieldStaysAbsent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"title":[1,2,3]}`))
	}, 3, "en")

	result, err := c.Vectorize(context.Background(), domain.VectorRequest{
		Language: "en",
		Inputs:   map[string]string{"content": "aaa"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := result.Vectors["content"]; ok {
		t.Error("expected content to be missing")
	}
	if _, ok := result.Vectors["title"]; ok {
		t.Error("unrequested fields must be dropped")
	}
}

func TestVectorize_DimensionMismatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content":[1,2]}`))
	}, 768, "en")

	_, err := c.Vectorize(context.Background(), domain.VectorRequest{
		Language: "en",
		Inputs:   map[string]string{"content": "aaa"},
	})
	if !errors.Is(err, domain.ErrVectorDimMismatch) || !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected dimension mismatch provider error, got %v", err)
	}
}

func TestVectorize_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}, 3, "en")

	_, err := c.Vectorize(context.Background(), domain.VectorRequest{
		Language: "en",
		Inputs:   map[string]string{"content": "aaa"},
	})
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestLoadLanguages(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/languages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"languages":["en","JA"]}`))
	}, 3)

	if err := c.LoadLanguages(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.SupportsLanguage("ja") || !c.SupportsLanguage("en") || c.SupportsLanguage("fr") {
		t.Errorf("unexpected languages %v", c.Languages())
	}
	if err := c.LoadLanguages(context.Background()); err != nil || calls != 1 {
		t.Errorf("expected loaded languages to be kept, calls=%d err=%v", calls, err)
	}
}

// flakyLanguages serves 503 on /languages until up is set.
func flakyLanguages(up *atomic.Bool, calls *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		if !up.Load() {
			http.Error(w, "loading model", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"languages":["en"]}`))
	}
}

func newClientWithBackoff(t *testing.T, h http.HandlerFunc, backoff time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	return NewClient(Config{URL: u, Dimension: 3, Timeout: time.Second, ReloadBackoff: backoff, Logger: zap.NewNop()})
}

func TestSupportsLanguage_RecoversAfterStartupFailure(t *testing.T) {
	var up atomic.Bool
	var calls atomic.Int32
	c := newClientWithBackoff(t, flakyLanguages(&up, &calls), time.Nanosecond)

	if err := c.LoadLanguages(context.Background()); err == nil {
		t.Fatal("expected the startup load to fail")
	}
	if c.SupportsLanguage("en") {
		t.Fatal("no language can be supported while the service is down")
	}

	up.Store(true)
	time.Sleep(time.Millisecond)
	if !c.SupportsLanguage("en") {
		t.Fatal("expected languages to be reloaded once the service recovered")
	}
	before := calls.Load()
	if !c.SupportsLanguage("en") || calls.Load() != before {
		t.Error("loaded languages must not be fetched again")
	}
}

func TestSupportsLanguage_ReloadBackoff(t *testing.T) {
	var up atomic.Bool
	var calls atomic.Int32
	c := newClientWithBackoff(t, flakyLanguages(&up, &calls), time.Hour)

	if c.SupportsLanguage("en") {
		t.Fatal("no language can be supported while the service is down")
	}
	up.Store(true)
	if c.SupportsLanguage("en") {
		t.Error("expected no reload inside the backoff window")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected one language request, got %d", got)
	}
}

func TestSupportsLanguage_StaticLanguagesNeverReload(t *testing.T) {
	var up atomic.Bool
	var calls atomic.Int32
	srv := httptest.NewServer(flakyLanguages(&up, &calls))
	t.Cleanup(srv.Close)
	u, _ := url.Parse(srv.URL)
	c := NewClient(Config{URL: u, Languages: []string{"ja"}, ReloadBackoff: time.Nanosecond})

	if c.SupportsLanguage("en") || !c.SupportsLanguage("ja") {
		t.Errorf("unexpected languages %v", c.Languages())
	}
	if calls.Load() != 0 {
		t.Errorf("expected no language request, got %d", calls.Load())
	}
}

func TestHealthCheck(t *testing.T) {
	healthy := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"languages":["en"]}`))
	}, 3)
	if err := healthy.HealthCheck(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	down := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, 3)
	if err := down.HealthCheck(context.Background()); err == nil {
		t.Error("expected error")
	}

	empty := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"languages":[]}`))
	}, 3)
	if err := empty.HealthCheck(context.Background()); !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("expected an error without languages, got %v", err)
	}
}

func TestHealthCheck_FillsLanguagesAfterRecovery(t *testing.T) {
	var up atomic.Bool
	var calls atomic.Int32
	c := newClientWithBackoff(t, flakyLanguages(&up, &calls), time.Hour)

	if err := c.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected the health check to fail while the service is down")
	}
	up.Store(true)
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.SupportsLanguage("en") {
		t.Errorf("expected the health check to load languages, got %v", c.Languages())
	}
}
