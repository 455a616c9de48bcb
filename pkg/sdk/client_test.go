package vecquery

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/vecquery/internal/usecase/querybuild"
)

type mockVectorizer struct {
	langs     map[string]bool
	err       error
	healthErr error
	calls     int
}

func (m *mockVectorizer) Vectorize(_ context.Context, _ string, inputs map[string]string) (VectorResult, error) {
	m.calls++
	if m.err != nil {
		return VectorResult{}, m.err
	}
	out := make(map[string][]float32, len(inputs))
	for field := range inputs {
		out[field] = []float32{0.6, 0.8}
	}
	return VectorResult{Vectors: out, PromptTokens: 3, TotalTokens: 3}, nil
}

func (m *mockVectorizer) SupportsLanguage(lang string) bool { return m.langs[lang] }

func (m *mockVectorizer) HealthCheck(context.Context) error { return m.healthErr }

func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	c, err := New(context.Background(), opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestBuild_Semantic(t *testing.T) {
	v := &mockVectorizer{langs: map[string]bool{"ja": true}}
	c := newTestClient(t,
		WithVectorizer(v),
		WithVectorDimensions(2),
		WithEngine("opensearch2"),
	)
	if !c.Semantic() {
		t.Fatal("expected semantic search to be enabled")
	}

	res, err := c.Build(context.Background(), "semantic:aaa", Languages("fr", "ja"), Roles("guest"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.BuildID == "" {
		t.Error("expected a build id")
	}
	if res.EmbeddingCalls != 1 || res.EmbeddingTokens != 3 {
		t.Errorf("unexpected usage calls=%d tokens=%d", res.EmbeddingCalls, res.EmbeddingTokens)
	}

	body, err := res.JSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"script_score", "content_ja_vector", `"role":["guest"]`} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected %s in %s", want, body)
		}
	}
}

func TestBuild_NoEngineFallsBackToLexical(t *testing.T) {
	v := &mockVectorizer{langs: map[string]bool{"en": true}}
	c := newTestClient(t, WithVectorizer(v), WithVectorDimensions(2), WithDefaultLanguages("en"))

	if c.Semantic() {
		t.Fatal("expected semantic search to be disabled without an engine")
	}
	if c.Engine() != "unknown" {
		t.Errorf("expected unknown engine, got %q", c.Engine())
	}
	res, err := c.Build(context.Background(), "semantic:aaa")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.calls != 0 {
		t.Errorf("expected no vectorizer calls, got %d", v.calls)
	}
	body, _ := res.JSON()
	if strings.Contains(string(body), "script_score") {
		t.Errorf("expected a lexical query, got %s", body)
	}
}

func TestBuild_SortClauses(t *testing.T) {
	c := newTestClient(t)

	res, err := c.Build(context.Background(), "aaa sort:last_modified.desc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Sort) != 1 {
		t.Fatalf("expected one sort clause, got %v", res.Sort)
	}
	body, _ := res.JSON()
	if !strings.Contains(string(body), `"sort":[{"last_modified"`) {
		t.Errorf("expected the sort clause in %s", body)
	}
}

func TestBuild_InvalidQuery(t *testing.T) {
	c := newTestClient(t)

	_, err := c.Build(context.Background(), "sort:xxx")
	if !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestBuild_VectorizerError(t *testing.T) {
	v := &mockVectorizer{langs: map[string]bool{"en": true}, err: errors.New("quota")}
	c := newTestClient(t, WithVectorizer(v), WithVectorDimensions(2), WithEngine("opensearch2"))

	_, err := c.Build(context.Background(), "semantic:aaa", Languages("en"))
	if !errors.Is(err, ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestBuild_DimensionMismatch(t *testing.T) {
	v := &mockVectorizer{langs: map[string]bool{"en": true}}
	c := newTestClient(t, WithVectorizer(v), WithVectorDimensions(3), WithEngine("opensearch2"))

	_, err := c.Build(context.Background(), "semantic:aaa", Languages("en"))
	if !errors.Is(err, ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestBuild_Observed(t *testing.T) {
	var logs bytes.Buffer
	reg := prometheus.NewRegistry()
	c := newTestClient(t,
		WithLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))),
		WithPrometheus(reg),
	)

	if _, err := c.Build(context.Background(), "aaa"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _ = c.Build(context.Background(), "sort:xxx")

	if got := testutil.ToFloat64(c.obs.metrics.operations.WithLabelValues("build", "ok")); got != 1 {
		t.Errorf("expected one ok build, got %v", got)
	}
	if got := testutil.ToFloat64(c.obs.metrics.operations.WithLabelValues("build", "invalid_query")); got != 1 {
		t.Errorf("expected one invalid build, got %v", got)
	}
	if !strings.Contains(logs.String(), "operation completed") || !strings.Contains(logs.String(), "operation failed") {
		t.Errorf("expected both outcomes logged, got %s", logs.String())
	}
}

func TestNew_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := newTestClient(t, WithPrometheus(reg))
	b := newTestClient(t, WithPrometheus(reg))

	if a.obs.metrics.operations != b.obs.metrics.operations {
		t.Error("expected clients on one registry to share collectors")
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	if _, err := New(context.Background(), WithEngine("solr9")); err == nil {
		t.Error("expected an unknown engine error")
	}
	if _, err := New(context.Background(), WithDefaultOperator("xor")); err == nil {
		t.Error("expected an operator error")
	}
}

func TestHealth(t *testing.T) {
	v := &mockVectorizer{langs: map[string]bool{"en": true}, healthErr: errors.New("down")}
	c := newTestClient(t, WithVectorizer(v), WithEngine("elasticsearch8"))

	h := c.Health(context.Background())
	if h.Status != "degraded" {
		t.Errorf("expected degraded, got %q", h.Status)
	}
	if h.Engine != "elasticsearch8" {
		t.Errorf("unexpected engine %q", h.Engine)
	}
	if h.Checks["vectorizer"] != "error" || h.Checks["semantic"] != "disabled" {
		t.Errorf("unexpected checks %v", h.Checks)
	}
}

type stubBuilder struct {
	res querybuild.Result
	err error
}

func (s stubBuilder) Build(context.Context, querybuild.Request) (querybuild.Result, error) {
	return s.res, s.err
}

func TestBuild_EmptyQueryRendersMatchAll(t *testing.T) {
	c := &Client{builder: stubBuilder{res: querybuild.Result{BuildID: "b1"}}}

	res, err := c.Build(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := res.Query["match_all"]; !ok {
		t.Errorf("expected match_all, got %v", res.Query)
	}
}
