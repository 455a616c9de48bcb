package embedding

import (
	"context"
	"errors"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterVectorizerMetrics()
	os.Exit(m.Run())
}

type mockVectorizer struct {
	result domain.VectorResult
	err    error
	calls  int
	health error
}

func (m *mockVectorizer) Vectorize(_ context.Context, _ domain.VectorRequest) (domain.VectorResult, error) {
	m.calls++
	return m.result, m.err
}

func (m *mockVectorizer) SupportsLanguage(lang string) bool { return lang == "en" }

func (m *mockVectorizer) HealthCheck(context.Context) error { return m.health }

func request() domain.VectorRequest {
	return domain.VectorRequest{Language: "en", Inputs: map[string]string{"content": "hello"}}
}

func TestInstrumentedVectorizer_Success(t *testing.T) {
	inner := &mockVectorizer{result: domain.VectorResult{
		Vectors: map[string][]float32{"content": {0.1, 0.2, 0.3}},
	}}
	p := NewInstrumentedVectorizer(inner, "test", "test-model", 3, zap.NewNop())

	result, err := p.Vectorize(context.Background(), request())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Vectors["content"]) != 3 {
		t.Fatalf("expected 3 dimensions, got %d", len(result.Vectors["content"]))
	}
}

func TestInstrumentedVectorizer_RecordsUsage(t *testing.T) {
	inner := &mockVectorizer{result: domain.VectorResult{
		Vectors:      map[string][]float32{"content": {0.1, 0.2}},
		PromptTokens: 7,
		TotalTokens:  7,
	}}
	p := NewInstrumentedVectorizer(inner, "test-usage", "test-model-u", 0, zap.NewNop())

	ctx, usage := domain.NewContextWithUsage(context.Background())
	if _, err := p.Vectorize(ctx, request()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Vectorize(ctx, request()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usage.Calls != 2 || usage.TotalTokens != 14 {
		t.Errorf("expected 2 calls and 14 tokens, got %+v", usage)
	}
}

func TestInstrumentedVectorizer_NoUsageCollector(t *testing.T) {
	inner := &mockVectorizer{result: domain.VectorResult{TotalTokens: 3}}
	p := NewInstrumentedVectorizer(inner, "test", "test-model", 0, zap.NewNop())

	if _, err := p.Vectorize(context.Background(), request()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInstrumentedVectorizer_Error(t *testing.T) {
	inner := &mockVectorizer{err: domain.ErrEmbeddingProviderError}
	p := NewInstrumentedVectorizer(inner, "test-err", "test-model-e", 0, zap.NewNop())

	ctx, usage := domain.NewContextWithUsage(context.Background())
	_, err := p.Vectorize(ctx, request())
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
	if usage.Used() {
		t.Error("failed calls must not be recorded")
	}
}

func TestInstrumentedVectorizer_DimensionMismatch(t *testing.T) {
	inner := &mockVectorizer{result: domain.VectorResult{
		Vectors: map[string][]float32{"content": {0.1, 0.2}},
	}}
	p := NewInstrumentedVectorizer(inner, "test-dim", "test-model-d", 768, zap.NewNop())

	_, err := p.Vectorize(context.Background(), request())
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestInstrumentedVectorizer_EmptyInputs(t *testing.T) {
	inner := &mockVectorizer{}
	p := NewInstrumentedVectorizer(inner, "test", "test-model", 0, zap.NewNop())

	if _, err := p.Vectorize(context.Background(), domain.VectorRequest{Language: "en"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 0 {
		t.Errorf("expected no inner call, got %d", inner.calls)
	}
}

func TestInstrumentedVectorizer_Delegates(t *testing.T) {
	inner := &mockVectorizer{health: errors.New("down")}
	p := NewInstrumentedVectorizer(inner, "test", "test-model", 0, zap.NewNop())

	if !p.SupportsLanguage("en") || p.SupportsLanguage("ja") {
		t.Error("SupportsLanguage must delegate")
	}
	if err := p.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck must delegate")
	}
}
