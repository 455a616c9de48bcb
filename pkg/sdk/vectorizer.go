package vecquery

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/vecquery/internal/domain"
)

// Vectorizer turns text into sentence vectors for a language.
// inputs maps logical field names to text. A field missing from the
// result means the provider could not embed it.
type Vectorizer interface {
	Vectorize(ctx context.Context, lang string, inputs map[string]string) (VectorResult, error)
	SupportsLanguage(lang string) bool
}

// VectorResult carries the vectors keyed by field and token counts.
type VectorResult struct {
	Vectors      map[string][]float32
	PromptTokens int
	TotalTokens  int
}

// vectorizerAdapter wraps a public Vectorizer to satisfy domain.Vectorizer.
type vectorizerAdapter struct {
	inner Vectorizer
}

func (a *vectorizerAdapter) Vectorize(ctx context.Context, req domain.VectorRequest) (domain.VectorResult, error) {
	r, err := a.inner.Vectorize(ctx, req.Language, req.Inputs)
	if err != nil {
		return domain.VectorResult{}, fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
	}
	return domain.VectorResult{
		Vectors:      r.Vectors,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

func (a *vectorizerAdapter) SupportsLanguage(lang string) bool {
	return a.inner.SupportsLanguage(lang)
}

// HealthCheck delegates when the wrapped vectorizer has one.
func (a *vectorizerAdapter) HealthCheck(ctx context.Context) error {
	if hc, ok := a.inner.(interface{ HealthCheck(context.Context) error }); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent adapter
	}
	return nil
}
