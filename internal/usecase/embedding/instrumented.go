package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/metrics"
)

// InstrumentedVectorizer wraps a Vectorizer with dimension checks, usage accounting and logging.
// Transport metrics (requests, duration) are recorded in the transport packages.
// This layer owns token metrics and the per-request usage collector.
type InstrumentedVectorizer struct {
	inner     domain.Vectorizer
	provider  string
	model     string
	dimension int
	logger    *zap.Logger
}

var _ domain.Vectorizer = (*InstrumentedVectorizer)(nil)

// NewInstrumentedVectorizer wraps a vectorizer with observability.
// dimension <= 0 disables the dimension check.
func NewInstrumentedVectorizer(
	inner domain.Vectorizer, provider, model string, dimension int, logger *zap.Logger,
) *InstrumentedVectorizer {
	return &InstrumentedVectorizer{
		inner:     inner,
		provider:  provider,
		model:     model,
		dimension: dimension,
		logger:    logger,
	}
}

// Vectorize delegates to the inner vectorizer and records usage.
func (p *InstrumentedVectorizer) Vectorize(ctx context.Context, req domain.VectorRequest) (domain.VectorResult, error) {
	if len(req.Inputs) == 0 {
		return domain.VectorResult{}, nil
	}

	start := time.Now()

	result, err := p.inner.Vectorize(ctx, req)

	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Vectorize request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.String("lang", req.Language),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.VectorResult{}, fmt.Errorf("vectorize: %w", err)
	}

	if err := domain.CheckDimensions(result.Vectors, p.dimension); err != nil {
		metrics.VectorizerErrorsTotal.WithLabelValues(p.provider, p.model, "dimension").Inc()
		p.logger.Error("Vectorizer returned unexpected dimensions",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Error(err),
		)
		return domain.VectorResult{}, fmt.Errorf("vectorize: %w", err)
	}

	domain.UsageFromContext(ctx).Record(result.TotalTokens)
	if result.PromptTokens > 0 {
		metrics.VectorizerTokensTotal.WithLabelValues(p.provider, p.model, "prompt").Add(float64(result.PromptTokens))
	}
	if result.TotalTokens > 0 {
		metrics.VectorizerTokensTotal.WithLabelValues(p.provider, p.model, "total").Add(float64(result.TotalTokens))
	}

	p.logger.Debug("Vectorize request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.String("lang", req.Language),
		zap.Duration("duration", duration),
		zap.Int("fields", len(req.Inputs)),
		zap.Int("vectors", len(result.Vectors)),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// SupportsLanguage delegates to the inner vectorizer.
func (p *InstrumentedVectorizer) SupportsLanguage(lang string) bool {
	return p.inner.SupportsLanguage(lang)
}

// HealthCheck delegates when the inner vectorizer supports it.
func (p *InstrumentedVectorizer) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}
