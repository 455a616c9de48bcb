// Package openai implements domain.Vectorizer on an OpenAI-compatible embeddings API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/metrics"
)

// Vectorizer embeds every input field with one CreateEmbeddings call.
// Multilingual models embed any language, so the language only selects
// whether the request is made.
type Vectorizer struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	languages  domain.LanguageSet
	provider   string
	logger     *zap.Logger
}

var _ domain.Vectorizer = (*Vectorizer)(nil)

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	// Languages limits the accepted languages; empty accepts any.
	Languages []string
	Provider  string
	Logger    *zap.Logger
}

// NewVectorizer creates an OpenAI-compatible vectorizer.
func NewVectorizer(cfg *Config) *Vectorizer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	langs := domain.NewLanguageSet(cfg.Languages...)
	if len(langs) == 0 {
		langs = domain.NewLanguageSet(domain.AnyLanguage)
	}

	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}

	return &Vectorizer{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		languages:  langs,
		provider:   provider,
		logger:     cfg.Logger,
	}
}

// SupportsLanguage implements domain.Vectorizer.
func (v *Vectorizer) SupportsLanguage(lang string) bool {
	return v.languages.Contains(lang)
}

// Vectorize implements domain.Vectorizer. Transport-level metrics are recorded here.
func (v *Vectorizer) Vectorize(ctx context.Context, req domain.VectorRequest) (domain.VectorResult, error) {
	if len(req.Inputs) == 0 {
		return domain.VectorResult{Vectors: map[string][]float32{}}, nil
	}

	fields := make([]string, 0, len(req.Inputs))
	for field := range req.Inputs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	input := make([]string, len(fields))
	for i, f := range fields {
		input[i] = req.Inputs[f]
	}

	embReq := openai.EmbeddingRequest{
		Input:          input,
		Model:          v.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if v.dimensions > 0 {
		embReq.Dimensions = v.dimensions
	}

	model := string(v.model)
	start := time.Now()
	resp, err := v.client.CreateEmbeddings(ctx, embReq)
	duration := time.Since(start)

	if err != nil {
		metrics.VectorizerRequestsTotal.WithLabelValues(v.provider, model, "error").Inc()
		metrics.VectorizerErrorsTotal.WithLabelValues(v.provider, model, "api_error").Inc()
		return domain.VectorResult{}, parseAPIError(err)
	}

	metrics.VectorizerRequestsTotal.WithLabelValues(v.provider, model, "success").Inc()
	metrics.VectorizerRequestDuration.WithLabelValues(v.provider, model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.VectorizerTokensTotal.WithLabelValues(v.provider, model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.VectorizerTokensTotal.WithLabelValues(v.provider, model, "total").Add(float64(resp.Usage.TotalTokens))
	}

	// Entries the provider skipped stay absent: the caller treats that as "could not embed".
	vectors := make(map[string][]float32, len(fields))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(fields) || len(d.Embedding) == 0 {
			continue
		}
		vectors[fields[d.Index]] = d.Embedding
	}
	if len(vectors) < len(fields) {
		metrics.VectorizerErrorsTotal.WithLabelValues(v.provider, model, "missing_vector").Inc()
		v.logger.Warn("Embedding response is missing vectors",
			zap.String("provider", v.provider),
			zap.Int("requested", len(fields)),
			zap.Int("received", len(vectors)),
		)
	}

	return domain.VectorResult{
		Vectors:      vectors,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (v *Vectorizer) HealthCheck(ctx context.Context) error {
	if _, err := v.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrEmbeddingProviderError for correct 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrEmbeddingProviderError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("embedding API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("embedding request failed: %v: %w", err, wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
