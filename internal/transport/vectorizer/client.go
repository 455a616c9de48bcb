// Package vectorizer is the client of the text vectorizer service.
//
// The service embeds one text per logical field:
//
//	POST {url}/vectorize  {"lang":"en","content":"text"} -> {"content":[0.1, ...]}
//	GET  {url}/languages  -> {"languages":["en","ja"]}
package vectorizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/metrics"
)

const (
	providerName         = "vectorizer"
	maxErrorBody         = 512
	defaultReloadBackoff = 5 * time.Second
)

// LangParam is the request body key carrying the language; no input field may use it.
const LangParam = "lang"

// Config holds the vectorizer service settings.
type Config struct {
	URL       *url.URL
	Model     string
	Dimension int
	// Languages is the static language list; empty means ask the service.
	Languages []string
	Timeout   time.Duration
	// ReloadBackoff spaces language reloads while the service has reported none. Default 5s.
	ReloadBackoff time.Duration
	Logger        *zap.Logger
}

// Client implements domain.Vectorizer over HTTP.
type Client struct {
	http      *http.Client
	base      *url.URL
	model     string
	dimension int
	languages atomic.Pointer[domain.LanguageSet]
	logger    *zap.Logger

	static        bool
	reloadBackoff time.Duration
	nextReload    atomic.Int64 // unix nanos
	reloading     atomic.Bool
}

var (
	_ domain.Vectorizer    = (*Client)(nil)
	_ domain.HealthChecker = (*Client)(nil)
)

// NewClient creates the client. Languages are empty until configured or loaded with LoadLanguages.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	model := cfg.Model
	if model == "" {
		model = "default"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	backoff := cfg.ReloadBackoff
	if backoff <= 0 {
		backoff = defaultReloadBackoff
	}
	langs := domain.NewLanguageSet(cfg.Languages...)
	c := &Client{
		http:          &http.Client{Timeout: timeout},
		base:          cfg.URL,
		model:         model,
		dimension:     cfg.Dimension,
		logger:        logger,
		static:        len(langs) > 0,
		reloadBackoff: backoff,
	}
	c.languages.Store(&langs)
	return c
}

// SupportsLanguage implements domain.Vectorizer. While the service has not
// reported any language it is asked again, at most once per reload backoff.
func (c *Client) SupportsLanguage(lang string) bool {
	if len(*c.languages.Load()) == 0 && !c.static {
		c.reloadLanguages()
	}
	return c.languages.Load().Contains(lang)
}

func (c *Client) reloadLanguages() {
	if time.Now().UnixNano() < c.nextReload.Load() || !c.reloading.CompareAndSwap(false, true) {
		return
	}
	defer c.reloading.Store(false)

	c.nextReload.Store(time.Now().Add(c.reloadBackoff).UnixNano())
	if err := c.LoadLanguages(context.Background()); err != nil {
		c.logger.Warn("Vectorizer languages still unavailable", zap.Duration("retry_in", c.reloadBackoff), zap.Error(err))
	}
}

// Languages returns the supported languages.
func (c *Client) Languages() []string {
	return c.languages.Load().Slice()
}

// LoadLanguages asks the service for its languages when none were configured.
func (c *Client) LoadLanguages(ctx context.Context) error {
	if len(*c.languages.Load()) > 0 {
		return nil
	}
	var body struct {
		Languages []string `json:"languages"`
	}
	if err := c.do(ctx, http.MethodGet, "languages", nil, &body); err != nil {
		return fmt.Errorf("load languages: %w", err)
	}
	c.storeLoaded(body.Languages)
	return nil
}

func (c *Client) storeLoaded(languages []string) {
	if len(languages) == 0 {
		return
	}
	langs := domain.NewLanguageSet(languages...)
	c.languages.Store(&langs)
	c.logger.Info("Vectorizer languages loaded", zap.Strings("languages", langs.Slice()))
}

// Vectorize implements domain.Vectorizer. Transport-level metrics are recorded here.
func (c *Client) Vectorize(ctx context.Context, req domain.VectorRequest) (domain.VectorResult, error) {
	payload := make(map[string]string, len(req.Inputs)+1)
	for field, text := range req.Inputs {
		payload[field] = text
	}
	payload[LangParam] = req.Language

	start := time.Now()
	var out map[string][]float32
	err := c.do(ctx, http.MethodPost, "vectorize", payload, &out)
	duration := time.Since(start)

	if err != nil {
		metrics.VectorizerRequestsTotal.WithLabelValues(providerName, c.model, "error").Inc()
		metrics.VectorizerErrorsTotal.WithLabelValues(providerName, c.model, "api_error").Inc()
		return domain.VectorResult{}, err
	}

	vectors := make(map[string][]float32, len(req.Inputs))
	for field := range req.Inputs {
		if vec, ok := out[field]; ok && len(vec) > 0 {
			vectors[field] = vec
		}
	}
	if err := domain.CheckDimensions(vectors, c.dimension); err != nil {
		metrics.VectorizerRequestsTotal.WithLabelValues(providerName, c.model, "error").Inc()
		metrics.VectorizerErrorsTotal.WithLabelValues(providerName, c.model, "dimension").Inc()
		return domain.VectorResult{}, fmt.Errorf("vectorize: %w: %w", err, domain.ErrEmbeddingProviderError)
	}

	metrics.VectorizerRequestsTotal.WithLabelValues(providerName, c.model, "success").Inc()
	metrics.VectorizerRequestDuration.WithLabelValues(providerName, c.model).Observe(duration.Seconds())
	return domain.VectorResult{Vectors: vectors}, nil
}

// HealthCheck verifies the service answers its language endpoint and reports
// languages. A successful answer fills the language set if it is still empty.
func (c *Client) HealthCheck(ctx context.Context) error {
	var body struct {
		Languages []string `json:"languages"`
	}
	if err := c.do(ctx, http.MethodGet, "languages", nil, &body); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	if !c.static && len(*c.languages.Load()) == 0 {
		c.storeLoaded(body.Languages)
	}
	if len(*c.languages.Load()) == 0 {
		return fmt.Errorf("health check: no languages reported: %w", domain.ErrEmbeddingProviderError)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %v: %w", method, path, err, domain.ErrEmbeddingProviderError)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%s %s: status %d: %s: %w",
			method, path, resp.StatusCode, bytes.TrimSpace(detail), domain.ErrEmbeddingProviderError)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %v: %w", path, err, domain.ErrEmbeddingProviderError)
	}
	return nil
}
