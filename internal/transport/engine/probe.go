// Package engine detects the host search engine from its root endpoint.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquery/internal/domain"
)

// Prober reads the engine distribution and version.
type Prober struct {
	http   *http.Client
	url    string
	logger *zap.Logger
}

// NewProber creates a prober for the engine at url.
func NewProber(url string, timeout time.Duration, logger *zap.Logger) *Prober {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Prober{
		http:   &http.Client{Timeout: timeout},
		url:    strings.TrimRight(url, "/"),
		logger: logger,
	}
}

type rootResponse struct {
	Version struct {
		Distribution string `json:"distribution"`
		Number       string `json:"number"`
	} `json:"version"`
}

// Probe fetches GET / and maps the answer onto an EngineType.
func (p *Prober) Probe(ctx context.Context) (domain.EngineInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url+"/", nil)
	if err != nil {
		return domain.EngineInfo{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return domain.EngineInfo{}, fmt.Errorf("probe %s: %v: %w", p.url, err, domain.ErrEngineUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return domain.EngineInfo{}, fmt.Errorf("probe %s: status %d: %w", p.url, resp.StatusCode, domain.ErrEngineUnavailable)
	}

	var root rootResponse
	if err := json.NewDecoder(resp.Body).Decode(&root); err != nil {
		return domain.EngineInfo{}, fmt.Errorf("decode engine info: %v: %w", err, domain.ErrEngineUnavailable)
	}

	info := domain.EngineInfo{
		Type:    Classify(root.Version.Distribution, root.Version.Number),
		Version: root.Version.Number,
	}
	p.logger.Info("Search engine detected",
		zap.String("type", string(info.Type)),
		zap.String("version", info.Version),
	)
	return info, nil
}

// Classify maps a distribution name and version number onto an EngineType.
// Elasticsearch omits the distribution field.
func Classify(distribution, number string) domain.EngineType {
	major, _, _ := strings.Cut(number, ".")
	switch strings.ToLower(distribution) {
	case "opensearch":
		switch major {
		case "1":
			return domain.EngineOpenSearch1
		case "2":
			return domain.EngineOpenSearch2
		case "3":
			return domain.EngineOpenSearch3
		}
	case "", "elasticsearch":
		switch major {
		case "7":
			return domain.EngineElasticsearch7
		case "8":
			return domain.EngineElasticsearch8
		}
	}
	return domain.EngineUnknown
}

// Resolve returns the configured engine type when set, otherwise probes.
// A failed probe yields EngineUnknown so the service still starts lexical-only.
func Resolve(ctx context.Context, configured string, p *Prober, logger *zap.Logger) domain.EngineInfo {
	if configured != "" {
		return domain.EngineInfo{Type: domain.EngineType(configured)}
	}
	if p == nil || p.url == "" {
		logger.Warn("No search engine configured, semantic search disabled")
		return domain.EngineInfo{Type: domain.EngineUnknown}
	}
	info, err := p.Probe(ctx)
	if err != nil {
		logger.Warn("Search engine probe failed, semantic search disabled", zap.Error(err))
		return domain.EngineInfo{Type: domain.EngineUnknown}
	}
	return info
}
