// Package app assembles the query build pipeline from configuration.
// It is the composition root shared by the server and the CLI.
package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquery/internal/config"
	"github.com/kailas-cloud/vecquery/internal/db"
	dbValkey "github.com/kailas-cloud/vecquery/internal/db/valkey"
	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/metrics"
	"github.com/kailas-cloud/vecquery/internal/query"
	"github.com/kailas-cloud/vecquery/internal/repository/vcache"
	"github.com/kailas-cloud/vecquery/internal/semantic"
	"github.com/kailas-cloud/vecquery/internal/transport/engine"
	openaiVec "github.com/kailas-cloud/vecquery/internal/transport/openai"
	httpVec "github.com/kailas-cloud/vecquery/internal/transport/vectorizer"
	embeddinguc "github.com/kailas-cloud/vecquery/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/vecquery/internal/usecase/health"
	"github.com/kailas-cloud/vecquery/internal/usecase/querybuild"
)

// Pipeline is the assembled query build pipeline.
type Pipeline struct {
	Builder  *querybuild.Service
	Health   *healthuc.Service
	Engine   domain.EngineInfo
	Semantic *semantic.TermCommand
	// Vectorizer is nil when no provider is configured.
	Vectorizer domain.Vectorizer
	// Languages lists the provider languages when the provider reports them.
	Languages []string
	// Cache is nil when the vector cache is disabled.
	Cache *vcache.CachedVectorizer

	store db.Store
}

// Close releases the cache connection.
func (p *Pipeline) Close() {
	if p.store != nil {
		p.store.Close()
	}
}

// New builds the pipeline. Missing or unreachable optional components
// (engine probe, vectorizer, cache) are logged and leave semantic search
// disabled or uncached instead of failing startup.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) *Pipeline {
	p := &Pipeline{}

	var prober *engine.Prober
	if cfg.Engine.URL != "" {
		prober = engine.NewProber(cfg.Engine.URL, time.Duration(cfg.Engine.TimeoutSec)*time.Second, logger)
	}
	p.Engine = engine.Resolve(ctx, cfg.Engine.Type, prober, logger)

	p.store = connectCache(ctx, cfg.Cache, logger)
	p.Vectorizer, p.Languages = p.buildVectorizer(ctx, cfg, logger)

	lexical := query.NewLexicalCommand(FieldConfig(cfg.Query))
	p.Semantic = semantic.NewTermCommand(
		lexical, p.Vectorizer, p.Engine,
		semantic.ConfigFrom(cfg.VectorConfig()),
		semantic.RequestLanguages(cfg.Semantic.DefaultLanguages),
		logger,
	)

	processor := query.NewProcessor(
		query.NewParser(),
		query.NewConverter(p.Semantic, cfg.Query.DefaultOperator),
		logger,
		semantic.NewRewriteFilter(logger),
	)
	p.Builder = querybuild.New(processor, BuildConfig(cfg.Query), logger)

	// Pass nil interfaces (not typed nil pointers) for absent components.
	var cachePinger healthuc.CachePinger
	if p.store != nil {
		cachePinger = p.store
	}
	var vecChecker healthuc.VectorizerChecker
	if hc, ok := p.Vectorizer.(domain.HealthChecker); ok {
		vecChecker = hc
	}
	p.Health = healthuc.New(cachePinger, vecChecker, p.Semantic.Enabled(), string(p.Engine.Type))

	logger.Info("Query pipeline ready",
		zap.String("engine", string(p.Engine.Type)),
		zap.Bool("semantic", p.Semantic.Enabled()),
		zap.Bool("cache", p.store != nil),
		zap.Strings("languages", p.Languages),
	)
	return p
}

// FieldConfig maps the query section onto the lexical field layout.
// Empty lists keep the stock layout.
func FieldConfig(qc config.QueryConfig) query.FieldConfig {
	fc := query.DefaultFieldConfig()
	if len(qc.DefaultFields) > 0 {
		fc.DefaultFields = boostedFields(qc.DefaultFields)
	}
	if len(qc.FuzzyFields) > 0 {
		fc.FuzzyFields = boostedFields(qc.FuzzyFields)
	}
	if len(qc.SearchFields) > 0 {
		fc.SearchFields = qc.SearchFields
	}
	if len(qc.TermFields) > 0 {
		fc.TermFields = qc.TermFields
	}
	if len(qc.SortFields) > 0 {
		fc.SortFields = qc.SortFields
	}
	if qc.FuzzyMinLength > 0 {
		fc.FuzzyMinLength = qc.FuzzyMinLength
	}
	if qc.FuzzyMaxExpansions > 0 {
		fc.FuzzyMaxExpansions = qc.FuzzyMaxExpansions
	}
	return fc
}

// BuildConfig maps the query section onto the request-scoped build settings.
func BuildConfig(qc config.QueryConfig) querybuild.Config {
	boosts := make([]querybuild.Boost, len(qc.Boosts))
	for i, b := range qc.Boosts {
		boosts[i] = querybuild.Boost{Field: b.Field, Value: b.Value, Weight: b.Weight}
	}
	return querybuild.Config{RoleField: qc.RoleField, Boosts: boosts}
}

func boostedFields(in []config.BoostedField) []query.BoostedField {
	out := make([]query.BoostedField, len(in))
	for i, f := range in {
		out[i] = query.BoostedField{Name: f.Name, Boost: f.Boost}
	}
	return out
}

func connectCache(ctx context.Context, cc config.CacheConfig, logger *zap.Logger) db.Store {
	if !cc.Enabled() {
		return nil
	}
	store, err := dbValkey.NewStore(dbValkey.Config{Addrs: cc.Addrs, Password: cc.Password})
	if err != nil {
		logger.Warn("Vector cache disabled", zap.Error(err))
		return nil
	}
	if err := store.WaitForReady(ctx, time.Duration(cc.ReadinessTimeout)*time.Second); err != nil {
		logger.Warn("Vector cache not ready, disabled", zap.Strings("addrs", cc.Addrs), zap.Error(err))
		store.Close()
		return nil
	}
	logger.Info("Connected to vector cache", zap.Strings("addrs", cc.Addrs))
	return store
}

// buildVectorizer assembles the decorator chain: provider -> cached -> instrumented -> instruction.
// The instruction is outermost so cache keys include it.
func (p *Pipeline) buildVectorizer(
	ctx context.Context, cfg config.Config, logger *zap.Logger,
) (domain.Vectorizer, []string) {
	vc := cfg.Vectorizer
	timeout := time.Duration(vc.TimeoutSec) * time.Second

	var base domain.Vectorizer
	var langs []string
	switch vc.Provider {
	case config.ProviderOpenAI:
		base = openaiVec.NewVectorizer(&openaiVec.Config{
			APIKey:     vc.APIKey,
			BaseURL:    vc.URL,
			Model:      vc.Model,
			Dimensions: vc.Dimension,
			Languages:  vc.Languages,
			Provider:   vc.Provider,
			Logger:     logger,
		})
		langs = vc.Languages
	default:
		u, err := cfg.VectorizerURL()
		if err != nil {
			logger.Warn("No usable vectorizer url, semantic search disabled", zap.Error(err))
			return nil, nil
		}
		client := httpVec.NewClient(httpVec.Config{
			URL:       u,
			Model:     vc.Model,
			Dimension: vc.Dimension,
			Languages: vc.Languages,
			Timeout:   timeout,
			Logger:    logger,
		})
		if err := client.LoadLanguages(ctx); err != nil {
			logger.Warn("Vectorizer languages unavailable, retrying on demand", zap.Error(err))
		}
		base = client
		langs = client.Languages()
	}

	v := base
	if p.store != nil {
		p.Cache = vcache.New(v, p.store, cfg.Cache.KeyPrefix, cfg.Cache.TTL(), metrics.VectorCacheTotal, logger)
		v = p.Cache
	}
	v = embeddinguc.NewInstrumentedVectorizer(v, vc.Provider, vc.Model, vc.Dimension, logger)
	if vc.QueryInstruction != "" {
		v = domain.NewInstructionVectorizer(v, vc.QueryInstruction)
	}

	logger.Info("Vectorizer created",
		zap.String("provider", vc.Provider),
		zap.String("model", vc.Model),
		zap.Int("dimension", vc.Dimension),
		zap.Strings("fields", vc.Fields),
	)
	return v, langs
}
