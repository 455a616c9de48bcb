package vecquery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquery/internal/db"
	dbValkey "github.com/kailas-cloud/vecquery/internal/db/valkey"
	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/query"
	"github.com/kailas-cloud/vecquery/internal/repository/vcache"
	"github.com/kailas-cloud/vecquery/internal/semantic"
	"github.com/kailas-cloud/vecquery/internal/transport/engine"
	embeddinguc "github.com/kailas-cloud/vecquery/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/vecquery/internal/usecase/health"
	"github.com/kailas-cloud/vecquery/internal/usecase/querybuild"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultProbeTimeout     = 5 * time.Second
	defaultCacheTTL         = time.Hour
	cacheKeyPrefix          = "vecquery:sdk:vec:"
)

// builder is the internal build use-case, swapped in tests.
type builder interface {
	Build(ctx context.Context, req querybuild.Request) (querybuild.Result, error)
}

// Client is the vecquery SDK entry point.
type Client struct {
	store     db.Store
	builder   builder
	healthSvc healthUseCase
	engine    domain.EngineInfo
	semantic  bool
	obs       *observer
}

// New creates a Client. The provided context bounds the engine probe and
// the vector cache readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	vc := domain.DefaultVectorConfig()
	cfg := &clientConfig{
		vectorDimensions: vc.Dimensions,
		roleField:        "role",
		defaultOperator:  "and",
		cacheTTL:         defaultCacheTTL,
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	if len(cfg.vectorFields) == 0 {
		cfg.vectorFields = vc.Fields
	}
	if cfg.cacheTTL <= 0 {
		cfg.cacheTTL = defaultCacheTTL
	}

	if cfg.engine != "" && !domain.EngineType(cfg.engine).IsValid() {
		return nil, fmt.Errorf("vecquery: unknown engine type %q", cfg.engine)
	}
	switch strings.ToLower(cfg.defaultOperator) {
	case "and", "or":
	default:
		return nil, fmt.Errorf("vecquery: default operator must be \"and\" or \"or\", got %q", cfg.defaultOperator)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	var store db.Store
	if len(cfg.cacheAddrs) > 0 {
		store, err = createStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}
	return wireClient(ctx, store, cfg, obs), nil
}

func createStore(ctx context.Context, cfg *clientConfig) (db.Store, error) {
	s, err := dbValkey.NewStore(dbValkey.Config{
		Addrs:    cfg.cacheAddrs,
		Password: cfg.cachePassword,
	})
	if err != nil {
		return nil, fmt.Errorf("vecquery: create valkey store: %w", err)
	}
	if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		s.Close()
		return nil, fmt.Errorf("vecquery: vector cache not ready: %w", err)
	}
	return s, nil
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig, obs *observer) *Client {
	// Internal packages log through zap; SDK operations are reported by the observer.
	logger := zap.NewNop()

	var prober *engine.Prober
	if cfg.engine == "" && cfg.engineURL != "" {
		prober = engine.NewProber(cfg.engineURL, defaultProbeTimeout, logger)
	}
	info := engine.Resolve(ctx, cfg.engine, prober, logger)

	var v domain.Vectorizer
	if cfg.vectorizer != nil {
		v = &vectorizerAdapter{inner: cfg.vectorizer}
		if store != nil {
			v = vcache.New(v, store, cacheKeyPrefix, cfg.cacheTTL, nil, logger)
		}
		v = embeddinguc.NewInstrumentedVectorizer(v, "sdk", "custom", cfg.vectorDimensions, logger)
		if cfg.queryInstruction != "" {
			v = domain.NewInstructionVectorizer(v, cfg.queryInstruction)
		}
	}

	vc := domain.DefaultVectorConfig()
	sem := semantic.NewTermCommand(
		query.NewLexicalCommand(query.DefaultFieldConfig()),
		v, info,
		semantic.Config{Fields: cfg.vectorFields, FieldSuffix: vc.FieldSuffix, SpaceType: vc.SpaceType},
		semantic.RequestLanguages(cfg.defaultLanguages),
		logger,
	)
	processor := query.NewProcessor(
		query.NewParser(),
		query.NewConverter(sem, cfg.defaultOperator),
		logger,
		semantic.NewRewriteFilter(logger),
	)

	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}
	var vecChecker healthuc.VectorizerChecker
	if hc, ok := v.(domain.HealthChecker); ok {
		vecChecker = hc
	}

	return &Client{
		store:     store,
		builder:   querybuild.New(processor, querybuild.Config{RoleField: cfg.roleField}, logger),
		healthSvc: healthuc.New(cachePinger, vecChecker, sem.Enabled(), string(info.Type)),
		engine:    info,
		semantic:  sem.Enabled(),
		obs:       obs,
	}
}

// Close releases the vector cache connection.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Engine returns the resolved engine type, "unknown" when neither
// WithEngine nor a reachable WithEngineURL was given.
func (c *Client) Engine() string { return string(c.engine.Type) }

// Semantic reports whether semantic terms are rewritten into vector scoring.
func (c *Client) Semantic() bool { return c.semantic }

// BuildOption adjusts a single build.
type BuildOption func(*querybuild.Request)

// Languages sets the language candidates in preference order.
func Languages(langs ...string) BuildOption {
	return func(r *querybuild.Request) { r.Languages = langs }
}

// Roles sets the roles of the requesting user.
func Roles(roles ...string) BuildOption {
	return func(r *querybuild.Request) { r.Roles = roles }
}

// DefaultField sets the field bare terms are searched in.
func DefaultField(field string) BuildOption {
	return func(r *querybuild.Request) { r.DefaultField = field }
}

// Build turns q into an engine query.
func (c *Client) Build(ctx context.Context, q string, opts ...BuildOption) (res Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("build", start, err, "build_id", res.BuildID) }()

	req := querybuild.Request{Query: q}
	for _, o := range opts {
		o(&req)
	}

	ctx, usage := domain.NewContextWithUsage(ctx)
	out, err := c.builder.Build(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("vecquery: %w", err)
	}
	return resultFrom(out, usage), nil
}
