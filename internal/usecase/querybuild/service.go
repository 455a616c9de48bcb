// Package querybuild runs one query build per request and applies the
// request-scoped clauses the processor does not know about.
package querybuild

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/dsl"
	"github.com/kailas-cloud/vecquery/internal/logger"
	"github.com/kailas-cloud/vecquery/internal/metrics"
	"github.com/kailas-cloud/vecquery/internal/query"
)

// Build statuses.
const (
	StatusOK           = "ok"
	StatusInvalidQuery = "invalid_query"
	StatusError        = "error"
)

// Boost adds weight to documents whose Field equals Value.
type Boost struct {
	Field  string
	Value  string
	Weight float64
}

// Config holds the request-scoped build settings.
type Config struct {
	// RoleField is filtered by the request roles. Empty disables role filtering.
	RoleField string
	Boosts    []Boost
}

// Request is one query build.
type Request struct {
	Query        string
	Languages    []string
	DefaultField string
	Roles        []string
}

// Result is the outcome of a build.
type Result struct {
	BuildID    string
	Query      dsl.Query
	Sorts      []dsl.Sort
	Highlights []string
	FieldLogs  map[string][]string
}

// Service builds engine queries.
type Service struct {
	processor Processor
	cfg       Config
	logger    *zap.Logger
}

// New creates a build service.
func New(processor Processor, cfg Config, logger *zap.Logger) *Service {
	return &Service{processor: processor, cfg: cfg, logger: logger}
}

// Build converts req.Query into an engine query.
// Languages travel on ctx so the semantic term command can negotiate them.
func (s *Service) Build(ctx context.Context, req Request) (Result, error) {
	buildID := uuid.NewString()
	ctx = logger.ContextWithLogger(ctx, logger.FromContextOr(ctx, s.logger).With(zap.String("build_id", buildID)))
	ctx = query.WithLanguages(ctx, req.Languages)
	ctx = query.WithRoles(ctx, req.Roles)

	qc := query.NewContext(req.Query)
	if req.DefaultField != "" {
		qc.SetDefaultField(req.DefaultField)
	}

	start := time.Now()
	_, err := s.processor.Build(ctx, qc)
	metrics.QueryBuildDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		status := StatusError
		if errors.Is(err, domain.ErrInvalidQuery) {
			status = StatusInvalidQuery
		}
		metrics.QueryBuildsTotal.WithLabelValues(status).Inc()
		logger.FromContext(ctx).Debug("Query build failed", zap.String("status", status), zap.Error(err))
		return Result{}, fmt.Errorf("build %q: %w", req.Query, err)
	}

	s.applyRoles(ctx, qc)
	s.applyBoosts(qc)
	metrics.QueryBuildsTotal.WithLabelValues(StatusOK).Inc()

	return Result{
		BuildID:    buildID,
		Query:      qc.Query(),
		Sorts:      qc.Sorts(),
		Highlights: qc.HighlightedQueries(),
		FieldLogs:  qc.FieldLogs(),
	}, nil
}

func (s *Service) applyRoles(ctx context.Context, qc query.Context) {
	roles := query.RolesFromContext(ctx)
	if s.cfg.RoleField == "" || len(roles) == 0 || !qc.RoleQueryEnabled() {
		return
	}
	qc.AddQuery(func(b *dsl.BoolQuery) {
		b.Filter(dsl.Terms(s.cfg.RoleField, roles...))
	})
}

func (s *Service) applyBoosts(qc query.Context) {
	if len(s.cfg.Boosts) == 0 {
		return
	}
	qc.AddFunctionScore(func(fns []dsl.ScoreFunction) []dsl.ScoreFunction {
		for _, b := range s.cfg.Boosts {
			fns = append(fns, dsl.WeightFunction(dsl.Term(b.Field, b.Value), b.Weight))
		}
		return fns
	})
}
