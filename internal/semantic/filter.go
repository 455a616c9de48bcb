package semantic

import (
	"context"

	bquery "github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquery/internal/domain/dsl"
	"github.com/kailas-cloud/vecquery/internal/logger"
	"github.com/kailas-cloud/vecquery/internal/metrics"
	"github.com/kailas-cloud/vecquery/internal/query"
)

// Wrapper kinds reported by RewriteFilter.
const (
	WrapNone          = "none"
	WrapScriptScore   = "script_score"
	WrapFunctionScore = "function_score"
)

// RewriteFilter folds the scripts left by TermCommand into the built query.
type RewriteFilter struct {
	logger *zap.Logger
}

var _ query.Filter = (*RewriteFilter)(nil)

// NewRewriteFilter creates the filter. The request logger, when present, takes precedence over logger.
func NewRewriteFilter(logger *zap.Logger) *RewriteFilter {
	return &RewriteFilter{logger: logger}
}

// Execute runs the rest of the chain against a fresh script context and
// wraps its result: one script becomes a script_score query, several become
// a function_score query summing the script scores.
func (f *RewriteFilter) Execute(
	ctx context.Context, qc query.Context, _ query.ScriptSink, q bquery.Query, boost float64, next query.Chain,
) (dsl.Query, error) {
	sc := query.NewScriptContext(qc)
	built, err := next(ctx, sc, sc, q, boost)
	if err != nil {
		return nil, err
	}

	out, kind := Wrap(built, sc.Scripts())
	metrics.QueryWrapsTotal.WithLabelValues(kind).Inc()

	l := logger.FromContextOr(ctx, f.logger)
	if l.Core().Enabled(zap.DebugLevel) {
		l.Debug("QUERY", zap.String("query", dsl.String(out)), zap.String("wrap", kind))
	}
	return out, nil
}

// Wrap applies scripts to base. A nil base is scored over match_all.
func Wrap(base dsl.Query, scripts []dsl.Script) (dsl.Query, string) {
	if len(scripts) == 0 {
		return base, WrapNone
	}
	if base == nil {
		base = dsl.MatchAll()
	}
	if len(scripts) == 1 {
		return dsl.ScriptScore(base, scripts[0]), WrapScriptScore
	}
	functions := make([]dsl.ScoreFunction, len(scripts))
	for i, s := range scripts {
		functions[i] = dsl.ScriptFunction(s)
	}
	return dsl.FunctionScore(base, functions...).WithModes(dsl.ScoreModeSum, dsl.BoostModeReplace), WrapFunctionScore
}
