// Package semantic rewrites terms on the semantic pseudo-field into
// vector scoring scripts.
//
// TermCommand intercepts the terms, obtains sentence vectors and leaves the
// scripts on the ScriptSink of the build. RewriteFilter installs that sink
// and folds the scripts into the final query.
package semantic

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/dsl"
	"github.com/kailas-cloud/vecquery/internal/metrics"
	"github.com/kailas-cloud/vecquery/internal/query"
)

// Field is the reserved pseudo-field that triggers semantic rewriting.
const Field = "semantic"

// MessageSentenceVector is the log-facing detail of a missing vector.
const MessageSentenceVector = "Failed to get a sentence vector."

// Config holds the vector field layout.
type Config struct {
	// Fields are the logical input fields sent to the vectorizer.
	Fields      []string
	FieldSuffix string
	SpaceType   string
}

// ConfigFrom derives Config from the deployment vector settings.
func ConfigFrom(vc domain.VectorConfig) Config {
	return Config{Fields: vc.Fields, FieldSuffix: vc.FieldSuffix, SpaceType: vc.SpaceType}
}

// TermCommand converts semantic terms into scoring scripts and delegates
// every other term to the wrapped command.
type TermCommand struct {
	next       query.TermCommand
	vectorizer domain.Vectorizer
	cfg        Config
	languages  LanguageSource
	logger     *zap.Logger
}

var _ query.TermCommand = (*TermCommand)(nil)

// NewTermCommand creates the command. When the engine cannot evaluate vector
// scoring scripts the command drops the vectorizer and stays inert, so every
// semantic term falls back to lexical conversion. A nil vectorizer has the same effect.
func NewTermCommand(
	next query.TermCommand,
	vectorizer domain.Vectorizer,
	engine domain.EngineInfo,
	cfg Config,
	languages LanguageSource,
	logger *zap.Logger,
) *TermCommand {
	if vectorizer != nil && !engine.Type.SupportsScriptVectorScoring() {
		logger.Warn("search engine does not support script vector scoring, semantic search disabled",
			zap.String("engine", string(engine.Type)),
			zap.String("version", engine.Version),
		)
		vectorizer = nil
	}
	if languages == nil {
		languages = RequestLanguages(nil)
	}
	return &TermCommand{
		next:       next,
		vectorizer: vectorizer,
		cfg:        cfg,
		languages:  languages,
		logger:     logger,
	}
}

// Enabled reports whether semantic terms can produce scripts.
func (c *TermCommand) Enabled() bool { return c.vectorizer != nil }

// ConvertTerm implements query.TermCommand.
func (c *TermCommand) ConvertTerm(ctx context.Context, qc query.Context, sink query.ScriptSink, t query.Term) (dsl.Query, error) {
	// Wildcard and fuzzy terms are patterns, not sentences; they stay lexical.
	if t.Field != Field || t.Kind == query.KindWildcard || t.Fuzziness > 0 {
		return c.next.ConvertTerm(ctx, qc, sink, t)
	}

	if sink == nil {
		c.logger.Debug("no script sink in the filter chain, converting semantic term lexically",
			zap.Stringer("context", qc))
		return c.fallback(ctx, qc, sink, t, metrics.RewriteFallbackNoSink)
	}

	langs, ok := c.languages(ctx)
	if !ok {
		return c.fallback(ctx, qc, sink, t, metrics.RewriteFallbackNoLanguage)
	}
	if c.vectorizer == nil {
		return c.fallback(ctx, qc, sink, t, metrics.RewriteFallbackInert)
	}
	lang, ok := c.negotiate(langs)
	if !ok {
		c.logger.Debug("no supported language for semantic term", zap.Strings("candidates", langs))
		return c.fallback(ctx, qc, sink, t, metrics.RewriteFallbackUnsupported)
	}

	scripts, err := c.scripts(ctx, lang, t.Text)
	if err != nil {
		metrics.SemanticRewritesTotal.WithLabelValues(metrics.RewriteError).Inc()
		return nil, err
	}
	if len(scripts) == 0 {
		return c.fallback(ctx, qc, sink, t, metrics.RewriteFallbackEmptyScripts)
	}

	sink.SetScripts(scripts)
	qc.AddHighlightedQuery(t.Text)
	metrics.SemanticRewritesTotal.WithLabelValues(metrics.RewriteScripted).Inc()
	return dsl.MatchAll(), nil
}

// negotiate returns the first candidate the vectorizer supports.
func (c *TermCommand) negotiate(langs []string) (string, bool) {
	for _, l := range langs {
		if c.vectorizer.SupportsLanguage(l) {
			return l, true
		}
	}
	return "", false
}

func (c *TermCommand) scripts(ctx context.Context, lang, text string) ([]dsl.Script, error) {
	if len(c.cfg.Fields) == 0 {
		return nil, nil
	}
	inputs := make(map[string]string, len(c.cfg.Fields))
	for _, f := range c.cfg.Fields {
		inputs[f] = text
	}

	result, err := c.vectorizer.Vectorize(ctx, domain.VectorRequest{Language: lang, Inputs: inputs})
	if err != nil {
		return nil, fmt.Errorf("vectorize semantic term: %w", err)
	}

	scripts := make([]dsl.Script, 0, len(c.cfg.Fields))
	for _, f := range c.cfg.Fields {
		vec, ok := result.Vectors[f]
		if !ok || len(vec) == 0 {
			return nil, &domain.InvalidQueryError{
				MessageKey: domain.MessageInvalidQueryUnknown,
				Message:    MessageSentenceVector,
			}
		}
		scripts = append(scripts, NewScoreScript(VectorField(f, lang, c.cfg.FieldSuffix), vec, c.cfg.SpaceType))
	}
	return scripts, nil
}

// fallback converts the term text lexically against the default field.
func (c *TermCommand) fallback(
	ctx context.Context, qc query.Context, sink query.ScriptSink, t query.Term, outcome string,
) (dsl.Query, error) {
	metrics.SemanticRewritesTotal.WithLabelValues(outcome).Inc()
	t.Field = qc.DefaultField()
	return c.next.ConvertTerm(ctx, qc, sink, t)
}
