package query

import (
	"context"
	"fmt"

	bquery "github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquery/internal/domain/dsl"
)

// Chain converts a parsed query within a build. sink is the script side
// channel installed by an outer filter, nil when no filter installed one.
type Chain func(ctx context.Context, qc Context, sink ScriptSink, q bquery.Query, boost float64) (dsl.Query, error)

// Filter wraps the conversion of a parsed query. A filter either calls next
// or produces the result itself.
type Filter interface {
	Execute(ctx context.Context, qc Context, sink ScriptSink, q bquery.Query, boost float64, next Chain) (dsl.Query, error)
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(ctx context.Context, qc Context, sink ScriptSink, q bquery.Query, boost float64, next Chain) (dsl.Query, error)

// Execute implements Filter.
func (f FilterFunc) Execute(
	ctx context.Context, qc Context, sink ScriptSink, q bquery.Query, boost float64, next Chain,
) (dsl.Query, error) {
	return f(ctx, qc, sink, q, boost, next)
}

// Processor builds engine queries from query strings.
type Processor struct {
	parser *Parser
	chain  Chain
	logger *zap.Logger
}

// NewProcessor composes the filter chain. Filters run in the given order,
// the first one outermost, with the converter at the end.
func NewProcessor(parser *Parser, converter *Converter, logger *zap.Logger, filters ...Filter) *Processor {
	chain := Chain(converter.Convert)
	for i := len(filters) - 1; i >= 0; i-- {
		f, next := filters[i], chain
		chain = func(ctx context.Context, qc Context, sink ScriptSink, q bquery.Query, boost float64) (dsl.Query, error) {
			return f.Execute(ctx, qc, sink, q, boost, next)
		}
	}
	return &Processor{parser: parser, chain: chain, logger: logger}
}

// Build parses the query string of qc, converts it and stores the result in qc.
// A query string without any clause builds match_all.
func (p *Processor) Build(ctx context.Context, qc Context) (dsl.Query, error) {
	parsed, err := p.parser.Parse(qc.QueryString())
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	built, err := p.chain(ctx, qc, nil, parsed, dsl.DefaultBoost)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	if built == nil {
		built = dsl.MatchAll()
	}
	qc.SetQuery(built)

	p.logger.Debug("query built",
		zap.Stringer("context", qc),
		zap.Int("sorts", len(qc.Sorts())),
	)
	return qc.Query(), nil
}
