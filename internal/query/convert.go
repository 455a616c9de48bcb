package query

import (
	"context"
	"fmt"
	"strings"

	bquery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/dsl"
)

// Default operators applied to unprefixed terms.
const (
	OperatorAnd = "and"
	OperatorOr  = "or"
)

// Converter walks a parsed query tree and converts each leaf with a TermCommand.
type Converter struct {
	command         TermCommand
	defaultOperator string
}

// NewConverter creates a converter. An empty operator means OperatorAnd.
func NewConverter(command TermCommand, defaultOperator string) *Converter {
	op := strings.ToLower(defaultOperator)
	if op != OperatorOr {
		op = OperatorAnd
	}
	return &Converter{command: command, defaultOperator: op}
}

// Convert is the terminal Chain: it converts q into an engine query.
// A nil result means q produced no clause.
func (c *Converter) Convert(ctx context.Context, qc Context, sink ScriptSink, q bquery.Query, boost float64) (dsl.Query, error) {
	switch n := q.(type) {
	case *bquery.BooleanQuery:
		return c.convertBoolean(ctx, qc, sink, n, boost*n.BoostVal.Value())
	case *bquery.ConjunctionQuery:
		b := dsl.Bool()
		if err := c.convertAll(ctx, qc, sink, n.Conjuncts, boost*n.BoostVal.Value(), b.Must); err != nil {
			return nil, err
		}
		return finish(b), nil
	case *bquery.DisjunctionQuery:
		return c.convertDisjunction(ctx, qc, sink, n, boost*n.BoostVal.Value())
	case *bquery.MatchQuery:
		return c.convertTerm(ctx, qc, sink, Term{
			Field: n.FieldVal, Text: n.Match, Kind: KindMatch,
			Boost: boost * n.BoostVal.Value(), Fuzziness: n.Fuzziness,
		})
	case *bquery.MatchPhraseQuery:
		return c.convertTerm(ctx, qc, sink, Term{
			Field: n.FieldVal, Text: n.MatchPhrase, Kind: KindPhrase,
			Boost: boost * n.BoostVal.Value(), Fuzziness: n.Fuzziness,
		})
	case *bquery.WildcardQuery:
		return c.convertTerm(ctx, qc, sink, Term{
			Field: n.FieldVal, Text: n.Wildcard, Kind: KindWildcard,
			Boost: boost * n.BoostVal.Value(),
		})
	case *bquery.NumericRangeQuery:
		return convertRange(n, boost*n.BoostVal.Value())
	case *bquery.MatchAllQuery:
		return dsl.MatchAll(), nil
	}
	return nil, &domain.InvalidQueryError{
		MessageKey: domain.MessageInvalidQueryUnsupported,
		Args:       []string{qc.QueryString()},
		Message:    fmt.Sprintf("unsupported query node %T", q),
		Err:        domain.ErrUnsupportedQuery,
	}
}

func (c *Converter) convertTerm(ctx context.Context, qc Context, sink ScriptSink, t Term) (dsl.Query, error) {
	if t.Field == "" {
		t.Field = qc.DefaultField()
	}
	out, err := c.command.ConvertTerm(ctx, qc, sink, t)
	if err != nil {
		return nil, fmt.Errorf("convert term %q: %w", t.Text, err)
	}
	return out, nil
}

func (c *Converter) convertBoolean(
	ctx context.Context, qc Context, sink ScriptSink, n *bquery.BooleanQuery, boost float64,
) (dsl.Query, error) {
	b := dsl.Bool()
	if must, ok := n.Must.(*bquery.ConjunctionQuery); ok {
		if err := c.convertAll(ctx, qc, sink, must.Conjuncts, boost, b.Must); err != nil {
			return nil, err
		}
	} else if n.Must != nil {
		if err := c.convertAll(ctx, qc, sink, []bquery.Query{n.Must}, boost, b.Must); err != nil {
			return nil, err
		}
	}

	should := b.Should
	if c.defaultOperator == OperatorAnd {
		should = b.Must
	}
	if err := c.convertOptional(ctx, qc, sink, n.Should, boost, should, b); err != nil {
		return nil, err
	}

	if mustNot, ok := n.MustNot.(*bquery.DisjunctionQuery); ok {
		if err := c.convertAll(ctx, qc, sink, mustNot.Disjuncts, boost, b.MustNot); err != nil {
			return nil, err
		}
	} else if n.MustNot != nil {
		if err := c.convertAll(ctx, qc, sink, []bquery.Query{n.MustNot}, boost, b.MustNot); err != nil {
			return nil, err
		}
	}
	return finish(b), nil
}

func (c *Converter) convertOptional(
	ctx context.Context, qc Context, sink ScriptSink, n bquery.Query, boost float64,
	add func(...dsl.Query) *dsl.BoolQuery, b *dsl.BoolQuery,
) error {
	d, ok := n.(*bquery.DisjunctionQuery)
	if !ok {
		if n == nil {
			return nil
		}
		return c.convertAll(ctx, qc, sink, []bquery.Query{n}, boost, add)
	}
	if d.Min > 1 && c.defaultOperator == OperatorOr {
		b.MinimumShouldMatch(fmt.Sprintf("%d", int(d.Min)))
	}
	return c.convertAll(ctx, qc, sink, d.Disjuncts, boost*d.BoostVal.Value(), add)
}

func (c *Converter) convertDisjunction(
	ctx context.Context, qc Context, sink ScriptSink, n *bquery.DisjunctionQuery, boost float64,
) (dsl.Query, error) {
	// Numeric tokens parse as match OR exact range; the match alone keeps text semantics.
	if m, ok := numberToken(n); ok {
		return c.Convert(ctx, qc, sink, m, boost)
	}
	b := dsl.Bool()
	if n.Min > 1 {
		b.MinimumShouldMatch(fmt.Sprintf("%d", int(n.Min)))
	}
	if err := c.convertAll(ctx, qc, sink, n.Disjuncts, boost, b.Should); err != nil {
		return nil, err
	}
	return finish(b), nil
}

func (c *Converter) convertAll(
	ctx context.Context, qc Context, sink ScriptSink, nodes []bquery.Query, boost float64,
	add func(...dsl.Query) *dsl.BoolQuery,
) error {
	for _, node := range nodes {
		out, err := c.Convert(ctx, qc, sink, node, boost)
		if err != nil {
			return err
		}
		add(out)
	}
	return nil
}

func numberToken(n *bquery.DisjunctionQuery) (*bquery.MatchQuery, bool) {
	if len(n.Disjuncts) != 2 {
		return nil, false
	}
	m, ok := n.Disjuncts[0].(*bquery.MatchQuery)
	if !ok {
		return nil, false
	}
	r, ok := n.Disjuncts[1].(*bquery.NumericRangeQuery)
	if !ok || r.Min == nil || r.Max == nil || *r.Min != *r.Max {
		return nil, false
	}
	return m, true
}

func convertRange(n *bquery.NumericRangeQuery, boost float64) (dsl.Query, error) {
	if n.FieldVal == "" {
		return nil, domain.NewInvalidQuery(domain.MessageInvalidQueryUnsupported, "range without field")
	}
	r := dsl.Range(n.FieldVal)
	r.Boost = boost
	if n.Min != nil {
		if n.InclusiveMin == nil || *n.InclusiveMin {
			r.GTE = n.Min
		} else {
			r.GT = n.Min
		}
	}
	if n.Max != nil {
		if n.InclusiveMax != nil && *n.InclusiveMax {
			r.LTE = n.Max
		} else {
			r.LT = n.Max
		}
	}
	return r, nil
}

func finish(b *dsl.BoolQuery) dsl.Query {
	if !b.HasClauses() {
		return nil
	}
	return b.Simplify()
}
