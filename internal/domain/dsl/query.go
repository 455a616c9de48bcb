// Package dsl is a small builder for the search engine query DSL.
//
// Every node renders itself as the engine's JSON body through Source.
// Builders follow the engine's defaults: boost 1, slop 0.
package dsl

import (
	"encoding/json"
	"fmt"
)

// DefaultBoost is the boost applied when a builder does not set one.
const DefaultBoost = 1.0

// Query is a node of the query tree.
type Query interface {
	Source() map[string]any
}

// String renders q as compact JSON. A nil query renders as an empty string.
func String(q Query) string {
	if q == nil {
		return ""
	}
	data, err := json.Marshal(q.Source())
	if err != nil {
		return fmt.Sprintf("<invalid query: %v>", err)
	}
	return string(data)
}

// MatchAllQuery matches every document.
type MatchAllQuery struct {
	Boost float64
}

// MatchAll creates a match_all query.
func MatchAll() *MatchAllQuery {
	return &MatchAllQuery{Boost: DefaultBoost}
}

// Source implements Query.
func (q *MatchAllQuery) Source() map[string]any {
	return map[string]any{"match_all": map[string]any{"boost": q.Boost}}
}

// MatchPhraseQuery matches an analyzed phrase on a single field.
type MatchPhraseQuery struct {
	Field string
	Text  string
	Slop  int
	Boost float64
}

// MatchPhrase creates a match_phrase query.
func MatchPhrase(field, text string) *MatchPhraseQuery {
	return &MatchPhraseQuery{Field: field, Text: text, Boost: DefaultBoost}
}

// WithBoost sets the boost.
func (q *MatchPhraseQuery) WithBoost(boost float64) *MatchPhraseQuery {
	q.Boost = boost
	return q
}

// Source implements Query.
func (q *MatchPhraseQuery) Source() map[string]any {
	return map[string]any{"match_phrase": map[string]any{q.Field: map[string]any{
		"query": q.Text,
		"slop":  q.Slop,
		"boost": q.Boost,
	}}}
}

// TermQuery matches an exact, not analyzed value.
type TermQuery struct {
	Field string
	Value string
	Boost float64
}

// Term creates a term query.
func Term(field, value string) *TermQuery {
	return &TermQuery{Field: field, Value: value, Boost: DefaultBoost}
}

// WithBoost sets the boost.
func (q *TermQuery) WithBoost(boost float64) *TermQuery {
	q.Boost = boost
	return q
}

// Source implements Query.
func (q *TermQuery) Source() map[string]any {
	return map[string]any{"term": map[string]any{q.Field: map[string]any{
		"value": q.Value,
		"boost": q.Boost,
	}}}
}

// TermsQuery matches any of several exact values.
type TermsQuery struct {
	Field  string
	Values []string
}

// Terms creates a terms query.
func Terms(field string, values ...string) *TermsQuery {
	return &TermsQuery{Field: field, Values: values}
}

// Source implements Query.
func (q *TermsQuery) Source() map[string]any {
	values := make([]any, len(q.Values))
	for i, v := range q.Values {
		values[i] = v
	}
	return map[string]any{"terms": map[string]any{q.Field: values}}
}

// PrefixQuery matches values starting with a prefix.
type PrefixQuery struct {
	Field string
	Value string
	Boost float64
}

// Prefix creates a prefix query.
func Prefix(field, value string) *PrefixQuery {
	return &PrefixQuery{Field: field, Value: value, Boost: DefaultBoost}
}

// WithBoost sets the boost.
func (q *PrefixQuery) WithBoost(boost float64) *PrefixQuery {
	q.Boost = boost
	return q
}

// Source implements Query.
func (q *PrefixQuery) Source() map[string]any {
	return map[string]any{"prefix": map[string]any{q.Field: map[string]any{
		"value": q.Value,
		"boost": q.Boost,
	}}}
}

// WildcardQuery matches a pattern with * and ? wildcards.
type WildcardQuery struct {
	Field   string
	Pattern string
	Boost   float64
}

// Wildcard creates a wildcard query.
func Wildcard(field, pattern string) *WildcardQuery {
	return &WildcardQuery{Field: field, Pattern: pattern, Boost: DefaultBoost}
}

// WithBoost sets the boost.
func (q *WildcardQuery) WithBoost(boost float64) *WildcardQuery {
	q.Boost = boost
	return q
}

// Source implements Query.
func (q *WildcardQuery) Source() map[string]any {
	return map[string]any{"wildcard": map[string]any{q.Field: map[string]any{
		"wildcard": q.Pattern,
		"boost":    q.Boost,
	}}}
}

// FuzzinessAuto lets the engine pick the edit distance from the term length.
const FuzzinessAuto = "AUTO"

// FuzzyQuery matches terms within an edit distance.
type FuzzyQuery struct {
	Field          string
	Value          string
	Fuzziness      string
	PrefixLength   int
	MaxExpansions  int
	Transpositions bool
	Boost          float64
}

// Fuzzy creates a fuzzy query with engine defaults.
func Fuzzy(field, value string) *FuzzyQuery {
	return &FuzzyQuery{
		Field:          field,
		Value:          value,
		Fuzziness:      FuzzinessAuto,
		MaxExpansions:  50,
		Transpositions: true,
		Boost:          DefaultBoost,
	}
}

// Source implements Query.
func (q *FuzzyQuery) Source() map[string]any {
	return map[string]any{"fuzzy": map[string]any{q.Field: map[string]any{
		"value":          q.Value,
		"fuzziness":      q.Fuzziness,
		"prefix_length":  q.PrefixLength,
		"max_expansions": q.MaxExpansions,
		"transpositions": q.Transpositions,
		"boost":          q.Boost,
	}}}
}

// RangeQuery matches numeric values within bounds. Nil bounds are omitted.
type RangeQuery struct {
	Field string
	GT    *float64
	GTE   *float64
	LT    *float64
	LTE   *float64
	Boost float64
}

// Range creates an unbounded range query on field.
func Range(field string) *RangeQuery {
	return &RangeQuery{Field: field, Boost: DefaultBoost}
}

// Source implements Query.
func (q *RangeQuery) Source() map[string]any {
	body := map[string]any{"boost": q.Boost}
	if q.GT != nil {
		body["gt"] = *q.GT
	}
	if q.GTE != nil {
		body["gte"] = *q.GTE
	}
	if q.LT != nil {
		body["lt"] = *q.LT
	}
	if q.LTE != nil {
		body["lte"] = *q.LTE
	}
	return map[string]any{"range": map[string]any{q.Field: body}}
}
