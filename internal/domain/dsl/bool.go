package dsl

// BoolQuery combines clauses with must/should/must_not/filter semantics.
type BoolQuery struct {
	must               []Query
	should             []Query
	mustNot            []Query
	filter             []Query
	minimumShouldMatch string
	Boost              float64
}

// Bool creates an empty bool query.
func Bool() *BoolQuery {
	return &BoolQuery{Boost: DefaultBoost}
}

// Must appends required clauses. Nil clauses are skipped.
func (q *BoolQuery) Must(clauses ...Query) *BoolQuery {
	q.must = appendClauses(q.must, clauses)
	return q
}

// Should appends optional clauses. Nil clauses are skipped.
func (q *BoolQuery) Should(clauses ...Query) *BoolQuery {
	q.should = appendClauses(q.should, clauses)
	return q
}

// MustNot appends excluding clauses. Nil clauses are skipped.
func (q *BoolQuery) MustNot(clauses ...Query) *BoolQuery {
	q.mustNot = appendClauses(q.mustNot, clauses)
	return q
}

// Filter appends non-scoring required clauses. Nil clauses are skipped.
func (q *BoolQuery) Filter(clauses ...Query) *BoolQuery {
	q.filter = appendClauses(q.filter, clauses)
	return q
}

// MinimumShouldMatch sets minimum_should_match.
func (q *BoolQuery) MinimumShouldMatch(v string) *BoolQuery {
	q.minimumShouldMatch = v
	return q
}

// MustClauses returns the required clauses.
func (q *BoolQuery) MustClauses() []Query { return q.must }

// ShouldClauses returns the optional clauses.
func (q *BoolQuery) ShouldClauses() []Query { return q.should }

// MustNotClauses returns the excluding clauses.
func (q *BoolQuery) MustNotClauses() []Query { return q.mustNot }

// FilterClauses returns the filter clauses.
func (q *BoolQuery) FilterClauses() []Query { return q.filter }

// HasClauses reports whether any clause has been added.
func (q *BoolQuery) HasClauses() bool {
	return len(q.must)+len(q.should)+len(q.mustNot)+len(q.filter) > 0
}

// Simplify returns the single clause when the bool query holds exactly one
// must or should clause and nothing else, otherwise q itself.
func (q *BoolQuery) Simplify() Query {
	if len(q.mustNot) > 0 || len(q.filter) > 0 || q.Boost != DefaultBoost {
		return q
	}
	switch {
	case len(q.must) == 1 && len(q.should) == 0:
		return q.must[0]
	case len(q.should) == 1 && len(q.must) == 0:
		return q.should[0]
	}
	return q
}

// Source implements Query.
func (q *BoolQuery) Source() map[string]any {
	body := map[string]any{"boost": q.Boost}
	putClauses(body, "must", q.must)
	putClauses(body, "should", q.should)
	putClauses(body, "must_not", q.mustNot)
	putClauses(body, "filter", q.filter)
	if q.minimumShouldMatch != "" {
		body["minimum_should_match"] = q.minimumShouldMatch
	}
	return map[string]any{"bool": body}
}

func appendClauses(dst, clauses []Query) []Query {
	for _, c := range clauses {
		if c != nil {
			dst = append(dst, c)
		}
	}
	return dst
}

func putClauses(body map[string]any, key string, clauses []Query) {
	if len(clauses) == 0 {
		return
	}
	out := make([]map[string]any, len(clauses))
	for i, c := range clauses {
		out[i] = c.Source()
	}
	body[key] = out
}
