package vecquery

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/dsl"
	"github.com/kailas-cloud/vecquery/internal/usecase/querybuild"
)

// Result is a built engine query.
type Result struct {
	BuildID    string
	Query      map[string]any
	Sort       []map[string]any
	Highlights []string
	// FieldLogs lists the terms searched per field.
	FieldLogs map[string][]string

	EmbeddingCalls  int
	EmbeddingTokens int
}

// JSON renders the search request body: the query plus sort clauses when present.
func (r Result) JSON() ([]byte, error) {
	body := map[string]any{"query": r.Query}
	if len(r.Sort) > 0 {
		body["sort"] = r.Sort
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("vecquery: encode query: %w", err)
	}
	return data, nil
}

func resultFrom(out querybuild.Result, usage *domain.EmbeddingUsage) Result {
	q := out.Query
	if q == nil {
		q = dsl.MatchAll()
	}
	res := Result{
		BuildID:         out.BuildID,
		Query:           q.Source(),
		Highlights:      out.Highlights,
		FieldLogs:       out.FieldLogs,
		EmbeddingCalls:  usage.Calls,
		EmbeddingTokens: usage.TotalTokens,
	}
	for _, s := range out.Sorts {
		res.Sort = append(res.Sort, s.Source())
	}
	return res
}
