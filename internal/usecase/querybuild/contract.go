package querybuild

import (
	"context"

	"github.com/kailas-cloud/vecquery/internal/domain/dsl"
	"github.com/kailas-cloud/vecquery/internal/query"
)

// Processor turns the query string of a build context into an engine query.
type Processor interface {
	Build(ctx context.Context, qc query.Context) (dsl.Query, error)
}
