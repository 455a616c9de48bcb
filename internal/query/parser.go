package query

import (
	"strings"

	bquery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/vecquery/internal/domain"
)

// Parser turns a query string into a query tree using the bleve query string syntax:
// bare terms, "quoted phrases", field:value, +required, -excluded, term^boost and term~fuzziness.
type Parser struct{}

// NewParser creates a query string parser.
func NewParser() *Parser { return &Parser{} }

// Parse parses text. A blank query string parses to a match-all node.
func (p *Parser) Parse(text string) (bquery.Query, error) {
	if strings.TrimSpace(text) == "" {
		return bquery.NewMatchAllQuery(), nil
	}
	q, err := bquery.NewQueryStringQuery(text).Parse()
	if err != nil {
		return nil, &domain.InvalidQueryError{
			MessageKey: domain.MessageInvalidQueryParseError,
			Args:       []string{text},
			Message:    "failed to parse query string",
			Err:        err,
		}
	}
	return q, nil
}
