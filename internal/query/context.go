// Package query assembles search engine queries from user query strings.
//
// A Processor parses the query string, runs it through an explicitly built
// filter chain and converts every parsed term with a TermCommand. Filters and
// commands share one Context per build.
package query

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/vecquery/internal/domain/dsl"
)

// DefaultFieldLog is the field-log key for terms converted against the default fields.
const DefaultFieldLog = "_default"

// Context is the mutable state of one query build.
//
//nolint:interfacebloat // full build-session contract, implemented once by BuildContext
type Context interface {
	fmt.Stringer

	QueryString() string
	DefaultField() string
	SetDefaultField(field string)

	AddSorts(sorts ...dsl.Sort)
	HasSorts() bool
	Sorts() []dsl.Sort

	SetQuery(q dsl.Query)
	Query() dsl.Query
	AddQuery(fn func(b *dsl.BoolQuery))
	AddFunctionScore(fn func(functions []dsl.ScoreFunction) []dsl.ScoreFunction)

	AddFieldLog(field, text string)
	FieldLogs() map[string][]string
	DefaultKeywords() []string
	AddHighlightedQuery(text string)
	HighlightedQueries() []string

	RoleQueryEnabled() bool
	SkipRoleQuery()

	// Root returns the context that owns the build state.
	Root() Context
	// Equal reports whether other shares this context's build state.
	Equal(other Context) bool
}

// BuildContext is the Context owning the state of one build.
type BuildContext struct {
	queryString      string
	defaultField     string
	sorts            []dsl.Sort
	query            dsl.Query
	fieldLogs        map[string][]string
	highlighted      []string
	roleQueryEnabled bool
}

var _ Context = (*BuildContext)(nil)

// NewContext creates a build context for a query string. Role queries start enabled.
func NewContext(queryString string) *BuildContext {
	return &BuildContext{
		queryString:      queryString,
		fieldLogs:        make(map[string][]string),
		roleQueryEnabled: true,
	}
}

// QueryString returns the original query string.
func (c *BuildContext) QueryString() string { return c.queryString }

// DefaultField returns the field bare terms are searched in, empty for the default fields.
func (c *BuildContext) DefaultField() string { return c.defaultField }

// SetDefaultField sets the field bare terms are searched in.
func (c *BuildContext) SetDefaultField(field string) { c.defaultField = field }

// AddSorts appends sort clauses.
func (c *BuildContext) AddSorts(sorts ...dsl.Sort) { c.sorts = append(c.sorts, sorts...) }

// HasSorts reports whether any sort was added.
func (c *BuildContext) HasSorts() bool { return len(c.sorts) > 0 }

// Sorts returns the accumulated sort clauses.
func (c *BuildContext) Sorts() []dsl.Sort { return c.sorts }

// SetQuery replaces the built query.
func (c *BuildContext) SetQuery(q dsl.Query) { c.query = q }

// Query returns the built query.
func (c *BuildContext) Query() dsl.Query { return c.query }

// AddQuery wraps the current query in bool.must and lets fn add clauses to it.
func (c *BuildContext) AddQuery(fn func(b *dsl.BoolQuery)) {
	b := dsl.Bool().Must(c.query)
	fn(b)
	c.query = b
}

// AddFunctionScore wraps the current query in a function_score with the functions fn returns.
// Nothing changes when fn returns no functions.
func (c *BuildContext) AddFunctionScore(fn func(functions []dsl.ScoreFunction) []dsl.ScoreFunction) {
	functions := fn(nil)
	if len(functions) == 0 {
		return
	}
	inner := c.query
	if inner == nil {
		inner = dsl.MatchAll()
	}
	c.query = dsl.FunctionScore(inner, functions...)
}

// AddFieldLog records text matched against field.
func (c *BuildContext) AddFieldLog(field, text string) {
	c.fieldLogs[field] = append(c.fieldLogs[field], text)
}

// FieldLogs returns the recorded field matches.
func (c *BuildContext) FieldLogs() map[string][]string { return c.fieldLogs }

// DefaultKeywords returns the texts searched in the default fields.
func (c *BuildContext) DefaultKeywords() []string { return c.fieldLogs[DefaultFieldLog] }

// AddHighlightedQuery records text to highlight in results.
func (c *BuildContext) AddHighlightedQuery(text string) {
	c.highlighted = append(c.highlighted, text)
}

// HighlightedQueries returns the texts to highlight.
func (c *BuildContext) HighlightedQueries() []string { return c.highlighted }

// RoleQueryEnabled reports whether role filtering applies to this build.
func (c *BuildContext) RoleQueryEnabled() bool { return c.roleQueryEnabled }

// SkipRoleQuery disables role filtering for this build.
func (c *BuildContext) SkipRoleQuery() { c.roleQueryEnabled = false }

// Root implements Context.
func (c *BuildContext) Root() Context { return c }

// Equal implements Context. Decorators of c compare equal to c.
func (c *BuildContext) Equal(other Context) bool {
	if other == nil {
		return false
	}
	return other.Root() == Context(c)
}

func (c *BuildContext) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "QueryContext{query=%q", c.queryString)
	if c.defaultField != "" {
		fmt.Fprintf(&b, ", defaultField=%q", c.defaultField)
	}
	fmt.Fprintf(&b, ", sorts=%d, highlighted=%d, roleQuery=%t}",
		len(c.sorts), len(c.highlighted), c.roleQueryEnabled)
	return b.String()
}
