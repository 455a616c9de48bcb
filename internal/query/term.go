package query

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/dsl"
)

// Pseudo-fields understood by the lexical command.
const (
	SortField  = "sort"
	InURLField = "inurl"
	SiteField  = "site"
	urlField   = "url"
)

// TermKind tells how the term text was written in the query string.
type TermKind int

// Term kinds.
const (
	KindMatch TermKind = iota
	KindPhrase
	KindWildcard
)

// Term is one field/text leaf of a parsed query. An empty Field means the default fields.
type Term struct {
	Field     string
	Text      string
	Kind      TermKind
	Boost     float64
	Fuzziness int
}

// TermCommand converts one term into a query clause. A nil clause with a nil
// error means the term only changed the context (sorts, for example).
type TermCommand interface {
	ConvertTerm(ctx context.Context, qc Context, sink ScriptSink, t Term) (dsl.Query, error)
}

// BoostedField is a field name with its boost.
type BoostedField struct {
	Name  string
	Boost float64
}

// FieldConfig describes how the lexical command maps fields to clauses.
type FieldConfig struct {
	DefaultFields      []BoostedField
	FuzzyFields        []BoostedField
	SearchFields       []string
	TermFields         []string
	SortFields         []string
	FuzzyMinLength     int
	FuzzyMaxExpansions int
}

// DefaultFieldConfig returns the stock field layout of a web document index.
func DefaultFieldConfig() FieldConfig {
	return FieldConfig{
		DefaultFields: []BoostedField{{Name: "title", Boost: 0.5}, {Name: "content", Boost: 0.05}},
		FuzzyFields:   []BoostedField{{Name: "title", Boost: 0.01}, {Name: "content", Boost: 0.005}},
		SearchFields: []string{
			"title", "content", "digest", "host", "site", "filename", "mimetype", "filetype",
		},
		TermFields:         []string{"url", "host", "filetype", "lang", "label", "segment"},
		SortFields:         []string{"created", "content_length", "last_modified", "timestamp", "score", "filename"},
		FuzzyMinLength:     4,
		FuzzyMaxExpansions: 10,
	}
}

// LexicalCommand converts terms into lexical match clauses.
type LexicalCommand struct {
	cfg          FieldConfig
	searchFields map[string]struct{}
	termFields   map[string]struct{}
	sortFields   map[string]struct{}
}

var _ TermCommand = (*LexicalCommand)(nil)

// NewLexicalCommand creates the default term command.
func NewLexicalCommand(cfg FieldConfig) *LexicalCommand {
	return &LexicalCommand{
		cfg:          cfg,
		searchFields: toSet(cfg.SearchFields),
		termFields:   toSet(cfg.TermFields),
		sortFields:   toSet(cfg.SortFields),
	}
}

// ConvertTerm implements TermCommand.
func (c *LexicalCommand) ConvertTerm(_ context.Context, qc Context, _ ScriptSink, t Term) (dsl.Query, error) {
	if t.Boost == 0 {
		t.Boost = dsl.DefaultBoost
	}

	switch {
	case t.Field == "":
		return c.convertDefault(qc, t), nil
	case t.Field == SortField:
		return nil, c.convertSort(qc, t.Text)
	case t.Field == InURLField:
		qc.AddFieldLog(t.Field, t.Text)
		return dsl.Wildcard(urlField, "*"+t.Text+"*").WithBoost(t.Boost), nil
	case t.Field == SiteField:
		qc.AddFieldLog(t.Field, t.Text)
		return dsl.Prefix(t.Field, t.Text).WithBoost(t.Boost), nil
	}

	if _, ok := c.termFields[t.Field]; ok {
		qc.AddFieldLog(t.Field, t.Text)
		return dsl.Term(t.Field, t.Text).WithBoost(t.Boost), nil
	}

	if _, ok := c.searchFields[t.Field]; ok {
		qc.AddFieldLog(t.Field, t.Text)
		qc.AddHighlightedQuery(t.Text)
		if t.Kind == KindWildcard {
			return dsl.Wildcard(t.Field, t.Text).WithBoost(t.Boost), nil
		}
		return dsl.MatchPhrase(t.Field, t.Text).WithBoost(t.Boost), nil
	}

	// Unknown fields are plain text: "xxx:aaa" is searched as written.
	t.Text = t.Field + ":" + t.Text
	t.Field = ""
	return c.convertDefault(qc, t), nil
}

func (c *LexicalCommand) convertDefault(qc Context, t Term) dsl.Query {
	qc.AddFieldLog(DefaultFieldLog, t.Text)
	qc.AddHighlightedQuery(t.Text)

	b := dsl.Bool()
	for _, f := range c.cfg.DefaultFields {
		if t.Kind == KindWildcard {
			b.Should(dsl.Wildcard(f.Name, t.Text).WithBoost(f.Boost * t.Boost))
			continue
		}
		b.Should(dsl.MatchPhrase(f.Name, t.Text).WithBoost(f.Boost * t.Boost))
	}

	if t.Kind == KindMatch && c.cfg.FuzzyMinLength > 0 && utf8.RuneCountInString(t.Text) >= c.cfg.FuzzyMinLength {
		for _, f := range c.cfg.FuzzyFields {
			fq := dsl.Fuzzy(f.Name, t.Text)
			fq.MaxExpansions = c.cfg.FuzzyMaxExpansions
			fq.Boost = f.Boost * t.Boost
			b.Should(fq)
		}
	}

	if !b.HasClauses() {
		return nil
	}
	return b
}

// convertSort parses "field[.asc|.desc]" entries separated by commas.
func (c *LexicalCommand) convertSort(qc Context, text string) error {
	for _, entry := range strings.Split(text, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		field, order := entry, dsl.Asc
		if i := strings.LastIndex(entry, "."); i > 0 {
			field, order = entry[:i], dsl.SortOrder(strings.ToLower(entry[i+1:]))
		}
		if _, ok := c.sortFields[field]; !ok || !order.IsValid() {
			return domain.NewInvalidQuery(domain.MessageInvalidQuerySortValue, "invalid sort value: "+entry, entry)
		}
		qc.AddSorts(dsl.FieldSort(field, order))
	}
	return nil
}

func toSet(values []string) map[string]struct{} {
	s := make(map[string]struct{}, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}
