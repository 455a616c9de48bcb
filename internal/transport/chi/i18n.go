package chi

import (
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/kailas-cloud/vecquery/internal/domain"
)

type messageEntry struct {
	key  string
	args int
	en   string
	ja   string
}

var messageTable = []messageEntry{
	{domain.MessageInvalidQueryUnknown, 0,
		"The given query is invalid.",
		"指定されたクエリは不正です。"},
	{domain.MessageInvalidQuerySortValue, 1,
		"The given sort (%s) is invalid.",
		"指定されたソート (%s) は不正です。"},
	{domain.MessageInvalidQueryUnsupported, 0,
		"The given query has an unsupported condition.",
		"指定されたクエリにはサポートされていない条件が含まれています。"},
	{domain.MessageInvalidQueryParseError, 1,
		"The given query (%s) could not be parsed.",
		"指定されたクエリ (%s) を解析できませんでした。"},
}

// supportedLocales are the message languages, the first one being the fallback.
var supportedLocales = []language.Tag{language.English, language.Japanese}

// Messages resolves message keys into localized text.
type Messages struct {
	catalog *catalog.Builder
	matcher language.Matcher
	args    map[string]int
}

// NewMessages builds the message catalog.
func NewMessages() *Messages {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	args := make(map[string]int, len(messageTable))
	for _, e := range messageTable {
		_ = b.SetString(language.English, e.key, e.en)
		_ = b.SetString(language.Japanese, e.key, e.ja)
		args[e.key] = e.args
	}
	return &Messages{catalog: b, matcher: language.NewMatcher(supportedLocales), args: args}
}

// Localize renders key for the best match of tags. Unknown keys render as the generic invalid query text.
func (m *Messages) Localize(tags []language.Tag, key string, args ...string) string {
	_, idx, _ := m.matcher.Match(tags...)
	p := message.NewPrinter(supportedLocales[idx], message.Catalog(m.catalog))

	n, ok := m.args[key]
	if !ok {
		return p.Sprintf(domain.MessageInvalidQueryUnknown)
	}
	values := make([]any, n)
	for i := range values {
		if i < len(args) {
			values[i] = args[i]
		}
	}
	return p.Sprintf(key, values...)
}

// acceptLanguages parses the Accept-Language header in preference order.
// A malformed header yields no tags.
func acceptLanguages(r *http.Request) []language.Tag {
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil {
		return nil
	}
	return tags
}

// languageCandidates reduces tags to lower-cased base languages, keeping the first occurrence.
// Tags without an explicit language ("*") are dropped.
func languageCandidates(tags []language.Tag) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		base, conf := t.Base()
		if conf != language.Exact {
			continue
		}
		code := strings.ToLower(base.String())
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}
