package semantic

import (
	"context"
	"strings"

	"github.com/kailas-cloud/vecquery/internal/query"
)

// LanguageSource yields the ordered language candidates of a build.
// ok is false when no candidate is available.
type LanguageSource func(ctx context.Context) (langs []string, ok bool)

// RequestLanguages reads candidates from the request context and falls back
// to defaults when the request carries none.
func RequestLanguages(defaults []string) LanguageSource {
	fallback := make([]string, 0, len(defaults))
	for _, l := range defaults {
		l = strings.ToLower(strings.TrimSpace(l))
		if l != "" {
			fallback = append(fallback, l)
		}
	}
	return func(ctx context.Context) ([]string, bool) {
		if langs, ok := query.LanguagesFromContext(ctx); ok {
			return langs, true
		}
		return fallback, len(fallback) > 0
	}
}
