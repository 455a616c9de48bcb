package query

import (
	"context"
	"strings"
)

type languagesKey struct{}

type rolesKey struct{}

// WithLanguages stores the ordered language candidates of the request.
// Tags are lower-cased and blanks dropped; an empty list stores nothing.
func WithLanguages(ctx context.Context, langs []string) context.Context {
	cleaned := make([]string, 0, len(langs))
	for _, l := range langs {
		l = strings.ToLower(strings.TrimSpace(l))
		if l != "" {
			cleaned = append(cleaned, l)
		}
	}
	if len(cleaned) == 0 {
		return ctx
	}
	return context.WithValue(ctx, languagesKey{}, cleaned)
}

// LanguagesFromContext returns the language candidates of the request.
func LanguagesFromContext(ctx context.Context) ([]string, bool) {
	langs, ok := ctx.Value(languagesKey{}).([]string)
	return langs, ok && len(langs) > 0
}

// WithRoles stores the roles of the requesting user.
func WithRoles(ctx context.Context, roles []string) context.Context {
	if len(roles) == 0 {
		return ctx
	}
	return context.WithValue(ctx, rolesKey{}, roles)
}

// RolesFromContext returns the roles of the requesting user.
func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(rolesKey{}).([]string)
	return roles
}
