package domain

import "context"

type embeddingUsageKey struct{}

// EmbeddingUsage collects vectorizer usage for a single query build.
// The handler puts a mutable pointer into the context before building;
// the instrumented vectorizer writes after each call; the handler reads it for response headers.
type EmbeddingUsage struct {
	Calls       int
	TotalTokens int
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// Record counts one vectorizer call and its tokens.
func (u *EmbeddingUsage) Record(tokens int) {
	if u != nil {
		u.Calls++
		u.TotalTokens += tokens
	}
}

// Used reports whether any vectorizer call was made.
func (u *EmbeddingUsage) Used() bool {
	return u != nil && u.Calls > 0
}
