package domain

import (
	"context"
	"fmt"
	"strings"
)

// Vectorizer turns text into sentence vectors for a given language.
// A field missing from VectorResult.Vectors means the provider could not embed it.
type Vectorizer interface {
	Vectorize(ctx context.Context, req VectorRequest) (VectorResult, error)
	SupportsLanguage(lang string) bool
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// VectorRequest maps logical field names to input text for one language.
type VectorRequest struct {
	Language string
	Inputs   map[string]string
}

// VectorResult carries the vectors keyed by logical field name and token usage
// when the provider reports it.
type VectorResult struct {
	Vectors      map[string][]float32
	PromptTokens int
	TotalTokens  int
}

// CheckDimensions returns ErrVectorDimMismatch when any vector differs from dim.
// dim <= 0 disables the check.
func CheckDimensions(vectors map[string][]float32, dim int) error {
	if dim <= 0 {
		return nil
	}
	for field, vec := range vectors {
		if len(vec) != dim {
			return fmt.Errorf("field %q: expected %d, got %d: %w", field, dim, len(vec), ErrVectorDimMismatch)
		}
	}
	return nil
}

// AnyLanguage in a LanguageSet accepts every language tag.
const AnyLanguage = "*"

// LanguageSet is a case-insensitive set of language tags.
type LanguageSet map[string]struct{}

// NewLanguageSet builds a set from tags, ignoring blanks.
func NewLanguageSet(langs ...string) LanguageSet {
	s := make(LanguageSet, len(langs))
	for _, l := range langs {
		l = strings.ToLower(strings.TrimSpace(l))
		if l != "" {
			s[l] = struct{}{}
		}
	}
	return s
}

// Contains reports whether lang is in the set.
func (s LanguageSet) Contains(lang string) bool {
	if _, ok := s[AnyLanguage]; ok {
		return lang != ""
	}
	_, ok := s[strings.ToLower(lang)]
	return ok
}

// Slice returns the tags in the set in no particular order.
func (s LanguageSet) Slice() []string {
	out := make([]string, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	return out
}

// InstructionVectorizer prepends an instruction to every input before
// delegating. Instruction-tuned models expect it on queries.
type InstructionVectorizer struct {
	inner       Vectorizer
	instruction string
}

// NewInstructionVectorizer creates a decorator that prepends instruction text.
func NewInstructionVectorizer(inner Vectorizer, instruction string) *InstructionVectorizer {
	return &InstructionVectorizer{inner: inner, instruction: instruction}
}

// Vectorize prepends the instruction and delegates to the inner vectorizer.
func (v *InstructionVectorizer) Vectorize(ctx context.Context, req VectorRequest) (VectorResult, error) {
	inputs := make(map[string]string, len(req.Inputs))
	for field, text := range req.Inputs {
		inputs[field] = v.instruction + text
	}
	result, err := v.inner.Vectorize(ctx, VectorRequest{Language: req.Language, Inputs: inputs})
	if err != nil {
		return VectorResult{}, fmt.Errorf("instruction vectorize: %w", err)
	}
	return result, nil
}

// SupportsLanguage delegates to the inner vectorizer.
func (v *InstructionVectorizer) SupportsLanguage(lang string) bool {
	return v.inner.SupportsLanguage(lang)
}

// HealthCheck delegates when the inner vectorizer supports it.
func (v *InstructionVectorizer) HealthCheck(ctx context.Context) error {
	if hc, ok := v.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}
