package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery signals a query the pipeline refuses to build.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrUnsupportedQuery signals a parsed query node the converter cannot express.
	ErrUnsupportedQuery = errors.New("unsupported query")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrUnsupportedLanguage signals a language the provider cannot embed.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrEngineUnavailable signals that the search engine could not be probed.
	ErrEngineUnavailable = errors.New("search engine unavailable")
)

// Message keys for user-facing query errors.
const (
	MessageInvalidQueryUnknown     = "errors.invalid_query_unknown"
	MessageInvalidQuerySortValue   = "errors.invalid_query_sort_value"
	MessageInvalidQueryUnsupported = "errors.invalid_query_unsupported"
	MessageInvalidQueryParseError  = "errors.invalid_query_parse_error"
)

// InvalidQueryError wraps ErrInvalidQuery with a message key the transport
// layer resolves into a localized message. Message is the log-facing detail.
type InvalidQueryError struct {
	MessageKey string
	Args       []string
	Message    string
	Err        error
}

func (e *InvalidQueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrInvalidQuery.Error(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidQuery.Error(), e.Message)
}

// Is reports ErrInvalidQuery as a match so errors.Is works through wrapping.
func (e *InvalidQueryError) Is(target error) bool { return target == ErrInvalidQuery }

func (e *InvalidQueryError) Unwrap() error { return e.Err }

// NewInvalidQuery creates an invalid query error.
func NewInvalidQuery(messageKey, message string, args ...string) error {
	return &InvalidQueryError{MessageKey: messageKey, Message: message, Args: args}
}
