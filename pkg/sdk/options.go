package vecquery

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	vectorizer       Vectorizer
	vectorDimensions int
	vectorFields     []string
	queryInstruction string

	engine    string
	engineURL string

	cacheAddrs    []string
	cachePassword string
	cacheTTL      time.Duration

	defaultLanguages []string
	roleField        string
	defaultOperator  string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithVectorizer sets the sentence vector provider.
// Without it semantic terms are searched lexically.
func WithVectorizer(v Vectorizer) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorizer = v
	})
}

// WithVectorDimensions sets the expected vector dimension.
// Defaults to 768. Zero disables the check.
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithVectorFields sets the logical fields sent to the vectorizer.
// Defaults to "content".
func WithVectorFields(fields ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorFields = fields
	})
}

// WithQueryInstruction prepends an instruction to every vectorized text.
func WithQueryInstruction(instruction string) Option {
	return optionFunc(func(c *clientConfig) {
		c.queryInstruction = instruction
	})
}

// WithEngine sets the search engine type, e.g. "opensearch2" or "elasticsearch8".
func WithEngine(engineType string) Option {
	return optionFunc(func(c *clientConfig) {
		c.engine = engineType
	})
}

// WithEngineURL probes the engine at url for its type when WithEngine is not given.
func WithEngineURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.engineURL = url
	})
}

// WithValkeyCache caches sentence vectors in a Valkey instance.
func WithValkeyCache(addr, password string, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
		c.cacheTTL = ttl
	})
}

// WithDefaultLanguages sets the languages tried when a build names none.
func WithDefaultLanguages(langs ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultLanguages = langs
	})
}

// WithRoleField sets the field filtered by the build roles.
// Defaults to "role".
func WithRoleField(field string) Option {
	return optionFunc(func(c *clientConfig) {
		c.roleField = field
	})
}

// WithDefaultOperator sets how bare terms combine: "and" (default) or "or".
func WithDefaultOperator(op string) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultOperator = op
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
