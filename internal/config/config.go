package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/vecquery/internal/domain"
	httpVec "github.com/kailas-cloud/vecquery/internal/transport/vectorizer"
)

// Vectorizer providers.
const (
	ProviderHTTP   = "http"
	ProviderOpenAI = "openai"
)

// Config holds the vecquery service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
	Engine     EngineConfig     `yaml:"engine"`
	Vectorizer VectorizerConfig `yaml:"vectorizer"`
	Semantic   SemanticConfig   `yaml:"semantic"`
	Query      QueryConfig      `yaml:"query"`
	Cache      CacheConfig      `yaml:"cache"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: determined by env)
	Format string `yaml:"format"` // json, console (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// AuthConfig holds API key authentication. No keys disables it.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// EngineConfig points at the host search engine.
type EngineConfig struct {
	URL        string `yaml:"url"`
	Type       string `yaml:"type"` // skips the version probe when set
	TimeoutSec int    `yaml:"timeout_sec"`
}

// VectorizerConfig holds the sentence vector provider settings.
type VectorizerConfig struct {
	Provider         string   `yaml:"provider"` // http (default), openai
	URL              string   `yaml:"url"`
	APIKey           string   `yaml:"api_key"`
	Model            string   `yaml:"model"`
	Dimension        int      `yaml:"dimension"`
	Fields           []string `yaml:"fields"`
	Languages        []string `yaml:"languages"`
	TimeoutSec       int      `yaml:"timeout_sec"`
	QueryInstruction string   `yaml:"query_instruction"`
}

// SemanticConfig holds the vector field layout and language defaults.
type SemanticConfig struct {
	FieldSuffix      string   `yaml:"field_suffix"`
	SpaceType        string   `yaml:"space_type"`
	DefaultLanguages []string `yaml:"default_languages"`
}

// BoostedField is a field with a boost.
type BoostedField struct {
	Name  string  `yaml:"name"`
	Boost float64 `yaml:"boost"`
}

// BoostConfig adds a constant weight to documents whose field has value.
type BoostConfig struct {
	Field  string  `yaml:"field"`
	Value  string  `yaml:"value"`
	Weight float64 `yaml:"weight"`
}

// QueryConfig holds the lexical query layout.
type QueryConfig struct {
	DefaultFields      []BoostedField `yaml:"default_fields"`
	FuzzyFields        []BoostedField `yaml:"fuzzy_fields"`
	SearchFields       []string       `yaml:"search_fields"`
	TermFields         []string       `yaml:"term_fields"`
	SortFields         []string       `yaml:"sort_fields"`
	DefaultOperator    string         `yaml:"default_operator"`
	FuzzyMinLength     int            `yaml:"fuzzy_min_length"`
	FuzzyMaxExpansions int            `yaml:"fuzzy_max_expansions"`
	RoleField          string         `yaml:"role_field"`
	Boosts             []BoostConfig  `yaml:"boosts"`
}

// CacheConfig holds the optional sentence vector cache. No addrs disables it.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	TTLSec           int      `yaml:"ttl_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether a cache is configured.
func (c CacheConfig) Enabled() bool { return len(c.Addrs) > 0 }

// TTL returns the entry lifetime.
func (c CacheConfig) TTL() time.Duration { return time.Duration(c.TTLSec) * time.Second }

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references, then applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Engine.TimeoutSec <= 0 {
		c.Engine.TimeoutSec = 5
	}

	vc := domain.DefaultVectorConfig()
	if c.Vectorizer.Provider == "" {
		c.Vectorizer.Provider = ProviderHTTP
	}
	if c.Vectorizer.Dimension <= 0 {
		c.Vectorizer.Dimension = vc.Dimensions
	}
	if len(c.Vectorizer.Fields) == 0 {
		c.Vectorizer.Fields = vc.Fields
	}
	if c.Vectorizer.TimeoutSec <= 0 {
		c.Vectorizer.TimeoutSec = 10
	}
	if c.Semantic.FieldSuffix == "" {
		c.Semantic.FieldSuffix = vc.FieldSuffix
	}
	if c.Semantic.SpaceType == "" {
		c.Semantic.SpaceType = vc.SpaceType
	}

	if len(c.Query.DefaultFields) == 0 {
		c.Query.DefaultFields = []BoostedField{{Name: "title", Boost: 0.5}, {Name: "content", Boost: 0.05}}
	}
	if len(c.Query.FuzzyFields) == 0 {
		c.Query.FuzzyFields = []BoostedField{{Name: "title", Boost: 0.01}, {Name: "content", Boost: 0.005}}
	}
	if c.Query.DefaultOperator == "" {
		c.Query.DefaultOperator = "and"
	}
	if c.Query.FuzzyMinLength <= 0 {
		c.Query.FuzzyMinLength = 4
	}
	if c.Query.FuzzyMaxExpansions <= 0 {
		c.Query.FuzzyMaxExpansions = 10
	}
	if c.Query.RoleField == "" {
		c.Query.RoleField = "role"
	}

	addrs := c.Cache.Addrs[:0]
	for _, a := range c.Cache.Addrs {
		if strings.TrimSpace(a) != "" {
			addrs = append(addrs, a)
		}
	}
	c.Cache.Addrs = addrs
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 3600
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "vecquery:vec:"
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
}

// Validate checks the configuration for correctness.
// The vectorizer URL is not checked here: a bad URL disables semantic search at startup instead.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Vectorizer.Provider {
	case ProviderHTTP, ProviderOpenAI:
	default:
		return fmt.Errorf("vectorizer.provider must be %q or %q, got %q",
			ProviderHTTP, ProviderOpenAI, c.Vectorizer.Provider)
	}
	if c.Vectorizer.Provider == ProviderHTTP {
		for _, f := range c.Vectorizer.Fields {
			if strings.EqualFold(strings.TrimSpace(f), httpVec.LangParam) {
				return fmt.Errorf("vectorizer.fields must not contain %q, it carries the language", httpVec.LangParam)
			}
		}
	}
	switch strings.ToLower(c.Query.DefaultOperator) {
	case "and", "or":
	default:
		return fmt.Errorf("query.default_operator must be \"and\" or \"or\", got %q", c.Query.DefaultOperator)
	}
	if c.Engine.Type != "" && !domain.EngineType(c.Engine.Type).IsValid() {
		return fmt.Errorf("engine.type %q is not a known engine type", c.Engine.Type)
	}
	for i, b := range c.Query.Boosts {
		if b.Field == "" || b.Weight <= 0 {
			return fmt.Errorf("query.boosts[%d] needs a field and a positive weight", i)
		}
	}
	return nil
}

// VectorizerURL returns the parsed vectorizer base URL, or an error when it is missing or not absolute.
func (c *Config) VectorizerURL() (*url.URL, error) {
	if c.Vectorizer.URL == "" {
		return nil, fmt.Errorf("vectorizer.url is empty")
	}
	u, err := url.Parse(c.Vectorizer.URL)
	if err != nil {
		return nil, fmt.Errorf("vectorizer.url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("vectorizer.url %q is not an absolute URL", c.Vectorizer.URL)
	}
	return u, nil
}

// VectorConfig returns the deployment vector settings.
func (c *Config) VectorConfig() domain.VectorConfig {
	return domain.VectorConfig{
		Dimensions:  c.Vectorizer.Dimension,
		Fields:      c.Vectorizer.Fields,
		FieldSuffix: c.Semantic.FieldSuffix,
		SpaceType:   c.Semantic.SpaceType,
	}
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
