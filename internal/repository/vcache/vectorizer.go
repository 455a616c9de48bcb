// Package vcache caches sentence vectors in a key-value store.
package vcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquery/internal/db"
	"github.com/kailas-cloud/vecquery/internal/domain"
)

// store is the consumer interface for the vector cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// CachedVectorizer serves vectors from the cache and asks the inner
// vectorizer only for the fields that missed.
type CachedVectorizer struct {
	inner      domain.Vectorizer
	store      store
	prefix     string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

var _ domain.Vectorizer = (*CachedVectorizer)(nil)

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner domain.Vectorizer,
	s store,
	prefix string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedVectorizer {
	return &CachedVectorizer{
		inner:      inner,
		store:      s,
		prefix:     prefix,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Vectorize returns cached vectors where present. Token counts cover the misses only.
func (c *CachedVectorizer) Vectorize(ctx context.Context, req domain.VectorRequest) (domain.VectorResult, error) {
	fields := make([]string, 0, len(req.Inputs))
	keys := make([]string, 0, len(req.Inputs))
	for field, text := range req.Inputs {
		fields = append(fields, field)
		keys = append(keys, c.cacheKey(req.Language, field, text))
	}

	vectors := make(map[string][]float32, len(req.Inputs))
	cached, err := c.store.MGet(ctx, keys)
	if err != nil {
		c.logger.Warn("Failed to read cached vectors", zap.Error(err))
		cached = nil
	}
	for i, data := range cached {
		if len(data) == 0 {
			continue
		}
		vec, err := bytesToVector(data)
		if err != nil {
			c.logger.Warn("Failed to parse cached vector", zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		vectors[fields[i]] = vec
	}

	missing := make(map[string]string, len(req.Inputs)-len(vectors))
	for field, text := range req.Inputs {
		if _, ok := vectors[field]; ok {
			c.incCache("hit")
			continue
		}
		c.incCache("miss")
		missing[field] = text
	}
	if len(missing) == 0 {
		return domain.VectorResult{Vectors: vectors}, nil
	}

	result, err := c.inner.Vectorize(ctx, domain.VectorRequest{Language: req.Language, Inputs: missing})
	if err != nil {
		return domain.VectorResult{}, fmt.Errorf("vectorize: %w", err)
	}

	for field, vec := range result.Vectors {
		text, ok := missing[field]
		if !ok || len(vec) == 0 {
			continue
		}
		vectors[field] = vec
		c.putToCache(ctx, c.cacheKey(req.Language, field, text), vec)
	}
	result.Vectors = vectors
	return result, nil
}

// SupportsLanguage delegates to the inner vectorizer.
func (c *CachedVectorizer) SupportsLanguage(lang string) bool {
	return c.inner.SupportsLanguage(lang)
}

// HealthCheck delegates when the inner vectorizer supports it.
func (c *CachedVectorizer) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

// Lookup returns the cached vector of text for lang and field.
// found is false when nothing is cached.
func (c *CachedVectorizer) Lookup(ctx context.Context, lang, field, text string) (vec []float32, found bool, err error) {
	data, err := c.store.Get(ctx, c.cacheKey(lang, field, text))
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup: %w", err)
	}
	vec, err = bytesToVector(data)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

// Evict drops the cached vectors of text for lang in every given field.
func (c *CachedVectorizer) Evict(ctx context.Context, lang, text string, fields ...string) error {
	for _, f := range fields {
		if err := c.store.Del(ctx, c.cacheKey(lang, f, text)); err != nil {
			return fmt.Errorf("cache evict %s: %w", f, err)
		}
	}
	return nil
}

func (c *CachedVectorizer) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedVectorizer) cacheKey(lang, field, text string) string {
	h := sha256.Sum256([]byte(lang + "\x00" + field + "\x00" + text))
	return c.prefix + hex.EncodeToString(h[:])
}

func (c *CachedVectorizer) putToCache(ctx context.Context, key string, vec []float32) {
	if err := c.store.SetWithTTL(ctx, key, vectorToBytes(vec), c.ttl); err != nil {
		c.logger.Warn("Failed to cache vector", zap.String("key", key), zap.Error(err))
	}
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
