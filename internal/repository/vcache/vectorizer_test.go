package vcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquery/internal/db"
	"github.com/kailas-cloud/vecquery/internal/domain"
)

type mockVectorizer struct {
	vectors map[string][]float32
	err     error
	calls   []domain.VectorRequest
}

func (m *mockVectorizer) Vectorize(_ context.Context, req domain.VectorRequest) (domain.VectorResult, error) {
	m.calls = append(m.calls, req)
	if m.err != nil {
		return domain.VectorResult{}, m.err
	}
	out := make(map[string][]float32, len(req.Inputs))
	for field := range req.Inputs {
		if v, ok := m.vectors[field]; ok {
			out[field] = v
		}
	}
	return domain.VectorResult{Vectors: out, TotalTokens: 7 * len(req.Inputs)}, nil
}

func (m *mockVectorizer) SupportsLanguage(lang string) bool { return lang == "en" }

// mapStore is an in-memory store keyed like Valkey.
type mapStore struct {
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMapStore() *mapStore {
	return &mapStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (s *mapStore) MGet(_ context.Context, keys []string) ([][]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = s.data[k]
	}
	return out, nil
}

func (s *mapStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	s.ttls[key] = ttl
	return nil
}

func (s *mapStore) Get(_ context.Context, key string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	data, ok := s.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return data, nil
}

func (s *mapStore) Del(_ context.Context, key string) error {
	delete(s.data, key)
	delete(s.ttls, key)
	return nil
}

func newCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_vector_cache_total"}, []string{"result"})
}

func request(inputs map[string]string) domain.VectorRequest {
	return domain.VectorRequest{Language: "en", Inputs: inputs}
}

func TestVectorize_MissThenHit(t *testing.T) {
	inner := &mockVectorizer{vectors: map[string][]float32{"content": {0.1, 0.2, 0.3}}}
	s := newMapStore()
	counter := newCounter()
	cv := New(inner, s, "vq:", time.Hour, counter, zap.NewNop())
	ctx := context.Background()

	first, err := cv.Vectorize(ctx, request(map[string]string{"content": "aaa"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.TotalTokens != 7 {
		t.Errorf("expected tokens from the provider, got %d", first.TotalTokens)
	}
	if len(s.data) != 1 {
		t.Fatalf("expected one cached entry, got %d", len(s.data))
	}
	for _, ttl := range s.ttls {
		if ttl != time.Hour {
			t.Errorf("expected 1h ttl, got %v", ttl)
		}
	}

	second, err := cv.Vectorize(ctx, request(map[string]string{"content": "aaa"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.calls) != 1 {
		t.Errorf("expected the hit to skip the provider, got %d calls", len(inner.calls))
	}
	if second.TotalTokens != 0 {
		t.Errorf("expected no tokens on a hit, got %d", second.TotalTokens)
	}
	if got := second.Vectors["content"]; len(got) != 3 || got[2] != 0.3 {
		t.Errorf("unexpected cached vector %v", got)
	}
	if testutil.ToFloat64(counter.WithLabelValues("hit")) != 1 || testutil.ToFloat64(counter.WithLabelValues("miss")) != 1 {
		t.Error("expected one hit and one miss")
	}
}

func TestVectorize_OnlyMissesReachProvider(t *testing.T) {
	inner := &mockVectorizer{vectors: map[string][]float32{"title": {1}, "content": {2}}}
	s := newMapStore()
	cv := New(inner, s, "vq:", time.Hour, nil, zap.NewNop())
	ctx := context.Background()

	if _, err := cv.Vectorize(ctx, request(map[string]string{"content": "aaa"})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := cv.Vectorize(ctx, request(map[string]string{"title": "aaa", "content": "aaa"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := inner.calls[len(inner.calls)-1]
	if len(last.Inputs) != 1 || last.Inputs["title"] != "aaa" {
		t.Errorf("expected only title to be requested, got %v", last.Inputs)
	}
	if len(result.Vectors) != 2 {
		t.Errorf("expected merged vectors, got %v", result.Vectors)
	}
}

func TestVectorize_KeySeparatesLanguageAndField(t *testing.T) {
	cv := New(&mockVectorizer{}, newMapStore(), "vq:", time.Hour, nil, zap.NewNop())
	keys := map[string]bool{
		cv.cacheKey("en", "content", "aaa"): true,
		cv.cacheKey("ja", "content", "aaa"): true,
		cv.cacheKey("en", "title", "aaa"):   true,
	}
	if len(keys) != 3 {
		t.Error("expected distinct keys per language and field")
	}
}

func TestVectorize_MissingVectorNotCached(t *testing.T) {
	inner := &mockVectorizer{vectors: map[string][]float32{}}
	s := newMapStore()
	cv := New(inner, s, "vq:", time.Hour, nil, zap.NewNop())

	result, err := cv.Vectorize(context.Background(), request(map[string]string{"content": "aaa"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := result.Vectors["content"]; ok {
		t.Error("missing vectors must stay missing")
	}
	if len(s.data) != 0 {
		t.Error("nothing must be cached")
	}
}

func TestVectorize_StoreErrorsDegradeToProvider(t *testing.T) {
	inner := &mockVectorizer{vectors: map[string][]float32{"content": {1}}}
	s := newMapStore()
	s.getErr = errors.New("valkey down")
	s.setErr = errors.New("valkey down")
	cv := New(inner, s, "vq:", time.Hour, nil, zap.NewNop())

	result, err := cv.Vectorize(context.Background(), request(map[string]string{"content": "aaa"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Vectors["content"]) != 1 {
		t.Errorf("expected provider vector, got %v", result.Vectors)
	}
}

func TestVectorize_InnerError(t *testing.T) {
	innerErr := errors.New("provider down")
	cv := New(&mockVectorizer{err: innerErr}, newMapStore(), "vq:", time.Hour, nil, zap.NewNop())

	_, err := cv.Vectorize(context.Background(), request(map[string]string{"content": "aaa"}))
	if !errors.Is(err, innerErr) {
		t.Fatalf("expected wrapped inner error, got %v", err)
	}
}

func TestBytesToVector_InvalidLength(t *testing.T) {
	if _, err := bytesToVector([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for truncated data")
	}
	vec, err := bytesToVector(vectorToBytes([]float32{0.5, -1}))
	if err != nil || len(vec) != 2 || vec[0] != 0.5 || vec[1] != -1 {
		t.Errorf("unexpected round trip %v %v", vec, err)
	}
}

func TestLookupAndEvict(t *testing.T) {
	inner := &mockVectorizer{vectors: map[string][]float32{"title": {1, 2}, "content": {3, 4}}}
	s := newMapStore()
	cv := New(inner, s, "vq:", time.Hour, nil, zap.NewNop())
	ctx := context.Background()

	if _, found, err := cv.Lookup(ctx, "en", "content", "aaa"); err != nil || found {
		t.Fatalf("expected a miss, got found=%v err=%v", found, err)
	}

	if _, err := cv.Vectorize(ctx, request(map[string]string{"title": "aaa", "content": "aaa"})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vec, found, err := cv.Lookup(ctx, "en", "content", "aaa")
	if err != nil || !found || len(vec) != 2 || vec[0] != 3 {
		t.Fatalf("unexpected lookup result %v found=%v err=%v", vec, found, err)
	}

	if err := cv.Evict(ctx, "en", "aaa", "title", "content"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.data) != 0 {
		t.Errorf("expected an empty cache, got %d entries", len(s.data))
	}
}

func TestLookup_StoreError(t *testing.T) {
	s := newMapStore()
	s.getErr = errors.New("conn refused")
	cv := New(&mockVectorizer{}, s, "vq:", time.Hour, nil, zap.NewNop())

	if _, _, err := cv.Lookup(context.Background(), "en", "content", "aaa"); err == nil {
		t.Fatal("expected error")
	}
}
