package domain

// EngineType identifies the host search engine family and major version.
type EngineType string

// Known engine types.
const (
	EngineUnknown        EngineType = "unknown"
	EngineElasticsearch7 EngineType = "elasticsearch7"
	EngineElasticsearch8 EngineType = "elasticsearch8"
	EngineOpenSearch1    EngineType = "opensearch1"
	EngineOpenSearch2    EngineType = "opensearch2"
	EngineOpenSearch3    EngineType = "opensearch3"
)

// IsValid reports whether t is a known engine type.
func (t EngineType) IsValid() bool {
	switch t {
	case EngineUnknown, EngineElasticsearch7, EngineElasticsearch8,
		EngineOpenSearch1, EngineOpenSearch2, EngineOpenSearch3:
		return true
	}
	return false
}

// SupportsScriptVectorScoring reports whether the engine evaluates the
// knn_score script used for semantic rewriting.
func (t EngineType) SupportsScriptVectorScoring() bool {
	switch t {
	case EngineOpenSearch1, EngineOpenSearch2, EngineOpenSearch3:
		return true
	}
	return false
}

// EngineInfo describes the probed search engine.
type EngineInfo struct {
	Type    EngineType
	Version string
}

// VectorConfig holds the semantic rewriting settings shared by the command
// and the vectorizers.
type VectorConfig struct {
	Dimensions  int
	Fields      []string
	FieldSuffix string
	SpaceType   string
}

// DefaultVectorConfig returns the defaults of the text vectorizer deployment.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Dimensions:  768,
		Fields:      []string{"content"},
		FieldSuffix: "_vector",
		SpaceType:   "cosinesimil",
	}
}
