package semantic

import "github.com/kailas-cloud/vecquery/internal/domain/dsl"

// Script constants understood by the engine's k-NN scoring plugin.
const (
	ScriptLang   = "knn"
	ScriptSource = "knn_score"
)

// VectorField names the index field holding vectors of field for lang.
func VectorField(field, lang, suffix string) string {
	return field + "_" + lang + suffix
}

// NewScoreScript creates the k-NN scoring script for one vector field.
func NewScoreScript(vectorField string, vector []float32, spaceType string) dsl.Script {
	return dsl.NewScript(ScriptLang, ScriptSource, map[string]any{
		"field":       vectorField,
		"query_value": vector,
		"space_type":  spaceType,
	})
}
