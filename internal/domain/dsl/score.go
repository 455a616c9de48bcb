package dsl

// Script is an inline scoring script evaluated by the engine at query time.
type Script struct {
	Lang   string
	Source string
	Params map[string]any
}

// NewScript creates an inline script.
func NewScript(lang, source string, params map[string]any) Script {
	return Script{Lang: lang, Source: source, Params: params}
}

// Body renders the script object.
func (s Script) Body() map[string]any {
	body := map[string]any{
		"lang":   s.Lang,
		"source": s.Source,
	}
	if len(s.Params) > 0 {
		body["params"] = s.Params
	}
	return body
}

// ScriptScoreQuery scores the documents matched by Query with a script.
type ScriptScoreQuery struct {
	Query  Query
	Script Script
	Boost  float64
}

// ScriptScore wraps q in a script_score query.
func ScriptScore(q Query, script Script) *ScriptScoreQuery {
	return &ScriptScoreQuery{Query: q, Script: script, Boost: DefaultBoost}
}

// Source implements Query.
func (q *ScriptScoreQuery) Source() map[string]any {
	return map[string]any{"script_score": map[string]any{
		"query":  q.Query.Source(),
		"script": q.Script.Body(),
		"boost":  q.Boost,
	}}
}

// Function score combination modes.
const (
	ScoreModeMultiply = "multiply"
	ScoreModeSum      = "sum"
	ScoreModeAvg      = "avg"
	ScoreModeMax      = "max"

	BoostModeMultiply = "multiply"
	BoostModeReplace  = "replace"
	BoostModeSum      = "sum"
)

// ScoreFunction is one entry of a function_score query.
// Filter and Weight are optional.
type ScoreFunction struct {
	Filter Query
	Script *Script
	Weight *float64
}

// ScriptFunction creates a script_score function.
func ScriptFunction(script Script) ScoreFunction {
	return ScoreFunction{Script: &script}
}

// WeightFunction creates a constant weight function applied to docs matching filter.
func WeightFunction(filter Query, weight float64) ScoreFunction {
	return ScoreFunction{Filter: filter, Weight: &weight}
}

// Body renders the function entry.
func (f ScoreFunction) Body() map[string]any {
	body := map[string]any{}
	if f.Filter != nil {
		body["filter"] = f.Filter.Source()
	}
	if f.Script != nil {
		body["script_score"] = map[string]any{"script": f.Script.Body()}
	}
	if f.Weight != nil {
		body["weight"] = *f.Weight
	}
	return body
}

// FunctionScoreQuery rescores Query with a list of functions.
type FunctionScoreQuery struct {
	Query     Query
	Functions []ScoreFunction
	ScoreMode string
	BoostMode string
	Boost     float64
}

// FunctionScore wraps q in a function_score query with engine default modes.
func FunctionScore(q Query, functions ...ScoreFunction) *FunctionScoreQuery {
	return &FunctionScoreQuery{
		Query:     q,
		Functions: functions,
		ScoreMode: ScoreModeMultiply,
		BoostMode: BoostModeMultiply,
		Boost:     DefaultBoost,
	}
}

// WithModes sets score_mode and boost_mode.
func (q *FunctionScoreQuery) WithModes(scoreMode, boostMode string) *FunctionScoreQuery {
	q.ScoreMode = scoreMode
	q.BoostMode = boostMode
	return q
}

// Source implements Query.
func (q *FunctionScoreQuery) Source() map[string]any {
	functions := make([]map[string]any, len(q.Functions))
	for i, f := range q.Functions {
		functions[i] = f.Body()
	}
	return map[string]any{"function_score": map[string]any{
		"query":      q.Query.Source(),
		"functions":  functions,
		"score_mode": q.ScoreMode,
		"boost_mode": q.BoostMode,
		"boost":      q.Boost,
	}}
}
