package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/vecquery/internal/domain/dsl"
)

func TestScriptContext_Delegates(t *testing.T) {
	inner := NewContext("aaa sort:timestamp")
	sc := NewScriptContext(inner)

	sc.AddSorts(dsl.FieldSort("timestamp", dsl.Desc))
	sc.AddFieldLog("title", "aaa")
	sc.AddHighlightedQuery("aaa")
	sc.SkipRoleQuery()
	sc.SetDefaultField("content")
	sc.SetQuery(dsl.MatchAll())

	assert.Equal(t, "aaa sort:timestamp", sc.QueryString())
	assert.True(t, inner.HasSorts())
	assert.Equal(t, []string{"aaa"}, inner.FieldLogs()["title"])
	assert.Equal(t, []string{"aaa"}, inner.HighlightedQueries())
	assert.False(t, inner.RoleQueryEnabled())
	assert.Equal(t, "content", inner.DefaultField())
	assert.NotNil(t, inner.Query())
}

func TestScriptContext_EqualityAndString(t *testing.T) {
	inner := NewContext("aaa")
	sc := NewScriptContext(inner)
	nested := NewScriptContext(sc)

	assert.True(t, sc.Equal(inner))
	assert.True(t, inner.Equal(sc))
	assert.True(t, nested.Equal(inner))
	assert.Equal(t, inner.String(), sc.String())
	assert.Equal(t, inner.String(), nested.String())

	assert.False(t, sc.Equal(NewContext("aaa")))
	assert.False(t, inner.Equal(nil))
}

func TestScriptContext_ScriptsLastWriteWins(t *testing.T) {
	sc := NewScriptContext(NewContext("aaa"))
	assert.Nil(t, sc.Scripts())

	first := []dsl.Script{dsl.NewScript("knn", "knn_score", nil)}
	second := []dsl.Script{
		dsl.NewScript("knn", "knn_score", map[string]any{"field": "a"}),
		dsl.NewScript("knn", "knn_score", map[string]any{"field": "b"}),
	}
	sc.SetScripts(first)
	sc.SetScripts(second)
	require.Len(t, sc.Scripts(), 2)
	assert.Equal(t, "a", sc.Scripts()[0].Params["field"])

	sc.SetScripts(nil)
	assert.Empty(t, sc.Scripts())
}

func TestScriptContext_NestedSinksAreIndependent(t *testing.T) {
	outer := NewScriptContext(NewContext("aaa"))
	inner := NewScriptContext(outer)
	inner.SetScripts([]dsl.Script{dsl.NewScript("knn", "knn_score", nil)})

	assert.Len(t, inner.Scripts(), 1)
	assert.Empty(t, outer.Scripts())
}

func TestBuildContext_AddQuery(t *testing.T) {
	qc := NewContext("aaa")
	qc.SetQuery(dsl.MatchPhrase("title", "aaa"))
	qc.AddQuery(func(b *dsl.BoolQuery) {
		b.Filter(dsl.Term("role", "guest"))
	})

	want := dsl.Bool().Must(dsl.MatchPhrase("title", "aaa")).Filter(dsl.Term("role", "guest"))
	assert.Equal(t, dsl.String(want), dsl.String(qc.Query()))
}

func TestBuildContext_AddFunctionScore(t *testing.T) {
	qc := NewContext("aaa")
	qc.AddFunctionScore(func([]dsl.ScoreFunction) []dsl.ScoreFunction { return nil })
	assert.Nil(t, qc.Query())

	qc.AddFunctionScore(func(fns []dsl.ScoreFunction) []dsl.ScoreFunction {
		return append(fns, dsl.WeightFunction(dsl.Term("label", "docs"), 2))
	})
	fs, ok := qc.Query().(*dsl.FunctionScoreQuery)
	require.True(t, ok)
	assert.Len(t, fs.Functions, 1)
	assert.Equal(t, dsl.String(dsl.MatchAll()), dsl.String(fs.Query))
}

func TestRequestLanguages(t *testing.T) {
	ctx := WithLanguages(context.Background(), []string{" JA ", "", "en"})
	langs, ok := LanguagesFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, []string{"ja", "en"}, langs)

	_, ok = LanguagesFromContext(WithLanguages(context.Background(), []string{" "}))
	assert.False(t, ok)
}
