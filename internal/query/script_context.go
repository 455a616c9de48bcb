package query

import "github.com/kailas-cloud/vecquery/internal/domain/dsl"

// ScriptSink receives scoring scripts produced while converting terms.
// Commands get it alongside the Context; a nil sink means no filter in the
// active chain will fold scripts into the query.
type ScriptSink interface {
	SetScripts(scripts []dsl.Script)
	Scripts() []dsl.Script
}

// ScriptContext decorates a Context with a script side channel.
// Every Context method, String and Equal included, is served by the wrapped context.
type ScriptContext struct {
	Context
	scripts []dsl.Script
}

var (
	_ Context    = (*ScriptContext)(nil)
	_ ScriptSink = (*ScriptContext)(nil)
)

// NewScriptContext wraps inner. The caller keeps ownership of inner.
func NewScriptContext(inner Context) *ScriptContext {
	return &ScriptContext{Context: inner}
}

// SetScripts replaces the held scripts.
func (c *ScriptContext) SetScripts(scripts []dsl.Script) { c.scripts = scripts }

// Scripts returns the held scripts, nil when none were set.
func (c *ScriptContext) Scripts() []dsl.Script { return c.scripts }
