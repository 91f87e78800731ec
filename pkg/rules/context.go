package rules

import "time"

// Context carries the inputs visible to an expression. Facts are exposed as
// top level variables; Args and Metadata are exposed under those names.
type Context struct {
	Facts    map[string]any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	// Label names the rule in RuleError and log fields.
	Label string
}

func (ctx Context) withDefaults() Context {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx Context) withDefaultNow() Context {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx Context) withDefaultMaps() Context {
	if ctx.Facts == nil {
		ctx.Facts = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx Context) timestamp() time.Time {
	return *ctx.withDefaultNow().Now
}
