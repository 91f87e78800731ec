// Package rules evaluates boolean expressions that decide whether overrides
// are active. Expressions run on expr-lang/expr by default; cel-go is always
// available and goja (JavaScript) is compiled in with the js_eval build tag.
//
// A Gate satisfies the override engine's Gate interface:
//
//	gate, err := rules.NewGate(`env("APP_ENV") != "production"`)
//	toolbar := overrides.NewToolbar(adapter, overrides.WithGate(gate))
package rules
