//go:build js_eval

package rules

import "testing"

func TestJSEvaluatorReadsFactsAndFunctions(t *testing.T) {
	fns, err := Functions{}.With("upper", func(args ...any) (any, error) {
		return args[0].(string) + "!", nil
	})
	if err != nil {
		t.Fatalf("with: %v", err)
	}
	evaluator := NewJSEvaluator(WithFunctions(fns), WithProgramCache(NewProgramCache()))

	value, err := evaluator.Evaluate(Context{Facts: map[string]any{"stage": "qa"}}, `stage === "qa" && upper("x") === "x!"`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if value != true {
		t.Fatalf("expected true, got %v", value)
	}
}

func TestJSGate(t *testing.T) {
	gate, err := NewGate(`metadata.missing === undefined`, WithEngine(EngineJS))
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}
	if !gate.Enabled() {
		t.Fatalf("expected js gate enabled")
	}
}
