package rules

import (
	"errors"
	"fmt"
)

// Stage names the step of a rule that failed.
type Stage string

const (
	StageCompile  Stage = "compile"
	StageEvaluate Stage = "evaluate"
	// StageResult means the rule ran but did not yield a bool.
	StageResult Stage = "result"
)

// RuleError is the single error type returned by evaluators and gates. Label
// is the name the rule was evaluated under, "gate" unless WithLabel is set.
type RuleError struct {
	Engine     string
	Stage      Stage
	Label      string
	Expression string
	Err        error
}

func (e *RuleError) Error() string {
	if e == nil {
		return "<nil>"
	}
	subject := e.Engine
	if e.Label != "" {
		subject = e.Label + " (" + e.Engine + ")"
	}
	if e.Expression == "" {
		return fmt.Sprintf("rules: %s %s: %v", subject, e.Stage, e.Err)
	}
	return fmt.Sprintf("rules: %s %s %q: %v", subject, e.Stage, e.Expression, e.Err)
}

func (e *RuleError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// LogFields returns the error as structured logger key/value pairs.
func (e *RuleError) LogFields() []any {
	return []any{
		"engine", e.Engine,
		"stage", string(e.Stage),
		"label", e.Label,
		"expr", e.Expression,
		"error", e.Err,
	}
}

// ruleError wraps err unless it already is a RuleError, in which case blank
// fields are filled in.
func ruleError(engine string, stage Stage, label, expression string, err error) error {
	if err == nil {
		return nil
	}
	var existing *RuleError
	if errors.As(err, &existing) {
		if existing.Label == "" {
			existing.Label = label
		}
		if existing.Expression == "" {
			existing.Expression = expression
		}
		return existing
	}
	return &RuleError{Engine: engine, Stage: stage, Label: label, Expression: expression, Err: err}
}
