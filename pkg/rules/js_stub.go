//go:build !js_eval

package rules

// NewJSEvaluator is unavailable without the js_eval build tag; use
// NewEvaluator to get ErrEngineUnavailable instead of a nil Evaluator.
func NewJSEvaluator(opts ...Option) Evaluator {
	_ = applyOptions(opts)
	return nil
}

func jsEvaluatorAvailable() bool {
	return false
}
