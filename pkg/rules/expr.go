package rules

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

type exprEvaluator struct {
	cache     ProgramCache
	functions Functions
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr.
func NewExprEvaluator(opts ...Option) Evaluator {
	cfg := applyOptions(opts)
	return &exprEvaluator{cache: cfg.cache, functions: cfg.functions}
}

func (e *exprEvaluator) Engine() string { return EngineExpr }

func (e *exprEvaluator) Evaluate(ctx Context, expression string) (any, error) {
	if expression == "" {
		return nil, ruleError(EngineExpr, StageCompile, ctx.Label, "", ErrEmptyExpression)
	}
	ctx = ctx.withDefaults()
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, ruleError(EngineExpr, StageCompile, ctx.Label, expression, err)
	}
	result, err := exprlang.Run(program, e.environment(ctx))
	if err != nil {
		return nil, ruleError(EngineExpr, StageEvaluate, ctx.Label, expression, err)
	}
	return result, nil
}

func (e *exprEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, ruleError(EngineExpr, StageCompile, "", "", ErrEmptyExpression)
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &exprCompiledRule{evaluator: e, program: program, expression: expression}, nil
}

func (e *exprEvaluator) loadOrCompile(expression string) (*exprvm.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(EngineExpr + ":" + expression); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	if e.functions.Len() > 0 {
		options = append(options, exprlang.Function("call", e.callByName))
	}
	for _, name := range e.functions.Names() {
		options = append(options, exprlang.Function(name, e.functions.bound(name)))
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, ruleError(EngineExpr, StageCompile, "", expression, err)
	}
	if e.cache != nil {
		e.cache.Set(EngineExpr+":"+expression, program)
	}
	return program, nil
}

func (e *exprEvaluator) environment(ctx Context) map[string]any {
	env := map[string]any{
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
	}
	for key, value := range ctx.Facts {
		env[key] = value
	}
	return env
}

func (e *exprEvaluator) callByName(params ...any) (any, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("rules: call expects a function name")
	}
	name, ok := params[0].(string)
	if !ok {
		return nil, fmt.Errorf("rules: call name must be a string, got %T", params[0])
	}
	return e.functions.Call(name, params[1:]...)
}

type exprCompiledRule struct {
	evaluator  *exprEvaluator
	program    *exprvm.Program
	expression string
}

func (r *exprCompiledRule) Evaluate(ctx Context) (any, error) {
	ctx = ctx.withDefaults()
	result, err := exprlang.Run(r.program, r.evaluator.environment(ctx))
	if err != nil {
		return nil, ruleError(EngineExpr, StageEvaluate, ctx.Label, r.expression, err)
	}
	return result, nil
}
