package rules

import (
	"errors"
	"fmt"
	"strings"
)

// Engine names accepted by NewEvaluator.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

var (
	// ErrUnknownEngine is returned for engine names NewEvaluator does not know.
	ErrUnknownEngine = errors.New("rules: unknown engine")
	// ErrEngineUnavailable is returned when an engine was not compiled in.
	ErrEngineUnavailable = errors.New("rules: engine not available in this build")
	// ErrEmptyExpression rejects blank expressions.
	ErrEmptyExpression = errors.New("rules: expression must not be empty")
)

// Evaluator executes expressions against a Context.
type Evaluator interface {
	Engine() string
	Evaluate(ctx Context, expression string) (any, error)
	Compile(expression string) (CompiledRule, error)
}

// CompiledRule is a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx Context) (any, error)
}

// Option configures an evaluator.
type Option func(*evaluatorConfig)

type evaluatorConfig struct {
	cache     ProgramCache
	functions Functions
}

// WithProgramCache shares compiled programs across evaluations.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *evaluatorConfig) {
		cfg.cache = cache
	}
}

// WithFunctions exposes helpers to expressions through call(name, args...)
// and, on engines that allow it, directly by name.
func WithFunctions(fns Functions) Option {
	return func(cfg *evaluatorConfig) {
		cfg.functions = fns
	}
}

func applyOptions(opts []Option) evaluatorConfig {
	cfg := evaluatorConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// NewEvaluator builds the evaluator for engine. An empty engine selects expr.
func NewEvaluator(engine string, opts ...Option) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineExpr:
		return NewExprEvaluator(opts...), nil
	case EngineCEL:
		return NewCELEvaluator(opts...), nil
	case EngineJS, "javascript":
		if !jsEvaluatorAvailable() {
			return nil, ErrEngineUnavailable
		}
		return NewJSEvaluator(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, engine)
	}
}

// Engines lists the engines compiled into this build.
func Engines() []string {
	engines := []string{EngineExpr, EngineCEL}
	if jsEvaluatorAvailable() {
		engines = append(engines, EngineJS)
	}
	return engines
}
