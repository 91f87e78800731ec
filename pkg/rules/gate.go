package rules

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-overrides/pkg/logging"
)

// FactsFunc supplies the facts visible to the gate expression on each check.
type FactsFunc func() map[string]any

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithEngine selects the evaluation engine by name.
func WithEngine(engine string) GateOption {
	return func(g *Gate) {
		g.engine = engine
	}
}

// WithEvaluator uses evaluator directly; WithEngine and evaluator options
// are ignored.
func WithEvaluator(evaluator Evaluator) GateOption {
	return func(g *Gate) {
		g.evaluator = evaluator
	}
}

// WithFacts sets the facts source.
func WithFacts(facts FactsFunc) GateOption {
	return func(g *Gate) {
		g.facts = facts
	}
}

// WithStaticFacts exposes a fixed fact set.
func WithStaticFacts(facts map[string]any) GateOption {
	copied := make(map[string]any, len(facts))
	for key, value := range facts {
		copied[key] = value
	}
	return WithFacts(func() map[string]any { return copied })
}

// WithGateLogger records evaluation failures and timings.
func WithGateLogger(logger logging.Logger) GateOption {
	return func(g *Gate) {
		g.logger = logging.OrNop(logger)
	}
}

// WithGateFunctions replaces the GateFunctions helper set.
func WithGateFunctions(fns Functions) GateOption {
	return func(g *Gate) {
		g.functions = fns
	}
}

// WithLabel names the gate in errors and log entries. The default is "gate".
func WithLabel(label string) GateOption {
	return func(g *Gate) {
		if label = strings.TrimSpace(label); label != "" {
			g.label = label
		}
	}
}

// WithCache shares compiled programs with other gates.
func WithCache(cache ProgramCache) GateOption {
	return func(g *Gate) {
		g.cache = cache
	}
}

// ErrNotBool is wrapped by a StageResult RuleError when a gate expression
// yields anything but a bool.
var ErrNotBool = errors.New("rules: result is not a bool")

// Gate enables overrides while its expression evaluates to true. Errors and
// non-boolean results count as disabled.
type Gate struct {
	expression string
	label      string
	engine     string
	evaluator  Evaluator
	rule       CompiledRule
	facts      FactsFunc
	functions  Functions
	cache      ProgramCache
	logger     logging.Logger

	mu   sync.Mutex
	last *bool
}

// NewGate compiles expression up front so syntax errors surface here.
func NewGate(expression string, opts ...GateOption) (*Gate, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, ErrEmptyExpression
	}
	g := &Gate{
		expression: expression,
		label:      "gate",
		functions:  GateFunctions(),
		logger:     logging.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	if g.evaluator == nil {
		evaluatorOpts := []Option{WithFunctions(g.functions)}
		if g.cache != nil {
			evaluatorOpts = append(evaluatorOpts, WithProgramCache(g.cache))
		}
		evaluator, err := NewEvaluator(g.engine, evaluatorOpts...)
		if err != nil {
			return nil, err
		}
		g.evaluator = evaluator
	}
	rule, err := g.evaluator.Compile(expression)
	if err != nil {
		return nil, ruleError(g.evaluator.Engine(), StageCompile, g.label, expression, err)
	}
	g.rule = rule
	return g, nil
}

// Expression returns the gate's source expression.
func (g *Gate) Expression() string {
	return g.expression
}

// Engine returns the name of the engine evaluating the gate.
func (g *Gate) Engine() string {
	return g.evaluator.Engine()
}

// Label returns the name the gate reports in errors and logs.
func (g *Gate) Label() string {
	return g.label
}

// Evaluate runs the expression and reports its boolean result. Failures are
// returned as *RuleError.
func (g *Gate) Evaluate() (bool, error) {
	ctx := Context{Label: g.label}
	if g.facts != nil {
		ctx.Facts = g.facts()
	}
	start := time.Now()
	value, err := g.rule.Evaluate(ctx)
	duration := time.Since(start)
	if err != nil {
		return false, g.fail(ruleError(g.Engine(), StageEvaluate, g.label, g.expression, err), duration)
	}
	enabled, ok := value.(bool)
	if !ok {
		err := &RuleError{
			Engine:     g.Engine(),
			Stage:      StageResult,
			Label:      g.label,
			Expression: g.expression,
			Err:        fmt.Errorf("%w: got %T", ErrNotBool, value),
		}
		return false, g.fail(err, duration)
	}
	g.logger.Debug("rules: gate evaluated", "label", g.label, "engine", g.Engine(), "enabled", enabled, "duration", duration)
	return enabled, nil
}

func (g *Gate) fail(err error, duration time.Duration) error {
	fields := []any{"error", err}
	var ruleErr *RuleError
	if errors.As(err, &ruleErr) {
		fields = ruleErr.LogFields()
	}
	g.logger.Warn("rules: gate evaluation failed", append(fields, "duration", duration)...)
	return err
}

// Enabled evaluates the expression. Failures count as disabled.
func (g *Gate) Enabled() bool {
	enabled, _ := g.Evaluate()
	g.mu.Lock()
	g.last = &enabled
	g.mu.Unlock()
	return enabled
}

// Last returns the most recent result of Enabled.
func (g *Gate) Last() (enabled bool, evaluated bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last == nil {
		return false, false
	}
	return *g.last, true
}
