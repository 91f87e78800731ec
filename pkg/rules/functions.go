package rules

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ErrUnknownFunction is returned when an expression calls a helper that is
// not in its Functions set.
var ErrUnknownFunction = errors.New("rules: unknown function")

// Function is a helper callable from rule expressions.
type Function func(args ...any) (any, error)

// Functions is a set of helpers keyed by lower-cased name. The zero value is
// an empty set. With never mutates the receiver, so a set shared between
// gates is safe to read concurrently.
type Functions struct {
	byName map[string]Function
}

// GateFunctions is the helper set every Gate starts from: env(name) reads a
// process environment variable.
func GateFunctions() Functions {
	fns, _ := Functions{}.With("env", envFunction)
	return fns
}

func envFunction(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("rules: env expects 1 argument, got %d", len(args))
	}
	name, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("rules: env name must be a string, got %T", args[0])
	}
	return os.Getenv(name), nil
}

// With returns a copy of f that also holds fn under name. Names are
// case-insensitive and may not be redefined.
func (f Functions) With(name string, fn Function) (Functions, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return f, fmt.Errorf("rules: function name must not be empty")
	}
	if fn == nil {
		return f, fmt.Errorf("rules: function %q is nil", name)
	}
	if _, exists := f.byName[key]; exists {
		return f, fmt.Errorf("rules: function %q already defined", name)
	}
	next := make(map[string]Function, len(f.byName)+1)
	for existing, helper := range f.byName {
		next[existing] = helper
	}
	next[key] = fn
	return Functions{byName: next}, nil
}

// Len returns the number of helpers.
func (f Functions) Len() int {
	return len(f.byName)
}

// Names returns the helper names sorted alphabetically.
func (f Functions) Names() []string {
	names := make([]string, 0, len(f.byName))
	for name := range f.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call runs the helper registered as name.
func (f Functions) Call(name string, args ...any) (any, error) {
	fn := f.byName[strings.ToLower(name)]
	if fn == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}
	return fn(args...)
}

// bound returns a closure calling name, for engines that bind helpers as
// top level identifiers.
func (f Functions) bound(name string) func(...any) (any, error) {
	return func(args ...any) (any, error) {
		return f.Call(name, args...)
	}
}
