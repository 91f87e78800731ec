package overrides

import (
	"strings"

	"github.com/goliatone/go-overrides/pkg/logging"
)

// Registry holds the natural option list reported by the host application.
// It is not safe for concurrent use on its own; Domain serialises access.
type Registry struct {
	kind    Kind
	logger  Logger
	options []Option
	index   map[string]int
	set     bool
}

// NewRegistry returns an empty registry for kind.
func NewRegistry(kind Kind, logger Logger) *Registry {
	return &Registry{
		kind:    kind,
		logger:  logging.OrNop(logger),
		options: []Option{},
		index:   map[string]int{},
	}
}

// SetOptions validates options and replaces the held list wholesale. On error the
// previous list is kept untouched.
func (r *Registry) SetOptions(options []Option) ([]Option, error) {
	normalized, err := ValidateOptions(r.kind, options, r.logger)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(normalized))
	for i, option := range normalized {
		index[option.ID] = i
	}
	r.options = normalized
	r.index = index
	r.set = true
	return cloneOptions(normalized), nil
}

// Options returns a copy of the registered list.
func (r *Registry) Options() []Option {
	return cloneOptions(r.options)
}

// Lookup returns the registered option for id.
func (r *Registry) Lookup(id string) (Option, bool) {
	i, ok := r.index[id]
	if !ok {
		return Option{}, false
	}
	return r.options[i], true
}

// ValidIDs returns the set of registered ids.
func (r *Registry) ValidIDs() map[string]struct{} {
	out := make(map[string]struct{}, len(r.options))
	for _, option := range r.options {
		out[option.ID] = struct{}{}
	}
	return out
}

// Registered reports whether Set has succeeded at least once.
func (r *Registry) Registered() bool {
	return r.set
}

// ValidateOptions rejects empty or duplicate ids and trims names. A name that
// is empty after trimming is kept as given and reported through logger.
func ValidateOptions(kind Kind, options []Option, logger Logger) ([]Option, error) {
	logger = logging.OrNop(logger)
	seen := make(map[string]struct{}, len(options))
	out := make([]Option, 0, len(options))
	for i, option := range options {
		if strings.TrimSpace(option.ID) == "" {
			return nil, &ValidationError{Domain: kind, Index: i, OptionID: option.ID, Err: ErrEmptyOptionID}
		}
		if _, dup := seen[option.ID]; dup {
			return nil, &ValidationError{Domain: kind, Index: i, OptionID: option.ID, Err: ErrDuplicateOptionID}
		}
		seen[option.ID] = struct{}{}

		if trimmed := strings.TrimSpace(option.Name); trimmed != "" {
			option.Name = trimmed
		} else {
			logger.Warn("overrides: option has an empty name", "domain", string(kind), "id", option.ID)
		}
		out = append(out, option)
	}
	return out, nil
}
