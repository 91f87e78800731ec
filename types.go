package overrides

import "strings"

// Kind identifies a configuration domain.
type Kind string

const (
	KindFeatureFlags Kind = "feature-flags"
	KindPermissions  Kind = "permissions"
	KindAppFeatures  Kind = "app-features"
	KindLanguage     Kind = "language"
)

// Kinds lists every built-in domain in a stable order.
func Kinds() []Kind {
	return []Kind{KindFeatureFlags, KindPermissions, KindAppFeatures, KindLanguage}
}

// ParseKind converts a string into a Kind. Unknown values report false.
func ParseKind(value string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindFeatureFlags, "flags", "feature_flags":
		return KindFeatureFlags, true
	case KindPermissions:
		return KindPermissions, true
	case KindAppFeatures, "app_features", "features":
		return KindAppFeatures, true
	case KindLanguage, "languages", "i18n":
		return KindLanguage, true
	default:
		return "", false
	}
}

// StorageKey returns the persistence key for the domain's override state.
func (k Kind) StorageKey() string {
	return string(k)
}

// PartitionLabels returns the JSON field names used to persist the enabled
// and disabled halves of the domain's partition. Every domain persists
// enabled/disabled; presets carry granted/denied for permissions.
func (k Kind) PartitionLabels() (enabled, disabled string) {
	return "enabled", "disabled"
}

// aliasLabels returns alternate field names accepted when reading a
// persisted partition.
func (k Kind) aliasLabels() (enabled, disabled string, ok bool) {
	if k == KindPermissions {
		return "granted", "denied", true
	}
	return "", "", false
}

// Option is one configurable item reported by the host application.
type Option struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
	NaturalValue bool   `json:"naturalValue" yaml:"natural_value"`
}

// EffectiveOption is an Option with overrides applied. OriginalValue is only
// set when IsForced is true.
type EffectiveOption struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	IsEnabled     bool   `json:"isEnabled"`
	IsForced      bool   `json:"isForced"`
	OriginalValue *bool  `json:"originalValue,omitempty"`
}

func cloneOptions(options []Option) []Option {
	if options == nil {
		return []Option{}
	}
	out := make([]Option, len(options))
	copy(out, options)
	return out
}

func cloneEffective(options []EffectiveOption) []EffectiveOption {
	out := make([]EffectiveOption, len(options))
	for i, option := range options {
		out[i] = option
		if option.OriginalValue != nil {
			value := *option.OriginalValue
			out[i].OriginalValue = &value
		}
	}
	return out
}

func boolPtr(value bool) *bool {
	return &value
}
