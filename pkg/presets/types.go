package presets

import (
	"errors"
	"time"

	overrides "github.com/goliatone/go-overrides"
)

// StorageKey is the adapter key holding the preset list.
const StorageKey = "presets"

var (
	// ErrPresetNotFound is returned by lookups that need an existing preset.
	ErrPresetNotFound = errors.New("presets: preset not found")
	// ErrEmptyName rejects presets without a name.
	ErrEmptyName = errors.New("presets: name must not be empty")
	// ErrInvalidPreset rejects imported payloads that are not a preset object.
	ErrInvalidPreset = errors.New("presets: invalid preset payload")
)

// PermissionState is the permission partition as persisted in presets.
type PermissionState struct {
	Granted []string `json:"granted"`
	Denied  []string `json:"denied"`
}

// Forced converts p into the engine's partition type.
func (p PermissionState) Forced() overrides.ForcedState {
	return overrides.ForcedState{Enabled: p.Granted, Disabled: p.Denied}.Clone()
}

func permissionsFrom(state overrides.ForcedState) PermissionState {
	clone := state.Clone()
	return PermissionState{Granted: clone.Enabled, Denied: clone.Disabled}
}

// Config is a cross-domain capture of forced state.
type Config struct {
	FeatureFlags overrides.ForcedState `json:"featureFlags"`
	Permissions  PermissionState       `json:"permissions"`
	AppFeatures  overrides.ForcedState `json:"appFeatures"`
	Language     *string               `json:"language"`
}

// Clone returns a deep copy with non-nil id slices.
func (c Config) Clone() Config {
	out := Config{
		FeatureFlags: c.FeatureFlags.Clone(),
		Permissions:  permissionsFrom(c.Permissions.Forced()),
		AppFeatures:  c.AppFeatures.Clone(),
	}
	if c.Language != nil {
		language := *c.Language
		out.Language = &language
	}
	return out
}

// Equal compares configs ignoring id order.
func (c Config) Equal(other Config) bool {
	if !c.FeatureFlags.Equal(other.FeatureFlags) ||
		!c.Permissions.Forced().Equal(other.Permissions.Forced()) ||
		!c.AppFeatures.Equal(other.AppFeatures) {
		return false
	}
	if c.Language == nil || other.Language == nil {
		return c.Language == nil && other.Language == nil
	}
	return *c.Language == *other.Language
}

// IsEmpty reports whether the config forces nothing.
func (c Config) IsEmpty() bool {
	return c.FeatureFlags.IsEmpty() && c.Permissions.Forced().IsEmpty() &&
		c.AppFeatures.IsEmpty() && c.Language == nil
}

// Preset is a named, persisted Config.
type Preset struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Config      Config    `json:"config"`
}

// Clone returns a deep copy.
func (p Preset) Clone() Preset {
	p.Config = p.Config.Clone()
	return p
}

// Selection restricts a capture to the listed ids per domain. A nil list
// captures the whole domain; an empty list captures nothing from it.
type Selection struct {
	FeatureFlags    []string
	Permissions     []string
	AppFeatures     []string
	ExcludeLanguage bool
}

// All captures every domain in full.
var All = Selection{}
