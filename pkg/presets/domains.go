package presets

import (
	"context"

	overrides "github.com/goliatone/go-overrides"
)

// StateDomain is the part of a multi-option domain the orchestrator drives.
type StateDomain interface {
	CurrentState() overrides.ForcedState
	ApplyState(state overrides.ForcedState) []string
}

// LanguageDomain is the part of the language domain the orchestrator drives.
type LanguageDomain interface {
	ForcedLanguage() (string, bool)
	ApplyLanguage(ctx context.Context, id *string) error
}

// Domains bundles the domains a preset covers. Nil members are skipped on
// capture and apply.
type Domains struct {
	FeatureFlags StateDomain
	Permissions  StateDomain
	AppFeatures  StateDomain
	Language     LanguageDomain
}

var (
	_ StateDomain    = (*overrides.Domain)(nil)
	_ LanguageDomain = (*overrides.LanguageDomain)(nil)
)

// FromToolbar binds every toolbar domain.
func FromToolbar(toolbar *overrides.Toolbar) Domains {
	return Domains{
		FeatureFlags: toolbar.FeatureFlags(),
		Permissions:  toolbar.Permissions(),
		AppFeatures:  toolbar.AppFeatures(),
		Language:     toolbar.Language(),
	}
}
