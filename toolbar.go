package overrides

import (
	"github.com/goliatone/go-overrides/pkg/activity"
	"github.com/goliatone/go-overrides/pkg/logging"
	"github.com/goliatone/go-overrides/pkg/storage"
)

// Toolbar wires the four built-in domains to one adapter and one gate.
type Toolbar struct {
	adapter     *storage.Adapter
	gate        Gate
	toggle      *Switch
	logger      Logger
	flags       *Domain
	permissions *Domain
	features    *Domain
	language    *LanguageDomain
}

// NewToolbar builds every domain over adapter. Unless WithGate is supplied
// the toolbar owns an enabled Switch reachable through Enable and Disable.
func NewToolbar(adapter *storage.Adapter, opts ...DomainOption) *Toolbar {
	cfg := newDomainConfig(opts)
	t := &Toolbar{adapter: adapter, logger: logging.OrNop(cfg.logger)}
	if !cfg.custom {
		t.toggle = NewSwitch(true)
		opts = append(append([]DomainOption{}, opts...), WithGate(t.toggle))
		t.gate = t.toggle
	} else {
		t.gate = cfg.gate
	}

	t.flags = NewDomain(KindFeatureFlags, adapter, opts...)
	t.permissions = NewDomain(KindPermissions, adapter, opts...)
	t.features = NewDomain(KindAppFeatures, adapter, opts...)
	t.language = NewLanguageDomain(adapter, opts...)
	return t
}

// FeatureFlags returns the feature flag domain.
func (t *Toolbar) FeatureFlags() *Domain { return t.flags }

// Permissions returns the permission domain.
func (t *Toolbar) Permissions() *Domain { return t.permissions }

// AppFeatures returns the product tier feature domain.
func (t *Toolbar) AppFeatures() *Domain { return t.features }

// Language returns the language domain.
func (t *Toolbar) Language() *LanguageDomain { return t.language }

// Adapter returns the shared persistence adapter.
func (t *Toolbar) Adapter() *storage.Adapter { return t.adapter }

// Domain returns the multi-option domain for kind. KindLanguage and unknown
// kinds report false.
func (t *Toolbar) Domain(kind Kind) (*Domain, bool) {
	switch kind {
	case KindFeatureFlags:
		return t.flags, true
	case KindPermissions:
		return t.permissions, true
	case KindAppFeatures:
		return t.features, true
	default:
		return nil, false
	}
}

// Enabled reports the gate position.
func (t *Toolbar) Enabled() bool {
	return t.gate.Enabled()
}

// Enable turns overrides back on. It is a no-op with a caller supplied gate.
func (t *Toolbar) Enable() {
	if t.toggle != nil {
		t.toggle.Enable()
	}
}

// Disable makes every domain report natural values. Stored overrides are kept.
func (t *Toolbar) Disable() {
	if t.toggle != nil {
		t.toggle.Disable()
	}
}

// Reset clears every override in every domain.
func (t *Toolbar) Reset() {
	t.flags.ClearAll()
	t.permissions.ClearAll()
	t.features.ClearAll()
	t.language.ClearLanguage()
}

// Close detaches every domain from the gate.
func (t *Toolbar) Close() {
	t.flags.Close()
	t.permissions.Close()
	t.features.Close()
	t.language.Close()
}

// EmitterFromHooks is a convenience for WithActivity with default settings.
func EmitterFromHooks(hooks ...activity.ActivityHook) *activity.Emitter {
	return activity.NewEmitter(activity.Hooks(hooks), activity.Config{Enabled: true})
}
