package overrides

import (
	"testing"

	"github.com/goliatone/go-overrides/pkg/storage"
)

func TestToolbarSharesAdapterAndGate(t *testing.T) {
	adapter := storage.NewMemoryAdapter()
	toolbar := NewToolbar(adapter)
	defer toolbar.Close()

	if err := toolbar.FeatureFlags().SetAvailableOptions(flagOptions()); err != nil {
		t.Fatalf("flags: %v", err)
	}
	if err := toolbar.Permissions().SetAvailableOptions([]Option{{ID: "admin", Name: "Admin"}}); err != nil {
		t.Fatalf("permissions: %v", err)
	}
	toolbar.FeatureFlags().SetOverride("dark-mode", true)
	toolbar.Permissions().SetOverride("admin", true)

	toolbar.Disable()
	if toolbar.Enabled() {
		t.Fatalf("expected toolbar disabled")
	}
	if len(toolbar.FeatureFlags().ForcedValues().Value()) != 0 || len(toolbar.Permissions().ForcedValues().Value()) != 0 {
		t.Fatalf("expected every domain gated")
	}
	toolbar.Enable()
	if len(toolbar.Permissions().ForcedValues().Value()) != 1 {
		t.Fatalf("expected overrides restored")
	}

	raw, ok := adapter.ReadRaw(KindPermissions.StorageKey())
	if !ok {
		t.Fatalf("expected permissions persisted")
	}
	if state, _ := DecodePartition(KindPermissions, raw); !state.Has("admin") {
		t.Fatalf("unexpected persisted permissions %s", raw)
	}
}

func TestToolbarDomainLookupAndReset(t *testing.T) {
	toolbar := NewToolbar(storage.NewMemoryAdapter())
	defer toolbar.Close()

	for _, kind := range []Kind{KindFeatureFlags, KindPermissions, KindAppFeatures} {
		domain, ok := toolbar.Domain(kind)
		if !ok || domain.Kind() != kind {
			t.Fatalf("expected domain for %s", kind)
		}
	}
	if _, ok := toolbar.Domain(KindLanguage); ok {
		t.Fatalf("language is not a multi-option domain")
	}

	if err := toolbar.AppFeatures().SetAvailableOptions([]Option{{ID: "export", Name: "Export"}}); err != nil {
		t.Fatalf("features: %v", err)
	}
	if err := toolbar.Language().SetAvailableOptions(languageOptions()); err != nil {
		t.Fatalf("language: %v", err)
	}
	toolbar.AppFeatures().SetOverride("export", true)
	if err := toolbar.Language().SetLanguage("fr"); err != nil {
		t.Fatalf("set language: %v", err)
	}

	toolbar.Reset()
	if !toolbar.AppFeatures().CurrentState().IsEmpty() {
		t.Fatalf("expected features reset")
	}
	if _, ok := toolbar.Language().ForcedLanguage(); ok {
		t.Fatalf("expected language reset")
	}
}

func TestToolbarWithCustomGate(t *testing.T) {
	toolbar := NewToolbar(nil, WithGate(GateFunc(func() bool { return false })))
	defer toolbar.Close()

	toolbar.Enable()
	if toolbar.Enabled() {
		t.Fatalf("custom gate should not be toggled by Enable")
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"flags":         KindFeatureFlags,
		" Permissions ": KindPermissions,
		"app_features":  KindAppFeatures,
		"i18n":          KindLanguage,
	}
	for input, want := range cases {
		if got, ok := ParseKind(input); !ok || got != want {
			t.Fatalf("ParseKind(%q) = %q, %v", input, got, ok)
		}
	}
	if _, ok := ParseKind("colour"); ok {
		t.Fatalf("expected unknown kind rejected")
	}
}
