package rules_test

import (
	"testing"

	overrides "github.com/goliatone/go-overrides"
	"github.com/goliatone/go-overrides/pkg/rules"
	"github.com/goliatone/go-overrides/pkg/storage"
)

func TestGateDrivesDomain(t *testing.T) {
	facts := map[string]any{"stage": "qa"}
	gate, err := rules.NewGate(`stage != "production"`, rules.WithFacts(func() map[string]any { return facts }))
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}

	domain := overrides.NewDomain(overrides.KindFeatureFlags, storage.NewMemoryAdapter(), overrides.WithGate(gate))
	if err := domain.SetAvailableOptions([]overrides.Option{{ID: "beta", Name: "Beta"}}); err != nil {
		t.Fatalf("set options: %v", err)
	}
	domain.SetOverride("beta", true)
	if len(domain.ForcedValues().Value()) != 1 {
		t.Fatalf("expected override visible outside production")
	}

	facts = map[string]any{"stage": "production"}
	domain.Refresh()
	if len(domain.ForcedValues().Value()) != 0 {
		t.Fatalf("expected override hidden in production")
	}
	if !domain.CurrentState().Has("beta") {
		t.Fatalf("expected stored override kept")
	}
}
