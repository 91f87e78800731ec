package presets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	overrides "github.com/goliatone/go-overrides"
	"github.com/goliatone/go-overrides/pkg/activity"
	"github.com/goliatone/go-overrides/pkg/logging"
	"github.com/goliatone/go-overrides/pkg/storage"
)

type fixture struct {
	adapter *storage.Adapter
	toolbar *overrides.Toolbar
	orch    *Orchestrator
	logger  *logging.CaptureLogger
	capture *activity.CaptureHook
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	logger := &logging.CaptureLogger{}
	capture := &activity.CaptureHook{}
	adapter := storage.NewMemoryAdapter()
	toolbar := overrides.NewToolbar(adapter, overrides.WithLogger(logger))
	t.Cleanup(toolbar.Close)

	mustRegister(t, toolbar.FeatureFlags(), []overrides.Option{
		{ID: "dark-mode", Name: "Dark mode"},
		{ID: "beta", Name: "Beta", NaturalValue: true},
	})
	mustRegister(t, toolbar.Permissions(), []overrides.Option{
		{ID: "admin", Name: "Admin"},
		{ID: "billing", Name: "Billing", NaturalValue: true},
	})
	mustRegister(t, toolbar.AppFeatures(), []overrides.Option{
		{ID: "export", Name: "Export", NaturalValue: true},
	})
	if err := toolbar.Language().SetAvailableOptions([]overrides.Option{
		{ID: "en", Name: "English", NaturalValue: true},
		{ID: "fr", Name: "French"},
	}); err != nil {
		t.Fatalf("language: %v", err)
	}

	counter := 0
	base := []Option{
		WithLogger(logger),
		WithActivity(overrides.EmitterFromHooks(capture)),
		WithClock(fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))),
		WithIDGenerator(func() string {
			counter++
			return fmt.Sprintf("preset-%d", counter)
		}),
	}
	orch := New(FromToolbar(toolbar), adapter, append(base, opts...)...)
	return &fixture{adapter: adapter, toolbar: toolbar, orch: orch, logger: logger, capture: capture}
}

func mustRegister(t *testing.T, domain *overrides.Domain, options []overrides.Option) {
	t.Helper()
	if err := domain.SetAvailableOptions(options); err != nil {
		t.Fatalf("%s: %v", domain.Kind(), err)
	}
}

func fixedClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
}

func (f *fixture) force() {
	f.toolbar.FeatureFlags().SetOverride("dark-mode", true)
	f.toolbar.FeatureFlags().SetOverride("beta", false)
	f.toolbar.Permissions().SetOverride("admin", true)
	f.toolbar.AppFeatures().SetOverride("export", false)
	_ = f.toolbar.Language().SetLanguage("fr")
}

func TestCaptureReadsEveryDomain(t *testing.T) {
	f := newFixture(t)
	f.force()

	config := f.orch.CurrentForcedState()
	if !config.FeatureFlags.Equal(overrides.ForcedState{Enabled: []string{"dark-mode"}, Disabled: []string{"beta"}}) {
		t.Fatalf("unexpected flags %+v", config.FeatureFlags)
	}
	if len(config.Permissions.Granted) != 1 || config.Permissions.Granted[0] != "admin" {
		t.Fatalf("unexpected permissions %+v", config.Permissions)
	}
	if !config.AppFeatures.Has("export") {
		t.Fatalf("unexpected features %+v", config.AppFeatures)
	}
	if config.Language == nil || *config.Language != "fr" {
		t.Fatalf("unexpected language %v", config.Language)
	}
}

func TestCaptureHonorsSelection(t *testing.T) {
	f := newFixture(t)
	f.force()

	config := f.orch.Capture(Selection{FeatureFlags: []string{"beta"}, Permissions: []string{}, ExcludeLanguage: true})
	if !config.FeatureFlags.Equal(overrides.ForcedState{Enabled: []string{}, Disabled: []string{"beta"}}) {
		t.Fatalf("expected only beta captured, got %+v", config.FeatureFlags)
	}
	if !config.Permissions.Forced().IsEmpty() {
		t.Fatalf("expected empty permissions, got %+v", config.Permissions)
	}
	if !config.AppFeatures.Has("export") {
		t.Fatalf("expected unrestricted features captured")
	}
	if config.Language != nil {
		t.Fatalf("expected language excluded")
	}
}

func TestSaveApplyRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.force()
	captured := f.orch.CurrentForcedState()

	preset, err := f.orch.Save(" Full ", "everything", All)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if preset.ID != "preset-1" || preset.Name != "Full" || !preset.CreatedAt.Equal(preset.UpdatedAt) {
		t.Fatalf("unexpected preset %+v", preset)
	}

	f.toolbar.Reset()
	if !f.orch.CurrentForcedState().IsEmpty() {
		t.Fatalf("expected reset to clear everything")
	}

	if err := f.orch.Apply(context.Background(), preset.ID); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := f.orch.CurrentForcedState(); !got.Equal(captured) {
		t.Fatalf("expected %+v after apply, got %+v", captured, got)
	}
}

func TestApplyFiltersIDsNoLongerRegistered(t *testing.T) {
	f := newFixture(t)
	f.toolbar.FeatureFlags().SetOverride("beta", true)
	f.toolbar.Permissions().SetOverride("billing", false)
	preset, err := f.orch.Save("A", "", All)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	mustRegister(t, f.toolbar.FeatureFlags(), []overrides.Option{{ID: "dark-mode", Name: "Dark mode"}})
	f.toolbar.Permissions().ClearAll()
	f.logger.Reset()

	if err := f.orch.Apply(context.Background(), preset.ID); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if f.toolbar.FeatureFlags().CurrentState().Has("beta") {
		t.Fatalf("expected beta filtered out")
	}
	if !f.logger.Contains("warn", "beta") {
		t.Fatalf("expected warning naming beta, got %v", f.logger.Entries())
	}
	if !f.toolbar.Permissions().CurrentState().Has("billing") {
		t.Fatalf("expected other domains applied normally")
	}
}

func TestApplyUnknownPresetIsNoop(t *testing.T) {
	f := newFixture(t)
	f.force()
	before := f.orch.CurrentForcedState()

	if err := f.orch.Apply(context.Background(), "missing"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !f.orch.CurrentForcedState().Equal(before) {
		t.Fatalf("expected state untouched")
	}
}

func TestApplyAsync(t *testing.T) {
	f := newFixture(t)
	f.toolbar.FeatureFlags().SetOverride("dark-mode", true)
	preset, _ := f.orch.Save("async", "", All)
	f.toolbar.Reset()

	select {
	case err := <-f.orch.ApplyAsync(context.Background(), preset.ID):
		if err != nil {
			t.Fatalf("apply: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("apply did not finish")
	}
	if !f.toolbar.FeatureFlags().CurrentState().Has("dark-mode") {
		t.Fatalf("expected preset applied")
	}
}

func TestApplyReportsLanguageTimeout(t *testing.T) {
	adapter := storage.NewMemoryAdapter()
	toolbar := overrides.NewToolbar(adapter)
	defer toolbar.Close()
	orch := New(FromToolbar(toolbar), adapter, WithApplyTimeout(10*time.Millisecond))

	language := "fr"
	preset := orch.Add(Preset{Name: "lang", Config: Config{Language: &language}})

	err := orch.Apply(context.Background(), preset.ID)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestUpdateRecapturesAndKeepsIdentity(t *testing.T) {
	f := newFixture(t)
	preset, _ := f.orch.Save("A", "first", All)
	f.toolbar.FeatureFlags().SetOverride("dark-mode", true)

	updated, ok := f.orch.Update(preset.ID)
	if !ok {
		t.Fatalf("expected update to succeed")
	}
	if updated.ID != preset.ID || updated.Name != "A" || updated.Description != "first" || !updated.CreatedAt.Equal(preset.CreatedAt) {
		t.Fatalf("expected identity preserved, got %+v", updated)
	}
	if !updated.UpdatedAt.After(preset.UpdatedAt) {
		t.Fatalf("expected updatedAt to move")
	}
	if !updated.Config.FeatureFlags.Has("dark-mode") {
		t.Fatalf("expected recaptured config, got %+v", updated.Config)
	}
	if _, ok := f.orch.Update("missing"); ok {
		t.Fatalf("expected missing preset update to report false")
	}
}

func TestUpdateMetadata(t *testing.T) {
	f := newFixture(t)
	f.toolbar.FeatureFlags().SetOverride("beta", false)
	preset, _ := f.orch.Save("A", "first", All)
	f.toolbar.Reset()

	updated, ok := f.orch.UpdateMetadata(preset.ID, "Renamed", "second")
	if !ok || updated.Name != "Renamed" || updated.Description != "second" {
		t.Fatalf("unexpected metadata update %+v", updated)
	}
	if !updated.Config.FeatureFlags.Has("beta") {
		t.Fatalf("expected config untouched by metadata update")
	}
	kept, _ := f.orch.UpdateMetadata(preset.ID, "  ", "")
	if kept.Name != "Renamed" {
		t.Fatalf("expected blank name to keep current, got %q", kept.Name)
	}
}

func TestDeletePreset(t *testing.T) {
	f := newFixture(t)
	preset, _ := f.orch.Save("A", "", All)
	if !f.orch.Delete(preset.ID) {
		t.Fatalf("expected delete to succeed")
	}
	if f.orch.Delete(preset.ID) {
		t.Fatalf("expected second delete to report false")
	}
	if len(f.orch.List()) != 0 {
		t.Fatalf("expected empty list")
	}
}

func TestExportImportIdempotence(t *testing.T) {
	f := newFixture(t)
	f.force()
	original, _ := f.orch.Save("A", "desc", All)

	exported, ok := f.orch.Export(original.ID)
	if !ok {
		t.Fatalf("expected export")
	}
	imported, err := f.orch.Import([]byte(exported))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if imported.ID == original.ID {
		t.Fatalf("expected fresh id on import")
	}
	if !imported.Config.Equal(original.Config) {
		t.Fatalf("expected config preserved, got %+v want %+v", imported.Config, original.Config)
	}
	if imported.Name != original.Name || imported.Description != original.Description {
		t.Fatalf("expected metadata preserved, got %+v", imported)
	}
	if _, ok := f.orch.Export("missing"); ok {
		t.Fatalf("expected missing export to report false")
	}
}

func TestExportShape(t *testing.T) {
	f := newFixture(t)
	f.toolbar.Permissions().SetOverride("admin", true)
	preset, _ := f.orch.Save("A", "", All)

	exported, _ := f.orch.Export(preset.ID)
	var raw map[string]any
	if err := json.Unmarshal([]byte(exported), &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	config := raw["config"].(map[string]any)
	permissions := config["permissions"].(map[string]any)
	if _, ok := permissions["granted"]; !ok {
		t.Fatalf("expected granted key, got %v", permissions)
	}
	if _, ok := config["language"]; !ok || config["language"] != nil {
		t.Fatalf("expected explicit null language, got %v", config["language"])
	}
	if _, ok := raw["description"]; ok {
		t.Fatalf("expected empty description omitted")
	}
}

func TestImportFixture(t *testing.T) {
	f := newFixture(t)
	data, err := os.ReadFile(filepath.Join("testdata", "qa_preset.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	preset, err := f.orch.Import(data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	exportedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	if preset.ID == "exported-id" || preset.CreatedAt.Equal(exportedAt) {
		t.Fatalf("expected regenerated id and timestamps, got %+v", preset)
	}

	if err := f.orch.Apply(context.Background(), preset.ID); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !f.toolbar.Permissions().CurrentState().Has("admin") {
		t.Fatalf("expected admin granted")
	}
	if id, _ := f.toolbar.Language().ForcedLanguage(); id != "fr" {
		t.Fatalf("expected fr forced, got %q", id)
	}
}

func TestImportRejectsInvalidPayloads(t *testing.T) {
	f := newFixture(t)
	for _, payload := range []string{`{`, `[]`, `{"config":{}}`} {
		if _, err := f.orch.Import([]byte(payload)); !errors.Is(err, ErrInvalidPreset) {
			t.Fatalf("expected invalid preset for %s, got %v", payload, err)
		}
	}
}

func TestSaveRejectsEmptyName(t *testing.T) {
	f := newFixture(t)
	if _, err := f.orch.Save("  ", "", All); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected empty name error, got %v", err)
	}
}

func TestPresetsPersistAcrossOrchestrators(t *testing.T) {
	f := newFixture(t)
	f.force()
	saved, _ := f.orch.Save("A", "", All)

	reloaded := New(FromToolbar(f.toolbar), f.adapter)
	got, ok := reloaded.Get(saved.ID)
	if !ok || !got.Config.Equal(saved.Config) {
		t.Fatalf("expected persisted preset, got %+v ok=%v", got, ok)
	}
	if found, ok := reloaded.FindByName("a"); !ok || found.ID != saved.ID {
		t.Fatalf("expected case-insensitive name lookup")
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	f := newFixture(t)
	f.toolbar.FeatureFlags().SetOverride("beta", true)
	saved, _ := f.orch.Save("A", "", All)

	list := f.orch.List()
	list[0].Name = "mutated"
	list[0].Config.FeatureFlags.Enabled[0] = "mutated"

	got, _ := f.orch.Get(saved.ID)
	if got.Name != "A" || got.Config.FeatureFlags.Enabled[0] != "beta" {
		t.Fatalf("expected internal preset untouched, got %+v", got)
	}
	config := f.orch.CurrentForcedState()
	config.FeatureFlags.Enabled[0] = "mutated"
	if !f.toolbar.FeatureFlags().CurrentState().Has("beta") {
		t.Fatalf("expected domain state untouched")
	}
}

func TestOrchestratorEmitsActivity(t *testing.T) {
	f := newFixture(t, WithActor("cli"))
	preset, _ := f.orch.Save("A", "", All)
	_ = f.orch.Apply(context.Background(), preset.ID)
	f.orch.Update(preset.ID)
	f.orch.Delete(preset.ID)

	var verbs []string
	for _, event := range f.capture.Snapshot() {
		if event.ObjectType == activity.ObjectPreset {
			verbs = append(verbs, event.Verb)
			if event.ActorID != "cli" {
				t.Fatalf("expected actor cli, got %q", event.ActorID)
			}
		}
	}
	want := []string{activity.VerbPresetSaved, activity.VerbPresetApplied, activity.VerbPresetUpdated, activity.VerbPresetDeleted}
	if fmt.Sprint(verbs) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, verbs)
	}
}

func TestLoadSkipsMalformedStore(t *testing.T) {
	adapter := storage.NewMemoryAdapter()
	if err := adapter.Write(StorageKey, map[string]string{"not": "a list"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	orch := New(Domains{}, adapter)
	if len(orch.List()) != 0 {
		t.Fatalf("expected malformed store to load empty")
	}
	if config := orch.CurrentForcedState(); !config.IsEmpty() {
		t.Fatalf("expected empty capture without domains, got %+v", config)
	}
}
