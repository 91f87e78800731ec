package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	overrides "github.com/goliatone/go-overrides"
	"github.com/goliatone/go-overrides/pkg/metrics"
	"github.com/goliatone/go-overrides/pkg/presets"
	"github.com/goliatone/go-overrides/pkg/presets/blobsink"
	"github.com/goliatone/go-overrides/pkg/storage"
)

type harness struct {
	toolbar *overrides.Toolbar
	presets *presets.Orchestrator
	server  *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	adapter := storage.NewMemoryAdapter()
	toolbar := overrides.NewToolbar(adapter)
	t.Cleanup(toolbar.Close)
	_ = toolbar.FeatureFlags().SetAvailableOptions([]overrides.Option{
		{ID: "dark-mode", Name: "Dark mode"},
		{ID: "beta", Name: "Beta", NaturalValue: true},
	})
	_ = toolbar.Permissions().SetAvailableOptions([]overrides.Option{{ID: "admin", Name: "Admin"}})
	_ = toolbar.Language().SetAvailableOptions([]overrides.Option{
		{ID: "en", Name: "English", NaturalValue: true},
		{ID: "fr", Name: "French"},
	})

	orchestrator := presets.New(presets.FromToolbar(toolbar), adapter)
	sink, err := blobsink.NewDirSink(t.TempDir())
	if err != nil {
		t.Fatalf("sink: %v", err)
	}
	api := New(toolbar,
		WithPresets(orchestrator),
		WithPublisher(blobsink.NewPublisher(sink, orchestrator)),
		WithMetrics(metrics.NewCollector("")),
	)
	server := httptest.NewServer(api.Handler())
	t.Cleanup(server.Close)
	return &harness{toolbar: toolbar, presets: orchestrator, server: server}
}

func (h *harness) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, h.server.URL+path, reader)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func decodeBody[T any](t *testing.T, data []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return out
}

func TestForceAndClearOverride(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(t, http.MethodPost, "/domains/feature-flags/overrides", `{"id":"dark-mode","value":true}`)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	values := decodeBody[[]overrides.EffectiveOption](t, body)
	if !values[0].IsEnabled || !values[0].IsForced || values[0].OriginalValue == nil || *values[0].OriginalValue {
		t.Fatalf("unexpected effective value %+v", values[0])
	}

	status, body = h.do(t, http.MethodGet, "/domains/flags/forced", "")
	if forced := decodeBody[[]overrides.EffectiveOption](t, body); status != http.StatusOK || len(forced) != 1 {
		t.Fatalf("expected one forced value via alias, got %d %s", status, body)
	}

	if status, _ := h.do(t, http.MethodDelete, "/domains/feature-flags/overrides/dark-mode", ""); status != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", status)
	}
	if h.toolbar.FeatureFlags().CurrentState().Has("dark-mode") {
		t.Fatalf("expected override cleared")
	}
}

func TestOverrideValidation(t *testing.T) {
	h := newHarness(t)
	cases := []struct {
		path, body string
		want       int
	}{
		{"/domains/feature-flags/overrides", `{"value":true}`, http.StatusBadRequest},
		{"/domains/feature-flags/overrides", `{"id":"beta"}`, http.StatusBadRequest},
		{"/domains/feature-flags/overrides", `{"id":"beta","value":true,"extra":1}`, http.StatusBadRequest},
		{"/domains/feature-flags/overrides", ``, http.StatusBadRequest},
		{"/domains/language/overrides", `{"id":"xx"}`, http.StatusBadRequest},
		{"/domains/nope/overrides", `{"id":"a","value":true}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		if status, body := h.do(t, http.MethodPost, tc.path, tc.body); status != tc.want {
			t.Fatalf("%s %s: expected %d, got %d: %s", tc.path, tc.body, tc.want, status, body)
		}
	}
}

func TestPermissionStateAcceptsGrantedAndRespondsEnabled(t *testing.T) {
	h := newHarness(t)
	status, body := h.do(t, http.MethodPut, "/domains/permissions/state", `{"granted":["admin","ghost"],"denied":[]}`)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	resp := decodeBody[applyResponse](t, body)
	if len(resp.State["enabled"]) != 1 || resp.State["enabled"][0] != "admin" {
		t.Fatalf("unexpected state %+v", resp.State)
	}
	if _, ok := resp.State["granted"]; ok {
		t.Fatalf("expected enabled/disabled labels, got %+v", resp.State)
	}
	if len(resp.Dropped) != 1 || resp.Dropped[0] != "ghost" {
		t.Fatalf("expected ghost dropped, got %v", resp.Dropped)
	}
}

func TestLanguageRoutes(t *testing.T) {
	h := newHarness(t)
	if status, body := h.do(t, http.MethodPost, "/domains/language/overrides", `{"id":"fr"}`); status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	_, body := h.do(t, http.MethodGet, "/domains/language/state", "")
	state := decodeBody[languageState](t, body)
	if state.Language == nil || *state.Language != "fr" {
		t.Fatalf("unexpected language state %s", body)
	}
	if status, _ := h.do(t, http.MethodPut, "/domains/language/state", `{"enabled":["fr"]}`); status != http.StatusBadRequest {
		t.Fatalf("expected language state writes rejected, got %d", status)
	}
	h.do(t, http.MethodDelete, "/domains/language/overrides", "")
	if _, ok := h.toolbar.Language().ForcedLanguage(); ok {
		t.Fatalf("expected language cleared")
	}
}

func TestGateToggle(t *testing.T) {
	h := newHarness(t)
	h.toolbar.FeatureFlags().SetOverride("beta", false)

	status, body := h.do(t, http.MethodPut, "/gate", `{"enabled":false}`)
	if status != http.StatusOK || decodeBody[gateResponse](t, body).Enabled {
		t.Fatalf("expected gate disabled, got %d %s", status, body)
	}
	_, body = h.do(t, http.MethodGet, "/domains/feature-flags/forced", "")
	if forced := decodeBody[[]overrides.EffectiveOption](t, body); len(forced) != 0 {
		t.Fatalf("expected no forced values while gated, got %+v", forced)
	}
	if status, _ := h.do(t, http.MethodPut, "/gate", `{}`); status != http.StatusBadRequest {
		t.Fatalf("expected missing enabled rejected, got %d", status)
	}
}

func TestPresetLifecycle(t *testing.T) {
	h := newHarness(t)
	h.toolbar.FeatureFlags().SetOverride("dark-mode", true)

	status, body := h.do(t, http.MethodPost, "/presets", `{"name":"QA","description":"dark"}`)
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", status, body)
	}
	preset := decodeBody[presets.Preset](t, body)

	h.do(t, http.MethodPost, "/reset", "")
	if status, body := h.do(t, http.MethodPost, "/presets/"+preset.ID+"/apply", ""); status != http.StatusOK {
		t.Fatalf("expected apply 200, got %d: %s", status, body)
	}
	if !h.toolbar.FeatureFlags().CurrentState().Has("dark-mode") {
		t.Fatalf("expected preset applied")
	}

	status, body = h.do(t, http.MethodPatch, "/presets/"+preset.ID, `{"name":"Renamed"}`)
	if status != http.StatusOK || decodeBody[presets.Preset](t, body).Name != "Renamed" {
		t.Fatalf("unexpected rename %d %s", status, body)
	}

	status, exported := h.do(t, http.MethodGet, "/presets/"+preset.ID+"/export", "")
	if status != http.StatusOK {
		t.Fatalf("expected export 200, got %d", status)
	}
	status, body = h.do(t, http.MethodPost, "/presets/import", string(exported))
	if status != http.StatusCreated || decodeBody[presets.Preset](t, body).ID == preset.ID {
		t.Fatalf("unexpected import %d %s", status, body)
	}

	if status, _ := h.do(t, http.MethodDelete, "/presets/"+preset.ID, ""); status != http.StatusNoContent {
		t.Fatalf("expected delete 204, got %d", status)
	}
	for _, path := range []string{"/presets/" + preset.ID, "/presets/" + preset.ID + "/export"} {
		if status, _ := h.do(t, http.MethodGet, path, ""); status != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, status)
		}
	}
	if status, _ := h.do(t, http.MethodPost, "/presets", `{"name":" "}`); status != http.StatusBadRequest {
		t.Fatalf("expected empty name rejected, got %d", status)
	}
	if status, _ := h.do(t, http.MethodPost, "/presets/import", `{`); status != http.StatusBadRequest {
		t.Fatalf("expected invalid import rejected, got %d", status)
	}
}

func TestPublishAndPull(t *testing.T) {
	h := newHarness(t)
	saved, err := h.presets.Save("shared", "", presets.All)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	status, body := h.do(t, http.MethodPost, "/presets/"+saved.ID+"/publish", "")
	if status != http.StatusOK {
		t.Fatalf("expected publish 200, got %d: %s", status, body)
	}
	key := decodeBody[publishResponse](t, body).Key

	status, body = h.do(t, http.MethodPost, "/presets/pull", `{"key":"`+key+`"}`)
	if status != http.StatusCreated || len(decodeBody[[]presets.Preset](t, body)) != 1 {
		t.Fatalf("unexpected pull %d %s", status, body)
	}
	if len(h.presets.List()) != 2 {
		t.Fatalf("expected imported copy alongside original")
	}
	if status, _ := h.do(t, http.MethodPost, "/presets/pull", `{"key":"presets/missing.json"}`); status != http.StatusNotFound {
		t.Fatalf("expected missing key 404, got %d", status)
	}
}

func TestMetricsEndpointRecordsRoutes(t *testing.T) {
	h := newHarness(t)
	h.do(t, http.MethodGet, "/domains/feature-flags/values", "")
	_, body := h.do(t, http.MethodGet, "/metrics", "")
	if !strings.Contains(string(body), `route="/domains/{kind}/values"`) {
		t.Fatalf("expected route pattern label, got:\n%s", body)
	}
}

func TestCORSAllowsConfiguredOrigins(t *testing.T) {
	toolbar := overrides.NewToolbar(storage.NewMemoryAdapter())
	t.Cleanup(toolbar.Close)
	server := httptest.NewServer(New(toolbar, WithAllowedOrigins("http://localhost:5173")).Handler())
	t.Cleanup(server.Close)

	preflight, err := http.NewRequest(http.MethodOptions, server.URL+"/gate", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	preflight.Header.Set("Origin", "http://localhost:5173")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPut)
	resp, err := http.DefaultClient.Do(preflight)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("expected allowed origin, got %q", got)
	}

	foreign, _ := http.NewRequest(http.MethodGet, server.URL+"/health", nil)
	foreign.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(foreign)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no CORS header for foreign origin, got %q", got)
	}
}
