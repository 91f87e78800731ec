package httpapi

import (
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	overrides "github.com/goliatone/go-overrides"
	"github.com/goliatone/go-overrides/pkg/presets"
	"github.com/goliatone/go-overrides/pkg/storage"
)

func TestOpenAPICoversServedRoutes(t *testing.T) {
	adapter := storage.NewMemoryAdapter()
	toolbar := overrides.NewToolbar(adapter)
	defer toolbar.Close()
	server := New(toolbar, WithPresets(presets.New(presets.FromToolbar(toolbar), adapter)))

	paths := server.OpenAPI()["paths"].(map[string]any)
	undocumented := map[string]bool{"/openapi.json": true}

	routes, ok := server.Handler().(chi.Routes)
	if !ok {
		t.Fatalf("expected chi routes")
	}
	err := chi.Walk(routes, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if len(route) > 1 {
			route = strings.TrimSuffix(route, "/")
		}
		if undocumented[route] {
			return nil
		}
		item, ok := paths[route].(map[string]any)
		if !ok {
			t.Errorf("route %s is not documented", route)
			return nil
		}
		if _, ok := item[strings.ToLower(method)]; !ok {
			t.Errorf("%s %s is not documented", method, route)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
}

func TestOpenAPIOmitsPresetRoutesWithoutOrchestrator(t *testing.T) {
	toolbar := overrides.NewToolbar(storage.NewMemoryAdapter())
	defer toolbar.Close()
	paths := New(toolbar).OpenAPI()["paths"].(map[string]any)
	if _, ok := paths["/presets"]; ok {
		t.Fatalf("expected preset routes omitted")
	}
}

func TestSchemaFollowsJSONTags(t *testing.T) {
	schema := schemaFor(typeOf[presets.Preset]())
	properties := schema["properties"].(map[string]any)
	if _, ok := properties["createdAt"]; !ok {
		t.Fatalf("expected json tag names, got %v", properties)
	}
	created := properties["createdAt"].(map[string]any)
	if created["format"] != "date-time" {
		t.Fatalf("expected date-time format, got %v", created)
	}
	config := properties["config"].(map[string]any)["properties"].(map[string]any)
	language := config["language"].(map[string]any)
	if language["nullable"] != true || language["type"] != "string" {
		t.Fatalf("expected nullable string language, got %v", language)
	}
	for _, name := range schema["required"].([]string) {
		if name == "description" {
			t.Fatalf("expected omitempty field to be optional")
		}
	}
	flags := config["featureFlags"].(map[string]any)["properties"].(map[string]any)
	if flags["enabled"].(map[string]any)["type"] != "array" {
		t.Fatalf("expected id arrays, got %v", flags)
	}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
