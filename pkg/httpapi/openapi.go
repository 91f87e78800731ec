package httpapi

import (
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"time"

	overrides "github.com/goliatone/go-overrides"
	"github.com/goliatone/go-overrides/pkg/presets"
)

const openAPIVersion = "3.0.3"

type routeDoc struct {
	method    string
	path      string
	summary   string
	request   any
	response  any
	status    int
	presets   bool
	publisher bool
}

var routeDocs = []routeDoc{
	{method: http.MethodGet, path: "/health", summary: "Liveness probe", response: map[string]string{}},
	{method: http.MethodGet, path: "/gate", summary: "Report whether overrides apply", response: gateResponse{}},
	{method: http.MethodPut, path: "/gate", summary: "Turn overrides on or off", request: gateRequest{}, response: gateResponse{}},
	{method: http.MethodPost, path: "/reset", summary: "Clear every override", status: http.StatusNoContent},
	{method: http.MethodGet, path: "/domains", summary: "List domains", response: []string{}},
	{method: http.MethodGet, path: "/domains/{kind}/options", summary: "Registered options", response: []overrides.Option{}},
	{method: http.MethodPut, path: "/domains/{kind}/options", summary: "Replace registered options", request: optionsRequest{}, response: []overrides.Option{}},
	{method: http.MethodGet, path: "/domains/{kind}/values", summary: "Effective values", response: []overrides.EffectiveOption{}},
	{method: http.MethodGet, path: "/domains/{kind}/forced", summary: "Forced values", response: []overrides.EffectiveOption{}},
	{method: http.MethodGet, path: "/domains/{kind}/state", summary: "Forced id partition", response: map[string][]string{}},
	{method: http.MethodPut, path: "/domains/{kind}/state", summary: "Replace the forced partition", request: stateRequest{}, response: applyResponse{}},
	{method: http.MethodPost, path: "/domains/{kind}/overrides", summary: "Force one option", request: overrideRequest{}, response: []overrides.EffectiveOption{}},
	{method: http.MethodDelete, path: "/domains/{kind}/overrides", summary: "Clear a domain", status: http.StatusNoContent},
	{method: http.MethodDelete, path: "/domains/{kind}/overrides/{id}", summary: "Clear one override", status: http.StatusNoContent},
	{method: http.MethodGet, path: "/presets", summary: "List presets", response: []presets.Preset{}, presets: true},
	{method: http.MethodPost, path: "/presets", summary: "Save current overrides", request: saveRequest{}, response: presets.Preset{}, status: http.StatusCreated, presets: true},
	{method: http.MethodPost, path: "/presets/import", summary: "Import an exported preset", request: presets.Preset{}, response: presets.Preset{}, status: http.StatusCreated, presets: true},
	{method: http.MethodGet, path: "/presets/{id}", summary: "Get a preset", response: presets.Preset{}, presets: true},
	{method: http.MethodPatch, path: "/presets/{id}", summary: "Rename a preset", request: renameRequest{}, response: presets.Preset{}, presets: true},
	{method: http.MethodDelete, path: "/presets/{id}", summary: "Delete a preset", status: http.StatusNoContent, presets: true},
	{method: http.MethodPut, path: "/presets/{id}/capture", summary: "Re-capture current overrides", response: presets.Preset{}, presets: true},
	{method: http.MethodPost, path: "/presets/{id}/apply", summary: "Apply a preset", response: presets.Config{}, presets: true},
	{method: http.MethodGet, path: "/presets/{id}/export", summary: "Export a preset as JSON", response: presets.Preset{}, presets: true},
	{method: http.MethodPost, path: "/presets/{id}/publish", summary: "Publish a preset to the blob sink", response: publishResponse{}, presets: true, publisher: true},
	{method: http.MethodPost, path: "/presets/pull", summary: "Import published presets", request: pullRequest{}, response: []presets.Preset{}, status: http.StatusCreated, presets: true, publisher: true},
}

// OpenAPI describes the routes Handler serves.
func (s *Server) OpenAPI() map[string]any {
	paths := map[string]any{}
	for _, route := range routeDocs {
		if route.presets && s.presets == nil || route.publisher && s.publisher == nil {
			continue
		}
		item, _ := paths[route.path].(map[string]any)
		if item == nil {
			item = map[string]any{}
			paths[route.path] = item
		}
		item[strings.ToLower(route.method)] = operationFor(route)
	}
	return map[string]any{
		"openapi": openAPIVersion,
		"info": map[string]any{
			"title":   "go-overrides",
			"version": "1.0.0",
		},
		"paths": paths,
	}
}

func (s *Server) getOpenAPI(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.OpenAPI())
}

func operationFor(route routeDoc) map[string]any {
	status := route.status
	if status == 0 {
		status = http.StatusOK
	}
	response := map[string]any{"description": http.StatusText(status)}
	if route.response != nil {
		response["content"] = jsonContent(route.response)
	}
	op := map[string]any{
		"summary":   route.summary,
		"responses": map[string]any{fmt.Sprint(status): response},
	}
	if route.request != nil {
		op["requestBody"] = map[string]any{"required": true, "content": jsonContent(route.request)}
	}
	if params := pathParameters(route.path); len(params) > 0 {
		op["parameters"] = params
	}
	return op
}

func jsonContent(value any) map[string]any {
	return map[string]any{
		"application/json": map[string]any{"schema": schemaFor(reflect.TypeOf(value))},
	}
}

func pathParameters(path string) []map[string]any {
	var params []map[string]any
	for _, segment := range strings.Split(path, "/") {
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			params = append(params, map[string]any{
				"name":     strings.Trim(segment, "{}"),
				"in":       "path",
				"required": true,
				"schema":   map[string]any{"type": "string"},
			})
		}
	}
	return params
}

var timeType = reflect.TypeOf(time.Time{})

// schemaFor derives a JSON schema from t, following json tags.
func schemaFor(t reflect.Type) map[string]any {
	if t == nil {
		return map[string]any{"nullable": true}
	}
	nullable := false
	for t.Kind() == reflect.Pointer {
		nullable = true
		t = t.Elem()
	}
	schema := baseSchema(t)
	if nullable {
		schema["nullable"] = true
	}
	return schema
}

func baseSchema(t reflect.Type) map[string]any {
	switch t.Kind() {
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Struct:
		if t == timeType {
			return map[string]any{"type": "string", "format": "date-time"}
		}
		return structSchema(t)
	case reflect.Map:
		return map[string]any{"type": "object", "additionalProperties": schemaFor(t.Elem())}
	case reflect.Slice, reflect.Array:
		return map[string]any{"type": "array", "items": schemaFor(t.Elem())}
	default:
		return map[string]any{}
	}
}

func structSchema(t reflect.Type) map[string]any {
	properties := map[string]any{}
	var required []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, omitempty := field.Name, false
		if tag := field.Tag.Get("json"); tag != "" {
			parts := strings.Split(tag, ",")
			if parts[0] == "-" {
				continue
			}
			if parts[0] != "" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				omitempty = omitempty || opt == "omitempty"
			}
		}
		properties[name] = schemaFor(field.Type)
		if !omitempty && field.Type.Kind() != reflect.Pointer {
			required = append(required, name)
		}
	}
	schema := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		sort.Strings(required)
		schema["required"] = required
	}
	return schema
}
