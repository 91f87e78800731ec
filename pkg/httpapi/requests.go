package httpapi

import (
	"net/http"
	"strings"

	overrides "github.com/goliatone/go-overrides"
	"github.com/goliatone/go-overrides/internal/hydrate"
	"github.com/goliatone/go-overrides/pkg/presets"
)

type gateRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type optionsRequest struct {
	Options []overrides.Option `json:"options" validate:"required"`
}

type overrideRequest struct {
	ID    string `json:"id"`
	Value *bool  `json:"value"`
}

type stateRequest struct {
	Enabled  []string `json:"enabled"`
	Disabled []string `json:"disabled"`
}

type saveRequest struct {
	Name            string   `json:"name" validate:"max=120"`
	Description     string   `json:"description" validate:"max=1000"`
	FeatureFlags    []string `json:"featureFlags"`
	Permissions     []string `json:"permissions"`
	AppFeatures     []string `json:"appFeatures"`
	ExcludeLanguage bool     `json:"excludeLanguage"`
}

func (r saveRequest) selection() presets.Selection {
	return presets.Selection{
		FeatureFlags:    r.FeatureFlags,
		Permissions:     r.Permissions,
		AppFeatures:     r.AppFeatures,
		ExcludeLanguage: r.ExcludeLanguage,
	}
}

type renameRequest struct {
	Name        string `json:"name" validate:"max=120"`
	Description string `json:"description" validate:"max=1000"`
}

type pullRequest struct {
	Key string `json:"key" validate:"required"`
}

// permissionLabels accepts the preset granted/denied labels as aliases for
// enabled/disabled on the permissions domain.
func permissionLabels(ctx hydrate.Context, payload map[string]any) (map[string]any, error) {
	if ctx.Domain != string(overrides.KindPermissions) {
		return payload, nil
	}
	if granted, ok := payload["granted"]; ok {
		payload["enabled"] = granted
		delete(payload, "granted")
	}
	if denied, ok := payload["denied"]; ok {
		payload["disabled"] = denied
		delete(payload, "denied")
	}
	return payload, nil
}

func requireOverrideID(_ hydrate.Context, req *overrideRequest) error {
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		return overrides.ErrEmptyOptionID
	}
	return nil
}

var (
	gateDecoder     = hydrate.NewDecoder(hydrate.WithDisallowUnknownFields[gateRequest](), hydrate.WithValidation[gateRequest]())
	optionsDecoder  = hydrate.NewDecoder(hydrate.WithDisallowUnknownFields[optionsRequest](), hydrate.WithValidation[optionsRequest]())
	overrideDecoder = hydrate.NewDecoder(hydrate.WithDisallowUnknownFields[overrideRequest](), hydrate.WithPostHook(requireOverrideID))
	stateDecoder    = hydrate.NewDecoder(hydrate.WithPreHook[stateRequest](permissionLabels), hydrate.WithDisallowUnknownFields[stateRequest]())
	saveDecoder     = hydrate.NewDecoder(hydrate.WithDisallowUnknownFields[saveRequest](), hydrate.WithValidation[saveRequest]())
	renameDecoder   = hydrate.NewDecoder(hydrate.WithDisallowUnknownFields[renameRequest](), hydrate.WithValidation[renameRequest]())
	pullDecoder     = hydrate.NewDecoder(hydrate.WithValidation[pullRequest]())
)

func decode[T any](decoder *hydrate.Decoder[T], r *http.Request, domain string) (T, error) {
	ctx := hydrate.Context{Route: r.Method + " " + r.URL.Path, Domain: domain}
	value, err := decoder.DecodeReader(ctx, r.Body)
	if err != nil {
		return value, &requestError{err: err}
	}
	return value, nil
}
