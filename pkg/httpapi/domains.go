package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	overrides "github.com/goliatone/go-overrides"
)

// resolved is a domain looked up from the {kind} URL parameter. Exactly one
// of multi and language is set.
type resolved struct {
	kind     overrides.Kind
	multi    *overrides.Domain
	language *overrides.LanguageDomain
}

func (s *Server) resolve(r *http.Request) (resolved, error) {
	raw := chi.URLParam(r, "kind")
	kind, ok := overrides.ParseKind(raw)
	if !ok {
		return resolved{}, fmt.Errorf("%w: %q", errUnknownDomain, raw)
	}
	if kind == overrides.KindLanguage {
		return resolved{kind: kind, language: s.toolbar.Language()}, nil
	}
	domain, _ := s.toolbar.Domain(kind)
	return resolved{kind: kind, multi: domain}, nil
}

func (d resolved) options() []overrides.Option {
	if d.language != nil {
		return d.language.Options()
	}
	return d.multi.Options()
}

func (d resolved) values() overrides.Stream[[]overrides.EffectiveOption] {
	if d.language != nil {
		return d.language.AllValues()
	}
	return d.multi.AllValues()
}

func (d resolved) forced() overrides.Stream[[]overrides.EffectiveOption] {
	if d.language != nil {
		return d.language.ForcedValues()
	}
	return d.multi.ForcedValues()
}

type gateResponse struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) getGate(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, gateResponse{Enabled: s.toolbar.Enabled()})
}

func (s *Server) putGate(w http.ResponseWriter, r *http.Request) {
	req, err := decode(gateDecoder, r, "")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if *req.Enabled {
		s.toolbar.Enable()
	} else {
		s.toolbar.Disable()
	}
	writeJSON(w, http.StatusOK, gateResponse{Enabled: s.toolbar.Enabled()})
}

func (s *Server) reset(w http.ResponseWriter, _ *http.Request) {
	s.toolbar.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listDomains(w http.ResponseWriter, _ *http.Request) {
	kinds := overrides.Kinds()
	out := make([]string, len(kinds))
	for i, kind := range kinds {
		out[i] = string(kind)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getOptions(w http.ResponseWriter, r *http.Request) {
	domain, err := s.resolve(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.options())
}

func (s *Server) putOptions(w http.ResponseWriter, r *http.Request) {
	domain, err := s.resolve(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	req, err := decode(optionsDecoder, r, string(domain.kind))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if domain.language != nil {
		err = domain.language.SetAvailableOptions(req.Options)
	} else {
		err = domain.multi.SetAvailableOptions(req.Options)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.options())
}

func (s *Server) getValues(w http.ResponseWriter, r *http.Request) {
	domain, err := s.resolve(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.values().Value())
}

func (s *Server) getForced(w http.ResponseWriter, r *http.Request) {
	domain, err := s.resolve(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.forced().Value())
}

type languageState struct {
	Language *string `json:"language"`
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	domain, err := s.resolve(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if domain.language != nil {
		var state languageState
		if id, ok := domain.language.ForcedLanguage(); ok {
			state.Language = &id
		}
		writeJSON(w, http.StatusOK, state)
		return
	}
	writeJSON(w, http.StatusOK, overrides.EncodePartition(domain.kind, domain.multi.CurrentState()))
}

type applyResponse struct {
	State   map[string][]string `json:"state"`
	Dropped []string            `json:"dropped"`
}

func (s *Server) putState(w http.ResponseWriter, r *http.Request) {
	domain, err := s.resolve(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if domain.language != nil {
		s.writeError(w, r, &requestError{err: errors.New("language state is set through overrides")})
		return
	}
	req, err := decode(stateDecoder, r, string(domain.kind))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	dropped := domain.multi.ApplyState(overrides.ForcedState{Enabled: req.Enabled, Disabled: req.Disabled})
	if dropped == nil {
		dropped = []string{}
	}
	writeJSON(w, http.StatusOK, applyResponse{
		State:   overrides.EncodePartition(domain.kind, domain.multi.CurrentState()),
		Dropped: dropped,
	})
}

func (s *Server) postOverride(w http.ResponseWriter, r *http.Request) {
	domain, err := s.resolve(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	req, err := decode(overrideDecoder, r, string(domain.kind))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if domain.language != nil {
		if err := domain.language.SetLanguage(req.ID); err != nil {
			s.writeError(w, r, err)
			return
		}
	} else {
		if req.Value == nil {
			s.writeError(w, r, &requestError{err: fmt.Errorf("value is required for %s", domain.kind)})
			return
		}
		domain.multi.SetOverride(req.ID, *req.Value)
	}
	writeJSON(w, http.StatusOK, domain.values().Value())
}

func (s *Server) deleteOverride(w http.ResponseWriter, r *http.Request) {
	domain, err := s.resolve(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if domain.language != nil {
		if forced, ok := domain.language.ForcedLanguage(); ok && forced == id {
			domain.language.ClearLanguage()
		}
	} else {
		domain.multi.ClearOverride(id)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearOverrides(w http.ResponseWriter, r *http.Request) {
	domain, err := s.resolve(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if domain.language != nil {
		domain.language.ClearLanguage()
	} else {
		domain.multi.ClearAll()
	}
	w.WriteHeader(http.StatusNoContent)
}
