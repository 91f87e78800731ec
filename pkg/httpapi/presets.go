package httpapi

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goliatone/go-overrides/pkg/presets"
)

func presetNotFound(id string) error {
	return fmt.Errorf("%w: %s", presets.ErrPresetNotFound, id)
}

func (s *Server) listPresets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.presets.List())
}

func (s *Server) savePreset(w http.ResponseWriter, r *http.Request) {
	req, err := decode(saveDecoder, r, "")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	preset, err := s.presets.Save(req.Name, req.Description, req.selection())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, preset)
}

func (s *Server) getPreset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	preset, ok := s.presets.Get(id)
	if !ok {
		s.writeError(w, r, presetNotFound(id))
		return
	}
	writeJSON(w, http.StatusOK, preset)
}

func (s *Server) renamePreset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, err := decode(renameDecoder, r, "")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	preset, ok := s.presets.UpdateMetadata(id, req.Name, req.Description)
	if !ok {
		s.writeError(w, r, presetNotFound(id))
		return
	}
	writeJSON(w, http.StatusOK, preset)
}

func (s *Server) recapturePreset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	preset, ok := s.presets.Update(id)
	if !ok {
		s.writeError(w, r, presetNotFound(id))
		return
	}
	writeJSON(w, http.StatusOK, preset)
}

func (s *Server) deletePreset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.presets.Delete(id) {
		s.writeError(w, r, presetNotFound(id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) applyPreset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.presets.Get(id); !ok {
		s.writeError(w, r, presetNotFound(id))
		return
	}
	if err := s.presets.Apply(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.presets.CurrentForcedState())
}

func (s *Server) exportPreset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	payload, ok := s.presets.Export(id)
	if !ok {
		s.writeError(w, r, presetNotFound(id))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".json"))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, payload)
}

func (s *Server) importPreset(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		s.writeError(w, r, &requestError{err: err})
		return
	}
	preset, err := s.presets.Import(data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, preset)
}

type publishResponse struct {
	Key string `json:"key"`
}

func (s *Server) publishPreset(w http.ResponseWriter, r *http.Request) {
	key, err := s.publisher.Push(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, publishResponse{Key: key})
}

// pullPresets imports the object named by key, or every published preset
// when the body is empty.
func (s *Server) pullPresets(w http.ResponseWriter, r *http.Request) {
	var req pullRequest
	if r.ContentLength != 0 {
		decoded, err := decode(pullDecoder, r, "")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		req = decoded
	}
	if req.Key != "" {
		preset, err := s.publisher.Pull(r.Context(), req.Key)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, []presets.Preset{preset})
		return
	}
	imported, err := s.publisher.PullAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, imported)
}
