package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/crmimport/internal/core"
)

// templateRequest is the body of a template create or update.
type templateRequest struct {
	Name    string             `json:"name"`
	Mapping core.ColumnMapping `json:"mapping"`
	Headers []string           `json:"headers"`
}

func decodeTemplateRequest(w http.ResponseWriter, r *http.Request) (templateRequest, error) {
	var req templateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMappingBody)).Decode(&req); err != nil {
		return req, fmt.Errorf("%w: invalid template: %w", errBadRequest, err)
	}
	return req, nil
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.service.ListTemplates(r.Context(), chi.URLParam(r, "schema"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeTemplateRequest(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	t, err := s.service.CreateTemplate(r.Context(), chi.URLParam(r, "schema"), req.Name, req.Mapping, req.Headers)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// handleMatchTemplates scores the schema's templates against the
// comma-separated ?headers= list.
func (s *Server) handleMatchTemplates(w http.ResponseWriter, r *http.Request) {
	var headers []string
	for _, h := range strings.Split(r.URL.Query().Get("headers"), ",") {
		if h = strings.TrimSpace(h); h != "" {
			headers = append(headers, h)
		}
	}
	if len(headers) == 0 {
		s.respondError(w, r, fmt.Errorf("%w: headers query parameter is required", errBadRequest))
		return
	}

	matches, err := s.service.MatchTemplates(r.Context(), chi.URLParam(r, "schema"), headers)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := s.service.GetTemplate(r.Context(), chi.URLParam(r, "templateID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeTemplateRequest(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	t, err := s.service.UpdateTemplate(r.Context(), chi.URLParam(r, "templateID"), req.Name, req.Mapping, req.Headers)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteTemplate(r.Context(), chi.URLParam(r, "templateID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSaveRunTemplate saves the run's current mapping under the "name" of
// the JSON body.
func (s *Server) handleSaveRunTemplate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeTemplateRequest(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	t, err := s.service.SaveRunTemplate(r.Context(), chi.URLParam(r, "runID"), req.Name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}
