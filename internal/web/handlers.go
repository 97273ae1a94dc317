package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/crmimport/internal/core"
	"github.com/JonMunkholm/crmimport/internal/logging"
)

// multipartMemory is how much of an upload is kept in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

// maxMappingBody caps the JSON body of a mapping edit.
const maxMappingBody = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListSchemas returns every importable schema with its fields.
func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.ListSchemas())
}

// handleStartRun parses the multipart "file" and opens a run for it.
func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	schemaKey := chi.URLParam(r, "schema")

	// The multipart envelope is allowed a little more than the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize+(1<<20))
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, core.ErrFileTooLarge)
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: invalid form: %w", errBadRequest, err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: no file provided", errBadRequest))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}

	view, err := s.service.StartRun(r.Context(), schemaKey, header.Filename, data)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.WithFields(r.Context(), "run_id", view.ID, "schema", schemaKey).
		Info("run started", "file", header.Filename, "rows", view.RowCount)
	s.respondRun(w, r, http.StatusCreated, view)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.GetRun(chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondRun(w, r, http.StatusOK, view)
}

// handleUpdateMapping applies a JSON object of header to field name. Use an
// empty string to ignore a column.
func (s *Server) handleUpdateMapping(w http.ResponseWriter, r *http.Request) {
	var m core.ColumnMapping
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMappingBody))
	if err := dec.Decode(&m); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: invalid mapping: %w", errBadRequest, err))
		return
	}

	view, err := s.service.UpdateMapping(r.Context(), chi.URLParam(r, "runID"), m)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondRun(w, r, http.StatusOK, view)
}

// handlePreview re-projects the first ?rows= rows under the current mapping.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	rows := parseIntParam(r, "rows", 0)

	view, err := s.service.Preview(r.Context(), chi.URLParam(r, "runID"), rows)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondRun(w, r, http.StatusOK, view)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.Validate(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondRun(w, r, http.StatusOK, view)
}

// handleCommit finishes the run. A failed bulk create is still a 200: the
// outcome is in the summary.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.Commit(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondRun(w, r, http.StatusOK, view)
}

// handleDiscard drops the run, as when the wizard is closed.
func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Discard(r.Context(), chi.URLParam(r, "runID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAuditTrail lists audit entries filtered by ?schema=, ?action= and
// ?limit=.
func (s *Server) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.AuditFilter{
		Schema: q.Get("schema"),
		Action: core.AuditAction(q.Get("action")),
		Limit:  parseIntParam(r, "limit", core.DefaultAuditLimit),
	}

	entries, err := s.service.AuditTrail(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleStatus reports commit slot usage.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.CommitStatus())
}

// respondRun writes a run as JSON, or as a summary fragment for HTMX.
func (s *Server) respondRun(w http.ResponseWriter, r *http.Request, status int, view core.RunView) {
	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if err := RunSummary(view).Render(r.Context(), w); err != nil {
			logging.FromContext(r.Context()).Error("render run summary", "error", err)
		}
		return
	}
	writeJSON(w, status, view)
}

// runContext tags the request's logger with the run in the URL.
func runContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithRun(r.Context(), chi.URLParam(r, "runID"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// parseIntParam parses a positive integer query parameter with a default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
