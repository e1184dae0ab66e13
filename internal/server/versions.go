package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"mdvault/internal/mdv"
)

// NoteManualSave is the note used when a client creates a version without one.
const NoteManualSave = "manual save"

type createVersionRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Note    string `json:"note"`
}

type cleanupRequest struct {
	Path      string `json:"path"`
	KeepCount *int   `json:"keep_count"`
}

func (s *Server) handleCreateVersion(w http.ResponseWriter, r *http.Request) {
	var req createVersionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Note == "" {
		req.Note = NoteManualSave
	}
	res, err := s.versions.CreateVersion(r.Context(), req.Path, req.Content, req.Note)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	path, err := requiredQuery(r, "path")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit := s.history.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: limit must be an integer", mdv.ErrInvalidArgument))
			return
		}
	}
	versions, err := s.versions.GetVersions(r.Context(), path, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"versions": versions})
}

func (s *Server) handleVersionedFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.versions.ListVersionedFiles(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	v, err := s.versions.GetVersion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleRestoreVersion(w http.ResponseWriter, r *http.Request) {
	res, err := s.versions.RestoreVersion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*mdv.RestoreResult
	}{true, res})
}

func (s *Server) handleDeleteVersion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.versions.DeleteVersion(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

func (s *Server) handleCompareVersions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	report, err := s.versions.CompareVersions(r.Context(), q.Get("v1"), q.Get("v2"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCleanupVersions(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	keep := s.history.KeepCount
	if req.KeepCount != nil {
		keep = *req.KeepCount
	}
	res, err := s.versions.CleanupOldVersions(r.Context(), req.Path, keep)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}
