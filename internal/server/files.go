package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mdvault/internal/mdv"
)

// multipartOverhead is the allowance for form fields and part headers on
// top of the file size limit.
const multipartOverhead = 1 << 20

type saveRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type renameRequest struct {
	Path    string `json:"path"`
	NewName string `json:"new_name"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "mdvault API is running"})
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.files.Tree(r.URL.Query().Get("path"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"data": tree})
}

func (s *Server) handleReadFile(w http.ResponseWriter, r *http.Request) {
	path, err := requiredQuery(r, "path")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	content, err := s.files.ReadFile(path)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"content": content})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.files.SaveFile(r.Context(), req.Path, req.Content); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	path, err := requiredQuery(r, "path")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rel, err := s.files.Delete(path)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "path": rel})
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.files.Rename(req.Path, req.NewName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"old_path": res.OldPath,
		"new_path": res.NewPath,
		"new_name": res.NewName,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q, err := requiredQuery(r, "q")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	results, err := s.files.Search(r.URL.Query().Get("path"), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Debug("search", "query", q, "results", len(results))
	s.writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	name, content, err := readUpload(w, r, s.server.MaxUploadSize)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.files.Upload(name, content, r.FormValue("path"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "file": res})
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	name, content, err := readUpload(w, r, s.server.MaxImageSize)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.files.UploadImage(name, content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "image": res})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	p, err := s.files.ImagePath(chi.URLParam(r, "*"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.ServeFile(w, r, p)
}

// readUpload returns the name and content of the "file" part of a
// multipart form. Files over limit are rejected without reading them fully.
func readUpload(w http.ResponseWriter, r *http.Request, limit int64) (string, []byte, error) {
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return "", nil, fmt.Errorf("%w: invalid multipart form: %v", mdv.ErrInvalidArgument, err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("%w: missing file: %v", mdv.ErrInvalidArgument, err)
	}
	defer file.Close()

	content, err := readPart(file, limit)
	if err != nil {
		return "", nil, err
	}
	return header.Filename, content, nil
}

func readPart(file multipart.File, limit int64) ([]byte, error) {
	var r io.Reader = file
	if limit > 0 {
		r = io.LimitReader(file, limit+1)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if limit > 0 && int64(len(content)) > limit {
		return nil, fmt.Errorf("%w: upload exceeds %d bytes", mdv.ErrInvalidArgument, limit)
	}
	return content, nil
}

func requiredQuery(r *http.Request, key string) (string, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return "", fmt.Errorf("%w: query parameter %q is required", mdv.ErrInvalidArgument, key)
	}
	return v, nil
}
