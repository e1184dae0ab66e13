package server

import (
	"mime"
	"net/http"
	"strconv"

	"mdvault/internal/export"
)

type exportRequest struct {
	Content string         `json:"content"`
	Title   string         `json:"title"`
	Format  string         `json:"format"`
	Options export.Options `json:"options"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	doc, err := s.exporter.Export(req.Content, req.Title, req.Format, req.Options)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Data); err != nil {
		s.logger.Warn("writing export failed", "error", err)
	}
}
