package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"mdvault/internal/fs"
	"mdvault/internal/mdv"
)

// maxJSONBody bounds request bodies that carry file content.
const maxJSONBody = 32 << 20

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("writing response failed", "error", err)
	}
}

// writeError maps err onto an HTTP status and writes it as {"detail": ...}.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
	}
	s.writeJSON(w, status, errorResponse{Detail: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, mdv.ErrPathTraversal), errors.Is(err, fs.ErrReservedPath):
		return http.StatusForbidden
	case errors.Is(err, mdv.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, mdv.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, mdv.ErrRecordLocked):
		return http.StatusLocked
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty request body", mdv.ErrInvalidArgument)
		}
		return fmt.Errorf("%w: malformed request body: %v", mdv.ErrInvalidArgument, err)
	}
	return nil
}

// requestLogger logs one line per request once it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
