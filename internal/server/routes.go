package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Handler returns the router with all middleware and routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/tree", s.handleTree)
		r.Get("/file", s.handleReadFile)
		r.Delete("/file", s.handleDeleteFile)
		r.Post("/save", s.handleSave)
		r.Post("/rename", s.handleRename)
		r.Get("/search", s.handleSearch)
		r.Post("/upload", s.handleUpload)
		r.Post("/upload-image", s.handleUploadImage)
		r.Get("/images/*", s.handleImage)
		r.Post("/export", s.handleExport)

		r.Route("/versions", func(r chi.Router) {
			r.Post("/", s.handleCreateVersion)
			r.Get("/", s.handleListVersions)
			r.Get("/files", s.handleVersionedFiles)
			r.Get("/compare", s.handleCompareVersions)
			r.Post("/cleanup", s.handleCleanupVersions)
			r.Get("/{id}", s.handleGetVersion)
			r.Delete("/{id}", s.handleDeleteVersion)
			r.Post("/{id}/restore", s.handleRestoreVersion)
		})
	})

	return r
}
