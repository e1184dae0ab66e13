package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"mdvault/internal/config"
	"mdvault/internal/export"
	"mdvault/internal/fs"
	"mdvault/internal/mdv"
)

const shutdownTimeout = 10 * time.Second

// Versions is the version history used by the HTTP API.
// *mdv.SnapshotStore implements it.
type Versions interface {
	CreateVersion(ctx context.Context, filePath, content, note string) (*mdv.CreateResult, error)
	GetVersions(ctx context.Context, filePath string, limit int) ([]mdv.VersionSummary, error)
	GetVersion(ctx context.Context, id string) (*mdv.Version, error)
	RestoreVersion(ctx context.Context, id string) (*mdv.RestoreResult, error)
	DeleteVersion(ctx context.Context, id string) error
	CompareVersions(ctx context.Context, id1, id2 string) (*mdv.DiffReport, error)
	CleanupOldVersions(ctx context.Context, filePath string, keepCount int) (*mdv.CleanupResult, error)
	ListVersionedFiles(ctx context.Context) ([]*mdv.VersionedFile, error)
}

// Server is the JSON API in front of the file manager and version store.
type Server struct {
	files    *fs.Manager
	versions Versions
	exporter *export.Exporter
	logger   mdv.Logger
	server   config.ServerConfig
	history  config.VersionsConfig
}

// New creates a Server.
func New(cfg *config.Config, files *fs.Manager, versions Versions, logger mdv.Logger) *Server {
	return &Server{
		files:    files,
		versions: versions,
		exporter: export.NewExporter(mdv.RealClock{}),
		logger:   logger,
		server:   cfg.Server,
		history:  cfg.Versions,
	}
}

// Run serves HTTP on the configured port until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.server.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
