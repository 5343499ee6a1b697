// Package httpapi exposes the sheet service over HTTP with JSON bodies.
//
// Routes:
//
//	GET   /api/grid            dense grid of a sheet plus the sheet list
//	POST  /api/grid            write request
//	GET   /api/sheets          sheet list
//	POST  /api/sheets          create a sheet
//	PATCH /api/sheets/{id}     rename a sheet
//	GET   /data                paginated, filtered, sorted rows
//	POST  /data, PATCH /data   write request
//	POST  /import              upload CSV or XLSX and stage a preview
//	POST  /import/confirm      replace sheet contents with a preview
//	GET   /export.csv          download as CSV
//	GET   /export.xlsx         download as XLSX
//	GET   /metrics             Prometheus metrics
//	GET   /healthz             liveness
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mesh-intelligence/gridbook/internal/sheets"
	"github.com/mesh-intelligence/gridbook/internal/transfer"
)

// Config controls the server.
type Config struct {
	Addr           string
	MaxUploadBytes int64
	Limits         transfer.Limits
}

// DefaultMaxUploadBytes bounds multipart uploads.
const DefaultMaxUploadBytes = 32 << 20

// Server serves the HTTP API.
type Server struct {
	cfg      Config
	svc      *sheets.Service
	previews *transfer.PreviewStore
	logger   *slog.Logger
	mux      *http.ServeMux
	metrics  *metrics
}

// NewServer constructs a Server with its routes registered.
func NewServer(cfg Config, svc *sheets.Service, previews *transfer.PreviewStore, logger *slog.Logger) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		cfg:      cfg,
		svc:      svc,
		previews: previews,
		logger:   logger,
		mux:      http.NewServeMux(),
		metrics:  newMetrics(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.handle("GET /api/grid", s.handleGetGrid)
	s.handle("POST /api/grid", s.handleWrite)
	s.handle("GET /api/sheets", s.handleListSheets)
	s.handle("POST /api/sheets", s.handleCreateSheet)
	s.handle("PATCH /api/sheets/{id}", s.handleRenameSheet)
	s.handle("GET /data", s.handleQuery)
	s.handle("POST /data", s.handleWrite)
	s.handle("PATCH /data", s.handleWrite)
	s.handle("POST /import", s.handleImport)
	s.handle("POST /import/confirm", s.handleConfirmImport)
	s.handle("GET /export.csv", s.handleExportCSV)
	s.handle("GET /export.xlsx", s.handleExportXLSX)
	s.mux.Handle("GET /metrics", s.metrics.handler())
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, s.instrument(pattern, h))
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
