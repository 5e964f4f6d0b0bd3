package expense

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// DefaultMaxUploadBytes caps request bodies when no limit is configured
const DefaultMaxUploadBytes int64 = 20 << 20

// Server handles HTTP requests for scans
type Server struct {
	service        *Service
	mux            *http.ServeMux
	maxUploadBytes int64
	httpServer     *http.Server
}

// NewServer creates a new Server with default mux
func NewServer(service *Service, maxUploadBytes int64) *Server {
	return NewServerWithMux(service, maxUploadBytes, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, maxUploadBytes int64, mux *http.ServeMux) *Server {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	s := &Server{
		service:        service,
		mux:            mux,
		maxUploadBytes: maxUploadBytes,
	}
	s.registerRoutes()
	return s
}

// corsMiddleware adds CORS headers to every response and answers preflight
// requests directly
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// registerRoutes registers all API routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/ocr", s.handleOCR)
	s.mux.HandleFunc("GET /health", s.handleHealth)

	if s.service.HistoryEnabled() {
		s.mux.HandleFunc("GET /api/scans/{id}/file", s.handleGetScanFile)
		s.mux.HandleFunc("GET /api/scans/{id}", s.handleGetScan)
		s.mux.HandleFunc("GET /api/scans", s.handleListScans)
	}
}

// Start serves HTTP on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("Starting server", "address", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight scans
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.corsMiddleware(s.mux).ServeHTTP(w, r)
}
