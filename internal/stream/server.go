package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/conduit-lang/cascade/internal/config"
)

// Server wires the hub and upgrader behind a chi router
type Server struct {
	Hub      *Hub
	Upgrader *Upgrader
	Auth     *TokenAuth

	address string
	router  chi.Router
	logger  *zap.Logger
}

// NewServer creates a new stream server. Viewer tokens are required when
// cfg.Secret is set.
func NewServer(ctx context.Context, cfg config.StreamConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	var auth *TokenAuth
	if cfg.Secret != "" {
		auth = NewTokenAuth(cfg.Secret, cfg.TokenTTL)
	}

	hub := NewHub(ctx, logger)
	RegisterDefaultHandlers(hub)

	s := &Server{
		Hub:      hub,
		Upgrader: NewUpgrader(DefaultConfig(), hub, auth),
		Auth:     auth,
		address:  cfg.Address,
		logger:   logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/events", s.Upgrader.Handler())
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"clients": s.Hub.ClientCount(),
		"dropped": s.Hub.Dropped(),
		"auth":    s.Auth != nil,
	})
}

// Handler returns the HTTP handler serving /events and /healthz
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the hub loop
func (s *Server) Start() {
	go s.Hub.Run()
}

// Shutdown stops the hub and disconnects every viewer
func (s *Server) Shutdown() {
	s.Hub.Shutdown()
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("stream server listening", zap.String("address", s.address))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Shutdown()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("stream server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down stream server: %w", err)
	}
	return nil
}
