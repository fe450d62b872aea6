// Package server exposes the anonymization pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/veilhq/veil/internal/audit"
	"github.com/veilhq/veil/internal/config"
	"github.com/veilhq/veil/internal/detect"
	"github.com/veilhq/veil/internal/events"
	"github.com/veilhq/veil/internal/logger"
	"github.com/veilhq/veil/internal/workflow"
)

// Server is the HTTP front end over a workflow engine.
type Server struct {
	config   *config.Config
	logger   *logger.Logger
	engine   *workflow.Engine
	detector *detect.Detector
	store    *audit.Store
	hub      *events.Hub
	router   *mux.Router
	server   *http.Server
	limiter  *ipRateLimiter
}

// New wires routes and middleware around an engine. The audit store
// may be nil when auditing is disabled.
func New(cfg *config.Config, engine *workflow.Engine, detector *detect.Detector, store *audit.Store, hub *events.Hub, log *logger.Logger) *Server {
	s := &Server{
		config:   cfg,
		logger:   log.WithComponent("server"),
		engine:   engine,
		detector: detector,
		store:    store,
		hub:      hub,
		router:   mux.NewRouter(),
		limiter:  newIPRateLimiter(cfg.Server.RequestsPerMin),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")
	s.router.HandleFunc("/stats", s.handleStats).Methods("GET")
	s.router.HandleFunc("/ws", s.hub.HandleWebSocket).Methods("GET")

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/anonymize", s.handleAnonymize).Methods("POST")
	api.HandleFunc("/rules", s.handleUpsertRule).Methods("PUT")
	api.HandleFunc("/sessions/{id}/logs", s.handleSessionLogs).Methods("GET")
}

// Start runs the event hub and blocks serving HTTP.
func (s *Server) Start() error {
	s.logger.Info("Starting veil server",
		zap.Int("port", s.config.Server.Port),
		zap.Strings("detectors", s.detector.EnabledRules()),
		zap.Int("requests_per_min", s.config.Server.RequestsPerMin),
	)

	go s.hub.Run()

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping veil server")
	return s.server.Shutdown(ctx)
}
