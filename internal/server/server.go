// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/jeranaias/bookbot/internal/config"
	"github.com/jeranaias/bookbot/internal/model"
	"github.com/jeranaias/bookbot/internal/resolver"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// MaxRequestBodySize is the maximum size for a request body (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// MaxHistoryTurns is the maximum number of history turns per request. The
	// validate tag on ChatRequest.History carries the same number.
	MaxHistoryTurns = model.MaxHistoryTurns

	// MaxContentLength is the maximum length, in characters, of the message
	// and of each history turn.
	MaxContentLength = 100000
)

// Error texts returned in {"error": ...}.
const (
	msgKeyMissing      = "Gemini API key not configured"
	msgMessageRequired = "Message is required"
	msgInvalidBody     = "Invalid request body"
	msgGenerateFailed  = "Failed to generate response: "
)

// ============================================================================
// SERVER
// ============================================================================

// Server is the bookbot proxy.
type Server struct {
	addr    string
	version string
	verbose bool

	router   *http.ServeMux
	server   *http.Server
	resolver *resolver.Resolver
	validate *validator.Validate
	cors     *CORSConfig
	limiter  *RateLimiter

	// configured is fixed at startup; the key is never swapped at runtime.
	configured bool

	mu sync.RWMutex
}

// New creates a server from cfg. res performs the upstream work.
func New(cfg *config.Config, res *resolver.Resolver) *Server {
	perSecond := rate.Limit(float64(cfg.Server.RateLimitPerMinute) / 60.0)

	cors := DefaultCORSConfig()
	if len(cfg.Server.AllowedOrigins) > 0 {
		cors.AllowedOrigins = append([]string(nil), cfg.Server.AllowedOrigins...)
	}

	s := &Server{
		addr:       cfg.Server.Addr,
		version:    "dev",
		router:     http.NewServeMux(),
		resolver:   res,
		validate:   newValidator(),
		cors:       cors,
		limiter:    NewRateLimiter(perSecond, cfg.Server.RateLimitBurst),
		configured: cfg.HasAPIKey(),
	}
	s.setupRoutes()
	return s
}

// WithVersion sets the version reported by /health.
func (s *Server) WithVersion(v string) *Server {
	s.version = v
	return s
}

// WithVerbose enables debug logging.
func (s *Server) WithVerbose(v bool) *Server {
	s.verbose = v
	return s
}

// WithAddr overrides the listen address.
func (s *Server) WithAddr(addr string) *Server {
	if addr != "" {
		s.addr = addr
	}
	return s
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Resolver returns the resolver serving requests.
func (s *Server) Resolver() *resolver.Resolver {
	return s.resolver
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST /api/chat", s.handleChat)
	s.router.HandleFunc("GET /api/models", s.handleModels)
	s.router.HandleFunc("GET /health", s.handleHealth)
}

// Handler returns the routes wrapped in the full middleware chain.
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		RequestIDMiddleware(),
		LoggingMiddleware(log.Default()),
		CORSMiddleware(s.cors),
		RateLimitMiddleware(s.limiter),
		BodyLimitMiddleware(MaxRequestBodySize),
	)(s.router)
}

// ============================================================================
// LIFECYCLE
// ============================================================================

// Start listens on the configured address. It blocks until the server stops
// and returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      180 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	if !s.configured {
		log.Printf("SERVER_WARNING | GEMINI_API_KEY not set; /api/chat will return 500")
	}
	log.Printf("SERVER_START | addr=%s version=%s", s.addr, s.version)
	return srv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()

	if srv == nil {
		return nil
	}
	log.Printf("SERVER_SHUTDOWN | starting graceful shutdown")
	err := srv.Shutdown(ctx)
	s.limiter.Stop()
	return err
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("RESPONSE_ENCODE_FAILED | error=%v", err)
	}
}

// writeError writes {"error": message}.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}
