// Package api exposes the analyzer over HTTP. All request and response
// bodies are JSON. User identity travels in a request-scoped context
// object, never in package globals.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"socanalyzer/app"
	"socanalyzer/core"
	"socanalyzer/internal/logger"
)

// Server is the dashboard API server.
type Server struct {
	httpServer *http.Server
	analyzer   *app.Analyzer
	cfg        app.ServerConfig

	// Semaphore limiting concurrent requests.
	requestSemaphore chan struct{}
}

// NewServer creates the API server around an analyzer.
func NewServer(analyzer *app.Analyzer, cfg app.ServerConfig) *Server {
	return &Server{
		analyzer:         analyzer,
		cfg:              cfg,
		requestSemaphore: make(chan struct{}, cfg.MaxConcurrent),
	}
}

// Start begins serving. It returns once the listener is running; serve
// errors other than graceful shutdown are fatal.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:           s.cfg.ListenAddr,
		Handler:        s.router(),
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   180 * time.Second, // oracle-backed requests block up to the oracle timeout
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Info("starting analyzer API server on http://%s", s.cfg.ListenAddr)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("HTTP server error: %v", err)
		}
	}()

	return nil
}

// Stop shuts the server down gracefully within the given timeout.
func (s *Server) Stop(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("shutting down server with %v timeout", timeout)
	return s.httpServer.Shutdown(ctx)
}

// router builds the route table with the standard middleware chain.
func (s *Server) router() http.Handler {
	router := http.NewServeMux()

	router.HandleFunc("/api/analyze", s.wrap(s.handleAnalyze))
	router.HandleFunc("/api/analyze_ia", s.wrap(s.handleAnalyzeOracle))
	router.HandleFunc("/api/save_pattern", s.wrap(s.handleSavePattern))
	router.HandleFunc("/api/patterns_history", s.wrap(s.handlePatternsHistory))
	router.HandleFunc("/api/delete_pattern", s.wrap(s.handleDeletePattern))
	router.HandleFunc("/api/update_pattern", s.wrap(s.handleUpdatePattern))
	router.HandleFunc("/api/clear_history", s.wrap(s.handleClearHistory))
	router.HandleFunc("/api/logs", s.wrap(s.handleLogs))
	router.HandleFunc("/api/profile", s.wrap(s.handleProfile))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	})

	return router
}

// Handler returns the route table without starting a listener. Used by
// tests.
func (s *Server) Handler() http.Handler {
	return s.router()
}

// RequestContext carries per-request identity, replacing the ambient
// session state of earlier revisions of this tool.
type RequestContext struct {
	RequestID string
	User      *core.User
	ClientIP  string
	UserAgent string
}

type contextKey struct{}

// reqCtx retrieves the RequestContext installed by the middleware.
func reqCtx(r *http.Request) *RequestContext {
	if rc, ok := r.Context().Value(contextKey{}).(*RequestContext); ok {
		return rc
	}
	return &RequestContext{}
}

// wrap applies the standard middleware chain: concurrency limit, body
// limit, request identity, access log.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Concurrency semaphore: shed load instead of queueing
		select {
		case s.requestSemaphore <- struct{}{}:
			defer func() { <-s.requestSemaphore }()
		default:
			w.Header().Set("Retry-After", "5")
			http.Error(w, "Too many requests, please try again later", http.StatusTooManyRequests)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

		rc := &RequestContext{
			RequestID: uuid.NewString(),
			ClientIP:  clientIP(r),
			UserAgent: r.UserAgent(),
		}

		// Identity is resolved from the X-Username header when present.
		// Full authentication (sessions, password checks) is handled by
		// the fronting layer and out of scope here.
		if username := r.Header.Get("X-Username"); username != "" {
			if user, err := s.analyzer.Store.GetUserByUsername(r.Context(), username); err == nil {
				rc.User = &user
			}
		}

		start := time.Now()
		next(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, rc)))

		root := logger.Root()
		root.Info().
			Str("request_id", rc.RequestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("client_ip", rc.ClientIP).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	}
}

// clientIP extracts the caller address, honoring X-Forwarded-For from a
// fronting proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.Index(fwd, ","); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeJSON encodes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response: %v", err)
	}
}

// writeError encodes the uniform JSON error shape.
func writeError(w http.ResponseWriter, status int, format string, v ...interface{}) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, v...)})
}

// requireMethod enforces the HTTP method, answering 405 otherwise.
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}
