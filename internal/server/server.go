// Package server exposes the rewrite service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/phoenixlab/rewriter/internal/app"
	"github.com/phoenixlab/rewriter/internal/logger"
	"github.com/phoenixlab/rewriter/internal/metrics"
	"github.com/phoenixlab/rewriter/internal/store"
)

// Articles is the slice of the application layer the handlers need.
type Articles interface {
	ProcessArticle(ctx context.Context, req app.ProcessRequest) (*app.ProcessResult, error)
	Publish(ctx context.Context, req app.PublishRequest) (*app.PublishResult, error)
	Channels() []string
	LimiterStats() map[string]interface{}
}

// Server routes HTTP requests into the service.
type Server struct {
	svc        Articles
	tokens     *store.TokenStore
	history    *store.History
	uploadsDir string
}

func New(svc Articles, tokens *store.TokenStore, history *store.History, uploadsDir string) *Server {
	return &Server{
		svc:        svc,
		tokens:     tokens,
		history:    history,
		uploadsDir: uploadsDir,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/rewrite-article", s.handleRewriteArticle)
	mux.HandleFunc("POST /api/send-article", s.handleSendArticle)
	mux.HandleFunc("GET /api/channels", s.handleChannels)
	mux.HandleFunc("GET /api/health", s.handleHealthOK)

	mux.HandleFunc("POST /api/auth/generate-token", s.handleGenerateToken)
	mux.HandleFunc("POST /api/auth/verify-token", s.handleVerifyToken)
	mux.HandleFunc("POST /api/auth/authorize", s.handleAuthorize)

	mux.HandleFunc("GET /api/users/{username}/urls", s.handleUserURLs)
	mux.HandleFunc("GET /api/urls/{id}/results", s.handleURLResults)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.uploadsDir))))

	return cors(mux)
}

// ListenAndServe runs the server until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// cors allows browser frontends on other origins to call the API.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   fmt.Sprintf(format, args...),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: %v", err)
		return false
	}
	return true
}

func (s *Server) handleHealthOK(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	code := http.StatusOK
	if healthy, ok := stats["is_healthy"].(bool); ok && !healthy {
		status = "error"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()
	stats["rate_limits"] = s.svc.LimiterStats()
	writeJSON(w, http.StatusOK, stats)
}
