package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/totalrecall/internal/chunker"
	"github.com/MikeSquared-Agency/totalrecall/internal/driver"
)

// Defaults apply when a request omits strategy or max_tokens.
type Defaults struct {
	Strategy  chunker.Strategy
	MaxTokens int
}

type Server struct {
	router   *chi.Mux
	http     *http.Server
	driver   *driver.Driver
	defaults Defaults
	logger   *slog.Logger
}

func NewServer(port int, apiToken string, d *driver.Driver, defaults Defaults, logger *slog.Logger) *Server {
	if defaults.MaxTokens <= 0 {
		defaults.MaxTokens = chunker.DefaultMaxTokens
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		driver:   d,
		defaults: defaults,
		logger:   logger,
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/totalrecall/status", s.status)

	router.With(BearerAuthMiddleware(apiToken)).Post("/api/v1/chunks", s.chunk)

	return s
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(chunker.Strategies()))
	for _, st := range chunker.Strategies() {
		names = append(names, st.String())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"agent":              "totalrecall",
		"status":             "ok",
		"strategies":         names,
		"default_strategy":   s.defaults.Strategy.String(),
		"default_max_tokens": s.defaults.MaxTokens,
		"overflow_policy":    s.driver.Overflow().String(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
