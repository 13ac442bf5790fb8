// Package api exposes enrichment and image checks over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/geo-enrich/internal/fallback"
	"github.com/sells-group/geo-enrich/internal/resolution"
	"github.com/sells-group/geo-enrich/pkg/geocode"
)

// ProviderFactory builds a ready-to-use provider for a request. An empty
// name or key means the configured default.
type ProviderFactory func(name, apiKey string) (geocode.Provider, error)

// Config tunes the server.
type Config struct {
	MaxRecords            int
	Workers               int
	AdoptReverseUnchecked bool
	AllowedOrigins        []string
}

// Server holds the shared, read-only state behind the handlers.
type Server struct {
	cfg       Config
	providers ProviderFactory
	table     *fallback.Table
	checker   *resolution.Checker
}

// New creates a Server.
func New(cfg Config, providers ProviderFactory, table *fallback.Table, checker *resolution.Checker) *Server {
	if table == nil {
		table = fallback.Default()
	}
	if checker == nil {
		checker = resolution.New(resolution.Config{}, nil)
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	return &Server{cfg: cfg, providers: providers, table: table, checker: checker}
}

// Router returns the HTTP handler for all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/providers", s.handleProviders)
		r.Post("/enrich", s.handleEnrich)
		r.Post("/resolution", s.handleResolution)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
