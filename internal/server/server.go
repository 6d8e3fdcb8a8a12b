// Package server exposes rankings, outlooks and recommendations over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/ChicagoDave/sunnysips/internal/app"
	"github.com/ChicagoDave/sunnysips/internal/config"
	"github.com/ChicagoDave/sunnysips/internal/metrics"
	"github.com/ChicagoDave/sunnysips/pkg/city"
	"github.com/ChicagoDave/sunnysips/pkg/weather"
)

// Weather is the cloud cover source used by the handlers.
type Weather interface {
	Series(ctx context.Context, start, end time.Time) (weather.SeriesResult, error)
	CloudAt(ctx context.Context, t time.Time) float64
}

// Options configures a Server. Zero values disable the optional parts.
type Options struct {
	Weather     Weather
	Cache       weather.Store
	Fresh       time.Duration
	Stale       time.Duration
	Metrics     *metrics.Metrics
	AdminToken  string
	CORSOrigins []string
	Now         func() time.Time
}

// Server serves one city's dataset.
type Server struct {
	app         *app.Context
	city        *city.City
	weather     Weather
	cache       *responses
	metrics     *metrics.Metrics
	adminToken  string
	corsOrigins []string
	now         func() time.Time
	router      *mux.Router
}

// New creates a server over a loaded application context.
func New(a *app.Context, opts Options) *Server {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	fresh, stale := opts.Fresh, opts.Stale
	if fresh <= 0 {
		fresh = weather.DefaultFresh
	}
	if stale < fresh {
		stale = max(fresh, weather.DefaultStale)
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s := &Server{
		app:         a,
		city:        a.City,
		weather:     opts.Weather,
		cache:       &responses{store: opts.Cache, fresh: fresh, stale: stale, now: now},
		metrics:     opts.Metrics,
		adminToken:  opts.AdminToken,
		corsOrigins: origins,
		now:         now,
		router:      mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.handle("/health", s.handleHealth, http.MethodGet)
	s.handle("/api/sunny", s.handleSunny, http.MethodGet)
	s.handle("/api/cafes", s.handleCafes, http.MethodGet)
	s.handle("/api/cities", s.handleCities, http.MethodGet)
	s.handle("/api/cafe/{id}/sun-outlook", s.handleOutlook, http.MethodGet)
	s.handle("/api/recommendations/favorites", s.handleFavorites, http.MethodPost)
	s.handle("/api/shadows", s.handleShadows, http.MethodGet)
	s.handle("/api/admin/reload", s.handleReload, http.MethodPost)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

func (s *Server) handle(path string, h http.HandlerFunc, methods ...string) {
	s.router.Handle(path, s.metrics.WrapHandler(path, h)).Methods(methods...)
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return Chain(s.router,
		RequestID,
		Logging,
		handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{}), handlers.PrintRecoveryStack(true)),
		handlers.CORS(
			handlers.AllowedOrigins(s.corsOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Content-Type", "Authorization", RequestIDHeader}),
		),
		handlers.CompressHandler,
	)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, cfg config.HTTPConfig) error {
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("sunnysips server starting", "addr", srv.Addr, "city", s.city.ID)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("sunnysips server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// recoveryLogger routes panics caught by handlers.RecoveryHandler to slog.
type recoveryLogger struct{}

func (recoveryLogger) Println(v ...any) {
	slog.Error("panic recovered", "detail", fmt.Sprint(v...))
}
