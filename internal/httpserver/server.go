// internal/httpserver/server.go
//
// HTTP server wiring for the Worldle backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, access log, metrics).
//   - Public endpoints: "/", "/health", "/metrics", "/countries".
//   - Game endpoints (optional auth): POST /game/new, POST /game/guess, GET /game/{id}.
//   - Daily Challenge endpoints (optional auth): mounted under /daily.
//   - Auth + profile/stat endpoints: /auth/*, /stats/me, /games/mine.
//
// Notes:
//   - Games in progress live in the in-memory store; SQLite keeps the
//     per-game history rows, daily results and user stats.
//   - Optional auth decorates requests with user context when a valid token
//     is present; guests are tracked by an anonymous cookie.

package httpserver

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/worldle/apps/go-server/internal/auth"
	"github.com/robalobadob/worldle/apps/go-server/internal/config"
	"github.com/robalobadob/worldle/apps/go-server/internal/countries"
	"github.com/robalobadob/worldle/apps/go-server/internal/metrics"
	"github.com/robalobadob/worldle/apps/go-server/internal/store"
)

// Server bundles router, in-memory game store, DB handle and auth.
type Server struct {
	r     *chi.Mux
	cfg   *config.Config
	store store.Store
	db    *sql.DB
	auth  *auth.Service
	daily *dailyServer
	http  *http.Server
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg *config.Config, st store.Store, db *sql.DB) *Server {
	s := &Server{
		r:     chi.NewRouter(),
		cfg:   cfg,
		store: st,
		db:    db,
		auth: auth.NewService(db, auth.Options{
			Secret:     cfg.JWTSecret,
			TokenTTL:   cfg.TokenTTL(),
			CookieName: cfg.CookieName,
			Secure:     cfg.Production(),
		}),
	}
	s.http = &http.Server{
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(accessLog)                       // zerolog line per request
	s.r.Use(metrics.Middleware)              // request count/latency by route
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(cors(cfg.ClientOrigin))          // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service": "worldle-go",
			"endpoints": []string{
				"/health", "/metrics", "/countries",
				"POST /game/new", "POST /game/guess", "GET /game/{id}",
				"/daily/*", "/auth/*",
			},
		})
	})
	s.r.Get("/health", s.handleHealth)
	s.r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Autocomplete feed for the guess input.
	s.r.Get("/countries", s.handleCountries)

	// Game endpoints, optional auth (guests can play)
	s.r.Group(func(r chi.Router) {
		r.Use(s.withOptionalAuth)
		r.Post("/game/new", s.handleNewGame)
		r.Post("/game/guess", s.handleGuess)
		r.Get("/game/{id}", s.handleGetGame)
	})

	// Daily Challenge, optional auth (guests play once per day)
	s.mountDaily(s.r.With(s.withOptionalAuth))

	// Auth + profile/stats
	s.mountAuthRoutes()

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// Run serves HTTP on addr until Shutdown is called.
func (s *Server) Run(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Info().Str("addr", ln.Addr().String()).Msg("listening")
	if err := s.http.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}

// Sweep evicts games idle since cutoff and forgets stale daily sessions.
func (s *Server) Sweep(ctx context.Context, cutoff time.Time) {
	n := s.store.Sweep(ctx, cutoff)
	d := s.daily.sweep(ctx, time.Now())
	if n > 0 || d > 0 {
		metrics.SessionsSwept.Add(float64(n))
		log.Debug().Int("games", n).Int("dailySessions", d).Msg("swept idle sessions")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		log.Error().Err(err).Msg("health: db ping")
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "db": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "countries": countries.Stats()})
}
