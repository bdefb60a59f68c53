// internal/httpserver/routes_auth.go
//
// Account routes:
//   - POST /auth/signup, /auth/login, /auth/logout
//   - GET  /auth/me, /stats/me, /games/mine (auth required)
//
// Signup and login move the caller's guest games onto the account.

package httpserver

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/worldle/apps/go-server/internal/auth"
)

// Request payload for signup/login.
type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// mountAuthRoutes registers authentication + gated routes (/auth/*, /stats/me, /games/mine).
func (s *Server) mountAuthRoutes() {
	s.r.Post("/auth/signup", s.handleSignup)
	s.r.Post("/auth/login", s.handleLogin)
	s.r.Post("/auth/logout", s.handleLogout)

	s.r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/auth/me", s.handleMe)
		r.Get("/stats/me", s.handleStats)
		r.Get("/games/mine", s.handleMyGames)
	})
}

// handleSignup creates a user, signs a JWT, sets the auth cookie and claims anon history.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentialsReq
	if err := readJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	u, err := s.auth.CreateUser(r.Context(), body.Username, body.Password)
	var ve *auth.ValidationError
	switch {
	case errors.Is(err, auth.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "username_taken")
		return
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Msg)
		return
	case err != nil:
		log.Error().Err(err).Msg("signup")
		writeError(w, http.StatusInternalServerError, "signup_failed")
		return
	}
	if !s.issueToken(w, r, u) {
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": u.ID, "username": u.Username, "createdAt": u.CreatedAt})
}

// handleLogin authenticates, sets the cookie and claims anon history.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentialsReq
	if err := readJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	u, err := s.auth.Authenticate(r.Context(), body.Username, body.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("login")
		writeError(w, http.StatusInternalServerError, "login_failed")
		return
	}
	if !s.issueToken(w, r, u) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": u.ID, "username": u.Username})
}

// issueToken signs and sets the auth cookie, then moves guest games to u.
func (s *Server) issueToken(w http.ResponseWriter, r *http.Request, u *auth.User) bool {
	tok, exp, err := s.auth.Sign(u)
	if err != nil {
		log.Error().Err(err).Msg("sign token")
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return false
	}
	s.auth.SetCookie(w, tok, exp)
	if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
		if n, err := s.auth.ClaimAnonGames(r.Context(), c.Value, u.ID); err != nil {
			log.Warn().Err(err).Msg("claim anon games")
		} else if n > 0 {
			log.Info().Str("user", u.ID).Int64("games", n).Msg("claimed anonymous games")
		}
	}
	return true
}

// handleLogout clears the auth cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	u, err := s.auth.FindByID(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          u.ID,
		"gamesPlayed": u.GamesPlayed,
		"wins":        u.Wins,
		"streak":      u.Streak,
		"maxStreak":   u.MaxStreak,
	})
}

type gameRow struct {
	ID         string `json:"id"`
	Mode       string `json:"mode"`
	Status     string `json:"status"`
	Guesses    int    `json:"guesses"`
	Answer     string `json:"answer,omitempty"` // only for finished games
	StartedAt  string `json:"startedAt"`
	FinishedAt string `json:"finishedAt,omitempty"`
}

// handleMyGames lists the caller's 50 most recent games.
func (s *Server) handleMyGames(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.QueryContext(r.Context(),
		`SELECT id, mode, status, guesses, answer, started_at, COALESCE(finished_at,'')
		 FROM games WHERE user_id=? ORDER BY started_at DESC LIMIT 50`, currentUser(r).ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	defer rows.Close()

	out := []gameRow{}
	for rows.Next() {
		var gr gameRow
		if err := rows.Scan(&gr.ID, &gr.Mode, &gr.Status, &gr.Guesses, &gr.Answer, &gr.StartedAt, &gr.FinishedAt); err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		if gr.FinishedAt == "" {
			gr.Answer = ""
		}
		out = append(out, gr)
	}
	if err := rows.Err(); err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, out)
}
