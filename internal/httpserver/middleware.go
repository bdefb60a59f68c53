// internal/httpserver/middleware.go
//
// Middleware shared by all routes:
//   - JSON content type and credentialed CORS.
//   - zerolog access log.
//   - Optional/required JWT auth and the anonymous player cookie.

package httpserver

import (
	"context"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/worldle/apps/go-server/internal/auth"
)

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// accessLog writes one zerolog line per request; 4xx log at warn, 5xx at error.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			lvl := zerolog.InfoLevel
			switch {
			case status >= 500:
				lvl = zerolog.ErrorLevel
			case status >= 400:
				lvl = zerolog.WarnLevel
			}
			log.WithLevel(lvl).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", chimw.GetReqID(r.Context())).
				Msg("http request")
		}()

		next.ServeHTTP(ww, r)
	})
}

// ---------------------------- auth middleware ------------------------------

// ctxUserKey is the context key type for storing auth.Claims.
type ctxUserKey struct{}

func currentUser(r *http.Request) *auth.Claims {
	c, _ := r.Context().Value(ctxUserKey{}).(*auth.Claims)
	return c
}

// withOptionalAuth decorates requests with user context if a valid JWT is present.
// It never 401s; used for routes where guests are allowed.
func (s *Server) withOptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok := s.auth.TokenFrom(r); tok != "" {
			if c, err := s.auth.Parse(tok); err == nil {
				if _, err := s.auth.FindByID(r.Context(), c.ID); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), ctxUserKey{}, &c))
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth enforces a valid JWT for an existing user.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := s.auth.TokenFrom(r)
		if tok == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		c, err := s.auth.Parse(tok)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		// Ensure user still exists
		if _, err := s.auth.FindByID(r.Context(), c.ID); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxUserKey{}, &c)))
	})
}

// ------------------------------ anonymous id -------------------------------

const anonCookieName = "worldle_anon"

// ensureAnonID returns an existing anon cookie or sets a new one.
// Guest games are tracked under it until the player signs up.
func (s *Server) ensureAnonID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := auth.GenID()
	sameSite := http.SameSiteLaxMode
	if s.cfg.Production() {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     anonCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Production(),
		SameSite: sameSite,
		Expires:  time.Now().Add(180 * 24 * time.Hour),
	})
	// Later handlers in this request see the same id.
	r.AddCookie(&http.Cookie{Name: anonCookieName, Value: id})
	return id
}

// owner identifies who a game belongs to: a user or an anonymous player.
type owner struct {
	UserID string
	AnonID string
}

func (o owner) playerID() string {
	if o.UserID != "" {
		return o.UserID
	}
	return o.AnonID
}

func (s *Server) ownerOf(w http.ResponseWriter, r *http.Request) owner {
	if me := currentUser(r); me != nil {
		return owner{UserID: me.ID}
	}
	return owner{AnonID: s.ensureAnonID(w, r)}
}
