// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge" mode.
// Exposes three endpoints under /daily:
//   - POST /daily/new         → start today's game (creates or reuses the session)
//   - POST /daily/guess       → submit a guess for today's game
//   - GET  /daily/leaderboard → winners for today (or ?date=YYYY-MM-DD)
//
// Everybody gets the same answer on a given UTC date (HMAC of date + salt).
// Each player finishes it at most once per day; the result is persisted
// when the game ends, won or lost.

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/worldle/apps/go-server/internal/countries"
	"github.com/robalobadob/worldle/apps/go-server/internal/daily"
	"github.com/robalobadob/worldle/apps/go-server/internal/game"
	"github.com/robalobadob/worldle/apps/go-server/internal/metrics"
	"github.com/robalobadob/worldle/apps/go-server/internal/store"
)

var errNotYourGame = errors.New("daily: game does not belong to this player")

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv      *Server
	store    *daily.Store
	salt     string
	now      func() time.Time
	sessions map[string]dailySession // keyed by playerID|date
	mu       sync.Mutex              // guards sessions
}

// dailySession links a player's daily attempt to its game in the store.
type dailySession struct {
	GameID      string
	Date        string
	AnswerIndex int
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	s.daily = &dailyServer{
		srv:      s,
		store:    daily.NewStore(s.db),
		salt:     s.cfg.DailySalt,
		now:      time.Now,
		sessions: make(map[string]dailySession),
	}
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", s.daily.handleNew)
		r.Post("/guess", s.daily.handleGuess)
		r.Get("/leaderboard", s.daily.handleLeaderboard)
	})
}

// today returns today's date key, answer index and answer.
func (d *dailyServer) today() (date string, idx int, answer countries.Country, ok bool) {
	now := d.now().UTC()
	idx, answer, ok = daily.Answer(now, d.salt, countries.All())
	return daily.DateKey(now), idx, answer, ok
}

func sessionKey(playerID, date string) string { return playerID + "|" + date }

// sessionFor finds pid's session for gameID. The game may have started on
// an earlier date than today (a game begun just before midnight UTC).
func (d *dailyServer) sessionFor(pid, gameID string) (dailySession, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, sess := range d.sessions {
		if sess.GameID == gameID && k == sessionKey(pid, sess.Date) {
			return sess, true
		}
	}
	return dailySession{}, false
}

// sweep forgets sessions from previous days whose game has left the store.
func (d *dailyServer) sweep(ctx context.Context, now time.Time) int {
	today := daily.DateKey(now)
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for k, sess := range d.sessions {
		if sess.Date == today {
			continue
		}
		if _, err := d.srv.store.Get(ctx, sess.GameID); err == nil {
			continue
		}
		delete(d.sessions, k)
		n++
	}
	return n
}

// -----------------------------------------------------------------------------
// /daily/new

type dailyNewRes struct {
	GameID     string `json:"gameId,omitempty"`
	Date       string `json:"date"`
	Played     bool   `json:"played"`
	MaxGuesses int    `json:"maxGuesses"`
	Shape      string `json:"shape,omitempty"`
}

// handleNew creates or reuses the player's daily game for today.
//   - Already finished today (DB row) → played=true, no game.
//   - Otherwise reuse the live session or start a fresh one.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	o := d.srv.ownerOf(w, r)
	pid := o.playerID()
	date, idx, answer, ok := d.today()
	if !ok {
		writeError(w, http.StatusInternalServerError, "no_countries")
		return
	}

	played, err := d.store.AlreadyPlayed(r.Context(), pid, date)
	if err != nil {
		log.Error().Err(err).Msg("daily: already played")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if played {
		writeJSON(w, http.StatusOK, dailyNewRes{Date: date, Played: true, MaxGuesses: game.MaxGuesses})
		return
	}

	key := sessionKey(pid, date)
	d.mu.Lock()
	defer d.mu.Unlock()
	if sess, ok := d.sessions[key]; ok {
		if _, err := d.srv.store.Get(r.Context(), sess.GameID); err == nil {
			writeJSON(w, http.StatusOK, dailyNewRes{
				GameID: sess.GameID, Date: date, MaxGuesses: game.MaxGuesses, Shape: d.srv.shapeURL(answer.Code),
			})
			return
		}
	}

	g := game.NewWithAnswer(answer, game.ModeDaily)
	if err := d.srv.store.Save(r.Context(), g); err != nil {
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	d.sessions[key] = dailySession{GameID: g.ID, Date: date, AnswerIndex: idx}
	d.srv.recordStart(r.Context(), g, o)
	metrics.GamesStarted.WithLabelValues(string(game.ModeDaily)).Inc()

	writeJSON(w, http.StatusOK, dailyNewRes{
		GameID: g.ID, Date: date, MaxGuesses: game.MaxGuesses, Shape: d.srv.shapeURL(answer.Code),
	})
}

// -----------------------------------------------------------------------------
// /daily/guess

// handleGuess applies a guess to the caller's daily game and persists the
// result once the game ends.
func (d *dailyServer) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	o := d.srv.ownerOf(w, r)
	pid := o.playerID()

	sess, ok := d.sessionFor(pid, req.GameID)
	if !ok {
		writeError(w, http.StatusConflict, "no_session")
		return
	}

	res, g, err := d.srv.applyGuess(r.Context(), req.GameID, req.Country, o, func(g *game.Game) error {
		if g.Mode != game.ModeDaily {
			return errNotYourGame
		}
		return nil
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusConflict, "no_session")
		return
	case errors.Is(err, errNotYourGame):
		writeError(w, http.StatusConflict, "no_session")
		return
	case err != nil:
		log.Error().Err(err).Msg("daily: apply guess")
		writeError(w, http.StatusInternalServerError, "guess_failed")
		return
	}

	if res.Transition != game.TransitionNone {
		d.persist(r.Context(), pid, sess, g)
	}
	writeJSON(w, http.StatusOK, res)
}

// persist records a finished daily game (best effort).
func (d *dailyServer) persist(ctx context.Context, pid string, sess dailySession, g *game.Game) {
	err := d.store.InsertResult(ctx, daily.Result{
		PlayerID:    pid,
		Date:        sess.Date,
		AnswerIndex: sess.AnswerIndex,
		Guesses:     len(g.Guesses),
		Won:         g.Phase() == game.PhaseWon,
		ElapsedMs:   g.UpdatedAt.Sub(g.StartedAt).Milliseconds(),
	})
	if err != nil {
		log.Warn().Err(err).Str("player", pid).Msg("daily: insert result")
	}
}

// -----------------------------------------------------------------------------
// /daily/leaderboard

type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(d.now())
	} else if _, err := daily.ParseDateKey(date); err != nil {
		writeError(w, http.StatusBadRequest, "bad_date")
		return
	}
	rows, err := d.store.Leaderboard(r.Context(), date, 20)
	if err != nil {
		log.Error().Err(err).Msg("daily: leaderboard")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, lbRes{Date: date, Top: rows})
}
