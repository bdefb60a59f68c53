// internal/httpserver/routes_game.go
//
// Free-play game endpoints and the guess pipeline shared with /daily.
//   - POST /game/new   → start a game with a random answer
//   - POST /game/guess → submit a country (code or name)
//   - GET  /game/{id}  → current state
//
// A rejected submission is not an HTTP error: the response is 200 with
// accepted=false and a reason, and the game is unchanged.

package httpserver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/worldle/apps/go-server/internal/auth"
	"github.com/robalobadob/worldle/apps/go-server/internal/countries"
	"github.com/robalobadob/worldle/apps/go-server/internal/game"
	"github.com/robalobadob/worldle/apps/go-server/internal/metrics"
	"github.com/robalobadob/worldle/apps/go-server/internal/store"
)

var errNotFreePlay = errors.New("game: not a free-play game")

// Rejection reasons reported with accepted=false.
const (
	reasonFinished  = "finished"
	reasonUnknown   = "unknown_country"
	reasonDuplicate = "duplicate"
)

// ------------------------------- views -------------------------------------

type countryView struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type guessView struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	DistanceKm int    `json:"distanceKm"` // rounded to nearest km
	Direction  string `json:"direction"`  // N, NE, … or "correct"
	Arrow      string `json:"arrow"`      // emoji
	Proximity  int    `json:"proximity"`  // 0–100
}

type gameView struct {
	GameID     string       `json:"gameId"`
	Mode       game.Mode    `json:"mode"`
	State      game.Phase   `json:"state"`
	Guesses    []guessView  `json:"guesses"`
	Remaining  int          `json:"remaining"`
	MaxGuesses int          `json:"maxGuesses"`
	Shape      string       `json:"shape"`
	Answer     *countryView `json:"answer,omitempty"` // only once finished
}

func viewGuess(g game.Guess) guessView {
	return guessView{
		Code:       g.Country.Code,
		Name:       g.Country.Name,
		DistanceKm: int(math.Round(g.DistanceKm)),
		Direction:  g.Arrow.Code(),
		Arrow:      g.Arrow.String(),
		Proximity:  g.Proximity(),
	}
}

func (s *Server) viewGame(g *game.Game) gameView {
	v := gameView{
		GameID:     g.ID,
		Mode:       g.Mode,
		State:      g.Phase(),
		Guesses:    make([]guessView, 0, len(g.Guesses)),
		Remaining:  g.Remaining(),
		MaxGuesses: game.MaxGuesses,
		Shape:      s.shapeURL(g.Answer.Code),
	}
	for _, x := range g.Guesses {
		v.Guesses = append(v.Guesses, viewGuess(x))
	}
	if g.Finished() {
		v.Answer = &countryView{Code: g.Answer.Code, Name: g.Answer.Name}
	}
	return v
}

// shapeURL points at the outline image the client shows for the answer.
func (s *Server) shapeURL(code string) string {
	return fmt.Sprintf("%s/%s.svg", strings.TrimRight(s.cfg.ShapeBaseURL, "/"), strings.ToLower(code))
}

// ------------------------------ /countries ---------------------------------

// handleCountries serves the autocomplete list, filtered by ?q= substring.
func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "bad_limit")
			return
		}
		limit = n
	}
	found := countries.Search(r.URL.Query().Get("q"), limit)
	out := make([]countryView, 0, len(found))
	for _, c := range found {
		out = append(out, countryView{Code: c.Code, Name: c.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

// ------------------------------ /game/new ----------------------------------

type newGameReq struct {
	Answer string `json:"answer"` // optional fixed answer code (testing)
}

type newGameRes struct {
	GameID     string `json:"gameId"`
	MaxGuesses int    `json:"maxGuesses"`
	Shape      string `json:"shape"`
}

// handleNewGame creates a new in-memory game and a DB history row for its owner.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}

	var (
		g   *game.Game
		err error
	)
	if req.Answer != "" {
		c, ok := countries.Lookup(req.Answer)
		if !ok {
			writeError(w, http.StatusBadRequest, reasonUnknown)
			return
		}
		g = game.NewWithAnswer(c, game.ModeRandom)
	} else if g, err = game.New(countries.All()); err != nil {
		log.Error().Err(err).Msg("new game")
		writeError(w, http.StatusInternalServerError, "no_countries")
		return
	}

	if err := s.store.Save(r.Context(), g); err != nil {
		log.Error().Err(err).Msg("save game")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	s.recordStart(r.Context(), g, s.ownerOf(w, r))
	metrics.GamesStarted.WithLabelValues(string(g.Mode)).Inc()

	writeJSON(w, http.StatusOK, newGameRes{GameID: g.ID, MaxGuesses: game.MaxGuesses, Shape: s.shapeURL(g.Answer.Code)})
}

// ----------------------------- /game/guess ---------------------------------

type guessReq struct {
	GameID  string `json:"gameId"`
	Country string `json:"country"` // code or full name
}

type guessRes struct {
	Accepted   bool            `json:"accepted"`
	Reason     string          `json:"reason,omitempty"`
	Transition game.Transition `json:"transition"`
	Guess      *guessView      `json:"guess,omitempty"`
	gameView
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	if req.GameID == "" {
		writeError(w, http.StatusBadRequest, "missing_game_id")
		return
	}
	// Daily games only take guesses through /daily/guess, which does the
	// once-per-day bookkeeping.
	res, _, err := s.applyGuess(r.Context(), req.GameID, req.Country, s.ownerOf(w, r), func(g *game.Game) error {
		if g.Mode != game.ModeRandom {
			return errNotFreePlay
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, errNotFreePlay) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("gameId", req.GameID).Msg("apply guess")
		writeError(w, http.StatusInternalServerError, "guess_failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// applyGuess resolves input, submits it under the store lock and records
// the outcome. check, when set, runs on the locked game before submitting
// and may veto with an error.
func (s *Server) applyGuess(ctx context.Context, gameID, input string, o owner, check func(*game.Game) error) (guessRes, *game.Game, error) {
	cand := countries.Resolve(input)

	var (
		res  guessRes
		snap *game.Game
	)
	err := s.store.Update(ctx, gameID, func(g *game.Game) error {
		if check != nil {
			if err := check(g); err != nil {
				return err
			}
		}
		switch {
		case g.Finished():
			res.Reason = reasonFinished
		case cand == nil:
			res.Reason = reasonUnknown
		case g.Guessed(cand.Code):
			res.Reason = reasonDuplicate
		}
		res.Transition, res.Accepted = g.Submit(cand)
		snap = g.Clone()
		return nil
	})
	if err != nil {
		return guessRes{}, nil, err
	}

	res.gameView = s.viewGame(snap)
	outcome := res.Reason
	if res.Accepted {
		outcome = "accepted"
		res.Reason = ""
		last, _ := snap.Last()
		gv := viewGuess(last)
		res.Guess = &gv
		metrics.GuessDistance.Observe(last.DistanceKm)
		s.recordGuess(ctx, snap, o)
	}
	metrics.Guesses.WithLabelValues(string(snap.Mode), outcome).Inc()

	switch res.Transition {
	case game.TransitionWon:
		metrics.GamesFinished.WithLabelValues(string(snap.Mode), string(game.PhaseWon)).Inc()
		log.Info().Str("gameId", snap.ID).Int("guesses", len(snap.Guesses)).Msg("game won")
	case game.TransitionLost:
		metrics.GamesFinished.WithLabelValues(string(snap.Mode), string(game.PhaseLost)).Inc()
		log.Info().Str("gameId", snap.ID).Str("answer", snap.Answer.Code).Msg("game lost")
	}
	return res, snap, nil
}

// ------------------------------ /game/{id} ---------------------------------

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, s.viewGame(g))
}

// ----------------------------- persistence ---------------------------------

// recordStart inserts the history row for a new game (best effort).
func (s *Server) recordStart(ctx context.Context, g *game.Game, o owner) {
	var userID, anonID any
	if o.UserID != "" {
		userID = o.UserID
	} else {
		anonID = o.AnonID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO games (id, user_id, anonymous_id, mode, answer, started_at, status, guesses)
		 VALUES (?,?,?,?,?,?,?,0)`,
		g.ID, userID, anonID, string(g.Mode), g.Answer.Code, g.StartedAt.Format(time.RFC3339), string(game.PhasePlaying))
	if err != nil {
		log.Warn().Err(err).Str("gameId", g.ID).Msg("insert game row")
	}
}

// recordGuess updates the history row and, for finished games owned by a
// user, their stats. Only the owner's row is touched: a requester who is not
// the owner updates nothing and earns no stats. Failures are logged and never
// surface to the player.
func (s *Server) recordGuess(ctx context.Context, g *game.Game, o owner) {
	ownerCol, ownerID := "anonymous_id", o.AnonID
	if o.UserID != "" {
		ownerCol, ownerID = "user_id", o.UserID
	}
	var finishedAt any
	if g.Finished() {
		finishedAt = time.Now().UTC().Format(time.RFC3339)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Warn().Err(err).Msg("begin tx")
		return
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE games SET guesses=?, status=?, finished_at=? WHERE id=? AND `+ownerCol+`=?`,
		len(g.Guesses), string(g.Phase()), finishedAt, g.ID, ownerID)
	if err != nil {
		log.Warn().Err(err).Str("gameId", g.ID).Msg("update game row")
		return
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		log.Debug().Str("gameId", g.ID).Msg("guess by non-owner, history untouched")
		return
	}
	if g.Finished() && o.UserID != "" {
		if err := auth.BumpStats(ctx, tx, o.UserID, g.Phase() == game.PhaseWon); err != nil {
			log.Warn().Err(err).Str("user", o.UserID).Msg("bump stats")
			return
		}
	}
	if err := tx.Commit(); err != nil {
		log.Warn().Err(err).Str("gameId", g.ID).Msg("commit guess")
	}
}
