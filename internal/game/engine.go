// internal/game/engine.go
//
// Core game engine for a single country-guessing session.
// Responsibilities:
//   - Create new games with a uniformly random answer from a pool.
//   - Accept or reject submissions (terminal game, nil, duplicate).
//   - Score guesses with distance and direction toward the answer.
//   - Track state transitions: playing → won/lost.
//
// Notes:
//   - Rejections are not errors; Submit reports them with accepted=false.
//   - randomID() is a compact hex identifier for correlating server state.

package game

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/robalobadob/worldle/apps/go-server/internal/countries"
	"github.com/robalobadob/worldle/apps/go-server/internal/geo"
)

// ErrEmptyPool is returned by New when there is nothing to pick an answer from.
var ErrEmptyPool = errors.New("game: country pool is empty")

// New constructs a random-mode game whose answer is picked uniformly from pool.
func New(pool []countries.Country) (*Game, error) {
	ans, ok := countries.RandomCountry(pool)
	if !ok {
		return nil, ErrEmptyPool
	}
	return NewWithAnswer(ans, ModeRandom), nil
}

// NewWithAnswer constructs a game with a fixed answer.
func NewWithAnswer(answer countries.Country, mode Mode) *Game {
	now := time.Now().UTC()
	return &Game{
		ID:        randomID(),
		Mode:      mode,
		Answer:    answer,
		Guesses:   make([]Guess, 0, MaxGuesses),
		StartedAt: now,
		UpdatedAt: now,
		phase:     PhasePlaying,
	}
}

// Submit scores c against the answer and appends it.
//
// Rejected (accepted=false, nothing changes) when:
//   - the game is already won or lost,
//   - c is nil,
//   - c.Code was guessed before.
//
// State transitions:
//   - Guess matches the answer → won.
//   - Else if MaxGuesses reached → lost.
func (g *Game) Submit(c *countries.Country) (Transition, bool) {
	if g.Finished() || c == nil || g.Guessed(c.Code) {
		return TransitionNone, false
	}

	g.Guesses = append(g.Guesses, Guess{
		Country:    *c,
		DistanceKm: geo.Distance(c.Point, g.Answer.Point),
		Arrow:      geo.ArrowTo(*c, g.Answer),
	})
	g.UpdatedAt = time.Now().UTC()

	switch {
	case c.Code == g.Answer.Code:
		g.phase = PhaseWon
		return TransitionWon, true
	case len(g.Guesses) >= MaxGuesses:
		g.phase = PhaseLost
		return TransitionLost, true
	}
	return TransitionNone, true
}

// Phase reports the current phase.
func (g *Game) Phase() Phase {
	if g.phase == "" {
		return PhasePlaying
	}
	return g.phase
}

// Finished is true once the game is won or lost.
func (g *Game) Finished() bool {
	p := g.Phase()
	return p == PhaseWon || p == PhaseLost
}

// Remaining is the number of guesses left.
func (g *Game) Remaining() int {
	if g.Finished() {
		return 0
	}
	return MaxGuesses - len(g.Guesses)
}

// Guessed reports whether code already appears in the guesses.
func (g *Game) Guessed(code string) bool {
	for _, x := range g.Guesses {
		if x.Country.Code == code {
			return true
		}
	}
	return false
}

// Last returns the most recent guess.
func (g *Game) Last() (Guess, bool) {
	if len(g.Guesses) == 0 {
		return Guess{}, false
	}
	return g.Guesses[len(g.Guesses)-1], true
}

// Clone returns a copy that shares no mutable state with g.
func (g *Game) Clone() *Game {
	cp := *g
	cp.Guesses = append(make([]Guess, 0, MaxGuesses), g.Guesses...)
	return &cp
}

// randomID returns a compact 16‑hex‑char identifier.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
