// internal/game/types.go
//
// Core type definitions for the country-guessing engine.
// Defines:
//   - Phase: playing / won / lost.
//   - Transition: the phase change caused by one submission.
//   - Guess: one scored submission.
//   - Game: state for a single in-progress or finished game.

package game

import (
	"time"

	"github.com/robalobadob/worldle/apps/go-server/internal/countries"
	"github.com/robalobadob/worldle/apps/go-server/internal/geo"
)

// MaxGuesses is the number of attempts a player gets.
const MaxGuesses = 6

// Phase is the coarse state of a game.
type Phase string

const (
	PhasePlaying Phase = "playing"
	PhaseWon     Phase = "won"
	PhaseLost    Phase = "lost"
)

// Transition reports what an accepted guess did to the phase.
// Callers use it to notify the player (success toast, reveal the answer).
type Transition string

const (
	TransitionNone Transition = "none"
	TransitionWon  Transition = "won"
	TransitionLost Transition = "lost"
)

// Mode distinguishes free-play games from the daily challenge.
type Mode string

const (
	ModeRandom Mode = "random"
	ModeDaily  Mode = "daily"
)

// Guess is a scored submission. Immutable once appended.
type Guess struct {
	Country    countries.Country `json:"country"`
	DistanceKm float64           `json:"distanceKm"`
	Arrow      geo.Arrow         `json:"arrow"`
}

// Proximity is the 0–100 closeness score for this guess.
func (g Guess) Proximity() int { return geo.Proximity(g.DistanceKm) }

// Game holds the state of a single playthrough. A new game replaces an
// old one; games are never reset in place.
type Game struct {
	ID        string            // Unique game identifier (random hex string).
	Mode      Mode              // random | daily
	Answer    countries.Country // Fixed at creation.
	Guesses   []Guess           // Append-only, at most MaxGuesses.
	StartedAt time.Time
	UpdatedAt time.Time

	phase Phase
}
