// internal/geo/arrow.go
//
// Compass directions and the feedback arrow shown for each guess.
// JSON uses the short codes ("N" ... "NW", "correct"); String gives the emoji.

package geo

import (
	"encoding/json"
	"fmt"
	"math"
)

// Direction is one of the eight compass points, clockwise from North.
type Direction int

const (
	North Direction = iota
	Northeast
	East
	Southeast
	South
	Southwest
	West
	Northwest
)

var directionCodes = [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

var directionGlyphs = [...]string{"⬆️", "↗️", "➡️", "↘️", "⬇️", "↙️", "⬅️", "↖️"}

// compass has nine entries: round(angle/45) yields 8 for angles in
// [337.5, 360), which must read as North again.
var compass = [9]Direction{North, Northeast, East, Southeast, South, Southwest, West, Northwest, North}

// DirectionOf maps a bearing in degrees [0, 360) to the nearest compass point.
func DirectionOf(angle float64) Direction {
	i := int(math.Round(angle / 45))
	if i < 0 || i >= len(compass) {
		i = ((i % 8) + 8) % 8
	}
	return compass[i]
}

// String returns the short code ("N", "NE", ...).
func (d Direction) String() string {
	if d < North || d > Northwest {
		return "?"
	}
	return directionCodes[d]
}

// Glyph returns the arrow emoji for d.
func (d Direction) Glyph() string {
	if d < North || d > Northwest {
		return "?"
	}
	return directionGlyphs[d]
}

// Arrow is the feedback symbol for a guess: either a compass direction
// toward the answer or the celebration marker for a correct guess.
// The zero value is an arrow pointing North.
type Arrow struct {
	dir       Direction
	celebrate bool
}

const (
	celebrationCode  = "correct"
	celebrationGlyph = "🎉"
)

// Toward builds a directional arrow.
func Toward(d Direction) Arrow { return Arrow{dir: d} }

// Celebration builds the arrow shown for the correct country.
func Celebration() Arrow { return Arrow{celebrate: true} }

// IsCelebration reports whether a is the correct-guess marker.
func (a Arrow) IsCelebration() bool { return a.celebrate }

// Direction returns the compass direction; ok is false for a celebration arrow.
func (a Arrow) Direction() (d Direction, ok bool) {
	if a.celebrate {
		return 0, false
	}
	return a.dir, true
}

// Code is "correct" or the direction code.
func (a Arrow) Code() string {
	if a.celebrate {
		return celebrationCode
	}
	return a.dir.String()
}

// String renders the arrow as the emoji players see.
func (a Arrow) String() string {
	if a.celebrate {
		return celebrationGlyph
	}
	return a.dir.Glyph()
}

// MarshalJSON encodes the arrow as its code.
func (a Arrow) MarshalJSON() ([]byte, error) { return json.Marshal(a.Code()) }

// UnmarshalJSON accepts the codes produced by MarshalJSON.
func (a *Arrow) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == celebrationCode {
		*a = Celebration()
		return nil
	}
	for i, c := range directionCodes {
		if c == s {
			*a = Toward(Direction(i))
			return nil
		}
	}
	return fmt.Errorf("geo: unknown arrow %q", s)
}
