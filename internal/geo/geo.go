// internal/geo/geo.go
//
// Geometry helpers used to score a country guess against the answer.
// Responsibilities:
//   - Great-circle distance between two points (haversine, km).
//   - Rhumb-line bearing on a Mercator projection, mapped to 8 compass points.
//   - Closeness percentage shown next to each guess.
//
// Notes:
//   - Inputs are degrees; callers guarantee lat in [-90,90], lon in [-180,180].
//   - The bearing mixes a Mercator latitude delta with a plain longitude delta.
//     Arrows shown to players depend on this exact formula; keep it as is.

package geo

import "math"

const (
	// EarthDiameterKm is 2 × 6371 km.
	EarthDiameterKm = 12742.0

	// MaxDistanceKm is the reference distance for Proximity. Antipodal
	// points are slightly farther (~20015 km).
	MaxDistanceKm = 20000.0
)

// Point is a WGS 84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Place is anything with a stable identity and a position. Countries
// implement it; ArrowTo keys the "same place" case on Key, not on Position.
type Place interface {
	Key() string
	Position() Point
}

// Distance returns the haversine great-circle distance between a and b in km.
func Distance(a, b Point) float64 {
	dLat := rad(b.Lat - a.Lat)
	dLon := rad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(a.Lat))*math.Cos(rad(b.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return EarthDiameterKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Bearing returns the compass angle in [0, 360) from one point toward another.
func Bearing(from, to Point) float64 {
	dLon := rad(to.Lon - from.Lon)
	dLat := math.Log(math.Tan(rad(to.Lat)/2+math.Pi/4) / math.Tan(rad(from.Lat)/2+math.Pi/4))

	// Antimeridian: take the short way round.
	if math.Abs(dLon) > math.Pi {
		if dLon > 0 {
			dLon = -(2*math.Pi - dLon)
		} else {
			dLon = 2*math.Pi + dLon
		}
	}
	return math.Mod(deg(math.Atan2(dLon, dLat))+360, 360)
}

// ArrowTo returns the arrow a player sees for a guess at from when the
// answer is to. Identical places yield the celebration arrow.
func ArrowTo(from, to Place) Arrow {
	if from.Key() == to.Key() {
		return Celebration()
	}
	return Toward(DirectionOf(Bearing(from.Position(), to.Position())))
}

// Proximity converts a distance into the 0–100 closeness score.
func Proximity(distanceKm float64) int {
	p := int(math.Round((1 - distanceKm/MaxDistanceKm) * 100))
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

func rad(d float64) float64 { return d * math.Pi / 180 }
func deg(r float64) float64 { return r * 180 / math.Pi }
