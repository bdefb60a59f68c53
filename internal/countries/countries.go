// internal/countries/countries.go
//
// Static country dataset used as guesses and answers.
//
// Responsibilities:
//   - Load the dataset from COUNTRIES_FILE or fall back to the embedded CSV.
//   - Keep lookups by code and by name for resolving player input.
//   - Supply RandomCountry, Search (autocomplete) and Stats.
//
// Dataset format (CSV, '#' starts a comment line):
//   code,latitude,longitude,name
//
// Constraints:
//   • Codes are upper-cased and unique; later duplicates are skipped.
//   • Latitude must be in [-90,90], longitude in [-180,180]; other rows are skipped.
//   • Initialization is run once (sync.Once).

package countries

import (
	"crypto/rand"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/worldle/apps/go-server/assets"
	"github.com/robalobadob/worldle/apps/go-server/internal/geo"
)

// Country is a guessable country. Values are never mutated after loading.
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
	geo.Point
}

// Key implements geo.Place.
func (c Country) Key() string { return c.Code }

// Position implements geo.Place.
func (c Country) Position() geo.Point { return c.Point }

// ErrEmpty is returned when a dataset yields no usable rows.
var ErrEmpty = errors.New("countries: dataset is empty")

var (
	initOnce   sync.Once
	all        []Country
	byCode     map[string]int
	byName     map[string]int
	initialErr error
)

// Init loads the dataset exactly once. path overrides the embedded CSV
// when non-empty.
func Init(path string) error {
	initOnce.Do(func() {
		var (
			rc  io.ReadCloser
			err error
		)
		if path != "" {
			rc, err = os.Open(path)
		} else {
			rc, err = assets.Countries()
		}
		if err != nil {
			initialErr = fmt.Errorf("countries: open dataset: %w", err)
			return
		}
		defer rc.Close()

		list, err := Parse(rc)
		if err != nil {
			initialErr = err
			return
		}
		load(list)
		log.Debug().Int("countries", len(all)).Str("source", sourceName(path)).Msg("country dataset loaded")
	})
	return initialErr
}

func sourceName(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}

// Parse reads code,latitude,longitude,name rows. Invalid rows and repeated
// codes are skipped.
func Parse(r io.Reader) ([]Country, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	seen := make(map[string]struct{})
	var out []Country
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("countries: read csv: %w", err)
		}
		c, ok := parseRecord(rec)
		if !ok {
			log.Warn().Strs("record", rec).Msg("skipping invalid country row")
			continue
		}
		if _, dup := seen[c.Code]; dup {
			log.Warn().Str("code", c.Code).Msg("skipping duplicate country code")
			continue
		}
		seen[c.Code] = struct{}{}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return out, nil
}

func parseRecord(rec []string) (Country, bool) {
	if len(rec) < 4 {
		return Country{}, false
	}
	code := strings.ToUpper(strings.TrimSpace(rec[0]))
	name := strings.TrimSpace(rec[3])
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
	if code == "" || name == "" || errLat != nil || errLon != nil {
		return Country{}, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Country{}, false
	}
	return Country{Code: code, Name: name, Point: geo.Point{Lat: lat, Lon: lon}}, true
}

// load replaces the package-level dataset and its indexes.
func load(list []Country) {
	all = list
	byCode = make(map[string]int, len(list))
	byName = make(map[string]int, len(list))
	for i, c := range list {
		byCode[c.Code] = i
		byName[strings.ToLower(c.Name)] = i
	}
}

// All returns the loaded dataset. The slice must not be modified.
func All() []Country { return all }

// Lookup finds a country by code (case-insensitive).
func Lookup(code string) (Country, bool) {
	i, ok := byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Country{}, false
	}
	return all[i], true
}

// ByName finds a country by its exact name, ignoring case.
func ByName(name string) (Country, bool) {
	i, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Country{}, false
	}
	return all[i], true
}

// Resolve maps player input (a code or a full name) to a country.
// Returns nil when nothing matches.
func Resolve(input string) *Country {
	if c, ok := Lookup(input); ok {
		return &c
	}
	if c, ok := ByName(input); ok {
		return &c
	}
	return nil
}

// Search returns countries whose name contains query, ignoring case,
// sorted by name. An empty query matches everything. limit <= 0 means no limit.
func Search(query string, limit int) []Country {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Country, 0)
	for _, c := range all {
		if q == "" || strings.Contains(strings.ToLower(c.Name), q) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// RandomCountry returns a uniformly random country from pool.
// ok is false for an empty pool.
func RandomCountry(pool []Country) (c Country, ok bool) {
	if len(pool) == 0 {
		return Country{}, false
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(pool))))
	if err != nil {
		return Country{}, false
	}
	return pool[n.Int64()], true
}

// Stats returns the number of loaded countries.
func Stats() int { return len(all) }
