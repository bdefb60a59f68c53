// internal/daily/daily.go
//
// Daily challenge: one shared answer per UTC date.
// The index is HMAC(salt, YYYY-MM-DD) over the country list, so every
// player gets the same country without storing a schedule.

package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/robalobadob/worldle/apps/go-server/internal/countries"
)

const dateLayout = "2006-01-02"

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// ParseDateKey validates a YYYY-MM-DD key.
func ParseDateKey(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// AnswerIndex maps a UTC day onto [0, n): HMAC-SHA256 keyed with salt over
// the date key, first 8 bytes big-endian, modulo n. Returns 0 when n <= 0.
func AnswerIndex(date time.Time, salt string, n int) int {
	if n <= 0 {
		return 0
	}
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(DateKey(date)))
	seed := binary.BigEndian.Uint64(mac.Sum(nil)[:8])
	return int(seed % uint64(n))
}

// Answer returns the day's country from pool along with its index.
// ok is false for an empty pool.
func Answer(date time.Time, salt string, pool []countries.Country) (idx int, c countries.Country, ok bool) {
	if len(pool) == 0 {
		return 0, countries.Country{}, false
	}
	idx = AnswerIndex(date, salt, len(pool))
	return idx, pool[idx], true
}
