// internal/auth/id.go
//
// Random identifiers for users and anonymous players.

package auth

import (
	"crypto/rand"
	"encoding/base64"
)

// GenID creates a 22‑char URL‑safe, crypto‑random identifier (no padding).
func GenID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
