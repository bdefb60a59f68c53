// assets/embed.go
//
// Static data bundled into the binary.
//   - countries.csv: code,latitude,longitude,name (one country per line, '#' comments).

package assets

import (
	"embed"
	"io"
)

//go:embed countries.csv
var FS embed.FS

// Countries opens the embedded country dataset. Callers close the reader.
func Countries() (io.ReadCloser, error) {
	return FS.Open("countries.csv")
}
