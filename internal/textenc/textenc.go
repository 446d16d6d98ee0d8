// Package textenc normalises text files written by editors on any platform.
package textenc

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decode converts raw file contents to UTF-8. A UTF-8 or UTF-16 byte order
// mark selects the source encoding and is stripped; without one the input is
// treated as UTF-8. CRLF line endings are normalised to LF.
func Decode(raw []byte) (string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, raw)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(string(out), "\r\n", "\n"), nil
}
