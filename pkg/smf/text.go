package smf

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// decodeText turns a meta event body into a string. SMF does not name an
// encoding: UTF-8 is used when valid, then Shift_JIS (common in Japanese
// files), and Latin-1 as the last resort since it accepts any byte.
func decodeText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	if out, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), b); err == nil && !containsReplacement(out) {
		return string(out)
	}
	out, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

func containsReplacement(b []byte) bool {
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError {
			return true
		}
		b = b[size:]
	}
	return false
}
