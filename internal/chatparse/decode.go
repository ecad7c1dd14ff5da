package chatparse

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DecodeText turns export bytes into text. Bytes are read as UTF-8, one
// replacement character per invalid byte; when that produces more than
// max(2, 0.5% of the decoded length) replacement characters the same bytes
// are re-read as Latin-1. A BOM is left in place for the parsers to strip.
func DecodeText(data []byte) string {
	if utf8.Valid(data) && !strings.ContainsRune(string(data), utf8.RuneError) {
		return string(data)
	}

	text := string([]rune(string(data)))
	bad := strings.Count(text, string(utf8.RuneError))

	limit := max(2, float64(utf8.RuneCountInString(text))*0.005)
	if float64(bad) <= limit {
		return text
	}

	latin, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return text
	}
	return string(latin)
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
