package title

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxTokens caps the derived title length in whitespace-separated words.
const MaxTokens = 8

// Derive builds a short session title from a seed message. Whitespace
// runs collapse to single spaces and the first rune is uppercased.
// An all-whitespace seed derives to the empty string.
func Derive(seed string) string {
	tokens := strings.Fields(seed)
	if len(tokens) == 0 {
		return ""
	}
	if len(tokens) > MaxTokens {
		tokens = tokens[:MaxTokens]
	}

	out := strings.Join(tokens, " ")

	r, size := utf8.DecodeRuneInString(out)
	if r == utf8.RuneError {
		return out
	}
	return string(unicode.ToUpper(r)) + out[size:]
}
