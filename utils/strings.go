// utils/strings.go
package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeWord folds a word into its dictionary key: trimmed, lower-cased and
// stripped of combining marks, so "Camión" and "camion" collide.
func NormalizeWord(word string) string {
	lowered := strings.ToLower(strings.TrimSpace(word))
	// transform chains keep state, build one per call
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, lowered)
	if err != nil {
		return lowered
	}
	return folded
}
