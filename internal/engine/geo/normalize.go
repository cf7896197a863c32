package geo

import (
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// area name prefixes dropped before lookup
var namePrefixes = map[string]bool{
	"barangay": true,
	"brgy":     true,
	"bgy":      true,
}

// NormalizeName turns an area name into its lookup key: lowercase, accents
// removed, punctuation stripped, separators turned into spaces, whitespace
// collapsed and any leading "barangay" prefix dropped. "Barangay Bahay Toro",
// "bahay-toro" and "  Bahay Toro  " all become "bahay toro"; "U.P. Campus"
// becomes "up campus".
func NormalizeName(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}

	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return r
		case unicode.IsSpace(r), r == '-', r == '_', r == '/':
			return ' '
		}
		return -1
	}, folded)

	words := strings.Fields(cleaned)
	if len(words) > 1 && namePrefixes[words[0]] {
		words = words[1:]
	}
	return strings.Join(words, " ")
}
