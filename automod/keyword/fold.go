package keyword

import (
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Full unicode case folding of a string. Used for case-insensitive phrase comparison.
func Fold(s string) string {
	// a Caser is stateful and not safe for concurrent use, so one is built per call
	return cases.Fold().String(s)
}

// Removes combining marks (accents, etc) from text, leaving the base runes.
//
// For example, "fück" becomes "fuck".
func StripMarks(s string) string {
	// this function needs to be re-defined in every function call to prevent a race condition
	normFunc := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(normFunc, s)
	if err != nil {
		slog.Warn("unicode normalization error", "err", err)
		return s
	}
	return out
}

// Case-insensitive substring check.
func ContainsFold(haystack, needle string) bool {
	return strings.Contains(Fold(haystack), Fold(needle))
}

// Normalizer prepares phrases and messages before literal comparison. The
// zero value only case-folds.
type Normalizer struct {
	StripMarks bool
}

func (n Normalizer) Normalize(s string) string {
	if n.StripMarks {
		s = StripMarks(s)
	}
	return Fold(s)
}

// Reports whether the normalized needle appears in the normalized haystack.
func (n Normalizer) Contains(haystack, needle string) bool {
	return strings.Contains(n.Normalize(haystack), n.Normalize(needle))
}
