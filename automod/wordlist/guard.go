package wordlist

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

var ErrUnsafePattern = errors.New("pattern contains unsafe characters")

const (
	// Non-word characters a pattern may use unescaped.
	DefaultSafeChars = `!%|+*'(),-.`
	DefaultWarmUp    = 5 * time.Second
)

// Guard rejects pattern lists containing unescaped non-word characters
// outside SafeChars. It is inactive until WarmUp has passed since Started, so
// the initial bulk load is never rejected.
type Guard struct {
	SafeChars string
	WarmUp    time.Duration
	Started   time.Time
}

func NewGuard(started time.Time) Guard {
	return Guard{
		SafeChars: DefaultSafeChars,
		WarmUp:    DefaultWarmUp,
		Started:   started,
	}
}

func (g Guard) Active(now time.Time) bool {
	return !now.Before(g.Started.Add(g.WarmUp))
}

// Checks every pattern line; section markers are exempt and comments are not
// inspected.
func (g Guard) Check(lines []string, now time.Time) error {
	if !g.Active(now) {
		return nil
	}
	for i, line := range lines {
		if _, ok := SectionMarker(line); ok {
			continue
		}
		if r, ok := g.firstUnsafe(StripComment(line)); ok {
			return fmt.Errorf("%w: line %d %q has %q", ErrUnsafePattern, i+1, line, r)
		}
	}
	return nil
}

func (g Guard) firstUnsafe(expr string) (rune, bool) {
	escaped := false
	for _, r := range expr {
		if escaped {
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		if isWordRune(r) || strings.ContainsRune(g.SafeChars, r) {
			continue
		}
		return r, true
	}
	return 0, false
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

// Loader turns raw lines into lists, applying the guard to patterns.
type Loader struct {
	Guard Guard
	// Strip accents from literals and messages before comparing.
	FoldDiacritics bool
}

// Builds a list. A guard rejection returns a nil list, which callers treat as
// "keep the previous one". Entry errors return a usable list plus the error.
func (ld Loader) Load(literals, patterns []string, now time.Time) (*List, error) {
	if err := ld.Guard.Check(patterns, now); err != nil {
		return nil, err
	}
	l, err := Parse(literals, patterns)
	l.Norm.StripMarks = ld.FoldDiacritics
	return l, err
}
