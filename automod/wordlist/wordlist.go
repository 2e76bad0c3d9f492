package wordlist

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/langwarden/langwarden/automod/keyword"
)

var sectionMarker = regexp.MustCompile(`^\{(\w+)\}$`)

var ErrDuplicateEntry = errors.New("duplicate wordlist entry")

var ErrBlankEntry = errors.New("blank wordlist entry")

// A literal banned phrase.
type Entry struct {
	Text    string
	Section string
}

// A banned pattern. Source is the configured line, Expr is what remains
// after the comment is stripped.
type Pattern struct {
	Source  string
	Expr    string
	Section string
	re      *regexp.Regexp
}

func (p Pattern) MatchString(s string) bool {
	return p.re.MatchString(s)
}

// List is an immutable, parsed pair of literal and pattern phrase lists.
type List struct {
	Literals []Entry
	Patterns []Pattern
	Norm     keyword.Normalizer
}

// Returns the section name if the line is a "{name}" marker.
func SectionMarker(line string) (string, bool) {
	m := sectionMarker.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Parses literal phrase lines. Empty lines are skipped, blank ones are
// skipped with an error, section markers
// re-scope the lines following them, and repeated phrases are skipped with
// an error (the first occurrence keeps its section).
func ParseLiterals(lines []string) ([]Entry, error) {
	var errs []error
	seen := make(map[string]bool)
	section := ""
	out := make([]Entry, 0, len(lines))
	for i, line := range lines {
		if line == "" {
			continue
		}
		if strings.TrimSpace(line) == "" {
			errs = append(errs, fmt.Errorf("literal line %d: %w", i+1, ErrBlankEntry))
			continue
		}
		if name, ok := SectionMarker(line); ok {
			section = name
			continue
		}
		key := keyword.Fold(line)
		if seen[key] {
			errs = append(errs, fmt.Errorf("literal line %d %q: %w", i+1, line, ErrDuplicateEntry))
			continue
		}
		seen[key] = true
		out = append(out, Entry{Text: line, Section: section})
	}
	return out, errors.Join(errs...)
}

// Parses pattern lines. In addition to the literal rules, anything after an
// unescaped '#' is a comment, and every pattern is compiled case-insensitively.
// Lines that fail to compile are skipped with an error.
func ParsePatterns(lines []string) ([]Pattern, error) {
	var errs []error
	seen := make(map[string]bool)
	section := ""
	out := make([]Pattern, 0, len(lines))
	for i, line := range lines {
		if name, ok := SectionMarker(line); ok {
			section = name
			continue
		}
		expr := StripComment(line)
		if expr == "" {
			continue
		}
		if strings.TrimSpace(expr) == "" {
			errs = append(errs, fmt.Errorf("pattern line %d %q: %w", i+1, line, ErrBlankEntry))
			continue
		}
		if seen[expr] {
			errs = append(errs, fmt.Errorf("pattern line %d %q: %w", i+1, line, ErrDuplicateEntry))
			continue
		}
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			errs = append(errs, fmt.Errorf("pattern line %d %q: %w", i+1, line, err))
			continue
		}
		seen[expr] = true
		out = append(out, Pattern{Source: line, Expr: expr, Section: section, re: re})
	}
	return out, errors.Join(errs...)
}

// Removes everything from the first unescaped '#' onwards.
func StripComment(line string) string {
	escaped := false
	for i, r := range line {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '#':
			return line[:i]
		}
	}
	return line
}

// Builds a List from raw lines. Entry errors are returned alongside a usable
// list.
func Parse(literals, patterns []string) (*List, error) {
	lits, litErr := ParseLiterals(literals)
	pats, patErr := ParsePatterns(patterns)
	return &List{Literals: lits, Patterns: pats}, errors.Join(litErr, patErr)
}

// Match is a detected violation.
type Match struct {
	Phrase    string
	Section   string
	IsPattern bool
}

// Finds the first literal contained in the message, else the first pattern
// matching anywhere in it.
func (l *List) FindViolation(msg string) (Match, bool) {
	if l == nil {
		return Match{}, false
	}
	norm := l.Norm.Normalize(msg)
	for _, e := range l.Literals {
		if strings.Contains(norm, l.Norm.Normalize(e.Text)) {
			return Match{Phrase: e.Text, Section: e.Section}, true
		}
	}
	for _, p := range l.Patterns {
		if p.MatchString(msg) {
			return Match{Phrase: p.Expr, Section: p.Section, IsPattern: true}, true
		}
	}
	return Match{}, false
}

// Section names referenced by entries, in first-seen order.
func (l *List) Sections() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, e := range l.Literals {
		add(e.Section)
	}
	for _, p := range l.Patterns {
		add(p.Section)
	}
	return out
}
