package wordlist

import (
	"fmt"
	"strings"
)

// Duplicate is an entry which can never be the first match because another
// entry always matches before or alongside it.
type Duplicate struct {
	// The redundant literal.
	Entry string
	// The literal it contains, or the pattern matching it.
	Covered string
	ByPattern bool
}

func (d Duplicate) String() string {
	if d.ByPattern {
		return fmt.Sprintf("%q is matched by pattern %q", d.Entry, d.Covered)
	}
	return fmt.Sprintf("%q contains %q", d.Entry, d.Covered)
}

// Reports literals containing another literal, and literals matched by a
// pattern.
func (l *List) Duplicates() []Duplicate {
	var out []Duplicate
	for i, e := range l.Literals {
		et := l.Norm.Normalize(e.Text)
		for j, o := range l.Literals {
			if i == j {
				continue
			}
			if strings.Contains(et, l.Norm.Normalize(o.Text)) {
				out = append(out, Duplicate{Entry: e.Text, Covered: o.Text})
			}
		}
		for _, p := range l.Patterns {
			if p.MatchString(e.Text) {
				out = append(out, Duplicate{Entry: e.Text, Covered: p.Expr, ByPattern: true})
			}
		}
	}
	return out
}
