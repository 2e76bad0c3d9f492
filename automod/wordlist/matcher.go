package wordlist

import (
	"sync/atomic"
)

// Matcher holds the active List; a reload swaps the whole list at once.
type Matcher struct {
	list atomic.Pointer[List]
}

func NewMatcher(l *List) *Matcher {
	m := &Matcher{}
	if l != nil {
		m.list.Store(l)
	}
	return m
}

func (m *Matcher) Replace(l *List) {
	m.list.Store(l)
}

func (m *Matcher) Current() *List {
	return m.list.Load()
}

func (m *Matcher) FindViolation(msg string) (Match, bool) {
	return m.list.Load().FindViolation(msg)
}
