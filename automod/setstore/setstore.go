package setstore

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
)

// Name of the set holding whitelisted player names.
const WhitelistSet = "whitelist"

type SetStore interface {
	InSet(ctx context.Context, name, val string) (bool, error)
}

// MemSetStore holds named sets of player names. Values are compared
// case-insensitively.
type MemSetStore struct {
	mu   sync.RWMutex
	Sets map[string]map[string]bool
}

func NewMemSetStore() *MemSetStore {
	return &MemSetStore{
		Sets: make(map[string]map[string]bool),
	}
}

func norm(val string) string {
	return strings.ToLower(strings.TrimSpace(val))
}

func (s *MemSetStore) InSet(ctx context.Context, name, val string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.Sets[name]
	if !ok {
		// NOTE: currently returns false when entire set isn't found
		return false, nil
	}
	return set[norm(val)], nil
}

func (s *MemSetStore) Add(name string, vals ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.Sets[name]
	if !ok {
		set = make(map[string]bool, len(vals))
		s.Sets[name] = set
	}
	for _, v := range vals {
		if v = norm(v); v != "" {
			set[v] = true
		}
	}
}

// Replaces the contents of a single set.
func (s *MemSetStore) Replace(name string, vals []string) {
	set := make(map[string]bool, len(vals))
	for _, v := range vals {
		if v = norm(v); v != "" {
			set[v] = true
		}
	}
	s.mu.Lock()
	s.Sets[name] = set
	s.mu.Unlock()
}

// Sorted members of a set.
func (s *MemSetStore) Members(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.Sets[name]))
	for v := range s.Sets[name] {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Loads sets from a JSON object mapping set names to arrays of values.
func (s *MemSetStore) LoadFromFileJSON(p string) error {

	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	var sets map[string][]string
	if err := json.Unmarshal(raw, &sets); err != nil {
		return err
	}

	for name, l := range sets {
		s.Replace(name, l)
	}
	return nil
}
