package directory

import (
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemDirectory caches players in an expiring LRU, and admins in a plain set.
type MemDirectory struct {
	Players *expirable.LRU[string, Player]

	mu     sync.RWMutex
	admins map[string]bool
}

var _ Directory = (*MemDirectory)(nil)
var _ Writer = (*MemDirectory)(nil)

func NewMemDirectory(capacity int, ttl time.Duration) *MemDirectory {
	return &MemDirectory{
		Players: expirable.NewLRU[string, Player](capacity, nil, ttl),
		admins:  make(map[string]bool),
	}
}

func (d *MemDirectory) StableID(name string) (string, bool) {
	p, ok := d.Players.Get(key(name))
	if !ok || p.StableID == "" {
		return "", false
	}
	return p.StableID, true
}

func (d *MemDirectory) Country(name string) (string, bool) {
	p, ok := d.Players.Get(key(name))
	if !ok || p.Country == "" {
		return "", false
	}
	return p.Country, true
}

func (d *MemDirectory) IsAdmin(name string) bool {
	if name == ServerName {
		return true
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.admins[key(name)]
}

func (d *MemDirectory) Names() []string {
	vals := d.Players.Values()
	out := make([]string, len(vals))
	for i, p := range vals {
		out[i] = p.Name
	}
	sort.Strings(out)
	return out
}

// Merges into any existing entry; empty fields do not erase known values.
func (d *MemDirectory) SetPlayer(p Player) {
	if p.Name == "" {
		return
	}
	if old, ok := d.Players.Peek(key(p.Name)); ok {
		if p.StableID == "" {
			p.StableID = old.StableID
		}
		if p.Country == "" {
			p.Country = old.Country
		}
	}
	d.Players.Add(key(p.Name), p)
}

func (d *MemDirectory) Forget(name string) {
	d.Players.Remove(key(name))
}

func (d *MemDirectory) SetAdmins(names []string) {
	admins := make(map[string]bool, len(names))
	for _, n := range names {
		admins[key(n)] = true
	}
	d.mu.Lock()
	d.admins = admins
	d.mu.Unlock()
}

func (d *MemDirectory) Clear() {
	d.Players.Purge()
}
