package heat

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/langwarden/langwarden/automod/measure"
)

// Records whose decayed heat falls below this are evicted by Sweep.
const EvictBelow = -0.9

const day = 24 * time.Hour

// Record is the persisted state for a single player.
type Record struct {
	Name       string
	Heat       float64
	LastAction time.Time
	StableID   string
}

type entry struct {
	mu  sync.Mutex
	rec Record
	// set once the entry has been removed from the map
	evicted bool
}

// Ledger tracks decaying violation heat per player. Operations on one player
// are serialized; different players proceed independently.
type Ledger struct {
	Cooldown CooldownPolicy
	records  *xsync.MapOf[string, *entry]
}

func NewLedger(cooldown CooldownPolicy) *Ledger {
	if cooldown == nil {
		cooldown = FlatCooldown(DefaultRate)
	}
	return &Ledger{
		Cooldown: cooldown,
		records:  xsync.NewMapOf[string, *entry](),
	}
}

func key(name string) string {
	return strings.ToLower(name)
}

// decayed heat at now; never below the floor
func decay(rec Record, rate float64, now time.Time) float64 {
	days := float64(now.Sub(rec.LastAction)) / float64(day)
	if days < 0 {
		days = 0
	}
	return math.Max(measure.MinHeat, rec.Heat-rate*days)
}

// Runs fn with the player's entry locked, creating it if needed. Retries if
// the entry was evicted between lookup and lock.
func (l *Ledger) withEntry(name string, fn func(e *entry)) {
	k := key(name)
	for {
		fresh := &entry{rec: Record{Name: name, Heat: measure.MinHeat}}
		e, _ := l.records.LoadOrStore(k, fresh)
		e.mu.Lock()
		if e.evicted {
			e.mu.Unlock()
			continue
		}
		fn(e)
		e.mu.Unlock()
		return
	}
}

// Returns decayed heat without modifying state. Unknown players are at the
// floor.
func (l *Ledger) GetDecayedHeat(name string, now time.Time) float64 {
	e, ok := l.records.Load(key(name))
	if !ok {
		return measure.MinHeat
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return measure.MinHeat
	}
	return decay(e.rec, l.Cooldown.CooldownRate(e.rec.Name), now)
}

// Applies decay, adds delta, clamps to floor and stamps the action time.
// Returns the new heat.
func (l *Ledger) RecordViolation(name string, delta, floor float64, now time.Time) float64 {
	var out float64
	l.withEntry(name, func(e *entry) {
		h := decay(e.rec, l.Cooldown.CooldownRate(e.rec.Name), now)
		h = math.Max(h+delta, floor)
		e.rec.Heat = math.Max(measure.MinHeat, h)
		e.rec.LastAction = now
		out = e.rec.Heat
	})
	return out
}

// Sets heat from a 1-based display counter.
func (l *Ledger) ManuallySet(name string, counter float64, now time.Time) float64 {
	var out float64
	l.withEntry(name, func(e *entry) {
		e.rec.Heat = math.Max(measure.MinHeat, measure.DisplayCounterToHeat(counter))
		e.rec.LastAction = now
		out = e.rec.Heat
	})
	return out
}

// Removes a player's record entirely. Returns false if there was none.
func (l *Ledger) Reset(name string) bool {
	e, ok := l.records.LoadAndDelete(key(name))
	if !ok {
		return false
	}
	e.mu.Lock()
	e.evicted = true
	e.mu.Unlock()
	return true
}

// Display counter: ceil(max(0, decayed heat)) + 1, or 0 if there is no record.
// Never creates a record.
func (l *Ledger) Counter(name string, now time.Time) int {
	e, ok := l.records.Load(key(name))
	if !ok {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return 0
	}
	h := decay(e.rec, l.Cooldown.CooldownRate(e.rec.Name), now)
	return measure.IndexToDisplayCounter(measure.HeatToIndex(math.Max(0, h)))
}

// Applies decay to every record, restamping it at now, and evicts those
// below EvictBelow. Returns the number evicted.
func (l *Ledger) Sweep(now time.Time) int {
	evicted := 0
	l.records.Range(func(k string, e *entry) bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.evicted {
			return true
		}
		h := decay(e.rec, l.Cooldown.CooldownRate(e.rec.Name), now)
		if h < EvictBelow {
			e.evicted = true
			l.records.Delete(k)
			evicted++
			return true
		}
		e.rec.Heat = h
		e.rec.LastAction = now
		return true
	})
	return evicted
}

// Associates a stable id with a player. If a record with the same id exists
// under a different name (the player renamed), its state moves to the new
// name, keeping the larger of the two heats decayed to now. Returns true if a
// record was moved.
func (l *Ledger) Relink(name, stableID string, now time.Time) bool {
	if stableID == "" {
		return false
	}
	var old *entry
	l.records.Range(func(k string, e *entry) bool {
		if k == key(name) {
			return true
		}
		e.mu.Lock()
		match := !e.evicted && e.rec.StableID == stableID
		e.mu.Unlock()
		if match {
			old = e
			return false
		}
		return true
	})

	if old == nil {
		l.SetStableID(name, stableID)
		return false
	}

	old.mu.Lock()
	if old.evicted {
		old.mu.Unlock()
		return false
	}
	moved := old.rec
	old.evicted = true
	l.records.Delete(key(moved.Name))
	old.mu.Unlock()

	l.withEntry(name, func(e *entry) {
		cur := decay(e.rec, l.Cooldown.CooldownRate(e.rec.Name), now)
		prev := decay(moved, l.Cooldown.CooldownRate(moved.Name), now)
		e.rec.Heat = math.Max(cur, prev)
		e.rec.LastAction = now
		e.rec.StableID = stableID
	})
	return true
}

// Stamps a stable id on an existing record. Never creates one.
func (l *Ledger) SetStableID(name, stableID string) {
	e, ok := l.records.Load(key(name))
	if !ok {
		return
	}
	e.mu.Lock()
	if !e.evicted {
		e.rec.StableID = stableID
	}
	e.mu.Unlock()
}

// Returns the record for a player, if any.
func (l *Ledger) Get(name string) (Record, bool) {
	e, ok := l.records.Load(key(name))
	if !ok {
		return Record{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return Record{}, false
	}
	return e.rec, true
}

// Copy of all records, sorted by name.
func (l *Ledger) Snapshot() []Record {
	out := make([]Record, 0, l.records.Size())
	l.records.Range(func(_ string, e *entry) bool {
		e.mu.Lock()
		if !e.evicted {
			out = append(out, e.rec)
		}
		e.mu.Unlock()
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Loads records, replacing any existing ones with the same name.
func (l *Ledger) Restore(recs []Record) {
	for _, r := range recs {
		if r.Name == "" {
			continue
		}
		r.Heat = math.Max(measure.MinHeat, r.Heat)
		l.withEntry(r.Name, func(e *entry) {
			e.rec = r
		})
	}
}

// Player names with records.
func (l *Ledger) Names() []string {
	recs := l.Snapshot()
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Name
	}
	return out
}

func (l *Ledger) Len() int {
	return l.records.Size()
}
