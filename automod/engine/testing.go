package engine

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/langwarden/langwarden/automod/config"
	"github.com/langwarden/langwarden/automod/countstore"
	"github.com/langwarden/langwarden/automod/directory"
	"github.com/langwarden/langwarden/automod/dispatch"
	"github.com/langwarden/langwarden/automod/heat"
	"github.com/langwarden/langwarden/automod/setstore"
	"github.com/langwarden/langwarden/automod/wordlist"
)

// TestClock is a manually advanced clock.
type TestClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *TestClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *TestClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Fixture is an engine wired to in-memory stores, with its collaborators
// exposed for inspection.
type Fixture struct {
	Engine    *Engine
	Clock     *TestClock
	Directory *directory.MemDirectory
	Sets      *setstore.MemSetStore
	Counters  *countstore.MemCountStore
	Capture   *dispatch.Capture
	Notices   *dispatch.CaptureNotifier
}

var fixtureLiterals = []string{
	"badword",
	"{racism}",
	"slur",
	"{spam}",
	"free gold",
}

var fixturePatterns = []string{
	`n(o|0)(o|0)b`,
}

// Builds an engine with the default ladder and a small wordlist. The clock
// starts well past the wordlist guard warm-up.
func EngineTestFixture() *Fixture {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &TestClock{now: start}
	dir := directory.NewMemDirectory(100, time.Hour)
	sets := setstore.NewMemSetStore()
	counters := countstore.NewMemCountStore()
	counters.Now = clock.Now
	capture := &dispatch.Capture{}
	notices := &dispatch.CaptureNotifier{}

	eng := &Engine{
		Logger:     slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
		Matcher:    wordlist.NewMatcher(nil),
		Directory:  dir,
		Players:    dir,
		Sets:       sets,
		Counters:   counters,
		Dispatcher: capture,
		Notifier:   notices,
		Now:        clock.Now,
		Started:    start.Add(-time.Hour),
	}
	eng.Ledger = heat.NewLedger(eng)

	cfg := config.Default()
	cfg.Settings.SaveCounters = false
	if err := eng.Reload(cfg); err != nil {
		panic(err)
	}
	if err := eng.ReloadWordlists(fixtureLiterals, fixturePatterns); err != nil {
		panic(err)
	}
	return &Fixture{
		Engine:    eng,
		Clock:     clock,
		Directory: dir,
		Sets:      sets,
		Counters:  counters,
		Capture:   capture,
		Notices:   notices,
	}
}
