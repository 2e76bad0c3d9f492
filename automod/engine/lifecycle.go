package engine

import (
	"context"
	"fmt"

	"github.com/langwarden/langwarden/automod/directory"
)

func (eng *Engine) cachePlayer(p directory.Player) {
	if p.Name == "" {
		return
	}
	if eng.Players != nil {
		eng.Players.SetPlayer(p)
	}
	if p.StableID != "" && eng.Ledger.Relink(p.Name, p.StableID, eng.now()) {
		eng.Logger.Info("heat moved after rename", "player", p.Name, "stable_id", p.StableID)
	}
}

// Number of players currently online, as tracked from lifecycle events.
func (eng *Engine) Online() int {
	return int(eng.online.Load())
}

func (eng *Engine) PlayerJoined(ctx context.Context, p directory.Player) {
	eng.cachePlayer(p)
	eng.online.Add(1)
}

func (eng *Engine) PlayerLeft(ctx context.Context, name string) {
	if eng.online.Add(-1) <= 0 {
		eng.online.Store(0)
		eng.cleanup(ctx)
	}
}

// Replaces the online roster with a full player list from the server.
func (eng *Engine) PlayerList(ctx context.Context, players []directory.Player) {
	for _, p := range players {
		eng.cachePlayer(p)
	}
	eng.online.Store(int64(len(players)))
	if len(players) == 0 {
		eng.cleanup(ctx)
	}
}

func (eng *Engine) SetAdmins(names []string) {
	if eng.Players != nil {
		eng.Players.SetAdmins(names)
	}
}

func (eng *Engine) RoundOver(ctx context.Context) {
	eng.sweep()
	if eng.Players != nil {
		eng.Players.Clear()
	}
	eng.persist(ctx)
}

func (eng *Engine) ServerEmpty(ctx context.Context) {
	eng.online.Store(0)
	eng.cleanup(ctx)
}

func (eng *Engine) cleanup(ctx context.Context) {
	eng.sweep()
	if eng.Players != nil {
		eng.Players.Clear()
	}
	eng.persist(ctx)
}

func (eng *Engine) sweep() {
	n := eng.Ledger.Sweep(eng.now())
	heatRecordsGauge.Set(float64(eng.Ledger.Len()))
	eng.Logger.Info("heat sweep", "evicted", n, "remaining", eng.Ledger.Len())
}

// Loads heat records from the store. Records parsed before a failure are
// kept.
func (eng *Engine) Load(ctx context.Context) error {
	if eng.Store == nil {
		return nil
	}
	recs, err := eng.Store.Load(ctx)
	eng.Ledger.Restore(recs)
	heatRecordsGauge.Set(float64(eng.Ledger.Len()))
	if err != nil {
		return fmt.Errorf("loading heat records: %w", err)
	}
	eng.Logger.Info("heat records loaded", "count", len(recs))
	return nil
}

// Writes all heat records to the store.
func (eng *Engine) Persist(ctx context.Context) error {
	if eng.Store == nil {
		return nil
	}
	eng.persistMu.Lock()
	defer eng.persistMu.Unlock()
	if err := eng.Store.Save(ctx, eng.Ledger.Snapshot()); err != nil {
		return fmt.Errorf("saving heat records: %w", err)
	}
	return nil
}

// Persists when counters are saved at all; failures are logged.
func (eng *Engine) persist(ctx context.Context) {
	if p := eng.Policy(); p == nil || !p.Settings.SaveCounters {
		return
	}
	if err := eng.Persist(ctx); err != nil {
		persistErrorCount.Inc()
		eng.Logger.Error("heat persist failed", "err", err)
	}
}

func (eng *Engine) persistIfEager(ctx context.Context) {
	if p := eng.Policy(); p != nil && p.Settings.SaveOnEveryAction {
		eng.persist(ctx)
	}
}
