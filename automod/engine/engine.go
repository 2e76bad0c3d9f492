package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/langwarden/langwarden/automod/config"
	"github.com/langwarden/langwarden/automod/countstore"
	"github.com/langwarden/langwarden/automod/directory"
	"github.com/langwarden/langwarden/automod/dispatch"
	"github.com/langwarden/langwarden/automod/heat"
	"github.com/langwarden/langwarden/automod/heatstore"
	"github.com/langwarden/langwarden/automod/measure"
	"github.com/langwarden/langwarden/automod/setstore"
	"github.com/langwarden/langwarden/automod/wordlist"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("warden")

// Chat channels reported by the game server.
const (
	ChannelGlobal = "global"
	ChannelTeam   = "team"
	ChannelSquad  = "squad"
)

type ChatEvent struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Channel string `json:"channel,omitempty"`
}

// Policy is the configuration-derived state swapped as a whole on reload.
type Policy struct {
	Settings  config.Settings
	Messages  config.Messages
	Quotas    config.Quotas
	Ladder    *measure.Ladder
	Overrides measure.Overrides
	Loader    wordlist.Loader
}

// Engine checks chat against the wordlist and escalates offenders along the
// measure ladder.
//
// Directory, Sets, Counters, Ledger, Matcher and Dispatcher must be set, and
// Reload called, before processing events. Players, Store and Notifier are
// optional.
type Engine struct {
	Logger     *slog.Logger
	Matcher    *wordlist.Matcher
	Ledger     *heat.Ledger
	Directory  directory.Directory
	Players    directory.Writer
	Sets       setstore.SetStore
	Counters   countstore.CountStore
	Store      heatstore.HeatStore
	Dispatcher dispatch.Dispatcher
	Notifier   dispatch.Notifier
	// Defaults to time.Now.
	Now func() time.Time
	// Start of the wordlist guard warm-up.
	Started time.Time

	policy    atomic.Pointer[Policy]
	online    atomic.Int64
	persistMu sync.Mutex
	notices   sync.WaitGroup
}

const notifyTimeout = 5 * time.Second

func (eng *Engine) now() time.Time {
	if eng.Now != nil {
		return eng.Now()
	}
	return time.Now()
}

func (eng *Engine) Policy() *Policy {
	return eng.policy.Load()
}

// Validates and installs a configuration. The previous policy stays active
// when the new one is invalid.
func (eng *Engine) Reload(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	ladder, err := cfg.Ladder()
	if err != nil {
		return err
	}
	eng.policy.Store(&Policy{
		Settings:  cfg.Settings,
		Messages:  cfg.Messages,
		Quotas:    cfg.Quotas,
		Ladder:    ladder,
		Overrides: cfg.MeasureOverrides(),
		Loader:    cfg.Loader(eng.Started),
	})
	if r, ok := eng.Sets.(interface{ Replace(string, []string) }); ok && cfg.Whitelist != nil {
		r.Replace(setstore.WhitelistSet, cfg.Whitelist)
	}
	eng.Logger.Info("policy loaded", "measures", ladder.Len(), "overrides", len(cfg.Overrides))
	return nil
}

// Installs new wordlists. A guard rejection keeps the previous lists and
// returns an error wrapping wordlist.ErrUnsafePattern; bad entries are
// skipped and reported, with the rest installed.
func (eng *Engine) ReloadWordlists(literals, patterns []string) error {
	p := eng.Policy()
	l, err := p.Loader.Load(literals, patterns, eng.now())
	if l == nil {
		wordlistRejections.Inc()
		eng.Logger.Error("wordlist rejected, keeping previous lists", "err", err)
		return err
	}
	eng.Matcher.Replace(l)
	if err != nil {
		eng.Logger.Warn("wordlist entries skipped", "err", err)
	}
	eng.Logger.Info("wordlists loaded", "literals", len(l.Literals), "patterns", len(l.Patterns))
	return err
}

// CooldownRate implements heat.CooldownPolicy from the active policy.
func (eng *Engine) CooldownRate(name string) float64 {
	p := eng.Policy()
	if p == nil {
		return heat.DefaultRate
	}
	return heat.TieredCooldown{
		Rate:      p.Settings.Cooldown,
		AdminRate: p.Settings.AdminCooldown,
		Admins:    eng.Directory,
	}.CooldownRate(name)
}

// Result describes what happened to one chat event.
type Result struct {
	// Handled as a command; no violation check was done.
	Command     bool
	Violation   bool
	Match       wordlist.Match
	Whitelisted bool
	Decision    Decision
}

func isCommand(text, prefixes string) bool {
	r, size := utf8.DecodeRuneInString(text)
	return size > 0 && strings.ContainsRune(prefixes, r)
}

// Processes one chat line. Failures are logged; nothing propagates to the
// event loop.
func (eng *Engine) ProcessChat(ctx context.Context, evt ChatEvent) (res Result) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "ProcessChat", trace.WithAttributes(
		attribute.String("speaker", evt.Speaker),
		attribute.String("channel", evt.Channel),
	))
	defer func() {
		// similar to an HTTP server, we want to recover any panics from processing
		if r := recover(); r != nil {
			chatErrorCount.Inc()
			span.SetStatus(codes.Error, fmt.Sprint(r))
			eng.Logger.Error("chat processing exception", "err", r, "speaker", evt.Speaker)
		}
		span.End()
		chatProcessDuration.Observe(time.Since(start).Seconds())
	}()
	chatProcessCount.WithLabelValues(channelLabel(evt.Channel)).Inc()

	p := eng.Policy()
	cmd := isCommand(evt.Text, p.Settings.CommandPrefixes)

	if evt.Channel == ChannelSquad && p.Settings.IgnoreSquadChat {
		if cmd {
			res.Command = eng.handleCommand(ctx, p, evt.Speaker, evt.Text)
		}
		return res
	}
	if cmd && eng.handleCommand(ctx, p, evt.Speaker, evt.Text) {
		res.Command = true
		return res
	}

	if evt.Speaker == directory.ServerName {
		return res
	}

	admin := eng.Directory.IsAdmin(evt.Speaker)
	listed, err := eng.Sets.InSet(ctx, setstore.WhitelistSet, evt.Speaker)
	if err != nil {
		eng.Logger.Warn("whitelist lookup failed", "speaker", evt.Speaker, "err", err)
	}
	res.Whitelisted = (p.Settings.WhitelistAdmins && admin) || listed
	if res.Whitelisted && !p.Settings.WarnWhitelisted {
		return res
	}

	m, ok := eng.Matcher.FindViolation(evt.Text)
	if !ok {
		return res
	}
	res.Violation = true
	res.Match = m
	span.SetAttributes(attribute.String("section", m.Section), attribute.String("phrase", m.Phrase))
	violationCount.WithLabelValues(sectionLabel(m.Section)).Inc()
	if err := eng.Counters.Increment(ctx, countstore.CounterViolations, sectionLabel(m.Section)); err != nil {
		eng.Logger.Warn("violation counter failed", "err", err)
	}

	ov := p.Overrides.ResolveOrDefault(m.Section)
	if res.Whitelisted {
		ov = ov.ForWhitelist()
	}

	if p.Settings.LogViolations {
		eng.send(ctx, dispatch.Request{
			Command:  dispatch.CommandLog,
			Target:   evt.Speaker,
			TargetID: eng.stableID(evt.Speaker),
			Reason:   fmt.Sprintf("Violation - Message: %s - Match: %s", evt.Text, m.Phrase),
			IssuedAt: eng.now(),
		})
	}

	logger := eng.Logger.With("player", evt.Speaker, "phrase", m.Phrase, "section", m.Section)
	res.Decision = eng.takeMeasure(ctx, p, logger, evt.Speaker, evt.Text, ov)
	span.SetAttributes(attribute.String("action", res.Decision.Action.String()))
	return res
}

// Applies the ladder's next measure to a player as if they had violated the
// policy, regardless of whitelisting. An empty quote is recorded as an admin
// trigger.
func (eng *Engine) Punish(ctx context.Context, name, stableID, quote string) Decision {
	if quote == "" {
		quote = "(Triggered by Admin)"
	}
	eng.cachePlayer(directory.Player{Name: name, StableID: stableID})
	p := eng.Policy()
	logger := eng.Logger.With("player", name, "source", "remote")
	return eng.takeMeasure(ctx, p, logger, name, quote, measure.NoOverride())
}

// Clears a player's heat and tells the online admins.
func (eng *Engine) ResetPlayer(ctx context.Context, name, stableID string) {
	eng.cachePlayer(directory.Player{Name: name, StableID: stableID})
	eng.Ledger.Reset(name)
	eng.adminSay(ctx, fmt.Sprintf("LanguageEnforcer: Player %s now has a clean jacket", name))
	eng.persistIfEager(ctx)
}

// Display counter for a player; 0 when they have no record.
func (eng *Engine) Counter(name string) int {
	return eng.Ledger.Counter(name, eng.now())
}

func (eng *Engine) stableID(name string) string {
	id, _ := eng.Directory.StableID(name)
	return id
}

func (eng *Engine) send(ctx context.Context, req dispatch.Request) {
	if err := eng.Dispatcher.Dispatch(ctx, req); err != nil {
		actionErrorCount.WithLabelValues(req.Command).Inc()
		eng.Logger.Error("dispatch failed", "command", req.Command, "target", req.Target, "err", err)
	}
}

// Notices go out on their own goroutine so a slow webhook never holds up
// chat processing.
func (eng *Engine) notify(ctx context.Context, msg string) {
	if eng.Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	eng.notices.Add(1)
	go func() {
		defer eng.notices.Done()
		defer cancel()
		if err := eng.Notifier.Notify(ctx, msg); err != nil && !errors.Is(err, dispatch.ErrNotifyLimited) {
			eng.Logger.Warn("admin notice failed", "err", err)
		}
	}()
}

// Blocks until pending admin notices are sent.
func (eng *Engine) Wait() {
	eng.notices.Wait()
}

func channelLabel(ch string) string {
	switch ch {
	case ChannelGlobal, ChannelTeam, ChannelSquad:
		return ch
	}
	return "other"
}

func sectionLabel(section string) string {
	if section == "" {
		return "none"
	}
	return section
}
