package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/langwarden/langwarden/automod/countstore"
	"github.com/langwarden/langwarden/automod/dispatch"
	"github.com/langwarden/langwarden/automod/measure"
	"github.com/langwarden/langwarden/automod/template"
)

// Quota counter key for ban-class actions.
const quotaBansKey = "bans"

// Decision is the outcome of applying one violation to a player.
type Decision struct {
	HeatBefore float64
	Heat       float64
	Index      int
	Counter    int
	// Ladder step action, before the override.
	Base   measure.ActionKind
	Action measure.ActionKind
	Next   measure.ActionKind
	// Handed to the external punish system.
	Delegated bool
	// A ban was downgraded by the daily quota.
	CircuitBroken bool
	Request       dispatch.Request
}

// Updates heat for the violation, resolves the measure and dispatches it.
func (eng *Engine) takeMeasure(ctx context.Context, p *Policy, logger *slog.Logger, name, quote string, ov measure.Override) Decision {
	now := eng.now()
	// whitelisted speakers never touch the ledger
	id, linked := eng.Directory.StableID(name)
	if linked && !ov.Whitelisted {
		// a rename seen only by the directory still carries the old heat over
		eng.Ledger.Relink(name, id, now)
	}
	d := Decision{HeatBefore: eng.Ledger.GetDecayedHeat(name, now)}
	if ov.Whitelisted {
		d.Heat = d.HeatBefore
	} else {
		d.Heat = eng.Ledger.RecordViolation(name, ov.Severity, ov.MinimumHeat, now)
		if linked {
			eng.Ledger.SetStableID(name, id)
		}
	}
	d.Index = measure.HeatToIndex(d.Heat)
	d.Counter = measure.IndexToDisplayCounter(d.Index)

	res := p.Ladder.ResolveWithLookahead(d.Index)
	step := ov.Effective(res.Measure)
	d.Base = step.Action
	d.Next = res.Next
	d.Action = ov.Apply(step.Action, p.Settings.UseExternalPunish)
	showNext := step.Action != res.Next

	if d.Action.IsBan() && !ov.Whitelisted {
		d.Action, d.CircuitBroken = eng.circuitBreakBan(ctx, p, name, d.Action)
	}

	vars := template.Vars{
		Player:   name,
		Quote:    quote,
		Counter:  d.Counter,
		Cooldown: eng.CooldownRate(name),
	}
	req := dispatch.Request{
		Action:   d.Action,
		Target:   name,
		TargetID: eng.stableID(name),
		Forced:   ov.ForceMinimum || p.Settings.UseExternalPunish,
		IssuedAt: now,
	}

	if p.Settings.UseExternalPunish && !ov.Whitelisted && !ov.NoExternalPunish {
		vars.Time = step.TempMinutes
		d.Delegated = true
		req.Command = dispatch.CommandPunish
		req.Delegated = true
		req.Reason = strings.Join(template.Messages(step.Public, vars, false), " ")
	} else {
		eng.renderMeasure(&req, step, vars, showNext)
	}
	req.Commands = eng.renderCommands(name, step.Commands, vars)
	d.Request = req

	if req.Command != dispatch.CommandMessage || len(req.Messages) > 0 || len(req.Commands) > 0 {
		eng.send(ctx, req)
	}
	actionCount.WithLabelValues(d.Action.String()).Inc()
	eng.countAction(ctx, name, d)

	logger.Info("language violation",
		"heat_before", d.HeatBefore,
		"heat", d.Heat,
		"index", d.Index,
		"counter", d.Counter,
		"base", d.Base.String(),
		"action", d.Action.String(),
		"next", d.Next.String(),
		"delegated", d.Delegated,
		"whitelisted", ov.Whitelisted,
	)
	if d.Action == measure.Warn {
		logger.Info("player warned", "stable_id", req.TargetID)
	}

	if !ov.Whitelisted {
		eng.persistIfEager(ctx)
	}
	return d
}

// Fills in the command, reason, duration and messages for a ladder action.
func (eng *Engine) renderMeasure(req *dispatch.Request, step measure.Measure, vars template.Vars, showNext bool) {
	name := req.Target
	country := eng.country(name)

	switch req.Action {
	case measure.Warn, measure.Kill:
		if req.Action == measure.Kill {
			priv := vars
			priv.Time = 0
			req.Reason = template.Reason(template.Messages(step.Private, priv, showNext), country)
		}
		vars.Time = step.YellSeconds
		req.Messages = append(req.Messages, eng.say(template.Messages(step.Public, vars, showNext))...)
		req.Messages = append(req.Messages, eng.playerSay(name, template.Messages(step.Private, vars, showNext))...)
		req.Messages = append(req.Messages, eng.playerYell(name, template.Messages(step.Yell, vars, showNext), step.YellSeconds)...)
	case measure.ShowRules:
		req.Reason = "Telling Player Rules"
	case measure.Custom:
	default:
		vars.Time = 0
		if req.Action.IsTemporary() {
			vars.Time = step.TempMinutes
		}
		req.Messages = append(req.Messages, eng.say(template.Messages(step.Public, vars, showNext))...)
		req.Reason = template.Reason(template.Messages(step.Private, vars, showNext), country)
	}
	req.Command, req.DurationMinutes = dispatch.CommandFor(req.Action, step.TempMinutes)
}

// Runs command templates through substitution and the command-line parser.
// Commands see the stored heat, floored, as their counter.
func (eng *Engine) renderCommands(name string, cmds []string, vars template.Vars) [][]string {
	if len(cmds) == 0 {
		return nil
	}
	counter := 0
	if rec, ok := eng.Ledger.Get(name); ok {
		counter = int(math.Floor(rec.Heat))
	}
	vars.Time = 0
	vars.Quote = ""
	var out [][]string
	for _, c := range cmds {
		args, ok := template.ParseCommandLine(template.Command(c, vars), counter)
		if ok {
			out = append(out, args)
		}
	}
	return out
}

// Downgrades a ban to a kick once the daily quota is used up.
func (eng *Engine) circuitBreakBan(ctx context.Context, p *Policy, name string, act measure.ActionKind) (measure.ActionKind, bool) {
	if p.Quotas.BansPerDay <= 0 {
		return act, false
	}
	c, err := eng.Counters.GetCount(ctx, countstore.CounterQuota, quotaBansKey, countstore.PeriodDay)
	if err != nil {
		eng.Logger.Error("ban quota lookup failed", "err", err)
		return act, false
	}
	if c >= p.Quotas.BansPerDay {
		circuitBreakCount.WithLabelValues(act.String()).Inc()
		eng.Logger.Warn("CIRCUIT BREAKER: daily ban quota reached", "player", name, "action", act.String())
		eng.notify(ctx, fmt.Sprintf("ban quota of %d per day reached; %s for %s downgraded to Kick", p.Quotas.BansPerDay, act, name))
		return measure.Kick, true
	}
	if err := eng.Counters.Increment(ctx, countstore.CounterQuota, quotaBansKey); err != nil {
		eng.Logger.Error("ban quota increment failed", "err", err)
	}
	return act, false
}

func (eng *Engine) countAction(ctx context.Context, name string, d Decision) {
	act := d.Action.String()
	if err := eng.Counters.Increment(ctx, countstore.CounterActions, act); err != nil {
		eng.Logger.Warn("action counter failed", "err", err)
		return
	}
	if err := eng.Counters.IncrementDistinct(ctx, countstore.CounterOffenders, act, strings.ToLower(name)); err != nil {
		eng.Logger.Warn("offender counter failed", "err", err)
	}
}
