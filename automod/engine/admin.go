package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	ErrPlayerNotFound  = errors.New("player not found")
	ErrAmbiguousPlayer = errors.New("player name fragment is ambiguous")
)

// Resolves a name fragment to a single player: first among players with
// heat records, then among cached players.
func (eng *Engine) FindPlayer(fragment string) (string, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return "", ErrPlayerNotFound
	}
	name, err := uniqueMatch(eng.Ledger.Names(), fragment)
	if !errors.Is(err, ErrPlayerNotFound) {
		return name, err
	}
	return uniqueMatch(eng.Directory.Names(), fragment)
}

func uniqueMatch(names []string, fragment string) (string, error) {
	frag := strings.ToLower(fragment)
	var found []string
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), frag) {
			found = append(found, n)
		}
	}
	switch len(found) {
	case 0:
		return "", ErrPlayerNotFound
	case 1:
		return found[0], nil
	}
	return "", fmt.Errorf("%w: %q matches %d players", ErrAmbiguousPlayer, fragment, len(found))
}

// Runs an in-game command. Returns false when the command was not handled,
// so the message is checked for violations like any other.
func (eng *Engine) handleCommand(ctx context.Context, p *Policy, speaker, text string) bool {
	_, size := utf8.DecodeRuneInString(text)
	msg := text[size:]
	lower := strings.ToLower(msg)

	if eng.Directory.IsAdmin(speaker) {
		if strings.HasPrefix(lower, "langreset") || strings.HasPrefix(lower, "langr ") {
			return eng.commandReset(ctx, p, speaker, msg)
		}
		if strings.HasPrefix(lower, "langcounter") || strings.HasPrefix(lower, "langc ") {
			return eng.commandCounter(ctx, p, speaker, msg)
		}
	}

	if strings.HasPrefix(lower, "langinfo") {
		commandCount.WithLabelValues("langinfo").Inc()
		eng.tell(ctx, speaker, p.Messages.LangInfo...)
		return len(msg) == len("langinfo")
	}
	return false
}

func (eng *Engine) commandReset(ctx context.Context, p *Policy, speaker, msg string) bool {
	commandCount.WithLabelValues("langreset").Inc()
	_, frag, ok := strings.Cut(msg, " ")
	if !ok {
		eng.tell(ctx, speaker, "Wrong command usage")
		return false
	}
	player, err := eng.FindPlayer(frag)
	if err != nil {
		eng.tell(ctx, speaker, "Player not found!")
		return false
	}
	if p.Settings.DisallowSelfReset && strings.EqualFold(speaker, player) {
		return false
	}

	eng.Ledger.Reset(player)
	eng.tell(ctx, player, p.Messages.CounterReset)
	eng.adminSay(ctx, fmt.Sprintf("LanguageEnforcer: Player %s now has a clean jacket", player))
	eng.Logger.Info("counter reset", "player", player, "by", speaker)
	eng.persistIfEager(ctx)
	return true
}

func (eng *Engine) commandCounter(ctx context.Context, p *Policy, speaker, msg string) bool {
	commandCount.WithLabelValues("langcounter").Inc()
	args := strings.Fields(msg)
	if len(args) != 2 && len(args) != 3 {
		eng.tell(ctx, speaker, "Wrong command usage")
		return false
	}
	player, err := eng.FindPlayer(args[1])
	if err != nil {
		eng.tell(ctx, speaker, "Player not found")
		return false
	}
	if p.Settings.DisallowSelfReset && strings.EqualFold(speaker, player) {
		return false
	}

	if len(args) == 2 {
		eng.tell(ctx, speaker, fmt.Sprintf("Counter of %s reads %d", player, eng.Counter(player)))
		return true
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(args[2], ",", "."), 64)
	if err != nil {
		eng.tell(ctx, speaker, "Wrong command usage")
		return false
	}
	h := eng.Ledger.ManuallySet(player, v, eng.now())
	eng.tell(ctx, speaker, fmt.Sprintf("Counter of %s now reads %.2f", player, h+1))
	eng.Logger.Info("counter set", "player", player, "by", speaker, "counter", v)
	eng.persistIfEager(ctx)
	return true
}
