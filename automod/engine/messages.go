package engine

import (
	"context"
	"strings"

	"github.com/langwarden/langwarden/automod/directory"
	"github.com/langwarden/langwarden/automod/dispatch"
	"github.com/langwarden/langwarden/automod/template"
)

func (eng *Engine) country(name string) string {
	if c, ok := eng.Directory.Country(name); ok {
		return c
	}
	return template.UnknownCountry
}

// Public messages. A country-gated message becomes a private message to each
// cached player it allows. Unterminated gates are dropped.
func (eng *Engine) say(msgs []string) []dispatch.Message {
	var out []dispatch.Message
	for _, m := range msgs {
		if template.MalformedGate(m) {
			continue
		}
		g, body, ok := template.ParseGate(m)
		if !ok {
			out = append(out, dispatch.Message{Channel: dispatch.ChannelPublic, Text: m})
			continue
		}
		for _, name := range eng.Directory.Names() {
			if c, known := eng.Directory.Country(name); known && g.Allows(c) {
				out = append(out, dispatch.Message{Channel: dispatch.ChannelPrivate, To: name, Text: body})
			}
		}
	}
	return out
}

func (eng *Engine) playerSay(name string, msgs []string) []dispatch.Message {
	return eng.toPlayer(name, msgs, dispatch.ChannelPrivate, 0)
}

func (eng *Engine) playerYell(name string, msgs []string, seconds uint) []dispatch.Message {
	return eng.toPlayer(name, msgs, dispatch.ChannelYell, seconds)
}

func (eng *Engine) toPlayer(name string, msgs []string, ch dispatch.Channel, seconds uint) []dispatch.Message {
	c, known := eng.Directory.Country(name)
	var out []dispatch.Message
	for _, m := range msgs {
		body, ok := template.ForPlayer(m, c, known)
		if !ok {
			continue
		}
		out = append(out, dispatch.Message{Channel: ch, To: name, Text: body, YellSeconds: seconds})
	}
	return out
}

// Sends informational lines to one player. Next-time spans are dropped.
func (eng *Engine) tell(ctx context.Context, name string, lines ...string) {
	vars := template.Vars{
		Player:   name,
		Counter:  eng.Counter(name),
		Cooldown: eng.CooldownRate(name),
	}
	msgs := eng.playerSay(name, template.Messages(lines, vars, false))
	if len(msgs) == 0 {
		return
	}
	eng.send(ctx, dispatch.Request{
		Command:  dispatch.CommandMessage,
		Target:   name,
		Messages: msgs,
		IssuedAt: eng.now(),
	})
}

// Tells every cached admin, and forwards to the notifier.
func (eng *Engine) adminSay(ctx context.Context, msg string) {
	for _, name := range eng.Directory.Names() {
		if name != directory.ServerName && eng.Directory.IsAdmin(name) {
			eng.tell(ctx, name, msg)
		}
	}
	eng.notify(ctx, strings.TrimPrefix(msg, "LanguageEnforcer: "))
}
