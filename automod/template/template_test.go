package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessage(t *testing.T) {
	assert := assert.New(t)

	v := Vars{Player: "Bob", Quote: "you idiot", Time: 120, Counter: 3, Cooldown: 2.5}

	fixtures := []struct {
		tmpl     string
		showNext bool
		out      string
	}{
		{tmpl: "%player% warned. {Next: Kill}", showNext: true, out: "Bob warned. Next: Kill"},
		{tmpl: "%player% warned. {Next: Kill}", showNext: false, out: "Bob warned. "},
		{tmpl: "muted %time% minutes", out: "muted 120 minutes"},
		{tmpl: "counter %count% / %counter%", out: "counter 3 / 3"},
		{tmpl: "decays by %cooldown% daily", out: "decays by 2.5 daily"},
		{tmpl: `you said "%quote%"`, out: `you said "you idiot"`},
		{tmpl: "%unknown% stays", out: "%unknown% stays"},
		{tmpl: "{{at,ch}} %player% {next}", showNext: true, out: "{{at,ch}} Bob next"},
		{tmpl: "{{-de}}hallo {weiter}", showNext: false, out: "{{-de}}hallo "},
		{tmpl: "{a} and {b}", showNext: true, out: "a and b"},
		{tmpl: "no templates here", out: "no templates here"},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.out, Message(fix.tmpl, v, fix.showNext), fix.tmpl)
	}

	assert.Equal([]string{"Bob", "120"}, Messages([]string{"%player%", "%time%"}, v, false))
}

func TestCommand(t *testing.T) {
	assert := assert.New(t)

	v := Vars{Player: "Bob", Quote: "", Counter: 4, Cooldown: 3}
	assert.Equal("admin.killPlayer Bob", Command("admin.killPlayer %player%", v))
	// counter and braces are not part of command rendering
	assert.Equal("say %count% {x} 0", Command("say %count% {x} %time%", v))
}

func TestFormatCooldown(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("3", FormatCooldown(3))
	assert.Equal("2.5", FormatCooldown(2.5))
	assert.Equal("0.33", FormatCooldown(1.0/3))
	assert.Equal("0", FormatCooldown(0))
}

func TestParseGate(t *testing.T) {
	assert := assert.New(t)

	g, body, ok := ParseGate("{{AT,ch}}Servus")
	assert.True(ok)
	assert.Equal(Gate{Countries: []string{"at", "ch"}}, g)
	assert.Equal("Servus", body)
	assert.True(g.Allows("at"))
	assert.True(g.Allows("CH"))
	assert.False(g.Allows("de"))

	g, body, ok = ParseGate("{{-de}}Hello")
	assert.True(ok)
	assert.True(g.Exclude)
	assert.Equal("Hello", body)
	assert.False(g.Allows("de"))
	assert.True(g.Allows("us"))

	_, body, ok = ParseGate("{{broken")
	assert.False(ok)
	assert.Equal("{{broken", body)

	_, _, ok = ParseGate("plain")
	assert.False(ok)
}

func TestForPlayer(t *testing.T) {
	assert := assert.New(t)

	msg, ok := ForPlayer("plain", "", false)
	assert.True(ok)
	assert.Equal("plain", msg)

	msg, ok = ForPlayer("{{at}}Servus", "at", true)
	assert.True(ok)
	assert.Equal("Servus", msg)

	_, ok = ForPlayer("{{at}}Servus", "de", true)
	assert.False(ok)

	// unknown country drops gated messages, even excluding ones
	_, ok = ForPlayer("{{-at}}Hello", "", false)
	assert.False(ok)

	// an unterminated gate is never delivered
	_, ok = ForPlayer("{{at Servus", "at", true)
	assert.False(ok)
	assert.True(MalformedGate("{{at Servus"))
	assert.False(MalformedGate("{{at}}Servus"))
	assert.False(MalformedGate("plain"))
}

func TestReason(t *testing.T) {
	assert := assert.New(t)

	msgs := []string{"{{de,at}}Sprache!", "{{-de,at}}Language!"}
	assert.Equal("Sprache!", Reason(msgs, "de"))
	assert.Equal("Language!", Reason(msgs, "us"))
	assert.Equal("Language!", Reason(msgs, ""))

	assert.Equal("first", Reason([]string{"first", "second"}, "de"))
	assert.Equal("{{fr}}Langue!", Reason([]string{"{{fr}}Langue!"}, "de"))
	assert.Equal("", Reason(nil, "de"))
}

func TestParseCommandLine(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		line    string
		counter int
		ok      bool
		out     []string
	}{
		{line: "", ok: false},
		{line: "admin.killPlayer Bob", ok: true, out: []string{"procon.protected.send", "admin.killPlayer", "Bob"}},
		{line: "procon.protected.tasks.add 1 1 1", ok: true, out: []string{"procon.protected.tasks.add", "1", "1", "1"}},
		{line: `vars.serverName "OFc Server - no nubs"`, ok: true, out: []string{"procon.protected.send", "vars.serverName", "OFc Server - no nubs"}},
		{line: `punkBuster.pb_sv_command pb_sv_getss "Bob"`, ok: true, out: []string{"procon.protected.send", "punkBuster.pb_sv_command", `pb_sv_getss "Bob"`}},
		{line: "le.isMinCounter 3 admin.kickPlayer Bob", counter: 2, ok: false},
		{line: "le.isMinCounter 3 admin.kickPlayer Bob", counter: 3, ok: true, out: []string{"procon.protected.send", "admin.kickPlayer", "Bob"}},
		{line: "le.isMinCounter x", counter: 9, ok: false},
	}

	for _, fix := range fixtures {
		out, ok := ParseCommandLine(fix.line, fix.counter)
		assert.Equal(fix.ok, ok, fix.line)
		if fix.ok {
			assert.Equal(fix.out, out, fix.line)
		}
	}
}

func TestQuotedSplit(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([]string{"a", "b c", "d"}, QuotedSplit(`a "b c" d`))
	assert.Equal([]string{"a", "b c"}, QuotedSplit(`a 'b c'`))
	assert.Equal([]string{"x", `"open ended`}, QuotedSplit(`x "open ended`))
	assert.Empty(QuotedSplit("   "))
}
