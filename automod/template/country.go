package template

import (
	"slices"
	"strings"
)

// Placeholder country for players whose country is not known.
const UnknownCountry = "??"

// Gate restricts a message to (or, with Exclude, away from) a set of
// lower-case country codes.
type Gate struct {
	Countries []string `json:"countries"`
	Exclude   bool     `json:"exclude,omitempty"`
}

func (g Gate) Allows(country string) bool {
	return slices.Contains(g.Countries, strings.ToLower(country)) != g.Exclude
}

// Splits a "{{at,ch}}text" or "{{-at,ch}}text" message into its gate and
// body. Messages without a complete gate prefix return false.
func ParseGate(msg string) (Gate, string, bool) {
	if !strings.HasPrefix(msg, "{{") {
		return Gate{}, msg, false
	}
	rest := msg[2:]
	end := strings.Index(rest, "}}")
	if end < 0 {
		return Gate{}, msg, false
	}
	list := rest[:end]
	body := rest[end+2:]

	g := Gate{}
	if strings.HasPrefix(list, "-") {
		g.Exclude = true
		list = list[1:]
	}
	for _, c := range strings.Split(strings.ToLower(list), ",") {
		g.Countries = append(g.Countries, strings.TrimSpace(c))
	}
	return g, body, true
}

// Reports a message opening with "{{" that has no closing "}}". Such messages
// are never delivered.
func MalformedGate(msg string) bool {
	_, _, ok := ParseGate(msg)
	return !ok && strings.HasPrefix(msg, "{{")
}

// Decides whether a message addressed to one player is delivered, returning
// the body without its gate. Gated messages are dropped when the player's
// country is unknown.
func ForPlayer(msg, country string, known bool) (string, bool) {
	g, body, ok := ParseGate(msg)
	if !ok {
		if MalformedGate(msg) {
			return "", false
		}
		return msg, true
	}
	if !known || !g.Allows(country) {
		return "", false
	}
	return body, true
}

// Picks the action reason: the first ungated message, or the body of the
// first gated message allowing the player's country. Falls back to the first
// message as written.
func Reason(msgs []string, country string) string {
	if country == "" {
		country = UnknownCountry
	}
	for _, m := range msgs {
		g, body, ok := ParseGate(m)
		if !ok {
			if MalformedGate(m) {
				continue
			}
			return m
		}
		if g.Allows(country) {
			return body
		}
	}
	if len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}
