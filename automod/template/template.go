package template

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	variableRegex = regexp.MustCompile(`%\w*?%`)
	nextSpanRegex = regexp.MustCompile(`\{.*?\}`)
)

// Vars are the values available to message templates.
type Vars struct {
	Player string
	Quote  string
	// Minutes for temporary actions, seconds for yells.
	Time uint
	// 1-based display counter.
	Counter int
	// Per-day cooldown rate for the player.
	Cooldown float64
}

// Formats like "0.##": at most two decimals, no trailing zeros.
func FormatCooldown(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

func (v Vars) lookup(token string, all bool) string {
	switch token {
	case "%player%":
		return v.Player
	case "%quote%":
		return v.Quote
	case "%time%":
		return strconv.FormatUint(uint64(v.Time), 10)
	}
	if !all {
		return token
	}
	switch token {
	case "%count%", "%counter%":
		return strconv.Itoa(v.Counter)
	case "%cooldown%":
		return FormatCooldown(v.Cooldown)
	}
	return token
}

func substitute(tmpl string, v Vars, all bool) string {
	if !strings.Contains(tmpl, "%") {
		return tmpl
	}
	return variableRegex.ReplaceAllStringFunc(tmpl, func(tok string) string {
		return v.lookup(tok, all)
	})
}

// Renders a message template. Variables are substituted, then each "{...}"
// span is reduced to its inner text when showNext is set and removed
// otherwise. Spans beginning with "{{" (country gates) are left in place.
func Message(tmpl string, v Vars, showNext bool) string {
	msg := substitute(tmpl, v, true)
	if !strings.Contains(msg, "{") {
		return msg
	}
	return nextSpanRegex.ReplaceAllStringFunc(msg, func(span string) string {
		if strings.HasPrefix(span, "{{") {
			return span
		}
		if showNext {
			return span[1 : len(span)-1]
		}
		return ""
	})
}

func Messages(tmpls []string, v Vars, showNext bool) []string {
	out := make([]string, len(tmpls))
	for i, t := range tmpls {
		out[i] = Message(t, v, showNext)
	}
	return out
}

// Renders a command template. Only %player%, %quote% and %time% are
// substituted; braces are left alone.
func Command(tmpl string, v Vars) string {
	return substitute(tmpl, v, false)
}
