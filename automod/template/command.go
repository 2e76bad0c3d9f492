package template

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	minCounterPrefix = "le.isMinCounter "
	punkBusterPrefix = "punkbuster.pb_sv_command"
	defaultSend      = "procon.protected.send"
)

var leadingDigits = regexp.MustCompile(`\d+`)

// Turns a rendered command line into server command words.
//
// A line may start with "le.isMinCounter N", in which case it only runs once
// the player's counter is at least N. Lines not beginning with "procon." are
// sent via procon.protected.send, PunkBuster commands keep their argument as
// a single word, and everything else is split on spaces with quoted runs kept
// together.
func ParseCommandLine(line string, counter int) ([]string, bool) {
	s := strings.TrimSpace(line)
	if s == "" {
		return nil, false
	}

	if strings.HasPrefix(s, minCounterPrefix) {
		s = s[len(minCounterPrefix):]
		digits := leadingDigits.FindString(s)
		if digits == "" {
			return nil, false
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			return nil, false
		}
		if counter <= n-1 {
			return nil, false
		}
		idx := strings.Index(s, digits) + len(digits)
		s = strings.TrimSpace(s[idx:])
		if s == "" {
			return nil, false
		}
	}

	var out []string
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "procon.") {
		out = append(out, defaultSend)
	}
	if strings.HasPrefix(lower, punkBusterPrefix) {
		out = append(out, "punkBuster.pb_sv_command", strings.TrimSpace(s[len(punkBusterPrefix):]))
		return out, true
	}
	return append(out, QuotedSplit(s)...), true
}

// Splits on spaces, binding runs quoted with " or ' into one element without
// the quotes. An unterminated quoted run is kept as written.
func QuotedSplit(s string) []string {
	var out []string
	var quoted string
	var quote byte
	inQuote := false

	for _, word := range strings.Fields(s) {
		if !inQuote && (word[0] == '"' || word[0] == '\'') {
			inQuote = true
			quote = word[0]
			quoted = ""
		}
		if !inQuote {
			out = append(out, word)
			continue
		}
		if quoted == "" {
			quoted = word
		} else {
			quoted += " " + word
		}
		if len(quoted) >= 2 && quoted[len(quoted)-1] == quote {
			out = append(out, quoted[1:len(quoted)-1])
			inQuote = false
			quoted = ""
		}
	}
	if inQuote && quoted != "" {
		out = append(out, quoted)
	}
	return out
}
