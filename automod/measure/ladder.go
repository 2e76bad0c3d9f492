package measure

import (
	"errors"
	"fmt"
)

var ErrEmptyLadder = errors.New("measure ladder has no steps before ListEnd")

// Measure is one rung of the escalation ladder.
type Measure struct {
	Action ActionKind `yaml:"action" json:"action"`
	// Number of consecutive heat indexes this step covers.
	Count       uint     `yaml:"count" json:"count"`
	Public      []string `yaml:"public,omitempty" json:"public,omitempty"`
	Private     []string `yaml:"private,omitempty" json:"private,omitempty"`
	Yell        []string `yaml:"yell,omitempty" json:"yell,omitempty"`
	YellSeconds uint     `yaml:"yell_seconds" json:"yell_seconds"`
	TempMinutes uint     `yaml:"temp_minutes" json:"temp_minutes"`
	Commands    []string `yaml:"commands,omitempty" json:"commands,omitempty"`
}

// Defaults applied to measures which leave fields unset.
const (
	DefaultCount       = 1
	DefaultTempMinutes = 60
	DefaultYellSeconds = 30
)

// Ladder is an immutable ordered list of measures. The trailing ListEnd
// sentinel is implicit: the last step repeats for any heat index past the end.
type Ladder struct {
	steps []Measure
}

// Resolution is the result of looking up a heat index on the ladder.
type Resolution struct {
	Measure Measure
	// Position of Measure in the ladder.
	Position int
	// Action of the step a further violation would land on.
	Next ActionKind
}

// Builds a ladder from configured measures. Everything from the first ListEnd
// onwards is ignored.
func NewLadder(measures []Measure) (*Ladder, error) {
	steps := make([]Measure, 0, len(measures))
	for _, m := range measures {
		if m.Action == ListEnd {
			break
		}
		if m.Action < ListEnd || m.Action > ShowRules {
			return nil, fmt.Errorf("invalid action in ladder: %s", m.Action)
		}
		steps = append(steps, m)
	}
	if len(steps) == 0 {
		return nil, ErrEmptyLadder
	}
	total := uint(0)
	for _, m := range steps {
		total += m.Count
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: every step has a zero repeat count", ErrEmptyLadder)
	}
	return &Ladder{steps: steps}, nil
}

func (l *Ladder) Len() int {
	return len(l.steps)
}

// Steps returns a copy of the ladder steps, without the ListEnd sentinel.
func (l *Ladder) Steps() []Measure {
	out := make([]Measure, len(l.steps))
	copy(out, l.steps)
	return out
}

// Total number of heat indexes covered before the last step starts repeating.
func (l *Ladder) Span() int {
	total := 0
	for _, m := range l.steps {
		total += int(m.Count)
	}
	return total
}

// Returns the measure covering the heat index.
func (l *Ladder) Resolve(idx int) Measure {
	return l.ResolveWithLookahead(idx).Measure
}

// Walks the ladder accumulating repeat counts; the first step whose block
// contains idx is the match. Next is the step's own action while idx is
// inside the block (the following violation lands on the same step), the
// following step's action on the block's last index, and the step's own action
// again for the final step.
func (l *Ladder) ResolveWithLookahead(idx int) Resolution {
	blockEnd := 0
	for i, m := range l.steps {
		blockEnd += int(m.Count)
		if idx >= blockEnd {
			continue
		}
		res := Resolution{Measure: m, Position: i, Next: m.Action}
		if idx+1 >= blockEnd {
			if next, ok := l.following(i); ok {
				res.Next = next.Action
			}
		}
		return res
	}

	// past the end: last step repeats indefinitely
	last := len(l.steps) - 1
	for last > 0 && l.steps[last].Count == 0 {
		last--
	}
	m := l.steps[last]
	return Resolution{Measure: m, Position: last, Next: m.Action}
}

// next step that can actually be reached
func (l *Ladder) following(i int) (Measure, bool) {
	for j := i + 1; j < len(l.steps); j++ {
		if l.steps[j].Count > 0 {
			return l.steps[j], true
		}
	}
	return Measure{}, false
}

// Default ladder: Warn, Kill, Mute, three 2h temp mutes, a 15h temp mute, then
// permanent mute.
func DefaultLadder() []Measure {
	tempMute := func(minutes, count uint) Measure {
		msg := []string{"%player% temp muted %time% minutes for Language violation."}
		return Measure{
			Action:      TempMute,
			Count:       count,
			Public:      msg,
			Private:     msg,
			YellSeconds: DefaultYellSeconds,
			TempMinutes: minutes,
		}
	}
	return []Measure{
		{
			Action:      Warn,
			Count:       1,
			Public:      []string{"%player% warned for Language violation. {Next Time: Kill}"},
			Private:     []string{`Type "!langinfo" for more information`},
			Yell:        []string{"Watch your Language!"},
			YellSeconds: 15,
			TempMinutes: DefaultTempMinutes,
		},
		{
			Action:      Kill,
			Count:       1,
			Public:      []string{"%player% killed for Language violation. {Next Time: Mute}"},
			Private:     []string{"%player%, you risk being REMOVED if you continue using this type of language!"},
			Yell:        []string{"Watch your Language!"},
			YellSeconds: DefaultYellSeconds,
			TempMinutes: DefaultTempMinutes,
		},
		{
			Action:      Mute,
			Count:       1,
			Public:      []string{"%player% muted for Language violation. {Next Time: TempMute}"},
			Private:     []string{"%player% muted for Language violation. {Next Time: TempMute}"},
			YellSeconds: DefaultYellSeconds,
			TempMinutes: DefaultTempMinutes,
		},
		tempMute(120, 3),
		tempMute(900, 1),
		{
			Action:      PermMute,
			Count:       1,
			Public:      []string{"%player% perma muted for Language violation."},
			Private:     []string{"%player% perma muted for Language violation."},
			YellSeconds: DefaultYellSeconds,
			TempMinutes: DefaultTempMinutes,
		},
		{
			Action: ListEnd,
		},
	}
}
