package measure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLadderResolution(t *testing.T) {
	assert := assert.New(t)

	l, err := NewLadder(DefaultLadder())
	assert.NoError(err)
	assert.Equal(6, l.Len())
	assert.Equal(8, l.Span())

	fixtures := []struct {
		idx     int
		action  ActionKind
		minutes uint
		next    ActionKind
	}{
		// only reachable with zero severity; index+1 stays inside the first step
		{idx: -1, action: Warn, next: Warn},
		{idx: 0, action: Warn, next: Kill},
		{idx: 1, action: Kill, next: Mute},
		{idx: 2, action: Mute, next: TempMute},
		{idx: 3, action: TempMute, minutes: 120, next: TempMute},
		{idx: 4, action: TempMute, minutes: 120, next: TempMute},
		{idx: 5, action: TempMute, minutes: 120, next: TempMute},
		{idx: 6, action: TempMute, minutes: 900, next: PermMute},
		{idx: 7, action: PermMute, next: PermMute},
		{idx: 8, action: PermMute, next: PermMute},
		{idx: 50, action: PermMute, next: PermMute},
	}

	for _, fix := range fixtures {
		res := l.ResolveWithLookahead(fix.idx)
		assert.Equal(fix.action, res.Measure.Action, "idx=%d", fix.idx)
		assert.Equal(fix.next, res.Next, "idx=%d", fix.idx)
		if fix.minutes > 0 {
			assert.Equal(fix.minutes, res.Measure.TempMinutes, "idx=%d", fix.idx)
		}
	}

	assert.Equal(5, l.ResolveWithLookahead(8).Position)
	assert.Equal(Kill, l.Resolve(1).Action)
}

func TestLadderValidation(t *testing.T) {
	assert := assert.New(t)

	_, err := NewLadder(nil)
	assert.ErrorIs(err, ErrEmptyLadder)

	_, err = NewLadder([]Measure{{Action: ListEnd}, {Action: Warn, Count: 1}})
	assert.ErrorIs(err, ErrEmptyLadder)

	_, err = NewLadder([]Measure{{Action: Warn, Count: 0}})
	assert.ErrorIs(err, ErrEmptyLadder)

	// anything after the sentinel is ignored
	l, err := NewLadder([]Measure{{Action: Warn, Count: 1}, {Action: ListEnd}, {Action: PermBan, Count: 1}})
	assert.NoError(err)
	assert.Equal(1, l.Len())
	assert.Equal(Warn, l.Resolve(10).Action)
}

func TestLadderSkipsZeroCountSteps(t *testing.T) {
	assert := assert.New(t)

	l, err := NewLadder([]Measure{
		{Action: Warn, Count: 2},
		{Action: Kick, Count: 0},
		{Action: TempBan, Count: 1},
		{Action: PermBan, Count: 0},
	})
	assert.NoError(err)

	res := l.ResolveWithLookahead(0)
	assert.Equal(Warn, res.Measure.Action)
	assert.Equal(Warn, res.Next)

	res = l.ResolveWithLookahead(1)
	assert.Equal(Warn, res.Measure.Action)
	assert.Equal(TempBan, res.Next)

	res = l.ResolveWithLookahead(2)
	assert.Equal(TempBan, res.Measure.Action)
	assert.Equal(TempBan, res.Next)

	res = l.ResolveWithLookahead(9)
	assert.Equal(TempBan, res.Measure.Action)
	assert.Equal(2, res.Position)
}

func TestConversions(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(-1, HeatToIndex(-1))
	assert.Equal(0, HeatToIndex(-0.5))
	assert.Equal(0, HeatToIndex(0))
	assert.Equal(1, HeatToIndex(0.01))
	assert.Equal(3, HeatToIndex(2.5))

	assert.Equal(1, IndexToDisplayCounter(-1))
	assert.Equal(1, IndexToDisplayCounter(0))
	assert.Equal(4, IndexToDisplayCounter(3))

	assert.Equal(2.0, DisplayCounterToHeat(3))
}

func TestOverrideApply(t *testing.T) {
	assert := assert.New(t)

	kick := NoOverride()
	kick.MinimumAction = Kick

	// floor only
	assert.Equal(Kick, kick.Apply(Warn, false))
	assert.Equal(PermBan, kick.Apply(PermBan, false))

	// forced
	kick.ForceMinimum = true
	assert.Equal(Kick, kick.Apply(PermBan, false))

	// global policy forces the minimum too
	none := NoOverride()
	assert.Equal(TempMute, none.Apply(TempMute, false))
	assert.Equal(Warn, none.Apply(TempMute, true))
}

func TestOverrideWhitelist(t *testing.T) {
	assert := assert.New(t)

	minutes := uint(300)
	o := Override{
		Severity:      3,
		MinimumAction: TempBan,
		MinimumHeat:   4,
		Public:        []string{"custom"},
		TempMinutes:   &minutes,
	}
	wl := o.ForWhitelist()

	assert.True(wl.Whitelisted)
	assert.True(wl.NoExternalPunish)
	assert.True(wl.ForceMinimum)
	assert.Equal(0.0, wl.Severity)
	assert.Equal(MinHeat, wl.MinimumHeat)
	assert.Equal(Warn, wl.Apply(PermBan, false))
	assert.Equal(uint(0), *wl.TempMinutes)
	assert.Equal([]string{"custom"}, wl.Public)

	// the stored override is untouched
	assert.Equal(TempBan, o.MinimumAction)
	assert.Equal(uint(300), *o.TempMinutes)
	assert.False(o.Whitelisted)
}

func TestOverrideEffective(t *testing.T) {
	assert := assert.New(t)

	m := Measure{
		Action:      TempMute,
		Public:      []string{"pub"},
		Private:     []string{"priv"},
		YellSeconds: 30,
		TempMinutes: 120,
	}
	minutes := uint(5)
	o := NoOverride()
	o.Private = []string{"override"}
	o.TempMinutes = &minutes

	eff := o.Effective(m)
	assert.Equal([]string{"pub"}, eff.Public)
	assert.Equal([]string{"override"}, eff.Private)
	assert.Equal(uint(30), eff.YellSeconds)
	assert.Equal(uint(5), eff.TempMinutes)
	assert.Equal(uint(120), m.TempMinutes)
}

func TestOverridesResolve(t *testing.T) {
	assert := assert.New(t)

	ovs := Overrides{"racism": {Severity: 2, MinimumAction: Kick}}

	o, ok := ovs.Resolve("racism")
	assert.True(ok)
	assert.Equal(2.0, o.Severity)

	_, ok = ovs.Resolve("")
	assert.False(ok)

	assert.Equal(NoOverride(), ovs.ResolveOrDefault("other"))
}

func TestParseActionKind(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		s   string
		out ActionKind
		err bool
	}{
		{s: "Warn", out: Warn},
		{s: "tempmute", out: TempMute},
		{s: "TBan", out: TempBan},
		{s: "PermaMute", out: PermMute},
		{s: "PermaForceMute", out: PermForceMute},
		{s: "ListEnd", out: ListEnd},
		{s: "bogus", err: true},
	}

	for _, fix := range fixtures {
		k, err := ParseActionKind(fix.s)
		if fix.err {
			assert.Error(err, fix.s)
			continue
		}
		assert.NoError(err, fix.s)
		assert.Equal(fix.out, k, fix.s)
	}

	var k ActionKind
	assert.NoError(k.UnmarshalText([]byte("Kick")))
	assert.Equal(Kick, k)
	assert.Equal("Kick", k.String())
	assert.True(PermBan > TempBan)
	assert.True(ListEnd < Warn)
}
