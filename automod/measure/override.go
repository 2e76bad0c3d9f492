package measure

// Override adjusts ladder output for violations in one wordlist section.
//
// Message, duration and command fields left nil inherit from the resolved
// ladder step.
type Override struct {
	// Heat added per violation.
	Severity      float64
	MinimumAction ActionKind
	// Use MinimumAction even when the ladder resolved something stronger.
	ForceMinimum bool
	// Heat is clamped to at least this value after the violation is added.
	MinimumHeat float64

	Public      []string
	Private     []string
	Yell        []string
	YellSeconds *uint
	TempMinutes *uint
	Commands    []string

	// Never hand this section to the external punish system.
	NoExternalPunish bool
	// Derived for whitelisted speakers; never configured directly.
	Whitelisted bool
}

// The override used for sections without configuration.
func NoOverride() Override {
	return Override{
		Severity:      1,
		MinimumAction: Warn,
		MinimumHeat:   MinHeat,
	}
}

// Derives the transient override for a whitelisted speaker: pinned to Warn,
// no temporary duration, no external delegation and no heat. Messages carry
// over; commands fall back to the ladder step's.
func (o Override) ForWhitelist() Override {
	zero := uint(0)
	out := o
	out.Severity = 0
	out.MinimumAction = Warn
	out.ForceMinimum = true
	out.MinimumHeat = MinHeat
	out.TempMinutes = &zero
	out.Commands = nil
	out.NoExternalPunish = true
	out.Whitelisted = true
	return out
}

// Computes the effective action. A forced minimum (per-override or global)
// replaces the ladder result; otherwise the override only raises the floor.
func (o Override) Apply(base ActionKind, globalForce bool) ActionKind {
	if o.ForceMinimum || globalForce {
		return o.MinimumAction
	}
	return MaxAction(o.MinimumAction, base)
}

// Returns the ladder step with message, duration and command overrides applied.
func (o Override) Effective(m Measure) Measure {
	out := m
	if o.Public != nil {
		out.Public = o.Public
	}
	if o.Private != nil {
		out.Private = o.Private
	}
	if o.Yell != nil {
		out.Yell = o.Yell
	}
	if o.YellSeconds != nil {
		out.YellSeconds = *o.YellSeconds
	}
	if o.TempMinutes != nil {
		out.TempMinutes = *o.TempMinutes
	}
	if o.Commands != nil {
		out.Commands = o.Commands
	}
	return out
}

// Overrides maps wordlist section names to their override.
type Overrides map[string]Override

func (ovs Overrides) Resolve(section string) (Override, bool) {
	if section == "" || ovs == nil {
		return Override{}, false
	}
	o, ok := ovs[section]
	return o, ok
}

// Like Resolve, falling back to NoOverride.
func (ovs Overrides) ResolveOrDefault(section string) Override {
	if o, ok := ovs.Resolve(section); ok {
		return o
	}
	return NoOverride()
}
