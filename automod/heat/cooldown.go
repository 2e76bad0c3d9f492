package heat

// Heat removed per day, for both tiers.
const DefaultRate = 3.0

// CooldownPolicy returns the per-day decay rate for a player.
type CooldownPolicy interface {
	CooldownRate(name string) float64
}

type FlatCooldown float64

func (f FlatCooldown) CooldownRate(string) float64 {
	return float64(f)
}

type AdminChecker interface {
	IsAdmin(name string) bool
}

// TieredCooldown applies AdminRate to administrators and Rate to everyone
// else.
type TieredCooldown struct {
	Rate      float64
	AdminRate float64
	Admins    AdminChecker
}

func (c TieredCooldown) CooldownRate(name string) float64 {
	if c.Admins != nil && c.Admins.IsAdmin(name) {
		return c.AdminRate
	}
	return c.Rate
}
