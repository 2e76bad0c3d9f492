package directory

import (
	"strings"
)

// The server's own chat identity. Always treated as an administrator.
const ServerName = "Server"

// Player is what the game-server bridge knows about a connected player.
type Player struct {
	Name     string `json:"name"`
	StableID string `json:"stable_id,omitempty"`
	// Lower-case ISO country code.
	Country string `json:"country,omitempty"`
}

// Directory is a read-only view of player identity data. It is owned and
// populated by the game-server bridge.
type Directory interface {
	StableID(name string) (string, bool)
	Country(name string) (string, bool)
	IsAdmin(name string) bool
	// Names of all cached players.
	Names() []string
}

// Writer is the bridge side of a directory.
type Writer interface {
	SetPlayer(p Player)
	Forget(name string)
	SetAdmins(names []string)
	// Drops cached player identities; admins are kept.
	Clear()
}

func key(name string) string {
	return strings.ToLower(name)
}
