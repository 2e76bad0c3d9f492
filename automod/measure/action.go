package measure

import (
	"fmt"
	"strings"
)

// ActionKind is the enforcement applied by one ladder step. Declaration order
// is severity order; ListEnd is the terminal sentinel and sorts lowest.
type ActionKind int

const (
	ListEnd ActionKind = iota
	Warn
	Kill
	Kick
	TempBan
	PermBan
	Mute
	TempMute
	PermMute
	TempForceMute
	PermForceMute
	Custom
	ShowRules
)

var actionNames = []string{
	ListEnd:       "ListEnd",
	Warn:          "Warn",
	Kill:          "Kill",
	Kick:          "Kick",
	TempBan:       "TempBan",
	PermBan:       "PermBan",
	Mute:          "Mute",
	TempMute:      "TempMute",
	PermMute:      "PermMute",
	TempForceMute: "TempForceMute",
	PermForceMute: "PermForceMute",
	Custom:        "Custom",
	ShowRules:     "ShowRules",
}

// older configuration files used these spellings
var actionAliases = map[string]ActionKind{
	"tban":           TempBan,
	"permban":        PermBan,
	"permamute":      PermMute,
	"permaforcemute": PermForceMute,
	"pban":           PermBan,
}

func (k ActionKind) String() string {
	if k < 0 || int(k) >= len(actionNames) {
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
	return actionNames[k]
}

// Parses an action name, case-insensitively.
func ParseActionKind(s string) (ActionKind, error) {
	s = strings.TrimSpace(s)
	for i, name := range actionNames {
		if strings.EqualFold(name, s) {
			return ActionKind(i), nil
		}
	}
	if k, ok := actionAliases[strings.ToLower(s)]; ok {
		return k, nil
	}
	return ListEnd, fmt.Errorf("unknown action kind: %q", s)
}

func (k ActionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ActionKind) UnmarshalText(b []byte) error {
	v, err := ParseActionKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Whether the action takes a temporary duration in minutes.
func (k ActionKind) IsTemporary() bool {
	return k == TempBan || k == TempMute || k == TempForceMute
}

// Whether the action removes the player from the server.
func (k ActionKind) IsBan() bool {
	return k == TempBan || k == PermBan
}

// Returns the more severe of two actions.
func MaxAction(a, b ActionKind) ActionKind {
	if a > b {
		return a
	}
	return b
}
