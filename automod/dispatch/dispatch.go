package dispatch

import (
	"context"
	"time"

	"github.com/langwarden/langwarden/automod/measure"
)

// Command keys understood by the execution collaborator.
const (
	CommandKill             = "player_kill"
	CommandKick             = "player_kick"
	CommandBanTemp          = "player_ban_temp"
	CommandBanPerm          = "player_ban_perm"
	CommandMute             = "player_mute"
	CommandPersistentMute   = "player_persistentmute"
	CommandPersistentMuteFc = "player_persistentmute_force"
	CommandRules            = "self_rules"
	CommandPunish           = "player_punish"
	CommandLog              = "player_log"
	// Deliver Messages only; nothing is executed against the target.
	CommandMessage = "message"
	// Run Commands only.
	CommandCustom = "custom"
)

// Duration sent for permanent persistent mutes (about 20 years, in minutes).
const PermanentMuteMinutes uint = 10518984

type Channel string

const (
	ChannelPublic  Channel = "public"
	ChannelPrivate Channel = "private"
	ChannelYell    Channel = "yell"
)

// Message is one rendered line to deliver in game.
type Message struct {
	Channel Channel `json:"channel"`
	Text    string  `json:"text"`
	// Recipient of private messages and yells; empty means the request target.
	To string `json:"to,omitempty"`
	// Set for yells.
	YellSeconds uint `json:"yell_seconds,omitempty"`
}

// Request is a single resolved action handed to the execution collaborator.
type Request struct {
	Command  string             `json:"command"`
	Action   measure.ActionKind `json:"action"`
	Target   string             `json:"target"`
	TargetID string             `json:"target_id,omitempty"`
	Reason   string             `json:"reason,omitempty"`
	// Set for temporary bans and persistent mutes.
	DurationMinutes *uint `json:"duration_minutes,omitempty"`
	Forced          bool  `json:"forced,omitempty"`
	// The external punish system picks the action itself.
	Delegated bool      `json:"delegated,omitempty"`
	Messages  []Message `json:"messages,omitempty"`
	// Raw server commands, already split into arguments.
	Commands [][]string `json:"commands,omitempty"`
	IssuedAt time.Time  `json:"issued_at"`
}

type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) error
}

// Maps an action to the collaborator command key, and the duration to send
// with it (nil when the command takes none).
func CommandFor(kind measure.ActionKind, minutes uint) (string, *uint) {
	switch kind {
	case measure.Warn:
		return CommandMessage, nil
	case measure.Kill:
		return CommandKill, nil
	case measure.Kick:
		return CommandKick, nil
	case measure.TempBan:
		return CommandBanTemp, &minutes
	case measure.PermBan:
		return CommandBanPerm, nil
	case measure.Mute:
		return CommandMute, nil
	case measure.TempMute:
		minutes = MuteMinutes(minutes)
		return CommandPersistentMute, &minutes
	case measure.TempForceMute:
		minutes = MuteMinutes(minutes)
		return CommandPersistentMuteFc, &minutes
	case measure.PermMute, measure.PermForceMute:
		perm := PermanentMuteMinutes
		if kind == measure.PermForceMute {
			return CommandPersistentMuteFc, &perm
		}
		return CommandPersistentMute, &perm
	case measure.ShowRules:
		return CommandRules, nil
	case measure.Custom:
		return CommandCustom, nil
	}
	return CommandMessage, nil
}

// Returns the persistent mute duration the collaborator expects; zero
// minutes means permanent.
func MuteMinutes(minutes uint) uint {
	if minutes == 0 {
		return PermanentMuteMinutes
	}
	return minutes
}
