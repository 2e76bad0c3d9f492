package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/langwarden/langwarden/automod/directory"
)

// Event types accepted on the newline-delimited JSON feed.
const (
	EventChat      = "chat"
	EventJoin      = "join"
	EventLeave     = "leave"
	EventList      = "list"
	EventRoundOver = "round_over"
	EventEmpty     = "server_empty"
	EventAdmins    = "admins"
	EventPunish    = "punish"
	EventReset     = "reset"
)

// Event is one line of the game-server feed. Fields beyond Type are only set
// for the event types that use them.
type Event struct {
	Type    string             `json:"type"`
	Speaker string             `json:"speaker,omitempty"`
	Text    string             `json:"text,omitempty"`
	Channel string             `json:"channel,omitempty"`
	Player  directory.Player   `json:"player,omitempty"`
	Players []directory.Player `json:"players,omitempty"`
	Admins  []string           `json:"admins,omitempty"`
}

// Routes a feed event to the matching engine operation. Panics are recovered
// and returned as errors.
func (eng *Engine) ProcessEvent(ctx context.Context, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			eventErrorCount.WithLabelValues(evt.Type).Inc()
			eng.Logger.Error("event processing exception", "err", r, "type", evt.Type)
			err = fmt.Errorf("event %q: panic: %v", evt.Type, r)
		}
	}()
	switch evt.Type {
	case EventChat:
		eng.ProcessChat(ctx, ChatEvent{Speaker: evt.Speaker, Text: evt.Text, Channel: evt.Channel})
	case EventJoin:
		eng.PlayerJoined(ctx, evt.Player)
	case EventLeave:
		eng.PlayerLeft(ctx, evt.Player.Name)
	case EventList:
		eng.PlayerList(ctx, evt.Players)
	case EventRoundOver:
		eng.RoundOver(ctx)
	case EventEmpty:
		eng.ServerEmpty(ctx)
	case EventAdmins:
		eng.SetAdmins(evt.Admins)
	case EventPunish:
		eng.Punish(ctx, evt.Player.Name, evt.Player.StableID, evt.Text)
	case EventReset:
		eng.ResetPlayer(ctx, evt.Player.Name, evt.Player.StableID)
	default:
		return fmt.Errorf("unknown event type: %q", evt.Type)
	}
	return nil
}

// Processes events from r one at a time until EOF or ctx is done.
func (eng *Engine) ProcessEventStream(ctx context.Context, r io.Reader) error {
	return DecodeEvents(ctx, r, eng.Logger, func(evt Event) {
		if err := eng.ProcessEvent(ctx, evt); err != nil {
			eng.Logger.Warn("skipping event", "type", evt.Type, "err", err)
		}
	})
}

// Decodes newline-delimited JSON events, calling fn for each. Malformed lines
// are logged and skipped.
func DecodeEvents(ctx context.Context, r io.Reader, logger *slog.Logger, fn func(Event)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var evt Event
		if err := json.Unmarshal(raw, &evt); err != nil {
			logger.Warn("skipping malformed event", "line", line, "err", err)
			continue
		}
		fn(evt)
	}
	return scanner.Err()
}
