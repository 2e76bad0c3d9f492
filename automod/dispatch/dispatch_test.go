package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/langwarden/langwarden/automod/measure"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestCommandFor(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		kind    measure.ActionKind
		minutes uint
		command string
		dur     *uint
	}{
		{kind: measure.Warn, command: CommandMessage},
		{kind: measure.Kill, command: CommandKill},
		{kind: measure.Kick, command: CommandKick},
		{kind: measure.TempBan, minutes: 60, command: CommandBanTemp, dur: ptr(60)},
		{kind: measure.PermBan, command: CommandBanPerm},
		{kind: measure.Mute, command: CommandMute},
		{kind: measure.TempMute, minutes: 120, command: CommandPersistentMute, dur: ptr(120)},
		{kind: measure.TempForceMute, minutes: 900, command: CommandPersistentMuteFc, dur: ptr(900)},
		{kind: measure.TempMute, minutes: 0, command: CommandPersistentMute, dur: ptr(PermanentMuteMinutes)},
		{kind: measure.PermMute, minutes: 120, command: CommandPersistentMute, dur: ptr(PermanentMuteMinutes)},
		{kind: measure.PermForceMute, command: CommandPersistentMuteFc, dur: ptr(PermanentMuteMinutes)},
		{kind: measure.ShowRules, command: CommandRules},
		{kind: measure.Custom, command: CommandCustom},
	}

	for _, f := range fixtures {
		cmd, dur := CommandFor(f.kind, f.minutes)
		assert.Equal(f.command, cmd, f.kind.String())
		assert.Equal(f.dur, dur, f.kind.String())
	}

	assert.Equal(PermanentMuteMinutes, MuteMinutes(0))
	assert.Equal(uint(5), MuteMinutes(5))
}

func ptr(v uint) *uint {
	return &v
}

func TestAsync(t *testing.T) {
	assert := assert.New(t)

	capture := &Capture{}
	a := NewAsync(capture, "test")
	a.Delay = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	assert.NoError(a.Dispatch(ctx, Request{Command: CommandKick, Target: "bob"}))
	// returns before the delay elapses
	assert.Less(time.Since(start), a.Delay)
	// cancelling the event context does not drop the send
	cancel()
	assert.Empty(capture.Drain())

	a.Wait()
	reqs := capture.Drain()
	assert.Len(reqs, 1)
	assert.Equal("bob", reqs[0].Target)
}

func TestAsyncKeepsOrder(t *testing.T) {
	assert := assert.New(t)

	capture := &Capture{}
	a := NewAsync(capture, "test")
	a.Delay = 5 * time.Millisecond

	ctx := context.Background()
	for i := 0; i < 200; i++ {
		assert.NoError(a.Dispatch(ctx, Request{Command: CommandLog, Target: "bob", Reason: strconv.Itoa(i)}))
	}
	a.Wait()

	reqs := capture.Drain()
	assert.Len(reqs, 200)
	for i, req := range reqs {
		assert.Equal(strconv.Itoa(i), req.Reason)
	}
}

type panicDispatcher struct{}

func (panicDispatcher) Dispatch(ctx context.Context, req Request) error {
	panic("boom")
}

func TestAsyncFailures(t *testing.T) {
	a := NewAsync(&Capture{Err: errors.New("offline")}, "test")
	a.Delay = 0
	assert.NoError(t, a.Dispatch(context.Background(), Request{Command: CommandKill}))
	a.Wait()

	p := NewAsync(panicDispatcher{}, "panic")
	p.Delay = 0
	assert.NoError(t, p.Dispatch(context.Background(), Request{Command: CommandKill}))
	p.Wait()
}

func TestMulti(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	a, b := &Capture{}, &Capture{Err: errors.New("offline")}
	m := Multi{a, &LogDispatcher{}, b}
	err := m.Dispatch(ctx, Request{Command: CommandMute, Target: "bob"})
	assert.Error(err)
	assert.Contains(err.Error(), "offline")
	assert.Len(a.Requests, 1)
	assert.Len(b.Requests, 1)

	assert.NoError(Multi{a}.Dispatch(ctx, Request{}))
}

func TestWebhookDispatcher(t *testing.T) {
	assert := assert.New(t)

	var got Request
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("Bearer secret", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(json.Unmarshal(body, &got))
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	d := &WebhookDispatcher{URL: srv.URL, Token: "secret"}
	minutes := uint(60)
	req := Request{
		Command:         CommandBanTemp,
		Action:          measure.TempBan,
		Target:          "Bob",
		DurationMinutes: &minutes,
		Messages:        []Message{{Channel: ChannelPublic, Text: "Bob was banned"}},
	}
	assert.NoError(d.Dispatch(context.Background(), req))
	assert.Equal(measure.TempBan, got.Action)
	assert.Equal(uint(60), *got.DurationMinutes)
	assert.Equal(ChannelPublic, got.Messages[0].Channel)

	status.Store(http.StatusBadGateway)
	assert.Error(d.Dispatch(context.Background(), req))
}

func TestEncodeKafka(t *testing.T) {
	assert := assert.New(t)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	msg, err := encodeKafka(Request{Command: CommandKick, Action: measure.Kick, Target: "Bob", IssuedAt: now})
	assert.NoError(err)
	assert.Equal("bob", string(msg.Key))
	assert.Equal(now, msg.Time)
	assert.Contains(string(msg.Value), `"action":"Kick"`)
}

func TestSlackNotifier(t *testing.T) {
	assert := assert.New(t)

	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body SlackWebhookBody
		assert.NoError(json.NewDecoder(r.Body).Decode(&body))
		texts = append(texts, body.Text)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL)
	n.Limiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	ctx := context.Background()

	assert.NoError(n.Notify(ctx, "Player bob now has a clean jacket"))
	assert.ErrorIs(n.Notify(ctx, "second"), ErrNotifyLimited)
	assert.Len(texts, 1)
	assert.Contains(texts[0], "clean jacket")
}
