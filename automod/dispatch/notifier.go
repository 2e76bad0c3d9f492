package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var ErrNotifyLimited = errors.New("admin notice rate limited")

// Notifier delivers operator notices outside the game, such as counter
// resets and circuit breaker trips.
type Notifier interface {
	Notify(ctx context.Context, msg string) error
}

type SlackWebhookBody struct {
	Text string `json:"text"`
}

// SlackNotifier posts notices to a slack "incoming webhook", dropping
// notices beyond the limiter's rate.
type SlackNotifier struct {
	SlackWebhookURL string
	Limiter         *rate.Limiter
	Client          *http.Client
}

var _ Notifier = (*SlackNotifier)(nil)

func NewSlackNotifier(url string) *SlackNotifier {
	return &SlackNotifier{
		SlackWebhookURL: url,
		Limiter:         rate.NewLimiter(rate.Every(2*time.Second), 5),
	}
}

func (n *SlackNotifier) Notify(ctx context.Context, msg string) error {
	if n.Limiter != nil && !n.Limiter.Allow() {
		notifyDropped.Inc()
		return ErrNotifyLimited
	}
	return n.sendSlackMsg(ctx, "🛡️ LanguageEnforcer: "+msg)
}

func (n *SlackNotifier) sendSlackMsg(ctx context.Context, msg string) error {
	body, err := json.Marshal(SlackWebhookBody{Text: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.SlackWebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	if resp.StatusCode != 200 || buf.String() != "ok" {
		return fmt.Errorf("failed slack webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}

// LogNotifier writes notices to the log.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) Notify(ctx context.Context, msg string) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("admin notice", "msg", msg)
	return nil
}

// CaptureNotifier records notices. Used in tests.
type CaptureNotifier struct {
	mu      sync.Mutex
	Notices []string
}

func (n *CaptureNotifier) Notify(ctx context.Context, msg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Notices = append(n.Notices, msg)
	return nil
}

func (n *CaptureNotifier) All() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.Notices...)
}
