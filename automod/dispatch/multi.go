package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Multi fans each request out to every dispatcher, joining their errors.
type Multi []Dispatcher

func (m Multi) Dispatch(ctx context.Context, req Request) error {
	var errs []error
	for i, d := range m {
		if err := d.Dispatch(ctx, req); err != nil {
			errs = append(errs, fmt.Errorf("dispatcher %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// LogDispatcher only logs what would have been sent.
type LogDispatcher struct {
	Logger *slog.Logger
}

func (d *LogDispatcher) Dispatch(ctx context.Context, req Request) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"command", req.Command, "action", req.Action.String(), "target", req.Target}
	if req.TargetID != "" {
		attrs = append(attrs, "target_id", req.TargetID)
	}
	if req.DurationMinutes != nil {
		attrs = append(attrs, "minutes", *req.DurationMinutes)
	}
	if req.Reason != "" {
		attrs = append(attrs, "reason", req.Reason)
	}
	for _, m := range req.Messages {
		attrs = append(attrs, string(m.Channel), m.Text)
	}
	for _, c := range req.Commands {
		attrs = append(attrs, "cmd", strings.Join(c, " "))
	}
	logger.Info("dispatch", attrs...)
	return nil
}

// Capture records every request it is given. Used in tests.
type Capture struct {
	mu       sync.Mutex
	Requests []Request
	// Returned from every Dispatch call when set.
	Err error
}

func (c *Capture) Dispatch(ctx context.Context, req Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Requests = append(c.Requests, req)
	return c.Err
}

// Returns a copy of the captured requests and clears the buffer.
func (c *Capture) Drain() []Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.Requests
	c.Requests = nil
	return out
}
