package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Delay before a queued request is handed on.
const DefaultDelay = 500 * time.Millisecond

// Upper bound for a single delayed send.
const DefaultTimeout = 10 * time.Second

// Queued requests before Dispatch blocks.
const asyncQueueSize = 1024

// Async hands requests to Next from a single worker, each after a fixed delay
// from when it was queued, and returns immediately. Requests reach Next in
// the order they were dispatched. Failures are logged and counted, never
// retried.
type Async struct {
	Next    Dispatcher
	Delay   time.Duration
	Timeout time.Duration
	// Label used in logs and metrics.
	Sink   string
	Logger *slog.Logger

	start sync.Once
	queue chan queued
	wg    sync.WaitGroup
}

type queued struct {
	ctx context.Context
	req Request
	due time.Time
}

var _ Dispatcher = (*Async)(nil)

func NewAsync(next Dispatcher, sink string) *Async {
	return &Async{
		Next:    next,
		Delay:   DefaultDelay,
		Timeout: DefaultTimeout,
		Sink:    sink,
		Logger:  slog.Default().With("component", "dispatch", "sink", sink),
	}
}

func (a *Async) Dispatch(ctx context.Context, req Request) error {
	a.start.Do(func() {
		if a.Logger == nil {
			a.Logger = slog.Default().With("component", "dispatch", "sink", a.Sink)
		}
		a.queue = make(chan queued, asyncQueueSize)
		go a.run()
	})
	a.wg.Add(1)
	// the caller's context usually ends with the chat event
	a.queue <- queued{ctx: context.WithoutCancel(ctx), req: req, due: time.Now().Add(a.Delay)}
	return nil
}

func (a *Async) run() {
	for q := range a.queue {
		if wait := time.Until(q.due); wait > 0 {
			time.Sleep(wait)
		}
		if err := a.send(q.ctx, q.req); err != nil {
			dispatchErrors.WithLabelValues(a.Sink).Inc()
			a.Logger.Error("dispatch failed", "command", q.req.Command, "target", q.req.Target, "err", err)
		} else {
			dispatchedCount.WithLabelValues(a.Sink, q.req.Command).Inc()
		}
		a.wg.Done()
	}
}

func (a *Async) send(ctx context.Context, req Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch panic: %v", r)
		}
	}()
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}
	return a.Next.Dispatch(ctx, req)
}

// Blocks until every request handed to Dispatch so far has been sent.
func (a *Async) Wait() {
	a.wg.Wait()
}
