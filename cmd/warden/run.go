package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/langwarden/langwarden/automod/engine"

	"github.com/segmentio/kafka-go"
	cli "github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

// flags shared by run and serve
func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for shared counters and player directory",
			EnvVars: []string{"WARDEN_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "heat-store",
			Usage:   "where heat is persisted: file path, redis://, sqlite:// or postgres:// URL",
			Value:   "data/warden/counters.txt",
			EnvVars: []string{"WARDEN_HEAT_STORE"},
		},
		&cli.StringFlag{
			Name:    "sets-json-path",
			Usage:   "file path of JSON file containing static sets (eg, the whitelist)",
			EnvVars: []string{"WARDEN_SETS_JSON_PATH"},
		},
		&cli.StringFlag{
			Name:    "dispatch",
			Usage:   "where actions are sent: log, kafka or webhook",
			Value:   "log",
			EnvVars: []string{"WARDEN_DISPATCH"},
		},
		&cli.DurationFlag{
			Name:    "dispatch-delay",
			Usage:   "delay before an action is handed to the sink",
			Value:   500 * time.Millisecond,
			EnvVars: []string{"WARDEN_DISPATCH_DELAY"},
		},
		&cli.StringSliceFlag{
			Name:    "kafka-brokers",
			Usage:   "kafka broker addresses",
			EnvVars: []string{"WARDEN_KAFKA_BROKERS"},
		},
		&cli.StringFlag{
			Name:    "kafka-actions-topic",
			Usage:   "kafka topic actions are published to",
			Value:   "warden-actions",
			EnvVars: []string{"WARDEN_KAFKA_ACTIONS_TOPIC"},
		},
		&cli.StringFlag{
			Name:    "webhook-url",
			Usage:   "game-server bridge endpoint receiving actions",
			EnvVars: []string{"WARDEN_WEBHOOK_URL"},
		},
		&cli.StringFlag{
			Name:    "webhook-token",
			Usage:   "bearer token sent to the bridge endpoint",
			EnvVars: []string{"WARDEN_WEBHOOK_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			Usage:   "full URL of slack webhook for admin notices",
			EnvVars: []string{"SLACK_WEBHOOK_URL"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3998",
			EnvVars: []string{"WARDEN_METRICS_LISTEN"},
		},
	}
}

func newServerFromFlags(cctx *cli.Context, logger *slog.Logger) (*Server, error) {
	return NewServer(Config{
		ConfigPath:      cctx.String("config"),
		RedisURL:        cctx.String("redis-url"),
		HeatStore:       cctx.String("heat-store"),
		SetsFileJSON:    cctx.String("sets-json-path"),
		Dispatch:        cctx.String("dispatch"),
		DispatchDelay:   cctx.Duration("dispatch-delay"),
		KafkaBrokers:    cctx.StringSlice("kafka-brokers"),
		KafkaTopic:      cctx.String("kafka-actions-topic"),
		WebhookURL:      cctx.String("webhook-url"),
		WebhookToken:    cctx.String("webhook-token"),
		SlackWebhookURL: cctx.String("slack-webhook-url"),
		Logger:          logger,
	})
}

// Logging, tracing and the server itself; the returned func tears down
// tracing.
func setupDaemon(cctx *cli.Context) (*Server, func(), error) {
	logger, err := configLogger(cctx)
	if err != nil {
		return nil, nil, err
	}
	stopOTEL, err := configOTEL("warden")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	srv, err := newServerFromFlags(cctx, logger)
	if err != nil {
		stopOTEL()
		return nil, nil, err
	}
	if err := srv.engine.Load(cctx.Context); err != nil {
		// partial records are kept
		logger.Error("heat load failed, continuing", "err", err)
	}
	return srv, stopOTEL, nil
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "process game-server events from a JSON-lines feed",
	Flags: append(serverFlags(),
		&cli.StringFlag{
			Name:    "events",
			Usage:   "path of the event feed; \"-\" for stdin",
			Value:   "-",
			EnvVars: []string{"WARDEN_EVENTS"},
		},
		&cli.StringFlag{
			Name:    "kafka-events-topic",
			Usage:   "also consume events from this kafka topic",
			EnvVars: []string{"WARDEN_KAFKA_EVENTS_TOPIC"},
		},
		&cli.StringFlag{
			Name:    "kafka-group",
			Usage:   "kafka consumer group for the events topic",
			Value:   "warden",
			EnvVars: []string{"WARDEN_KAFKA_GROUP"},
		},
	),
	Action: func(cctx *cli.Context) error {
		srv, stopOTEL, err := setupDaemon(cctx)
		if err != nil {
			return err
		}
		defer stopOTEL()

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var feed io.Reader = os.Stdin
		if p := cctx.String("events"); p != "-" {
			f, err := os.Open(p)
			if err != nil {
				return err
			}
			defer f.Close()
			feed = f
		}

		runErr := srv.RunEvents(ctx, feed, cctx.StringSlice("kafka-brokers"), cctx.String("kafka-events-topic"), cctx.String("kafka-group"))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.logger.Error("shutdown", "err", err)
		}
		if errors.Is(runErr, context.Canceled) {
			return nil
		}
		return runErr
	},
}

// Feeds events from the reader, and optionally a kafka topic, to the engine
// through a single queue. Returns once the feed is exhausted (and kafka is not
// configured) or ctx is done. SIGHUP reloads the configuration.
func (s *Server) RunEvents(ctx context.Context, feed io.Reader, brokers []string, topic, group string) error {
	queue := make(chan engine.Event, 256)
	g, ctx := errgroup.WithContext(ctx)

	producers, pctx := errgroup.WithContext(ctx)
	producers.Go(func() error {
		err := engine.DecodeEvents(pctx, feed, s.logger, func(evt engine.Event) {
			eventsReceived.WithLabelValues("feed").Inc()
			enqueue(pctx, queue, evt)
		})
		s.logger.Info("event feed finished", "err", err)
		return err
	})
	if topic != "" {
		producers.Go(func() error {
			return s.consumeKafka(pctx, brokers, topic, group, queue)
		})
	}
	g.Go(func() error {
		defer close(queue)
		return producers.Wait()
	})

	done := make(chan struct{})
	g.Go(func() error {
		defer close(done)
		for evt := range queue {
			eventQueueDepth.Set(float64(len(queue)))
			if err := s.engine.ProcessEvent(ctx, evt); err != nil {
				eventsFailed.WithLabelValues("engine").Inc()
				s.logger.Warn("skipping event", "type", evt.Type, "err", err)
			}
		}
		return nil
	})

	g.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-done:
				return nil
			case <-hup:
				if err := s.Reload(); err != nil {
					s.logger.Error("config reload failed, keeping current policy", "err", err)
				} else {
					s.logger.Info("config reloaded")
				}
			}
		}
	})

	return g.Wait()
}

func enqueue(ctx context.Context, queue chan<- engine.Event, evt engine.Event) {
	select {
	case queue <- evt:
	case <-ctx.Done():
	}
}

func (s *Server) consumeKafka(ctx context.Context, brokers []string, topic, group string, queue chan<- engine.Event) error {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  group,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer r.Close()
	s.logger.Info("consuming events from kafka", "topic", topic, "group", group)

	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading kafka events: %w", err)
		}
		eventsReceived.WithLabelValues("kafka").Inc()
		var evt engine.Event
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			eventsFailed.WithLabelValues("kafka").Inc()
			s.logger.Warn("skipping malformed kafka event", "offset", msg.Offset, "err", err)
			continue
		}
		enqueue(ctx, queue, evt)
	}
}
