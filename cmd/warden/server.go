package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/langwarden/langwarden/automod/config"
	"github.com/langwarden/langwarden/automod/countstore"
	"github.com/langwarden/langwarden/automod/directory"
	"github.com/langwarden/langwarden/automod/dispatch"
	"github.com/langwarden/langwarden/automod/engine"
	"github.com/langwarden/langwarden/automod/heat"
	"github.com/langwarden/langwarden/automod/heatstore"
	"github.com/langwarden/langwarden/automod/setstore"
	"github.com/langwarden/langwarden/automod/wordlist"
	"github.com/langwarden/langwarden/util/cliutil"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	logger     *slog.Logger
	engine     *engine.Engine
	configPath string
	async      *dispatch.Async
	closers    []func() error
	// HTTP API metrics; the default registerer when nil.
	registerer prometheus.Registerer
}

type Config struct {
	// Optional; defaults apply when empty.
	ConfigPath      string
	RedisURL        string
	HeatStore       string
	SetsFileJSON    string
	Dispatch        string
	DispatchDelay   time.Duration
	KafkaBrokers    []string
	KafkaTopic      string
	WebhookURL      string
	WebhookToken    string
	SlackWebhookURL string
	Logger          *slog.Logger
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	cfg, err := loadConfig(config.ConfigPath)
	if err != nil {
		return nil, err
	}

	sets := setstore.NewMemSetStore()
	if config.SetsFileJSON != "" {
		if err := sets.LoadFromFileJSON(config.SetsFileJSON); err != nil {
			return nil, fmt.Errorf("initializing in-process setstore: %v", err)
		} else {
			logger.Info("loaded set config from JSON", "path", config.SetsFileJSON)
		}
	}

	var counters countstore.CountStore
	var dir interface {
		directory.Directory
		directory.Writer
	}
	if config.RedisURL != "" {
		cnt, err := countstore.NewRedisCountStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis countstore: %v", err)
		}
		counters = cnt

		rdir, err := directory.NewRedisDirectory(config.RedisURL, 24*time.Hour)
		if err != nil {
			return nil, fmt.Errorf("initializing redis directory: %v", err)
		}
		rdir.Logger = logger.With("component", "directory")
		dir = rdir
	} else {
		counters = countstore.NewMemCountStore()
		dir = directory.NewMemDirectory(5_000, 24*time.Hour)
	}

	store, err := openHeatStore(config.HeatStore)
	if err != nil {
		return nil, err
	}

	s := &Server{
		logger:     logger,
		configPath: config.ConfigPath,
		registerer: prometheus.DefaultRegisterer,
	}

	var sink dispatch.Dispatcher
	switch config.Dispatch {
	case "", "log":
		sink = &dispatch.LogDispatcher{Logger: logger.With("component", "dispatch")}
	case "kafka":
		if len(config.KafkaBrokers) == 0 || config.KafkaTopic == "" {
			return nil, fmt.Errorf("kafka dispatch needs brokers and a topic")
		}
		kd := dispatch.NewKafkaDispatcher(config.KafkaBrokers, config.KafkaTopic)
		s.closers = append(s.closers, kd.Close)
		sink = kd
	case "webhook":
		if config.WebhookURL == "" {
			return nil, fmt.Errorf("webhook dispatch needs a URL")
		}
		sink = &dispatch.WebhookDispatcher{
			URL:    config.WebhookURL,
			Token:  config.WebhookToken,
			Client: cliutil.NewHttpClient(),
		}
	default:
		return nil, fmt.Errorf("unknown dispatch sink: %q", config.Dispatch)
	}
	s.async = dispatch.NewAsync(sink, config.Dispatch)
	if config.DispatchDelay > 0 {
		s.async.Delay = config.DispatchDelay
	}
	s.async.Logger = logger.With("component", "dispatch")

	var notifier dispatch.Notifier = &dispatch.LogNotifier{Logger: logger}
	if config.SlackWebhookURL != "" {
		logger.Info("configuring slack admin notices")
		sn := dispatch.NewSlackNotifier(config.SlackWebhookURL)
		sn.Client = cliutil.NewHttpClient()
		notifier = sn
	}

	eng := &engine.Engine{
		Logger:     logger,
		Matcher:    wordlist.NewMatcher(nil),
		Directory:  dir,
		Players:    dir,
		Sets:       sets,
		Counters:   counters,
		Store:      store,
		Dispatcher: s.async,
		Notifier:   notifier,
		Started:    time.Now(),
	}
	eng.Ledger = heat.NewLedger(eng)
	if err := eng.Reload(cfg); err != nil {
		return nil, err
	}
	s.engine = eng
	// skipped entries are logged by the engine; only a missing list is fatal
	if err := s.reloadWordlists(cfg); err != nil && eng.Matcher.Current() == nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) reloadWordlists(cfg config.Config) error {
	literals, patterns, err := cfg.WordlistLines()
	if err != nil {
		return err
	}
	if len(literals) == 0 && len(patterns) == 0 {
		s.logger.Warn("no wordlists configured, nothing will match")
	}
	return s.engine.ReloadWordlists(literals, patterns)
}

// Picks a heat store from a URL-ish string: "redis://..." for redis,
// "sqlite://..." or "postgres://..." for SQL, "file://path" or a bare path
// for the counters file. Empty means no persistence.
func openHeatStore(dsn string) (heatstore.HeatStore, error) {
	switch {
	case dsn == "":
		return nil, nil
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		st, err := heatstore.NewRedisHeatStore(dsn)
		if err != nil {
			return nil, fmt.Errorf("initializing redis heat store: %v", err)
		}
		return st, nil
	case strings.HasPrefix(dsn, "sqlite"), strings.HasPrefix(dsn, "postgres"):
		db, err := cliutil.SetupDatabase(dsn, 10)
		if err != nil {
			return nil, err
		}
		st, err := heatstore.NewSQLHeatStore(db)
		if err != nil {
			return nil, fmt.Errorf("initializing sql heat store: %v", err)
		}
		return st, nil
	}
	return heatstore.NewFileHeatStore(strings.TrimPrefix(dsn, "file://")), nil
}

// Re-reads the config file and wordlists. Failures leave the running policy
// in place.
func (s *Server) Reload() error {
	cfg, err := loadConfig(s.configPath)
	if err != nil {
		return err
	}
	if err := s.engine.Reload(cfg); err != nil {
		return err
	}
	return s.reloadWordlists(cfg)
}

func (s *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

// Saves heat and flushes pending actions and notices.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.engine.Persist(ctx); err != nil {
		errs = append(errs, err)
	}
	s.async.Wait()
	s.engine.Wait()
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
