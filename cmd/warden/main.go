package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/langwarden/langwarden/automod/config"
	"github.com/langwarden/langwarden/automod/measure"
	"github.com/langwarden/langwarden/automod/wordlist"
	"github.com/langwarden/langwarden/util/cliutil"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "warden",
		Usage:   "chat language enforcement daemon",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "path to YAML configuration file (defaults apply when unset)",
			EnvVars: []string{"WARDEN_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			EnvVars: []string{"WARDEN_LOG_LEVEL", "LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "log output format (text or json)",
			EnvVars: []string{"WARDEN_LOG_FMT"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
		serveCmd,
		checkCmd,
		ladderCmd,
		duplicatesCmd,
	}

	return app.Run(args)
}

func configLogger(cctx *cli.Context) (*slog.Logger, error) {
	return cliutil.SetupSlog(cliutil.LogOptions{
		LogLevel:  cctx.String("log-level"),
		LogFormat: cctx.String("log-format"),
	})
}

func loadConfig(p string) (config.Config, error) {
	if p == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(p)
	if err != nil {
		return config.Config{}, fmt.Errorf("loading config %s: %w", p, err)
	}
	return cfg, nil
}

// Loads configured wordlists without the reload guard.
func loadWordlist(cfg config.Config) (*wordlist.List, error) {
	literals, patterns, err := cfg.WordlistLines()
	if err != nil {
		return nil, err
	}
	l, err := cfg.Loader(time.Now()).Load(literals, patterns, time.Now())
	if l == nil {
		return nil, err
	}
	if err != nil {
		slog.Warn("wordlist entries skipped", "err", err)
	}
	return l, nil
}

var checkCmd = &cli.Command{
	Name:      "check",
	Usage:     "report which wordlist entry a message would match",
	ArgsUsage: "<message>",
	Action: func(cctx *cli.Context) error {
		if cctx.Args().Len() == 0 {
			return fmt.Errorf("need a message to check")
		}
		cfg, err := loadConfig(cctx.String("config"))
		if err != nil {
			return err
		}
		l, err := loadWordlist(cfg)
		if err != nil {
			return err
		}
		msg := strings.Join(cctx.Args().Slice(), " ")
		m, ok := l.FindViolation(msg)
		if !ok {
			fmt.Println("no match")
			return nil
		}
		kind := "literal"
		if m.IsPattern {
			kind = "pattern"
		}
		section := m.Section
		if section == "" {
			section = "(none)"
		}
		fmt.Printf("%s match: %q\nsection: %s\n", kind, m.Phrase, section)
		return nil
	},
}

var ladderCmd = &cli.Command{
	Name:  "ladder",
	Usage: "print the measure applied at each heat index",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "max",
			Usage: "highest index to print (default: two past the last step)",
		},
	},
	Action: func(cctx *cli.Context) error {
		cfg, err := loadConfig(cctx.String("config"))
		if err != nil {
			return err
		}
		ladder, err := cfg.Ladder()
		if err != nil {
			return err
		}
		last := cctx.Int("max")
		if last <= 0 {
			last = ladder.Span() + 1
		}
		fmt.Printf("%-7s %-7s %-15s %-15s %s\n", "index", "counter", "action", "next", "minutes")
		for idx := 0; idx <= last; idx++ {
			res := ladder.ResolveWithLookahead(idx)
			minutes := "-"
			if res.Measure.Action.IsTemporary() {
				minutes = fmt.Sprint(res.Measure.TempMinutes)
			}
			fmt.Printf("%-7d %-7d %-15s %-15s %s\n",
				idx, measure.IndexToDisplayCounter(idx), res.Measure.Action, res.Next, minutes)
		}
		return nil
	},
}

var duplicatesCmd = &cli.Command{
	Name:  "duplicates",
	Usage: "list wordlist entries that can never be the first match",
	Action: func(cctx *cli.Context) error {
		cfg, err := loadConfig(cctx.String("config"))
		if err != nil {
			return err
		}
		l, err := loadWordlist(cfg)
		if err != nil {
			return err
		}
		dups := l.Duplicates()
		for _, d := range dups {
			fmt.Println(d)
		}
		if len(dups) == 0 {
			fmt.Println("no duplicates")
		}
		return nil
	},
}
