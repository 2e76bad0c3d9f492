package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"time"

	"github.com/langwarden/langwarden/automod/heat"
	"github.com/langwarden/langwarden/automod/measure"
	"github.com/langwarden/langwarden/automod/wordlist"

	"gopkg.in/yaml.v3"
)

// Layout version written by this package.
const CurrentVersion = 1

const (
	DefaultCommandPrefixes = "!#@/"
	DefaultCounterReset    = "Your Language counter has been reset."
)

var DefaultLangInfo = []string{
	"LanguageEnforcer kills do not affect your stats!",
	"Lang killed while dead = kill on spawn",
	"Your counter will be decreased by %cooldown% daily",
	"Your current counter reads %count%",
}

var sectionNameRegex = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

type Config struct {
	Version   int                       `yaml:"version"`
	Settings  Settings                  `yaml:"settings"`
	Messages  Messages                  `yaml:"messages"`
	Wordlists Wordlists                 `yaml:"wordlists"`
	Measures  []measure.Measure         `yaml:"measures"`
	Overrides map[string]OverrideConfig `yaml:"overrides,omitempty"`
	Whitelist []string                  `yaml:"whitelist,omitempty"`
	Quotas    Quotas                    `yaml:"quotas"`
}

type Settings struct {
	// Heat removed per day, for regular players and for admins.
	Cooldown      float64 `yaml:"cooldown_per_day"`
	AdminCooldown float64 `yaml:"admin_cooldown_per_day"`

	SaveCounters      bool `yaml:"save_counters"`
	SaveOnEveryAction bool `yaml:"save_on_every_action"`
	// Send every matched message to the external system as player_log.
	LogViolations bool `yaml:"log_violations"`
	// Hand punishment to the external system instead of the ladder.
	UseExternalPunish bool `yaml:"use_external_punish"`

	WhitelistAdmins   bool `yaml:"whitelist_admins"`
	WarnWhitelisted   bool `yaml:"warn_whitelisted"`
	DisallowSelfReset bool `yaml:"disallow_self_reset"`
	// Squad chat is only checked for commands.
	IgnoreSquadChat bool `yaml:"ignore_squad_chat"`

	CommandPrefixes string `yaml:"command_prefixes"`
}

type Messages struct {
	CounterReset string   `yaml:"counter_reset"`
	LangInfo     []string `yaml:"langinfo"`
}

type Wordlists struct {
	// Files take precedence over inline lists when set.
	LiteralsFile string   `yaml:"literals_file,omitempty"`
	PatternsFile string   `yaml:"patterns_file,omitempty"`
	Literals     []string `yaml:"literals,omitempty"`
	Patterns     []string `yaml:"patterns,omitempty"`

	FoldDiacritics bool          `yaml:"fold_diacritics"`
	SafeChars      string        `yaml:"safe_chars,omitempty"`
	WarmUp         time.Duration `yaml:"warm_up"`
}

type Quotas struct {
	// Ban-class actions allowed per day before they are downgraded to Kick.
	// Zero disables the limit.
	BansPerDay int `yaml:"bans_per_day"`
}

// OverrideConfig is the on-disk form of a section override. Unset fields
// keep NoOverride's values.
type OverrideConfig struct {
	Severity *float64          `yaml:"severity,omitempty"`
	Measure  measure.ActionKind `yaml:"measure"`
	// false forces Measure even when the ladder resolved something stronger.
	AllowHigher *bool `yaml:"allow_higher,omitempty"`
	// Display counter the player is left with at least; converted to a heat
	// floor of value-1.
	MinCounterAfter *float64 `yaml:"min_counter_after,omitempty"`

	Public      []string `yaml:"public,omitempty"`
	Private     []string `yaml:"private,omitempty"`
	Yell        []string `yaml:"yell,omitempty"`
	YellSeconds *uint    `yaml:"yell_seconds,omitempty"`
	TempMinutes *uint    `yaml:"temp_minutes,omitempty"`
	Commands    []string `yaml:"commands,omitempty"`

	UseExternalPunish *bool `yaml:"use_external_punish,omitempty"`
}

func (oc OverrideConfig) Override() measure.Override {
	o := measure.NoOverride()
	if oc.Severity != nil {
		o.Severity = *oc.Severity
	}
	o.MinimumAction = oc.Measure
	if o.MinimumAction == measure.ListEnd {
		o.MinimumAction = measure.Warn
	}
	if oc.AllowHigher != nil {
		o.ForceMinimum = !*oc.AllowHigher
	}
	if oc.MinCounterAfter != nil {
		o.MinimumHeat = measure.DisplayCounterToHeat(*oc.MinCounterAfter)
	}
	o.Public = oc.Public
	o.Private = oc.Private
	o.Yell = oc.Yell
	o.YellSeconds = oc.YellSeconds
	o.TempMinutes = oc.TempMinutes
	o.Commands = oc.Commands
	if oc.UseExternalPunish != nil {
		o.NoExternalPunish = !*oc.UseExternalPunish
	}
	return o
}

func Default() Config {
	return Config{
		Version: CurrentVersion,
		Settings: Settings{
			Cooldown:          heat.DefaultRate,
			AdminCooldown:     heat.DefaultRate,
			SaveCounters:      true,
			SaveOnEveryAction: true,
			CommandPrefixes:   DefaultCommandPrefixes,
		},
		Messages: Messages{
			CounterReset: DefaultCounterReset,
			LangInfo:     append([]string(nil), DefaultLangInfo...),
		},
		Wordlists: Wordlists{
			WarmUp: wordlist.DefaultWarmUp,
		},
		Measures:  measure.DefaultLadder(),
		Overrides: map[string]OverrideConfig{},
	}
}

// Reads a YAML config file over the defaults, then migrates and validates it.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (Config, error) {
	cfg := Default()
	cfg.Version = 0
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config yaml: %w", err)
	}
	cfg.Migrate()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) Write(path string) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Fills values older or hand-written files leave out, and brings the layout
// to CurrentVersion.
func (c *Config) Migrate() {
	if c.Settings.CommandPrefixes == "" {
		c.Settings.CommandPrefixes = DefaultCommandPrefixes
	}
	if c.Messages.CounterReset == "" {
		c.Messages.CounterReset = DefaultCounterReset
	}
	if len(c.Messages.LangInfo) == 0 {
		c.Messages.LangInfo = append([]string(nil), DefaultLangInfo...)
	}

	measures := make([]measure.Measure, 0, len(c.Measures)+1)
	for _, m := range c.Measures {
		if m.Action == measure.ListEnd {
			break
		}
		if m.Count == 0 {
			m.Count = measure.DefaultCount
		}
		if m.YellSeconds == 0 {
			m.YellSeconds = measure.DefaultYellSeconds
		}
		if m.TempMinutes == 0 && m.Action.IsTemporary() {
			m.TempMinutes = measure.DefaultTempMinutes
		}
		measures = append(measures, m)
	}
	c.Measures = append(measures, measure.Measure{Action: measure.ListEnd})

	for name, o := range c.Overrides {
		if o.Measure == measure.ListEnd {
			o.Measure = measure.Warn
			c.Overrides[name] = o
		}
	}

	if c.Version < CurrentVersion {
		c.Version = CurrentVersion
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Version > CurrentVersion {
		errs = append(errs, fmt.Errorf("config version %d is newer than supported (%d)", c.Version, CurrentVersion))
	}
	if len(c.Measures) == 0 || c.Measures[0].Action == measure.ListEnd {
		errs = append(errs, fmt.Errorf("first measure must not be ListEnd: %w", measure.ErrEmptyLadder))
	} else if _, err := measure.NewLadder(c.Measures); err != nil {
		errs = append(errs, err)
	}
	if c.Settings.Cooldown < 0 || c.Settings.AdminCooldown < 0 {
		errs = append(errs, errors.New("cooldown rates must not be negative"))
	}
	if c.Settings.CommandPrefixes == "" {
		errs = append(errs, errors.New("command prefix set is empty"))
	}
	for _, name := range c.SectionNames() {
		if !sectionNameRegex.MatchString(name) {
			errs = append(errs, fmt.Errorf("invalid section name %q", name))
		}
		o := c.Overrides[name]
		if o.Severity != nil && *o.Severity < 0 {
			errs = append(errs, fmt.Errorf("section %s: severity must not be negative", name))
		}
	}
	if c.Quotas.BansPerDay < 0 {
		errs = append(errs, errors.New("quotas.bans_per_day must not be negative"))
	}
	return errors.Join(errs...)
}

// Sorted names of configured section overrides.
func (c *Config) SectionNames() []string {
	out := make([]string, 0, len(c.Overrides))
	for name := range c.Overrides {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (c *Config) Ladder() (*measure.Ladder, error) {
	return measure.NewLadder(c.Measures)
}

func (c *Config) MeasureOverrides() measure.Overrides {
	out := make(measure.Overrides, len(c.Overrides))
	for name, oc := range c.Overrides {
		out[name] = oc.Override()
	}
	return out
}

// Returns the wordlist sources, reading the configured files.
func (c *Config) WordlistLines() (literals, patterns []string, err error) {
	literals, patterns = c.Wordlists.Literals, c.Wordlists.Patterns
	if p := c.Wordlists.LiteralsFile; p != "" {
		if literals, err = wordlist.ReadLinesFile(p); err != nil {
			return nil, nil, fmt.Errorf("literal wordlist: %w", err)
		}
	}
	if p := c.Wordlists.PatternsFile; p != "" {
		if patterns, err = wordlist.ReadLinesFile(p); err != nil {
			return nil, nil, fmt.Errorf("pattern wordlist: %w", err)
		}
	}
	return literals, patterns, nil
}

func (c *Config) Loader(started time.Time) wordlist.Loader {
	g := wordlist.NewGuard(started)
	if c.Wordlists.SafeChars != "" {
		g.SafeChars = c.Wordlists.SafeChars
	}
	g.WarmUp = c.Wordlists.WarmUp
	return wordlist.Loader{Guard: g, FoldDiacritics: c.Wordlists.FoldDiacritics}
}
