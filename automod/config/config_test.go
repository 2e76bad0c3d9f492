package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/langwarden/langwarden/automod/measure"

	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	assert := assert.New(t)

	cfg := Default()
	assert.NoError(cfg.Validate())
	assert.Equal(measure.ListEnd, cfg.Measures[len(cfg.Measures)-1].Action)

	l, err := cfg.Ladder()
	assert.NoError(err)
	assert.Equal(6, l.Len())
	assert.Equal(measure.Warn, l.Resolve(0).Action)
	assert.Equal(measure.PermMute, l.Resolve(20).Action)
}

var exampleYAML = `
settings:
  cooldown_per_day: 2.5
  admin_cooldown_per_day: 6
  use_external_punish: false
  warn_whitelisted: true
  command_prefixes: "!"
wordlists:
  literals: ["{racism}", "badword"]
  warm_up: 10s
measures:
  - action: Warn
  - action: Kick
    count: 2
  - action: TBan
    public: ["%player% banned %time% minutes"]
overrides:
  racism:
    measure: TempBan
    allow_higher: false
    severity: 2
    min_counter_after: 4
    temp_minutes: 1440
    use_external_punish: false
  spam:
    measure: ListEnd
quotas:
  bans_per_day: 5
`

func TestParse(t *testing.T) {
	assert := assert.New(t)

	cfg, err := Parse([]byte(exampleYAML))
	assert.NoError(err)
	assert.Equal(CurrentVersion, cfg.Version)
	assert.Equal(2.5, cfg.Settings.Cooldown)
	assert.True(cfg.Settings.SaveCounters, "keeps defaults for omitted keys")
	assert.Equal("!", cfg.Settings.CommandPrefixes)
	assert.Equal(10*time.Second, cfg.Wordlists.WarmUp)
	assert.Equal(DefaultLangInfo, cfg.Messages.LangInfo)
	assert.Equal(5, cfg.Quotas.BansPerDay)

	// migration filled measure defaults and the sentinel
	assert.Len(cfg.Measures, 4)
	assert.Equal(uint(1), cfg.Measures[0].Count)
	assert.Equal(uint(2), cfg.Measures[1].Count)
	assert.Equal(measure.TempBan, cfg.Measures[2].Action)
	assert.Equal(uint(measure.DefaultTempMinutes), cfg.Measures[2].TempMinutes)
	assert.Equal(uint(measure.DefaultYellSeconds), cfg.Measures[2].YellSeconds)
	assert.Equal(measure.ListEnd, cfg.Measures[3].Action)

	ovs := cfg.MeasureOverrides()
	racism := ovs["racism"]
	assert.Equal(measure.TempBan, racism.MinimumAction)
	assert.True(racism.ForceMinimum)
	assert.Equal(2.0, racism.Severity)
	assert.Equal(3.0, racism.MinimumHeat)
	assert.Equal(uint(1440), *racism.TempMinutes)
	assert.True(racism.NoExternalPunish)

	spam := ovs["spam"]
	assert.Equal(measure.Warn, spam.MinimumAction)
	assert.Equal(1.0, spam.Severity)
	assert.Equal(measure.MinHeat, spam.MinimumHeat)
	assert.False(spam.ForceMinimum)
	assert.Nil(spam.TempMinutes)

	assert.Equal([]string{"racism", "spam"}, cfg.SectionNames())
}

func TestValidate(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		name string
		yaml string
	}{
		{name: "listend first", yaml: "measures:\n  - action: ListEnd\n  - action: Kill\n"},
		{name: "negative cooldown", yaml: "settings:\n  cooldown_per_day: -1\n"},
		{name: "bad section", yaml: "overrides:\n  bad-name:\n    measure: Kick\n"},
		{name: "negative severity", yaml: "overrides:\n  ok:\n    severity: -2\n"},
		{name: "future version", yaml: "version: 99\n"},
		{name: "unknown action", yaml: "measures:\n  - action: Explode\n"},
		{name: "negative quota", yaml: "quotas:\n  bans_per_day: -1\n"},
	}

	for _, f := range fixtures {
		_, err := Parse([]byte(f.yaml))
		assert.Error(err, f.name)
	}
}

func TestLoadAndWrite(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()

	lits := filepath.Join(dir, "badwords.txt")
	assert.NoError(os.WriteFile(lits, []byte("{spam}\nfree gold\n"), 0o644))

	cfg := Default()
	cfg.Wordlists.LiteralsFile = lits
	cfg.Wordlists.Patterns = []string{`\bn00b\b`}
	p := filepath.Join(dir, "warden.yaml")
	assert.NoError(cfg.Write(p))

	loaded, err := Load(p)
	assert.NoError(err)
	assert.Equal(cfg.Measures, loaded.Measures)

	literals, patterns, err := loaded.WordlistLines()
	assert.NoError(err)
	assert.Equal([]string{"{spam}", "free gold"}, literals)
	assert.Equal([]string{`\bn00b\b`}, patterns)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(err)

	loaded.Wordlists.PatternsFile = filepath.Join(dir, "missing.txt")
	_, _, err = loaded.WordlistLines()
	assert.Error(err)
}

func TestLoader(t *testing.T) {
	assert := assert.New(t)

	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := Default()
	ld := cfg.Loader(started)
	assert.Equal(started, ld.Guard.Started)

	// inside the warm-up everything passes
	_, err := ld.Load(nil, []string{"a b"}, started)
	assert.NoError(err)
	_, err = ld.Load(nil, []string{"a b"}, started.Add(time.Minute))
	assert.Error(err)
}
