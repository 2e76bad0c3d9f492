package heatstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/langwarden/langwarden/automod/heat"
	"github.com/langwarden/langwarden/util/cliutil"
)

var fixtureRecords = []heat.Record{
	{Name: "alice", Heat: 2.5, LastAction: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), StableID: "EA_0123ABCD"},
	{Name: "bob", Heat: -0.25, LastAction: time.Date(2024, 3, 2, 8, 30, 0, 0, time.UTC)},
}

func testStoreRoundTrip(t *testing.T, s HeatStore) {
	assert := assert.New(t)
	ctx := context.Background()

	assert.NoError(s.Save(ctx, fixtureRecords))
	out, err := s.Load(ctx)
	assert.NoError(err)
	assert.Len(out, 2)
	for i := range fixtureRecords {
		assert.Equal(fixtureRecords[i].Name, out[i].Name)
		assert.InDelta(fixtureRecords[i].Heat, out[i].Heat, 0.0001)
		assert.True(fixtureRecords[i].LastAction.Equal(out[i].LastAction), out[i].Name)
		assert.Equal(fixtureRecords[i].StableID, out[i].StableID)
	}

	// save replaces
	assert.NoError(s.Save(ctx, fixtureRecords[1:]))
	out, err = s.Load(ctx)
	assert.NoError(err)
	assert.Len(out, 1)
	assert.Equal("bob", out[0].Name)
}

func TestTicks(t *testing.T) {
	assert := assert.New(t)

	// 2000-01-01T00:00:00Z in .NET ticks
	y2k := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(int64(630822816000000000), ToTicks(y2k))
	assert.True(y2k.Equal(FromTicks(630822816000000000)))

	assert.Equal(int64(0), ToTicks(time.Time{}))
	assert.True(FromTicks(0).IsZero())
}

func TestFormatParseRecord(t *testing.T) {
	assert := assert.New(t)

	line := FormatRecord(fixtureRecords[0])
	assert.Equal("alice 2.5000 638448912000000000 EA_0123ABCD", line)
	assert.Equal("bob -0.2500 638449650000000000 Unknown", FormatRecord(fixtureRecords[1]))

	rec, err := ParseRecord(line)
	assert.NoError(err)
	assert.Equal(fixtureRecords[0].Name, rec.Name)
	assert.True(fixtureRecords[0].LastAction.Equal(rec.LastAction))

	rec, err = ParseRecord("carol 1,5000 638448624000000000 Unknown")
	assert.NoError(err)
	assert.Equal(1.5, rec.Heat)
	assert.Equal("", rec.StableID)

	rec, err = ParseRecord("dave 3.0000 638448624000000000")
	assert.NoError(err)
	assert.Equal("dave", rec.Name)

	_, err = ParseRecord("broken")
	assert.Error(err)
	_, err = ParseRecord("eve notanumber 1 Unknown")
	assert.Error(err)
}

func TestReadRecordsSkipsBadLines(t *testing.T) {
	assert := assert.New(t)

	in := strings.Join([]string{
		"alice 2.5000 638448624000000000 EA_0123ABCD",
		"",
		"garbage",
		"bob -0.2500 638449218000000000 Unknown",
	}, "\n")
	recs, err := ReadRecords(strings.NewReader(in))
	assert.Error(err)
	assert.Contains(err.Error(), "line 3")
	assert.Len(recs, 2)
}

func TestFileHeatStore(t *testing.T) {
	assert := assert.New(t)

	p := filepath.Join(t.TempDir(), "state", "counters.txt")
	s := NewFileHeatStore(p)

	// missing file is an empty ledger
	out, err := s.Load(context.Background())
	assert.NoError(err)
	assert.Empty(out)

	testStoreRoundTrip(t, s)

	raw, err := os.ReadFile(p)
	assert.NoError(err)
	assert.Equal("bob -0.2500 638449650000000000 Unknown\n", string(raw))
}

func TestSQLHeatStore(t *testing.T) {
	db, err := cliutil.SetupDatabase("sqlite://"+filepath.Join(t.TempDir(), "heat.sqlite"), 1)
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewSQLHeatStore(db)
	if err != nil {
		t.Fatal(err)
	}
	testStoreRoundTrip(t, s)
}

func TestRedisHeatStore(t *testing.T) {
	t.Skip("live test, need redis running locally")

	s, err := NewRedisHeatStore("redis://localhost:6379/0")
	if err != nil {
		t.Fatal(err)
	}
	testStoreRoundTrip(t, s)
}
