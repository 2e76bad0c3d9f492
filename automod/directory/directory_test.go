package directory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testDirectory(t *testing.T, d interface {
	Directory
	Writer
}) {
	assert := assert.New(t)

	_, ok := d.StableID("bob")
	assert.False(ok)

	d.SetPlayer(Player{Name: "Bob", StableID: "EA_B0B"})
	d.SetPlayer(Player{Name: "bob", Country: "de"})
	d.SetPlayer(Player{Name: "Alice", Country: "at"})
	d.SetPlayer(Player{Name: ""})

	id, ok := d.StableID("BOB")
	assert.True(ok)
	assert.Equal("EA_B0B", id)
	c, ok := d.Country("bob")
	assert.True(ok)
	assert.Equal("de", c)
	_, ok = d.StableID("alice")
	assert.False(ok)

	assert.Len(d.Names(), 2)

	d.SetAdmins([]string{"Alice"})
	assert.True(d.IsAdmin("alice"))
	assert.False(d.IsAdmin("bob"))
	assert.True(d.IsAdmin(ServerName))

	d.Forget("alice")
	_, ok = d.Country("alice")
	assert.False(ok)

	d.Clear()
	assert.Empty(d.Names())
	assert.True(d.IsAdmin("alice"), "clear keeps admins")
}

func TestMemDirectory(t *testing.T) {
	testDirectory(t, NewMemDirectory(100, time.Hour))
}

func TestMemDirectoryExpiry(t *testing.T) {
	assert := assert.New(t)

	d := NewMemDirectory(100, 50*time.Millisecond)
	d.SetPlayer(Player{Name: "bob", StableID: "EA_B0B"})
	_, ok := d.StableID("bob")
	assert.True(ok)

	time.Sleep(200 * time.Millisecond)
	_, ok = d.StableID("bob")
	assert.False(ok)
}

func TestRedisDirectory(t *testing.T) {
	t.Skip("live test, need redis running locally")

	d, err := NewRedisDirectory("redis://localhost:6379/0", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	testDirectory(t, d)
}
