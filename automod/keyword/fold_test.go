package keyword

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		s   string
		out string
	}{
		{s: "", out: ""},
		{s: "Hello", out: "hello"},
		{s: "SHOUTING", out: "shouting"},
		{s: "Straße", out: "strasse"},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.out, Fold(fix.s))
	}
}

func TestStripMarks(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("fuck", StripMarks("fück"))
	assert.Equal("Acai", StripMarks("Açaí"))
	assert.Equal("plain", StripMarks("plain"))
}

func TestContainsFold(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		haystack string
		needle   string
		out      bool
	}{
		{haystack: "you are an ASS", needle: "ass", out: true},
		{haystack: "smartass", needle: "Ass", out: true},
		{haystack: "classic", needle: "ass", out: true},
		{haystack: "hello there", needle: "ass", out: false},
		{haystack: "", needle: "ass", out: false},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.out, ContainsFold(fix.haystack, fix.needle), fix.haystack)
	}
}

func TestNormalizer(t *testing.T) {
	assert := assert.New(t)

	plain := Normalizer{}
	assert.False(plain.Contains("what the fück", "fuck"))

	marks := Normalizer{StripMarks: true}
	assert.True(marks.Contains("what the FÜCK", "fuck"))
	assert.Equal("fuck", marks.Normalize("FÜCK"))
}
