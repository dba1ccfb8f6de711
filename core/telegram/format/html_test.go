package format

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestEscapeAndBold(t *testing.T) {
	assert.Equal(t, "<b>A &lt;&amp;&gt; B</b>", Bold("A <&> B"))
}

func TestRunes(t *testing.T) {
	assert.Equal(t, "Моск", Runes("Москва", 4))
	assert.Equal(t, "ab", Runes("ab", 5))
	assert.Empty(t, Runes("ab", 0))
}

func TestLimit(t *testing.T) {
	short := "hello"
	assert.Equal(t, short, Limit(short, 10, TruncatedMarker))

	long := strings.Repeat("я", 100)
	out := Limit(long, 50, TruncatedMarker)
	assert.Equal(t, 50, utf8.RuneCountInString(out))
	assert.True(t, strings.HasSuffix(out, TruncatedMarker))
}
