package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	for _, in := range []string{"15.01.2025", "15.1.2025", "15/01/2025", "2025-01-15", " 15.01.2025 "} {
		got, ok := ParseDate(in, time.UTC)
		if assert.True(t, ok, in) {
			assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), got, in)
		}
	}
	for _, in := range []string{"", "tomorrow", "32.01.2025", "15-01-2025"} {
		_, ok := ParseDate(in, time.UTC)
		assert.False(t, ok, in)
	}
}

func TestStartOfDay(t *testing.T) {
	ts := time.Date(2025, 3, 4, 17, 30, 5, 9, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), StartOfDay(ts))
}
