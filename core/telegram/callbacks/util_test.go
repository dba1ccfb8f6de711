package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		data, key, payload string
	}{
		{"\fst|2000000|Москва", "st", "2000000|Москва"},
		{"\fsub", "sub", ""},
		{"plain", "plain", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		key, payload := Split(tt.data)
		assert.Equal(t, tt.key, key, tt.data)
		assert.Equal(t, tt.payload, payload, tt.data)
	}
}

func TestParsePrefersUnique(t *testing.T) {
	key, payload := Parse(&tele.Callback{Unique: "off", Data: "7"})
	assert.Equal(t, "off", key)
	assert.Equal(t, "7", payload)

	key, _ = Parse(nil)
	assert.Empty(t, key)
}
