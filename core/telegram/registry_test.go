package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/seatwatch/core/telegram/commands"
)

func noop(tele.Context) error { return nil }

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/search", commands.Command{Handler: noop, Description: "search", Aliases: []string{"find"}}))
	require.NoError(t, reg.RegisterCommand("/status", commands.Command{Handler: noop, Description: "status", AdminOnly: true}))
	assert.Error(t, reg.RegisterCommand("search", commands.Command{Handler: noop, Description: "x"}))
	assert.Error(t, reg.RegisterCommand("/search", commands.Command{Handler: noop, Description: "dup"}))
	assert.Error(t, reg.RegisterCommand("/empty", commands.Command{Handler: noop}))

	visible := reg.ListCommands(true)
	require.Len(t, visible, 1)
	assert.Equal(t, "/search", visible[0].Text)
	assert.Len(t, reg.ListCommands(false), 2)

	for _, text := range []string{"/search", "/search@seat_bot", "/find now", "/search extra words"} {
		key, _, ok := reg.LookupCommand(text)
		assert.True(t, ok, text)
		assert.Equal(t, "/search", key, text)
	}
	_, _, ok := reg.LookupCommand("search")
	assert.False(t, ok)
	_, _, ok = reg.LookupCommand("")
	assert.False(t, ok)
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("st", noop))
	require.NoError(t, reg.RegisterCallback("any", noop))
	assert.Error(t, reg.RegisterCallback("st", noop))
	assert.Error(t, reg.RegisterCallback("", noop))

	_, ok := reg.GetCallback("st")
	assert.True(t, ok)
	_, ok = reg.GetCallback("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"any", "st"}, reg.ListCallbacks())
}
