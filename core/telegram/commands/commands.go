package commands

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Command is a slash command with its menu metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands are wrapped with the admin check and kept out of the menu.
	AdminOnly bool
	Hidden    bool
	Aliases   []string
}

// Matches reports whether name (with or without the leading slash) is one of the aliases.
func (c Command) Matches(name string) bool {
	name = strings.TrimPrefix(name, "/")
	for _, alias := range c.Aliases {
		if strings.TrimPrefix(alias, "/") == name {
			return true
		}
	}
	return false
}

// Visible reports whether the command belongs in the public command menu.
func (c Command) Visible() bool {
	return !c.Hidden && !c.AdminOnly
}
