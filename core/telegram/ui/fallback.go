package ui

import tele "gopkg.in/telebot.v4"

// FallbackProvider supplies handlers for updates that match no command,
// callback route or text flow.
type FallbackProvider interface {
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}
