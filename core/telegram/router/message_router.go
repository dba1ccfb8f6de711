package router

import (
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/seatwatch/core/telegram"
)

// TextFlow consumes free text while a conversational flow is active.
// Active reports whether the sender currently has such a flow.
type TextFlow interface {
	Active(c tele.Context) bool
	HandleText(c tele.Context) error
}

// TextOptions controls fallback behaviour for text and document updates.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes builds the text and document routes. Text is matched against
// registered commands first, then handed to the active flow, then to the
// unknown-text fallback.
func TextRoutes(flow TextFlow, reg *tg.Registry, opts TextOptions) []tg.Route {
	text := func(c tele.Context) error {
		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok && !cmd.AdminOnly {
				return handleWithSummary(c, "command."+normalizeHandlerName(key), func() error {
					return cmd.Handler(c)
				})
			}
		}
		if flow != nil && flow.Active(c) {
			return handleWithSummary(c, "flow.text", func() error { return flow.HandleText(c) })
		}
		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", func() error { return opts.UnknownText(c) })
		}
		logHandlerSummary(c, "unknown_text", time.Now(), "skip", nil)
		return nil
	}

	doc := func(c tele.Context) error {
		if opts.UnknownDocument != nil {
			return handleWithSummary(c, "unexpected_document", func() error { return opts.UnknownDocument(c) })
		}
		logHandlerSummary(c, "unexpected_document", time.Now(), "skip", nil)
		return nil
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: text},
		{Endpoint: tele.OnDocument, Handler: doc},
	}
}
