package router

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/seatwatch/core/telegram"
	"github.com/m3rciful/seatwatch/core/telegram/callbacks"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute routes every callback query through the registry by its tag.
// A query the handler left unanswered is acknowledged afterwards so the
// client spinner stops.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		key := callbacks.Key(c)
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}
		defer func() {
			if !callbacks.Answered(c) {
				_ = callbacks.Answer(c, "")
			}
		}()

		h, ok := reg.GetCallback(key)
		if !ok {
			h = reg.CallbackNotFound()
			if h == nil {
				h = opts.NotFound
			}
			extras = append(extras, slog.String("cause", "not_found"))
		}
		return handleWithSummary(c, name, func() error {
			if h == nil {
				return nil
			}
			return h(c)
		}, extras...)
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: handler}
}
