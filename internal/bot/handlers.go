package bot

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/seatwatch/core/logger"
	"github.com/m3rciful/seatwatch/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/seatwatch/core/telegram/helpers"
	"github.com/m3rciful/seatwatch/internal/search"
)

func inbound(c tele.Context) search.Inbound {
	in := search.Inbound{Text: c.Text()}
	if u := c.Sender(); u != nil {
		in.UserID = u.ID
	}
	if ch := c.Chat(); ch != nil {
		in.ChatID = ch.ID
	}
	if m := c.Message(); m != nil {
		in.MessageID = m.ID
	}
	return in
}

// callbackData restores the raw "\f<tag>|<payload>" form when telebot
// already split it on a matched unique endpoint.
func callbackData(cb *tele.Callback) string {
	if cb == nil {
		return ""
	}
	if cb.Unique != "" {
		if cb.Data == "" {
			return "\f" + cb.Unique
		}
		return "\f" + cb.Unique + "|" + cb.Data
	}
	return cb.Data
}

func (a *App) handleStart(c tele.Context) error {
	return tghelpers.SendHTML(c, welcomeText)
}

func (a *App) handleHelp(c tele.Context) error {
	return tghelpers.SendHTML(c, helpText(a.cfg.Monitor.Interval()))
}

func (a *App) handleSearch(c tele.Context) error {
	return a.search.Start(tghelpers.BuildContext(c), inbound(c))
}

// Active reports whether free text from this chat belongs to the search flow.
// Every private chat qualifies: text without a saved search starts one.
func (a *App) Active(c tele.Context) bool {
	ch := c.Chat()
	return ch != nil && ch.Type == tele.ChatPrivate
}

// HandleText feeds free text to the search flow.
func (a *App) HandleText(c tele.Context) error {
	return a.search.HandleText(tghelpers.BuildContext(c), inbound(c))
}

func (a *App) handleSearchCallback(c tele.Context) error {
	notice, err := a.search.HandleCallback(tghelpers.BuildContext(c), inbound(c), callbackData(c.Callback()))
	_ = callbacks.Answer(c, notice)
	return err
}

func (a *App) handleSubscriptions(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	in := inbound(c)
	subs, err := a.store.UserSubscriptions(ctx, in.UserID)
	if err != nil {
		logger.Error(ctx, logger.CompStorage, "subscriptions.list", logger.Err(err))
		_, _ = a.chat.SendText(ctx, in.ChatID, listFailed)
		return err
	}
	text, rows := subscriptionsView(subs, a.cfg.Chat.MaxMessageLength, a.cfg.Chat.MaxCallbackBytes)
	_, err = a.chat.SendTextWithButtons(ctx, in.ChatID, text, rows)
	return err
}

// handleToggle flips a subscription on or off and refreshes the list in place.
func (a *App) handleToggle(active bool) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		in := inbound(c)
		p, err := search.DecodePayload(callbackData(c.Callback()))
		if err != nil {
			return callbacks.Answer(c, search.StaleNotice)
		}
		changed, err := a.store.SetActive(ctx, p.ID, in.UserID, active)
		if err != nil {
			_ = callbacks.Answer(c, listFailed)
			return err
		}
		logger.Info(ctx, logger.CompStorage, "subscription.toggle",
			slog.Int64("subscription_id", p.ID),
			slog.Bool("active", active),
			slog.Bool("changed", changed),
		)
		if !changed {
			return callbacks.Answer(c, toggleMissed)
		}
		notice := subscriptionOff
		if active {
			notice = subscriptionOn
		}
		_ = callbacks.Answer(c, notice)

		subs, err := a.store.UserSubscriptions(ctx, in.UserID)
		if err != nil {
			return err
		}
		text, rows := subscriptionsView(subs, a.cfg.Chat.MaxMessageLength, a.cfg.Chat.MaxCallbackBytes)
		return a.chat.EditText(ctx, in.ChatID, in.MessageID, text, rows)
	}
}

func (a *App) handleStatus(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	rep, ok := a.monitor.LastReport()
	subs, err := a.store.ActiveSubscriptions(ctx)
	if err != nil {
		return err
	}
	return tghelpers.SendHTML(c, statusText(rep, ok, len(subs)))
}

func (a *App) handleAdminReject(c tele.Context) error {
	return tghelpers.SendHTML(c, adminOnly)
}

func (a *App) handleRateLimited(c tele.Context) error {
	if c.Callback() != nil {
		return callbacks.Answer(c, rateLimited)
	}
	return tghelpers.SendHTML(c, rateLimited)
}

// UnknownText ignores text outside private chats.
func (a *App) UnknownText() tele.HandlerFunc {
	return func(tele.Context) error { return nil }
}

// UnknownDocument reminds the user that only text is understood.
func (a *App) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error { return tghelpers.SendHTML(c, unknownDocument) }
}

// UnknownCallback answers buttons from older bot versions.
func (a *App) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error { return callbacks.Answer(c, search.StaleNotice) }
}
