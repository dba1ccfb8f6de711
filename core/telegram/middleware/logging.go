package middleware

import (
	"log/slog"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/seatwatch/core/logger"
	"github.com/m3rciful/seatwatch/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/seatwatch/core/telegram/helpers"
)

// recentUpdates remembers processed update IDs so a chain applied on several
// branches logs each receipt once.
var recentUpdates = struct {
	sync.Mutex
	seen map[int]time.Time
}{seen: make(map[int]time.Time)}

const keepFor = 10 * time.Second

func alreadyLogged(updateID int) bool {
	now := time.Now()
	recentUpdates.Lock()
	defer recentUpdates.Unlock()
	for id, ts := range recentUpdates.seen {
		if now.Sub(ts) > keepFor {
			delete(recentUpdates.seen, id)
		}
	}
	if _, ok := recentUpdates.seen[updateID]; ok {
		return true
	}
	recentUpdates.seen[updateID] = now
	return false
}

// LoggerMiddleware assigns the request id, stores the logging context on c
// and emits a sampled debug receipt per update.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		user := c.Sender()
		chat := c.Chat()

		var chatID, userID int64
		if chat != nil {
			chatID = chat.ID
		}
		if user != nil {
			userID = user.ID
		}
		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set("rid", rid)

		ctx := logger.WithRID(logger.Background(), rid)
		ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
		ctx = logger.WithLogger(ctx, logger.Component(logger.CompTG))
		tghelpers.StoreContext(c, ctx)

		if logger.ShouldSampleDebug() && !alreadyLogged(upd.ID) {
			attrs := []slog.Attr{slog.String("status", "ok")}
			if chat != nil {
				attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
			}
			if user != nil {
				attrs = append(attrs,
					slog.String("username", logger.SanitizeLimit(user.Username, 64)),
					slog.String("lang", user.LanguageCode),
				)
			}
			switch {
			case upd.Callback != nil:
				key, payload := callbacks.Parse(upd.Callback)
				attrs = append(attrs,
					slog.String("cb_key", logger.SanitizeLimit(key, 64)),
					slog.String("payload", logger.SanitizeLimit(payload, 128)),
				)
			case upd.Message != nil:
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(c.Text(), 128)))
			}
			logger.Debug(ctx, logger.CompTG, "update.received", attrs...)
		}

		return next(c)
	}
}
