package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/seatwatch/core/logger"
)

// RateLimitOptions configures a token bucket per user.
type RateLimitOptions struct {
	PerSecond float64
	Burst     int
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	// IdleTTL drops buckets of users silent for this long; 0 keeps ten minutes.
	IdleTTL time.Duration
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimitMiddleware drops updates from users exceeding their token bucket.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 10 * time.Minute
	}
	var (
		mu      sync.Mutex
		buckets = make(map[int64]*bucket)
		sweptAt time.Time
	)
	allow := func(userID int64, now time.Time) bool {
		mu.Lock()
		defer mu.Unlock()
		if now.Sub(sweptAt) > opts.IdleTTL {
			for id, b := range buckets {
				if now.Sub(b.seen) > opts.IdleTTL {
					delete(buckets, id)
				}
			}
			sweptAt = now
		}
		b, ok := buckets[userID]
		if !ok {
			b = &bucket{lim: rate.NewLimiter(rate.Limit(opts.PerSecond), opts.Burst)}
			buckets[userID] = b
		}
		b.seen = now
		return b.lim.AllowN(now, 1)
	}

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.PerSecond <= 0 {
				return next(c)
			}
			if _, skip := opts.Exclude[updateKind(c.Update())]; skip {
				return next(c)
			}
			if allow(user.ID, time.Now()) {
				return next(c)
			}
			logger.Warn(logger.WithUser(context.Background(), user.ID), logger.CompTG, "tg.rate_limit",
				slog.String("status", "rate_limited"),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}

func updateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	}
	return "other"
}
