package telegram

import (
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/seatwatch/core/config"
	"github.com/m3rciful/seatwatch/core/telegram/middleware"
	"github.com/m3rciful/seatwatch/core/telegram/state"
)

// DefaultMiddlewares builds the shared global chain: panic recovery, optional
// per-user rate limiting, request logging, reply counters and, when locker is
// set, per-user serialization.
func DefaultMiddlewares(cfg *coreconfig.Config, locker *state.Locker, onLimited tele.HandlerFunc) []Middleware {
	mws := []Middleware{{Name: "recover", Use: middleware.RecoverMiddleware}}

	if cfg != nil && cfg.RateLimit.PerSecond > 0 {
		ex := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
		for _, t := range cfg.RateLimit.ExcludeUpdates {
			ex[t] = struct{}{}
		}
		mws = append(mws, Middleware{
			Name: "rate_limit",
			Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
				PerSecond: cfg.RateLimit.PerSecond,
				Burst:     cfg.RateLimit.Burst,
				Exclude:   ex,
				OnLimited: onLimited,
			}),
		})
	}

	mws = append(mws,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	)
	if locker != nil {
		mws = append(mws, Middleware{Name: "user_lock", Use: locker.Serialize})
	}
	return mws
}
