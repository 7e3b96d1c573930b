package telegram

import (
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/servicebot/core/config"
	"github.com/m3rciful/servicebot/core/telegram/middleware"
)

// DefaultMiddlewares is the global chain, outermost first: panic recovery,
// the per-user rate limit when configured, then update logging. onLimited
// answers a throttled update and may be nil.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited tele.HandlerFunc) []Middleware {
	chain := []Middleware{{Name: "recover", Use: middleware.RecoverMiddleware}}
	if cfg != nil && cfg.RateLimit.IntervalMS > 0 {
		chain = append(chain, Middleware{
			Name: "rate_limit",
			Use:  middleware.RateLimitMiddleware(rateLimitOptions(cfg.RateLimit, onLimited)),
		})
	}
	return append(chain, Middleware{Name: "logger", Use: middleware.LoggerMiddleware})
}

func rateLimitOptions(rl coreconfig.RateLimitConfig, onLimited tele.HandlerFunc) middleware.RateLimitOptions {
	skip := make(map[string]struct{}, len(rl.ExcludeUpdates))
	for _, kind := range rl.ExcludeUpdates {
		skip[kind] = struct{}{}
	}
	return middleware.RateLimitOptions{
		Interval:  time.Duration(rl.IntervalMS) * time.Millisecond,
		Burst:     rl.Burst,
		Exclude:   skip,
		OnLimited: onLimited,
	}
}
