package middleware

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/servicebot/core/logger"
	tghelpers "github.com/m3rciful/servicebot/core/telegram/helpers"
)

// StateGetter reads the dialog state of the sender of c.
type StateGetter interface {
	CurrentState(c tele.Context) string
}

// State lets the update through only while the sender is in one of the
// given dialog states. Anything else is dropped silently, which keeps stale
// buttons from an older dialog harmless.
func State(mgr StateGetter, want ...string) tele.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(want))
	for _, s := range want {
		allowed[s] = struct{}{}
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			got := mgr.CurrentState(c)
			if _, ok := allowed[got]; ok {
				return next(c)
			}
			logger.Debug(tghelpers.BuildContext(c), "tg", "fsm.stale_input",
				slog.String("state", got),
				slog.Any("expected", want),
			)
			return nil
		}
	}
}
