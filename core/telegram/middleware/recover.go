package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/servicebot/core/logger"
	tghelpers "github.com/m3rciful/servicebot/core/telegram/helpers"
)

// RecoverMiddleware turns a handler panic into an error so one bad update
// cannot take the bot down.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			err = fmt.Errorf("handler panic: %v", r)
			logger.Error(tghelpers.BuildContext(c), "tg", "handler.panic",
				slog.String("outcome", "fail"),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
				slog.String("stack", logger.SanitizeLimit(string(debug.Stack()), 4096)),
			)
		}()
		return next(c)
	}
}
