package middleware

import (
	"log/slog"
	"unicode/utf8"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/servicebot/core/logger"
	"github.com/m3rciful/servicebot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/servicebot/core/telegram/helpers"
)

const receivedKey = "update_logged"

// LoggerMiddleware creates the request context and writes one sampled debug
// line per update. Message text is never logged because dialogs collect
// passwords; only its length is.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		if logged, _ := c.Get(receivedKey).(bool); logged || !logger.SampleDebug() {
			return next(c)
		}
		c.Set(receivedKey, true)

		attrs := []slog.Attr{slog.String("status", "ok")}
		if chat := c.Chat(); chat != nil {
			attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
		}
		if u := c.Sender(); u != nil {
			if u.Username != "" {
				attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
			}
			if u.LanguageCode != "" {
				attrs = append(attrs, slog.String("lang", u.LanguageCode))
			}
		}
		upd := c.Update()
		switch {
		case upd.Callback != nil:
			key, payload := callbacks.Split(upd.Callback)
			attrs = append(attrs,
				slog.String("cb_key", logger.SanitizeLimit(key, 128)),
				slog.String("payload", logger.SanitizeLimit(payload, 256)),
			)
		case upd.Message != nil:
			if upd.Message.Contact != nil {
				attrs = append(attrs, slog.Bool("contact", true))
			}
			if t := c.Text(); t != "" {
				attrs = append(attrs, slog.Int("text_len", utf8.RuneCountInString(t)))
			}
		}
		logger.Debug(ctx, "tg", "update.received", attrs...)
		return next(c)
	}
}
