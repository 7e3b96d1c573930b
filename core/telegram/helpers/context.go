package helpers

import (
	"context"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/servicebot/core/logger"
)

const ctxKey = "request_ctx"

// BuildContext returns the request context of the update, creating it on
// first use. It carries the update, chat and user ids for logging.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := c.Get(ctxKey).(context.Context); ok {
		return ctx
	}
	var chatID, userID int64
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if u := c.Sender(); u != nil {
		userID = u.ID
	}
	ctx := logger.ForUpdate(context.Background(), c.Update().ID, chatID, userID)
	c.Set(ctxKey, ctx)
	return ctx
}

// WithHandler records the handler name in the request context.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := logger.WithHandler(BuildContext(c), handler)
	c.Set(ctxKey, ctx)
	return ctx
}
