package router

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/servicebot/core/telegram"
	"github.com/m3rciful/servicebot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/servicebot/core/telegram/helpers"
)

// CallbackOptions configures unknown callbacks.
type CallbackOptions struct {
	// NotFound is used when the registry has no not-found handler.
	NotFound tele.HandlerFunc
}

// CallbackRoute routes every inline button press through the registry.
// The callback is always answered once the handler returns; a handler that
// already answered with a toast makes the second answer a no-op.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	h := func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		defer func() { _ = tghelpers.Answer(c, nil) }()

		key, _ := callbacks.Split(cb)
		name := "callback." + handlerName(key)
		if h, ok := reg.GetCallback(key); ok && h != nil {
			return handled(c, name, h, slog.String("cb_key", key))
		}
		miss := reg.CallbackNotFound()
		if miss == nil {
			miss = opts.NotFound
		}
		if miss == nil {
			return skipped(c, name)
		}
		return handled(c, name, miss, slog.String("cb_key", key), slog.String("reason", "not_found"))
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: h}
}
