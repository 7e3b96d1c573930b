package router

import (
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/servicebot/core/telegram"
)

// Dialogs is the part of the session store the text routes need.
type Dialogs interface {
	InDialog(c tele.Context) bool
	HandlerName(c tele.Context) string
	ManagerHandler(c tele.Context) error
}

// TextOptions holds the handlers for input outside any dialog.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes routes text, shared contacts and documents. Input inside an
// active dialog always goes to the dialog step first.
func TextRoutes(d Dialogs, reg *tg.Registry, opts TextOptions) []tg.Route {
	inDialog := func(c tele.Context) bool { return d != nil && d.InDialog(c) }
	step := func(c tele.Context) error {
		return handled(c, "fsm."+handlerName(d.HandlerName(c)), d.ManagerHandler)
	}
	orElse := func(name string, h tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if inDialog(c) {
				return step(c)
			}
			if h == nil {
				return skipped(c, name)
			}
			return handled(c, name, h)
		}
	}

	text := func(c tele.Context) error {
		if inDialog(c) {
			return step(c)
		}
		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil && !cmd.AdminOnly {
				return handled(c, handlerName(key), cmd.Handler)
			}
			if fb := reg.TextFallback(); fb != nil {
				return handled(c, "fallback", fb)
			}
		}
		return orElse("unknown_text", opts.UnknownText)(c)
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: text},
		{Endpoint: tele.OnContact, Handler: orElse("unexpected_contact", nil)},
		{Endpoint: tele.OnDocument, Handler: orElse("unexpected_document", opts.UnknownDocument)},
	}
}

// Fallbacks supplies the handlers for updates no route claims.
type Fallbacks interface {
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}
