package router

import (
	"context"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/servicebot/core/logger"
	tg "github.com/m3rciful/servicebot/core/telegram"
	"github.com/m3rciful/servicebot/core/telegram/middleware"
)

// CommandRouteOptions configures admin-only commands.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes returns one route per command name and alias.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	admin := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})

	cmds := reg.Commands()
	var routes []tg.Route
	for name, cmd := range cmds {
		label, h := handlerName(name), cmd.Handler
		if cmd.AdminOnly {
			h = admin(h)
		}
		wrapped := func(c tele.Context) error { return handled(c, label, h) }
		routes = append(routes, tg.Route{Endpoint: name, Handler: wrapped})
		for _, alias := range cmd.Aliases {
			routes = append(routes, tg.Route{Endpoint: "/" + handlerName(alias), Handler: wrapped})
		}
	}

	logger.Info(context.Background(), "tg.wire", "wire.complete",
		slog.Int("commands", len(cmds)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}
