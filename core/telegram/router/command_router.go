package router

import (
	"log/slog"

	"github.com/m3rciful/tripbot/core/logger"
	tg "github.com/m3rciful/tripbot/core/telegram"
	"github.com/m3rciful/tripbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes binds every registered command and alias to its handler.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	admin := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})

	var routes []tg.Route
	for name, def := range reg.Commands() {
		def, label := def, handlerName(name)
		h := func(c tele.Context) error {
			return handleWithSummary(c, label, func() error { return def.Handler(c) })
		}
		if def.AdminOnly {
			h = admin(h)
		}
		h = middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))

		routes = append(routes, tg.Route{Endpoint: name, Handler: h})
		for _, alias := range def.Aliases {
			if alias != "" && alias[0] != '/' {
				alias = "/" + alias
			}
			routes = append(routes, tg.Route{Endpoint: alias, Handler: h})
		}
	}

	logger.TWire.Info("commands wired",
		slog.String("event", "wire.commands"),
		slog.Int("count", len(routes)),
	)
	return routes
}
