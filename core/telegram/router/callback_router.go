package router

import (
	"log/slog"

	tg "github.com/m3rciful/tripbot/core/telegram"
	"github.com/m3rciful/tripbot/core/telegram/callbacks"
	"github.com/m3rciful/tripbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackRoute dispatches OnCallback updates to registry handlers by unique key.
func CallbackRoute(reg *tg.Registry) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		key, _ := callbacks.ParseCallbackData(c.Callback())
		extras := []slog.Attr{slog.String("cb_key", key)}

		h, ok := reg.GetCallback(key)
		if !ok {
			h = reg.CallbackNotFound()
			extras = append(extras, slog.String("cause", "not_found"))
		}
		return handleWithSummary(c, "callback."+handlerName(key), func() error {
			return h(c)
		}, extras...)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
