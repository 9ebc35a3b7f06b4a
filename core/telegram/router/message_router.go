package router

import (
	tg "github.com/m3rciful/tripbot/core/telegram"
	"github.com/m3rciful/tripbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Dialog is a multi-step conversation that owns every plain message of a
// user while one is in progress.
type Dialog interface {
	InProgress(userID int64) bool
	Continue(c tele.Context) error
}

// MessageRoutes builds the routes for text, locations and the message kinds a
// dialog cannot use (media, stickers, contacts, venues), so that those still get
// an answer. Updates go to the dialog while it is in progress, otherwise to
// the registry text fallback.
func MessageRoutes(dialog Dialog, reg *tg.Registry) []tg.Route {
	route := func(kind string) tele.HandlerFunc {
		return func(c tele.Context) error {
			if dialog != nil && c.Sender() != nil && dialog.InProgress(c.Sender().ID) {
				return handleWithSummary(c, "dialog."+kind, func() error { return dialog.Continue(c) })
			}
			if reg != nil && reg.TextFallback() != nil {
				return handleWithSummary(c, "fallback."+kind, func() error { return reg.TextFallback()(c) })
			}
			return nil
		}
	}
	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(route("text"))},
		{Endpoint: tele.OnLocation, Handler: wrap(route("location"))},
		{Endpoint: tele.OnVenue, Handler: wrap(route("venue"))},
		{Endpoint: tele.OnMedia, Handler: wrap(route("media"))},
		{Endpoint: tele.OnSticker, Handler: wrap(route("sticker"))},
		{Endpoint: tele.OnContact, Handler: wrap(route("contact"))},
	}
}
