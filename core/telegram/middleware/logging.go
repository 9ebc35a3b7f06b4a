package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/tripbot/core/logger"
	"github.com/m3rciful/tripbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/tripbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// seenUpdates suppresses a second receipt line when the middleware wraps a route twice.
var seenUpdates = struct {
	sync.Mutex
	at map[int]time.Time
}{at: make(map[int]time.Time)}

func firstSighting(updateID int, now time.Time) bool {
	seenUpdates.Lock()
	defer seenUpdates.Unlock()
	for id, ts := range seenUpdates.at {
		if now.Sub(ts) > 10*time.Second {
			delete(seenUpdates.at, id)
		}
	}
	if _, ok := seenUpdates.at[updateID]; ok {
		return false
	}
	seenUpdates.at[updateID] = now
	return true
}

// LoggerMiddleware sets the update rid and logging context and logs one
// receipt line per update at DEBUG.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		userID, chatID := tghelpers.IDs(c)

		ctx, ok := tghelpers.ContextFrom(c)
		if !ok {
			c.Set("rid", logger.BuildRID(upd.ID, chatID, userID))
			ctx = tghelpers.BuildContext(c)
		}

		if !firstSighting(upd.ID, time.Now()) || !logger.ShouldSampleDebug() {
			return next(c)
		}

		attrs := []slog.Attr{
			slog.String("status", "ok"),
			slog.String("mode", UpdateKind(upd)),
		}
		switch {
		case upd.Callback != nil:
			key, payload := callbacks.ParseCallbackData(upd.Callback)
			attrs = append(attrs,
				slog.String("cb_key", logger.SanitizeLimit(key, 64)),
				slog.String("payload", logger.SanitizeLimit(payload, 128)),
			)
		case upd.Message != nil && upd.Message.Location != nil:
			// coordinates stay out of receipt logs
		case upd.Message != nil:
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(c.Text(), 128)))
		}
		logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "update.received", attrs...)
		return next(c)
	}
}
