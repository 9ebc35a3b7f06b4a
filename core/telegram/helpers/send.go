package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/tripbot/core/logger"
	"github.com/m3rciful/tripbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
// A nil dispatcher makes helpers send synchronously.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func sendAsync(c tele.Context, action, endpoint string, run func() error) error {
	disp := globalDispatcher.Load()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	_, chatID := IDs(c)
	err := disp.Enqueue(ctx, chatID, action, endpoint, run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("op", action),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

// Send queues a message with the given options to the update's chat.
func Send(c tele.Context, what any, opts ...any) error {
	return sendAsync(c, "send", "sendMessage", func() error {
		return c.Send(what, opts...)
	})
}

// SendText sends raw text (no parse mode), optionally with a reply markup.
func SendText(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	if len(markup) > 0 && markup[0] != nil {
		return Send(c, text, markup[0])
	}
	return Send(c, text)
}

// Respond acknowledges a callback query so the client stops its spinner.
func Respond(c tele.Context, text string) error {
	if c.Callback() == nil {
		return nil
	}
	return sendAsync(c, "respond", "answerCallbackQuery", func() error {
		if text == "" {
			return c.Respond()
		}
		return c.Respond(&tele.CallbackResponse{Text: text})
	})
}

// EditOrSendText replaces the message of the pressed button, or sends a new
// one when the update is not a callback. Only inline markups survive an edit.
func EditOrSendText(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return sendAsync(c, "edit", "editMessageText", func() error {
		if len(markup) > 0 && markup[0] != nil {
			return c.EditOrSend(text, markup[0])
		}
		return c.EditOrSend(text)
	})
}
