// Package bot connects the trip conversation to Telegram: it registers the
// commands and menus, turns updates into conversation inputs and renders the
// replies.
package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/tripbot/core/logger"
	tg "github.com/m3rciful/tripbot/core/telegram"
	"github.com/m3rciful/tripbot/core/telegram/callbacks"
	"github.com/m3rciful/tripbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/tripbot/core/telegram/helpers"
	"github.com/m3rciful/tripbot/internal/conversation"
	"github.com/m3rciful/tripbot/internal/fleet"
	"github.com/m3rciful/tripbot/internal/storage"

	tele "gopkg.in/telebot.v4"
)

const (
	textAdminOnly   = "Dieser Befehl ist nur für Administratoren verfügbar."
	textRateLimited = "⏳ Bitte warten Sie einen Moment und senden Sie Ihre Eingabe erneut."
	textSlowDown    = "Bitte etwas langsamer."
)

// Bot adapts a conversation.Controller to telebot handlers.
type Bot struct {
	ctrl *conversation.Controller
	last storage.LastReadings
}

// New returns a Bot driving ctrl. last backs the /kmstand overview.
func New(ctrl *conversation.Controller, last storage.LastReadings) *Bot {
	return &Bot{ctrl: ctrl, last: last}
}

// Register adds the bot's commands, menu callbacks and text fallback to reg.
func (b *Bot) Register(reg *tg.Registry) error {
	cmds := []struct {
		name string
		cmd  commands.Command
	}{
		{"/start", commands.Command{Handler: b.onStart, Description: "Neue Fahrt starten"}},
		{"/cancel", commands.Command{Handler: b.onCancel, Description: "Aktuellen Vorgang abbrechen", Aliases: []string{"abbrechen"}}},
		{"/kmstand", commands.Command{Handler: b.onKMStand, Description: "Letzte Kilometerstände anzeigen", AdminOnly: true}},
	}
	var errs []error
	for _, c := range cmds {
		errs = append(errs, reg.RegisterCommand(c.name, c.cmd))
	}
	errs = append(errs,
		reg.RegisterCallback(CallbackTruck, b.onTruck),
		reg.RegisterCallback(CallbackEvent, b.onEvent),
	)
	reg.SetTextFallback(b.Continue)
	return errors.Join(errs...)
}

// InProgress reports whether userID is inside a trip conversation.
func (b *Bot) InProgress(userID int64) bool {
	return b.ctrl.InProgress(userID)
}

// Continue feeds a text or location message into the conversation.
func (b *Bot) Continue(c tele.Context) error {
	msg := c.Message()
	if msg == nil {
		return nil
	}
	shared := msg.Location
	if shared == nil && msg.Venue != nil {
		shared = &msg.Venue.Location
	}
	if shared != nil {
		loc := &fleet.Location{Lat: coord(shared.Lat), Lon: coord(shared.Lng)}
		return b.handle(c, conversation.Input{Kind: conversation.InputLocation, Location: loc})
	}
	return b.handle(c, conversation.Input{Kind: conversation.InputText, Payload: msg.Text})
}

func (b *Bot) onStart(c tele.Context) error {
	return b.handle(c, conversation.Input{Kind: conversation.InputStart})
}

func (b *Bot) onCancel(c tele.Context) error {
	return b.handle(c, conversation.Input{Kind: conversation.InputCancel})
}

func (b *Bot) onTruck(c tele.Context) error {
	return b.button(c, conversation.InputTruck)
}

func (b *Bot) onEvent(c tele.Context) error {
	return b.button(c, conversation.InputEvent)
}

func (b *Bot) button(c tele.Context, kind conversation.InputKind) error {
	_ = tghelpers.Respond(c, "")
	return b.handle(c, conversation.Input{
		Kind:       kind,
		Payload:    callbacks.CallbackPayload(c),
		FromButton: true,
	})
}

func (b *Bot) handle(c tele.Context, in conversation.Input) error {
	u := c.Sender()
	if u == nil {
		return nil
	}
	in.UserID = u.ID

	ctx := tghelpers.BuildContext(c)
	replies, err := b.ctrl.Handle(ctx, in)
	if rerr := render(c, replies); rerr != nil {
		return errors.Join(err, rerr)
	}
	return err
}

func render(c tele.Context, replies []conversation.Reply) error {
	for _, r := range replies {
		rm := markupFor(r.Markup)
		var err error
		// Telegram edits accept inline keyboards only.
		if r.Edit && c.Callback() != nil && (rm == nil || rm.InlineKeyboard != nil) {
			err = tghelpers.EditOrSendText(c, r.Text, rm)
		} else {
			err = tghelpers.SendText(c, r.Text, rm)
		}
		if err != nil {
			return fmt.Errorf("bot: deliver reply: %w", err)
		}
	}
	return nil
}

func (b *Bot) onKMStand(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	lister, ok := b.last.(storage.Lister)
	if !ok {
		return tghelpers.SendText(c, "Die Kilometerstände können mit diesem Speicher nicht aufgelistet werden.")
	}
	all, err := lister.All(ctx)
	if err != nil {
		logger.Error(ctx, "tg", "kmstand.failed", slog.String("err", err.Error()))
		return fmt.Errorf("bot: list last readings: %w", err)
	}
	return tghelpers.SendText(c, formatKMStand(all))
}

func formatKMStand(all map[fleet.Truck]int64) string {
	var sb strings.Builder
	sb.WriteString("Letzte Kilometerstände:")
	for _, t := range fleet.Trucks() {
		sb.WriteString("\n")
		sb.WriteString(t.Label())
		sb.WriteString(": ")
		if km, ok := all[t]; ok {
			sb.WriteString(strconv.FormatInt(km, 10))
			sb.WriteString(" km")
		} else {
			sb.WriteString("kein Eintrag")
		}
	}
	return sb.String()
}

// RejectAdmin answers non-admins calling an admin-only command.
func RejectAdmin(c tele.Context) error {
	return tghelpers.SendText(c, textAdminOnly)
}

// OnRateLimited tells the driver that an update was dropped.
func OnRateLimited(c tele.Context) error {
	if c.Callback() != nil {
		return tghelpers.Respond(c, textSlowDown)
	}
	return tghelpers.SendText(c, textRateLimited)
}

// coord widens a float32 coordinate without binary noise ("13.4", not "13.399999618530273").
func coord(v float32) float64 {
	f, err := strconv.ParseFloat(strconv.FormatFloat(float64(v), 'f', -1, 32), 64)
	if err != nil {
		return float64(v)
	}
	return f
}
