package bot

import (
	"github.com/m3rciful/tripbot/core/telegram/keyboard"
	"github.com/m3rciful/tripbot/internal/conversation"
	"github.com/m3rciful/tripbot/internal/fleet"

	tele "gopkg.in/telebot.v4"
)

// Callback unique keys of the inline menus.
const (
	CallbackTruck = "truck"
	CallbackEvent = "event"
)

const locationButton = "Bitte Standort teilen"

// TruckMenu lists the fleet, one truck per row.
func TruckMenu() *tele.ReplyMarkup {
	var btns []keyboard.InlineBtn
	for _, t := range fleet.Trucks() {
		btns = append(btns, keyboard.InlineBtn{Text: t.Label(), Unique: CallbackTruck, Data: string(t)})
	}
	return keyboard.InlineButtonsNPerRow(btns, 1)
}

// EventMenu lists the reportable events, one per row.
func EventMenu() *tele.ReplyMarkup {
	var btns []keyboard.InlineBtn
	for _, e := range fleet.Events() {
		btns = append(btns, keyboard.InlineBtn{Text: e.Label(), Unique: CallbackEvent, Data: string(e)})
	}
	return keyboard.InlineButtonsNPerRow(btns, 1)
}

func markupFor(m conversation.Markup) *tele.ReplyMarkup {
	switch m {
	case conversation.MarkupTruckMenu:
		return TruckMenu()
	case conversation.MarkupEventMenu:
		return EventMenu()
	case conversation.MarkupLocationRequest:
		return keyboard.LocationRequest(locationButton)
	case conversation.MarkupRemoveKeyboard:
		return keyboard.RemoveKeyboard()
	}
	return nil
}
