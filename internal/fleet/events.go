package fleet

import "strings"

// EventType is one of the trip activities a driver can report.
type EventType string

const (
	EventTripStart    EventType = "fahrt_start"
	EventLoad         EventType = "laden"
	EventUnload       EventType = "entladen"
	EventRefuel       EventType = "tanken"
	EventBorder       EventType = "grenzuebergang"
	EventDriverChange EventType = "fahrerwechsel"
	EventTripEnd      EventType = "fahrt_beenden"
)

type eventMeta struct {
	button string
	prompt string
}

const odometerQuestion = "Geben Sie bitte den aktuellen Kilometerstand ein:"

var events = []EventType{
	EventTripStart,
	EventLoad,
	EventUnload,
	EventRefuel,
	EventBorder,
	EventDriverChange,
	EventTripEnd,
}

var eventInfo = map[EventType]eventMeta{
	EventTripStart:    {button: "Fahrt Start melden", prompt: "Fahrt Start melden:\n" + odometerQuestion},
	EventLoad:         {button: "Ladung melden", prompt: "Ladung melden:\n" + odometerQuestion},
	EventUnload:       {button: "Entladung melden", prompt: "Entladung melden:\n" + odometerQuestion},
	EventRefuel:       {button: "Tanken melden", prompt: "Tanken melden:\n" + odometerQuestion},
	EventBorder:       {button: "Grenzübergang melden", prompt: "Grenzübergang melden:\n" + odometerQuestion},
	EventDriverChange: {button: "Fahrerwechsel melden", prompt: "Fahrerwechsel melden:\n" + odometerQuestion},
	EventTripEnd:      {button: "Fahrt beenden", prompt: "Fahrt beenden:\n" + odometerQuestion},
}

// Events returns the event menu in display order.
func Events() []EventType {
	return append([]EventType(nil), events...)
}

// ParseEvent maps a button payload to a known event.
func ParseEvent(code string) (EventType, bool) {
	e := EventType(strings.TrimSpace(code))
	if _, ok := eventInfo[e]; !ok {
		return "", false
	}
	return e, true
}

// Label returns the menu button caption.
func (e EventType) Label() string {
	if m, ok := eventInfo[e]; ok {
		return m.button
	}
	return string(e)
}

// OdometerPrompt returns the question asked after the event was chosen.
func (e EventType) OdometerPrompt() string {
	if m, ok := eventInfo[e]; ok {
		return m.prompt
	}
	return odometerQuestion
}

// EndsTrip reports whether the event closes the trip.
func (e EventType) EndsTrip() bool {
	return e == EventTripEnd
}
