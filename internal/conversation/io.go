package conversation

import "github.com/m3rciful/tripbot/internal/fleet"

// InputKind classifies what the driver sent.
type InputKind int

const (
	InputStart InputKind = iota + 1
	InputCancel
	InputTruck
	InputEvent
	InputText
	InputLocation
)

func (k InputKind) String() string {
	switch k {
	case InputStart:
		return "start"
	case InputCancel:
		return "cancel"
	case InputTruck:
		return "truck"
	case InputEvent:
		return "event"
	case InputText:
		return "text"
	case InputLocation:
		return "location"
	}
	return "unknown"
}

// Input is one transport-neutral driver action.
type Input struct {
	UserID int64
	Kind   InputKind
	// Payload carries the button code or the message text.
	Payload  string
	Location *fleet.Location
	// FromButton is set when the input came from pressing an inline button.
	FromButton bool
}

// Markup selects the keyboard sent along with a reply.
type Markup int

const (
	MarkupNone Markup = iota
	MarkupTruckMenu
	MarkupEventMenu
	MarkupLocationRequest
	MarkupRemoveKeyboard
)

// Reply is one message for the driver.
type Reply struct {
	Text   string
	Markup Markup
	// Edit asks the transport to replace the message whose button was pressed.
	Edit bool
}
