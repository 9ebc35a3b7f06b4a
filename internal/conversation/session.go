// Package conversation sequences a driver's trip reports: truck, event,
// odometer, location and weight, one step per input.
package conversation

import (
	"github.com/m3rciful/tripbot/core/logger"
	"github.com/m3rciful/tripbot/internal/fleet"
)

// State is the step a Session waits on. A user without a Session has no trip in progress.
type State int

const (
	AwaitingTruck State = iota + 1
	AwaitingEvent
	AwaitingOdometer
	AwaitingLocation
	AwaitingWeight
)

func (s State) String() string {
	switch s {
	case AwaitingTruck:
		return "awaiting_truck"
	case AwaitingEvent:
		return "awaiting_event"
	case AwaitingOdometer:
		return "awaiting_odometer"
	case AwaitingLocation:
		return "awaiting_location"
	case AwaitingWeight:
		return "awaiting_weight"
	}
	return "unknown"
}

// Session is one user's trip in progress.
type Session struct {
	// ID correlates log lines of one conversation.
	ID    string
	State State

	Truck  fleet.Truck
	TripID string
	Event  fleet.EventType

	// LastKM is the latest odometer accepted in this trip.
	LastKM    int64
	HasLastKM bool
	// TripStarted turns true with the first accepted odometer.
	TripStarted bool

	Location *fleet.Location
	Weight   float64

	// PendingEnd holds a trip-end reading already in the trip log whose
	// fleet update failed. The next weight input only retries that update.
	PendingEnd *fleet.Reading
}

func (s *Session) meta() logger.TripMeta {
	return logger.TripMeta{Truck: string(s.Truck), TripID: s.TripID, SessionID: s.ID}
}

// selectTruck starts a new trip for truck.
func (s *Session) selectTruck(truck fleet.Truck, tripID string) {
	s.Truck = truck
	s.TripID = tripID
	s.Event = ""
	s.LastKM, s.HasLastKM = 0, false
	s.TripStarted = false
	s.Location = nil
	s.Weight = 0
	s.PendingEnd = nil
	s.State = AwaitingEvent
}

func (s *Session) acceptOdometer(km int64) {
	s.LastKM, s.HasLastKM = km, true
	s.TripStarted = true
	s.State = AwaitingLocation
}
