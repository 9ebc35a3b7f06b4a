// Package storage defines the persistence contracts of the trip log and the
// per-truck last odometer reading.
package storage

import (
	"context"
	"errors"
	"strconv"

	"github.com/m3rciful/tripbot/internal/fleet"
)

// ErrInvalidTripID is returned for trip ids that NewTripID could not have produced.
var ErrInvalidTripID = errors.New("storage: invalid trip id")

// TripLog is the append-only record of a trip's readings.
type TripLog interface {
	// Append persists r as the next reading of tripID. The log is created on first use.
	Append(ctx context.Context, tripID string, r fleet.Reading) error
}

// LastReadings keeps the odometer confirmed by each truck's latest trip end.
type LastReadings interface {
	Get(ctx context.Context, truck fleet.Truck) (km int64, ok bool, err error)
	Set(ctx context.Context, truck fleet.Truck, km int64) error
}

// Lister is implemented by LastReadings backends that can enumerate all trucks.
type Lister interface {
	All(ctx context.Context) (map[fleet.Truck]int64, error)
}

// Header is the column row of every trip log.
var Header = []string{"LKW", "Vorgang", "Kilometer", "Standort", "Gewicht", "Zeit", "Trip-ID"}

// Row renders r as the trip log columns in Header order.
func Row(r fleet.Reading) []string {
	return []string{
		string(r.Truck),
		string(r.Event),
		strconv.FormatInt(r.Odometer, 10),
		r.LocationText(),
		fleet.FormatWeight(r.Weight),
		r.Timestamp(),
		r.TripID,
	}
}

// CheckTripID validates tripID before it reaches a backend.
func CheckTripID(tripID string) error {
	if !fleet.ValidTripID(tripID) {
		return ErrInvalidTripID
	}
	return nil
}
