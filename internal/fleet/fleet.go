// Package fleet holds the trip logging domain model: the fixed truck set, the
// reportable trip events and the readings persisted for them.
package fleet

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Truck identifies one vehicle of the fixed fleet.
type Truck string

const (
	TruckLKW1 Truck = "LKW1"
	TruckLKW2 Truck = "LKW2"
)

var trucks = []Truck{TruckLKW1, TruckLKW2}

var truckLabels = map[Truck]string{
	TruckLKW1: "LKW 1",
	TruckLKW2: "LKW 2",
}

// Trucks returns the fleet in menu order.
func Trucks() []Truck {
	return append([]Truck(nil), trucks...)
}

// ParseTruck maps a button payload to a known truck.
func ParseTruck(code string) (Truck, bool) {
	t := Truck(strings.TrimSpace(code))
	if _, ok := truckLabels[t]; !ok {
		return "", false
	}
	return t, true
}

// Label returns the button caption for the truck.
func (t Truck) Label() string {
	if l, ok := truckLabels[t]; ok {
		return l
	}
	return string(t)
}

// TripIDLayout formats the trip identifier from the truck selection time.
const TripIDLayout = "20060102150405"

var tripIDRe = regexp.MustCompile(`^[0-9]{14}$`)

// NewTripID derives a trip identifier from t. Ids have one-second resolution;
// the caller keeps them unique among running trips.
func NewTripID(t time.Time) string {
	return t.Format(TripIDLayout)
}

// ValidTripID reports whether id has the shape produced by NewTripID.
func ValidTripID(id string) bool {
	return tripIDRe.MatchString(id)
}

// TimestampLayout is the reading timestamp format used in trip logs.
const TimestampLayout = "2006-01-02 15:04:05"

// LocationUnspecified is written when a reading carries no coordinates.
const LocationUnspecified = "Nicht angegeben"

// Location is a shared GPS position.
type Location struct {
	Lat float64
	Lon float64
}

// String renders the location as "lat,lon".
func (l Location) String() string {
	return formatCoord(l.Lat) + "," + formatCoord(l.Lon)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Reading is one persisted trip event.
type Reading struct {
	Truck    Truck
	Event    EventType
	Odometer int64
	Location *Location
	Weight   float64
	Time     time.Time
	TripID   string
}

// LocationText returns the location column value.
func (r Reading) LocationText() string {
	if r.Location == nil {
		return LocationUnspecified
	}
	return r.Location.String()
}

// Timestamp returns the timestamp column value.
func (r Reading) Timestamp() string {
	return r.Time.Format(TimestampLayout)
}

// FormatWeight renders tonnes with at least one decimal ("18.5", "0.0", "25.0").
func FormatWeight(w float64) string {
	s := strconv.FormatFloat(w, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// Validate checks the reading before it is handed to a store.
func (r Reading) Validate() error {
	if _, ok := truckLabels[r.Truck]; !ok {
		return fmt.Errorf("fleet: unknown truck %q", r.Truck)
	}
	if _, ok := eventInfo[r.Event]; !ok {
		return fmt.Errorf("fleet: unknown event %q", r.Event)
	}
	if !ValidTripID(r.TripID) {
		return fmt.Errorf("fleet: invalid trip id %q", r.TripID)
	}
	if r.Odometer < 0 {
		return fmt.Errorf("fleet: negative odometer %d", r.Odometer)
	}
	return nil
}
