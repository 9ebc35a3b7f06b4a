package validate

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/m3rciful/tripbot/internal/fleet"
)

const odometerRetry = " Bitte geben Sie den Kilometerstand erneut ein:"

// OdometerInput carries the raw text and the floors it must respect.
type OdometerInput struct {
	Raw   string
	Truck fleet.Truck
	// FirstOfTrip is true until the trip accepted its first odometer value.
	FirstOfTrip bool
	// TripLast is the last accepted odometer of the running trip.
	TripLast    int64
	HasTripLast bool
	// FleetLast is the value recorded at the truck's previous trip end.
	FleetLast    int64
	HasFleetLast bool
}

// Odometer parses and checks an odometer reading.
// Format rules are checked before ordering rules.
func Odometer(in OdometerInput) (int64, error) {
	raw := strings.TrimSpace(in.Raw)

	if strings.IndexFunc(raw, unicode.IsSpace) >= 0 {
		return 0, reject(CodeOdometerWhitespace,
			"❌ Fehler: Der Kilometerstand darf keine Leerzeichen enthalten."+odometerRetry)
	}
	if strings.Contains(raw, ",") {
		return 0, reject(CodeOdometerDecimal,
			"❌ Fehler: Der Kilometerstand darf kein Komma enthalten."+odometerRetry)
	}
	if strings.Contains(raw, ".") {
		return 0, reject(CodeOdometerDecimal,
			"❌ Fehler: Der Kilometerstand darf keinen Punkt enthalten."+odometerRetry)
	}
	if raw == "" || !asciiDigits(raw) {
		return 0, reject(CodeOdometerNonDigit,
			"❌ Fehler: Der Kilometerstand darf nur Ziffern enthalten."+odometerRetry)
	}

	km, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, reject(CodeOdometerOverflow,
			"❌ Fehler: Der Kilometerstand ist zu groß."+odometerRetry)
	}

	if in.FirstOfTrip && in.HasFleetLast && km < in.FleetLast {
		verr := reject(CodeOdometerBelowFleet, fmt.Sprintf(
			"❌ Fehler: Der eingegebene Kilometerstand muss mindestens %d betragen, da dies der letzte Kilometerstand der vorherigen Fahrt für %s ist."+odometerRetry,
			in.FleetLast, in.Truck))
		verr.Minimum = in.FleetLast
		return 0, verr
	}
	if in.HasTripLast && km < in.TripLast {
		verr := reject(CodeOdometerBelowTrip, fmt.Sprintf(
			"❌ Fehler: Der neue Kilometerstand muss mindestens %d betragen (vorheriger Kilometerstand der aktuellen Fahrt)."+odometerRetry,
			in.TripLast))
		verr.Minimum = in.TripLast
		return 0, verr
	}
	return km, nil
}

func asciiDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
