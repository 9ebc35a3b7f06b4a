package validate

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/tripbot/internal/fleet"
)

func requireCode(t *testing.T, err error, code string) *Error {
	t.Helper()
	verr, ok := AsError(err)
	require.True(t, ok, "expected validation error, got %v", err)
	require.Equal(t, code, verr.Code())
	return verr
}

func TestOdometerFormatRejections(t *testing.T) {
	cases := []struct {
		raw  string
		code string
	}{
		{"12 345", CodeOdometerWhitespace},
		{"12\t345", CodeOdometerWhitespace},
		{"12,5", CodeOdometerDecimal},
		{"12.5", CodeOdometerDecimal},
		{"12a", CodeOdometerNonDigit},
		{"-5", CodeOdometerNonDigit},
		{"", CodeOdometerNonDigit},
		{"١٢٣", CodeOdometerNonDigit},
		{"99999999999999999999", CodeOdometerOverflow},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			_, err := Odometer(OdometerInput{Raw: tc.raw, FirstOfTrip: true})
			requireCode(t, err, tc.code)
		})
	}
}

func TestOdometerMessagesAreDistinct(t *testing.T) {
	seen := map[string]string{}
	for _, raw := range []string{"1 2", "1,2", "1x"} {
		_, err := Odometer(OdometerInput{Raw: raw})
		require.Error(t, err)
		msg := err.Error()
		_, dup := seen[msg]
		require.False(t, dup, "message for %q repeats %q", raw, seen[msg])
		seen[msg] = raw
	}
}

func TestOdometerTrimsSurroundingSpace(t *testing.T) {
	km, err := Odometer(OdometerInput{Raw: " 1000\n", FirstOfTrip: true})
	require.NoError(t, err)
	require.EqualValues(t, 1000, km)
}

func TestOdometerFleetFloor(t *testing.T) {
	base := OdometerInput{
		Truck:        fleet.TruckLKW1,
		FirstOfTrip:  true,
		FleetLast:    1200,
		HasFleetLast: true,
	}

	in := base
	in.Raw = "1199"
	_, err := Odometer(in)
	verr := requireCode(t, err, CodeOdometerBelowFleet)
	require.EqualValues(t, 1200, verr.Minimum)
	require.Contains(t, verr.Message, "1200")
	require.Contains(t, verr.Message, "LKW1")

	for _, raw := range []string{"1200", "1201"} {
		in.Raw = raw
		km, err := Odometer(in)
		require.NoError(t, err)
		require.Equal(t, raw, fmt.Sprint(km))
	}
}

func TestOdometerFleetFloorOnlyForFirstReading(t *testing.T) {
	km, err := Odometer(OdometerInput{
		Raw:          "1100",
		Truck:        fleet.TruckLKW1,
		FirstOfTrip:  false,
		FleetLast:    1200,
		HasFleetLast: true,
		TripLast:     1000,
		HasTripLast:  true,
	})
	require.NoError(t, err)
	require.EqualValues(t, 1100, km)
}

func TestOdometerTripFloor(t *testing.T) {
	in := OdometerInput{Raw: "999", TripLast: 1000, HasTripLast: true}
	_, err := Odometer(in)
	verr := requireCode(t, err, CodeOdometerBelowTrip)
	require.EqualValues(t, 1000, verr.Minimum)
	require.Contains(t, verr.Message, "1000")

	// Repeating the same rejected value keeps failing.
	_, err = Odometer(in)
	requireCode(t, err, CodeOdometerBelowTrip)

	in.Raw = "1000"
	km, err := Odometer(in)
	require.NoError(t, err)
	require.EqualValues(t, 1000, km)
}

func TestWeightBoundaries(t *testing.T) {
	accepted := map[string]float64{
		"0":    0,
		"25":   25,
		"12,5": 12.5,
		"12.5": 12.5,
		"25,0": 25,
		" 7 ":  7,
		"2e1":  20,
		".5":   0.5,
		"+3":   3,
	}
	for raw, want := range accepted {
		w, err := Weight(raw)
		require.NoError(t, err, raw)
		require.InDelta(t, want, w, 1e-9, raw)
	}

	rejected := map[string]string{
		"-0.1":    CodeWeightRange,
		"25.1":    CodeWeightRange,
		"25,01":   CodeWeightRange,
		"12 5":    CodeWeightWhitespace,
		"abc":     CodeWeightFormat,
		"1,2,3":   CodeWeightFormat,
		"":        CodeWeightFormat,
		"NaN":     CodeWeightFormat,
		"inf":     CodeWeightFormat,
		"0x1p3":   CodeWeightFormat,
		"0x19p0":  CodeWeightFormat,
		"0x1_0p0": CodeWeightFormat,
		"1_0":     CodeWeightFormat,
		"0X10":    CodeWeightFormat,
	}
	for raw, code := range rejected {
		_, err := Weight(raw)
		requireCode(t, err, code)
	}
}

func TestAsErrorWrapped(t *testing.T) {
	_, err := Weight("30")
	wrapped := fmt.Errorf("weight step: %w", err)
	verr, ok := AsError(wrapped)
	require.True(t, ok)
	require.Equal(t, CodeWeightRange, verr.Code())

	_, ok = AsError(errors.New("disk full"))
	require.False(t, ok)
}
