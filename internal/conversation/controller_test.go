package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/tripbot/internal/fleet"
	"github.com/m3rciful/tripbot/internal/storage/memory"
	"github.com/m3rciful/tripbot/internal/validate"
)

const driver int64 = 42

var errDisk = errors.New("disk full")

type harness struct {
	t     *testing.T
	ctrl  *Controller
	trips *memory.TripLog
	last  *memory.LastReadings
	clock time.Time
}

func newHarness(t *testing.T) *harness {
	h := &harness{
		t:     t,
		trips: memory.NewTripLog(),
		last:  memory.NewLastReadings(),
		clock: time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC),
	}
	h.ctrl = New(h.trips, h.last,
		WithClock(func() time.Time { return h.clock }),
		WithSessionIDs(func() string { return "session-1" }),
	)
	return h
}

func (h *harness) send(in Input) []Reply {
	h.t.Helper()
	in.UserID = driver
	replies, err := h.ctrl.Handle(context.Background(), in)
	require.NoError(h.t, err)
	require.NotEmpty(h.t, replies)
	return replies
}

func (h *harness) state() State {
	h.t.Helper()
	s, ok := h.ctrl.Session(driver)
	require.True(h.t, ok, "session expected")
	return s.State
}

func (h *harness) tripID() string {
	h.t.Helper()
	s, ok := h.ctrl.Session(driver)
	require.True(h.t, ok)
	return s.TripID
}

// report drives one full event from the menu to the weight answer.
func (h *harness) report(event fleet.EventType, km, weight string) []Reply {
	h.t.Helper()
	h.send(Input{Kind: InputEvent, Payload: string(event), FromButton: true})
	h.send(Input{Kind: InputText, Payload: km})
	h.send(Input{Kind: InputLocation, Location: &fleet.Location{Lat: 52.5, Lon: 13.4}})
	return h.send(Input{Kind: InputText, Payload: weight})
}

func (h *harness) begin(truck fleet.Truck) string {
	h.t.Helper()
	replies := h.send(Input{Kind: InputStart})
	require.Equal(h.t, MarkupTruckMenu, replies[0].Markup)
	h.send(Input{Kind: InputTruck, Payload: string(truck), FromButton: true})
	return h.tripID()
}

func TestEndToEndTrip(t *testing.T) {
	h := newHarness(t)

	replies := h.send(Input{Kind: InputStart})
	require.Equal(t, textWelcome, replies[0].Text)
	require.Equal(t, AwaitingTruck, h.state())

	replies = h.send(Input{Kind: InputTruck, Payload: "LKW1", FromButton: true})
	require.Equal(t, MarkupEventMenu, replies[0].Markup)
	require.True(t, replies[0].Edit)
	require.Contains(t, replies[0].Text, "20240309070501")
	require.Equal(t, AwaitingEvent, h.state())
	tripID := h.tripID()
	require.Equal(t, "20240309070501", tripID)

	replies = h.send(Input{Kind: InputEvent, Payload: "fahrt_start", FromButton: true})
	require.Equal(t, fleet.EventTripStart.OdometerPrompt(), replies[0].Text)
	require.Equal(t, AwaitingOdometer, h.state())

	replies = h.send(Input{Kind: InputText, Payload: "1000"})
	require.Equal(t, MarkupLocationRequest, replies[0].Markup)
	require.Equal(t, AwaitingLocation, h.state())

	replies = h.send(Input{Kind: InputLocation, Location: &fleet.Location{Lat: 52.5, Lon: 13.4}})
	require.Equal(t, MarkupRemoveKeyboard, replies[0].Markup)
	require.Equal(t, AwaitingWeight, h.state())

	replies = h.send(Input{Kind: InputText, Payload: "18,5"})
	require.Equal(t, MarkupEventMenu, replies[0].Markup)
	require.Contains(t, replies[0].Text, "Kilometer: 1000")
	require.Contains(t, replies[0].Text, "Gewicht: 18.5 Tonnen")
	require.Contains(t, replies[0].Text, "Standort: 52.5,13.4")
	require.Equal(t, AwaitingEvent, h.state())

	rows := h.trips.Readings(tripID)
	require.Len(t, rows, 1)
	require.EqualValues(t, 1000, rows[0].Odometer)
	require.Equal(t, 18.5, rows[0].Weight)
	require.Equal(t, fleet.TruckLKW1, rows[0].Truck)

	replies = h.report(fleet.EventTripEnd, "1200", "0")
	require.Equal(t, textTripEnded(fleet.TruckLKW1, tripID), replies[0].Text)
	require.False(t, h.ctrl.InProgress(driver))
	require.Zero(t, h.ctrl.ActiveSessions())

	rows = h.trips.Readings(tripID)
	require.Len(t, rows, 2)
	require.EqualValues(t, 1200, rows[1].Odometer)
	require.Equal(t, 0.0, rows[1].Weight)
	require.Equal(t, fleet.EventTripEnd, rows[1].Event)

	km, ok, err := h.last.Get(context.Background(), fleet.TruckLKW1)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 1200, km)
}

func TestFleetFloorAppliesToFirstReading(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.last.Set(context.Background(), fleet.TruckLKW1, 5000))
	h.begin(fleet.TruckLKW1)
	h.send(Input{Kind: InputEvent, Payload: "fahrt_start"})

	replies := h.send(Input{Kind: InputText, Payload: "4999"})
	require.Contains(t, replies[0].Text, "5000")
	require.Contains(t, replies[0].Text, "LKW1")
	require.Equal(t, AwaitingOdometer, h.state())

	h.send(Input{Kind: InputText, Payload: "5000"})
	require.Equal(t, AwaitingLocation, h.state())
}

func TestFleetFloorAcceptsHigherValue(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.last.Set(context.Background(), fleet.TruckLKW2, 5000))
	h.begin(fleet.TruckLKW2)
	h.send(Input{Kind: InputEvent, Payload: "laden"})
	h.send(Input{Kind: InputText, Payload: "5001"})
	require.Equal(t, AwaitingLocation, h.state())
}

func TestOdometerMonotonicWithinTrip(t *testing.T) {
	h := newHarness(t)
	h.begin(fleet.TruckLKW1)
	h.report(fleet.EventTripStart, "1000", "10")

	h.send(Input{Kind: InputEvent, Payload: "tanken"})
	replies := h.send(Input{Kind: InputText, Payload: "999"})
	require.Contains(t, replies[0].Text, "1000")
	require.Equal(t, AwaitingOdometer, h.state())

	// Repeating the same rejected value must not slip through.
	h.send(Input{Kind: InputText, Payload: "999"})
	require.Equal(t, AwaitingOdometer, h.state())

	h.send(Input{Kind: InputText, Payload: "1000"})
	require.Equal(t, AwaitingLocation, h.state())
}

func TestTripEndFloorCarriesToNextTrip(t *testing.T) {
	h := newHarness(t)
	h.begin(fleet.TruckLKW1)
	h.report(fleet.EventTripEnd, "1200", "0")
	require.False(t, h.ctrl.InProgress(driver))

	h.clock = h.clock.Add(time.Hour)
	next := h.begin(fleet.TruckLKW1)
	require.Equal(t, "20240309080501", next)
	h.send(Input{Kind: InputEvent, Payload: "fahrt_start"})

	replies := h.send(Input{Kind: InputText, Payload: "1199"})
	require.Contains(t, replies[0].Text, "1200")
	require.Equal(t, AwaitingOdometer, h.state())

	h.send(Input{Kind: InputText, Payload: "1200"})
	require.Equal(t, AwaitingLocation, h.state())
}

func TestCancelMakesNoWrites(t *testing.T) {
	for _, at := range []State{AwaitingTruck, AwaitingEvent, AwaitingOdometer, AwaitingLocation, AwaitingWeight} {
		t.Run(at.String(), func(t *testing.T) {
			h := newHarness(t)
			h.send(Input{Kind: InputStart})
			steps := []Input{
				{Kind: InputTruck, Payload: "LKW1"},
				{Kind: InputEvent, Payload: "fahrt_beenden"},
				{Kind: InputText, Payload: "1000"},
				{Kind: InputLocation, Location: &fleet.Location{Lat: 1, Lon: 2}},
			}
			for _, in := range steps {
				if h.state() == at {
					break
				}
				h.send(in)
			}
			require.Equal(t, at, h.state())

			replies := h.send(Input{Kind: InputCancel})
			require.Equal(t, textCancelled, replies[0].Text)
			require.Equal(t, MarkupRemoveKeyboard, replies[0].Markup)
			require.False(t, h.ctrl.InProgress(driver))
			require.Zero(t, h.trips.Count())

			_, ok, _ := h.last.Get(context.Background(), fleet.TruckLKW1)
			require.False(t, ok)
		})
	}
}

func TestCancelWithoutSession(t *testing.T) {
	h := newHarness(t)
	replies := h.send(Input{Kind: InputCancel})
	require.Equal(t, textCancelled, replies[0].Text)
	require.False(t, h.ctrl.InProgress(driver))
}

func TestInputWithoutSession(t *testing.T) {
	h := newHarness(t)
	replies := h.send(Input{Kind: InputText, Payload: "1000"})
	require.Equal(t, textNoSession, replies[0].Text)
	require.False(t, h.ctrl.InProgress(driver))
}

func TestUnexpectedInputsRepromptWithoutMoving(t *testing.T) {
	h := newHarness(t)
	h.send(Input{Kind: InputStart})

	replies := h.send(Input{Kind: InputText, Payload: "LKW1"})
	require.Equal(t, MarkupTruckMenu, replies[0].Markup)
	replies = h.send(Input{Kind: InputTruck, Payload: "LKW9"})
	require.Equal(t, MarkupTruckMenu, replies[0].Markup)
	require.Equal(t, AwaitingTruck, h.state())

	h.send(Input{Kind: InputTruck, Payload: "LKW1"})
	replies = h.send(Input{Kind: InputTruck, Payload: "LKW2"})
	require.Equal(t, MarkupEventMenu, replies[0].Markup)
	require.Equal(t, AwaitingEvent, h.state())

	h.send(Input{Kind: InputEvent, Payload: "laden"})
	replies = h.send(Input{Kind: InputLocation, Location: &fleet.Location{}})
	require.Equal(t, textOdometerAgain, replies[0].Text)
	require.Equal(t, AwaitingOdometer, h.state())

	h.send(Input{Kind: InputText, Payload: "10"})
	for i := 0; i < 3; i++ {
		replies = h.send(Input{Kind: InputText, Payload: "Berlin"})
		require.Equal(t, textNoLocation, replies[0].Text)
		require.Equal(t, MarkupLocationRequest, replies[0].Markup)
	}
	require.Equal(t, AwaitingLocation, h.state())
}

func TestWeightBoundaries(t *testing.T) {
	for _, tc := range []struct {
		raw  string
		ok   bool
		code string
	}{
		{raw: "0", ok: true},
		{raw: "25", ok: true},
		{raw: "12,5", ok: true},
		{raw: "-0.1", code: validate.CodeWeightRange},
		{raw: "25.1", code: validate.CodeWeightRange},
		{raw: "12 5", code: validate.CodeWeightWhitespace},
	} {
		t.Run(tc.raw, func(t *testing.T) {
			h := newHarness(t)
			h.begin(fleet.TruckLKW1)
			replies := h.report(fleet.EventLoad, "100", tc.raw)
			if tc.ok {
				require.Equal(t, AwaitingEvent, h.state())
				require.Equal(t, 1, h.trips.Count())
				return
			}
			require.Equal(t, AwaitingWeight, h.state())
			require.Zero(t, h.trips.Count())
			require.Contains(t, replies[0].Text, "Gewicht")
		})
	}
}

func TestStartRestartsTrip(t *testing.T) {
	h := newHarness(t)
	h.begin(fleet.TruckLKW1)
	h.send(Input{Kind: InputEvent, Payload: "laden"})

	h.send(Input{Kind: InputStart})
	require.Equal(t, AwaitingTruck, h.state())
	s, _ := h.ctrl.Session(driver)
	require.Empty(t, s.TripID)
	require.False(t, s.TripStarted)
}

type failingTrips struct {
	err   error
	calls int
	inner *memory.TripLog
}

func (f *failingTrips) Append(ctx context.Context, tripID string, r fleet.Reading) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return f.inner.Append(ctx, tripID, r)
}

type failingFleet struct {
	*memory.LastReadings
	setErr error
}

func (f *failingFleet) Set(ctx context.Context, truck fleet.Truck, km int64) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.LastReadings.Set(ctx, truck, km)
}

func TestAppendFailureKeepsWeightStep(t *testing.T) {
	trips := &failingTrips{err: errDisk, inner: memory.NewTripLog()}
	ctrl := New(trips, memory.NewLastReadings())
	ctx := context.Background()
	steps := []Input{
		{UserID: driver, Kind: InputStart},
		{UserID: driver, Kind: InputTruck, Payload: "LKW1"},
		{UserID: driver, Kind: InputEvent, Payload: "laden"},
		{UserID: driver, Kind: InputText, Payload: "100"},
		{UserID: driver, Kind: InputLocation, Location: &fleet.Location{Lat: 1, Lon: 2}},
	}
	for _, in := range steps {
		_, err := ctrl.Handle(ctx, in)
		require.NoError(t, err)
	}

	replies, err := ctrl.Handle(ctx, Input{UserID: driver, Kind: InputText, Payload: "5"})
	require.ErrorIs(t, err, errDisk)
	require.Equal(t, textSaveFailed, replies[0].Text)
	require.NotContains(t, replies[0].Text, "disk full")
	s, ok := ctrl.Session(driver)
	require.True(t, ok)
	require.Equal(t, AwaitingWeight, s.State)

	trips.err = nil
	replies, err = ctrl.Handle(ctx, Input{UserID: driver, Kind: InputText, Payload: "5"})
	require.NoError(t, err)
	require.Equal(t, MarkupEventMenu, replies[0].Markup)
	require.Equal(t, 1, trips.inner.Count())
}

func TestFleetFailureRetriesOnlyFleetUpdate(t *testing.T) {
	trips := &failingTrips{inner: memory.NewTripLog()}
	last := &failingFleet{LastReadings: memory.NewLastReadings(), setErr: errDisk}
	ctrl := New(trips, last)
	ctx := context.Background()
	steps := []Input{
		{UserID: driver, Kind: InputStart},
		{UserID: driver, Kind: InputTruck, Payload: "LKW2"},
		{UserID: driver, Kind: InputEvent, Payload: "fahrt_beenden"},
		{UserID: driver, Kind: InputText, Payload: "700"},
		{UserID: driver, Kind: InputLocation, Location: &fleet.Location{Lat: 1, Lon: 2}},
	}
	for _, in := range steps {
		_, err := ctrl.Handle(ctx, in)
		require.NoError(t, err)
	}

	_, err := ctrl.Handle(ctx, Input{UserID: driver, Kind: InputText, Payload: "3"})
	require.ErrorIs(t, err, errDisk)
	s, ok := ctrl.Session(driver)
	require.True(t, ok)
	require.Equal(t, AwaitingWeight, s.State)
	require.NotNil(t, s.PendingEnd)
	require.Equal(t, 1, trips.calls)

	last.setErr = nil
	replies, err := ctrl.Handle(ctx, Input{UserID: driver, Kind: InputText, Payload: "3"})
	require.NoError(t, err)
	require.Contains(t, replies[0].Text, "Fahrt beendet für LKW 2")
	require.Equal(t, 1, trips.calls)
	require.Equal(t, 1, trips.inner.Count())
	require.False(t, ctrl.InProgress(driver))

	km, ok, err := last.Get(ctx, fleet.TruckLKW2)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 700, km)
}

func TestUsersDoNotShareSessions(t *testing.T) {
	ctrl := New(memory.NewTripLog(), memory.NewLastReadings())
	ctx := context.Background()
	_, err := ctrl.Handle(ctx, Input{UserID: 1, Kind: InputStart})
	require.NoError(t, err)
	_, err = ctrl.Handle(ctx, Input{UserID: 1, Kind: InputTruck, Payload: "LKW1"})
	require.NoError(t, err)

	replies, err := ctrl.Handle(ctx, Input{UserID: 2, Kind: InputEvent, Payload: "laden"})
	require.NoError(t, err)
	require.Equal(t, textNoSession, replies[0].Text)
	require.Equal(t, 1, ctrl.ActiveSessions())
}

func TestTripIDsStayUniqueWithinOneSecond(t *testing.T) {
	clock := time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC)
	ctrl := New(memory.NewTripLog(), memory.NewLastReadings(),
		WithClock(func() time.Time { return clock }),
	)
	ctx := context.Background()
	begin := func(user int64, truck fleet.Truck) string {
		_, err := ctrl.Handle(ctx, Input{UserID: user, Kind: InputStart})
		require.NoError(t, err)
		_, err = ctrl.Handle(ctx, Input{UserID: user, Kind: InputTruck, Payload: string(truck), FromButton: true})
		require.NoError(t, err)
		s, ok := ctrl.Session(user)
		require.True(t, ok)
		return s.TripID
	}

	require.Equal(t, "20240309070501", begin(1, fleet.TruckLKW1))
	require.Equal(t, "20240309070502", begin(2, fleet.TruckLKW2))

	_, err := ctrl.Handle(ctx, Input{UserID: 1, Kind: InputCancel})
	require.NoError(t, err)
	require.Equal(t, "20240309070501", begin(3, fleet.TruckLKW1))

	// restarting frees the old id before the new truck is chosen
	require.Equal(t, "20240309070502", begin(2, fleet.TruckLKW2))
	require.Equal(t, "20240309070503", begin(4, fleet.TruckLKW1))
}
