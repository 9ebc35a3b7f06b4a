package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/tripbot/core/logger"
	"github.com/m3rciful/tripbot/core/telegram/state"
	"github.com/m3rciful/tripbot/internal/fleet"
	"github.com/m3rciful/tripbot/internal/observability"
	"github.com/m3rciful/tripbot/internal/storage"
	"github.com/m3rciful/tripbot/internal/validate"
)

// Controller advances per-user sessions and persists confirmed readings.
type Controller struct {
	sessions *state.Manager[Session]
	trips    storage.TripLog
	last     storage.LastReadings

	now   func() time.Time
	newID func() string

	// claimed holds the trip ids of sessions still running.
	claimMu sync.Mutex
	claimed map[string]struct{}
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock replaces time.Now for trip ids and reading timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSessionIDs replaces the uuid generator for session ids.
func WithSessionIDs(fn func() string) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// WithSessions shares an existing session manager.
func WithSessions(m *state.Manager[Session]) Option {
	return func(c *Controller) {
		if m != nil {
			c.sessions = m
		}
	}
}

// New builds a Controller writing readings to trips and trip-end odometers to last.
func New(trips storage.TripLog, last storage.LastReadings, opts ...Option) *Controller {
	c := &Controller{
		sessions: state.NewMemoryManager[Session](),
		trips:    trips,
		last:     last,
		now:      time.Now,
		newID:    uuid.NewString,
		claimed:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InProgress reports whether userID has a trip in progress.
func (c *Controller) InProgress(userID int64) bool {
	return c.sessions.InProgress(userID)
}

// Session returns a copy of userID's session.
func (c *Controller) Session(userID int64) (Session, bool) {
	return c.sessions.Get(userID)
}

// ActiveSessions returns the number of trips in progress.
func (c *Controller) ActiveSessions() int {
	return c.sessions.Len()
}

// Handle applies in to the user's session under that user's lock. The
// returned replies must be delivered even when err is non-nil; err only
// reports a storage failure for logging and never reaches the driver.
func (c *Controller) Handle(ctx context.Context, in Input) ([]Reply, error) {
	var replies []Reply
	err := c.sessions.Do(in.UserID, func(cur *Session) (*Session, error) {
		var (
			next *Session
			err  error
		)
		next, replies, err = c.step(ctx, cur, in)
		return next, err
	})
	observability.SetActiveSessions(c.sessions.Len())
	return replies, err
}

func (c *Controller) step(ctx context.Context, cur *Session, in Input) (*Session, []Reply, error) {
	switch in.Kind {
	case InputStart:
		return c.start(ctx, cur), one(textWelcome, MarkupTruckMenu), nil
	case InputCancel:
		return c.cancel(ctx, cur, in)
	}
	if cur == nil {
		return nil, []Reply{{Text: textNoSession, Markup: MarkupRemoveKeyboard}}, nil
	}

	ctx = logger.WithTrip(ctx, cur.meta())
	switch cur.State {
	case AwaitingTruck:
		return c.onTruck(ctx, cur, in)
	case AwaitingEvent:
		return c.onEvent(ctx, cur, in)
	case AwaitingOdometer:
		return c.onOdometer(ctx, cur, in)
	case AwaitingLocation:
		return c.onLocation(ctx, cur, in)
	case AwaitingWeight:
		return c.onWeight(ctx, cur, in)
	}
	return nil, one(textNoSession, MarkupRemoveKeyboard), fmt.Errorf("conversation: session in invalid state %d", cur.State)
}

func (c *Controller) start(ctx context.Context, prev *Session) *Session {
	s := &Session{ID: c.newID(), State: AwaitingTruck}
	attrs := []slog.Attr{slog.String("session_id", s.ID)}
	if prev != nil {
		c.releaseTripID(prev.TripID)
		attrs = append(attrs,
			slog.String("replaced", prev.ID),
			slog.String("from", prev.State.String()),
		)
	}
	logger.LogEvent(ctx, logger.Trip, slog.LevelInfo, "session.start", attrs...)
	return s
}

func (c *Controller) cancel(ctx context.Context, cur *Session, in Input) (*Session, []Reply, error) {
	if cur != nil {
		c.releaseTripID(cur.TripID)
		observability.RecordSessionCancelled()
		logger.LogEvent(logger.WithTrip(ctx, cur.meta()), logger.Trip, slog.LevelInfo, "session.cancel",
			slog.String("from", cur.State.String()),
		)
	}
	return nil, []Reply{{Text: textCancelled, Markup: MarkupRemoveKeyboard, Edit: in.FromButton}}, nil
}

func (c *Controller) onTruck(ctx context.Context, cur *Session, in Input) (*Session, []Reply, error) {
	truck, ok := fleet.ParseTruck(in.Payload)
	if in.Kind != InputTruck || !ok {
		return cur, one(textChooseTruck, MarkupTruckMenu), nil
	}

	now := c.now()
	wanted := fleet.NewTripID(now)
	tripID := c.claimTripID(now)
	cur.selectTruck(truck, tripID)
	var attrs []slog.Attr
	if tripID != wanted {
		attrs = append(attrs, slog.String("shifted_from", wanted))
	}
	logger.LogEvent(logger.WithTrip(ctx, cur.meta()), logger.Trip, slog.LevelInfo, "trip.start", attrs...)
	return cur, []Reply{{Text: textTruckChosen(truck, cur.TripID), Markup: MarkupEventMenu, Edit: in.FromButton}}, nil
}

func (c *Controller) onEvent(ctx context.Context, cur *Session, in Input) (*Session, []Reply, error) {
	event, ok := fleet.ParseEvent(in.Payload)
	if in.Kind != InputEvent || !ok {
		return cur, one(textChooseEvent, MarkupEventMenu), nil
	}

	cur.Event = event
	cur.State = AwaitingOdometer
	c.transition(ctx, AwaitingEvent, cur, slog.String("trip_event", string(event)))
	return cur, one(event.OdometerPrompt(), MarkupNone), nil
}

func (c *Controller) onOdometer(ctx context.Context, cur *Session, in Input) (*Session, []Reply, error) {
	if in.Kind != InputText {
		return cur, one(textOdometerAgain, MarkupNone), nil
	}

	check := validate.OdometerInput{
		Raw:         in.Payload,
		Truck:       cur.Truck,
		FirstOfTrip: !cur.TripStarted,
		TripLast:    cur.LastKM,
		HasTripLast: cur.HasLastKM,
	}
	if check.FirstOfTrip {
		km, ok, err := c.last.Get(context.WithoutCancel(ctx), cur.Truck)
		if err != nil {
			c.storageFailed(ctx, "fleet.get", err)
			return cur, one(textFleetLookupFail, MarkupNone), fmt.Errorf("conversation: read fleet last reading: %w", err)
		}
		check.FleetLast, check.HasFleetLast = km, ok
	}

	km, err := validate.Odometer(check)
	if err != nil {
		return c.rejected(ctx, cur, err)
	}
	cur.acceptOdometer(km)
	c.transition(ctx, AwaitingOdometer, cur, slog.Int64("km", km))
	return cur, one(textLocationPrompt, MarkupLocationRequest), nil
}

func (c *Controller) onLocation(ctx context.Context, cur *Session, in Input) (*Session, []Reply, error) {
	if in.Kind != InputLocation || in.Location == nil {
		return cur, one(textNoLocation, MarkupLocationRequest), nil
	}

	loc := *in.Location
	cur.Location = &loc
	cur.State = AwaitingWeight
	c.transition(ctx, AwaitingLocation, cur)
	return cur, one(textWeightPrompt, MarkupRemoveKeyboard), nil
}

func (c *Controller) onWeight(ctx context.Context, cur *Session, in Input) (*Session, []Reply, error) {
	if in.Kind != InputText {
		return cur, one(textWeightAgain, MarkupNone), nil
	}
	if cur.PendingEnd != nil {
		return c.finishTrip(ctx, cur, *cur.PendingEnd)
	}

	weight, err := validate.Weight(in.Payload)
	if err != nil {
		return c.rejected(ctx, cur, err)
	}
	cur.Weight = weight

	r := fleet.Reading{
		Truck:    cur.Truck,
		Event:    cur.Event,
		Odometer: cur.LastKM,
		Location: cur.Location,
		Weight:   weight,
		Time:     c.now(),
		TripID:   cur.TripID,
	}
	if err := r.Validate(); err != nil {
		return cur, one(textSaveFailed, MarkupNone), fmt.Errorf("conversation: build reading: %w", err)
	}

	start := time.Now()
	if err := c.trips.Append(context.WithoutCancel(ctx), cur.TripID, r); err != nil {
		c.storageFailed(ctx, "trip.append", err)
		return cur, one(textSaveFailed, MarkupNone), fmt.Errorf("conversation: append reading: %w", err)
	}
	observability.RecordReadingStored(string(r.Event))
	logger.LogEvent(ctx, logger.Trip, slog.LevelInfo, "reading.stored",
		slog.String("trip_event", string(r.Event)),
		slog.Int64("km", r.Odometer),
		slog.String("location", r.LocationText()),
		slog.Float64("weight", r.Weight),
		slog.Duration("duration", time.Since(start)),
	)

	if r.Event.EndsTrip() {
		return c.finishTrip(ctx, cur, r)
	}
	cur.State = AwaitingEvent
	c.transition(ctx, AwaitingWeight, cur)
	return cur, one(textSaved(r), MarkupEventMenu), nil
}

// finishTrip records the trip-end odometer for the truck and ends the session.
// r is already in the trip log.
func (c *Controller) finishTrip(ctx context.Context, cur *Session, r fleet.Reading) (*Session, []Reply, error) {
	if err := c.last.Set(context.WithoutCancel(ctx), r.Truck, r.Odometer); err != nil {
		pending := r
		cur.PendingEnd = &pending
		c.storageFailed(ctx, "fleet.set", err)
		return cur, one(textSaveFailed, MarkupNone), fmt.Errorf("conversation: update fleet last reading: %w", err)
	}

	c.releaseTripID(cur.TripID)
	observability.RecordTripCompleted(string(r.Truck))
	logger.LogEvent(ctx, logger.Trip, slog.LevelInfo, "trip.end",
		slog.Int64("km", r.Odometer),
		slog.Bool("retried", cur.PendingEnd != nil),
	)
	return nil, one(textTripEnded(r.Truck, r.TripID), MarkupRemoveKeyboard), nil
}

// claimTripID returns the trip id for a trip started at t. Trip ids have
// one-second resolution; while another running session holds that id the
// next free second is used, so concurrent trips never share a trip log.
func (c *Controller) claimTripID(t time.Time) string {
	c.claimMu.Lock()
	defer c.claimMu.Unlock()
	id := fleet.NewTripID(t)
	for {
		if _, taken := c.claimed[id]; !taken {
			break
		}
		t = t.Add(time.Second)
		id = fleet.NewTripID(t)
	}
	c.claimed[id] = struct{}{}
	return id
}

func (c *Controller) releaseTripID(id string) {
	if id == "" {
		return
	}
	c.claimMu.Lock()
	delete(c.claimed, id)
	c.claimMu.Unlock()
}

func (c *Controller) rejected(ctx context.Context, cur *Session, err error) (*Session, []Reply, error) {
	verr, ok := validate.AsError(err)
	if !ok {
		return cur, one(textSaveFailed, MarkupNone), err
	}
	observability.RecordValidationRejection(verr.Code())
	logger.LogEvent(ctx, logger.Trip, slog.LevelDebug, "input.rejected",
		slog.String("state", cur.State.String()),
		slog.String("code", verr.Code()),
	)
	return cur, one(verr.Message, MarkupNone), nil
}

func (c *Controller) storageFailed(ctx context.Context, op string, err error) {
	observability.RecordStorageError(op)
	logger.LogEvent(ctx, logger.Trip, slog.LevelError, "storage.failed",
		slog.String("op", op),
		slog.String("err", err.Error()),
	)
}

func (c *Controller) transition(ctx context.Context, from State, cur *Session, attrs ...slog.Attr) {
	attrs = append([]slog.Attr{
		slog.String("from", from.String()),
		slog.String("to", cur.State.String()),
	}, attrs...)
	logger.LogEvent(ctx, logger.Trip, slog.LevelDebug, "session.transition", attrs...)
}

func one(text string, markup Markup) []Reply {
	return []Reply{{Text: text, Markup: markup}}
}
