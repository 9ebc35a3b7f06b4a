// Package memory provides process-local stores for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/m3rciful/tripbot/internal/fleet"
	"github.com/m3rciful/tripbot/internal/storage"
)

// TripLog keeps readings per trip id.
type TripLog struct {
	mu    sync.Mutex
	trips map[string][]fleet.Reading
}

var _ storage.TripLog = (*TripLog)(nil)

// NewTripLog returns an empty trip log.
func NewTripLog() *TripLog {
	return &TripLog{trips: make(map[string][]fleet.Reading)}
}

// Append stores r under tripID.
func (l *TripLog) Append(_ context.Context, tripID string, r fleet.Reading) error {
	if err := storage.CheckTripID(tripID); err != nil {
		return err
	}
	l.mu.Lock()
	l.trips[tripID] = append(l.trips[tripID], r)
	l.mu.Unlock()
	return nil
}

// Readings returns a copy of the readings stored for tripID.
func (l *TripLog) Readings(tripID string) []fleet.Reading {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]fleet.Reading(nil), l.trips[tripID]...)
}

// Count returns the number of readings across all trips.
func (l *TripLog) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, rs := range l.trips {
		n += len(rs)
	}
	return n
}

// LastReadings is a mutex-guarded fleet table.
type LastReadings struct {
	mu sync.Mutex
	km map[fleet.Truck]int64
}

var (
	_ storage.LastReadings = (*LastReadings)(nil)
	_ storage.Lister       = (*LastReadings)(nil)
)

// NewLastReadings returns an empty fleet table.
func NewLastReadings() *LastReadings {
	return &LastReadings{km: make(map[fleet.Truck]int64)}
}

// Get returns the last odometer of truck, if any.
func (s *LastReadings) Get(_ context.Context, truck fleet.Truck) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	km, ok := s.km[truck]
	return km, ok, nil
}

// Set records km as the last odometer of truck.
func (s *LastReadings) Set(_ context.Context, truck fleet.Truck, km int64) error {
	s.mu.Lock()
	s.km[truck] = km
	s.mu.Unlock()
	return nil
}

// All returns a copy of the table.
func (s *LastReadings) All(context.Context) (map[fleet.Truck]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[fleet.Truck]int64, len(s.km))
	for k, v := range s.km {
		out[k] = v
	}
	return out, nil
}
