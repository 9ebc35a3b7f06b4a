// Package sqlstore keeps trip readings and the fleet table in SQL, either an
// embedded SQLite file or Postgres.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/tripbot/core/logger"
	"github.com/m3rciful/tripbot/internal/fleet"
	"github.com/m3rciful/tripbot/internal/storage"
)

// Store implements storage.TripLog and storage.LastReadings on one database.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

var (
	_ storage.TripLog      = (*Store)(nil)
	_ storage.LastReadings = (*Store)(nil)
	_ storage.Lister       = (*Store)(nil)
)

// New wraps db. The schema must exist: InitSchema for SQLite, migrations for Postgres.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// DB exposes the underlying handle.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InitSchema creates the SQLite tables when missing.
func (s *Store) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trip_readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			trip_id TEXT NOT NULL,
			truck TEXT NOT NULL,
			event TEXT NOT NULL,
			odometer INTEGER NOT NULL,
			lat REAL,
			lon REAL,
			weight REAL NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trip_readings_trip ON trip_readings(trip_id, id);`,
		`CREATE TABLE IF NOT EXISTS fleet_last_readings (
			truck TEXT PRIMARY KEY,
			km INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlstore: init schema: %w", err)
		}
	}
	return nil
}

type readingRow struct {
	TripID     string          `db:"trip_id"`
	Truck      string          `db:"truck"`
	Event      string          `db:"event"`
	Odometer   int64           `db:"odometer"`
	Lat        sql.NullFloat64 `db:"lat"`
	Lon        sql.NullFloat64 `db:"lon"`
	Weight     float64         `db:"weight"`
	RecordedAt string          `db:"recorded_at"`
}

const insertReading = `INSERT INTO trip_readings
	(trip_id, truck, event, odometer, lat, lon, weight, recorded_at)
	VALUES (:trip_id, :truck, :event, :odometer, :lat, :lon, :weight, :recorded_at)`

// Append inserts one reading row.
func (s *Store) Append(ctx context.Context, tripID string, r fleet.Reading) error {
	if err := storage.CheckTripID(tripID); err != nil {
		return err
	}
	row := readingRow{
		TripID:     tripID,
		Truck:      string(r.Truck),
		Event:      string(r.Event),
		Odometer:   r.Odometer,
		Weight:     r.Weight,
		RecordedAt: r.Time.UTC().Format(time.RFC3339Nano),
	}
	if r.Location != nil {
		row.Lat = sql.NullFloat64{Float64: r.Location.Lat, Valid: true}
		row.Lon = sql.NullFloat64{Float64: r.Location.Lon, Valid: true}
	}

	start := time.Now()
	if _, err := s.db.NamedExecContext(ctx, insertReading, row); err != nil {
		return fmt.Errorf("sqlstore: insert reading: %w", err)
	}
	logger.LogEvent(ctx, logger.Store, slog.LevelDebug, "trip.append",
		slog.String("driver", s.db.DriverName()),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// Readings returns the readings of tripID in insertion order.
func (s *Store) Readings(ctx context.Context, tripID string) ([]fleet.Reading, error) {
	var rows []readingRow
	query := s.db.Rebind(`SELECT trip_id, truck, event, odometer, lat, lon, weight, recorded_at
		FROM trip_readings WHERE trip_id = ? ORDER BY id`)
	if err := s.db.SelectContext(ctx, &rows, query, tripID); err != nil {
		return nil, fmt.Errorf("sqlstore: select readings: %w", err)
	}

	out := make([]fleet.Reading, 0, len(rows))
	for _, row := range rows {
		ts, err := time.Parse(time.RFC3339Nano, row.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: parse recorded_at %q: %w", row.RecordedAt, err)
		}
		r := fleet.Reading{
			Truck:    fleet.Truck(row.Truck),
			Event:    fleet.EventType(row.Event),
			Odometer: row.Odometer,
			Weight:   row.Weight,
			Time:     ts,
			TripID:   row.TripID,
		}
		if row.Lat.Valid && row.Lon.Valid {
			r.Location = &fleet.Location{Lat: row.Lat.Float64, Lon: row.Lon.Float64}
		}
		out = append(out, r)
	}
	return out, nil
}

// Get returns truck's last confirmed km.
func (s *Store) Get(ctx context.Context, truck fleet.Truck) (int64, bool, error) {
	var km int64
	err := s.db.GetContext(ctx, &km, s.db.Rebind(`SELECT km FROM fleet_last_readings WHERE truck = ?`), string(truck))
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("sqlstore: get last reading: %w", err)
	}
	return km, true, nil
}

const upsertLastReading = `INSERT INTO fleet_last_readings (truck, km, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT (truck) DO UPDATE SET km = excluded.km, updated_at = excluded.updated_at`

// Set upserts truck's km.
func (s *Store) Set(ctx context.Context, truck fleet.Truck, km int64) error {
	updatedAt := s.now().UTC().Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(upsertLastReading), string(truck), km, updatedAt); err != nil {
		return fmt.Errorf("sqlstore: upsert last reading: %w", err)
	}
	logger.LogEvent(ctx, logger.Store, slog.LevelDebug, "fleet.set",
		slog.String("driver", s.db.DriverName()),
		slog.String("truck", string(truck)),
		slog.Int64("km", km),
	)
	return nil
}

// All returns the whole fleet table.
func (s *Store) All(ctx context.Context) (map[fleet.Truck]int64, error) {
	var rows []struct {
		Truck string `db:"truck"`
		KM    int64  `db:"km"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT truck, km FROM fleet_last_readings ORDER BY truck`); err != nil {
		return nil, fmt.Errorf("sqlstore: list last readings: %w", err)
	}
	out := make(map[fleet.Truck]int64, len(rows))
	for _, row := range rows {
		out[fleet.Truck(row.Truck)] = row.KM
	}
	return out, nil
}
