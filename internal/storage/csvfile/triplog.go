// Package csvfile stores trip logs and last odometer readings as CSV files,
// one file per trip plus a single fleet table.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/m3rciful/tripbot/core/logger"
	"github.com/m3rciful/tripbot/internal/fleet"
	"github.com/m3rciful/tripbot/internal/storage"
)

const tripFilePrefix = "transport_data_"

// TripLog writes transport_data_<tripID>.csv files into a directory.
type TripLog struct {
	dir string
	// mu serializes appends across all trips; ids share second resolution.
	mu sync.Mutex
}

var _ storage.TripLog = (*TripLog)(nil)

// NewTripLog creates dir if needed.
func NewTripLog(dir string) (*TripLog, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("csvfile: create data dir: %w", err)
	}
	return &TripLog{dir: dir}, nil
}

// Path returns the file holding tripID.
func (l *TripLog) Path(tripID string) string {
	return filepath.Join(l.dir, tripFilePrefix+tripID+".csv")
}

// Append writes r as one row, preceded by the header when the file is new.
// The file is synced before Append returns.
func (l *TripLog) Append(ctx context.Context, tripID string, r fleet.Reading) error {
	if err := storage.CheckTripID(tripID); err != nil {
		return err
	}
	start := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	path := l.Path(tripID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("csvfile: open trip log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("csvfile: stat trip log: %w", err)
	}

	w := newWriter(f)
	if info.Size() == 0 {
		_ = w.Write(storage.Header)
	}
	_ = w.Write(storage.Row(r))
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("csvfile: write trip log: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("csvfile: sync trip log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("csvfile: close trip log: %w", err)
	}

	logger.LogEvent(ctx, logger.Store, slog.LevelDebug, "trip.append",
		slog.String("path", path),
		slog.Bool("created", info.Size() == 0),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// Rows returns every row of tripID including the header; nil when the trip has no log yet.
func (l *TripLog) Rows(tripID string) ([][]string, error) {
	if err := storage.CheckTripID(tripID); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.Path(tripID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csvfile: open trip log: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csvfile: read trip log: %w", err)
	}
	return rows, nil
}

// newWriter matches the CRLF rows the existing trip files were written with.
func newWriter(f *os.File) *csv.Writer {
	w := csv.NewWriter(f)
	w.UseCRLF = true
	return w
}
