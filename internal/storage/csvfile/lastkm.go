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
	"strconv"
	"strings"
	"sync"

	"github.com/m3rciful/tripbot/core/logger"
	"github.com/m3rciful/tripbot/internal/fleet"
	"github.com/m3rciful/tripbot/internal/storage"
)

var lastKMHeader = []string{"truck", "km"}

// LastReadings keeps the fleet table in a small CSV file that is rewritten
// atomically on every update.
type LastReadings struct {
	path string
	mu   sync.Mutex
}

var (
	_ storage.LastReadings = (*LastReadings)(nil)
	_ storage.Lister       = (*LastReadings)(nil)
)

// NewLastReadings uses the file at path, creating its directory if needed.
// The file itself is created by the first Set.
func NewLastReadings(path string) (*LastReadings, error) {
	if path == "" {
		path = "last_km.csv"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("csvfile: create data dir: %w", err)
	}
	return &LastReadings{path: path}, nil
}

type entry struct {
	truck string
	km    string
}

// Get returns the stored km for truck. Unparsable cells count as absent.
func (s *LastReadings) Get(ctx context.Context, truck fleet.Truck) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return 0, false, err
	}
	for _, e := range entries {
		if e.truck == string(truck) {
			return parseKM(ctx, e)
		}
	}
	return 0, false, nil
}

// Set replaces truck's km, keeping every other row and their order.
func (s *LastReadings) Set(ctx context.Context, truck fleet.Truck, km int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return err
	}
	value := strconv.FormatInt(km, 10)
	found := false
	for i := range entries {
		if entries[i].truck == string(truck) {
			entries[i].km = value
			found = true
		}
	}
	if !found {
		entries = append(entries, entry{truck: string(truck), km: value})
	}
	if err := s.write(entries); err != nil {
		return err
	}

	logger.LogEvent(ctx, logger.Store, slog.LevelDebug, "fleet.set",
		slog.String("path", s.path),
		slog.String("truck", string(truck)),
		slog.Int64("km", km),
	)
	return nil
}

// All returns every parsable row.
func (s *LastReadings) All(ctx context.Context) (map[fleet.Truck]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make(map[fleet.Truck]int64, len(entries))
	for _, e := range entries {
		if km, ok, _ := parseKM(ctx, e); ok {
			out[fleet.Truck(e.truck)] = km
		}
	}
	return out, nil
}

func parseKM(ctx context.Context, e entry) (int64, bool, error) {
	km, err := strconv.ParseInt(strings.TrimSpace(e.km), 10, 64)
	if err != nil {
		logger.LogEvent(ctx, logger.Store, slog.LevelWarn, "fleet.parse",
			slog.String("truck", e.truck),
			slog.String("value", logger.SanitizeLimit(e.km, 32)),
			slog.String("err", err.Error()),
		)
		return 0, false, nil
	}
	return km, true, nil
}

func (s *LastReadings) read() ([]entry, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csvfile: open fleet table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csvfile: read fleet table: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	truckCol, kmCol := -1, -1
	for i, name := range rows[0] {
		switch strings.TrimSpace(name) {
		case "truck":
			truckCol = i
		case "km":
			kmCol = i
		}
	}
	if truckCol < 0 || kmCol < 0 {
		return nil, fmt.Errorf("csvfile: fleet table %s has no truck/km header", s.path)
	}

	entries := make([]entry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if truckCol >= len(row) || kmCol >= len(row) {
			continue
		}
		entries = append(entries, entry{truck: row[truckCol], km: row[kmCol]})
	}
	return entries, nil
}

// write replaces the table through a synced temp file renamed over the old one.
func (s *LastReadings) write(entries []entry) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".last_km-*.csv")
	if err != nil {
		return fmt.Errorf("csvfile: create temp fleet table: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	w := newWriter(tmp)
	_ = w.Write(lastKMHeader)
	for _, e := range entries {
		_ = w.Write([]string{e.truck, e.km})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		cleanup()
		return fmt.Errorf("csvfile: write fleet table: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("csvfile: sync fleet table: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("csvfile: close fleet table: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("csvfile: chmod fleet table: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("csvfile: replace fleet table: %w", err)
	}
	return nil
}
