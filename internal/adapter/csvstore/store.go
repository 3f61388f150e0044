// Package csvstore serves recommendations from the model-output CSV export.
// The export is parsed once into an in-memory table; concurrent callers
// arriving during the parse share the single in-flight load, and a failed
// load stays uncached so the next caller retries.
package csvstore

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/luxgrid/dimming-reco-service/internal/domain"
	"github.com/luxgrid/dimming-reco-service/internal/observability"
)

// PayloadLoader fetches the raw CSV bytes. The default loader reads from
// disk; tests and alternative transports inject their own.
type PayloadLoader func(ctx context.Context) ([]byte, error)

// Store is a CSV-backed recommendation source with single-flight load
// semantics. It also synthesizes the map grid cells that join against the
// table by ordinal grid id.
type Store struct {
	center     domain.Centroid
	cellMeters float64
	logger     *slog.Logger
	metrics    *observability.Metrics
	load       PayloadLoader

	group singleflight.Group
	mu    sync.RWMutex
	table *table
}

type table struct {
	byID     map[string]domain.Recommendation
	order    []string
	loadedAt time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithPayloadLoader replaces the file loader, e.g. with an HTTP fetch or a
// counting stub in tests.
func WithPayloadLoader(l PayloadLoader) Option {
	return func(s *Store) { s.load = l }
}

// New creates a Store reading the export at path.
func New(path string, center domain.Centroid, cellMeters float64, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Store {
	s := &Store{
		center:     center,
		cellMeters: cellMeters,
		logger:     logger,
		metrics:    metrics,
		load:       fileLoader(path),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Name() string { return "csv" }

// Recommendation returns the recommendation for gridID, or (nil, nil) when
// the table loaded but has no matching row.
func (s *Store) Recommendation(ctx context.Context, gridID string) (*domain.Recommendation, error) {
	t, err := s.loadTable(ctx)
	if err != nil {
		return nil, err
	}
	rec, ok := t.byID[gridID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Recommendations returns the full table in export order.
func (s *Store) Recommendations(ctx context.Context) ([]domain.Recommendation, error) {
	t, err := s.loadTable(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Recommendation, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.byID[id])
	}
	return out, nil
}

// GridCells synthesizes one cell per table row around the reference center.
// The export carries no geometry and covers a single pilot area, so the area
// argument is ignored here.
func (s *Store) GridCells(ctx context.Context, _ string) ([]domain.GridCell, error) {
	t, err := s.loadTable(ctx)
	if err != nil {
		return nil, err
	}
	return domain.SynthesizeCells(len(t.order), s.center, s.cellMeters), nil
}

// CheckReadiness reports whether the table is loadable.
func (s *Store) CheckReadiness(ctx context.Context) error {
	_, err := s.loadTable(ctx)
	return err
}

// Upsert replaces or inserts a single row, used by the refresh consumer when
// the model publishes updated output. Refreshed rows take precedence over the
// file snapshot: once a table exists (from either path) it is only mutated
// here, never reloaded from disk.
func (s *Store) Upsert(rec domain.Recommendation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		s.table = &table{byID: map[string]domain.Recommendation{}, loadedAt: domain.Clock().Now()}
	}
	if _, exists := s.table.byID[rec.GridID]; !exists {
		s.table.order = append(s.table.order, rec.GridID)
	}
	s.table.byID[rec.GridID] = rec
	s.metrics.TableRows.Set(float64(len(s.table.order)))
}

// loadTable returns the cached table, loading it at most once concurrently.
func (s *Store) loadTable(ctx context.Context) (*table, error) {
	s.mu.RLock()
	t := s.table
	s.mu.RUnlock()
	if t != nil {
		return t, nil
	}

	v, err, shared := s.group.Do("table", func() (any, error) {
		// A caller that queued behind a completed load finds the table here.
		s.mu.RLock()
		cached := s.table
		s.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		start := time.Now()
		payload, err := s.load(ctx)
		if err != nil {
			s.metrics.TableLoads.WithLabelValues("error").Inc()
			return nil, err
		}

		tbl, skipped, err := parseTable(payload)
		if err != nil {
			s.metrics.TableLoads.WithLabelValues("error").Inc()
			return nil, err
		}

		s.metrics.TableLoads.WithLabelValues("success").Inc()
		s.metrics.TableLoadSeconds.Observe(time.Since(start).Seconds())
		s.metrics.TableRows.Set(float64(len(tbl.order)))
		s.logger.Info("recommendation table loaded",
			"rows", len(tbl.order),
			"skipped", skipped,
		)

		s.mu.Lock()
		s.table = tbl
		s.mu.Unlock()
		return tbl, nil
	})
	if shared {
		s.metrics.TableLoadShared.Inc()
	}
	if err != nil {
		return nil, err
	}
	return v.(*table), nil
}

// parseTable parses the full export. A missing grid_id column fails the
// load; individual rows with an empty grid_id are skipped, not fatal.
func parseTable(payload []byte) (*table, int, error) {
	r := csv.NewReader(bytes.NewReader(payload))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("parse reco csv: %w", err)
	}
	if len(records) == 0 {
		return nil, 0, errors.New("parse reco csv: empty payload")
	}

	header := records[0]
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["grid_id"]; !ok {
		return nil, 0, errors.New("parse reco csv: missing grid_id column")
	}

	tbl := &table{byID: make(map[string]domain.Recommendation, len(records)-1), loadedAt: domain.Clock().Now()}
	skipped := 0
	for _, record := range records[1:] {
		row := make(domain.RawRecoRow, len(cols))
		for name, idx := range cols {
			if idx < len(record) {
				row[name] = record[idx]
			}
		}

		rec, err := domain.NormalizeRecoRow(row)
		if err != nil {
			skipped++
			continue
		}
		if _, exists := tbl.byID[rec.GridID]; !exists {
			tbl.order = append(tbl.order, rec.GridID)
		}
		tbl.byID[rec.GridID] = rec
	}

	return tbl, skipped, nil
}

// fileLoader reads the export from disk. A missing or unreadable file maps
// to ErrSourceUnavailable so the service can fall back.
func fileLoader(path string) PayloadLoader {
	return func(_ context.Context) ([]byte, error) {
		payload, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read reco csv %s: %w: %v", path, domain.ErrSourceUnavailable, err)
		}
		return payload, nil
	}
}
