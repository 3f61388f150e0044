// Package fixtures serves areas, grids, and recommendations from pre-shaped
// JSON files on disk. It is the last tier of the fallback chain and the data
// the service ships with for local development.
//
// The files tolerate both the generated form (string grid_id, centroid
// object) and the hand-authored legacy form (numeric grid_id, centroid as a
// [lat, lon] array, duration_hours instead of dim_hours). Rows that cannot
// be normalized are dropped, never guessed at.
package fixtures

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/luxgrid/dimming-reco-service/internal/domain"
)

const (
	areasFile = "areas.json"
	gridsFile = "grids.json"
	recoFile  = "reco.json"
)

// Source reads fixture files from a directory. Files are re-read on every
// call; fixture datasets are small and editing them live is the point.
type Source struct {
	dir    string
	logger *slog.Logger
}

func New(dir string, logger *slog.Logger) *Source {
	return &Source{dir: dir, logger: logger}
}

func (s *Source) Name() string { return "fixtures" }

// Areas returns the district reference data from areas.json.
func (s *Source) Areas(ctx context.Context) ([]domain.Area, error) {
	var raw []domain.Area
	if err := s.readFile(areasFile, &raw); err != nil {
		return nil, err
	}

	areas := make([]domain.Area, 0, len(raw))
	for _, a := range raw {
		if a.Gu == "" {
			continue
		}
		if a.Dongs == nil {
			a.Dongs = []string{}
		}
		areas = append(areas, a)
	}
	return areas, nil
}

// GridCells returns the map cells from grids.json. The fixture set covers a
// single pilot area, so the area filter is ignored.
func (s *Source) GridCells(ctx context.Context, _ string) ([]domain.GridCell, error) {
	var raw []rawGrid
	if err := s.readFile(gridsFile, &raw); err != nil {
		return nil, err
	}

	cells := make([]domain.GridCell, 0, len(raw))
	dropped := 0
	for _, rg := range raw {
		cell, ok := rg.normalize()
		if !ok {
			dropped++
			continue
		}
		cells = append(cells, cell)
	}
	if dropped > 0 {
		s.logger.Warn("dropped malformed fixture grid rows", "file", gridsFile, "dropped", dropped)
	}
	return cells, nil
}

// Recommendation resolves a single grid's recommendation from reco.json.
func (s *Source) Recommendation(ctx context.Context, gridID string) (*domain.Recommendation, error) {
	recs, err := s.Recommendations(ctx)
	if err != nil {
		return nil, err
	}
	for i := range recs {
		if recs[i].GridID == gridID {
			return &recs[i], nil
		}
	}
	return nil, nil
}

// Recommendations returns the full reco.json table in file order.
func (s *Source) Recommendations(ctx context.Context) ([]domain.Recommendation, error) {
	var raw []rawReco
	if err := s.readFile(recoFile, &raw); err != nil {
		return nil, err
	}

	recs := make([]domain.Recommendation, 0, len(raw))
	dropped := 0
	for _, rr := range raw {
		rec, ok := rr.normalize()
		if !ok {
			dropped++
			continue
		}
		recs = append(recs, rec)
	}
	if dropped > 0 {
		s.logger.Warn("dropped malformed fixture reco rows", "file", recoFile, "dropped", dropped)
	}
	return recs, nil
}

// readFile decodes one fixture file. An unreadable or undecodable file makes
// this source unavailable rather than poisoning the chain.
func (s *Source) readFile(name string, dst any) error {
	path := filepath.Join(s.dir, name)
	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixture %s: %w: %v", path, domain.ErrSourceUnavailable, err)
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("decode fixture %s: %w: %v", path, domain.ErrSourceUnavailable, err)
	}
	return nil
}

type rawGrid struct {
	GridID         json.RawMessage `json:"grid_id"`
	Centroid       json.RawMessage `json:"centroid"`
	NTLMean        *float64        `json:"ntl_mean"`
	SafetyScore    *float64        `json:"safety_score"`
	PollutionScore *float64        `json:"pollution_score"`
}

func (rg rawGrid) normalize() (domain.GridCell, bool) {
	id, ok := decodeGridID(rg.GridID)
	if !ok {
		return domain.GridCell{}, false
	}
	centroid, ok := decodeCentroid(rg.Centroid)
	if !ok {
		return domain.GridCell{}, false
	}

	cell, err := domain.NewGridCell(id, centroid)
	if err != nil {
		return domain.GridCell{}, false
	}
	cell.NTLMean = rg.NTLMean
	cell.SafetyScore = rg.SafetyScore
	cell.PollutionScore = rg.PollutionScore
	return cell, true
}

type rawReco struct {
	GridID        json.RawMessage `json:"grid_id"`
	ExistingLx    float64         `json:"existing_lx"`
	RecommendedLx float64         `json:"recommended_lx"`
	DeltaPercent  *float64        `json:"delta_percent"`
	DimHours      *float64        `json:"dim_hours"`
	DurationHours *float64        `json:"duration_hours"`
	Reasons       []domain.Reason `json:"reasons"`
}

func (rr rawReco) normalize() (domain.Recommendation, bool) {
	id, ok := decodeGridID(rr.GridID)
	if !ok {
		return domain.Recommendation{}, false
	}

	delta := domain.DeriveDeltaPercent(rr.ExistingLx, rr.RecommendedLx)
	if rr.DeltaPercent != nil {
		delta = *rr.DeltaPercent
	}

	hours := float64(domain.DefaultDimHours)
	switch {
	case rr.DimHours != nil:
		hours = *rr.DimHours
	case rr.DurationHours != nil:
		hours = *rr.DurationHours
	}

	rec, err := domain.NewRecommendation(id, rr.ExistingLx, rr.RecommendedLx, delta, hours, domain.FilterReasons(rr.Reasons))
	if err != nil {
		return domain.Recommendation{}, false
	}
	return rec, true
}

// decodeGridID accepts both the string and bare-number encodings of grid_id.
func decodeGridID(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

// decodeCentroid accepts both the {lat, lon} object and the legacy
// [lat, lon] array encodings.
func decodeCentroid(raw json.RawMessage) (domain.Centroid, bool) {
	if len(raw) == 0 {
		return domain.Centroid{}, false
	}
	var c domain.Centroid
	if err := json.Unmarshal(raw, &c); err == nil && (c.Lat != 0 || c.Lon != 0) {
		return c, true
	}
	var pair []float64
	if err := json.Unmarshal(raw, &pair); err == nil && len(pair) == 2 {
		return domain.Centroid{Lat: pair[0], Lon: pair[1]}, true
	}
	return domain.Centroid{}, false
}
