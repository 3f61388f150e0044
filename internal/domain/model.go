package domain

import (
	"errors"
	"fmt"
)

// Direction indicates whether a reason argues for keeping illuminance up or
// dimming it down.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

// ParseDirection validates a raw direction string. Unknown values (including
// the exporter's "KEEP" policy sentinel) are rejected so malformed entries
// fail closed.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case DirectionUp:
		return DirectionUp, true
	case DirectionDown:
		return DirectionDown, true
	default:
		return "", false
	}
}

// Area is a district with its ordered neighborhood names. Static reference
// data, immutable once loaded.
type Area struct {
	Gu    string   `json:"gu"`
	Dongs []string `json:"dongs"`
}

// Centroid is a WGS-84 latitude/longitude coordinate pair.
type Centroid struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// GridCell is one fixed-size spatial cell. GridID is unique within a dataset
// and stable across sources; it joins against Recommendation.
type GridCell struct {
	GridID   string   `json:"grid_id"`
	Centroid Centroid `json:"centroid"`

	// NTLMean is a 0-100 night-time light brightness proxy. Nil when the
	// source carries no brightness data; renderers apply their own default.
	NTLMean        *float64 `json:"ntl_mean,omitempty"`
	SafetyScore    *float64 `json:"safety_score,omitempty"`
	PollutionScore *float64 `json:"pollution_score,omitempty"`
}

// Reason is one ranked explanation for a recommendation. The sequence a
// Reason belongs to is ordered by the source; consumers wanting "top 3" take
// a prefix.
type Reason struct {
	Key       string    `json:"key"`
	Label     string    `json:"label"`
	Direction Direction `json:"direction"`
	Weight    *float64  `json:"weight,omitempty"` // 0.0-1.0 contribution weight
	Evidence  string    `json:"evidence,omitempty"`
}

// Recommendation is the dimming recommendation for a single grid cell.
// Absence of a recommendation is represented by a nil *Recommendation,
// never a zero-filled record.
type Recommendation struct {
	GridID        string   `json:"grid_id"`
	ExistingLx    float64  `json:"existing_lx"`
	RecommendedLx float64  `json:"recommended_lx"`
	DeltaPercent  float64  `json:"delta_percent"`
	DimHours      float64  `json:"dim_hours"`
	Reasons       []Reason `json:"reasons"`
}

// GridSummary is the GridCell + Recommendation join projection used where
// full geometry is unnecessary.
type GridSummary struct {
	GridID        string  `json:"grid_id"`
	ExistingLx    float64 `json:"existing_lx"`
	RecommendedLx float64 `json:"recommended_lx"`
	DeltaPercent  float64 `json:"delta_percent"`
	DimHours      float64 `json:"dim_hours"`
}

// ErrEmptyGridID is returned by constructors when the joining key is missing.
var ErrEmptyGridID = errors.New("empty grid_id")

// NewRecommendation builds a Recommendation, rejecting an empty grid id and
// normalizing nil reasons to an empty slice (empty is the "no reasons" case,
// never nil).
func NewRecommendation(gridID string, existingLx, recommendedLx, deltaPercent, dimHours float64, reasons []Reason) (Recommendation, error) {
	if gridID == "" {
		return Recommendation{}, ErrEmptyGridID
	}
	if reasons == nil {
		reasons = []Reason{}
	}
	return Recommendation{
		GridID:        gridID,
		ExistingLx:    existingLx,
		RecommendedLx: recommendedLx,
		DeltaPercent:  deltaPercent,
		DimHours:      dimHours,
		Reasons:       reasons,
	}, nil
}

// NewGridCell builds a GridCell, rejecting an empty grid id.
func NewGridCell(gridID string, centroid Centroid) (GridCell, error) {
	if gridID == "" {
		return GridCell{}, ErrEmptyGridID
	}
	return GridCell{GridID: gridID, Centroid: centroid}, nil
}

// Summary projects a Recommendation into its GridSummary form.
func (r Recommendation) Summary() GridSummary {
	return GridSummary{
		GridID:        r.GridID,
		ExistingLx:    r.ExistingLx,
		RecommendedLx: r.RecommendedLx,
		DeltaPercent:  r.DeltaPercent,
		DimHours:      r.DimHours,
	}
}

// DeriveDeltaPercent computes the signed percentage change between existing
// and recommended illuminance. Zero existing illuminance yields zero rather
// than dividing by it.
func DeriveDeltaPercent(existingLx, recommendedLx float64) float64 {
	if existingLx == 0 {
		return 0
	}
	return (recommendedLx - existingLx) / existingLx * 100
}

// FilterReasons drops entries that fail closed validation: an empty key or a
// direction outside UP/DOWN. The surviving order is preserved.
func FilterReasons(reasons []Reason) []Reason {
	out := make([]Reason, 0, len(reasons))
	for _, r := range reasons {
		if r.Key == "" {
			continue
		}
		if _, ok := ParseDirection(string(r.Direction)); !ok {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (d Direction) String() string { return string(d) }

// Validate reports whether the reason would survive FilterReasons.
func (r Reason) Validate() error {
	if r.Key == "" {
		return errors.New("reason missing key")
	}
	if _, ok := ParseDirection(string(r.Direction)); !ok {
		return fmt.Errorf("invalid reason direction %q", r.Direction)
	}
	return nil
}
