package domain

import (
	"context"
	"errors"
)

// ErrSourceUnavailable marks a source that could not be reached or read at
// all (network down, file missing). The service falls back to the next
// source in the chain on this error; anything else is payload corruption and
// propagates on the detail path.
var ErrSourceUnavailable = errors.New("source unavailable")

// Source identifies a data source in the fallback chain for logs and metrics.
type Source interface {
	Name() string
}

// AreaSource lists the district/neighborhood reference data.
type AreaSource interface {
	Source
	Areas(ctx context.Context) ([]Area, error)
}

// GridSource lists the grid cells used for map rendering.
type GridSource interface {
	Source
	GridCells(ctx context.Context, area string) ([]GridCell, error)
}

// RecommendationSource resolves a single recommendation by grid id.
// A healthy source with no matching record returns (nil, nil).
type RecommendationSource interface {
	Source
	Recommendation(ctx context.Context, gridID string) (*Recommendation, error)
}

// RecommendationLister is an optional capability of sources that can
// enumerate their whole recommendation table, used for the summary join.
type RecommendationLister interface {
	Recommendations(ctx context.Context) ([]Recommendation, error)
}
