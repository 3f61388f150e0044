// Package service implements the recommendation read model on top of an
// ordered chain of data sources. Listing operations degrade instead of
// failing: an unreachable source falls through to the next one, and the
// chain bottoming out yields empty results, not errors.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/luxgrid/dimming-reco-service/internal/domain"
	"github.com/luxgrid/dimming-reco-service/internal/observability"
)

// Sources is the ordered fallback chain per capability, most preferred
// first. Slices may share adapters; an adapter appears in every slice whose
// interface it implements.
type Sources struct {
	Areas []domain.AreaSource
	Grids []domain.GridSource
	Recos []domain.RecommendationSource
}

// Service answers the read queries behind the HTTP API.
type Service struct {
	sources Sources
	logger  *slog.Logger
	metrics *observability.Metrics
}

func New(sources Sources, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{sources: sources, logger: logger, metrics: metrics}
}

// defaultAreas is the compiled-in floor for the pilot deployment, returned
// when every configured area source fails or is empty.
var defaultAreas = []domain.Area{
	{Gu: "Seongdong-gu", Dongs: []string{"Seongsu-dong"}},
}

// Areas lists the selectable districts. It never fails: the first source
// returning data wins, and the compiled-in reference list is the floor.
func (s *Service) Areas(ctx context.Context) []domain.Area {
	for _, src := range s.sources.Areas {
		areas, err := src.Areas(ctx)
		if err != nil {
			s.fellBack(src, "areas", err)
			continue
		}
		if len(areas) == 0 {
			s.metrics.SourceLookups.WithLabelValues(src.Name(), "areas", "miss").Inc()
			continue
		}
		s.metrics.SourceLookups.WithLabelValues(src.Name(), "areas", "hit").Inc()
		return areas
	}

	out := make([]domain.Area, len(defaultAreas))
	copy(out, defaultAreas)
	return out
}

// GridCells lists the map cells for an area. All sources failing yields an
// empty slice; the map renders blank rather than erroring.
func (s *Service) GridCells(ctx context.Context, area string) []domain.GridCell {
	for _, src := range s.sources.Grids {
		cells, err := src.GridCells(ctx, area)
		if err != nil {
			s.fellBack(src, "grids", err)
			continue
		}
		if len(cells) == 0 {
			s.metrics.SourceLookups.WithLabelValues(src.Name(), "grids", "miss").Inc()
			continue
		}
		s.metrics.SourceLookups.WithLabelValues(src.Name(), "grids", "hit").Inc()
		return cells
	}

	s.logger.Warn("no grid source available", "area", area)
	return []domain.GridCell{}
}

// RecommendationDetail resolves one grid's recommendation. Unavailable
// sources fall through; a healthy source without the grid also falls
// through, so a grid known only to a lower tier still resolves. Payload
// corruption in a reachable source propagates, it is a defect to surface,
// not to paper over. A nil result with nil error means no source knows the
// grid.
func (s *Service) RecommendationDetail(ctx context.Context, gridID string) (*domain.Recommendation, error) {
	for _, src := range s.sources.Recos {
		rec, err := src.Recommendation(ctx, gridID)
		if err != nil {
			if errors.Is(err, domain.ErrSourceUnavailable) {
				s.fellBack(src, "reco", err)
				continue
			}
			s.metrics.SourceLookups.WithLabelValues(src.Name(), "reco", "error").Inc()
			return nil, err
		}
		if rec == nil {
			s.metrics.SourceLookups.WithLabelValues(src.Name(), "reco", "miss").Inc()
			continue
		}
		s.metrics.SourceLookups.WithLabelValues(src.Name(), "reco", "hit").Inc()
		return rec, nil
	}
	return nil, nil
}

// GridSummaries lists the joined grid/recommendation projection from the
// first source able to enumerate its table.
func (s *Service) GridSummaries(ctx context.Context) []domain.GridSummary {
	for _, src := range s.sources.Recos {
		lister, ok := src.(domain.RecommendationLister)
		if !ok {
			continue
		}
		recs, err := lister.Recommendations(ctx)
		if err != nil {
			s.fellBack(src, "summaries", err)
			continue
		}
		if len(recs) == 0 {
			s.metrics.SourceLookups.WithLabelValues(src.Name(), "summaries", "miss").Inc()
			continue
		}

		s.metrics.SourceLookups.WithLabelValues(src.Name(), "summaries", "hit").Inc()
		summaries := make([]domain.GridSummary, 0, len(recs))
		for _, rec := range recs {
			summaries = append(summaries, rec.Summary())
		}
		return summaries
	}
	return []domain.GridSummary{}
}

func (s *Service) fellBack(src domain.Source, operation string, err error) {
	s.metrics.SourceLookups.WithLabelValues(src.Name(), operation, "error").Inc()
	s.metrics.Fallbacks.WithLabelValues(operation).Inc()
	s.logger.Warn("data source failed, falling back",
		"source", src.Name(),
		"operation", operation,
		"error", err,
	)
}
