package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxgrid/dimming-reco-service/internal/domain"
	"github.com/luxgrid/dimming-reco-service/internal/observability"
)

// fakeSource implements every source interface with canned values.
type fakeSource struct {
	name string

	areas    []domain.Area
	areasErr error

	cells    []domain.GridCell
	cellsErr error

	recs    map[string]domain.Recommendation
	recsErr error

	recoCalls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Areas(context.Context) ([]domain.Area, error) {
	return f.areas, f.areasErr
}

func (f *fakeSource) GridCells(context.Context, string) ([]domain.GridCell, error) {
	return f.cells, f.cellsErr
}

func (f *fakeSource) Recommendation(_ context.Context, gridID string) (*domain.Recommendation, error) {
	f.recoCalls++
	if f.recsErr != nil {
		return nil, f.recsErr
	}
	rec, ok := f.recs[gridID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (f *fakeSource) Recommendations(context.Context) ([]domain.Recommendation, error) {
	if f.recsErr != nil {
		return nil, f.recsErr
	}
	out := make([]domain.Recommendation, 0, len(f.recs))
	for _, rec := range f.recs {
		out = append(out, rec)
	}
	return out, nil
}

func newService(sources Sources) *Service {
	return New(sources, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewTestMetrics())
}

func mustReco(t *testing.T, gridID string, recommended float64) domain.Recommendation {
	t.Helper()
	rec, err := domain.NewRecommendation(gridID, 100, recommended, domain.DeriveDeltaPercent(100, recommended), 3, nil)
	require.NoError(t, err)
	return rec
}

func TestAreas_FirstSourceWins(t *testing.T) {
	primary := &fakeSource{name: "a", areas: []domain.Area{{Gu: "Seongdong-gu", Dongs: []string{"Seongsu-dong"}}}}
	secondary := &fakeSource{name: "b", areas: []domain.Area{{Gu: "Mapo-gu"}}}
	svc := newService(Sources{Areas: []domain.AreaSource{primary, secondary}})

	areas := svc.Areas(context.Background())
	require.Len(t, areas, 1)
	assert.Equal(t, "Seongdong-gu", areas[0].Gu)
}

func TestAreas_FallsPastFailingSource(t *testing.T) {
	broken := &fakeSource{name: "a", areasErr: domain.ErrSourceUnavailable}
	healthy := &fakeSource{name: "b", areas: []domain.Area{{Gu: "Mapo-gu"}}}
	svc := newService(Sources{Areas: []domain.AreaSource{broken, healthy}})

	areas := svc.Areas(context.Background())
	require.Len(t, areas, 1)
	assert.Equal(t, "Mapo-gu", areas[0].Gu)
}

func TestAreas_CompiledInFloor(t *testing.T) {
	broken := &fakeSource{name: "a", areasErr: errors.New("disk on fire")}
	empty := &fakeSource{name: "b"}
	svc := newService(Sources{Areas: []domain.AreaSource{broken, empty}})

	areas := svc.Areas(context.Background())
	require.Len(t, areas, 1)
	assert.Equal(t, "Seongdong-gu", areas[0].Gu)
	assert.Equal(t, []string{"Seongsu-dong"}, areas[0].Dongs)
}

func TestGridCells_EmptyWhenAllFail(t *testing.T) {
	svc := newService(Sources{Grids: []domain.GridSource{
		&fakeSource{name: "a", cellsErr: domain.ErrSourceUnavailable},
		&fakeSource{name: "b", cellsErr: errors.New("corrupt")},
	}})

	cells := svc.GridCells(context.Background(), "Seongsu-dong")
	assert.Equal(t, []domain.GridCell{}, cells)
}

func TestGridCells_SkipsEmptySource(t *testing.T) {
	empty := &fakeSource{name: "a"}
	full := &fakeSource{name: "b", cells: []domain.GridCell{{GridID: "0"}}}
	svc := newService(Sources{Grids: []domain.GridSource{empty, full}})

	cells := svc.GridCells(context.Background(), "")
	require.Len(t, cells, 1)
	assert.Equal(t, "0", cells[0].GridID)
}

func TestRecommendationDetail_FallsBackOnUnavailable(t *testing.T) {
	down := &fakeSource{name: "remote", recsErr: domain.ErrSourceUnavailable}
	local := &fakeSource{name: "csv", recs: map[string]domain.Recommendation{
		"7": mustReco(t, "7", 70),
	}}
	svc := newService(Sources{Recos: []domain.RecommendationSource{down, local}})

	rec, err := svc.RecommendationDetail(context.Background(), "7")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 70.0, rec.RecommendedLx)
	assert.Equal(t, 1, down.recoCalls)
}

func TestRecommendationDetail_HealthyMissContinuesChain(t *testing.T) {
	sparse := &fakeSource{name: "remote", recs: map[string]domain.Recommendation{}}
	local := &fakeSource{name: "csv", recs: map[string]domain.Recommendation{
		"3": mustReco(t, "3", 50),
	}}
	svc := newService(Sources{Recos: []domain.RecommendationSource{sparse, local}})

	rec, err := svc.RecommendationDetail(context.Background(), "3")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "3", rec.GridID)
}

func TestRecommendationDetail_NotFoundAnywhere(t *testing.T) {
	svc := newService(Sources{Recos: []domain.RecommendationSource{
		&fakeSource{name: "a", recs: map[string]domain.Recommendation{}},
		&fakeSource{name: "b", recsErr: domain.ErrSourceUnavailable},
	}})

	rec, err := svc.RecommendationDetail(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRecommendationDetail_CorruptionPropagates(t *testing.T) {
	corrupt := &fakeSource{name: "csv", recsErr: errors.New("parse reco csv: missing grid_id column")}
	never := &fakeSource{name: "fixtures", recs: map[string]domain.Recommendation{
		"1": mustReco(t, "1", 70),
	}}
	svc := newService(Sources{Recos: []domain.RecommendationSource{corrupt, never}})

	_, err := svc.RecommendationDetail(context.Background(), "1")
	require.Error(t, err)
	assert.Equal(t, 0, never.recoCalls, "corruption must not silently fall through")
}

func TestGridSummaries(t *testing.T) {
	src := &fakeSource{name: "csv", recs: map[string]domain.Recommendation{
		"0": mustReco(t, "0", 70),
	}}
	svc := newService(Sources{Recos: []domain.RecommendationSource{src}})

	summaries := svc.GridSummaries(context.Background())
	require.Len(t, summaries, 1)
	assert.Equal(t, "0", summaries[0].GridID)
	assert.Equal(t, -30.0, summaries[0].DeltaPercent)
}

func TestGridSummaries_EmptyWhenNoLister(t *testing.T) {
	svc := newService(Sources{Recos: []domain.RecommendationSource{
		&fakeSource{name: "down", recsErr: domain.ErrSourceUnavailable},
	}})

	assert.Equal(t, []domain.GridSummary{}, svc.GridSummaries(context.Background()))
}
