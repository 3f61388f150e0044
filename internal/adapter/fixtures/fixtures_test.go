package fixtures

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxgrid/dimming-reco-service/internal/domain"
)

func testSource(t *testing.T) *Source {
	t.Helper()
	return New("testdata", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAreas(t *testing.T) {
	areas, err := testSource(t).Areas(context.Background())
	require.NoError(t, err)

	require.Len(t, areas, 2, "area without a gu is dropped")
	assert.Equal(t, "Seongdong-gu", areas[0].Gu)
	assert.Equal(t, []string{"Seongsu-dong", "Haengdang-dong"}, areas[0].Dongs)
	assert.Equal(t, []string{}, areas[1].Dongs, "null dongs normalize to empty")
}

func TestGridCells(t *testing.T) {
	cells, err := testSource(t).GridCells(context.Background(), "seongsu")
	require.NoError(t, err)

	require.Len(t, cells, 2, "rows without a usable grid_id or centroid are dropped")

	assert.Equal(t, "0", cells[0].GridID)
	assert.Equal(t, 37.544, cells[0].Centroid.Lat)
	require.NotNil(t, cells[0].NTLMean)
	assert.Equal(t, 62.5, *cells[0].NTLMean)
	assert.Nil(t, cells[0].PollutionScore)

	// Numeric grid_id and array centroid are the legacy encodings.
	assert.Equal(t, "1", cells[1].GridID)
	assert.Equal(t, 37.5462, cells[1].Centroid.Lat)
	assert.Equal(t, 127.056, cells[1].Centroid.Lon)
}

func TestRecommendations(t *testing.T) {
	recs, err := testSource(t).Recommendations(context.Background())
	require.NoError(t, err)

	require.Len(t, recs, 2, "row with empty grid_id is dropped")

	assert.Equal(t, "0", recs[0].GridID)
	assert.Equal(t, -30.0, recs[0].DeltaPercent)
	assert.Equal(t, 3.0, recs[0].DimHours)
	require.Len(t, recs[0].Reasons, 2, "KEEP-direction reason fails validation and is dropped")
	assert.Equal(t, "night_traffic", recs[0].Reasons[0].Key)

	assert.Equal(t, "1", recs[1].GridID)
	assert.Equal(t, -25.0, recs[1].DeltaPercent, "missing delta is derived")
	assert.Equal(t, 4.0, recs[1].DimHours, "duration_hours fallback encoding")
	assert.Equal(t, []domain.Reason{}, recs[1].Reasons)
}

func TestRecommendation(t *testing.T) {
	src := testSource(t)

	rec, err := src.Recommendation(context.Background(), "1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 60.0, rec.RecommendedLx)

	rec, err = src.Recommendation(context.Background(), "404")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestMissingDirIsSourceUnavailable(t *testing.T) {
	src := New(filepath.Join(t.TempDir(), "nope"), slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := src.Areas(context.Background())
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)

	_, err = src.GridCells(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)

	_, err = src.Recommendation(context.Background(), "0")
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestCorruptFileIsSourceUnavailable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reco.json"), []byte("{not json"), 0o644))

	src := New(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := src.Recommendations(context.Background())
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)
}
