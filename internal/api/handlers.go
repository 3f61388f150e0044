package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb/geojson"

	"github.com/luxgrid/dimming-reco-service/internal/config"
	"github.com/luxgrid/dimming-reco-service/internal/domain"
	"github.com/luxgrid/dimming-reco-service/internal/service"
)

type handlers struct {
	svc    *service.Service
	cfg    *config.Config
	logger *slog.Logger
}

func (h *handlers) handleAreas(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Areas(c.Request.Context()))
}

func (h *handlers) handleGrids(c *gin.Context) {
	area := c.Query("area")
	if area == "" {
		area = h.cfg.DefaultArea
	}
	c.JSON(http.StatusOK, h.svc.GridCells(c.Request.Context(), area))
}

// defaultIntensity stands in for cells without brightness data so they still
// render at a visible mid-range fill.
const defaultIntensity = 60.0

// handleGridsGeoJSON renders the grid as a styled FeatureCollection the map
// library can consume directly: one square polygon per cell with fill color
// and opacity derived from the cell's brightness.
func (h *handlers) handleGridsGeoJSON(c *gin.Context) {
	area := c.Query("area")
	if area == "" {
		area = h.cfg.DefaultArea
	}

	cells := h.svc.GridCells(c.Request.Context(), area)
	fc := geojson.NewFeatureCollection()
	for _, cell := range cells {
		intensity := defaultIntensity
		if cell.NTLMean != nil {
			intensity = *cell.NTLMean
		}

		f := geojson.NewFeature(domain.SquarePolygon(cell.Centroid.Lat, cell.Centroid.Lon, h.cfg.CellMeters))
		f.Properties = geojson.Properties{
			"grid_id":      cell.GridID,
			"ntl_mean":     intensity,
			"fill":         domain.IntensityColor(intensity),
			"fill_opacity": domain.IntensityOpacity(intensity),
		}
		fc.Append(f)
	}
	c.JSON(http.StatusOK, fc)
}

func (h *handlers) handleReco(c *gin.Context) {
	gridID := c.Query("grid_id")
	if gridID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "grid_id is required"})
		return
	}

	rec, err := h.svc.RecommendationDetail(c.Request.Context(), gridID)
	if err != nil {
		h.logger.Error("recommendation lookup failed", "grid_id", gridID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "recommendation data unavailable"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no recommendation for grid " + gridID})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *handlers) handleSummaries(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.GridSummaries(c.Request.Context()))
}
