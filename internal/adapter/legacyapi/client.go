// Package legacyapi adapts the original pilot backend as the preferred
// remote data source. The service only reaches it when LEGACY_API_URL is
// configured; any transport failure degrades to the local sources.
package legacyapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/luxgrid/dimming-reco-service/internal/domain"
	"github.com/luxgrid/dimming-reco-service/internal/observability"
)

// Client implements domain.GridSource and domain.RecommendationSource
// against the legacy HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a legacy API client. baseURL carries no trailing slash.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

func (c *Client) Name() string { return "legacy-api" }

// GridCells fetches the grid cells for an area.
func (c *Client) GridCells(ctx context.Context, area string) ([]domain.GridCell, error) {
	u := c.baseURL + "/api/grids"
	if area != "" {
		u += "?area=" + url.QueryEscape(area)
	}

	var raw []gridResponse
	if err := c.doRequest(ctx, u, "grids", &raw); err != nil {
		return nil, err
	}

	cells := make([]domain.GridCell, 0, len(raw))
	for _, g := range raw {
		cell, ok := g.normalize()
		if !ok {
			continue
		}
		cells = append(cells, cell)
	}
	return cells, nil
}

// Recommendation fetches a single grid's recommendation. The legacy backend
// answers 404 for an unknown grid, which maps to the healthy-miss (nil, nil).
func (c *Client) Recommendation(ctx context.Context, gridID string) (*domain.Recommendation, error) {
	u := c.baseURL + "/api/reco?grid_id=" + url.QueryEscape(gridID)

	var raw recoResponse
	if err := c.doRequest(ctx, u, "reco", &raw); err != nil {
		if err == errNotFound {
			return nil, nil
		}
		return nil, err
	}

	rec, err := raw.normalize(gridID)
	if err != nil {
		return nil, fmt.Errorf("legacy reco for grid %s: %w", gridID, err)
	}
	return &rec, nil
}

// errNotFound is internal to the package; callers see (nil, nil).
var errNotFound = fmt.Errorf("not found")

func (c *Client) doRequest(ctx context.Context, fullURL, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.UpstreamSeconds.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("legacy %s request: %w: %v", endpoint, domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("legacy %s: status %d: %s: %w", endpoint, resp.StatusCode, body, domain.ErrSourceUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode legacy %s response: %w: %v", endpoint, domain.ErrSourceUnavailable, err)
	}
	return nil
}

// Legacy API response types. grid_id arrives as either a string or a bare
// number depending on backend version; centroid is always [lat, lon].

type gridResponse struct {
	GridID   json.RawMessage `json:"grid_id"`
	Centroid []float64       `json:"centroid"`
	NTLMean  *float64        `json:"ntl_mean"`
}

func (g gridResponse) normalize() (domain.GridCell, bool) {
	if len(g.Centroid) != 2 {
		return domain.GridCell{}, false
	}
	cell, err := domain.NewGridCell(parseGridID(g.GridID), domain.Centroid{Lat: g.Centroid[0], Lon: g.Centroid[1]})
	if err != nil {
		return domain.GridCell{}, false
	}
	cell.NTLMean = g.NTLMean
	return cell, true
}

type recoResponse struct {
	GridID        json.RawMessage `json:"grid_id"`
	ExistingLx    float64         `json:"existing_lx"`
	RecommendedLx float64         `json:"recommended_lx"`
	DeltaPercent  *float64        `json:"delta_percent"`
	DurationHours *float64        `json:"duration_hours"`
	Reasons       []domain.Reason `json:"reasons"`
}

func (r recoResponse) normalize(requestedID string) (domain.Recommendation, error) {
	id := parseGridID(r.GridID)
	if id == "" {
		id = requestedID
	}

	delta := domain.DeriveDeltaPercent(r.ExistingLx, r.RecommendedLx)
	if r.DeltaPercent != nil {
		delta = *r.DeltaPercent
	}

	hours := float64(domain.DefaultDimHours)
	if r.DurationHours != nil {
		hours = *r.DurationHours
	}

	return domain.NewRecommendation(id, r.ExistingLx, r.RecommendedLx, delta, hours, domain.FilterReasons(r.Reasons))
}

// parseGridID coerces the string and bare-number encodings of grid_id to a
// string, empty when absent or malformed.
func parseGridID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
