package domain

import (
	"math"
	"strconv"

	"github.com/paulmach/orb"
)

// DefaultCellSizeMeters is the pilot grid pitch.
const DefaultCellSizeMeters = 250.0

// metersPerDegreeLat is the flat-earth approximation used throughout:
// 1 degree of latitude spans ~111,320 m, 1 degree of longitude spans
// 111,320 * cos(lat) m. Degenerate near the poles (cos -> 0), which is an
// accepted limitation for a city-scale grid.
const metersPerDegreeLat = 111320.0

// SeongsuCenter is the fixed reference coordinate for the pilot area,
// used for grid synthesis when no authoritative geometry source exists.
var SeongsuCenter = Centroid{Lat: 37.544, Lon: 127.056}

// SquarePolygon approximates a square of sizeMeters centered at (lat, lon)
// as a closed 5-point ring in (lon, lat) order: top-left, top-right,
// bottom-right, bottom-left, closed back at top-left.
func SquarePolygon(lat, lon, sizeMeters float64) orb.Polygon {
	half := sizeMeters / 2
	latOffset := half / metersPerDegreeLat
	lonOffset := half / (metersPerDegreeLat * math.Cos(lat*math.Pi/180))

	ring := orb.Ring{
		{lon - lonOffset, lat + latOffset},
		{lon + lonOffset, lat + latOffset},
		{lon + lonOffset, lat - latOffset},
		{lon - lonOffset, lat - latOffset},
		{lon - lonOffset, lat + latOffset},
	}
	return orb.Polygon{ring}
}

// ntlPalette runs cool to hot; bucket i covers [ntlBounds[i-1], ntlBounds[i]).
var (
	ntlBounds  = []float64{30, 50, 70, 90}
	ntlPalette = []string{"#4575b4", "#91bfdb", "#fee090", "#fc8d59", "#d73027"}
)

// IntensityColor maps a 0-100 brightness value to its heatmap hex color.
// Buckets are half-open: a value on a boundary belongs to the upper bucket.
// Out-of-range input is clamped.
func IntensityColor(value float64) string {
	value = clampIntensity(value)
	for i, bound := range ntlBounds {
		if value < bound {
			return ntlPalette[i]
		}
	}
	return ntlPalette[len(ntlPalette)-1]
}

// IntensityOpacity maps a 0-100 brightness value linearly onto [0.4, 0.8].
// Out-of-range input is clamped.
func IntensityOpacity(value float64) float64 {
	value = clampIntensity(value)
	return 0.4 + (value/100)*0.4
}

func clampIntensity(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}

// SynthesizeCells lays n cells out deterministically on a near-square grid
// (side = ceil(sqrt(n))) centered on the reference coordinate, spaced at the
// cell pitch. GridID is the 0-based ordinal so cells join against the model
// export by construction. Calling twice with the same arguments yields
// identical ids and centroids.
func SynthesizeCells(n int, center Centroid, sizeMeters float64) []GridCell {
	if n <= 0 {
		return []GridCell{}
	}

	side := int(math.Ceil(math.Sqrt(float64(n))))
	latPitch := sizeMeters / metersPerDegreeLat
	lonPitch := sizeMeters / (metersPerDegreeLat * math.Cos(center.Lat*math.Pi/180))

	startLat := center.Lat - float64(side-1)/2*latPitch
	startLon := center.Lon - float64(side-1)/2*lonPitch

	cells := make([]GridCell, n)
	for i := 0; i < n; i++ {
		row := i / side
		col := i % side
		cells[i] = GridCell{
			GridID: strconv.Itoa(i),
			Centroid: Centroid{
				Lat: startLat + float64(row)*latPitch,
				Lon: startLon + float64(col)*lonPitch,
			},
		}
	}
	return cells
}
