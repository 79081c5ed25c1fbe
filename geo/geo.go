// Package geo holds the spherical and projection math the risk map is
// built on: great-circle distances, viewport regions, slippy-map zoom
// derivation, and the Web Mercator projection used by the cluster index.
package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

const (
	// TileSize is the pixel width of the zoom-0 Web Mercator world tile.
	// Pixel distance at zoom z is the zoom-0 distance scaled by 2^z.
	TileSize = 256.0

	MinZoom = 0
	MaxZoom = 18
)

// HaversineDistanceKm returns the great-circle distance between two
// coordinates in kilometres. s2's LatLng distance is the haversine
// formula, so the result is symmetric in its arguments and exactly zero
// for identical points.
func HaversineDistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// BBox is a geographic bounding box in degrees: [West,East] across,
// [South,North] up. Edges are inclusive.
type BBox struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// Contains reports whether the coordinate lies inside the box.
func (b BBox) Contains(lat, lon float64) bool {
	return lat >= b.South && lat <= b.North && lon >= b.West && lon <= b.East
}

// Empty reports whether the box is inverted and so contains nothing. A
// zero-area box still contains its boundary point.
func (b BBox) Empty() bool {
	return b.East < b.West || b.North < b.South
}

// Region is a viewport the way map views report one: a center plus the
// visible latitude/longitude spans in degrees.
type Region struct {
	CenterLat float64 `json:"centerLat"`
	CenterLon float64 `json:"centerLon"`
	LatDelta  float64 `json:"latDelta"`
	LonDelta  float64 `json:"lonDelta"`
}

// BBox converts the region to its bounding box. A zero delta yields a
// degenerate point box rather than an error.
func (r Region) BBox() BBox {
	return BBox{
		West:  r.CenterLon - r.LonDelta/2,
		South: r.CenterLat - r.LatDelta/2,
		East:  r.CenterLon + r.LonDelta/2,
		North: r.CenterLat + r.LatDelta/2,
	}
}

// Zoom derives the slippy-map zoom for the region's longitude span:
// round(log2(360/lonDelta)), clamped to [MinZoom, MaxZoom]. Degenerate
// spans map to MaxZoom.
func (r Region) Zoom() int {
	if r.LonDelta <= 0 {
		return MaxZoom
	}
	return ClampZoom(int(math.Round(math.Log2(360 / r.LonDelta))))
}

// ClampZoom bounds z to the supported zoom range.
func ClampZoom(z int) int {
	if z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}

// Project maps a coordinate into zoom-0 Web Mercator pixel space. The y
// axis grows southward; latitudes beyond the Mercator domain clamp to
// the tile edge.
func Project(lat, lon float64) (x, y float64) {
	x = (lon + 180) / 360
	sin := math.Sin(lat * math.Pi / 180)
	y = 0.5 - 0.25*math.Log((1+sin)/(1-sin))/math.Pi
	if math.IsNaN(y) || y < 0 {
		y = 0
	} else if y > 1 {
		y = 1
	}
	return x * TileSize, y * TileSize
}

// Unproject inverts Project back to degrees.
func Unproject(x, y float64) (lat, lon float64) {
	nx := x / TileSize
	ny := y / TileSize
	lon = nx*360 - 180
	lat = 360*math.Atan(math.Exp((1-2*ny)*math.Pi))/math.Pi - 90
	return lat, lon
}
