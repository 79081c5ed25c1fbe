package geo

import (
	"math"
	"testing"
)

func TestHaversineSymmetry(t *testing.T) {
	pairs := [][4]float64{
		{28.6139, 77.2090, 19.0760, 72.8777},
		{12.9716, 77.5946, 13.0827, 80.2707},
		{-33.8688, 151.2093, 51.5074, -0.1278},
		{0.0001, 0.0001, -0.0001, -0.0001},
	}
	for _, p := range pairs {
		ab := HaversineDistanceKm(p[0], p[1], p[2], p[3])
		ba := HaversineDistanceKm(p[2], p[3], p[0], p[1])
		if ab != ba {
			t.Errorf("distance not symmetric: %v vs %v for %v", ab, ba, p)
		}
	}
}

func TestHaversineZeroForIdenticalPoints(t *testing.T) {
	points := [][2]float64{
		{28.6139, 77.2090},
		{0, 0},
		{-45.5, 170.25},
	}
	for _, p := range points {
		if d := HaversineDistanceKm(p[0], p[1], p[0], p[1]); d != 0 {
			t.Errorf("expected zero distance for identical point %v, got %v", p, d)
		}
	}
}

func TestHaversineKnownDistances(t *testing.T) {
	// Delhi to Mumbai, great-circle.
	d := HaversineDistanceKm(28.6139, 77.2090, 19.0760, 72.8777)
	if math.Abs(d-1148) > 20 {
		t.Errorf("Delhi-Mumbai distance = %v km, expected ~1148 km", d)
	}

	// Two points ~50m apart along a meridian.
	d = HaversineDistanceKm(12.9716, 77.5946, 12.9716+0.00045, 77.5946)
	if d < 0.045 || d > 0.055 {
		t.Errorf("50m pair distance = %v km, expected ~0.050 km", d)
	}
}

func TestRegionZoom(t *testing.T) {
	cases := []struct {
		lonDelta float64
		want     int
	}{
		{360, 0},
		{180, 1},
		{0.087890625, 12}, // 360 / 2^12
		{0.6, 9},
		{0, MaxZoom},
		{-1, MaxZoom},
		{0.0000001, MaxZoom},
		{100000, MinZoom},
	}
	for _, c := range cases {
		r := Region{CenterLat: 12.97, CenterLon: 77.59, LatDelta: c.lonDelta, LonDelta: c.lonDelta}
		if got := r.Zoom(); got != c.want {
			t.Errorf("Zoom(lonDelta=%v) = %d, want %d", c.lonDelta, got, c.want)
		}
	}
}

func TestRegionBBox(t *testing.T) {
	r := Region{CenterLat: 13, CenterLon: 77.6, LatDelta: 0.2, LonDelta: 0.4}
	b := r.BBox()
	if b.West != 77.4 || b.East != 77.8 {
		t.Errorf("unexpected lon extent: [%v, %v]", b.West, b.East)
	}
	if math.Abs(b.South-12.9) > 1e-12 || math.Abs(b.North-13.1) > 1e-12 {
		t.Errorf("unexpected lat extent: [%v, %v]", b.South, b.North)
	}

	// Degenerate region: a point box that still contains its center.
	p := Region{CenterLat: 13, CenterLon: 77.6}
	pb := p.BBox()
	if pb.Empty() {
		t.Error("point box should not be empty")
	}
	if !pb.Contains(13, 77.6) {
		t.Error("point box should contain its center")
	}
}

func TestBBoxContains(t *testing.T) {
	b := BBox{West: 77, South: 12, East: 78, North: 13}
	cases := []struct {
		lat, lon float64
		want     bool
	}{
		{12.5, 77.5, true},
		{12, 77, true}, // inclusive edges
		{13, 78, true},
		{11.99, 77.5, false},
		{12.5, 78.01, false},
	}
	for _, c := range cases {
		if got := b.Contains(c.lat, c.lon); got != c.want {
			t.Errorf("Contains(%v, %v) = %v, want %v", c.lat, c.lon, got, c.want)
		}
	}
}

func TestBBoxEmpty(t *testing.T) {
	if (BBox{West: 77, South: 12, East: 78, North: 13}).Empty() {
		t.Error("normal box reported empty")
	}
	if !(BBox{West: 78, South: 12, East: 77, North: 13}).Empty() {
		t.Error("inverted box not reported empty")
	}
	if (BBox{West: 77, South: 12, East: 77, North: 12}).Empty() {
		t.Error("zero-area box should not be empty")
	}
}

func TestProjectionRoundTrip(t *testing.T) {
	points := [][2]float64{
		{0, 0},
		{12.9716, 77.5946},
		{28.6139, 77.2090},
		{-33.8688, 151.2093},
		{60.1699, 24.9384},
		{-54.8019, -68.3030},
	}
	for _, p := range points {
		x, y := Project(p[0], p[1])
		lat, lon := Unproject(x, y)
		if math.Abs(lat-p[0]) > 1e-9 || math.Abs(lon-p[1]) > 1e-9 {
			t.Errorf("round trip (%v, %v) -> (%v, %v)", p[0], p[1], lat, lon)
		}
	}
}

func TestProjectClampsPoles(t *testing.T) {
	_, y := Project(90, 0)
	if y != 0 {
		t.Errorf("north pole projected to y=%v, want 0", y)
	}
	_, y = Project(-90, 0)
	if y != TileSize {
		t.Errorf("south pole projected to y=%v, want %v", y, TileSize)
	}
}

func TestProjectScalesWithZoom(t *testing.T) {
	// One degree of longitude at the equator spans TileSize/360 zoom-0
	// pixels; at zoom z the on-screen span doubles per level.
	x1, _ := Project(0, 77)
	x2, _ := Project(0, 78)
	z0 := x2 - x1
	if math.Abs(z0-TileSize/360) > 1e-9 {
		t.Errorf("zoom-0 degree span = %v px, want %v", z0, TileSize/360)
	}
	atZoom10 := z0 * math.Exp2(10)
	if math.Abs(atZoom10-728.1777777) > 0.001 {
		t.Errorf("zoom-10 degree span = %v px", atZoom10)
	}
}
