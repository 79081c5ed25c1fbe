// Package cluster maintains the spatial index behind the risk map: the
// filtered hotspot set projected into Web Mercator space once per build,
// reclustered per viewport query with a fixed screen-space radius.
package cluster

import (
	"fmt"
	"math"

	"github.com/SIH-Epic-Electrons/AEGIS--sub000/geo"
)

// Options tune the clustering pass.
type Options struct {
	MinZoom   int     // lowest zoom answered
	MaxZoom   int     // highest zoom answered; nothing merges past it
	MinPoints int     // smallest member count rendered as a cluster
	Radius    float64 // merge radius in screen pixels at the query zoom
	Log       bool    // log rebuild timings
}

// DefaultOptions matches the map product defaults: 60px markers collapse
// from pair size upward across the full slippy zoom range.
func DefaultOptions() Options {
	return Options{
		MinZoom:   geo.MinZoom,
		MaxZoom:   geo.MaxZoom,
		MinPoints: 2,
		Radius:    60,
	}
}

// withDefaults fills zero values the way DefaultOptions would.
func (o Options) withDefaults() Options {
	if o.MaxZoom <= 0 {
		o.MaxZoom = geo.MaxZoom
	}
	if o.MaxZoom > geo.MaxZoom {
		o.MaxZoom = geo.MaxZoom
	}
	if o.MinZoom < 0 {
		o.MinZoom = geo.MinZoom
	}
	if o.MinZoom > o.MaxZoom {
		o.MinZoom = o.MaxZoom
	}
	if o.Radius <= 0 {
		o.Radius = 60
	}
	if o.MinPoints < 2 {
		o.MinPoints = 2
	}
	return o
}

// Point is one clusterable record: identity, position, risk weight.
type Point struct {
	ID   string
	Lat  float64
	Lon  float64
	Risk float64
}

// projected carries a point plus its zoom-0 pixel coordinates, computed
// once per index build.
type projected struct {
	Point
	x, y float64
}

// Entry is one row of a query result: a cluster of MinPoints or more
// hotspots, or a single hotspot that stayed unmerged. Members holds
// store lookup keys rather than records; the store remains the owner.
// Cluster ids are stable only within the pass that produced them.
type Entry struct {
	ID      string   `json:"id"`
	Lat     float64  `json:"lat"`
	Lon     float64  `json:"lon"`
	Count   int      `json:"count"`
	Risk    float64  `json:"risk"`
	Members []string `json:"members,omitempty"`
}

// IsCluster reports whether the entry aggregates several hotspots.
func (e Entry) IsCluster() bool { return e.Count > 1 }

// clusterAt groups points greedily at one zoom level. Each unprocessed
// point in turn absorbs the unprocessed neighbours within the pixel
// radius; the group becomes a cluster when it reaches MinPoints members,
// otherwise the seed stands alone and its neighbours stay available to
// later seeds. Every input point lands in exactly one output entry.
func clusterAt(pts []projected, zoom int, opts Options) []Entry {
	if len(pts) == 0 {
		return []Entry{}
	}

	// The merge radius at the query zoom, expressed in zoom-0 pixels.
	threshold := opts.Radius / math.Exp2(float64(zoom))

	cells := newGrid(pts, threshold)
	processed := make([]bool, len(pts))
	entries := make([]Entry, 0, len(pts))
	ordinal := 0

	for i := range pts {
		if processed[i] {
			continue
		}
		processed[i] = true

		group := []int{i}
		for _, j := range cells.neighbors(i, threshold) {
			if !processed[j] {
				group = append(group, j)
			}
		}

		if len(group) > 1 && len(group) >= opts.MinPoints {
			for _, j := range group[1:] {
				processed[j] = true
			}
			entries = append(entries, makeCluster(pts, group, zoom, ordinal))
			ordinal++
		} else {
			entries = append(entries, singleEntry(pts[i].Point))
		}
	}
	return entries
}

// makeCluster aggregates one group: the centroid is the arithmetic mean
// of the member coordinates, the risk the arithmetic mean of member
// risk scores.
func makeCluster(pts []projected, group []int, zoom, ordinal int) Entry {
	var sumLat, sumLon, sumRisk float64
	members := make([]string, 0, len(group))
	for _, j := range group {
		sumLat += pts[j].Lat
		sumLon += pts[j].Lon
		sumRisk += pts[j].Risk
		members = append(members, pts[j].ID)
	}
	n := float64(len(group))
	return Entry{
		ID:      fmt.Sprintf("z%d-c%d", zoom, ordinal),
		Lat:     sumLat / n,
		Lon:     sumLon / n,
		Count:   len(group),
		Risk:    sumRisk / n,
		Members: members,
	}
}

func singleEntry(p Point) Entry {
	return Entry{ID: p.ID, Lat: p.Lat, Lon: p.Lon, Count: 1, Risk: p.Risk}
}

// grid buckets projected points into cells one threshold wide, so a
// neighbour scan only touches the 3x3 block around the seed's cell.
type grid struct {
	cell  float64
	cells map[[2]int][]int
	pts   []projected
}

func newGrid(pts []projected, cell float64) *grid {
	if cell <= 0 || math.IsNaN(cell) {
		cell = math.SmallestNonzeroFloat64
	}
	g := &grid{cell: cell, cells: make(map[[2]int][]int), pts: pts}
	for i, p := range pts {
		k := g.key(p.x, p.y)
		g.cells[k] = append(g.cells[k], i)
	}
	return g
}

func (g *grid) key(x, y float64) [2]int {
	return [2]int{int(math.Floor(x / g.cell)), int(math.Floor(y / g.cell))}
}

// neighbors returns the indices within radius of pts[i], excluding i.
// The scan order is fixed (cell block row-major, insertion order within
// a cell), so identical inputs always produce identical groupings.
func (g *grid) neighbors(i int, radius float64) []int {
	p := g.pts[i]
	center := g.key(p.x, p.y)
	r2 := radius * radius

	var out []int
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for _, j := range g.cells[[2]int{center[0] + dx, center[1] + dy}] {
				if j == i {
					continue
				}
				ddx := g.pts[j].x - p.x
				ddy := g.pts[j].y - p.y
				if ddx*ddx+ddy*ddy <= r2 {
					out = append(out, j)
				}
			}
		}
	}
	return out
}
