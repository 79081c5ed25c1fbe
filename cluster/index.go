package cluster

import (
	"log"
	"sync"
	"time"

	"github.com/SIH-Epic-Electrons/AEGIS--sub000/geo"
)

// State tracks index freshness.
type State int

const (
	// Stale means the visible set changed since the last build.
	Stale State = iota
	// Building means a rebuild is in progress.
	Building
	// Ready means queries can be answered from the current projection.
	Ready
)

func (s State) String() string {
	switch s {
	case Stale:
		return "stale"
	case Building:
		return "building"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Source yields the current filtered visible set. The index calls it
// during rebuilds; the engine points it at the store plus the active
// filter pipeline.
type Source func() []Point

// Index owns the projected point set and answers viewport queries.
// Store writes and filter changes invalidate it; the next query rebuilds
// synchronously before answering, so callers never see results computed
// from a superseded visible set. Panning at a fixed data set re-queries
// the existing projection without rebuilding.
type Index struct {
	mu     sync.Mutex
	opts   Options
	source Source
	state  State
	pts    []projected
	byID   map[string]int
	builds uint64
}

// NewIndex creates a stale index over the source; the first query
// triggers the initial build.
func NewIndex(source Source, opts Options) *Index {
	return &Index{
		opts:   opts.withDefaults(),
		source: source,
		state:  Stale,
		byID:   make(map[string]int),
	}
}

// Invalidate marks the index stale. It is cheap and safe to call on
// every mutation.
func (ix *Index) Invalidate() {
	ix.mu.Lock()
	ix.state = Stale
	ix.mu.Unlock()
}

// ensureReady rebuilds the projection when anything invalidated it.
// Caller holds ix.mu.
func (ix *Index) ensureReady() {
	if ix.state == Ready {
		return
	}
	ix.state = Building
	start := time.Now()

	src := ix.source()
	pts := make([]projected, 0, len(src))
	byID := make(map[string]int, len(src))
	for _, p := range src {
		x, y := geo.Project(p.Lat, p.Lon)
		byID[p.ID] = len(pts)
		pts = append(pts, projected{Point: p, x: x, y: y})
	}

	ix.pts = pts
	ix.byID = byID
	ix.builds++
	ix.state = Ready
	if ix.opts.Log {
		log.Printf("[cluster] index rebuilt: %d points in %v", len(pts), time.Since(start))
	}
}

// Clusters answers one viewport query with the mixed cluster/single
// entries for the bbox at the given zoom. The union of cluster members
// and singles is exactly the indexed set restricted to the bbox. Empty
// or inverted boxes yield an empty result rather than an error.
func (ix *Index) Clusters(bbox geo.BBox, zoom int) []Entry {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.ensureReady()

	if bbox.Empty() || len(ix.pts) == 0 {
		return []Entry{}
	}
	if zoom < ix.opts.MinZoom {
		zoom = ix.opts.MinZoom
	}
	if zoom > ix.opts.MaxZoom {
		zoom = ix.opts.MaxZoom
	}

	visible := make([]projected, 0, len(ix.pts))
	for _, p := range ix.pts {
		if bbox.Contains(p.Lat, p.Lon) {
			visible = append(visible, p)
		}
	}
	return clusterAt(visible, zoom, ix.opts)
}

// ExpansionZoom reports the minimal zoom beyond afterZoom at which the
// given cluster members separate into two or more entries. ok is false
// when they never separate within MaxZoom (typically identical
// coordinates); callers then use FallbackExpandZoom.
func (ix *Index) ExpansionZoom(memberIDs []string, afterZoom int) (zoom int, ok bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.ensureReady()

	pts := make([]projected, 0, len(memberIDs))
	for _, id := range memberIDs {
		if i, found := ix.byID[id]; found {
			pts = append(pts, ix.pts[i])
		}
	}
	if len(pts) < 2 {
		return 0, false
	}
	for z := afterZoom + 1; z <= ix.opts.MaxZoom; z++ {
		if len(clusterAt(pts, z, ix.opts)) >= 2 {
			return z, true
		}
	}
	return 0, false
}

// FallbackExpandZoom is the zoom callers jump to when a tapped cluster
// has no computable expansion zoom: at least 15, always past the
// current zoom, never beyond the map's maximum.
func FallbackExpandZoom(current int) int {
	z := current + 1
	if z < 15 {
		z = 15
	}
	if z > geo.MaxZoom {
		z = geo.MaxZoom
	}
	return z
}

// State returns the current freshness state.
func (ix *Index) State() State {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.state
}

// Builds returns how many rebuilds have run, for observability.
func (ix *Index) Builds() uint64 {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.builds
}

// Len returns the number of indexed points as of the last build.
func (ix *Index) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.pts)
}
