// Package engine ties the session together: the hotspot store, the
// active filter, the spatial index, and the event feed the UI tails.
// Every recomputation has an explicit trigger (filter change, viewport
// settle, push event, snapshot arrival); nothing recomputes behind the
// caller's back, and no failure on a network path is fatal.
package engine

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/SIH-Epic-Electrons/AEGIS--sub000/cluster"
	"github.com/SIH-Epic-Electrons/AEGIS--sub000/feed"
	"github.com/SIH-Epic-Electrons/AEGIS--sub000/geo"
	"github.com/SIH-Epic-Electrons/AEGIS--sub000/hotspot"
	"github.com/SIH-Epic-Electrons/AEGIS--sub000/stream"
	"github.com/SIH-Epic-Electrons/AEGIS--sub000/timeutil"
)

// ErrNotFound reports an operation against a hotspot id the store has
// never seen.
var ErrNotFound = errors.New("engine: unknown hotspot id")

// EventKind labels the entries on the engine's event feed.
type EventKind string

const (
	// EventData: the store changed (snapshot, push, sample seed, cordon).
	EventData EventKind = "data"
	// EventFilter: the active filter state was replaced.
	EventFilter EventKind = "filter"
	// EventClusters: a settled viewport was reclustered.
	EventClusters EventKind = "clusters"
	// EventNotice: informational degradation report, never fatal.
	EventNotice EventKind = "notice"
)

// Event is one entry on the feed, timestamped by the engine clock.
type Event struct {
	Kind EventKind `json:"kind"`
	At   time.Time `json:"at"`
	Data any       `json:"data,omitempty"`
}

// Store-change sources carried in DataUpdate.
const (
	SourceSample   = "sample"
	SourceSnapshot = "snapshot"
	SourcePush     = "push"
	SourceCordon   = "cordon"
)

// DataUpdate describes one store mutation.
type DataUpdate struct {
	Source   string `json:"source"`
	Added    int    `json:"added"`
	Rejected int    `json:"rejected"`
	Dropped  int    `json:"dropped,omitempty"`
	Total    int    `json:"total"`
}

// ClusterUpdate carries a freshly reclustered viewport.
type ClusterUpdate struct {
	Region  geo.Region          `json:"region"`
	Zoom    int                 `json:"zoom"`
	Entries []cluster.Entry     `json:"entries"`
	Summary cluster.RiskSummary `json:"summary"`
}

// Notice is an informational message for the operator.
type Notice struct {
	Message string `json:"message"`
}

// Summary extends the viewport risk aggregates with store-wide counts
// the sidebar shows.
type Summary struct {
	cluster.RiskSummary
	ScamTypes map[string]int `json:"scamTypes"`
	Cordons   int            `json:"cordons"`
}

// Config carries the engine's collaborators. Zero values get sensible
// defaults; a nil Feed leaves the engine fully offline.
type Config struct {
	Feed    *feed.Client
	Clock   timeutil.Clock
	Cluster cluster.Options
	Log     bool
}

// Engine owns the mutable session state. All methods are safe for
// concurrent use; in-memory operations are synchronous and run to
// completion, network calls take a context.
type Engine struct {
	feed  *feed.Client
	clock timeutil.Clock
	logOn bool

	store  *hotspot.Store
	index  *cluster.Index
	events *stream.Mux[Event]

	mu       sync.Mutex
	filter   hotspot.FilterState
	pushSeen bool
}

func New(cfg Config) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = timeutil.NewRealClock()
	}
	e := &Engine{
		feed:   cfg.Feed,
		clock:  cfg.Clock,
		logOn:  cfg.Log,
		store:  hotspot.NewStore(),
		events: stream.NewMux[Event](),
		filter: hotspot.DefaultFilter(),
	}
	e.index = cluster.NewIndex(e.visiblePoints, cfg.Cluster)
	return e
}

// Close shuts the event feed down. Pending subscribers see their
// channels close.
func (e *Engine) Close() {
	e.events.Close()
}

// Subscribe attaches a listener to the event feed.
func (e *Engine) Subscribe() (string, <-chan Event) {
	return e.events.Subscribe()
}

func (e *Engine) Unsubscribe(id string) {
	e.events.Unsubscribe(id)
}

// visiblePoints is the index's rebuild source: the filtered store,
// flattened to projectable points. Called with the index lock held, so
// it must never invalidate the index.
func (e *Engine) visiblePoints() []cluster.Point {
	visible := hotspot.Apply(e.store.All(), e.Filter(), e.clock.Now())
	pts := make([]cluster.Point, len(visible))
	for i, h := range visible {
		pts[i] = cluster.Point{ID: h.ID, Lat: h.Lat, Lon: h.Lon, Risk: h.RiskScore}
	}
	return pts
}

// Filter returns the active filter state.
func (e *Engine) Filter() hotspot.FilterState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filter
}

// SetFilter installs a new filter state and marks the index stale.
// Scam types are folded onto the catalog and de-duplicated; any
// positive window width is accepted as meaningful.
func (e *Engine) SetFilter(fs hotspot.FilterState) {
	if len(fs.ScamTypes) > 0 {
		seen := make(map[string]bool, len(fs.ScamTypes))
		normalized := make([]string, 0, len(fs.ScamTypes))
		for _, t := range fs.ScamTypes {
			nt := hotspot.NormalizeScamType(t)
			if !seen[nt] {
				seen[nt] = true
				normalized = append(normalized, nt)
			}
		}
		fs.ScamTypes = normalized
	}

	e.mu.Lock()
	e.filter = fs
	e.mu.Unlock()

	e.index.Invalidate()
	e.publish(EventFilter, fs)
}

// SeedSamples fills the store with deterministic placeholder data so
// the map is not empty before anything real arrives. The first real
// snapshot replaces it wholesale.
func (e *Engine) SeedSamples(n int, bbox geo.BBox, seed int64) int {
	records := feed.SampleHotspots(n, bbox, seed, e.clock.Now())

	e.mu.Lock()
	kept, rejected := e.store.ReplaceAll(records)
	e.mu.Unlock()

	e.index.Invalidate()
	e.logf("[engine] seeded %d sample hotspots", kept)
	e.publish(EventData, DataUpdate{Source: SourceSample, Added: kept, Rejected: rejected, Total: e.store.Len()})
	return kept
}

// ApplySnapshot lands a REST snapshot. Until the first push event
// arrives a snapshot is authoritative and replaces everything,
// placeholder data included; once live events are flowing it merges,
// so late bulk data can never erase an already-displayed case.
func (e *Engine) ApplySnapshot(records []hotspot.Hotspot, dropped int) (added, rejected int) {
	e.mu.Lock()
	if e.pushSeen {
		added, rejected = e.store.MergeIncremental(records)
	} else {
		added, rejected = e.store.ReplaceAll(records)
	}
	e.mu.Unlock()

	e.index.Invalidate()
	e.logf("[engine] snapshot applied: %d kept, %d rejected, %d dropped upstream", added, rejected, dropped)
	e.publish(EventData, DataUpdate{Source: SourceSnapshot, Added: added, Rejected: rejected, Dropped: dropped, Total: e.store.Len()})
	return added, rejected
}

// Merge implements the push-channel sink: events apply in arrival
// order and de-duplicate by id.
func (e *Engine) Merge(records []hotspot.Hotspot) (added, rejected int) {
	e.mu.Lock()
	e.pushSeen = true
	added, rejected = e.store.MergeIncremental(records)
	e.mu.Unlock()

	if added > 0 {
		e.index.Invalidate()
	}
	e.publish(EventData, DataUpdate{Source: SourcePush, Added: added, Rejected: rejected, Total: e.store.Len()})
	return added, rejected
}

// RefreshSnapshot fetches the prediction snapshot and applies it. A
// fetch superseded by a newer one returns context.Canceled without a
// notice; real failures degrade to the data already on screen.
func (e *Engine) RefreshSnapshot(ctx context.Context) error {
	if e.feed == nil {
		return feed.ErrNoUpstream
	}
	records, dropped, err := e.feed.FetchPredictions(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, feed.ErrNoUpstream) {
			return err
		}
		e.logf("[engine] snapshot fetch failed: %v", err)
		e.Notify("prediction refresh failed; showing last known data")
		return err
	}
	e.ApplySnapshot(records, dropped)
	return nil
}

// ActivateCordon fires the digital-cordon action for one hotspot and
// sets the local flag no matter how the call went: the officer sees
// the corridor as frozen immediately, and a failed call surfaces as a
// notice instead of a rollback. Deliberate policy.
func (e *Engine) ActivateCordon(ctx context.Context, id string) (feed.CordonResult, error) {
	rec, ok := e.store.Get(id)
	if !ok {
		return feed.CordonResult{}, ErrNotFound
	}

	var (
		res feed.CordonResult
		err error
	)
	if e.feed == nil {
		err = feed.ErrNoUpstream
	} else {
		res, err = e.feed.ActivateCordon(ctx, rec.ComplaintID, id)
	}

	// Geometry is unchanged, so the index stays valid.
	e.store.SetCordon(id)
	e.publish(EventData, DataUpdate{Source: SourceCordon, Total: e.store.Len()})

	switch {
	case err != nil:
		e.logf("[engine] cordon call for %s failed: %v", id, err)
		e.Notify("cordon request did not reach the backend; corridor marked locally")
	case !res.Success:
		e.logf("[engine] cordon refused for %s: %s", id, res.Error)
		e.Notify("backend refused the cordon; corridor marked locally")
	default:
		e.logf("[engine] cordon active for %s", id)
	}
	return res, err
}

// Query clusters the visible set for one viewport. It never touches
// the network; a stale index rebuilds synchronously first.
func (e *Engine) Query(bbox geo.BBox, zoom int) []cluster.Entry {
	return e.index.Clusters(bbox, zoom)
}

// Summarize aggregates one viewport's entries plus visible-set counts.
func (e *Engine) Summarize(bbox geo.BBox, zoom int) Summary {
	s := Summary{
		RiskSummary: cluster.Summarize(e.index.Clusters(bbox, zoom)),
		ScamTypes:   make(map[string]int),
	}
	for _, h := range e.VisibleHotspots() {
		s.ScamTypes[h.ScamType]++
		if h.DigitalCordon {
			s.Cordons++
		}
	}
	return s
}

// ExpandCluster resolves the zoom at which a cluster's members come
// apart. Unknown members or a degenerate cluster fall back to a fixed
// jump past the city zooms.
func (e *Engine) ExpandCluster(members []string, zoom int) int {
	if z, ok := e.index.ExpansionZoom(members, zoom); ok {
		return z
	}
	return cluster.FallbackExpandZoom(zoom)
}

// PublishClusters is the viewport controller's publish hook: it pushes
// a settled viewport's entries onto the event feed.
func (e *Engine) PublishClusters(region geo.Region, zoom int, entries []cluster.Entry) {
	e.publish(EventClusters, ClusterUpdate{
		Region:  region,
		Zoom:    zoom,
		Entries: entries,
		Summary: cluster.Summarize(entries),
	})
}

// VisibleHotspots returns the filtered set, newest first.
func (e *Engine) VisibleHotspots() []hotspot.Hotspot {
	return hotspot.Apply(e.store.All(), e.Filter(), e.clock.Now())
}

// Notify publishes an informational notice. The push client's
// degradation reports route through here.
func (e *Engine) Notify(msg string) {
	e.logf("[engine] %s", msg)
	e.publish(EventNotice, Notice{Message: msg})
}

// Get looks a single record up by id.
func (e *Engine) Get(id string) (hotspot.Hotspot, bool) {
	return e.store.Get(id)
}

// Len reports the stored record count, filtered or not.
func (e *Engine) Len() int {
	return e.store.Len()
}

// Rejected reports how many records ingestion has dropped so far.
func (e *Engine) Rejected() uint64 {
	return e.store.Rejected()
}

// Quarantined returns the audit copies of rejected records.
func (e *Engine) Quarantined() []hotspot.Hotspot {
	return e.store.Quarantined()
}

// IndexState exposes the index lifecycle state for health reporting.
func (e *Engine) IndexState() cluster.State {
	return e.index.State()
}

// Builds reports how many times the index has been rebuilt.
func (e *Engine) Builds() uint64 {
	return e.index.Builds()
}

func (e *Engine) publish(kind EventKind, data any) {
	e.events.Publish(Event{Kind: kind, At: e.clock.Now().UTC(), Data: data})
}

func (e *Engine) logf(format string, args ...any) {
	if e.logOn {
		log.Printf(format, args...)
	}
}
