// Package viewport turns raw map-view changes into settled cluster
// queries. Pan and zoom gestures arrive as a burst of region updates;
// the controller debounces them with a trailing timer and runs a single
// query once the view holds still.
package viewport

import (
	"sync"
	"time"

	"github.com/SIH-Epic-Electrons/AEGIS--sub000/cluster"
	"github.com/SIH-Epic-Electrons/AEGIS--sub000/geo"
	"github.com/SIH-Epic-Electrons/AEGIS--sub000/timeutil"
)

// DefaultDebounce is one frame at 60fps: long enough to coalesce a
// gesture's updates, short enough that the settled redraw feels
// immediate.
const DefaultDebounce = 16 * time.Millisecond

// QueryFunc answers one settled viewport: the entries for the bbox at
// the derived zoom.
type QueryFunc func(bbox geo.BBox, zoom int) []cluster.Entry

// PublishFunc receives the result of a settled query.
type PublishFunc func(region geo.Region, zoom int, entries []cluster.Entry)

// Options configure a Controller.
type Options struct {
	Debounce time.Duration  // trailing settle delay; DefaultDebounce when zero
	Clock    timeutil.Clock // real clock when nil
}

// Controller tracks the live map region and owns the debounce timer.
// SetRegion may be called from any goroutine; the query and publish
// callbacks run on the controller's own goroutine after the burst
// settles.
type Controller struct {
	query   QueryFunc
	publish PublishFunc
	clock   timeutil.Clock
	delay   time.Duration

	mu        sync.Mutex
	region    geo.Region
	hasRegion bool
	timer     timeutil.Timer
	closed    bool
	quit      chan struct{}
	wg        sync.WaitGroup
}

// NewController wires a controller to its query and publish callbacks.
func NewController(query QueryFunc, publish PublishFunc, opts Options) *Controller {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.NewRealClock()
	}
	return &Controller{
		query:   query,
		publish: publish,
		clock:   opts.Clock,
		delay:   opts.Debounce,
		quit:    make(chan struct{}),
	}
}

// SetRegion records the latest view and (re)arms the settle timer.
// Rapid calls coalesce: only the final region of a burst is queried.
func (c *Controller) SetRegion(r geo.Region) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.region = r
	c.hasRegion = true
	if c.timer != nil {
		c.timer.Reset(c.delay)
		return
	}
	c.timer = c.clock.NewTimer(c.delay)
	c.wg.Add(1)
	go c.await(c.timer)
}

// await blocks until the burst settles, then runs the query against the
// newest recorded region.
func (c *Controller) await(t timeutil.Timer) {
	defer c.wg.Done()
	select {
	case <-t.C():
	case <-c.quit:
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	region := c.region
	c.mu.Unlock()

	c.run(region)
}

// Refresh re-queries the current region immediately, bypassing the
// debounce. Callers use it when the data set changes under a still
// viewport. No-op before the first SetRegion.
func (c *Controller) Refresh() {
	c.mu.Lock()
	if c.closed || !c.hasRegion {
		c.mu.Unlock()
		return
	}
	region := c.region
	c.mu.Unlock()

	c.run(region)
}

func (c *Controller) run(region geo.Region) {
	zoom := region.Zoom()
	entries := c.query(region.BBox(), zoom)
	c.publish(region, zoom, entries)
}

// Region returns the last region set, if any.
func (c *Controller) Region() (geo.Region, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.region, c.hasRegion
}

// Close cancels any pending settle and waits for the in-flight one to
// finish. The controller ignores SetRegion afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	close(c.quit)
	c.mu.Unlock()
	c.wg.Wait()
}
