// Package feed talks to the prediction backend over REST: snapshot
// fetches of the current hotspot set and the digital-cordon action.
// Live updates arrive separately over the push channel in package
// stream; both paths produce the same canonical records.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/SIH-Epic-Electrons/AEGIS--sub000/hotspot"
	"github.com/SIH-Epic-Electrons/AEGIS--sub000/stream"
)

// ErrNoUpstream reports that the client was built without a base URL,
// so there is no backend to talk to. Callers fall back to sample data.
var ErrNoUpstream = errors.New("feed: no upstream configured")

// Client fetches prediction snapshots from the backend. Snapshot
// fetches share a single slot: claiming it cancels whichever fetch
// currently holds it, so only the newest request's result ever lands.
type Client struct {
	base string
	http *http.Client

	mu     sync.Mutex
	cancel context.CancelFunc
	gen    uint64
}

// NewClient builds a client for the given base URL. The transport
// advertises gzip and zstd and decompresses responses transparently;
// an empty base yields a client whose calls fail with ErrNoUpstream.
func NewClient(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: gzhttp.Transport(http.DefaultTransport, gzhttp.TransportEnableZstd(true)),
		},
	}
}

// claimSlot derives a cancellable context for a snapshot fetch and
// cancels the fetch currently holding the slot, if any. The returned
// release must be called when the fetch finishes; it only clears the
// slot if no newer fetch has claimed it since.
func (c *Client) claimSlot(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	release := func() {
		c.mu.Lock()
		if c.gen == gen {
			c.cancel = nil
		}
		c.mu.Unlock()
		cancel()
	}
	return ctx, release
}

// FetchPredictions retrieves the current prediction set and flattens it
// into canonical records, one per located sub-point. Sub-points without
// a usable location are dropped and counted. A fetch superseded by a
// newer one returns context.Canceled.
func (c *Client) FetchPredictions(ctx context.Context) (records []hotspot.Hotspot, dropped int, err error) {
	if c.base == "" {
		return nil, 0, ErrNoUpstream
	}
	ctx, release := c.claimSlot(ctx)
	defer release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/predictions", nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build prediction request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch predictions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("prediction feed returned status: %d", resp.StatusCode)
	}

	var preds []stream.PredictionUpdate
	if err := json.NewDecoder(resp.Body).Decode(&preds); err != nil {
		return nil, 0, fmt.Errorf("failed to decode prediction response: %w", err)
	}

	records = make([]hotspot.Hotspot, 0, len(preds))
	for _, ev := range preds {
		recs, d := ev.Records()
		records = append(records, recs...)
		dropped += d
	}
	return records, dropped, nil
}
