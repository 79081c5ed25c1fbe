package stream

import (
	"context"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 60 * time.Second
)

// Config configures the push-channel consumer.
type Config struct {
	URL       string
	Subscribe string       // optional frame sent after each connect
	Capture   *Capture     // optional raw-frame spool
	OnNotice  func(string) // optional degradation callback
}

// Client consumes the push channel over a websocket and feeds every
// frame through the merger. It reconnects forever with exponential
// backoff; a dead backend degrades the map to its last data, it never
// breaks it.
type Client struct {
	cfg     Config
	merger  *Merger
	healthy bool
}

// NewClient wires a consumer to its merger.
func NewClient(cfg Config, merger *Merger) *Client {
	return &Client{cfg: cfg, merger: merger, healthy: true}
}

// Run connects, consumes, and reconnects until the context is
// cancelled. It always returns the context's error.
func (c *Client) Run(ctx context.Context) error {
	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("[stream] connecting to %s", c.cfg.URL)
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, nil)
		if err != nil {
			c.degrade("push channel unreachable, showing last known data")
			log.Printf("[stream] dial error: %v, retrying in %v", err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = initialBackoff
		c.recover()

		c.consume(ctx, conn)
		conn.Close()

		// Brief pause before redialing a dropped session, so a backend
		// that accepts and immediately hangs up cannot spin us.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(initialBackoff):
		}
	}
}

// consume reads frames until the connection drops or the context ends.
func (c *Client) consume(ctx context.Context, conn *websocket.Conn) {
	if c.cfg.Subscribe != "" {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(c.cfg.Subscribe)); err != nil {
			log.Printf("[stream] subscribe error: %v", err)
			return
		}
	}

	// ReadMessage has no context form; closing the connection is how a
	// cancelled context unblocks it.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.degrade("push channel dropped, reconnecting")
				log.Printf("[stream] read error: %v, reconnecting", err)
			}
			return
		}
		if c.cfg.Capture != nil {
			if err := c.cfg.Capture.Write(frame); err != nil {
				log.Printf("[stream] capture error: %v", err)
			}
		}
		if err := c.merger.HandleFrame(frame); err != nil {
			log.Printf("[stream] %v", err)
		}
	}
}

// degrade raises a notice on the healthy-to-unhealthy transition only,
// so retry loops do not spam the UI.
func (c *Client) degrade(msg string) {
	if !c.healthy {
		return
	}
	c.healthy = false
	if c.cfg.OnNotice != nil {
		c.cfg.OnNotice(msg)
	}
}

func (c *Client) recover() {
	if c.healthy {
		return
	}
	c.healthy = true
	if c.cfg.OnNotice != nil {
		c.cfg.OnNotice("push channel connected")
	}
}
