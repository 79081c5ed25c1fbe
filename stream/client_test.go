package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SIH-Epic-Electrons/AEGIS--sub000/hotspot"
	"github.com/SIH-Epic-Electrons/AEGIS--sub000/timeutil"
)

type chanSink struct {
	records chan hotspot.Hotspot
}

func (s *chanSink) Merge(records []hotspot.Hotspot) (int, int) {
	for _, r := range records {
		s.records <- r
	}
	return len(records), 0
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func awaitRecord(t *testing.T, ch chan hotspot.Hotspot) hotspot.Hotspot {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a merged record")
		return hotspot.Hotspot{}
	}
}

func TestClientSubscribesAndDeliversFrames(t *testing.T) {
	upgrader := websocket.Upgrader{}
	subscribes := make(chan string, 4)
	frame := []byte(`{"type":"new_case","data":{"id":"live-1","lat":12.9716,"lon":77.5946,"riskScore":0.7}}`)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if _, msg, err := conn.ReadMessage(); err == nil {
			subscribes <- string(msg)
		}
		conn.WriteMessage(websocket.TextMessage, frame)
		// Hold the connection open until the client goes away.
		conn.ReadMessage()
	}))
	defer srv.Close()

	sink := &chanSink{records: make(chan hotspot.Hotspot, 8)}
	merger := NewMerger(sink, timeutil.NewRealClock())
	client := NewClient(Config{
		URL:       wsURL(srv),
		Subscribe: `{"type":"subscribe","topics":["prediction_update","new_case"]}`,
	}, merger)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- client.Run(ctx) }()

	select {
	case sub := <-subscribes:
		assert.Contains(t, sub, "new_case")
	case <-time.After(5 * time.Second):
		t.Fatal("server never received the subscribe frame")
	}

	got := awaitRecord(t, sink.records)
	assert.Equal(t, "live-1", got.ID)
	assert.Equal(t, 0.7, got.RiskScore)

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("client did not stop on cancellation")
	}
}

func TestClientReconnectsAfterDrop(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var sessions atomic.Int32
	frames := []string{
		`{"type":"new_case","data":{"id":"before-drop","lat":12.97,"lon":77.59}}`,
		`{"type":"new_case","data":{"id":"after-drop","lat":12.93,"lon":77.62}}`,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		n := int(sessions.Add(1))
		if n > len(frames) {
			conn.ReadMessage()
			conn.Close()
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte(frames[n-1]))
		if n == 1 {
			// Hang up to force a reconnect.
			conn.Close()
			return
		}
		conn.ReadMessage()
		conn.Close()
	}))
	defer srv.Close()

	notices := make(chan string, 8)
	sink := &chanSink{records: make(chan hotspot.Hotspot, 8)}
	merger := NewMerger(sink, timeutil.NewRealClock())
	client := NewClient(Config{
		URL:      wsURL(srv),
		OnNotice: func(msg string) { notices <- msg },
	}, merger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	first := awaitRecord(t, sink.records)
	assert.Equal(t, "before-drop", first.ID)

	second := awaitRecord(t, sink.records)
	assert.Equal(t, "after-drop", second.ID)
	require.True(t, sessions.Load() >= 2, "expected a second websocket session")

	// The drop and the recovery both surfaced as notices.
	var seen []string
	for len(seen) < 2 {
		select {
		case msg := <-notices:
			seen = append(seen, msg)
		case <-time.After(5 * time.Second):
			t.Fatalf("expected two notices, saw %v", seen)
		}
	}
	assert.Contains(t, seen[0], "dropped")
	assert.Contains(t, seen[1], "connected")
}
