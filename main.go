package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"

	"github.com/SIH-Epic-Electrons/AEGIS--sub000/cluster"
	"github.com/SIH-Epic-Electrons/AEGIS--sub000/engine"
	"github.com/SIH-Epic-Electrons/AEGIS--sub000/feed"
	"github.com/SIH-Epic-Electrons/AEGIS--sub000/geo"
	"github.com/SIH-Epic-Electrons/AEGIS--sub000/hotspot"
	"github.com/SIH-Epic-Electrons/AEGIS--sub000/stream"
	"github.com/SIH-Epic-Electrons/AEGIS--sub000/timeutil"
	"github.com/SIH-Epic-Electrons/AEGIS--sub000/viewport"
)

var (
	listenAddr   = flag.String("listen", envOr("RISKMAP_LISTEN", ":8000"), "address to serve the API on")
	upstreamURL  = flag.String("upstream", envOr("RISKMAP_UPSTREAM", ""), "prediction backend base URL (empty: offline with sample data)")
	pushURL      = flag.String("push", envOr("RISKMAP_PUSH", ""), "push channel websocket URL (empty: no live updates)")
	samplePoints = flag.Int("sample-points", 250, "sample hotspots to seed when the backend is unreachable")
	capturePath  = flag.String("capture", envOr("RISKMAP_CAPTURE", ""), "spool raw push frames to this file (.zst compresses)")
	refreshEvery = flag.Duration("refresh", 0, "snapshot refresh interval (0: refresh only on demand)")
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type mapServer struct {
	engine   *engine.Engine
	viewport *viewport.Controller
}

func getBoundsFromQuery(c *gin.Context) (geo.BBox, error) {
	west, err := strconv.ParseFloat(c.Query("west"), 64)
	if err != nil {
		return geo.BBox{}, fmt.Errorf("invalid west parameter")
	}

	south, err := strconv.ParseFloat(c.Query("south"), 64)
	if err != nil {
		return geo.BBox{}, fmt.Errorf("invalid south parameter")
	}

	east, err := strconv.ParseFloat(c.Query("east"), 64)
	if err != nil {
		return geo.BBox{}, fmt.Errorf("invalid east parameter")
	}

	north, err := strconv.ParseFloat(c.Query("north"), 64)
	if err != nil {
		return geo.BBox{}, fmt.Errorf("invalid north parameter")
	}

	return geo.BBox{West: west, South: south, East: east, North: north}, nil
}

// entriesToGeoJSON converts mixed cluster/single entries into the
// FeatureCollection the map layer renders directly.
func entriesToGeoJSON(entries []cluster.Entry) map[string]interface{} {
	features := make([]map[string]interface{}, len(entries))
	for i, e := range entries {
		properties := map[string]interface{}{
			"id":          e.ID,
			"cluster":     e.IsCluster(),
			"point_count": e.Count,
			"risk":        e.Risk,
		}
		if e.IsCluster() {
			properties["members"] = e.Members
		}
		features[i] = map[string]interface{}{
			"type": "Feature",
			"geometry": map[string]interface{}{
				"type":        "Point",
				"coordinates": []float64{e.Lon, e.Lat},
			},
			"properties": properties,
		}
	}
	return map[string]interface{}{
		"type":     "FeatureCollection",
		"features": features,
	}
}

func main() {
	flag.Parse()

	feedClient := feed.NewClient(*upstreamURL)
	eng := engine.New(engine.Config{
		Feed:    feedClient,
		Clock:   timeutil.NewRealClock(),
		Cluster: cluster.DefaultOptions(),
		Log:     true,
	})
	vp := viewport.NewController(eng.Query, eng.PublishClusters, viewport.Options{})
	server := &mapServer{engine: eng, viewport: vp}

	rootCtx, cancelRoot := context.WithCancel(context.Background())

	// Prime the store: a real snapshot when an upstream is configured,
	// sample data otherwise or when the first fetch fails.
	if *upstreamURL != "" {
		ctx, cancel := context.WithTimeout(rootCtx, 15*time.Second)
		if err := eng.RefreshSnapshot(ctx); err != nil {
			log.Printf("[main] initial snapshot failed: %v", err)
			if *samplePoints > 0 {
				eng.SeedSamples(*samplePoints, feed.DefaultSampleBounds, 42)
			}
		}
		cancel()
	} else if *samplePoints > 0 {
		log.Printf("[main] no upstream configured, seeding %d sample hotspots", *samplePoints)
		eng.SeedSamples(*samplePoints, feed.DefaultSampleBounds, 42)
	}

	if *refreshEvery > 0 && *upstreamURL != "" {
		go func() {
			ticker := time.NewTicker(*refreshEvery)
			defer ticker.Stop()
			for {
				select {
				case <-rootCtx.Done():
					return
				case <-ticker.C:
					ctx, cancel := context.WithTimeout(rootCtx, 15*time.Second)
					if err := eng.RefreshSnapshot(ctx); err != nil && !errors.Is(err, context.Canceled) {
						log.Printf("[main] scheduled refresh failed: %v", err)
					}
					cancel()
				}
			}
		}()
	}

	if *pushURL != "" {
		var capture *stream.Capture
		if *capturePath != "" {
			var err error
			capture, err = stream.NewCapture(*capturePath)
			if err != nil {
				log.Printf("[main] capture disabled: %v", err)
			} else {
				defer capture.Close()
			}
		}
		subscribe, _ := json.Marshal(map[string]interface{}{
			"action": "subscribe",
			"topics": []string{stream.TopicPredictionUpdate, stream.TopicNewCase},
		})
		pushClient := stream.NewClient(stream.Config{
			URL:       *pushURL,
			Subscribe: string(subscribe),
			Capture:   capture,
			OnNotice:  eng.Notify,
		}, stream.NewMerger(eng, timeutil.NewRealClock()))
		go func() {
			if err := pushClient.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[main] push client stopped: %v", err)
			}
		}()
	}

	r := gin.Default()

	// Enable CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"hotspots": server.engine.Len(),
			"rejected": server.engine.Rejected(),
			"builds":   server.engine.Builds(),
			"index":    server.engine.IndexState().String(),
		})
	})

	// Filtered visible set, newest first.
	r.GET("/api/hotspots", func(c *gin.Context) {
		c.JSON(http.StatusOK, server.engine.VisibleHotspots())
	})

	// Mixed cluster/single entries for the current view.
	r.GET("/api/hotspots/clusters", func(c *gin.Context) {
		zoom, err := strconv.Atoi(c.Query("zoom"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid zoom parameter"})
			return
		}
		bounds, err := getBoundsFromQuery(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		entries := server.engine.Query(bounds, zoom)
		c.JSON(http.StatusOK, entriesToGeoJSON(entries))
	})

	r.GET("/api/hotspots/clusters/summary", func(c *gin.Context) {
		zoom, err := strconv.Atoi(c.Query("zoom"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid zoom parameter"})
			return
		}
		bounds, err := getBoundsFromQuery(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, server.engine.Summarize(bounds, zoom))
	})

	// Zoom to jump to when a cluster marker is tapped.
	r.GET("/api/hotspots/clusters/expand", func(c *gin.Context) {
		zoom, err := strconv.Atoi(c.Query("zoom"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid zoom parameter"})
			return
		}
		var members []string
		if raw := c.Query("members"); raw != "" {
			members = strings.Split(raw, ",")
		}

		c.JSON(http.StatusOK, gin.H{
			"id":   c.Query("id"),
			"zoom": server.engine.ExpandCluster(members, zoom),
		})
	})

	r.GET("/api/filters", func(c *gin.Context) {
		c.JSON(http.StatusOK, server.engine.Filter())
	})

	r.POST("/api/filters", func(c *gin.Context) {
		var fs hotspot.FilterState
		if err := c.BindJSON(&fs); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter payload"})
			return
		}
		server.engine.SetFilter(fs)
		server.viewport.Refresh()
		c.JSON(http.StatusOK, server.engine.Filter())
	})

	// Map moved: debounce, then recluster and publish on the event feed.
	r.POST("/api/viewport", func(c *gin.Context) {
		var region geo.Region
		if err := c.BindJSON(&region); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid viewport payload"})
			return
		}
		server.viewport.SetRegion(region)
		c.JSON(http.StatusOK, gin.H{"status": "settling", "zoom": region.Zoom()})
	})

	r.POST("/api/hotspots/:id/cordon", func(c *gin.Context) {
		id := c.Param("id")
		res, err := server.engine.ActivateCordon(c.Request.Context(), id)
		if errors.Is(err, engine.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown hotspot id"})
			return
		}
		if err != nil {
			// The local flag is already set; report the degraded call.
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "localCordon": true})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": res.Success, "error": res.Error, "localCordon": true})
	})

	r.POST("/api/refresh", func(c *gin.Context) {
		err := server.engine.RefreshSnapshot(c.Request.Context())
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"status": "refreshed", "hotspots": server.engine.Len()})
		case errors.Is(err, feed.ErrNoUpstream):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no upstream configured"})
		case errors.Is(err, context.Canceled):
			c.JSON(http.StatusConflict, gin.H{"status": "superseded"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
	})

	// Live tail of engine events (data changes, reclustered viewports,
	// degradation notices) as server-sent events.
	r.GET("/api/events", func(c *gin.Context) {
		id, events := server.engine.Subscribe()
		defer server.engine.Unsubscribe(id)

		h := c.Writer.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		c.Writer.WriteHeader(http.StatusOK)

		fmt.Fprint(c.Writer, ": ping\n\n")
		c.Writer.Flush()

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				payload, err := json.Marshal(ev)
				if err != nil {
					log.Printf("[api] dropping unencodable event: %v", err)
					continue
				}
				fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
				c.Writer.Flush()
			case <-c.Request.Context().Done():
				return
			}
		}
	})

	srv := &http.Server{
		Addr:    *listenAddr,
		Handler: gzhttp.GzipHandler(r),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("[main] serving risk map API on %s", *listenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[main] server error: %v", err)
		}
	}()

	<-quit
	log.Println("[main] shutting down...")
	cancelRoot()
	vp.Close()
	// Closing the engine closes every event subscription, which lets
	// the SSE handlers drain before Shutdown's deadline.
	eng.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] forced shutdown: %v", err)
	}
	log.Println("[main] server stopped")
}
