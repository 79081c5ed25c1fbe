// Profiles the clustering index over synthetic hotspot volumes: how
// long a full rebuild takes, how long a steady-state pan query takes,
// and what either allocates, across point counts and zoom levels.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/SIH-Epic-Electrons/AEGIS--sub000/cluster"
	"github.com/SIH-Epic-Electrons/AEGIS--sub000/feed"
	"github.com/SIH-Epic-Electrons/AEGIS--sub000/geo"
)

var (
	cpuprofile  = flag.String("cpuprofile", "", "write cpu profile to file")
	memprofile  = flag.String("memprofile", "", "write memory profile to file")
	heapprofile = flag.String("heapprofile", "", "write heap profile to file")
	numPoints   = flag.Int("points", 100000, "number of hotspots to generate")
	zoomLevel   = flag.Int("zoom", 8, "zoom level to profile")
	testall     = flag.Bool("testall", false, "run the full battery of configurations")
)

// southernIndia spans well beyond the sample city so large volumes
// spread out the way a statewide feed would.
var southernIndia = geo.BBox{West: 74.0, South: 8.0, East: 80.3, North: 18.5}

func newIndex(n int) *cluster.Index {
	records := feed.SampleHotspots(n, southernIndia, 42, time.Now())
	pts := make([]cluster.Point, len(records))
	for i, h := range records {
		pts[i] = cluster.Point{ID: h.ID, Lat: h.Lat, Lon: h.Lon, Risk: h.RiskScore}
	}
	return cluster.NewIndex(func() []cluster.Point { return pts }, cluster.DefaultOptions())
}

// measure runs fn and reports wall time, allocated MB, and GC cycles.
func measure(fn func()) (time.Duration, float64, uint32) {
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	start := time.Now()
	fn()
	duration := time.Since(start)
	runtime.ReadMemStats(&after)
	allocMB := float64(after.TotalAlloc-before.TotalAlloc) / 1024 / 1024
	return duration, allocMB, after.NumGC - before.NumGC
}

func runSingleProfile(n, zoom int) {
	fmt.Printf("Profiling with %d hotspots at zoom level %d\n", n, zoom)

	idx := newIndex(n)

	rebuild, rebuildMB, _ := measure(func() {
		idx.Clusters(southernIndia, zoom)
	})
	fmt.Printf("Cold query (build + cluster) completed in %v\n", rebuild)
	fmt.Printf("Memory allocated: %.2f MB\n", rebuildMB)

	pan, panMB, _ := measure(func() {
		idx.Clusters(southernIndia, zoom)
	})
	fmt.Printf("Steady pan query completed in %v\n", pan)
	fmt.Printf("Memory allocated: %.2f MB\n", panMB)
	fmt.Printf("Entries at zoom %d: %d\n", zoom, len(idx.Clusters(southernIndia, zoom)))

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	fmt.Printf("Memory usage: %.2f MB\n", float64(mem.Alloc)/1024/1024)
}

func runProfileBattery() {
	pointCounts := []int{1000, 10000, 50000, 100000}
	zoomLevels := []int{2, 5, 8, 12, 15}

	fmt.Println("Running comprehensive profile battery...")
	fmt.Println("=======================================")

	fmt.Printf("%-10s | %-6s | %-15s | %-15s | %-12s | %-8s\n",
		"Points", "Zoom", "Rebuild", "Pan", "Memory (MB)", "GC Runs")
	fmt.Printf("%s\n", "---------------------------------------------------------------------------")

	for _, points := range pointCounts {
		idx := newIndex(points)
		for _, zoom := range zoomLevels {
			idx.Invalidate()
			rebuild, memMB, gcRuns := measure(func() {
				idx.Clusters(southernIndia, zoom)
			})
			pan, _, _ := measure(func() {
				idx.Clusters(southernIndia, zoom)
			})

			fmt.Printf("%-10d | %-6d | %-15s | %-15s | %-12.2f | %-8d\n",
				points, zoom, rebuild, pan, memMB, gcRuns)
		}
		fmt.Printf("%s\n", "---------------------------------------------------------------------------")
	}
}

func main() {
	flag.Parse()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			return
		}
		defer f.Close()

		fmt.Println("Starting CPU profiling...")
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			return
		}
		defer pprof.StopCPUProfile()
	}

	if *testall {
		runProfileBattery()
	} else {
		runSingleProfile(*numPoints, *zoomLevel)
	}

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create memory profile: %v\n", err)
			return
		}
		defer f.Close()
		runtime.GC() // Get up-to-date statistics
		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not write memory profile: %v\n", err)
		}
	}

	if *heapprofile != "" {
		f, err := os.Create(*heapprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create heap profile: %v\n", err)
			return
		}
		defer f.Close()

		memProfile := pprof.Lookup("heap")
		if memProfile == nil {
			fmt.Fprintf(os.Stderr, "Could not find heap profile\n")
			return
		}

		if err := memProfile.WriteTo(f, 0); err != nil {
			fmt.Fprintf(os.Stderr, "Could not write heap profile: %v\n", err)
		}
	}
}
