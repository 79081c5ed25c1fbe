// Replays a captured push-frame spool through the same decode and
// merge path the live client uses, and reports what would have landed
// in the store. Useful for debugging a field session offline.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/edsrzf/mmap-go"
	"github.com/klauspost/compress/zstd"

	"github.com/SIH-Epic-Electrons/AEGIS--sub000/hotspot"
	"github.com/SIH-Epic-Electrons/AEGIS--sub000/stream"
)

var (
	spoolPath = flag.String("spool", "", "spool file to replay (.zst decompresses)")
	verbose   = flag.Bool("v", false, "print each undecodable frame")
)

type storeSink struct {
	store *hotspot.Store
}

func (s storeSink) Merge(records []hotspot.Hotspot) (added, rejected int) {
	return s.store.MergeIncremental(records)
}

func replayCompressed(path string, fn func([]byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to open zstd stream: %w", err)
	}
	defer dec.Close()
	return stream.ReadFrames(dec, fn)
}

func replayMapped(path string, fn func([]byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return nil
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to map spool: %w", err)
	}
	defer data.Unmap()
	return stream.ReadFrames(bytes.NewReader(data), fn)
}

func main() {
	flag.Parse()
	if *spoolPath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay -spool <file>")
		os.Exit(2)
	}

	store := hotspot.NewStore()
	merger := stream.NewMerger(storeSink{store: store}, nil)

	start := time.Now()
	frames := 0
	badFrames := 0
	replay := func(frame []byte) error {
		frames++
		if err := merger.HandleFrame(frame); err != nil {
			badFrames++
			if *verbose {
				fmt.Printf("frame %d: %v\n", frames, err)
			}
		}
		return nil
	}

	var err error
	if filepath.Ext(*spoolPath) == stream.CompressedExt {
		err = replayCompressed(*spoolPath, replay)
	} else {
		err = replayMapped(*spoolPath, replay)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay failed: %v\n", err)
		os.Exit(1)
	}
	elapsed := time.Since(start)

	all := store.All()
	byType := make(map[string]int)
	byDistrict := make(map[string]int)
	for _, h := range all {
		byType[h.ScamType]++
		if h.District != "" {
			byDistrict[h.District]++
		}
	}

	// Dropped counts undecodable frames too; split the location-only
	// share back out for the report.
	locationDrops := merger.Dropped() - uint64(badFrames)

	fmt.Printf("Replayed %s in %v\n", *spoolPath, elapsed)
	fmt.Printf("  frames:            %d\n", frames)
	fmt.Printf("  undecodable:       %d\n", badFrames)
	fmt.Printf("  no-location drops: %d\n", locationDrops)
	fmt.Printf("  hotspots stored:   %d\n", len(all))
	fmt.Printf("  rejected records:  %d\n", store.Rejected())

	if len(byType) > 0 {
		fmt.Println("By scam type:")
		for _, k := range sortedKeys(byType) {
			fmt.Printf("  %-15s %d\n", k, byType[k])
		}
	}
	if len(byDistrict) > 0 {
		fmt.Println("By district:")
		for _, k := range sortedKeys(byDistrict) {
			fmt.Printf("  %-20s %d\n", k, byDistrict[k])
		}
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Most frequent first, ties alphabetical.
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
