package hotspot

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(records []Hotspot) []string {
	out := make([]string, len(records))
	for i, h := range records {
		out[i] = h.ID
	}
	return out
}

func spot(id string, lat, lon float64) Hotspot {
	return Hotspot{ID: id, Lat: lat, Lon: lon, RiskScore: 0.5}
}

func TestReplaceAllKeepsValidDropsInvalid(t *testing.T) {
	s := NewStore()
	kept, rejected := s.ReplaceAll([]Hotspot{
		spot("a", 12.97, 77.59),
		spot("b", 0, 0),
		spot("c", math.NaN(), 77.59),
		spot("d", 13.01, 77.62),
		{ID: "e", Lat: 12.95, Lon: 77.61, Timestamp: "not-a-time"},
	})

	assert.Equal(t, 2, kept)
	assert.Equal(t, 3, rejected)
	assert.Equal(t, uint64(3), s.Rejected())
	if diff := cmp.Diff([]string{"a", "d"}, ids(s.All())); diff != "" {
		t.Errorf("unexpected store contents (-want +got):\n%s", diff)
	}
	assert.Len(t, s.Quarantined(), 3)
}

func TestReplaceAllDiscardsPreviousContents(t *testing.T) {
	s := NewStore()
	s.ReplaceAll([]Hotspot{spot("old1", 12.9, 77.5), spot("old2", 12.91, 77.51)})
	kept, _ := s.ReplaceAll([]Hotspot{spot("new", 13.0, 77.6)})

	assert.Equal(t, 1, kept)
	assert.Equal(t, []string{"new"}, ids(s.All()))
	_, ok := s.Get("old1")
	assert.False(t, ok)
}

func TestReplaceAllRejectsDuplicateIDs(t *testing.T) {
	s := NewStore()
	kept, rejected := s.ReplaceAll([]Hotspot{
		{ID: "a", Lat: 12.97, Lon: 77.59, Amount: 1000},
		{ID: "a", Lat: 13.00, Lon: 77.60, Amount: 2000},
	})

	assert.Equal(t, 1, kept)
	assert.Equal(t, 1, rejected)
	h, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, float64(1000), h.Amount)
}

func TestMergePrependsNewestFirst(t *testing.T) {
	s := NewStore()
	s.ReplaceAll([]Hotspot{{ID: "a", Lat: 10, Lon: 76}})
	added, _ := s.MergeIncremental([]Hotspot{{ID: "b", Lat: 11, Lon: 77, Timestamp: "2026-03-01T10:00:00Z"}})

	assert.Equal(t, 1, added)
	if diff := cmp.Diff([]string{"b", "a"}, ids(s.All())); diff != "" {
		t.Errorf("merge ordering (-want +got):\n%s", diff)
	}

	// A second batch lands in front of everything, keeping batch order.
	s.MergeIncremental([]Hotspot{spot("c", 12, 78), spot("d", 12.5, 78.5)})
	assert.Equal(t, []string{"c", "d", "b", "a"}, ids(s.All()))
}

func TestMergeDeduplicatesByID(t *testing.T) {
	s := NewStore()
	s.ReplaceAll([]Hotspot{{ID: "a", Lat: 10, Lon: 76, Amount: 500}})

	added, rejected := s.MergeIncremental([]Hotspot{
		{ID: "a", Lat: 99, Lon: 99, Amount: 9999}, // redelivery, ignored
		spot("b", 11, 77),
		spot("b", 11.5, 77.5), // duplicate within the batch
	})

	assert.Equal(t, 1, added)
	assert.Equal(t, 0, rejected)
	assert.Equal(t, []string{"b", "a"}, ids(s.All()))

	h, _ := s.Get("a")
	assert.Equal(t, float64(500), h.Amount, "redelivery must not overwrite")
	h, _ = s.Get("b")
	assert.Equal(t, float64(11), h.Lat, "first occurrence in batch wins")
}

func TestMergeBadRecordDoesNotFailBatch(t *testing.T) {
	s := NewStore()
	added, rejected := s.MergeIncremental([]Hotspot{
		spot("good1", 12.9, 77.5),
		spot("noloc", 0, 0),
		{ID: "badts", Lat: 12.91, Lon: 77.51, Timestamp: "###"},
		spot("good2", 12.92, 77.52),
	})

	assert.Equal(t, 2, added)
	assert.Equal(t, 2, rejected)
	assert.Equal(t, []string{"good1", "good2"}, ids(s.All()))
}

func TestSetCordon(t *testing.T) {
	s := NewStore()
	s.ReplaceAll([]Hotspot{spot("a", 12.9, 77.5)})

	require.True(t, s.SetCordon("a"))
	h, _ := s.Get("a")
	assert.True(t, h.DigitalCordon)

	assert.False(t, s.SetCordon("missing"))
}

func TestAllReturnsIsolatedSnapshot(t *testing.T) {
	s := NewStore()
	s.ReplaceAll([]Hotspot{spot("a", 12.9, 77.5)})

	snap := s.All()
	snap[0].DigitalCordon = true
	snap[0].ID = "mutated"

	h, ok := s.Get("a")
	require.True(t, ok)
	assert.False(t, h.DigitalCordon)
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			s.MergeIncremental([]Hotspot{spot(fmt.Sprintf("w%d", i), 12.9, 77.5)})
		}
	}()
	for i := 0; i < 200; i++ {
		s.All()
		s.Len()
	}
	<-done
	assert.Equal(t, 200, s.Len())
}
