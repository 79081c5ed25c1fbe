package feed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/SIH-Epic-Electrons/AEGIS--sub000/geo"
	"github.com/SIH-Epic-Electrons/AEGIS--sub000/hotspot"
)

// DefaultSampleBounds covers metropolitan Bengaluru, where the pilot
// deployment runs. Sample data stays inside it so the default map view
// opens onto something.
var DefaultSampleBounds = geo.BBox{West: 77.45, South: 12.85, East: 77.78, North: 13.14}

// sampleStations pairs each police station with its district and a
// street-level address stub, so filters over the admin fields have
// real values to bite on.
var sampleStations = []struct {
	district, station, address string
}{
	{"Bengaluru Urban", "Cubbon Park PS", "Near MG Road metro exit"},
	{"Bengaluru Urban", "Indiranagar PS", "100 Feet Road, Indiranagar"},
	{"Bengaluru Urban", "Koramangala PS", "80 Feet Road, 4th Block"},
	{"Bengaluru Urban", "Jayanagar PS", "9th Main, Jayanagar 4th Block"},
	{"Bengaluru Urban", "Whitefield PS", "ITPL Main Road, Whitefield"},
	{"Bengaluru Urban", "Yelahanka PS", "Yelahanka New Town, 5th Phase"},
	{"Bengaluru Rural", "Devanahalli PS", "Airport Road, Devanahalli"},
	{"Bengaluru Rural", "Nelamangala PS", "NH-48 Service Road, Nelamangala"},
}

var sampleWindows = []string{"0-1h", "1-2h", "2-4h", "4-8h"}

// SampleHotspots generates n synthetic records inside bbox, seeded so
// the same arguments always produce the same data. They stand in for
// the prediction feed until a real snapshot or push event arrives, and
// they drive the profiler battery.
func SampleHotspots(n int, bbox geo.BBox, seed int64, now time.Time) []hotspot.Hotspot {
	rng := rand.New(rand.NewSource(seed))
	records := make([]hotspot.Hotspot, 0, n)
	for i := 0; i < n; i++ {
		loc := sampleStations[rng.Intn(len(sampleStations))]
		at := now.Add(-time.Duration(rng.Intn(24*60)) * time.Minute)
		records = append(records, hotspot.Hotspot{
			ID:            fmt.Sprintf("sample-%04d", i),
			Lat:           bbox.South + rng.Float64()*(bbox.North-bbox.South),
			Lon:           bbox.West + rng.Float64()*(bbox.East-bbox.West),
			RiskScore:     0.05 + rng.Float64()*0.9,
			TimeWindow:    sampleWindows[rng.Intn(len(sampleWindows))],
			ScamType:      hotspot.ScamTypes[rng.Intn(len(hotspot.ScamTypes))],
			State:         "Karnataka",
			District:      loc.district,
			PoliceStation: loc.station,
			ComplaintID:   fmt.Sprintf("CMP-2026-%05d", 10000+rng.Intn(80000)),
			Amount:        float64(5+rng.Intn(496)) * 1000,
			Timestamp:     at.UTC().Format(time.RFC3339),
			Address:       loc.address,
		})
	}
	return records
}
