package stream

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/SIH-Epic-Electrons/AEGIS--sub000/hotspot"
	"github.com/SIH-Epic-Electrons/AEGIS--sub000/timeutil"
)

// Push channel topics.
const (
	TopicPredictionUpdate = "prediction_update"
	TopicNewCase          = "new_case"
)

const (
	// defaultPredictionRisk is assumed when a prediction sub-point
	// carries no probability in any of its forms.
	defaultPredictionRisk = 0.5
	// newCaseRisk marks a freshly reported incident as high urgency
	// until a model score arrives for it.
	newCaseRisk = 0.85
	// newCaseWindow is the display window for a just-reported case.
	newCaseWindow = "0-1h"
)

// Envelope is the outer frame of every push message.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// LatLng is the nested coordinate form some payloads use.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SubPoint is one predicted withdrawal location inside a prediction
// payload. Coordinates arrive either nested under location or flat;
// the probability field name varies by producer version.
type SubPoint struct {
	Location    *LatLng  `json:"location"`
	Lat         float64  `json:"lat"`
	Lon         float64  `json:"lon"`
	Probability *float64 `json:"probability"`
	Prob        *float64 `json:"prob"`
	Address     string   `json:"address"`
	ATMDetails  string   `json:"atmDetails"`
}

// coords resolves the nested form first, then the flat one.
func (s SubPoint) coords() (lat, lon float64) {
	if s.Location != nil {
		return s.Location.Latitude, s.Location.Longitude
	}
	return s.Lat, s.Lon
}

func (s SubPoint) risk(fallback float64) float64 {
	if s.Probability != nil {
		return *s.Probability
	}
	if s.Prob != nil {
		return *s.Prob
	}
	return fallback
}

// PredictionUpdate is the prediction_update payload: one model run,
// possibly fanning out to several predicted withdrawal points.
type PredictionUpdate struct {
	ID            string     `json:"id"`
	Hotspots      []SubPoint `json:"hotspots"`
	RiskScore     *float64   `json:"riskScore"`
	TimeWindow    string     `json:"timeWindow"`
	ScamType      string     `json:"scamType"`
	State         string     `json:"state"`
	District      string     `json:"district"`
	PoliceStation string     `json:"policeStation"`
	ComplaintID   string     `json:"complaintId"`
	Amount        float64    `json:"amount"`
	Timestamp     string     `json:"timestamp"`
}

// NewCase is the new_case payload: a single just-reported incident.
type NewCase struct {
	ID            string   `json:"id"`
	Location      *LatLng  `json:"location"`
	Lat           float64  `json:"lat"`
	Lon           float64  `json:"lon"`
	RiskScore     *float64 `json:"riskScore"`
	ScamType      string   `json:"scamType"`
	State         string   `json:"state"`
	District      string   `json:"district"`
	PoliceStation string   `json:"policeStation"`
	ComplaintID   string   `json:"complaintId"`
	Amount        float64  `json:"amount"`
	Address       string   `json:"address"`
	Timestamp     string   `json:"timestamp"`
}

// Sink receives the canonical records a push event converts to. The
// engine's merge path (store merge, index invalidation, notification)
// sits behind it.
type Sink interface {
	Merge(records []hotspot.Hotspot) (added, rejected int)
}

// Merger converts push events into canonical hotspots and hands them to
// the sink in arrival order. Events without a usable location are
// dropped and counted, never propagated.
type Merger struct {
	sink    Sink
	clock   timeutil.Clock
	dropped atomic.Uint64
}

// NewMerger wires a merger to its sink. A nil clock falls back to the
// real one.
func NewMerger(sink Sink, clock timeutil.Clock) *Merger {
	if clock == nil {
		clock = timeutil.NewRealClock()
	}
	return &Merger{sink: sink, clock: clock}
}

// HandleFrame decodes one raw push frame and dispatches on its topic.
// Unknown topics are ignored; undecodable frames count as dropped and
// the error goes back to the reader loop for logging only.
func (m *Merger) HandleFrame(frame []byte) error {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		m.dropped.Add(1)
		return fmt.Errorf("decode envelope: %w", err)
	}
	switch env.Type {
	case TopicPredictionUpdate:
		var ev PredictionUpdate
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			m.dropped.Add(1)
			return fmt.Errorf("decode %s: %w", env.Type, err)
		}
		m.HandlePrediction(ev)
	case TopicNewCase:
		var ev NewCase
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			m.dropped.Add(1)
			return fmt.Errorf("decode %s: %w", env.Type, err)
		}
		m.HandleNewCase(ev)
	}
	return nil
}

// Records flattens the prediction into one canonical record per located
// sub-point, plus the count of sub-points dropped for missing locations.
// The REST snapshot path and the push path share this conversion.
func (ev PredictionUpdate) Records() (records []hotspot.Hotspot, dropped int) {
	id := ev.ID
	if id == "" {
		id = uuid.NewString()
	}

	records = make([]hotspot.Hotspot, 0, len(ev.Hotspots))
	for i, sp := range ev.Hotspots {
		lat, lon := sp.coords()
		if !hotspot.HasLocation(lat, lon) {
			dropped++
			continue
		}
		fallback := defaultPredictionRisk
		if ev.RiskScore != nil {
			fallback = *ev.RiskScore
		}
		recID := id
		if len(ev.Hotspots) > 1 {
			recID = fmt.Sprintf("%s-%d", id, i+1)
		}
		records = append(records, hotspot.Hotspot{
			ID:            recID,
			Lat:           lat,
			Lon:           lon,
			RiskScore:     sp.risk(fallback),
			TimeWindow:    ev.TimeWindow,
			ScamType:      ev.ScamType,
			State:         ev.State,
			District:      ev.District,
			PoliceStation: ev.PoliceStation,
			ComplaintID:   ev.ComplaintID,
			Amount:        ev.Amount,
			Timestamp:     ev.Timestamp,
			Address:       sp.Address,
		})
	}
	return records, dropped
}

// HandlePrediction flattens a prediction into one record per located
// sub-point and merges them. Sub-points without a location are dropped
// individually; the rest of the event still lands.
func (m *Merger) HandlePrediction(ev PredictionUpdate) (added, rejected int) {
	records, dropped := ev.Records()
	if dropped > 0 {
		m.dropped.Add(uint64(dropped))
	}
	if len(records) == 0 {
		return 0, 0
	}
	return m.sink.Merge(records)
}

// HandleNewCase converts a reported incident into a high-urgency
// hotspot and merges it. A case without a location is dropped.
func (m *Merger) HandleNewCase(ev NewCase) (added, rejected int) {
	var lat, lon float64
	if ev.Location != nil {
		lat, lon = ev.Location.Latitude, ev.Location.Longitude
	} else {
		lat, lon = ev.Lat, ev.Lon
	}
	if !hotspot.HasLocation(lat, lon) {
		m.dropped.Add(1)
		return 0, 0
	}

	id := ev.ID
	if id == "" {
		id = uuid.NewString()
	}
	risk := newCaseRisk
	if ev.RiskScore != nil {
		risk = *ev.RiskScore
	}
	ts := ev.Timestamp
	if ts == "" {
		// A case report is news from right now; stamp it so the time
		// window treats it as current rather than unknown-age.
		ts = m.clock.Now().UTC().Format(time.RFC3339)
	}

	return m.sink.Merge([]hotspot.Hotspot{{
		ID:            id,
		Lat:           lat,
		Lon:           lon,
		RiskScore:     risk,
		TimeWindow:    newCaseWindow,
		ScamType:      ev.ScamType,
		State:         ev.State,
		District:      ev.District,
		PoliceStation: ev.PoliceStation,
		ComplaintID:   ev.ComplaintID,
		Amount:        ev.Amount,
		Timestamp:     ts,
		Address:       ev.Address,
	}})
}

// Dropped returns how many events or sub-points were discarded for
// missing locations or undecodable payloads.
func (m *Merger) Dropped() uint64 {
	return m.dropped.Load()
}
