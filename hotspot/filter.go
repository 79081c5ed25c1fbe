package hotspot

import "time"

// FilterState is the complete description of the active filters. It is
// passed by value; applying it never mutates it, and equal states over
// equal inputs always produce equal results.
type FilterState struct {
	// TimeWindowMinutes keeps records whose timestamp lies within the
	// window around now. Zero or negative disables the stage.
	TimeWindowMinutes int `json:"timeWindowMinutes"`
	// ScamTypes keeps records whose type is in the set. Empty keeps all.
	ScamTypes []string `json:"scamTypes,omitempty"`
	// State/District/PoliceStation are independent equality checks,
	// each applied only when set.
	State         string `json:"state,omitempty"`
	District      string `json:"district,omitempty"`
	PoliceStation string `json:"policeStation,omitempty"`
}

// DefaultFilter is the state applied until the user changes something.
func DefaultFilter() FilterState {
	return FilterState{TimeWindowMinutes: DefaultTimeWindowMinutes}
}

// Stage is one predicate of the pipeline. A record survives a pass only
// if every stage keeps it.
type Stage func(h *Hotspot) bool

// Stages expands the state into the pipeline's fixed order: time window,
// scam type, administrative hierarchy.
func (fs FilterState) Stages(now time.Time) []Stage {
	stages := make([]Stage, 0, 5)

	if fs.TimeWindowMinutes > 0 {
		window := time.Duration(fs.TimeWindowMinutes) * time.Minute
		stages = append(stages, func(h *Hotspot) bool {
			if h.At.IsZero() {
				// Unknown age never hides a record (fail-open).
				return true
			}
			d := now.Sub(h.At)
			if d < 0 {
				d = -d
			}
			return d <= window
		})
	}

	if len(fs.ScamTypes) > 0 {
		set := make(map[string]bool, len(fs.ScamTypes))
		for _, t := range fs.ScamTypes {
			set[NormalizeScamType(t)] = true
		}
		stages = append(stages, func(h *Hotspot) bool { return set[h.ScamType] })
	}

	if fs.State != "" {
		stages = append(stages, func(h *Hotspot) bool { return h.State == fs.State })
	}
	if fs.District != "" {
		stages = append(stages, func(h *Hotspot) bool { return h.District == fs.District })
	}
	if fs.PoliceStation != "" {
		stages = append(stages, func(h *Hotspot) bool { return h.PoliceStation == fs.PoliceStation })
	}
	return stages
}

// Apply runs the pipeline over a snapshot and returns the survivors in
// their original order. The input slice is never mutated.
func Apply(records []Hotspot, fs FilterState, now time.Time) []Hotspot {
	stages := fs.Stages(now)
	if len(stages) == 0 {
		out := make([]Hotspot, len(records))
		copy(out, records)
		return out
	}

	out := make([]Hotspot, 0, len(records))
next:
	for i := range records {
		for _, keep := range stages {
			if !keep(&records[i]) {
				continue next
			}
		}
		out = append(out, records[i])
	}
	return out
}
