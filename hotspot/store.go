package hotspot

import "sync"

// Store is the session-lifetime hotspot collection and the single source
// of truth for every query: feeds replace or merge into it, the cordon
// action mutates it, redraws read from it.
//
// Records are kept in insertion order with merged batches prepended, so
// iteration always sees the newest data first. Invalid records never
// enter the active set; they are counted and kept aside for audit.
// Every operation holds the store mutex for its full duration, so
// readers never observe a partially applied replace or merge.
type Store struct {
	mu         sync.RWMutex
	records    []Hotspot
	byID       map[string]int
	quarantine []Hotspot
	rejected   uint64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{byID: make(map[string]int)}
}

// ReplaceAll swaps the entire collection for the valid subset of
// records, preserving their order. Duplicate ids within the batch keep
// the first occurrence. Invalid records are rejected, not errors.
func (s *Store) ReplaceAll(records []Hotspot) (kept, rejected int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make([]Hotspot, 0, len(records))
	s.byID = make(map[string]int, len(records))
	for _, h := range records {
		if !Normalize(&h) {
			s.reject(h)
			rejected++
			continue
		}
		if _, dup := s.byID[h.ID]; dup {
			s.reject(h)
			rejected++
			continue
		}
		s.byID[h.ID] = len(s.records)
		s.records = append(s.records, h)
		kept++
	}
	return kept, rejected
}

// MergeIncremental prepends the valid, previously unseen records so the
// newest data renders first. Records whose ids are already present are
// silently skipped; a bad record never fails the rest of its batch.
func (s *Store) MergeIncremental(records []Hotspot) (added, rejected int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := make([]Hotspot, 0, len(records))
	inBatch := make(map[string]bool, len(records))
	for _, h := range records {
		if !Normalize(&h) {
			s.reject(h)
			rejected++
			continue
		}
		if _, known := s.byID[h.ID]; known || inBatch[h.ID] {
			continue
		}
		inBatch[h.ID] = true
		fresh = append(fresh, h)
	}
	if len(fresh) == 0 {
		return 0, rejected
	}

	s.records = append(fresh, s.records...)
	for i := range s.records {
		s.byID[s.records[i].ID] = i
	}
	return len(fresh), rejected
}

// SetCordon marks a digital cordon as in effect for one hotspot. It
// reports whether the id was present; missing ids are a no-op.
func (s *Store) SetCordon(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byID[id]
	if !ok {
		return false
	}
	s.records[i].DigitalCordon = true
	return true
}

// All returns a snapshot copy of the active records, newest merges first.
func (s *Store) All() []Hotspot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Hotspot, len(s.records))
	copy(out, s.records)
	return out
}

// Get looks up a single record by id.
func (s *Store) Get(id string) (Hotspot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return Hotspot{}, false
	}
	return s.records[i], true
}

// Len returns the number of active records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Rejected returns the cumulative count of records refused by validation.
func (s *Store) Rejected() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rejected
}

// Quarantined returns a copy of the rejected records kept for audit.
func (s *Store) Quarantined() []Hotspot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Hotspot, len(s.quarantine))
	copy(out, s.quarantine)
	return out
}

// reject records an invalid or duplicate record for audit. Caller holds s.mu.
func (s *Store) reject(h Hotspot) {
	s.quarantine = append(s.quarantine, h)
	s.rejected++
}
