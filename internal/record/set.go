package record

// Set accumulates records in first-seen order, merging arrivals that share
// an identity key. Merging is idempotent: adding the same record twice
// leaves the set unchanged.
type Set struct {
	order []string
	byKey map[string]*Record
}

// NewSet returns an empty accumulation set.
func NewSet() *Set {
	return &Set{byKey: make(map[string]*Record)}
}

// Add merges r into the set and reports whether it seeded a new slot.
// Discarded (empty) records never reach the set; callers filter first.
func (s *Set) Add(r Record) bool {
	key := r.Key()
	if have, ok := s.byKey[key]; ok {
		have.Merge(r)
		return false
	}
	cp := r
	s.byKey[key] = &cp
	s.order = append(s.order, key)
	return true
}

// AddAll merges every record in rs.
func (s *Set) AddAll(rs []Record) {
	for _, r := range rs {
		s.Add(r)
	}
}

// Has reports whether a record with r's identity key is already present.
func (s *Set) Has(key string) bool {
	_, ok := s.byKey[key]
	return ok
}

// Len returns the number of distinct records.
func (s *Set) Len() int { return len(s.order) }

// Records returns the merged records in first-seen order.
func (s *Set) Records() []Record {
	out := make([]Record, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, *s.byKey[key])
	}
	return out
}

// Dedupe re-applies identity-key deduplication to a concatenated slice,
// keeping first-seen order. Used for the final global pass over all
// per-frame results.
func Dedupe(rs []Record) []Record {
	set := NewSet()
	set.AddAll(rs)
	return set.Records()
}
