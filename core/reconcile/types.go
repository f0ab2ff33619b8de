package reconcile

import "sort"

// Kind identifies a category of imported entity (e.g., "user", "post").
// Kinds namespace both the Mapper and the Summary counters.
type Kind string

// Reason is the machine-readable code attached to every skipped or dropped record.
type Reason string

const (
	// ReasonUnresolvedReference marks a record whose required foreign entity
	// could not be found or created through its fallback chain.
	ReasonUnresolvedReference Reason = "unresolved_reference"

	// ReasonDuplicateNaturalKey marks a record that already exists in the store.
	// It is counted as skipped, never as failed.
	ReasonDuplicateNaturalKey Reason = "duplicate_natural_key"

	// ReasonMalformedRecord marks a record missing required input fields.
	ReasonMalformedRecord Reason = "malformed_record"
)

// KindCounts holds the per-kind outcome counters of a run.
type KindCounts struct {
	// Created counts rows inserted by this run.
	Created int `json:"created"`

	// Skipped counts records whose natural key already existed.
	Skipped int `json:"skipped"`

	// Failed counts records dropped because they were malformed or unresolvable.
	Failed int `json:"failed"`
}

// Total returns the number of records attempted.
func (c KindCounts) Total() int {
	return c.Created + c.Skipped + c.Failed
}

// Skip is a single entry of the skip log.
type Skip struct {
	// Kind is the kind of the skipped record.
	Kind Kind `json:"kind"`

	// Key identifies the record in the input (natural key or external id).
	Key string `json:"key"`

	// Reason is the skip reason code.
	Reason Reason `json:"reason"`

	// Detail is a human-readable explanation, e.g. "category \"Tech\" not found".
	Detail string `json:"detail,omitempty"`
}

// Summary aggregates created/skipped/failed counts per kind plus the skip log.
type Summary struct {
	// Counts maps each kind to its counters.
	Counts map[Kind]*KindCounts `json:"counts"`

	// Skips lists every record that was not created, in processing order.
	Skips []Skip `json:"skips"`

	order []Kind
}

// NewSummary returns an empty summary.
func NewSummary() *Summary {
	return &Summary{
		Counts: make(map[Kind]*KindCounts),
		Skips:  []Skip{},
	}
}

func (s *Summary) counts(kind Kind) *KindCounts {
	c, ok := s.Counts[kind]
	if !ok {
		c = &KindCounts{}
		s.Counts[kind] = c
		s.order = append(s.order, kind)
	}
	return c
}

// Touch registers a kind so it appears in Kinds even when no record was attempted.
func (s *Summary) Touch(kind Kind) {
	s.counts(kind)
}

// AddCreated increments the created counter of kind.
func (s *Summary) AddCreated(kind Kind) {
	s.counts(kind).Created++
}

// AddSkipped records a duplicate that was left untouched.
func (s *Summary) AddSkipped(kind Kind, key string, reason Reason, detail string) {
	s.counts(kind).Skipped++
	s.Skips = append(s.Skips, Skip{Kind: kind, Key: key, Reason: reason, Detail: detail})
}

// AddFailed records a dropped record.
func (s *Summary) AddFailed(kind Kind, key string, reason Reason, detail string) {
	s.counts(kind).Failed++
	s.Skips = append(s.Skips, Skip{Kind: kind, Key: key, Reason: reason, Detail: detail})
}

// For returns a copy of the counters of kind (zero if never touched).
func (s *Summary) For(kind Kind) KindCounts {
	if c, ok := s.Counts[kind]; ok {
		return *c
	}
	return KindCounts{}
}

// Kinds returns the kinds in the order they were first touched.
func (s *Summary) Kinds() []Kind {
	out := make([]Kind, len(s.order))
	copy(out, s.order)
	return out
}

// Totals sums the counters of every kind.
func (s *Summary) Totals() KindCounts {
	var t KindCounts
	for _, c := range s.Counts {
		t.Created += c.Created
		t.Skipped += c.Skipped
		t.Failed += c.Failed
	}
	return t
}

// SkipsFor returns the skip log entries for kind.
func (s *Summary) SkipsFor(kind Kind) []Skip {
	var out []Skip
	for _, sk := range s.Skips {
		if sk.Kind == kind {
			out = append(out, sk)
		}
	}
	return out
}

// ReasonCounts returns how many skip log entries carry each reason.
func (s *Summary) ReasonCounts() map[Reason]int {
	out := make(map[Reason]int)
	for _, sk := range s.Skips {
		out[sk.Reason]++
	}
	return out
}

// sortedKinds returns the keys of m sorted alphabetically.
func sortedKinds[V any](m map[Kind]V) []Kind {
	kinds := make([]Kind, 0, len(m))
	for k := range m {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
