package acmg

import (
	"fmt"
	"strings"
)

// Evidence is one met criterion at a given strength.
type Evidence struct {
	Criterion Criterion
	Strength  Strength
}

func (e Evidence) String() string {
	if e.Strength == e.Criterion.DefaultStrength() {
		return e.Criterion.String()
	}
	return e.Criterion.String() + "_" + e.Strength.String()
}

// EvidenceSet is an immutable set of met criteria, at most one strength per
// criterion. The zero value is an empty set.
type EvidenceSet struct {
	// indexed by Criterion; 0 means absent
	strengths [numCriteria]Strength
	n         int
}

// Len returns the number of criteria in the set.
func (s EvidenceSet) Len() int {
	return s.n
}

// IsEmpty reports whether no criterion is met.
func (s EvidenceSet) IsEmpty() bool {
	return s.n == 0
}

// Has reports whether c is in the set.
func (s EvidenceSet) Has(c Criterion) bool {
	return c.Valid() && s.strengths[c] != 0
}

// Strength returns the strength recorded for c.
func (s EvidenceSet) Strength(c Criterion) (Strength, bool) {
	if !s.Has(c) {
		return 0, false
	}
	return s.strengths[c], true
}

// Evidence returns the members in canonical criterion order.
func (s EvidenceSet) Evidence() []Evidence {
	out := make([]Evidence, 0, s.n)
	for c, st := range s.strengths {
		if st != 0 {
			out = append(out, Evidence{Criterion: Criterion(c), Strength: st})
		}
	}
	return out
}

// Equal reports set equality: same criteria with the same strengths.
func (s EvidenceSet) Equal(o EvidenceSet) bool {
	return s.strengths == o.strengths
}

// String formats the set as comma-separated codes, e.g. "PS1,PM2_supporting".
func (s EvidenceSet) String() string {
	ev := s.Evidence()
	parts := make([]string, len(ev))
	for i, e := range ev {
		parts[i] = e.String()
	}
	return strings.Join(parts, ",")
}

// EvidenceBuilder accumulates evidence. Adding a criterion already present
// keeps the stronger of the two strengths, so the result does not depend on
// insertion order.
type EvidenceBuilder struct {
	set EvidenceSet
}

// NewEvidenceBuilder returns an empty builder.
func NewEvidenceBuilder() *EvidenceBuilder {
	return &EvidenceBuilder{}
}

// Add records c at strength st.
func (b *EvidenceBuilder) Add(c Criterion, st Strength) error {
	if !c.Valid() {
		return fmt.Errorf("add evidence: invalid criterion %d", c)
	}
	if !st.Valid() {
		return fmt.Errorf("add evidence %s: invalid strength %d", c, st)
	}
	cur := b.set.strengths[c]
	if cur == 0 {
		b.set.n++
	}
	if st > cur {
		b.set.strengths[c] = st
	}
	return nil
}

// AddDefault records c at its default strength.
func (b *EvidenceBuilder) AddDefault(c Criterion) error {
	if !c.Valid() {
		return fmt.Errorf("add evidence: invalid criterion %d", c)
	}
	return b.Add(c, c.DefaultStrength())
}

// AddEvidence records every item of ev.
func (b *EvidenceBuilder) AddEvidence(ev ...Evidence) error {
	for _, e := range ev {
		if err := b.Add(e.Criterion, e.Strength); err != nil {
			return err
		}
	}
	return nil
}

// Merge adds every member of s.
func (b *EvidenceBuilder) Merge(s EvidenceSet) {
	for _, e := range s.Evidence() {
		// members of a built set are always valid
		_ = b.Add(e.Criterion, e.Strength)
	}
}

// Build returns the accumulated set. The builder may keep being used; later
// additions do not affect sets already built.
func (b *EvidenceBuilder) Build() EvidenceSet {
	return b.set
}

// NewEvidenceSet builds a set from ev.
func NewEvidenceSet(ev ...Evidence) (EvidenceSet, error) {
	b := NewEvidenceBuilder()
	if err := b.AddEvidence(ev...); err != nil {
		return EvidenceSet{}, err
	}
	return b.Build(), nil
}
