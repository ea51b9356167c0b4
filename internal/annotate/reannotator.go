package annotate

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/inodb/vibe-acmg/internal/variantkey"
)

// DefaultReannotationCacheSize bounds the memo of re-annotated keys.
const DefaultReannotationCacheSize = 65536

// Reannotation is the transcript-level effect of a reference variant as
// seen by protein-level criteria.
type Reannotation struct {
	Gene          string
	TranscriptID  string
	Effect        string // primary SO term
	ProteinChange string // HGVSp, e.g. "p.Gly12Cys"
	CodingChange  string // HGVSc, e.g. "c.34G>T"
}

// IsMissense reports whether the primary effect is a missense change.
func (r Reannotation) IsMissense() bool {
	return r.Effect == ConsequenceMissenseVariant
}

type memoEntry struct {
	r  Reannotation
	ok bool
}

// Reannotator annotates keys on their primary transcript and memoises the
// result. Safe for concurrent use once the transcript lookup is indexed.
type Reannotator struct {
	annotator *Annotator
	memo      *lru.Cache[variantkey.Key, memoEntry]
	hits      atomic.Int64
	misses    atomic.Int64
}

// NewReannotator wraps a with an LRU memo holding up to size keys.
func NewReannotator(a *Annotator, size int) (*Reannotator, error) {
	if size <= 0 {
		size = DefaultReannotationCacheSize
	}
	memo, err := lru.New[variantkey.Key, memoEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create reannotation cache: %w", err)
	}
	return &Reannotator{annotator: a, memo: memo}, nil
}

// Reannotate returns the effect of k on its primary transcript. ok is false
// for intergenic keys.
func (r *Reannotator) Reannotate(k variantkey.Key) (Reannotation, bool, error) {
	if e, found := r.memo.Get(k); found {
		r.hits.Add(1)
		return e.r, e.ok, nil
	}
	r.misses.Add(1)

	anns, err := r.annotator.Annotate(k)
	if err != nil {
		return Reannotation{}, false, fmt.Errorf("reannotate %s: %w", k, err)
	}
	var e memoEntry
	if ann := SelectPrimary(anns); ann != nil && ann.TranscriptID != "" {
		e = memoEntry{ok: true, r: Reannotation{
			Gene:          ann.GeneName,
			TranscriptID:  ann.TranscriptID,
			Effect:        ann.PrimaryConsequence(),
			ProteinChange: ann.HGVSp,
			CodingChange:  ann.HGVSc,
		}}
	}
	r.memo.Add(k, e)
	return e.r, e.ok, nil
}

// CacheStats returns memo hits and misses so far.
func (r *Reannotator) CacheStats() (hits, misses int64) {
	return r.hits.Load(), r.misses.Load()
}
