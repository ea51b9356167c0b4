// Package genestats aggregates ClinVar significance counts per gene and
// variant effect, and persists them in a DuckDB store keyed by gene symbol.
package genestats

import (
	"errors"
	"fmt"
	"sort"

	"github.com/inodb/vibe-acmg/internal/clinvar"
)

// Effect categories referenced by the gene-level criteria.
const (
	MissenseVariant       = "missense_variant"
	StopGained            = "stop_gained"
	FrameshiftVariant     = "frameshift_variant"
	SpliceDonorVariant    = "splice_donor_variant"
	SpliceAcceptorVariant = "splice_acceptor_variant"
	StartLost             = "start_lost"
)

// TruncatingEffects are the loss-of-function categories pooled when
// computing a gene's truncating pathogenic ratio.
var TruncatingEffects = []string{
	StopGained,
	FrameshiftVariant,
	SpliceDonorVariant,
	SpliceAcceptorVariant,
	StartLost,
}

// ErrEmptyGene is returned when statistics are built without a gene symbol.
var ErrEmptyGene = errors.New("empty gene symbol")

// Counts maps a significance label to the number of ClinVar records.
type Counts map[clinvar.ClinSig]uint64

// GeneStatistics holds per-effect significance counts for one gene. Values
// are immutable; accessors return copies.
type GeneStatistics struct {
	gene   string
	counts map[string]Counts
}

// NewGeneStatistics validates and copies counts into a GeneStatistics.
func NewGeneStatistics(gene string, counts map[string]Counts) (GeneStatistics, error) {
	if gene == "" {
		return GeneStatistics{}, ErrEmptyGene
	}
	cp := make(map[string]Counts, len(counts))
	for effect, byLabel := range counts {
		if effect == "" {
			return GeneStatistics{}, fmt.Errorf("gene %s: empty effect category", gene)
		}
		c := make(Counts, len(byLabel))
		for sig, n := range byLabel {
			c[sig] = n
		}
		cp[effect] = c
	}
	return GeneStatistics{gene: gene, counts: cp}, nil
}

// Gene returns the gene symbol.
func (g GeneStatistics) Gene() string {
	return g.gene
}

// Effects returns the effect categories with counts, sorted.
func (g GeneStatistics) Effects() []string {
	out := make([]string, 0, len(g.counts))
	for e := range g.counts {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// Count returns the count for one (effect, label) cell.
func (g GeneStatistics) Count(effect string, sig clinvar.ClinSig) uint64 {
	return g.counts[effect][sig]
}

// Counts returns a copy of the label counts for effect.
func (g GeneStatistics) Counts(effect string) Counts {
	c := make(Counts, len(g.counts[effect]))
	for sig, n := range g.counts[effect] {
		c[sig] = n
	}
	return c
}

// Total returns the number of records counted for effect across all labels.
func (g GeneStatistics) Total(effect string) uint64 {
	var n uint64
	for _, c := range g.counts[effect] {
		n += c
	}
	return n
}

// tally returns pathogenic (P, LP, P/LP) and benign (B, LB, B/LB) counts
// pooled over effects. Uncertain and other labels are left out of both.
func (g GeneStatistics) tally(effects []string) (path, benign uint64) {
	for _, e := range effects {
		for sig, n := range g.counts[e] {
			switch {
			case sig.IsPathogenicOrLikely():
				path += n
			case sig.IsBenignOrLikely():
				benign += n
			}
		}
	}
	return path, benign
}

// PathogenicRatio is (P+LP) / (P+LP+B+LB) over the given effects.
// A zero denominator gives 0.
func (g GeneStatistics) PathogenicRatio(effects ...string) float64 {
	p, b := g.tally(effects)
	return ratio(p, p+b)
}

// BenignRatio is (B+LB) / (P+LP+B+LB) over the given effects.
// A zero denominator gives 0.
func (g GeneStatistics) BenignRatio(effects ...string) float64 {
	p, b := g.tally(effects)
	return ratio(b, p+b)
}

func ratio(num, den uint64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
