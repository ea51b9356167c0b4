package genestats

import (
	"sort"

	"github.com/inodb/vibe-acmg/internal/clinvar"
)

// Builder accumulates counts during a single-threaded reference build.
type Builder struct {
	counts  map[string]map[string]Counts
	skipped int
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{counts: make(map[string]map[string]Counts)}
}

// Add increments the (gene, effect, sig) cell. Records missing a gene or an
// effect are skipped and Add returns false.
func (b *Builder) Add(gene, effect string, sig clinvar.ClinSig) bool {
	if gene == "" || effect == "" {
		b.skipped++
		return false
	}
	byEffect, ok := b.counts[gene]
	if !ok {
		byEffect = make(map[string]Counts)
		b.counts[gene] = byEffect
	}
	c, ok := byEffect[effect]
	if !ok {
		c = make(Counts)
		byEffect[effect] = c
	}
	c[sig]++
	return true
}

// AddRecord counts r under its first listed gene and first listed
// molecular consequence.
func (b *Builder) AddRecord(r clinvar.Record) bool {
	return b.Add(r.Gene(), r.Consequence(), r.Interpretation.Primary)
}

// Skipped returns the number of records rejected by Add.
func (b *Builder) Skipped() int {
	return b.skipped
}

// Genes returns the genes with counts, sorted.
func (b *Builder) Genes() []string {
	out := make([]string, 0, len(b.counts))
	for g := range b.counts {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Build returns immutable statistics for every gene, sorted by symbol.
func (b *Builder) Build() []GeneStatistics {
	genes := b.Genes()
	out := make([]GeneStatistics, 0, len(genes))
	for _, g := range genes {
		// gene and effect are non-empty by construction
		s, _ := NewGeneStatistics(g, b.counts[g])
		out = append(out, s)
	}
	return out
}
