// Package evaluation holds the per-variant input of evidence assignment and
// its construction from an annotated VCF record.
package evaluation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/inodb/vibe-acmg/internal/annotate"
	"github.com/inodb/vibe-acmg/internal/variantkey"
	"github.com/inodb/vibe-acmg/internal/vcf"
)

// VariantEvaluation is the read-only view of one candidate variant.
type VariantEvaluation struct {
	Key           variantkey.Key
	GeneSymbol    string
	Effect        string // primary SO term
	Consequence   string // every SO term, comma-separated
	ProteinChange string // HGVSp
	CodingChange  string // HGVSc
	Frequencies   FrequencySummary
	// Genotypes maps sample ID to the call for this allele.
	Genotypes map[string]Genotype
}

// IsMissense reports whether the primary effect is a missense change.
func (e *VariantEvaluation) IsMissense() bool {
	return e.Effect == annotate.ConsequenceMissenseVariant
}

// HasTerm reports whether term is among the variant's SO terms.
func (e *VariantEvaluation) HasTerm(term string) bool {
	if e.Effect == term {
		return true
	}
	for _, t := range strings.Split(e.Consequence, ",") {
		if t == term {
			return true
		}
	}
	return false
}

// Genotype of a sample with respect to one alternate allele.
type Genotype uint8

const (
	GenotypeUnknown Genotype = iota
	// GenotypeAbsent carries no copy of the allele.
	GenotypeAbsent
	GenotypeHeterozygous
	GenotypeHomozygous
	GenotypeHemizygous
)

var genotypeNames = [...]string{"unknown", "absent", "het", "hom", "hemi"}

func (g Genotype) String() string {
	if int(g) < len(genotypeNames) {
		return genotypeNames[g]
	}
	return fmt.Sprintf("Genotype(%d)", g)
}

// HasAllele reports whether the sample carries at least one copy.
func (g Genotype) HasAllele() bool {
	return g == GenotypeHeterozygous || g == GenotypeHomozygous || g == GenotypeHemizygous
}

// ParseGenotype interprets a GT value ("0/1", "1|1", "1", "./.") for the
// allele at altIndex (1-based).
func ParseGenotype(gt string, altIndex int) Genotype {
	if gt == "" {
		return GenotypeUnknown
	}
	alleles := strings.FieldsFunc(gt, func(r rune) bool { return r == '/' || r == '|' })
	if len(alleles) == 0 {
		return GenotypeUnknown
	}
	copies := 0
	for _, a := range alleles {
		if a == "." {
			return GenotypeUnknown
		}
		n, err := strconv.Atoi(a)
		if err != nil {
			return GenotypeUnknown
		}
		if n == altIndex {
			copies++
		}
	}
	switch {
	case copies == 0:
		return GenotypeAbsent
	case len(alleles) == 1:
		return GenotypeHemizygous
	case copies == len(alleles):
		return GenotypeHomozygous
	default:
		return GenotypeHeterozygous
	}
}

// FromVariant builds the evaluation of a split, single-allele VCF record.
// ann is its primary annotation and may be nil for intergenic variants.
// samples are the VCF sample column names in header order.
func FromVariant(v *vcf.Variant, ann *annotate.Annotation, samples []string, cfg Config) (*VariantEvaluation, error) {
	k, err := v.Key()
	if err != nil {
		return nil, fmt.Errorf("evaluate %s:%d: %w", v.Chrom, v.Pos, err)
	}
	e := &VariantEvaluation{
		Key:         k,
		Frequencies: cfg.Frequencies(v.Info),
		Genotypes:   make(map[string]Genotype, len(samples)),
	}
	if ann != nil {
		e.GeneSymbol = ann.GeneName
		e.Effect = ann.PrimaryConsequence()
		e.Consequence = ann.Consequence
		e.ProteinChange = ann.HGVSp
		e.CodingChange = ann.HGVSc
	}

	altIndex := v.AltIndex
	if altIndex == 0 {
		altIndex = 1
	}
	for i, name := range samples {
		e.Genotypes[name] = ParseGenotype(v.SampleField(i, "GT"), altIndex)
	}
	return e, nil
}
