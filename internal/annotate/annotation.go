// Package annotate predicts the effect of a variant on overlapping
// transcripts and re-annotates reference variants for protein-level
// comparisons.
package annotate

import "strings"

// Impact levels for variant consequences.
const (
	ImpactHigh     = "HIGH"
	ImpactModerate = "MODERATE"
	ImpactLow      = "LOW"
	ImpactModifier = "MODIFIER"
)

// Consequence types (Sequence Ontology terms).
const (
	// HIGH impact
	ConsequenceStopGained        = "stop_gained"
	ConsequenceFrameshiftVariant = "frameshift_variant"
	ConsequenceStopLost          = "stop_lost"
	ConsequenceStartLost         = "start_lost"
	ConsequenceSpliceAcceptor    = "splice_acceptor_variant"
	ConsequenceSpliceDonor       = "splice_donor_variant"

	// MODERATE impact
	ConsequenceMissenseVariant  = "missense_variant"
	ConsequenceInframeInsertion = "inframe_insertion"
	ConsequenceInframeDeletion  = "inframe_deletion"

	// LOW impact
	ConsequenceSynonymousVariant     = "synonymous_variant"
	ConsequenceSpliceRegion          = "splice_region_variant"
	ConsequenceStopRetained          = "stop_retained_variant"
	ConsequenceCodingSequenceVariant = "coding_sequence_variant"

	// MODIFIER impact
	ConsequenceIntronVariant     = "intron_variant"
	Consequence5PrimeUTR         = "5_prime_UTR_variant"
	Consequence3PrimeUTR         = "3_prime_UTR_variant"
	ConsequenceUpstreamGene      = "upstream_gene_variant"
	ConsequenceDownstreamGene    = "downstream_gene_variant"
	ConsequenceIntergenicVariant = "intergenic_variant"
	ConsequenceNonCodingExon     = "non_coding_transcript_exon_variant"
)

// Annotation represents the predicted effect of a variant on a transcript.
type Annotation struct {
	TranscriptID    string
	GeneName        string
	GeneID          string
	Consequence     string // SO term, comma-separated when compound
	Impact          string
	CDSPosition     int64  // 0 if not in CDS
	ProteinPosition int64  // 0 if not in CDS
	AminoAcidChange string // e.g. "G12C"
	CodonChange     string // e.g. "Ggt/Tgt"
	IsCanonical     bool
	IsMANESelect    bool
	Biotype         string
	ExonNumber      string // e.g. "2/6"
	HGVSp           string // e.g. "p.Gly12Cys"
	HGVSc           string // e.g. "c.34G>T"
}

// PrimaryConsequence returns the first term of a compound consequence.
func (a *Annotation) PrimaryConsequence() string {
	c, _, _ := strings.Cut(a.Consequence, ",")
	return c
}

// GetImpact returns the impact level for a consequence. For comma-separated
// consequences the highest impact among all terms wins.
func GetImpact(consequence string) string {
	best := ImpactModifier
	for _, term := range strings.Split(consequence, ",") {
		var impact string
		switch term {
		case ConsequenceStopGained, ConsequenceFrameshiftVariant,
			ConsequenceStopLost, ConsequenceStartLost,
			ConsequenceSpliceAcceptor, ConsequenceSpliceDonor:
			impact = ImpactHigh
		case ConsequenceMissenseVariant, ConsequenceInframeInsertion,
			ConsequenceInframeDeletion:
			impact = ImpactModerate
		case ConsequenceSynonymousVariant, ConsequenceSpliceRegion,
			ConsequenceStopRetained, ConsequenceCodingSequenceVariant:
			impact = ImpactLow
		default:
			impact = ImpactModifier
		}
		if ImpactRank(impact) > ImpactRank(best) {
			best = impact
		}
	}
	return best
}

// ImpactRank returns numeric rank for impact comparison (higher = more severe).
func ImpactRank(impact string) int {
	switch impact {
	case ImpactHigh:
		return 3
	case ImpactModerate:
		return 2
	case ImpactLow:
		return 1
	default:
		return 0
	}
}
