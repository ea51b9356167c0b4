// Package assigner evaluates ACMG/AMP criteria for candidate variants and
// combines the met criteria into a classification.
//
// Rules are plain functions in a Registry. Each reads the variant, the
// mode of inheritance and an explicit Deps struct; missing data in any
// dependency means no evidence, never an error.
package assigner

import (
	"go.uber.org/zap"

	"github.com/inodb/vibe-acmg/internal/annotate"
	"github.com/inodb/vibe-acmg/internal/clinvar"
	"github.com/inodb/vibe-acmg/internal/datasource/scores"
	"github.com/inodb/vibe-acmg/internal/genestats"
	"github.com/inodb/vibe-acmg/internal/variantkey"
)

// ClinVarLookup is the overlap query of the ClinVar store.
type ClinVarLookup interface {
	FindOverlapping(contig string, start, end, padding int64, filter variantkey.LengthFilter) ([]clinvar.Entry, error)
}

// GeneStatsLookup returns the ClinVar statistics of a gene.
type GeneStatsLookup interface {
	Get(gene string) (genestats.GeneStatistics, bool, error)
}

// Reannotator computes the transcript effect of a reference variant.
type Reannotator interface {
	Reannotate(k variantkey.Key) (annotate.Reannotation, bool, error)
}

// ConservationLookup returns the PhyloP score at a variant's position.
type ConservationLookup interface {
	PhyloP(k variantkey.Key) (float64, bool, error)
}

// MissenseLookup returns the AlphaMissense prediction of a substitution.
type MissenseLookup interface {
	AlphaMissense(k variantkey.Key) (scores.Result, bool, error)
}

// Deps are the collaborators shared by all rules. Any lookup may be nil;
// rules that need it then assign nothing.
type Deps struct {
	ClinVar      ClinVarLookup
	GeneStats    GeneStatsLookup
	Reannotator  Reannotator
	Conservation ConservationLookup
	Missense     MissenseLookup
	Thresholds   Thresholds
	Logger       *zap.Logger
}
