package assigner

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-acmg/internal/acmg"
	"github.com/inodb/vibe-acmg/internal/annotate"
	"github.com/inodb/vibe-acmg/internal/datasource/scores"
	"github.com/inodb/vibe-acmg/internal/genestats"
	"github.com/inodb/vibe-acmg/internal/variantkey"
)

// evaluatePS1PM5 compares the variant's protein change with reviewed
// pathogenic ClinVar substitutions near it. Each reference variant gives
// PS1 (same amino acid change from a different nucleotide change) or PM5
// (different amino acid change at the residue), never both.
func evaluatePS1PM5(in *Input) (Outcome, error) {
	e, d := in.Eval, in.Deps
	var out Outcome
	if !e.IsMissense() || e.ProteinChange == "" || e.CodingChange == "" {
		return out, nil
	}
	if d.ClinVar == nil || d.Reannotator == nil {
		return out, nil
	}

	t := d.Thresholds
	end := e.Key.Pos + int64(len(e.Key.Ref)) - 1
	if end < e.Key.Pos {
		end = e.Key.Pos
	}
	entries, err := d.ClinVar.FindOverlapping(e.Key.ContigName(), e.Key.Pos, end, t.PS1PM5Window, variantkey.SubstitutionsOnly)
	if err != nil {
		return Outcome{}, fmt.Errorf("find ClinVar neighbours of %s: %w", e.Key, err)
	}

	for _, entry := range entries {
		if entry.Key == e.Key {
			continue
		}
		interp := entry.Interpretation
		if !interp.IsPathogenicOrLikely() || interp.Stars < t.MinClinVarStars {
			continue
		}
		out.Candidates++

		ref, ok, err := d.Reannotator.Reannotate(entry.Key)
		if err != nil {
			return Outcome{}, err
		}
		if !ok || !ref.IsMissense() {
			continue
		}
		switch {
		case ref.ProteinChange == e.ProteinChange && ref.CodingChange != e.CodingChange:
			out.add(acmg.PS1, acmg.Strong)
		case ref.ProteinChange != e.ProteinChange:
			out.add(acmg.PM5, acmg.Moderate)
		}
	}
	return out, nil
}

// evaluatePP2BP1 uses the gene's ClinVar missense and truncating record
// counts. Unknown genes give nothing.
func evaluatePP2BP1(in *Input) (Outcome, error) {
	e, d := in.Eval, in.Deps
	var out Outcome
	if !e.IsMissense() || e.GeneSymbol == "" || d.GeneStats == nil {
		return out, nil
	}
	stats, ok, err := d.GeneStats.Get(e.GeneSymbol)
	if err != nil {
		return Outcome{}, fmt.Errorf("get statistics of %s: %w", e.GeneSymbol, err)
	}
	if !ok {
		return out, nil
	}

	t := d.Thresholds
	if stats.PathogenicRatio(genestats.MissenseVariant) > t.PP2MinPathogenicRatio {
		out.add(acmg.PP2, acmg.Supporting)
	}
	if stats.PathogenicRatio(genestats.TruncatingEffects...) > t.BP1MinTruncatingPathogenicRatio &&
		stats.BenignRatio(genestats.MissenseVariant) > t.BP1MinBenignMissenseRatio {
		out.add(acmg.BP1, acmg.Supporting)
	}
	return out, nil
}

// evaluatePP3BP4 takes the computational evidence of a missense variant
// from its AlphaMissense class. Ambiguous and missing predictions give
// nothing.
func evaluatePP3BP4(in *Input) (Outcome, error) {
	e, d := in.Eval, in.Deps
	var out Outcome
	if !e.IsMissense() || d.Missense == nil {
		return out, nil
	}
	r, ok, err := d.Missense.AlphaMissense(e.Key)
	if err != nil {
		return Outcome{}, fmt.Errorf("look up AlphaMissense for %s: %w", e.Key, err)
	}
	if !ok {
		return out, nil
	}
	switch r.Class {
	case scores.ClassLikelyPathogenic:
		out.add(acmg.PP3, acmg.Supporting)
	case scores.ClassLikelyBenign:
		out.add(acmg.BP4, acmg.Supporting)
	}
	return out, nil
}

// evaluatePM2 assigns PM2 at supporting strength when no configured
// population source observed the allele.
// TODO: lower the bar for recessive modes once a calibrated carrier
// frequency threshold is available.
func evaluatePM2(in *Input) (Outcome, error) {
	var out Outcome
	if !in.Eval.Frequencies.HasObservation() {
		out.add(acmg.PM2, acmg.Supporting)
	}
	return out, nil
}

func evaluateBA1(in *Input) (Outcome, error) {
	var out Outcome
	af, ok := in.Eval.Frequencies.MaxFrequency()
	if ok && af > in.Deps.Thresholds.BA1MinFrequency {
		out.add(acmg.BA1, acmg.StandAlone)
	}
	return out, nil
}

// evaluateBS2 compares the largest observed allele count with the limit of
// the mode of inheritance. Modes other than AD, AR and XR give nothing.
func evaluateBS2(in *Input) (Outcome, error) {
	var out Outcome
	count, ok := in.Eval.Frequencies.MaxAlleleCount()
	if !ok {
		return out, nil
	}
	t := in.Deps.Thresholds
	var limit int64
	switch {
	case in.Mode.IsRecessive():
		limit = t.BS2RecessiveMaxCount
	case in.Mode == acmg.AutosomalDominant:
		limit = t.BS2DominantMaxCount
	default:
		return out, nil
	}
	if count > limit {
		out.add(acmg.BS2, acmg.Strong)
	}
	return out, nil
}

// evaluateBP7 needs a pure synonymous change and a PhyloP score. Without
// conservation data the criterion is left undecided.
func evaluateBP7(in *Input) (Outcome, error) {
	e, d := in.Eval, in.Deps
	var out Outcome
	if e.Effect != annotate.ConsequenceSynonymousVariant || e.HasTerm(annotate.ConsequenceSpliceRegion) {
		return out, nil
	}
	if d.Conservation == nil {
		return out, nil
	}
	phylop, ok, err := d.Conservation.PhyloP(e.Key)
	if err != nil {
		return Outcome{}, fmt.Errorf("look up PhyloP for %s: %w", e.Key, err)
	}
	if !ok {
		d.Logger.Debug("no conservation score, BP7 undecided", zap.Stringer("variant", e.Key))
		return out, nil
	}
	if phylop < d.Thresholds.BP7MaxPhyloP {
		out.add(acmg.BP7, acmg.Supporting)
	}
	return out, nil
}
