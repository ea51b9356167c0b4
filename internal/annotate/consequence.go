package annotate

import (
	"fmt"
	"strconv"

	"github.com/inodb/vibe-acmg/internal/cache"
	"github.com/inodb/vibe-acmg/internal/variantkey"
)

// ConsequenceResult holds the result of consequence prediction for a variant.
type ConsequenceResult struct {
	Consequence     string
	Impact          string
	CDSPosition     int64
	ProteinPosition int64
	RefCodon        string
	AltCodon        string
	RefAA           byte
	AltAA           byte
	AminoAcidChange string
	CodonChange     string
	ExonNumber      string
	HGVSp           string
	HGVSc           string
}

func (r *ConsequenceResult) set(consequence string) *ConsequenceResult {
	r.Consequence = consequence
	r.Impact = GetImpact(consequence)
	return r
}

// PredictConsequence determines the effect of a variant on a transcript.
// Coding substitutions get codon, amino acid and HGVS detail; other
// coding changes are classified by length difference only.
func PredictConsequence(k variantkey.Key, t *cache.Transcript) *ConsequenceResult {
	result := &ConsequenceResult{}

	if !t.Contains(k.Pos) {
		if (k.Pos < t.Start) == t.IsForwardStrand() {
			return result.set(ConsequenceUpstreamGene)
		}
		return result.set(ConsequenceDownstreamGene)
	}

	exon := t.FindExon(k.Pos)
	if exon == nil {
		if site := spliceSiteType(k.Pos, t); site != "" {
			return result.set(site)
		}
		if isSpliceRegion(k.Pos, t) {
			return result.set(ConsequenceSpliceRegion + "," + ConsequenceIntronVariant)
		}
		return result.set(ConsequenceIntronVariant)
	}
	result.ExonNumber = strconv.Itoa(exon.Number) + "/" + strconv.Itoa(len(t.Exons))

	if !t.IsProteinCoding() {
		return result.set(ConsequenceNonCodingExon)
	}

	// reverse strand: CDSEnd holds the start codon
	if k.Pos < t.CDSStart {
		if t.IsForwardStrand() {
			return result.set(Consequence5PrimeUTR)
		}
		return result.set(Consequence3PrimeUTR)
	}
	if k.Pos > t.CDSEnd {
		if t.IsForwardStrand() {
			return result.set(Consequence3PrimeUTR)
		}
		return result.set(Consequence5PrimeUTR)
	}

	predictCodingConsequence(k, t, result)
	if isSpliceRegion(k.Pos, t) {
		result.Consequence += "," + ConsequenceSpliceRegion
	}
	return result
}

// predictCodingConsequence fills in the effect of a variant inside the CDS.
func predictCodingConsequence(k variantkey.Key, t *cache.Transcript, result *ConsequenceResult) {
	cdsPos := GenomicToCDS(k.Pos, t)
	if cdsPos < 1 {
		result.set(ConsequenceIntronVariant)
		return
	}
	result.CDSPosition = cdsPos
	codonNum, posInCodon := CDSToCodonPosition(cdsPos)
	result.ProteinPosition = codonNum

	if !k.IsSNV() {
		refLen, altLen := len(k.Ref), len(k.Alt)
		switch {
		case (refLen-altLen)%3 != 0:
			result.set(ConsequenceFrameshiftVariant)
		case altLen > refLen:
			result.set(ConsequenceInframeInsertion)
		case refLen > altLen:
			result.set(ConsequenceInframeDeletion)
		default:
			result.set(ConsequenceCodingSequenceVariant)
		}
		return
	}

	ref, alt := k.Ref[0], k.Alt[0]
	if !t.IsForwardStrand() {
		ref, alt = Complement(ref), Complement(alt)
	}
	result.HGVSc = fmt.Sprintf("c.%d%c>%c", cdsPos, ref, alt)

	refCodon := GetCodon(t.CDSSequence, codonNum)
	if len(refCodon) != 3 {
		// no sequence available for this transcript
		result.set(ConsequenceCodingSequenceVariant)
		return
	}
	altCodon := MutateCodon(refCodon, posInCodon, alt)
	result.RefCodon, result.AltCodon = refCodon, altCodon
	result.RefAA, result.AltAA = TranslateCodon(refCodon), TranslateCodon(altCodon)
	result.CodonChange = formatCodonChange(refCodon, altCodon, posInCodon)

	switch {
	case result.RefAA == result.AltAA && result.RefAA == '*':
		result.set(ConsequenceStopRetained)
	case result.RefAA == result.AltAA:
		result.set(ConsequenceSynonymousVariant)
	case result.AltAA == '*':
		result.set(ConsequenceStopGained)
	case result.RefAA == '*':
		result.set(ConsequenceStopLost)
	case result.RefAA == 'M' && codonNum == 1:
		result.set(ConsequenceStartLost)
	default:
		result.set(ConsequenceMissenseVariant)
	}
	if result.Consequence != ConsequenceSynonymousVariant && result.Consequence != ConsequenceStopRetained {
		result.AminoAcidChange = fmt.Sprintf("%c%d%c", result.RefAA, codonNum, result.AltAA)
	}
	result.HGVSp = FormatHGVSp(result)
}

// FormatHGVSp formats the HGVS protein notation of a coding substitution.
// Returns an empty string for non-coding consequences.
func FormatHGVSp(r *ConsequenceResult) string {
	if r.ProteinPosition < 1 || r.RefAA == 0 {
		return ""
	}
	pos := r.ProteinPosition
	switch r.Consequence {
	case ConsequenceMissenseVariant:
		return fmt.Sprintf("p.%s%d%s", aaThree(r.RefAA), pos, aaThree(r.AltAA))
	case ConsequenceSynonymousVariant:
		return fmt.Sprintf("p.%s%d=", aaThree(r.RefAA), pos)
	case ConsequenceStopGained:
		return fmt.Sprintf("p.%s%dTer", aaThree(r.RefAA), pos)
	case ConsequenceStopLost:
		return fmt.Sprintf("p.Ter%d%sext*?", pos, aaThree(r.AltAA))
	case ConsequenceStartLost:
		return "p.Met1?"
	case ConsequenceStopRetained:
		return fmt.Sprintf("p.Ter%d=", pos)
	}
	return ""
}

// GenomicToCDS converts a genomic position to a 1-based CDS position.
// Returns 0 if the position is not in the CDS.
func GenomicToCDS(pos int64, t *cache.Transcript) int64 {
	if !t.ContainsCDS(pos) {
		return 0
	}
	forward := t.IsForwardStrand()
	var cdsPos int64
	var found bool
	for _, e := range t.Exons {
		if !e.IsCoding() {
			continue
		}
		switch {
		case pos >= e.CDSStart && pos <= e.CDSEnd:
			found = true
			if forward {
				cdsPos += pos - e.CDSStart + 1
			} else {
				cdsPos += e.CDSEnd - pos + 1
			}
		case forward && e.CDSEnd < pos, !forward && e.CDSStart > pos:
			// upstream in transcript order
			cdsPos += e.CDSEnd - e.CDSStart + 1
		}
	}
	if !found {
		return 0
	}
	return cdsPos
}

// CDSToCodonPosition converts a 1-based CDS position to a 1-based codon
// number and the 0-based offset within that codon.
func CDSToCodonPosition(cdsPos int64) (codonNumber int64, positionInCodon int) {
	if cdsPos < 1 {
		return 0, 0
	}
	return (cdsPos-1)/3 + 1, int((cdsPos - 1) % 3)
}

// spliceSiteType returns splice_donor_variant or splice_acceptor_variant
// when pos is 1-2 bp into the intron from an internal exon boundary.
//
// Forward strand: exon.End+1/+2 = donor, exon.Start-1/-2 = acceptor
// Reverse strand: exon.Start-1/-2 = donor, exon.End+1/+2 = acceptor
func spliceSiteType(pos int64, t *cache.Transcript) string {
	for i, e := range t.Exons {
		lowEdge, highEdge := innerEdges(i, t)
		if highEdge && (pos == e.End+1 || pos == e.End+2) {
			if t.IsForwardStrand() {
				return ConsequenceSpliceDonor
			}
			return ConsequenceSpliceAcceptor
		}
		if lowEdge && (pos == e.Start-1 || pos == e.Start-2) {
			if t.IsForwardStrand() {
				return ConsequenceSpliceAcceptor
			}
			return ConsequenceSpliceDonor
		}
	}
	return ""
}

// isSpliceRegion reports whether pos is within 3 bp of an internal exon
// boundary on the exon side or 3-8 bp on the intron side.
func isSpliceRegion(pos int64, t *cache.Transcript) bool {
	for i, e := range t.Exons {
		lowEdge, highEdge := innerEdges(i, t)
		if lowEdge && (pos >= e.Start && pos <= e.Start+2 || pos >= e.Start-8 && pos <= e.Start-3) {
			return true
		}
		if highEdge && (pos >= e.End-2 && pos <= e.End || pos >= e.End+3 && pos <= e.End+8) {
			return true
		}
	}
	return false
}

// innerEdges reports which genomic edges of exon i face an intron. Exons
// are in transcript order, so on the reverse strand the first exon is the
// highest.
func innerEdges(i int, t *cache.Transcript) (low, high bool) {
	first, last := i == 0, i == len(t.Exons)-1
	if t.IsForwardStrand() {
		return !first, !last
	}
	return !last, !first
}

// formatCodonChange renders "ggT/ggG" style codon changes with the mutated
// base uppercase.
func formatCodonChange(ref, alt string, offset int) string {
	r, a := []byte(ref), []byte(alt)
	for i := range r {
		if i != offset {
			r[i] += 'a' - 'A'
			a[i] += 'a' - 'A'
		}
	}
	return string(r) + "/" + string(a)
}
