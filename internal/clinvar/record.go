package clinvar

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/inodb/vibe-acmg/internal/variantkey"
	"github.com/inodb/vibe-acmg/internal/vcf"
)

// ErrUnknownContig is returned when a record sits on a contig outside the
// primary assembly.
var ErrUnknownContig = variantkey.ErrUnknownContig

// ErrMissingGeneInfo marks records without a GENEINFO or MC field.
var ErrMissingGeneInfo = errors.New("missing gene info")

// Interpretation is the clinical assertion stored for one variant.
type Interpretation struct {
	Primary      ClinSig
	Secondary    []ClinSig
	ReviewStatus string
	Stars        int
	// Included maps ClinVar allele IDs of composite alleles that contain
	// this variant to their significance (CLNSIGINCL).
	Included map[string]ClinSig
}

// IsPathogenicOrLikely reports whether the primary label is P, LP or P/LP.
func (i Interpretation) IsPathogenicOrLikely() bool {
	return i.Primary.IsPathogenicOrLikely()
}

// Record is one parsed line of the ClinVar VCF.
type Record struct {
	Key            variantkey.Key
	Interpretation Interpretation
	Genes          []string // GENEINFO symbols, file order
	Consequences   []string // MC sequence ontology terms, file order
}

// Gene returns the first listed gene symbol, or "".
func (r Record) Gene() string {
	if len(r.Genes) == 0 {
		return ""
	}
	return r.Genes[0]
}

// Consequence returns the first listed molecular consequence, or "".
func (r Record) Consequence() string {
	if len(r.Consequences) == 0 {
		return ""
	}
	return r.Consequences[0]
}

// ParseRecord builds a Record from a ClinVar VCF variant line.
// Multi-allelic lines must be split beforehand.
func ParseRecord(v *vcf.Variant) (Record, error) {
	key, err := variantkey.New(v.Chrom, v.Pos, v.Ref, v.Alt)
	if err != nil {
		return Record{}, err
	}
	if _, err := variantkey.Encode(key); err != nil {
		return Record{}, err
	}

	return Record{
		Key:            key,
		Interpretation: ParseInterpretation(v.Info),
		Genes:          parseGeneInfo(infoString(v.Info, "GENEINFO")),
		Consequences:   parseMolecularConsequence(infoString(v.Info, "MC")),
	}, nil
}

// ParseInterpretation reads CLNSIG, CLNREVSTAT and CLNSIGINCL from a parsed
// INFO map. Records carrying only CLNSIGINCL get NotProvided as primary label.
func ParseInterpretation(info map[string]interface{}) Interpretation {
	var in Interpretation

	labels := splitSignificance(infoString(info, "CLNSIG"))
	if len(labels) > 0 {
		in.Primary = ParseClinSig(labels[0])
		for _, l := range labels[1:] {
			if s := ParseClinSig(l); s != None {
				in.Secondary = append(in.Secondary, s)
			}
		}
	} else {
		in.Primary = NotProvided
	}

	in.ReviewStatus = infoString(info, "CLNREVSTAT")
	in.Stars = ReviewStars(in.ReviewStatus)
	in.Included = parseIncluded(infoString(info, "CLNSIGINCL"))
	return in
}

// splitSignificance splits CLNSIG into its primary and secondary labels.
// Secondary labels follow '|' or ",_" (e.g. "Pathogenic|risk_factor",
// "Pathogenic,_risk_factor").
func splitSignificance(s string) []string {
	if s == "" || s == "." {
		return nil
	}
	s = strings.ReplaceAll(s, ",_", "|")
	var out []string
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimLeft(part, "_")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseGeneInfo extracts symbols from "BRCA1:672|NBR2:10230".
func parseGeneInfo(s string) []string {
	if s == "" || s == "." {
		return nil
	}
	var genes []string
	for _, g := range strings.Split(s, "|") {
		sym, _, _ := strings.Cut(g, ":")
		if sym != "" {
			genes = append(genes, sym)
		}
	}
	return genes
}

// parseMolecularConsequence extracts SO terms from
// "SO:0001583|missense_variant,SO:0001819|synonymous_variant".
func parseMolecularConsequence(s string) []string {
	if s == "" || s == "." {
		return nil
	}
	var terms []string
	for _, mc := range strings.Split(s, ",") {
		_, term, ok := strings.Cut(mc, "|")
		if !ok {
			term = mc
		}
		if term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

// parseIncluded parses "15127:Pathogenic|15128:Likely_benign".
func parseIncluded(s string) map[string]ClinSig {
	if s == "" || s == "." {
		return nil
	}
	out := make(map[string]ClinSig)
	for _, part := range strings.Split(s, "|") {
		id, sig, ok := strings.Cut(part, ":")
		if !ok || id == "" {
			continue
		}
		out[id] = ParseClinSig(sig)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func formatIncluded(m map[string]ClinSig) string {
	if len(m) == 0 {
		return ""
	}
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return ids[i] < ids[j]
	})
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id + ":" + string(m[id])
	}
	return strings.Join(parts, "|")
}

func formatSecondary(s []ClinSig) string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = string(v)
	}
	return strings.Join(parts, "|")
}

func parseSecondary(s string) []ClinSig {
	if s == "" {
		return nil
	}
	var out []ClinSig
	for _, p := range strings.Split(s, "|") {
		out = append(out, ClinSig(p))
	}
	return out
}

func infoString(info map[string]interface{}, key string) string {
	v, ok := info[key]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
