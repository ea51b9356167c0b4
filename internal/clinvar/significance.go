// Package clinvar models ClinVar clinical interpretations and provides a
// sorted, DuckDB-backed store keyed by binary variant keys.
package clinvar

import (
	"strings"

	"golang.org/x/text/cases"
)

// ClinSig is a ClinVar clinical significance label.
type ClinSig string

// Clinical significance labels as written in the ClinVar VCF CLNSIG field.
const (
	Benign                       ClinSig = "Benign"
	BenignOrLikelyBenign         ClinSig = "Benign/Likely_benign"
	LikelyBenign                 ClinSig = "Likely_benign"
	UncertainSignificance        ClinSig = "Uncertain_significance"
	LikelyPathogenic             ClinSig = "Likely_pathogenic"
	PathogenicOrLikelyPathogenic ClinSig = "Pathogenic/Likely_pathogenic"
	Pathogenic                   ClinSig = "Pathogenic"
	ConflictingInterpretations   ClinSig = "Conflicting_interpretations_of_pathogenicity"
	Affects                      ClinSig = "Affects"
	Association                  ClinSig = "association"
	DrugResponse                 ClinSig = "drug_response"
	NotProvided                  ClinSig = "not_provided"
	Other                        ClinSig = "other"
	Protective                   ClinSig = "protective"
	RiskFactor                   ClinSig = "risk_factor"
	None                         ClinSig = ""
)

var allClinSigs = []ClinSig{
	Benign, BenignOrLikelyBenign, LikelyBenign, UncertainSignificance,
	LikelyPathogenic, PathogenicOrLikelyPathogenic, Pathogenic,
	ConflictingInterpretations, Affects, Association, DrugResponse,
	NotProvided, Other, Protective, RiskFactor,
}

// folded label -> ClinSig
var clinSigByFold map[string]ClinSig

func init() {
	clinSigByFold = make(map[string]ClinSig, len(allClinSigs)+4)
	for _, s := range allClinSigs {
		clinSigByFold[foldLabel(string(s))] = s
	}
	// Aliases used by older and newer ClinVar releases.
	clinSigByFold[foldLabel("Conflicting_classifications_of_pathogenicity")] = ConflictingInterpretations
	clinSigByFold[foldLabel("no_classification_for_the_single_variant")] = NotProvided
	clinSigByFold[foldLabel("no_interpretation_for_the_single_variant")] = NotProvided
	clinSigByFold[foldLabel("confers_sensitivity")] = DrugResponse
}

// foldLabel normalises a label for case-insensitive comparison. A fresh
// Caser is used per call since Casers are not safe for concurrent use.
func foldLabel(s string) string {
	s = strings.TrimSpace(strings.TrimLeft(s, "_"))
	s = strings.ReplaceAll(s, " ", "_")
	return cases.Fold().String(s)
}

// ParseClinSig maps a CLNSIG label to a ClinSig. Empty input yields None;
// labels not in the vocabulary yield Other.
func ParseClinSig(label string) ClinSig {
	if strings.TrimSpace(label) == "" {
		return None
	}
	if s, ok := clinSigByFold[foldLabel(label)]; ok {
		return s
	}
	return Other
}

// IsPathogenicOrLikely reports whether s is Pathogenic, Likely_pathogenic or
// the combined Pathogenic/Likely_pathogenic label.
func (s ClinSig) IsPathogenicOrLikely() bool {
	return s == Pathogenic || s == LikelyPathogenic || s == PathogenicOrLikelyPathogenic
}

// IsBenignOrLikely reports whether s is Benign, Likely_benign or the combined
// Benign/Likely_benign label.
func (s ClinSig) IsBenignOrLikely() bool {
	return s == Benign || s == LikelyBenign || s == BenignOrLikelyBenign
}

// Review status values from the CLNREVSTAT field, mapped to star ratings.
var reviewStars = map[string]int{
	"practice_guideline":                                      4,
	"reviewed_by_expert_panel":                                3,
	"criteria_provided,_multiple_submitters,_no_conflicts":    2,
	"criteria_provided,_conflicting_interpretations":          1,
	"criteria_provided,_conflicting_classifications":          1,
	"criteria_provided,_single_submitter":                     1,
	"no_assertion_for_the_individual_variant":                 0,
	"no_assertion_criteria_provided":                          0,
	"no_assertion_provided":                                   0,
	"no_interpretation_for_the_single_variant":                0,
	"no_classification_for_the_single_variant":                0,
	"no_classification_provided":                              0,
	"no_classifications_from_unflagged_records":               0,
	"criteria_provided,_multiple_submitters":                  2,
	"criteria_provided,_multiple_submitters,_conflicts_found": 1,
}

// ReviewStars converts a CLNREVSTAT value into a 0-4 star rating.
// Unknown statuses rate zero stars.
func ReviewStars(status string) int {
	status = strings.ReplaceAll(strings.TrimSpace(status), " ", "_")
	if n, ok := reviewStars[status]; ok {
		return n
	}
	return reviewStars[cases.Fold().String(status)]
}
