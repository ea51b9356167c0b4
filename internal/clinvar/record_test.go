package clinvar

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-acmg/internal/vcf"
)

func TestParseClinSig(t *testing.T) {
	tests := []struct {
		in   string
		want ClinSig
	}{
		{"Pathogenic", Pathogenic},
		{"pathogenic", Pathogenic},
		{"Likely_pathogenic", LikelyPathogenic},
		{"Pathogenic/Likely_pathogenic", PathogenicOrLikelyPathogenic},
		{"Benign/Likely_benign", BenignOrLikelyBenign},
		{"Uncertain significance", UncertainSignificance},
		{"Conflicting_classifications_of_pathogenicity", ConflictingInterpretations},
		{"_risk_factor", RiskFactor},
		{"drug_response", DrugResponse},
		{"something_new", Other},
		{"", None},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseClinSig(tt.in))
		})
	}
}

func TestClinSigGroups(t *testing.T) {
	for _, s := range []ClinSig{Pathogenic, LikelyPathogenic, PathogenicOrLikelyPathogenic} {
		assert.True(t, s.IsPathogenicOrLikely(), s)
		assert.False(t, s.IsBenignOrLikely(), s)
	}
	for _, s := range []ClinSig{Benign, LikelyBenign, BenignOrLikelyBenign} {
		assert.True(t, s.IsBenignOrLikely(), s)
		assert.False(t, s.IsPathogenicOrLikely(), s)
	}
	assert.False(t, UncertainSignificance.IsPathogenicOrLikely())
	assert.False(t, ConflictingInterpretations.IsBenignOrLikely())
}

func TestReviewStars(t *testing.T) {
	tests := []struct {
		status string
		want   int
	}{
		{"practice_guideline", 4},
		{"reviewed_by_expert_panel", 3},
		{"criteria_provided,_multiple_submitters,_no_conflicts", 2},
		{"criteria_provided,_single_submitter", 1},
		{"criteria_provided,_conflicting_interpretations", 1},
		{"no_assertion_criteria_provided", 0},
		{"Reviewed_By_Expert_Panel", 3},
		{"", 0},
		{"made_up", 0},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, ReviewStars(tt.status))
		})
	}
}

func TestParseRecord(t *testing.T) {
	v := &vcf.Variant{
		Chrom: "7", Pos: 117559590, Ref: "ATCT", Alt: "A",
		Info: map[string]interface{}{
			"CLNSIG":     "Pathogenic|drug_response",
			"CLNREVSTAT": "practice_guideline",
			"GENEINFO":   "CFTR:1080|CFTR-AS1:111",
			"MC":         "SO:0001822|inframe_deletion,SO:0001583|missense_variant",
			"CLNSIGINCL": "15127:Pathogenic|424:Likely_benign",
		},
	}
	r, err := ParseRecord(v)
	require.NoError(t, err)

	assert.Equal(t, uint8(7), r.Key.Contig)
	assert.Equal(t, int64(117559590), r.Key.Pos)
	assert.Equal(t, Pathogenic, r.Interpretation.Primary)
	assert.Equal(t, []ClinSig{DrugResponse}, r.Interpretation.Secondary)
	assert.Equal(t, 4, r.Interpretation.Stars)
	assert.Equal(t, []string{"CFTR", "CFTR-AS1"}, r.Genes)
	assert.Equal(t, "CFTR", r.Gene())
	assert.Equal(t, []string{"inframe_deletion", "missense_variant"}, r.Consequences)
	assert.Equal(t, "inframe_deletion", r.Consequence())
	assert.Equal(t, map[string]ClinSig{"15127": Pathogenic, "424": LikelyBenign}, r.Interpretation.Included)
	assert.Equal(t, "424:Likely_benign|15127:Pathogenic", formatIncluded(r.Interpretation.Included))
}

func TestParseRecordLegacySecondarySeparator(t *testing.T) {
	in := ParseInterpretation(map[string]interface{}{
		"CLNSIG": "Pathogenic/Likely_pathogenic,_risk_factor",
	})
	assert.Equal(t, PathogenicOrLikelyPathogenic, in.Primary)
	assert.Equal(t, []ClinSig{RiskFactor}, in.Secondary)
	assert.Equal(t, 0, in.Stars)
}

func TestParseRecordIncludedOnly(t *testing.T) {
	v := &vcf.Variant{
		Chrom: "chr1", Pos: 100, Ref: "A", Alt: "G",
		Info: map[string]interface{}{"CLNSIGINCL": "9:Pathogenic"},
	}
	r, err := ParseRecord(v)
	require.NoError(t, err)
	assert.Equal(t, NotProvided, r.Interpretation.Primary)
	assert.False(t, r.Interpretation.IsPathogenicOrLikely())
	assert.Empty(t, r.Gene())
	assert.Empty(t, r.Consequence())
}

func TestParseRecordUnknownContig(t *testing.T) {
	v := &vcf.Variant{Chrom: "NW_009646201.1", Pos: 100, Ref: "A", Alt: "G", Info: map[string]interface{}{}}
	_, err := ParseRecord(v)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownContig))
}
