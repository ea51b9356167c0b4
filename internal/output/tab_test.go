package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-acmg/internal/acmg"
	"github.com/inodb/vibe-acmg/internal/assigner"
	"github.com/inodb/vibe-acmg/internal/clinvar"
	"github.com/inodb/vibe-acmg/internal/evaluation"
	"github.com/inodb/vibe-acmg/internal/variantkey"
)

func TestEvidenceWriter_KRASG12C(t *testing.T) {
	var buf bytes.Buffer
	w := NewEvidenceWriter(&buf)

	k := variantkey.Key{Contig: 12, Pos: 25245351, Ref: "C", Alt: "A"}
	e := &evaluation.VariantEvaluation{
		Key:           k,
		GeneSymbol:    "KRAS",
		Effect:        "missense_variant",
		Consequence:   "missense_variant",
		ProteinChange: "p.Gly12Cys",
		CodingChange:  "c.34G>T",
	}
	set, err := acmg.NewEvidenceSet(
		acmg.Evidence{Criterion: acmg.PS1, Strength: acmg.Strong},
		acmg.Evidence{Criterion: acmg.PM5, Strength: acmg.Moderate},
	)
	require.NoError(t, err)
	a := assigner.Assignment{
		Key:             k,
		Gene:            "KRAS",
		Mode:            acmg.AutosomalDominant,
		ProbandGenotype: evaluation.GenotypeHeterozygous,
		Evidence:        set,
		Classification:  acmg.ClassLikelyPathogenic,
		Diagnostics:     assigner.Diagnostics{PS1PM5Candidates: 3, Applied: []string{"PS1/PM5"}},
	}

	require.NoError(t, w.WriteMeta("run_id", "abc"))
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Write(e, a))
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "##run_id=abc", lines[0])
	assert.Equal(t, strings.Join(EvidenceColumns, "\t"), lines[1])

	fields := strings.Split(lines[2], "\t")
	require.Len(t, fields, len(EvidenceColumns))
	assert.Equal(t, "12-25245351-C-A", fields[0])
	assert.Equal(t, "KRAS", fields[1])
	assert.Equal(t, "c.34G>T", fields[3])
	assert.Equal(t, "p.Gly12Cys", fields[4])
	assert.Equal(t, "AD", fields[5])
	assert.Equal(t, "het", fields[6])
	assert.Equal(t, "PS1,PM5", fields[7])
	assert.Equal(t, "Likely pathogenic", fields[8])
	assert.Equal(t, "3", fields[9])
	assert.Equal(t, "PS1/PM5", fields[10])
}

func TestEvidenceWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	w := NewEvidenceWriter(&buf)

	k := variantkey.Key{Contig: 1, Pos: 100, Ref: "A", Alt: "G"}
	require.NoError(t, w.Write(&evaluation.VariantEvaluation{Key: k}, assigner.Assignment{
		Key:            k,
		Mode:           acmg.AnyInheritance,
		Classification: acmg.ClassUncertain,
	}))
	require.NoError(t, w.Flush())

	fields := strings.Split(strings.TrimSpace(buf.String()), "\t")
	assert.Equal(t, []string{"1-100-A-G", "-", "-", "-", "-", "ANY", "unknown", "-", "Uncertain significance", "0", "-"}, fields)
}

func TestClinVarWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewClinVarWriter(&buf)

	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Write(clinvar.Entry{
		Key: variantkey.Key{Contig: 17, Pos: 7674220, Ref: "C", Alt: "T"},
		Interpretation: clinvar.Interpretation{
			Primary:      clinvar.Pathogenic,
			Secondary:    []clinvar.ClinSig{clinvar.RiskFactor},
			ReviewStatus: "reviewed_by_expert_panel",
			Stars:        3,
		},
	}))
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "17-7674220-C-T\tPathogenic\trisk_factor\treviewed_by_expert_panel\t3", lines[1])
}
