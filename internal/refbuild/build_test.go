package refbuild

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-acmg/internal/clinvar"
	"github.com/inodb/vibe-acmg/internal/genestats"
	"github.com/inodb/vibe-acmg/internal/variantkey"
)

const revMulti = "criteria_provided,_multiple_submitters,_no_conflicts"

var clinvarLines = []string{
	"##fileformat=VCFv4.1",
	`##INFO=<ID=CLNSIG,Number=.,Type=String,Description="Aggregate germline classification">`,
	`##INFO=<ID=MC,Number=.,Type=String,Description="molecular consequence">`,
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO",
	"12\t25245350\t12582\tC\tA\t.\t.\tGENEINFO=KRAS:3845;MC=SO:0001583|missense_variant;CLNSIG=Pathogenic;CLNREVSTAT=" + revMulti,
	"12\t25245351\t12583\tC\tA\t.\t.\tGENEINFO=KRAS:3845;MC=SO:0001583|missense_variant;CLNSIG=Likely_pathogenic;CLNREVSTAT=" + revMulti,
	"12\t25245352\t12584\tC\tT\t.\t.\tGENEINFO=KRAS:3845;MC=SO:0001583|missense_variant,SO:0001819|synonymous_variant;CLNSIG=Benign;CLNREVSTAT=criteria_provided,_single_submitter",
	"12\t25245360\t12585\tG\tA\t.\t.\tGENEINFO=KRAS:3845|LOC1:1;MC=SO:0001587|stop_gained;CLNSIG=Pathogenic;CLNREVSTAT=reviewed_by_expert_panel",
	// no gene info: stored, not counted
	"12\t25245370\t12586\tA\tG\t.\t.\tCLNSIG=Uncertain_significance;CLNREVSTAT=no_assertion_criteria_provided",
	// duplicate key
	"12\t25245350\t99999\tC\tA\t.\t.\tGENEINFO=KRAS:3845;MC=SO:0001583|missense_variant;CLNSIG=Benign",
	// skipped
	"NW_009646201.1\t100\t1\tA\tG\t.\t.\tGENEINFO=X:1;MC=SO:0001583|missense_variant;CLNSIG=Pathogenic",
	"1\t100\t2\tA\t.\t.\t.\tCLNSIG=not_provided",
	"1\tnotanumber\t3\tA\tG\t.\t.\tCLNSIG=Pathogenic",
	"17\t7674220\t376\tC\tT\t.\t.\tGENEINFO=TP53:7157;MC=SO:0001583|missense_variant;CLNSIG=Pathogenic/Likely_pathogenic;CLNREVSTAT=" + revMulti,
}

func writeVCF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clinvar.vcf")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(clinvarLines, "\n")+"\n"), 0644))
	return path
}

func openStores(t *testing.T) (*clinvar.Store, *genestats.Store) {
	t.Helper()
	cv, err := clinvar.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { cv.Close() })
	gs, err := genestats.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { gs.Close() })
	return cv, gs
}

func TestRun(t *testing.T) {
	cv, gs := openStores(t)
	path := writeVCF(t)

	rep, err := NewBuilder(cv, gs).Run(path)
	require.NoError(t, err)

	assert.NotEmpty(t, rep.BuildID)
	assert.Equal(t, 10, rep.Lines)
	assert.Equal(t, 9, rep.Records)
	assert.Equal(t, 6, rep.Stored)
	assert.Equal(t, 2, rep.Genes)
	assert.Equal(t, map[string]int{
		SkipMalformedLine: 1,
		SkipNoAlt:         1,
		SkipUnknownContig: 1,
		SkipDuplicate:     1,
		SkipMissingGene:   1,
	}, rep.Skipped)
	assert.Equal(t, 5, rep.SkippedTotal())
	assert.Equal(t, []string{SkipDuplicate, SkipMalformedLine, SkipMissingGene, SkipNoAlt, SkipUnknownContig}, rep.Reasons())

	// first record of a duplicate key wins
	in, ok, err := cv.Get(variantkey.Key{Contig: 12, Pos: 25245350, Ref: "C", Alt: "A"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, clinvar.Pathogenic, in.Primary)
	assert.Equal(t, 2, in.Stars)

	_, ok, err = cv.Get(variantkey.Key{Contig: 12, Pos: 25245370, Ref: "A", Alt: "G"})
	require.NoError(t, err)
	assert.True(t, ok, "records without gene info are still stored")

	kras, ok, err := gs.Get("KRAS")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(1), kras.Count(genestats.MissenseVariant, clinvar.Pathogenic))
	assert.Equal(t, uint64(1), kras.Count(genestats.MissenseVariant, clinvar.LikelyPathogenic))
	assert.Equal(t, uint64(1), kras.Count(genestats.MissenseVariant, clinvar.Benign))
	assert.Equal(t, uint64(1), kras.Count(genestats.StopGained, clinvar.Pathogenic))
	assert.Zero(t, kras.Count("synonymous_variant", clinvar.Benign), "only the first consequence is counted")

	_, ok, err = gs.Get("LOC1")
	require.NoError(t, err)
	assert.False(t, ok, "only the first gene is counted")

	upToDate, err := UpToDate(cv, gs, path)
	require.NoError(t, err)
	assert.True(t, upToDate)

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))
	upToDate, err = UpToDate(cv, gs, path)
	require.NoError(t, err)
	assert.False(t, upToDate)
}

func TestRunReplaces(t *testing.T) {
	cv, gs := openStores(t)
	path := writeVCF(t)
	b := NewBuilder(cv, gs)

	_, err := b.Run(path)
	require.NoError(t, err)
	rep, err := b.Run(path)
	require.NoError(t, err)

	n, err := cv.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(rep.Stored), n)

	genes, err := gs.GeneCount()
	require.NoError(t, err)
	assert.Equal(t, int64(2), genes)
}

func TestRunMissingFile(t *testing.T) {
	cv, gs := openStores(t)
	_, err := NewBuilder(cv, gs).Run(filepath.Join(t.TempDir(), "missing.vcf"))
	assert.Error(t, err)

	ok, err := UpToDate(cv, gs, writeVCF(t))
	require.NoError(t, err)
	assert.False(t, ok, "empty stores have no metadata")
}
