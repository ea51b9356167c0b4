package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-acmg/internal/cache"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

const revMulti = "criteria_provided,_multiple_submitters,_no_conflicts"

// testEnv is a config file pointing every store into a temp directory.
func testEnv(t *testing.T) (dir, cfg string) {
	t.Helper()
	dir = t.TempDir()
	cfg = writeFile(t, dir, "config.yaml", "data_dir: "+dir)
	return dir, cfg
}

func writeClinVar(t *testing.T, dir string) string {
	return writeFile(t, dir, "clinvar.vcf",
		"##fileformat=VCFv4.1",
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO",
		// G12C and G12D
		"12\t25245350\t12582\tC\tT\t.\t.\tGENEINFO=KRAS:3845;MC=SO:0001583|missense_variant;CLNSIG=Pathogenic;CLNREVSTAT="+revMulti,
		"12\t25245351\t12583\tC\tA\t.\t.\tGENEINFO=KRAS:3845;MC=SO:0001583|missense_variant;CLNSIG=Pathogenic;CLNREVSTAT="+revMulti,
		"chrUn\t5\t1\tA\tG\t.\t.\tCLNSIG=Pathogenic",
	)
}

func TestBuildAndQuery(t *testing.T) {
	dir, cfg := testEnv(t)
	vcfPath := writeClinVar(t, dir)

	out, err := execute(t, "--config", cfg, "build", vcfPath)
	require.NoError(t, err)
	assert.Contains(t, out, "ClinVar entries: 2")
	assert.Contains(t, out, "Genes:           1")
	assert.Contains(t, out, "unknown_contig")
	assert.FileExists(t, filepath.Join(dir, "grch38", "clinvar.duckdb"))

	out, err = execute(t, "--config", cfg, "build", vcfPath)
	require.NoError(t, err)
	assert.Contains(t, out, "up to date")

	out, err = execute(t, "--config", cfg, "query", "variant", "12-25245351-C-A", "12-1-A-G")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "12-25245351-C-A\tPathogenic"))

	out, err = execute(t, "--config", cfg, "query", "region", "chr12:25245349", "--padding", "2")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 3)

	out, err = execute(t, "--config", cfg, "query", "gene", "KRAS")
	require.NoError(t, err)
	assert.Contains(t, out, "KRAS\tmissense_variant\tPathogenic\t2")

	out, err = execute(t, "--config", cfg, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "2 variants")
	assert.Contains(t, out, "1 genes")
	assert.Contains(t, out, vcfPath)
	assert.Contains(t, out, "transcripts  not built")
}

func TestAssign(t *testing.T) {
	dir, cfg := testEnv(t)
	_, err := execute(t, "--config", cfg, "build", writeClinVar(t, dir))
	require.NoError(t, err)

	tx, err := cache.OpenStore(filepath.Join(dir, "grch38", "transcripts.duckdb"))
	require.NoError(t, err)
	require.NoError(t, tx.Write([]*cache.Transcript{krasTranscript()}))
	require.NoError(t, tx.Close())

	ped := writeFile(t, dir, "family.ped",
		"FAM1\tP1\tF1\tM1\t1\t2",
		"FAM1\tF1\t0\t0\t1\t1",
		"FAM1\tM1\t0\t0\t2\t1",
	)
	input := writeFile(t, dir, "input.vcf",
		"##fileformat=VCFv4.2",
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tP1\tF1\tM1",
		// G12V
		"12\t25245350\t.\tC\tA\t50\tPASS\t.\tGT\t0/1\t0/0\t0/0",
	)

	out, err := execute(t, "--config", cfg, "assign", "--ped", ped, "--proband", "P1", "-m", "AD,AR", input)
	require.NoError(t, err)

	var rows []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if !strings.HasPrefix(line, "#") {
			rows = append(rows, line)
		}
	}
	assert.Contains(t, out, "##run_id=")
	require.Len(t, rows, 2)
	for i, mode := range []string{"AD", "AR"} {
		f := strings.Split(rows[i], "\t")
		assert.Equal(t, "12-25245350-C-A", f[0])
		assert.Equal(t, "KRAS", f[1])
		assert.Equal(t, "p.Gly12Val", f[4])
		assert.Equal(t, mode, f[5])
		assert.Equal(t, "het", f[6])
		assert.Equal(t, "PM2_supporting,PM5,PP2", f[7])
		assert.Equal(t, "Uncertain significance", f[8])
		assert.Equal(t, "2", f[9])
	}

	_, err = execute(t, "--config", cfg, "assign", "--ped", ped, "--proband", "NOPE", input)
	var ue usageError
	assert.True(t, errors.As(err, &ue))
}

func TestAssignWithoutStores(t *testing.T) {
	dir, cfg := testEnv(t)
	ped := writeFile(t, dir, "family.ped", "FAM1\tP1\t0\t0\t1\t2")
	input := writeFile(t, dir, "input.vcf", "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO")

	_, err := execute(t, "--config", cfg, "assign", "--ped", ped, "--proband", "P1", input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vibe-acmg build")
}

func TestRunExitCodes(t *testing.T) {
	viper.Reset()
	assert.Equal(t, ExitSuccess, run([]string{"--version"}))
	viper.Reset()
	assert.Equal(t, ExitUsage, run([]string{"build", "--no-such-flag", "x"}))
	viper.Reset()
	assert.Equal(t, ExitUsage, run([]string{"build", filepath.Join(t.TempDir(), "missing.vcf")}))
}

func TestParseRegion(t *testing.T) {
	chrom, start, end, err := parseRegion("chr12:100-200")
	require.NoError(t, err)
	assert.Equal(t, "chr12", chrom)
	assert.Equal(t, int64(100), start)
	assert.Equal(t, int64(200), end)

	_, start, end, err = parseRegion("X:5")
	require.NoError(t, err)
	assert.Equal(t, start, end)

	for _, bad := range []string{"12", ":5", "12:a-5", "12:5-b", "12:9-5"} {
		_, _, _, err := parseRegion(bad)
		assert.Error(t, err, bad)
	}
}

func TestConfigSetAndShow(t *testing.T) {
	dir, cfg := testEnv(t)
	_, err := execute(t, "--config", cfg, "config", "set", "thresholds.bs2_dominant_max_count", "3")
	require.NoError(t, err)

	out, err := execute(t, "--config", cfg, "config", "get", "thresholds.bs2_dominant_max_count")
	require.NoError(t, err)
	assert.Equal(t, "3", strings.TrimSpace(out))

	out, err = execute(t, "--config", cfg, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "bs2_dominant_max_count: 3")
	assert.Contains(t, out, "pp2_min_pathogenic_ratio: 0.808")
	assert.Contains(t, out, "data_dir: "+dir)

	_, err = execute(t, "--config", cfg, "config", "set", "thresholds.bp7_max_phylop", "high")
	assert.Error(t, err)
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, true, parseValue("yes"))
	assert.Equal(t, false, parseValue("off"))
	assert.Equal(t, int64(3), parseValue("3"))
	assert.Equal(t, 0.25, parseValue("0.25"))
	assert.Equal(t, "/data/x.duckdb", parseValue("/data/x.duckdb"))
}

func TestGENCODEHelpers(t *testing.T) {
	gtf, fa := gencodeURLs("GRCh37")
	assert.Contains(t, gtf, "lift37.annotation.gtf.gz")
	assert.Contains(t, fa, "lift37.pc_transcripts.fa.gz")
	gtf, _ = gencodeURLs("GRCh38")
	assert.True(t, strings.HasSuffix(gtf, "gencode.v46.annotation.gtf.gz"))

	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.5 KB", formatSize(1536))
	assert.Equal(t, "2.0 MB", formatSize(2*1024*1024))

	dir := t.TempDir()
	_, _, _, ok := findGENCODEFiles(dir, "GRCh38")
	assert.False(t, ok)
	writeFile(t, dir, "gencode.v46.annotation.gtf.gz", "")
	writeFile(t, dir, cache.CanonicalFileName, "")
	g, f, c, ok := findGENCODEFiles(dir, "GRCh38")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "gencode.v46.annotation.gtf.gz"), g)
	assert.Empty(t, f)
	assert.Equal(t, filepath.Join(dir, cache.CanonicalFileName), c)
}

func krasTranscript() *cache.Transcript {
	return &cache.Transcript{
		ID:          "ENST00000311936",
		GeneID:      "ENSG00000133703",
		GeneName:    "KRAS",
		Chrom:       "12",
		Start:       25205246,
		End:         25250929,
		Strand:      -1,
		Biotype:     "protein_coding",
		IsCanonical: true,
		CDSStart:    25209798,
		CDSEnd:      25245384,
		CDSSequence: "ATGACTGAATATAAACTTGTGGTAGTTGGAGCTGGT",
		Exons: []cache.Exon{
			{Number: 1, Start: 25250751, End: 25250929, Frame: -1},
			{Number: 2, Start: 25245274, End: 25245395, CDSStart: 25245274, CDSEnd: 25245384, Frame: 0},
			{Number: 3, Start: 25227234, End: 25227412, CDSStart: 25227234, CDSEnd: 25227412, Frame: 2},
			{Number: 4, Start: 25225614, End: 25225773, CDSStart: 25225614, CDSEnd: 25225773, Frame: 1},
			{Number: 5, Start: 25209798, End: 25209911, CDSStart: 25209798, CDSEnd: 25209911, Frame: 0},
			{Number: 6, Start: 25205246, End: 25205332, Frame: -1},
		},
	}
}
