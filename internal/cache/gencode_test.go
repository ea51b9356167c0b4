package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGTF = `##description: test
chr1	HAVANA	gene	1000	2000	.	+	.	gene_id "ENSG1.1"; gene_name "FWD";
chr1	HAVANA	transcript	1000	2000	.	+	.	gene_id "ENSG1.1"; transcript_id "ENST1.3"; gene_name "FWD"; transcript_type "protein_coding"; tag "basic"; tag "Ensembl_canonical"; tag "MANE_Select";
chr1	HAVANA	exon	1000	1100	.	+	.	gene_id "ENSG1.1"; transcript_id "ENST1.3"; exon_number 1;
chr1	HAVANA	exon	1500	2000	.	+	.	gene_id "ENSG1.1"; transcript_id "ENST1.3"; exon_number 2;
chr1	HAVANA	CDS	1050	1100	.	+	0	gene_id "ENSG1.1"; transcript_id "ENST1.3"; exon_number 1;
chr1	HAVANA	CDS	1500	1597	.	+	0	gene_id "ENSG1.1"; transcript_id "ENST1.3"; exon_number 2;
chr1	HAVANA	stop_codon	1598	1600	.	+	0	gene_id "ENSG1.1"; transcript_id "ENST1.3"; exon_number 2;
chr1	HAVANA	transcript	3000	4000	.	-	.	gene_id "ENSG2.1"; transcript_id "ENST2.1"; gene_name "LNC"; transcript_type "lncRNA";
chr1	HAVANA	exon	3000	4000	.	-	.	gene_id "ENSG2.1"; transcript_id "ENST2.1"; exon_number 1;
chr1	HAVANA	exon	bad	4000	.	-	.	gene_id "ENSG2.1"; transcript_id "ENST2.1"; exon_number 1;
`

func TestParseGTF(t *testing.T) {
	ts, err := ParseGTF(strings.NewReader(testGTF))
	require.NoError(t, err)
	require.Len(t, ts, 1, "non-coding transcripts are dropped")

	tx := ts[0]
	assert.Equal(t, "ENST1", tx.ID)
	assert.Equal(t, "ENSG1", tx.GeneID)
	assert.Equal(t, "FWD", tx.GeneName)
	assert.Equal(t, "1", tx.Chrom)
	assert.Equal(t, int8(1), tx.Strand)
	assert.True(t, tx.IsCanonical)
	assert.True(t, tx.IsMANESelect)
	assert.Equal(t, int64(1050), tx.CDSStart)
	assert.Equal(t, int64(1600), tx.CDSEnd)

	require.Len(t, tx.Exons, 2)
	assert.Equal(t, Exon{Number: 1, Start: 1000, End: 1100, CDSStart: 1050, CDSEnd: 1100, Frame: 0}, tx.Exons[0])
	// 51 coding bases in exon 1
	assert.Equal(t, Exon{Number: 2, Start: 1500, End: 2000, CDSStart: 1500, CDSEnd: 1600, Frame: 0}, tx.Exons[1])
}

func TestParseCDSFASTA(t *testing.T) {
	fa := ">ENST1.3|ENSG1.1|-|-|FWD-201|FWD|10|UTR5:1-2|CDS:3-8|UTR3:9-10|\n" +
		"GGATG\nAAATT\n" +
		">ENST2.1 some description\nACGT\n"
	seqs, err := ParseCDSFASTA(strings.NewReader(fa))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ENST1": "ATGAAA", "ENST2": "ACGT"}, seqs)
}

func TestLoadGENCODE(t *testing.T) {
	dir := t.TempDir()
	gtf := filepath.Join(dir, "test.gtf")
	fa := filepath.Join(dir, "test.fa")
	require.NoError(t, os.WriteFile(gtf, []byte(testGTF), 0644))
	require.NoError(t, os.WriteFile(fa, []byte(">ENST1.3|x|CDS:1-3|\nATG\n"), 0644))

	ts, err := LoadGENCODE(gtf, fa)
	require.NoError(t, err)
	require.Len(t, ts, 1)
	assert.Equal(t, "ATG", ts[0].CDSSequence)

	_, err = LoadGENCODE(filepath.Join(dir, "missing.gtf"), "")
	assert.Error(t, err)
}
