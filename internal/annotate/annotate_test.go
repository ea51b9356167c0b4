package annotate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-acmg/internal/cache"
	"github.com/inodb/vibe-acmg/internal/variantkey"
)

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

// forwardTranscript has two exons; the CDS spans 1050-1100 and 1500-1600.
func forwardTranscript() *cache.Transcript {
	return &cache.Transcript{
		ID:          "ENST00000000001",
		GeneName:    "FWD",
		Chrom:       "1",
		Start:       1000,
		End:         2000,
		Strand:      1,
		Biotype:     "protein_coding",
		CDSStart:    1050,
		CDSEnd:      1600,
		CDSSequence: "ATGTGGGCT" + strings.Repeat("GCT", 47),
		Exons: []cache.Exon{
			{Number: 1, Start: 1000, End: 1100, CDSStart: 1050, CDSEnd: 1100, Frame: 0},
			{Number: 2, Start: 1500, End: 2000, CDSStart: 1500, CDSEnd: 1600, Frame: 0},
		},
	}
}

func key(t *testing.T, chrom string, pos int64, ref, alt string) variantkey.Key {
	t.Helper()
	k, err := variantkey.New(chrom, pos, ref, alt)
	require.NoError(t, err)
	return k
}

func TestTranslateCodon(t *testing.T) {
	tests := map[string]byte{
		"ATG": 'M', "TGG": 'W', "TAA": '*', "TAG": '*', "TGA": '*',
		"GGT": 'G', "TGT": 'C', "TTT": 'F', "AGA": 'R', "GGG": 'G', "NNN": 'X', "AT": 'X',
	}
	for codon, want := range tests {
		assert.Equal(t, string(want), string(TranslateCodon(codon)), codon)
	}
	assert.Len(t, codonTable, 64)
}

func TestCodonHelpers(t *testing.T) {
	assert.Equal(t, "GGT", GetCodon("ATGGGTTAA", 2))
	assert.Equal(t, "", GetCodon("ATGGGTTAA", 4))
	assert.Equal(t, "", GetCodon("ATG", 0))
	assert.Equal(t, "TGT", MutateCodon("GGT", 0, 'T'))
	assert.Equal(t, "GGT", MutateCodon("GGT", 3, 'T'))
	assert.Equal(t, "ACCGT", ReverseComplement("ACGGT"))
	assert.Equal(t, byte('N'), Complement('X'))
}

func TestGenomicToCDS(t *testing.T) {
	kras := krasTranscript()
	assert.Equal(t, int64(1), GenomicToCDS(25245384, kras))
	assert.Equal(t, int64(34), GenomicToCDS(25245351, kras))
	// first base of exon 3 in transcript order follows the 111 coding bases of exon 2
	assert.Equal(t, int64(112), GenomicToCDS(25227412, kras))
	assert.Equal(t, int64(0), GenomicToCDS(25240000, kras), "intronic")
	assert.Equal(t, int64(0), GenomicToCDS(25250800, kras), "UTR")

	fwd := forwardTranscript()
	assert.Equal(t, int64(1), GenomicToCDS(1050, fwd))
	assert.Equal(t, int64(52), GenomicToCDS(1500, fwd))

	codon, offset := CDSToCodonPosition(34)
	assert.Equal(t, int64(12), codon)
	assert.Equal(t, 0, offset)
	codon, offset = CDSToCodonPosition(36)
	assert.Equal(t, int64(12), codon)
	assert.Equal(t, 2, offset)
}

func TestPredictConsequenceKRAS(t *testing.T) {
	kras := krasTranscript()

	r := PredictConsequence(key(t, "12", 25245351, "C", "A"), kras)
	assert.Equal(t, ConsequenceMissenseVariant, r.Consequence)
	assert.Equal(t, ImpactModerate, r.Impact)
	assert.Equal(t, int64(34), r.CDSPosition)
	assert.Equal(t, int64(12), r.ProteinPosition)
	assert.Equal(t, "G12C", r.AminoAcidChange)
	assert.Equal(t, "Ggt/Tgt", r.CodonChange)
	assert.Equal(t, "p.Gly12Cys", r.HGVSp)
	assert.Equal(t, "c.34G>T", r.HGVSc)
	assert.Equal(t, "2/6", r.ExonNumber)

	// G12D: c.35G>A
	r = PredictConsequence(key(t, "12", 25245350, "C", "T"), kras)
	assert.Equal(t, "p.Gly12Asp", r.HGVSp)
	assert.Equal(t, "c.35G>A", r.HGVSc)

	// GGT>GGC keeps glycine
	r = PredictConsequence(key(t, "12", 25245349, "A", "G"), kras)
	assert.Equal(t, ConsequenceSynonymousVariant, r.Consequence)
	assert.Equal(t, "p.Gly12=", r.HGVSp)
	assert.Empty(t, r.AminoAcidChange)

	tests := []struct {
		pos  int64
		want string
	}{
		{25245390, Consequence5PrimeUTR},
		{25205300, Consequence3PrimeUTR},
		{25245273, ConsequenceSpliceDonor},
		{25245272, ConsequenceSpliceDonor},
		{25227413, ConsequenceSpliceAcceptor},
		{25245268, ConsequenceSpliceRegion + "," + ConsequenceIntronVariant},
		{25240000, ConsequenceIntronVariant},
		{25260000, ConsequenceUpstreamGene},
		{25200000, ConsequenceDownstreamGene},
	}
	for _, tt := range tests {
		r := PredictConsequence(key(t, "12", tt.pos, "A", "G"), kras)
		assert.Equal(t, tt.want, r.Consequence, "pos=%d", tt.pos)
	}
}

func TestPredictConsequenceForward(t *testing.T) {
	fwd := forwardTranscript()
	tests := []struct {
		name     string
		pos      int64
		ref, alt string
		want     string
		hgvsp    string
		hgvsc    string
	}{
		{"start lost", 1050, "A", "G", ConsequenceStartLost, "p.Met1?", "c.1A>G"},
		{"missense", 1053, "T", "A", ConsequenceMissenseVariant, "p.Trp2Arg", "c.4T>A"},
		{"stop gained", 1055, "G", "A", ConsequenceStopGained, "p.Trp2Ter", "c.6G>A"},
		{"synonymous", 1058, "T", "C", ConsequenceSynonymousVariant, "p.Ala3=", "c.9T>C"},
		{"exon edge", 1500, "G", "T", ConsequenceMissenseVariant + "," + ConsequenceSpliceRegion, "p.Ala18Ser", "c.52G>T"},
		{"frameshift", 1060, "GCT", "G", ConsequenceFrameshiftVariant, "", ""},
		{"inframe deletion", 1060, "GCTG", "G", ConsequenceInframeDeletion, "", ""},
		{"inframe insertion", 1060, "G", "GCTG", ConsequenceInframeInsertion, "", ""},
		{"donor", 1101, "G", "A", ConsequenceSpliceDonor, "", ""},
		{"acceptor", 1498, "G", "A", ConsequenceSpliceAcceptor, "", ""},
		{"5' UTR", 1020, "G", "A", Consequence5PrimeUTR, "", ""},
		{"3' UTR", 1700, "G", "A", Consequence3PrimeUTR, "", ""},
		{"upstream", 900, "G", "A", ConsequenceUpstreamGene, "", ""},
		{"downstream", 2100, "G", "A", ConsequenceDownstreamGene, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := PredictConsequence(key(t, "1", tt.pos, tt.ref, tt.alt), fwd)
			assert.Equal(t, tt.want, r.Consequence)
			assert.Equal(t, tt.hgvsp, r.HGVSp)
			assert.Equal(t, tt.hgvsc, r.HGVSc)
		})
	}
}

func TestSpliceSitesSkipTranscriptEnds(t *testing.T) {
	fwd := forwardTranscript()
	assert.Equal(t, ConsequenceSpliceDonor, spliceSiteType(1101, fwd))
	assert.Equal(t, ConsequenceSpliceAcceptor, spliceSiteType(1499, fwd))
	assert.Empty(t, spliceSiteType(999, fwd))
	assert.Empty(t, spliceSiteType(2001, fwd))

	kras := krasTranscript()
	assert.Equal(t, ConsequenceSpliceDonor, spliceSiteType(25245273, kras))
	assert.Empty(t, spliceSiteType(25250930, kras))
	assert.Empty(t, spliceSiteType(25205245, kras))
}

func TestPredictConsequenceNoSequence(t *testing.T) {
	fwd := forwardTranscript()
	fwd.CDSSequence = ""
	r := PredictConsequence(key(t, "1", 1053, "T", "A"), fwd)
	assert.Equal(t, ConsequenceCodingSequenceVariant, r.Consequence)
	assert.Equal(t, "c.4T>A", r.HGVSc)
	assert.Empty(t, r.HGVSp)
}

func TestGetImpact(t *testing.T) {
	assert.Equal(t, ImpactHigh, GetImpact(ConsequenceStopGained))
	assert.Equal(t, ImpactModerate, GetImpact(ConsequenceMissenseVariant+","+ConsequenceSpliceRegion))
	assert.Equal(t, ImpactLow, GetImpact(ConsequenceSpliceRegion+","+ConsequenceIntronVariant))
	assert.Equal(t, ImpactModifier, GetImpact("something_else"))
}

func newCache(ts ...*cache.Transcript) *cache.Cache {
	c := cache.New()
	for _, t := range ts {
		c.AddTranscript(t)
	}
	c.Index()
	return c
}

func TestAnnotatorSelectsPrimary(t *testing.T) {
	alt := krasTranscript()
	alt.ID = "ENST00000556131"
	alt.IsCanonical = false
	alt.CDSSequence = ""

	a := NewAnnotator(newCache(alt, krasTranscript()))
	anns, err := a.Annotate(key(t, "chr12", 25245351, "C", "A"))
	require.NoError(t, err)
	require.Len(t, anns, 2)

	primary := SelectPrimary(anns)
	assert.Equal(t, "ENST00000311936", primary.TranscriptID)
	assert.Equal(t, "p.Gly12Cys", primary.HGVSp)
	assert.Equal(t, ConsequenceMissenseVariant, primary.PrimaryConsequence())

	anns, err = a.Annotate(key(t, "7", 100, "C", "A"))
	require.NoError(t, err)
	require.Len(t, anns, 1)
	assert.Equal(t, ConsequenceIntergenicVariant, anns[0].Consequence)

	_, err = a.Annotate(variantkey.Key{Contig: 12, Pos: 1})
	assert.ErrorIs(t, err, ErrEmptyAlleles)
	assert.Nil(t, SelectPrimary(nil))
}

func TestSelectPrimaryPrefersMANE(t *testing.T) {
	anns := []*Annotation{
		{TranscriptID: "T3", Impact: ImpactHigh},
		{TranscriptID: "T2", IsCanonical: true, Impact: ImpactLow},
		{TranscriptID: "T1", IsMANESelect: true, Impact: ImpactModifier},
	}
	assert.Equal(t, "T1", SelectPrimary(anns).TranscriptID)
	assert.Equal(t, "T2", SelectPrimary(anns[:2]).TranscriptID)
	assert.Equal(t, "T3", SelectPrimary(anns[:1]).TranscriptID)
}

type countingLookup struct {
	c     *cache.Cache
	calls int
}

func (l *countingLookup) FindTranscripts(chrom string, pos int64) []*cache.Transcript {
	l.calls++
	return l.c.FindTranscripts(chrom, pos)
}

func TestReannotatorMemoises(t *testing.T) {
	lookup := &countingLookup{c: newCache(krasTranscript())}
	r, err := NewReannotator(NewAnnotator(lookup), 0)
	require.NoError(t, err)

	g12c := key(t, "12", 25245351, "C", "A")
	for i := 0; i < 3; i++ {
		got, ok, err := r.Reannotate(g12c)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, Reannotation{
			Gene:          "KRAS",
			TranscriptID:  "ENST00000311936",
			Effect:        ConsequenceMissenseVariant,
			ProteinChange: "p.Gly12Cys",
			CodingChange:  "c.34G>T",
		}, got)
		assert.True(t, got.IsMissense())
	}
	assert.Equal(t, 1, lookup.calls)

	_, ok, err := r.Reannotate(key(t, "1", 100, "A", "G"))
	require.NoError(t, err)
	assert.False(t, ok, "intergenic")
	_, ok, _ = r.Reannotate(key(t, "1", 100, "A", "G"))
	assert.False(t, ok)
	assert.Equal(t, 2, lookup.calls)

	hits, misses := r.CacheStats()
	assert.Equal(t, int64(3), hits)
	assert.Equal(t, int64(2), misses)

	_, _, err = r.Reannotate(variantkey.Key{Contig: 1, Pos: 5})
	assert.ErrorIs(t, err, ErrEmptyAlleles)
}
