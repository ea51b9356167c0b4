package genestats

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-acmg/internal/clinvar"
	"github.com/inodb/vibe-acmg/internal/duckdb"
	"github.com/inodb/vibe-acmg/internal/variantkey"
)

func TestNewGeneStatisticsValidates(t *testing.T) {
	_, err := NewGeneStatistics("", nil)
	assert.True(t, errors.Is(err, ErrEmptyGene))

	_, err = NewGeneStatistics("BRCA1", map[string]Counts{"": {clinvar.Pathogenic: 1}})
	assert.Error(t, err)
}

func TestGeneStatisticsIsImmutable(t *testing.T) {
	src := map[string]Counts{MissenseVariant: {clinvar.Pathogenic: 3}}
	g, err := NewGeneStatistics("TP53", src)
	require.NoError(t, err)

	src[MissenseVariant][clinvar.Pathogenic] = 99
	assert.Equal(t, uint64(3), g.Count(MissenseVariant, clinvar.Pathogenic))

	c := g.Counts(MissenseVariant)
	c[clinvar.Pathogenic] = 42
	assert.Equal(t, uint64(3), g.Count(MissenseVariant, clinvar.Pathogenic))
}

func TestRatios(t *testing.T) {
	tests := []struct {
		name       string
		counts     Counts
		wantPath   float64
		wantBenign float64
	}{
		{"mostly pathogenic", Counts{clinvar.Pathogenic: 10, clinvar.Benign: 1}, 10.0 / 11, 1.0 / 11},
		{"balanced", Counts{clinvar.Pathogenic: 100, clinvar.Benign: 95}, 100.0 / 195, 95.0 / 195},
		{"vus excluded", Counts{clinvar.Pathogenic: 1, clinvar.UncertainSignificance: 1000}, 1, 0},
		{"combined labels", Counts{clinvar.PathogenicOrLikelyPathogenic: 2, clinvar.LikelyPathogenic: 2, clinvar.BenignOrLikelyBenign: 1, clinvar.LikelyBenign: 3}, 0.5, 0.5},
		{"only vus", Counts{clinvar.UncertainSignificance: 7}, 0, 0},
		{"empty", Counts{}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGeneStatistics("G", map[string]Counts{MissenseVariant: tt.counts})
			require.NoError(t, err)
			assert.InDelta(t, tt.wantPath, g.PathogenicRatio(MissenseVariant), 1e-9)
			assert.InDelta(t, tt.wantBenign, g.BenignRatio(MissenseVariant), 1e-9)
		})
	}
}

func TestTruncatingRatioPoolsEffects(t *testing.T) {
	g, err := NewGeneStatistics("G", map[string]Counts{
		StopGained:        {clinvar.Pathogenic: 5},
		FrameshiftVariant: {clinvar.LikelyPathogenic: 4},
		StartLost:         {clinvar.Benign: 1},
		MissenseVariant:   {clinvar.Benign: 100},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.9, g.PathogenicRatio(TruncatingEffects...), 1e-9)
	assert.Equal(t, uint64(100), g.Total(MissenseVariant))
	assert.Equal(t, []string{FrameshiftVariant, MissenseVariant, StartLost, StopGained}, g.Effects())
}

func TestBuilder(t *testing.T) {
	b := NewBuilder()
	assert.True(t, b.Add("BRCA2", MissenseVariant, clinvar.Pathogenic))
	assert.True(t, b.Add("BRCA2", MissenseVariant, clinvar.Pathogenic))
	assert.True(t, b.Add("BRCA2", StopGained, clinvar.LikelyPathogenic))
	assert.True(t, b.Add("ATM", MissenseVariant, clinvar.Benign))
	assert.False(t, b.Add("", MissenseVariant, clinvar.Benign))
	assert.False(t, b.Add("ATM", "", clinvar.Benign))

	rec := clinvar.Record{
		Key:            variantkey.Key{Contig: 13, Pos: 1, Ref: "A", Alt: "G"},
		Interpretation: clinvar.Interpretation{Primary: clinvar.Benign},
		Genes:          []string{"ATM", "NPAT"},
		Consequences:   []string{"synonymous_variant", MissenseVariant},
	}
	assert.True(t, b.AddRecord(rec))
	assert.False(t, b.AddRecord(clinvar.Record{Consequences: []string{MissenseVariant}}))
	assert.Equal(t, 3, b.Skipped())

	stats := b.Build()
	require.Len(t, stats, 2)
	assert.Equal(t, "ATM", stats[0].Gene())
	assert.Equal(t, uint64(1), stats[0].Count("synonymous_variant", clinvar.Benign))
	assert.Equal(t, uint64(0), stats[0].Count("synonymous_variant", clinvar.Pathogenic))
	assert.Equal(t, "BRCA2", stats[1].Gene())
	assert.Equal(t, uint64(2), stats[1].Count(MissenseVariant, clinvar.Pathogenic))
	assert.Equal(t, uint64(1), stats[1].Count(StopGained, clinvar.LikelyPathogenic))
}

func TestStoreWriteAndGet(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()

	b := NewBuilder()
	for i := 0; i < 10; i++ {
		b.Add("PKD1", MissenseVariant, clinvar.Pathogenic)
	}
	b.Add("PKD1", MissenseVariant, clinvar.Benign)
	b.Add("PKD1", StopGained, clinvar.Pathogenic)
	b.Add("MUC16", MissenseVariant, clinvar.UncertainSignificance)

	meta := duckdb.NewMeta(duckdb.FileFingerprint{Path: "x", Size: 1, ModTime: time.Unix(5, 0)})
	require.NoError(t, s.Write(b.Build(), meta))

	for _, preload := range []bool{false, true} {
		if preload {
			require.NoError(t, s.Preload())
		}
		g, ok, err := s.Get("PKD1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, uint64(10), g.Count(MissenseVariant, clinvar.Pathogenic))
		assert.Equal(t, uint64(1), g.Count(StopGained, clinvar.Pathogenic))
		assert.InDelta(t, 10.0/11, g.PathogenicRatio(MissenseVariant), 1e-9)

		_, ok, err = s.Get("NOPE")
		require.NoError(t, err)
		assert.False(t, ok)

		n, err := s.GeneCount()
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	}

	m, ok, err := s.Meta()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, meta.BuildID, m.BuildID)
}

func TestStoreGetError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := New(duckdb.Wrap(db))
	mock.ExpectQuery(regexp.QuoteMeta("FROM gene_stats WHERE gene = ?")).
		WithArgs("BRCA1").
		WillReturnError(errors.New("io error"))

	_, ok, err := s.Get("BRCA1")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreWriteReplaces(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()

	b := NewBuilder()
	b.Add("PKD1", MissenseVariant, clinvar.Pathogenic)
	b.Add("TP53", MissenseVariant, clinvar.Benign)
	require.NoError(t, s.Write(b.Build(), duckdb.NewMeta(duckdb.FileFingerprint{Path: "old"})))

	b = NewBuilder()
	b.Add("BRCA2", StopGained, clinvar.Pathogenic)
	meta := duckdb.NewMeta(duckdb.FileFingerprint{Path: "new"})
	require.NoError(t, s.Write(b.Build(), meta))

	n, err := s.GeneCount()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, ok, err := s.Get("PKD1")
	require.NoError(t, err)
	assert.False(t, ok)

	m, _, err := s.Meta()
	require.NoError(t, err)
	assert.Equal(t, meta.BuildID, m.BuildID)
}

func TestStoreWriteFailureLeavesTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := New(duckdb.Wrap(db))
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS gene_stats_staging")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS gene_stats_staging")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	// the appender cannot attach to a non-DuckDB connection; only the
	// staging table may be dropped afterwards
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS gene_stats_staging")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	b := NewBuilder()
	b.Add("PKD1", MissenseVariant, clinvar.Pathogenic)
	err = s.Write(b.Build(), duckdb.NewMeta(duckdb.FileFingerprint{Path: "x"}))
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
