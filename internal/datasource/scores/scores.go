// Package scores serves per-position conservation (PhyloP) and per-allele
// missense pathogenicity (AlphaMissense) scores from a DuckDB store.
//
// AlphaMissense data is loaded from the official TSV release (Cheng et al.,
// Science 2023, CC BY 4.0); PhyloP from a bedGraph.
package scores

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-acmg/internal/duckdb"
	"github.com/inodb/vibe-acmg/internal/variantkey"
)

// AlphaMissense classes.
const (
	ClassLikelyBenign     = "likely_benign"
	ClassAmbiguous        = "ambiguous"
	ClassLikelyPathogenic = "likely_pathogenic"
)

var classNames = [3]string{ClassLikelyBenign, ClassAmbiguous, ClassLikelyPathogenic}

func encodeClass(class string) uint8 {
	switch class {
	case ClassLikelyBenign:
		return 0
	case ClassLikelyPathogenic:
		return 2
	}
	return 1
}

func encodeBase(b byte) (uint8, bool) {
	switch b {
	case 'A', 'a':
		return 0, true
	case 'C', 'c':
		return 1, true
	case 'G', 'g':
		return 2, true
	case 'T', 't':
		return 3, true
	}
	return 0, false
}

// encodeRefAlt packs a substitution into four bits. ok is false unless both
// bases are A, C, G or T.
func encodeRefAlt(ref, alt byte) (uint8, bool) {
	r, ok := encodeBase(ref)
	if !ok {
		return 0, false
	}
	a, ok := encodeBase(alt)
	if !ok {
		return 0, false
	}
	return r<<2 | a, true
}

// amEntry is a compact in-memory AlphaMissense record.
type amEntry struct {
	pos    int64
	refAlt uint8 // encodeRefAlt(ref, alt)
	class  uint8
	score  float32
}

// phylopEntry covers the 1-based closed range [start, end].
type phylopEntry struct {
	start, end int64
	score      float32
}

// Result holds a single AlphaMissense lookup result.
type Result struct {
	Score float64
	Class string
}

// Store provides score lookups backed by DuckDB, optionally preloaded into
// sorted in-memory slices.
type Store struct {
	db     *duckdb.Store
	am     map[uint8][]amEntry     // nil unless preloaded
	phylop map[uint8][]phylopEntry // nil unless preloaded
	logger *zap.Logger
}

// Open opens or creates a scores store. Empty path is in-memory.
func Open(path string) (*Store, error) {
	db, err := duckdb.Open(path)
	if err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure scores schema: %w", err)
	}
	return New(db), nil
}

// New wraps an already-open database that holds the score tables.
func New(db *duckdb.Store) *Store {
	return &Store{db: db, logger: zap.NewNop()}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger *zap.Logger) {
	s.logger = logger
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func ensureSchema(db *duckdb.Store) error {
	_, err := db.DB().Exec(`
		CREATE TABLE IF NOT EXISTS alphamissense (
			chrom_id UTINYINT,
			pos BIGINT,
			ref VARCHAR,
			alt VARCHAR,
			am_pathogenicity FLOAT,
			am_class VARCHAR
		);
		CREATE TABLE IF NOT EXISTS phylop (
			chrom_id UTINYINT,
			start BIGINT,
			end_ BIGINT,
			score FLOAT
		);
	`)
	return err
}

// contigSQL maps a contig column to the key contig identifier; unknown
// contigs become NULL or out of range and are dropped by the loaders.
func contigSQL(col string) string {
	name := fmt.Sprintf(`regexp_replace(%s, '^chr', '')`, col)
	return fmt.Sprintf(`CASE %[1]s WHEN 'X' THEN %[2]d WHEN 'Y' THEN %[3]d WHEN 'M' THEN %[4]d WHEN 'MT' THEN %[4]d
		ELSE TRY_CAST(TRY_CAST(%[1]s AS INTEGER) AS UTINYINT) END`,
		name, variantkey.ContigX, variantkey.ContigY, variantkey.ContigMT)
}

func quotePath(path string) string {
	return "'" + strings.ReplaceAll(path, "'", "''") + "'"
}

// LoadAlphaMissense replaces the AlphaMissense table with the contents of
// an AlphaMissense_hg38.tsv(.gz) release file. The file has 3 comment lines,
// then a header:
//
//	#CHROM  POS  REF  ALT  genome  uniprot_id  transcript_id  protein_variant  am_pathogenicity  am_class
//
// Rows repeat per transcript with identical scores; they are deduplicated.
func (s *Store) LoadAlphaMissense(tsvPath string) (int64, error) {
	if _, err := s.db.DB().Exec(`DELETE FROM alphamissense`); err != nil {
		return 0, fmt.Errorf("clear alphamissense: %w", err)
	}
	query := fmt.Sprintf(`INSERT INTO alphamissense
		SELECT DISTINCT chrom_id, pos, ref, alt, score, class FROM (
			SELECT %s AS chrom_id, column1 AS pos, column2 AS ref, column3 AS alt,
				CAST(column8 AS FLOAT) AS score, column9 AS class
			FROM read_csv(%s, delim='\t', header=false, skip=4,
				columns={
					'column0': 'VARCHAR', 'column1': 'BIGINT', 'column2': 'VARCHAR',
					'column3': 'VARCHAR', 'column4': 'VARCHAR', 'column5': 'VARCHAR',
					'column6': 'VARCHAR', 'column7': 'VARCHAR', 'column8': 'VARCHAR',
					'column9': 'VARCHAR'
				})
		) WHERE chrom_id BETWEEN 1 AND %d`, contigSQL("column0"), quotePath(tsvPath), variantkey.ContigMT)

	res, err := s.db.DB().Exec(query)
	if err != nil {
		return 0, fmt.Errorf("load AlphaMissense data: %w", err)
	}
	n, _ := res.RowsAffected()
	s.logger.Info("loaded AlphaMissense scores", zap.String("path", tsvPath), zap.Int64("rows", n))
	return n, s.db.Checkpoint()
}

// LoadPhyloP replaces the PhyloP table with a bedGraph file
// (chrom, 0-based start, end, score). Malformed rows, including track
// lines, are skipped.
func (s *Store) LoadPhyloP(bedGraphPath string) (int64, error) {
	if _, err := s.db.DB().Exec(`DELETE FROM phylop`); err != nil {
		return 0, fmt.Errorf("clear phylop: %w", err)
	}
	query := fmt.Sprintf(`INSERT INTO phylop
		SELECT chrom_id, start, end_, score FROM (
			SELECT %s AS chrom_id, column1 + 1 AS start, column2 AS end_,
				CAST(column3 AS FLOAT) AS score
			FROM read_csv(%s, delim='\t', header=false,
				ignore_errors=true,
				columns={
					'column0': 'VARCHAR', 'column1': 'BIGINT',
					'column2': 'BIGINT', 'column3': 'DOUBLE'
				})
		) WHERE chrom_id BETWEEN 1 AND %d`, contigSQL("column0"), quotePath(bedGraphPath), variantkey.ContigMT)

	res, err := s.db.DB().Exec(query)
	if err != nil {
		return 0, fmt.Errorf("load PhyloP data: %w", err)
	}
	n, _ := res.RowsAffected()
	s.logger.Info("loaded PhyloP scores", zap.String("path", bedGraphPath), zap.Int64("intervals", n))
	return n, s.db.Checkpoint()
}

// Counts returns the number of AlphaMissense rows and PhyloP intervals.
func (s *Store) Counts() (alphaMissense, phyloP int64, err error) {
	err = s.db.DB().QueryRow(`SELECT
		(SELECT COUNT(*) FROM alphamissense),
		(SELECT COUNT(*) FROM phylop)`).Scan(&alphaMissense, &phyloP)
	if err != nil {
		return 0, 0, fmt.Errorf("count scores: %w", err)
	}
	return alphaMissense, phyloP, nil
}

// AlphaMissense returns the score of a single-base substitution.
func (s *Store) AlphaMissense(k variantkey.Key) (Result, bool, error) {
	if !k.IsSNV() {
		return Result{}, false, nil
	}
	if s.am != nil {
		r, ok := s.lookupAlphaMissense(k)
		return r, ok, nil
	}

	rows, err := s.db.DB().Query(`SELECT am_pathogenicity, am_class FROM alphamissense
		WHERE chrom_id = ? AND pos = ? AND ref = ? AND alt = ? LIMIT 1`,
		k.Contig, k.Pos, k.Ref, k.Alt)
	if err != nil {
		return Result{}, false, fmt.Errorf("query alphamissense %s: %w", k, err)
	}
	defer rows.Close()
	if !rows.Next() {
		return Result{}, false, rows.Err()
	}
	var r Result
	if err := rows.Scan(&r.Score, &r.Class); err != nil {
		return Result{}, false, fmt.Errorf("scan alphamissense: %w", err)
	}
	return r, true, nil
}

// PhyloP returns the conservation score at the key's position.
func (s *Store) PhyloP(k variantkey.Key) (float64, bool, error) {
	if s.phylop != nil {
		v, ok := s.lookupPhyloP(k)
		return v, ok, nil
	}

	rows, err := s.db.DB().Query(`SELECT score FROM phylop
		WHERE chrom_id = ? AND start <= ? AND end_ >= ? LIMIT 1`,
		k.Contig, k.Pos, k.Pos)
	if err != nil {
		return 0, false, fmt.Errorf("query phylop %s: %w", k, err)
	}
	defer rows.Close()
	if !rows.Next() {
		return 0, false, rows.Err()
	}
	var v float64
	if err := rows.Scan(&v); err != nil {
		return 0, false, fmt.Errorf("scan phylop: %w", err)
	}
	return v, true, nil
}

// Preload reads both tables into sorted in-memory slices for lookups
// without database round trips.
func (s *Store) Preload() error {
	am := make(map[uint8][]amEntry)
	rows, err := s.db.DB().Query(`SELECT chrom_id, pos, ref, alt, am_pathogenicity, am_class
		FROM alphamissense ORDER BY chrom_id, pos`)
	if err != nil {
		return fmt.Errorf("query alphamissense for preload: %w", err)
	}
	for rows.Next() {
		var contig uint8
		var pos int64
		var ref, alt, class string
		var score float32
		if err := rows.Scan(&contig, &pos, &ref, &alt, &score, &class); err != nil {
			rows.Close()
			return fmt.Errorf("scan preload row: %w", err)
		}
		if len(ref) != 1 || len(alt) != 1 {
			continue
		}
		refAlt, ok := encodeRefAlt(ref[0], alt[0])
		if !ok {
			continue
		}
		am[contig] = append(am[contig], amEntry{
			pos:    pos,
			refAlt: refAlt,
			class:  encodeClass(class),
			score:  score,
		})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("preload alphamissense rows: %w", err)
	}

	phylop := make(map[uint8][]phylopEntry)
	rows, err = s.db.DB().Query(`SELECT chrom_id, start, end_, score FROM phylop ORDER BY chrom_id, start`)
	if err != nil {
		return fmt.Errorf("query phylop for preload: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var contig uint8
		var e phylopEntry
		if err := rows.Scan(&contig, &e.start, &e.end, &e.score); err != nil {
			return fmt.Errorf("scan preload row: %w", err)
		}
		phylop[contig] = append(phylop[contig], e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("preload phylop rows: %w", err)
	}

	s.am, s.phylop = am, phylop
	s.logger.Info("preloaded scores", zap.Int("contigs", len(am)+len(phylop)))
	return nil
}

func (s *Store) lookupAlphaMissense(k variantkey.Key) (Result, bool) {
	target, ok := encodeRefAlt(k.Ref[0], k.Alt[0])
	if !ok {
		return Result{}, false
	}
	entries := s.am[k.Contig]
	i := sort.Search(len(entries), func(i int) bool { return entries[i].pos >= k.Pos })
	for ; i < len(entries) && entries[i].pos == k.Pos; i++ {
		if entries[i].refAlt == target {
			return Result{Score: float64(entries[i].score), Class: classNames[entries[i].class]}, true
		}
	}
	return Result{}, false
}

func (s *Store) lookupPhyloP(k variantkey.Key) (float64, bool) {
	entries := s.phylop[k.Contig]
	// last interval starting at or before pos
	i := sort.Search(len(entries), func(i int) bool { return entries[i].start > k.Pos }) - 1
	if i < 0 || entries[i].end < k.Pos {
		return 0, false
	}
	return float64(entries[i].score), true
}
