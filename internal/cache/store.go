package cache

import (
	"database/sql"
	"fmt"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/inodb/vibe-acmg/internal/duckdb"
)

const transcriptColumns = `id, gene_id, gene_name, chrom, start, end_, strand, biotype,
	is_canonical, is_mane_select, cds_start, cds_end, cds_sequence`

// Store persists transcript models in DuckDB.
type Store struct {
	db     *duckdb.Store
	logger *zap.Logger
}

// OpenStore opens or creates a transcript store. Empty path is in-memory.
func OpenStore(path string) (*Store, error) {
	db, err := duckdb.Open(path)
	if err != nil {
		return nil, err
	}
	s := NewStore(db)
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure transcript schema: %w", err)
	}
	return s, nil
}

// NewStore wraps an already-open database holding the transcript tables.
func NewStore(db *duckdb.Store) *Store {
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

func (s *Store) createSchema() error {
	_, err := s.db.DB().Exec(`
		CREATE TABLE IF NOT EXISTS transcripts (
			id VARCHAR PRIMARY KEY,
			gene_id VARCHAR,
			gene_name VARCHAR,
			chrom VARCHAR,
			start BIGINT,
			end_ BIGINT,
			strand TINYINT,
			biotype VARCHAR,
			is_canonical BOOLEAN,
			is_mane_select BOOLEAN,
			cds_start BIGINT,
			cds_end BIGINT,
			cds_sequence VARCHAR
		);

		CREATE TABLE IF NOT EXISTS exons (
			transcript_id VARCHAR,
			exon_number INTEGER,
			start BIGINT,
			end_ BIGINT,
			cds_start BIGINT,
			cds_end BIGINT,
			frame TINYINT,
			PRIMARY KEY (transcript_id, exon_number)
		);
	`)
	return err
}

// Write appends transcripts and their exons.
func (s *Store) Write(transcripts []*Transcript) error {
	err := s.db.Append("transcripts", func(a *goduckdb.Appender) error {
		for _, t := range transcripts {
			if err := a.AppendRow(t.ID, t.GeneID, t.GeneName, normalizeChrom(t.Chrom),
				t.Start, t.End, t.Strand, t.Biotype, t.IsCanonical, t.IsMANESelect,
				t.CDSStart, t.CDSEnd, t.CDSSequence); err != nil {
				return fmt.Errorf("append transcript %s: %w", t.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.db.Append("exons", func(a *goduckdb.Appender) error {
		for _, t := range transcripts {
			for _, e := range t.Exons {
				if err := a.AppendRow(t.ID, int32(e.Number), e.Start, e.End,
					e.CDSStart, e.CDSEnd, int8(e.Frame)); err != nil {
					return fmt.Errorf("append exon %s/%d: %w", t.ID, e.Number, err)
				}
			}
		}
		return nil
	})
}

// Replace swaps the stored transcripts for transcripts and compacts the
// file.
func (s *Store) Replace(transcripts []*Transcript) error {
	for _, table := range []string{"exons", "transcripts"} {
		if _, err := s.db.DB().Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if err := s.Write(transcripts); err != nil {
		return err
	}
	s.logger.Info("replaced transcripts", zap.Int("count", len(transcripts)))
	return s.db.Checkpoint()
}

// LoadAll loads every transcript into c and indexes it.
func (s *Store) LoadAll(c *Cache) error {
	rows, err := s.db.DB().Query(`SELECT ` + transcriptColumns + ` FROM transcripts ORDER BY chrom, start`)
	if err != nil {
		return fmt.Errorf("query transcripts: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*Transcript)
	for rows.Next() {
		t, err := scanTranscript(rows)
		if err != nil {
			return err
		}
		byID[t.ID] = t
		c.AddTranscript(t)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if err := s.loadExons(byID, false); err != nil {
		return err
	}
	c.Index()
	s.logger.Info("loaded transcripts", zap.Int("count", len(byID)))
	return nil
}

// FindTranscripts queries transcripts overlapping a position without
// loading the whole store.
func (s *Store) FindTranscripts(chrom string, pos int64) ([]*Transcript, error) {
	rows, err := s.db.DB().Query(`SELECT `+transcriptColumns+` FROM transcripts
		WHERE chrom = ? AND start <= ? AND end_ >= ?
		ORDER BY start`, normalizeChrom(chrom), pos, pos)
	if err != nil {
		return nil, fmt.Errorf("query transcripts: %w", err)
	}
	defer rows.Close()

	var transcripts []*Transcript
	byID := make(map[string]*Transcript)
	for rows.Next() {
		t, err := scanTranscript(rows)
		if err != nil {
			return nil, err
		}
		byID[t.ID] = t
		transcripts = append(transcripts, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.loadExons(byID, true); err != nil {
		return nil, err
	}
	return transcripts, nil
}

// TranscriptCount returns the total number of transcripts in the store.
func (s *Store) TranscriptCount() (int, error) {
	var count int
	err := s.db.DB().QueryRow("SELECT COUNT(*) FROM transcripts").Scan(&count)
	return count, err
}

func scanTranscript(rows *sql.Rows) (*Transcript, error) {
	t := &Transcript{}
	var cdsSeq sql.NullString
	err := rows.Scan(
		&t.ID, &t.GeneID, &t.GeneName, &t.Chrom, &t.Start, &t.End,
		&t.Strand, &t.Biotype, &t.IsCanonical, &t.IsMANESelect,
		&t.CDSStart, &t.CDSEnd, &cdsSeq,
	)
	if err != nil {
		return nil, fmt.Errorf("scan transcript: %w", err)
	}
	t.CDSSequence = cdsSeq.String
	return t, nil
}

// loadExons fills in the exons of every transcript in byID. With
// onlyListed the query is restricted to those transcripts; otherwise the
// whole table is scanned.
func (s *Store) loadExons(byID map[string]*Transcript, onlyListed bool) error {
	if len(byID) == 0 {
		return nil
	}
	query := `SELECT transcript_id, exon_number, start, end_, cds_start, cds_end, frame FROM exons`
	var ids []any
	if onlyListed {
		for id := range byID {
			ids = append(ids, id)
		}
		query += ` WHERE transcript_id IN (` + strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ") + `)`
	}
	rows, err := s.db.DB().Query(query+` ORDER BY transcript_id, exon_number`, ids...)
	if err != nil {
		return fmt.Errorf("query exons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var e Exon
		var frame sql.NullInt64
		if err := rows.Scan(&id, &e.Number, &e.Start, &e.End, &e.CDSStart, &e.CDSEnd, &frame); err != nil {
			return fmt.Errorf("scan exon: %w", err)
		}
		e.Frame = -1
		if frame.Valid {
			e.Frame = int(frame.Int64)
		}
		if t, ok := byID[id]; ok {
			t.Exons = append(t.Exons, e)
		}
	}
	return rows.Err()
}
