package genestats

import (
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/inodb/vibe-acmg/internal/clinvar"
	"github.com/inodb/vibe-acmg/internal/duckdb"
)

// geneStatsDDL creates the gene_stats table under the given name. One row
// per (gene, effect, significance); Builder never emits a pair twice.
const geneStatsDDL = `CREATE TABLE IF NOT EXISTS %s (
	gene VARCHAR,
	effect VARCHAR,
	significance VARCHAR,
	count BIGINT
)`

// Store maps gene symbols to GeneStatistics. Read-only after a build.
type Store struct {
	db     *duckdb.Store
	mem    map[string]GeneStatistics // nil unless preloaded
	logger *zap.Logger
}

// Open opens or creates a gene statistics store. Empty path is in-memory.
func Open(path string) (*Store, error) {
	db, err := duckdb.Open(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.DB().Exec(fmt.Sprintf(geneStatsDDL, "gene_stats")); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure gene_stats schema: %w", err)
	}
	return New(db), nil
}

// New wraps an already-open database that holds the gene_stats table.
func New(db *duckdb.Store) *Store {
	return &Store{db: db, logger: zap.NewNop()}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger *zap.Logger) {
	s.logger = logger
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Meta returns the build metadata of the store.
func (s *Store) Meta() (duckdb.Meta, bool, error) {
	return s.db.ReadMeta()
}

// Get returns the statistics for gene. ok is false when the gene has no
// records.
func (s *Store) Get(gene string) (GeneStatistics, bool, error) {
	if s.mem != nil {
		g, ok := s.mem[gene]
		return g, ok, nil
	}

	rows, err := s.db.DB().Query(
		`SELECT effect, significance, count FROM gene_stats WHERE gene = ?`, gene)
	if err != nil {
		return GeneStatistics{}, false, fmt.Errorf("query gene stats %s: %w", gene, err)
	}
	defer rows.Close()

	counts := make(map[string]Counts)
	for rows.Next() {
		var effect, sig string
		var n int64
		if err := rows.Scan(&effect, &sig, &n); err != nil {
			return GeneStatistics{}, false, fmt.Errorf("scan gene stats: %w", err)
		}
		if counts[effect] == nil {
			counts[effect] = make(Counts)
		}
		counts[effect][clinvar.ClinSig(sig)] = uint64(n)
	}
	if err := rows.Err(); err != nil {
		return GeneStatistics{}, false, fmt.Errorf("gene stats rows: %w", err)
	}
	if len(counts) == 0 {
		return GeneStatistics{}, false, nil
	}
	g, err := NewGeneStatistics(gene, counts)
	if err != nil {
		return GeneStatistics{}, false, err
	}
	return g, true, nil
}

// GeneCount returns the number of distinct genes in the store.
func (s *Store) GeneCount() (int64, error) {
	if s.mem != nil {
		return int64(len(s.mem)), nil
	}
	var n int64
	if err := s.db.DB().QueryRow(`SELECT COUNT(DISTINCT gene) FROM gene_stats`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count genes: %w", err)
	}
	return n, nil
}

// Preload reads every gene into memory.
func (s *Store) Preload() error {
	rows, err := s.db.DB().Query(`SELECT gene, effect, significance, count FROM gene_stats`)
	if err != nil {
		return fmt.Errorf("query gene stats for preload: %w", err)
	}
	defer rows.Close()

	raw := make(map[string]map[string]Counts)
	for rows.Next() {
		var gene, effect, sig string
		var n int64
		if err := rows.Scan(&gene, &effect, &sig, &n); err != nil {
			return fmt.Errorf("scan gene stats: %w", err)
		}
		if raw[gene] == nil {
			raw[gene] = make(map[string]Counts)
		}
		if raw[gene][effect] == nil {
			raw[gene][effect] = make(Counts)
		}
		raw[gene][effect][clinvar.ClinSig(sig)] = uint64(n)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("preload rows: %w", err)
	}

	mem := make(map[string]GeneStatistics, len(raw))
	for gene, counts := range raw {
		g, err := NewGeneStatistics(gene, counts)
		if err != nil {
			return err
		}
		mem[gene] = g
	}
	s.mem = mem
	s.logger.Info("preloaded gene statistics", zap.Int("genes", len(mem)))
	return nil
}

// Write replaces the store contents with stats, records meta and compacts
// the database file. On error the previous contents and meta are kept.
func (s *Store) Write(stats []GeneStatistics, meta duckdb.Meta) error {
	return s.db.ReplaceTable("gene_stats", geneStatsDDL, meta, func(a *goduckdb.Appender) error {
		for _, g := range stats {
			for _, effect := range g.Effects() {
				for sig, n := range g.counts[effect] {
					if err := a.AppendRow(g.gene, effect, string(sig), int64(n)); err != nil {
						return fmt.Errorf("append gene stats %s: %w", g.gene, err)
					}
				}
			}
		}
		return nil
	})
}
