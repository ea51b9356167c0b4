// Package refbuild builds the ClinVar and gene statistics stores from one
// pass over a ClinVar VCF release.
package refbuild

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/vibe-acmg/internal/clinvar"
	"github.com/inodb/vibe-acmg/internal/duckdb"
	"github.com/inodb/vibe-acmg/internal/genestats"
	"github.com/inodb/vibe-acmg/internal/vcf"
)

// Skip reasons reported by a build.
const (
	SkipMalformedLine = "malformed_line"
	SkipNoAlt         = "no_alt"
	SkipUnknownContig = "unknown_contig"
	SkipMalformedKey  = "malformed_key"
	SkipDuplicate     = "duplicate"
	// stored in ClinVar, left out of gene statistics
	SkipMissingGene = "missing_gene_info"
)

// Report summarises a build.
type Report struct {
	BuildID string
	Lines   int // VCF data lines read
	Records int // single-allele records after splitting
	Stored  int // entries written to the ClinVar store
	Genes   int // genes written to the gene statistics store
	Skipped map[string]int
}

// SkippedTotal returns the number of records skipped for any reason.
func (r Report) SkippedTotal() int {
	n := 0
	for _, c := range r.Skipped {
		n += c
	}
	return n
}

// Reasons returns the skip reasons with a non-zero count, sorted.
func (r Report) Reasons() []string {
	out := make([]string, 0, len(r.Skipped))
	for reason, n := range r.Skipped {
		if n > 0 {
			out = append(out, reason)
		}
	}
	sort.Strings(out)
	return out
}

// Builder runs a build into two open stores.
type Builder struct {
	clinvar   *clinvar.Store
	geneStats *genestats.Store
	logger    *zap.Logger
}

// NewBuilder returns a Builder writing to cv and gs.
func NewBuilder(cv *clinvar.Store, gs *genestats.Store) *Builder {
	return &Builder{clinvar: cv, geneStats: gs, logger: zap.NewNop()}
}

// SetLogger sets the logger for skip warnings and progress.
func (b *Builder) SetLogger(logger *zap.Logger) {
	b.logger = logger
}

// Run reads the ClinVar VCF at path (plain, gzip or bgzip) and replaces the
// contents of both stores. Malformed records are skipped and counted; only
// I/O and storage errors abort the build.
func (b *Builder) Run(path string) (Report, error) {
	source, err := duckdb.StatFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("stat clinvar source: %w", err)
	}
	p, err := vcf.NewParser(path)
	if err != nil {
		return Report{}, err
	}
	defer p.Close()
	return b.build(p, duckdb.NewMeta(source))
}

// build runs a single-threaded pass: parse, stage, commit, compact.
func (b *Builder) build(p *vcf.Parser, meta duckdb.Meta) (Report, error) {
	rep := Report{BuildID: meta.BuildID, Skipped: make(map[string]int)}
	writer := b.clinvar.NewWriter()
	stats := genestats.NewBuilder()

	for {
		v, err := p.Next()
		var perr *vcf.ParseError
		if errors.As(err, &perr) {
			rep.Lines++
			rep.Skipped[SkipMalformedLine]++
			b.logger.Warn("skipping malformed clinvar line", zap.Int("line", perr.Line), zap.Error(err))
			continue
		}
		if err != nil {
			return rep, fmt.Errorf("read clinvar vcf: %w", err)
		}
		if v == nil {
			break
		}
		rep.Lines++

		for _, a := range p.Split(v) {
			rep.Records++
			if a.Alt == "." || a.Alt == "" {
				rep.Skipped[SkipNoAlt]++
				continue
			}
			rec, err := clinvar.ParseRecord(a)
			if err != nil {
				reason := SkipMalformedKey
				if errors.Is(err, clinvar.ErrUnknownContig) {
					reason = SkipUnknownContig
				}
				rep.Skipped[reason]++
				b.logger.Warn("skipping clinvar record",
					zap.String("chrom", a.Chrom),
					zap.Int64("pos", a.Pos),
					zap.Int("line", p.LineNumber()),
					zap.String("reason", reason),
					zap.Error(err))
				continue
			}
			if !writer.Add(rec) {
				rep.Skipped[SkipDuplicate]++
				continue
			}
			if !stats.AddRecord(rec) {
				rep.Skipped[SkipMissingGene]++
				b.logger.Debug("record not counted in gene statistics",
					zap.Stringer("variant", rec.Key),
					zap.Int("line", p.LineNumber()),
					zap.Error(clinvar.ErrMissingGeneInfo))
			}
		}
	}

	rep.Stored = writer.Len()
	if err := writer.Commit(meta); err != nil {
		return rep, fmt.Errorf("commit clinvar store: %w", err)
	}
	geneStats := stats.Build()
	rep.Genes = len(geneStats)
	if err := b.geneStats.Write(geneStats, meta); err != nil {
		return rep, fmt.Errorf("commit gene statistics store: %w", err)
	}

	b.logger.Info("built reference stores",
		zap.String("build_id", rep.BuildID),
		zap.Int("lines", rep.Lines),
		zap.Int("stored", rep.Stored),
		zap.Int("genes", rep.Genes),
		zap.Int("skipped", rep.SkippedTotal()))
	return rep, nil
}

// UpToDate reports whether both stores were built from the file at path as
// it is now.
func UpToDate(cv *clinvar.Store, gs *genestats.Store, path string) (bool, error) {
	source, err := duckdb.StatFile(path)
	if err != nil {
		return false, fmt.Errorf("stat clinvar source: %w", err)
	}
	for _, read := range []func() (duckdb.Meta, bool, error){cv.Meta, gs.Meta} {
		m, ok, err := read()
		if err != nil {
			return false, err
		}
		if !ok || !m.Valid(source) {
			return false, nil
		}
	}
	return true, nil
}
