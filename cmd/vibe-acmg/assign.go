package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-acmg/internal/acmg"
	"github.com/inodb/vibe-acmg/internal/annotate"
	"github.com/inodb/vibe-acmg/internal/assigner"
	"github.com/inodb/vibe-acmg/internal/cache"
	"github.com/inodb/vibe-acmg/internal/clinvar"
	"github.com/inodb/vibe-acmg/internal/datasource/scores"
	"github.com/inodb/vibe-acmg/internal/evaluation"
	"github.com/inodb/vibe-acmg/internal/genestats"
	"github.com/inodb/vibe-acmg/internal/output"
	"github.com/inodb/vibe-acmg/internal/pedigree"
	"github.com/inodb/vibe-acmg/internal/vcf"
)

type assignOptions struct {
	pedPath    string
	proband    string
	modes      []string
	criteria   []string
	workers    int
	outputFile string
	noPreload  bool
}

func newAssignCmd(a *app) *cobra.Command {
	var opts assignOptions

	cmd := &cobra.Command{
		Use:   "assign [options] <input.vcf>",
		Short: "Assign ACMG/AMP evidence to the variants of a VCF",
		Long: `Assign evaluates every alternate allele of the input VCF for the proband,
once per requested mode of inheritance, and writes one row per
(variant, mode) with the met criteria and the resulting classification.

Population frequencies are read from INFO fields (gnomADe_AF/AC and
gnomADg_AF/AC by default, see frequency.sources in the config). The
ClinVar and gene statistics stores must have been built with
'vibe-acmg build'; transcripts must have been loaded with
'vibe-acmg transcripts load'. The scores store is optional.`,
		Example: `  vibe-acmg assign --ped trio.ped --proband P1 proband.vcf.gz
  vibe-acmg assign --ped trio.ped --proband P1 --mode AD --mode AR -o evidence.tsv in.vcf
  vibe-acmg assign --ped trio.ped --proband P1 --criteria PS1,PM5,BS2 in.vcf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssign(a, cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.pedPath, "ped", "", "PED file describing the family (required)")
	cmd.Flags().StringVar(&opts.proband, "proband", "", "Individual ID of the proband (required)")
	cmd.Flags().StringSliceVarP(&opts.modes, "mode", "m", []string{"AD"}, "Mode(s) of inheritance: AD, AR, XD, XR, MT, ANY")
	cmd.Flags().StringSliceVar(&opts.criteria, "criteria", nil, "Only evaluate rules covering these criteria (default: all)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "j", 0, "Number of parallel workers (default: number of CPUs)")
	cmd.Flags().StringVarP(&opts.outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&opts.noPreload, "no-preload", false, "Query the stores on disk instead of loading them into memory")
	_ = cmd.MarkFlagRequired("ped")
	_ = cmd.MarkFlagRequired("proband")
	_ = viper.BindPFlag("workers", cmd.Flags().Lookup("workers"))

	return cmd
}

// refData holds the open stores of an assign run.
type refData struct {
	clinvar     *clinvar.Store
	geneStats   *genestats.Store
	scores      *scores.Store
	transcripts *cache.Store
}

func (r *refData) Close() {
	if r.clinvar != nil {
		r.clinvar.Close()
	}
	if r.geneStats != nil {
		r.geneStats.Close()
	}
	if r.scores != nil {
		r.scores.Close()
	}
	if r.transcripts != nil {
		r.transcripts.Close()
	}
}

func openRefData(logger *zap.Logger, preload bool) (*refData, error) {
	r := &refData{}
	var err error

	cvPath := storePath("clinvar")
	gsPath := storePath("gene_stats")
	if !fileExists(cvPath) || !fileExists(gsPath) {
		return nil, fmt.Errorf("reference stores not found in %s; run 'vibe-acmg build <clinvar.vcf.gz>' first", dataDir())
	}
	if r.clinvar, err = clinvar.Open(cvPath); err != nil {
		return nil, fmt.Errorf("open clinvar store: %w", err)
	}
	r.clinvar.SetLogger(logger)
	if r.geneStats, err = genestats.Open(gsPath); err != nil {
		r.Close()
		return nil, fmt.Errorf("open gene statistics store: %w", err)
	}
	r.geneStats.SetLogger(logger)

	txPath := storePath("transcripts")
	if !fileExists(txPath) {
		r.Close()
		return nil, fmt.Errorf("transcript store %s not found; run 'vibe-acmg transcripts load' first", txPath)
	}
	if r.transcripts, err = cache.OpenStore(txPath); err != nil {
		r.Close()
		return nil, fmt.Errorf("open transcript store: %w", err)
	}
	r.transcripts.SetLogger(logger)

	if scPath := storePath("scores"); fileExists(scPath) {
		if r.scores, err = scores.Open(scPath); err != nil {
			r.Close()
			return nil, fmt.Errorf("open scores store: %w", err)
		}
		r.scores.SetLogger(logger)
	} else {
		logger.Info("no scores store, PP3/BP4 and BP7 will not be assigned", zap.String("path", scPath))
	}

	if preload {
		start := time.Now()
		loaders := []func() error{r.clinvar.Preload, r.geneStats.Preload}
		if r.scores != nil {
			loaders = append(loaders, r.scores.Preload)
		}
		for _, load := range loaders {
			if err := load(); err != nil {
				r.Close()
				return nil, err
			}
		}
		logger.Info("preloaded reference stores", zap.Duration("elapsed", time.Since(start)))
	}
	return r, nil
}

func runAssign(a *app, stdout io.Writer, inputPath string, opts assignOptions) error {
	modes := make([]acmg.ModeOfInheritance, 0, len(opts.modes))
	for _, s := range opts.modes {
		m, err := acmg.ParseModeOfInheritance(s)
		if err != nil {
			return usageError{err}
		}
		modes = append(modes, m)
	}

	registry := assigner.DefaultRegistry()
	if len(opts.criteria) > 0 {
		r, err := registry.Select(opts.criteria...)
		if err != nil {
			return usageError{err}
		}
		registry = r
	}

	ped, err := pedigree.ReadPEDFile(opts.pedPath)
	if err != nil {
		return err
	}

	thresholds := assigner.DefaultThresholds()
	if err := viper.UnmarshalKey("thresholds", &thresholds); err != nil {
		return fmt.Errorf("read thresholds from config: %w", err)
	}
	freqCfg := evaluation.DefaultConfig()
	if viper.IsSet("frequency.sources") {
		freqCfg.Sources = nil
		if err := viper.UnmarshalKey("frequency.sources", &freqCfg.Sources); err != nil {
			return fmt.Errorf("read frequency sources from config: %w", err)
		}
	}

	ref, err := openRefData(a.logger, !opts.noPreload)
	if err != nil {
		return err
	}
	defer ref.Close()

	c := cache.New()
	if err := ref.transcripts.LoadAll(c); err != nil {
		return fmt.Errorf("load transcripts: %w", err)
	}
	a.logger.Debug("transcript index ready",
		zap.Int("transcripts", c.TranscriptCount()),
		zap.Strings("contigs", c.Chromosomes()))
	ann := annotate.NewAnnotator(c)
	ann.SetLogger(a.logger)
	reannotator, err := annotate.NewReannotator(ann, viper.GetInt("reannotation.cache_size"))
	if err != nil {
		return err
	}

	deps := assigner.Deps{
		ClinVar:     ref.clinvar,
		GeneStats:   ref.geneStats,
		Reannotator: reannotator,
		Thresholds:  thresholds,
		Logger:      a.logger,
	}
	if ref.scores != nil {
		deps.Conservation = ref.scores
		deps.Missense = ref.scores
	}

	asg, err := assigner.New(opts.proband, ped, deps,
		assigner.WithRegistry(registry),
		assigner.WithLogger(a.logger))
	if err != nil {
		if errors.Is(err, assigner.ErrProbandNotInPedigree) {
			return usagef("proband %q is not in %s", opts.proband, opts.pedPath)
		}
		return err
	}

	parser, err := vcf.NewParser(inputPath)
	if err != nil {
		return err
	}
	defer parser.Close()
	if !slices.Contains(parser.SampleNames(), opts.proband) {
		a.logger.Warn("proband has no sample column; genotype-based criteria see it as unknown",
			zap.String("proband", opts.proband))
	}

	var out io.Writer = stdout
	if opts.outputFile != "" {
		f, err := os.Create(opts.outputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	runID := uuid.New().String()
	ew := output.NewEvidenceWriter(out)
	meta := [][2]string{
		{"vibe-acmg", version},
		{"run_id", runID},
		{"proband", opts.proband},
		{"modes", strings.Join(opts.modes, ",")},
		{"rules", registry.String()},
	}
	if missing := registry.Unimplemented(); len(missing) > 0 {
		codes := make([]string, len(missing))
		for i, c := range missing {
			codes[i] = c.String()
		}
		meta = append(meta, [2]string{"not_evaluated", strings.Join(codes, ",")})
	}
	if m, ok, err := ref.clinvar.Meta(); err == nil && ok {
		meta = append(meta, [2]string{"clinvar_build_id", m.BuildID}, [2]string{"clinvar_source", m.Source.Path})
	}
	for _, kv := range meta {
		if err := ew.WriteMeta(kv[0], kv[1]); err != nil {
			return err
		}
	}
	if err := ew.WriteHeader(); err != nil {
		return err
	}

	start := time.Now()
	items := make(chan assigner.WorkItem, 256)
	var readErr error
	var skipped int
	go func() {
		defer close(items)
		readErr = feedVariants(parser, ann, freqCfg, modes, items, a.logger, &skipped)
	}()

	results := asg.ParallelAssign(items, viper.GetInt("workers"))
	err = assigner.OrderedCollect(results, func(r assigner.WorkResult) error {
		if r.Err != nil {
			return r.Err
		}
		return ew.Write(r.Extra.(*evaluation.VariantEvaluation), r.Assignment)
	})
	if err != nil {
		return err
	}
	if readErr != nil {
		return readErr
	}
	if err := ew.Flush(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	stats := asg.Stats()
	hits, misses := reannotator.CacheStats()
	fields := []zap.Field{
		zap.String("run_id", runID),
		zap.Int64("assignments", stats.Assignments),
		zap.Int64("ps1_pm5_candidates", stats.PS1PM5Candidates),
		zap.Int("skipped_records", skipped),
		zap.Int64("reannotation_hits", hits),
		zap.Int64("reannotation_misses", misses),
		zap.Duration("elapsed", time.Since(start)),
	}
	for _, rule := range registry.Rules() {
		fields = append(fields, zap.Int64("applied_"+rule.Name, stats.Applied[rule.Name]))
	}
	a.logger.Info("assignment complete", fields...)
	return nil
}

// feedVariants reads, splits and annotates the input and sends one work
// item per (allele, mode) in input order. Malformed lines and alleles on
// contigs without a key are skipped.
func feedVariants(p *vcf.Parser, ann *annotate.Annotator, cfg evaluation.Config, modes []acmg.ModeOfInheritance,
	items chan<- assigner.WorkItem, logger *zap.Logger, skipped *int) error {
	samples := p.SampleNames()
	seq := 0
	for {
		v, err := p.Next()
		var perr *vcf.ParseError
		if errors.As(err, &perr) {
			*skipped++
			logger.Warn("skipping malformed line", zap.Int("line", perr.Line), zap.Error(err))
			continue
		}
		if err != nil {
			return err
		}
		if v == nil {
			return nil
		}

		for _, allele := range p.Split(v) {
			if allele.Alt == "." || allele.Alt == "*" {
				continue
			}
			e, err := evaluateAllele(allele, ann, samples, cfg)
			if err != nil {
				*skipped++
				logger.Warn("skipping variant",
					zap.String("chrom", allele.Chrom),
					zap.Int64("pos", allele.Pos),
					zap.Int("line", p.LineNumber()),
					zap.Error(err))
				continue
			}
			for _, m := range modes {
				items <- assigner.WorkItem{Seq: seq, Eval: e, Mode: m, Extra: e}
				seq++
			}
		}
	}
}

func evaluateAllele(v *vcf.Variant, ann *annotate.Annotator, samples []string, cfg evaluation.Config) (*evaluation.VariantEvaluation, error) {
	k, err := v.Key()
	if err != nil {
		return nil, err
	}
	anns, err := ann.Annotate(k)
	if err != nil {
		return nil, err
	}
	return evaluation.FromVariant(v, annotate.SelectPrimary(anns), samples, cfg)
}
