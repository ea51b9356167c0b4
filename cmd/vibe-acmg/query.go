package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inodb/vibe-acmg/internal/clinvar"
	"github.com/inodb/vibe-acmg/internal/genestats"
	"github.com/inodb/vibe-acmg/internal/output"
	"github.com/inodb/vibe-acmg/internal/variantkey"
)

func newQueryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Look up entries of the reference stores",
	}
	cmd.AddCommand(newQueryVariantCmd(a), newQueryRegionCmd(a), newQueryGeneCmd(a))
	return cmd
}

func newQueryVariantCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "variant <chrom-pos-ref-alt>...",
		Short: "Print the ClinVar interpretation of variants",
		Example: `  vibe-acmg query variant 12-25245350-C-A
  vibe-acmg query variant chr17:7674220:C:T`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys := make([]variantkey.Key, len(args))
			for i, s := range args {
				k, err := variantkey.Parse(s)
				if err != nil {
					return usageError{err}
				}
				keys[i] = k
			}
			cv, err := openClinVar(a)
			if err != nil {
				return err
			}
			defer cv.Close()
			return queryVariants(cmd.OutOrStdout(), cv, keys)
		},
	}
}

func queryVariants(w io.Writer, cv *clinvar.Store, keys []variantkey.Key) error {
	cw := output.NewClinVarWriter(w)
	if err := cw.WriteHeader(); err != nil {
		return err
	}
	for _, k := range keys {
		in, ok, err := cv.Get(k)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := cw.Write(clinvar.Entry{Key: k, Interpretation: in}); err != nil {
			return err
		}
	}
	return cw.Flush()
}

func newQueryRegionCmd(a *app) *cobra.Command {
	var (
		padding       int64
		substitutions bool
	)
	cmd := &cobra.Command{
		Use:   "region <chrom:start-end>",
		Short: "Print ClinVar entries overlapping a region",
		Example: `  vibe-acmg query region 12:25245349-25245351
  vibe-acmg query region chr7:140753336 --padding 2 --substitutions`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chrom, start, end, err := parseRegion(args[0])
			if err != nil {
				return usageError{err}
			}
			cv, err := openClinVar(a)
			if err != nil {
				return err
			}
			defer cv.Close()

			filter := variantkey.AnyLength
			if substitutions {
				filter = variantkey.SubstitutionsOnly
			}
			entries, err := cv.FindOverlapping(chrom, start, end, padding, filter)
			if err != nil {
				return err
			}
			cw := output.NewClinVarWriter(cmd.OutOrStdout())
			if err := cw.WriteHeader(); err != nil {
				return err
			}
			for _, e := range entries {
				if err := cw.Write(e); err != nil {
					return err
				}
			}
			return cw.Flush()
		},
	}
	cmd.Flags().Int64Var(&padding, "padding", 0, "Extend the region by this many bases on both sides")
	cmd.Flags().BoolVar(&substitutions, "substitutions", false, "Only report variants with single-base (or empty) alleles")
	return cmd
}

// parseRegion reads "chrom:start-end" or "chrom:pos".
func parseRegion(s string) (chrom string, start, end int64, err error) {
	chrom, span, ok := strings.Cut(s, ":")
	if !ok || chrom == "" {
		return "", 0, 0, fmt.Errorf("region %q: expected chrom:start-end", s)
	}
	from, to, isRange := strings.Cut(span, "-")
	start, err = strconv.ParseInt(from, 10, 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("region %q: bad start: %w", s, err)
	}
	end = start
	if isRange {
		if end, err = strconv.ParseInt(to, 10, 64); err != nil {
			return "", 0, 0, fmt.Errorf("region %q: bad end: %w", s, err)
		}
	}
	if end < start {
		return "", 0, 0, fmt.Errorf("region %q: end before start", s)
	}
	return chrom, start, end, nil
}

func newQueryGeneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "gene <symbol>...",
		Short:   "Print ClinVar significance counts per consequence for genes",
		Example: `  vibe-acmg query gene BRCA1 KRAS`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := storePath("gene_stats")
			if !fileExists(path) {
				return fmt.Errorf("gene statistics store %s not found; run 'vibe-acmg build' first", path)
			}
			gs, err := genestats.Open(path)
			if err != nil {
				return err
			}
			defer gs.Close()
			gs.SetLogger(a.logger)
			return queryGenes(cmd.OutOrStdout(), gs, args)
		},
	}
}

func queryGenes(w io.Writer, gs *genestats.Store, genes []string) error {
	fmt.Fprintln(w, "#Gene\tConsequence\tSignificance\tCount")
	for _, gene := range genes {
		st, ok, err := gs.Get(gene)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		for _, effect := range st.Effects() {
			counts := st.Counts(effect)
			sigs := make([]string, 0, len(counts))
			for sig := range counts {
				sigs = append(sigs, string(sig))
			}
			sort.Strings(sigs)
			for _, sig := range sigs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", st.Gene(), effect, sig, counts[clinvar.ClinSig(sig)])
			}
		}
	}
	return nil
}

func openClinVar(a *app) (*clinvar.Store, error) {
	path := storePath("clinvar")
	if !fileExists(path) {
		return nil, fmt.Errorf("clinvar store %s not found; run 'vibe-acmg build' first", path)
	}
	cv, err := clinvar.Open(path)
	if err != nil {
		return nil, err
	}
	cv.SetLogger(a.logger)
	return cv, nil
}
