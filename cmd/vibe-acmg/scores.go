package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-acmg/internal/datasource/scores"
	"github.com/inodb/vibe-acmg/internal/variantkey"
)

func newScoresCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scores",
		Short: "Manage the conservation and missense pathogenicity scores store",
	}
	cmd.AddCommand(newScoresLoadCmd(a), newScoresGetCmd(a))
	return cmd
}

func newScoresLoadCmd(a *app) *cobra.Command {
	var alphaMissense, phyloP string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load AlphaMissense and/or PhyloP scores",
		Long: `Load replaces the AlphaMissense predictions (AlphaMissense_hg38.tsv.gz)
and/or the PhyloP conservation track (bedGraph) of the scores store.
The scores store enables PP3/BP4 and BP7.`,
		Example: `  vibe-acmg scores load --alphamissense AlphaMissense_hg38.tsv.gz
  vibe-acmg scores load --phylop hg38.phyloP100way.bedGraph.gz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if alphaMissense == "" && phyloP == "" {
				return usagef("nothing to load: give --alphamissense and/or --phylop")
			}
			return runScoresLoad(a, cmd.OutOrStdout(), alphaMissense, phyloP)
		},
	}
	cmd.Flags().StringVar(&alphaMissense, "alphamissense", "", "AlphaMissense TSV file")
	cmd.Flags().StringVar(&phyloP, "phylop", "", "PhyloP bedGraph file")
	return cmd
}

func runScoresLoad(a *app, w io.Writer, alphaMissense, phyloP string) error {
	for _, p := range []string{alphaMissense, phyloP} {
		if p != "" && !fileExists(p) {
			return usagef("file %s does not exist", p)
		}
	}
	path := storePath("scores")
	if err := ensureParent(path); err != nil {
		return err
	}
	s, err := scores.Open(path)
	if err != nil {
		return fmt.Errorf("open scores store: %w", err)
	}
	defer s.Close()
	s.SetLogger(a.logger)

	if alphaMissense != "" {
		a.logger.Info("loading AlphaMissense", zap.String("file", alphaMissense))
		n, err := s.LoadAlphaMissense(alphaMissense)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Loaded %d AlphaMissense predictions into %s\n", n, path)
	}
	if phyloP != "" {
		a.logger.Info("loading PhyloP", zap.String("file", phyloP))
		n, err := s.LoadPhyloP(phyloP)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Loaded %d PhyloP intervals into %s\n", n, path)
	}
	return nil
}

func newScoresGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "get <chrom-pos-ref-alt>...",
		Short:   "Print the scores of variants",
		Example: `  vibe-acmg scores get 12-25245350-C-A`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := storePath("scores")
			if !fileExists(path) {
				return fmt.Errorf("scores store %s not found; run 'vibe-acmg scores load' first", path)
			}
			s, err := scores.Open(path)
			if err != nil {
				return err
			}
			defer s.Close()
			s.SetLogger(a.logger)

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "#Variant\tAlphaMissense\tAM_Class\tPhyloP")
			for _, arg := range args {
				k, err := variantkey.Parse(arg)
				if err != nil {
					return usageError{err}
				}
				am, amOK, err := s.AlphaMissense(k)
				if err != nil {
					return err
				}
				phylop, pOK, err := s.PhyloP(k)
				if err != nil {
					return err
				}
				amScore, amClass, pScore := "-", "-", "-"
				if amOK {
					amScore, amClass = fmt.Sprintf("%.4f", am.Score), am.Class
				}
				if pOK {
					pScore = fmt.Sprintf("%.3f", phylop)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", k, amScore, amClass, pScore)
			}
			return nil
		},
	}
}
