package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-acmg/internal/clinvar"
	"github.com/inodb/vibe-acmg/internal/genestats"
	"github.com/inodb/vibe-acmg/internal/refbuild"
)

func newBuildCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "build <clinvar.vcf[.gz]>",
		Short: "Build the ClinVar and gene statistics stores from a ClinVar VCF",
		Long: `Build reads a ClinVar VCF release once and writes two stores: the ClinVar
store (variant -> clinical significance, review status) and the gene
statistics store (gene -> consequence -> significance -> count).

The build is skipped when both stores were already built from the same
file, unless --force is given.`,
		Example: `  vibe-acmg build clinvar_20240917.vcf.gz
  vibe-acmg build --force clinvar.vcf.gz`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(a, cmd.OutOrStdout(), args[0], force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Rebuild even if the stores are up to date")
	return cmd
}

func runBuild(a *app, w io.Writer, vcfPath string, force bool) error {
	if !fileExists(vcfPath) {
		return usagef("clinvar file %s does not exist", vcfPath)
	}
	cvPath, gsPath := storePath("clinvar"), storePath("gene_stats")
	for _, p := range []string{cvPath, gsPath} {
		if err := ensureParent(p); err != nil {
			return err
		}
	}

	cv, err := clinvar.Open(cvPath)
	if err != nil {
		return fmt.Errorf("open clinvar store: %w", err)
	}
	defer cv.Close()
	cv.SetLogger(a.logger)

	gs, err := genestats.Open(gsPath)
	if err != nil {
		return fmt.Errorf("open gene statistics store: %w", err)
	}
	defer gs.Close()
	gs.SetLogger(a.logger)

	if !force {
		ok, err := refbuild.UpToDate(cv, gs, vcfPath)
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintf(w, "Stores are up to date with %s (use --force to rebuild)\n", vcfPath)
			return nil
		}
	}

	b := refbuild.NewBuilder(cv, gs)
	b.SetLogger(a.logger)
	a.logger.Info("building reference stores",
		zap.String("source", vcfPath),
		zap.String("clinvar", cvPath),
		zap.String("gene_stats", gsPath))

	rep, err := b.Run(vcfPath)
	if err != nil {
		return err
	}
	printReport(w, rep, cvPath, gsPath)
	return nil
}

func printReport(w io.Writer, rep refbuild.Report, cvPath, gsPath string) {
	fmt.Fprintf(w, "Build %s\n", rep.BuildID)
	fmt.Fprintf(w, "  Lines read:      %d\n", rep.Lines)
	fmt.Fprintf(w, "  Records:         %d\n", rep.Records)
	fmt.Fprintf(w, "  ClinVar entries: %d -> %s\n", rep.Stored, cvPath)
	fmt.Fprintf(w, "  Genes:           %d -> %s\n", rep.Genes, gsPath)
	if n := rep.SkippedTotal(); n > 0 {
		fmt.Fprintf(w, "  Skipped:         %d\n", n)
		for _, reason := range rep.Reasons() {
			fmt.Fprintf(w, "    %-18s %d\n", reason, rep.Skipped[reason])
		}
	}
}
