package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/inodb/vibe-acmg/internal/cache"
	"github.com/inodb/vibe-acmg/internal/clinvar"
	"github.com/inodb/vibe-acmg/internal/datasource/scores"
	"github.com/inodb/vibe-acmg/internal/duckdb"
	"github.com/inodb/vibe-acmg/internal/genestats"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the location, provenance and size of every store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.OutOrStdout())
		},
	}
}

func runStatus(w io.Writer) error {
	fmt.Fprintf(w, "Data directory: %s\n", dataDir())

	if err := storeStatus(w, "clinvar", func(path string) (string, error) {
		s, err := clinvar.Open(path)
		if err != nil {
			return "", err
		}
		defer s.Close()
		n, err := s.Count()
		if err != nil {
			return "", err
		}
		return describe(s.Meta, fmt.Sprintf("%d variants", n))
	}); err != nil {
		return err
	}

	if err := storeStatus(w, "gene_stats", func(path string) (string, error) {
		s, err := genestats.Open(path)
		if err != nil {
			return "", err
		}
		defer s.Close()
		n, err := s.GeneCount()
		if err != nil {
			return "", err
		}
		return describe(s.Meta, fmt.Sprintf("%d genes", n))
	}); err != nil {
		return err
	}

	if err := storeStatus(w, "transcripts", func(path string) (string, error) {
		s, err := cache.OpenStore(path)
		if err != nil {
			return "", err
		}
		defer s.Close()
		n, err := s.TranscriptCount()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d transcripts", n), nil
	}); err != nil {
		return err
	}

	return storeStatus(w, "scores", func(path string) (string, error) {
		s, err := scores.Open(path)
		if err != nil {
			return "", err
		}
		defer s.Close()
		am, phylop, err := s.Counts()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d AlphaMissense predictions, %d PhyloP intervals", am, phylop), nil
	})
}

func storeStatus(w io.Writer, name string, summarize func(path string) (string, error)) error {
	path := storePath(name)
	if !fileExists(path) {
		fmt.Fprintf(w, "  %-12s not built (%s)\n", name, path)
		return nil
	}
	summary, err := summarize(path)
	if err != nil {
		return fmt.Errorf("%s store: %w", name, err)
	}
	fmt.Fprintf(w, "  %-12s %s\n  %-12s %s\n", name, path, "", summary)
	return nil
}

// describe appends build provenance from meta to summary.
func describe(meta func() (duckdb.Meta, bool, error), summary string) (string, error) {
	m, ok, err := meta()
	if err != nil {
		return "", err
	}
	if !ok {
		return summary + ", no build metadata", nil
	}
	return fmt.Sprintf("%s, built %s from %s (build %s)",
		summary, m.BuiltAt.Local().Format(time.DateTime), m.Source.Path, m.BuildID), nil
}
