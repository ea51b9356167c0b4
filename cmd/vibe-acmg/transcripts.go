package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-acmg/internal/cache"
)

// GENCODE FTP URLs
const (
	gencodeBaseURL = "https://ftp.ebi.ac.uk/pub/databases/gencode/Gencode_human/release_46"
	gencodeVersion = "v46"
)

// gencodeURLs returns the GTF and FASTA URLs for the given assembly.
func gencodeURLs(assembly string) (gtfURL, fastaURL string) {
	if strings.EqualFold(assembly, "GRCh37") {
		gtfURL = fmt.Sprintf("%s/GRCh37_mapping/gencode.%slift37.annotation.gtf.gz", gencodeBaseURL, gencodeVersion)
		fastaURL = fmt.Sprintf("%s/GRCh37_mapping/gencode.%slift37.pc_transcripts.fa.gz", gencodeBaseURL, gencodeVersion)
		return
	}
	gtfURL = fmt.Sprintf("%s/gencode.%s.annotation.gtf.gz", gencodeBaseURL, gencodeVersion)
	fastaURL = fmt.Sprintf("%s/gencode.%s.pc_transcripts.fa.gz", gencodeBaseURL, gencodeVersion)
	return
}

func newTranscriptsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcripts",
		Short: "Download and load the GENCODE transcripts used to re-annotate ClinVar variants",
	}
	cmd.AddCommand(newTranscriptsDownloadCmd(a), newTranscriptsLoadCmd(a))
	return cmd
}

func newTranscriptsDownloadCmd(a *app) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download GENCODE annotation and canonical transcript files",
		Long: `Download fetches the GENCODE basic annotation GTF, the protein-coding
transcript FASTA and the Genome Nexus canonical transcript table for the
assembly. Files already present are kept.

Files downloaded:
  - gencode.v46.annotation.gtf.gz (~50MB for GRCh38)
  - gencode.v46.pc_transcripts.fa.gz (~70MB for GRCh38)
  - ensembl_biomart_canonical_transcripts_per_hgnc.txt`,
		Example: `  vibe-acmg transcripts download
  vibe-acmg transcripts download --assembly GRCh37 --output /data/gencode`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := outputDir
			if dir == "" {
				dir = dataDir()
			}
			return runDownload(cmd.Context(), a, cmd.OutOrStdout(), viper.GetString("assembly"), dir)
		},
	}
	cmd.Flags().StringVar(&outputDir, "output", "", "Output directory (default: ~/.vibe-acmg/<assembly>)")
	return cmd
}

func runDownload(ctx context.Context, a *app, w io.Writer, assembly, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", destDir, err)
	}

	// Long timeout for large files
	client := &http.Client{Timeout: 30 * time.Minute}
	gtfURL, fastaURL := gencodeURLs(assembly)

	fmt.Fprintf(w, "Downloading GENCODE %s annotations for %s...\n", gencodeVersion, assembly)
	fmt.Fprintf(w, "Destination: %s\n\n", destDir)

	for _, url := range []string{gtfURL, fastaURL} {
		if err := downloadFile(ctx, client, w, url, filepath.Join(destDir, filepath.Base(url))); err != nil {
			return fmt.Errorf("download %s: %w", filepath.Base(url), err)
		}
	}

	canonicalPath := filepath.Join(destDir, cache.CanonicalFileName)
	if fileExists(canonicalPath) {
		fmt.Fprintf(w, "  %s already exists, skipping\n", cache.CanonicalFileName)
	} else if err := cache.DownloadCanonicalOverrides(ctx, client, assembly, canonicalPath); err != nil {
		// the GTF canonical tags are used instead
		a.logger.Warn("could not download canonical transcript overrides", zap.Error(err))
	}

	fmt.Fprintf(w, "\nDownload complete!\n")
	fmt.Fprintf(w, "To load the transcripts, run:\n")
	fmt.Fprintf(w, "  vibe-acmg transcripts load\n")
	return nil
}

// downloadFile downloads a file from URL to the destination path with progress.
func downloadFile(ctx context.Context, client *http.Client, w io.Writer, url, destPath string) error {
	if info, err := os.Stat(destPath); err == nil {
		fmt.Fprintf(w, "  %s already exists (%s), skipping\n", filepath.Base(destPath), formatSize(info.Size()))
		return nil
	}

	fmt.Fprintf(w, "  Downloading %s...\n", filepath.Base(destPath))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	pw := &progressWriter{out: w, total: resp.ContentLength, lastPrint: time.Now()}
	_, err = io.Copy(f, io.TeeReader(resp.Body, pw))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	fmt.Fprintf(w, "\n    Done: %s\n", formatSize(pw.downloaded))
	return nil
}

// progressWriter prints download progress at most once a second.
type progressWriter struct {
	out        io.Writer
	total      int64
	downloaded int64
	lastPrint  time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	pw.downloaded += int64(n)

	if time.Since(pw.lastPrint) > time.Second {
		if pw.total > 0 {
			pct := float64(pw.downloaded) / float64(pw.total) * 100
			fmt.Fprintf(pw.out, "\r    Progress: %s / %s (%.1f%%)  ",
				formatSize(pw.downloaded), formatSize(pw.total), pct)
		} else {
			fmt.Fprintf(pw.out, "\r    Progress: %s  ", formatSize(pw.downloaded))
		}
		pw.lastPrint = time.Now()
	}
	return n, nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// findGENCODEFiles looks for downloaded GENCODE files in dir.
func findGENCODEFiles(dir, assembly string) (gtfPath, fastaPath, canonicalPath string, found bool) {
	gtfPattern, fastaPattern := "gencode.v*.annotation.gtf.gz", "gencode.v*.pc_transcripts.fa.gz"
	if strings.EqualFold(assembly, "GRCh37") {
		gtfPattern, fastaPattern = "gencode.v*lift37.annotation.gtf.gz", "gencode.v*lift37.pc_transcripts.fa.gz"
	}

	matches, err := filepath.Glob(filepath.Join(dir, gtfPattern))
	if err != nil || len(matches) == 0 {
		return "", "", "", false
	}
	gtfPath = matches[0]

	if matches, err = filepath.Glob(filepath.Join(dir, fastaPattern)); err == nil && len(matches) > 0 {
		fastaPath = matches[0]
	}
	if p := filepath.Join(dir, cache.CanonicalFileName); fileExists(p) {
		canonicalPath = p
	}
	return gtfPath, fastaPath, canonicalPath, true
}

func newTranscriptsLoadCmd(a *app) *cobra.Command {
	var gtfPath, fastaPath, canonicalPath string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load GENCODE transcripts into the transcript store",
		Long: `Load parses a GENCODE GTF and protein-coding transcript FASTA and replaces
the transcript store used to re-annotate ClinVar variants for PS1/PM5.
Without flags the files fetched by 'vibe-acmg transcripts download' are
used. A canonical transcript table, when present, overrides the GTF
canonical tags (column chosen by transcripts.canonical_column).`,
		Example: `  vibe-acmg transcripts load
  vibe-acmg transcripts load --gtf gencode.v46.annotation.gtf.gz --fasta gencode.v46.pc_transcripts.fa.gz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if gtfPath == "" {
				gtf, fasta, canonical, ok := findGENCODEFiles(dataDir(), viper.GetString("assembly"))
				if !ok {
					return usagef("no GENCODE files in %s; run 'vibe-acmg transcripts download' or pass --gtf", dataDir())
				}
				gtfPath = gtf
				if fastaPath == "" {
					fastaPath = fasta
				}
				if canonicalPath == "" {
					canonicalPath = canonical
				}
			}
			return runTranscriptsLoad(a, cmd.OutOrStdout(), gtfPath, fastaPath, canonicalPath)
		},
	}
	cmd.Flags().StringVar(&gtfPath, "gtf", "", "GENCODE annotation GTF")
	cmd.Flags().StringVar(&fastaPath, "fasta", "", "GENCODE pc_transcripts FASTA")
	cmd.Flags().StringVar(&canonicalPath, "canonical", "", "Canonical transcript table")
	return cmd
}

func runTranscriptsLoad(a *app, w io.Writer, gtfPath, fastaPath, canonicalPath string) error {
	start := time.Now()
	transcripts, err := cache.LoadGENCODE(gtfPath, fastaPath)
	if err != nil {
		return err
	}
	if canonicalPath != "" {
		overrides, err := cache.LoadCanonicalOverrides(canonicalPath, viper.GetString("transcripts.canonical_column"))
		if err != nil {
			return err
		}
		changed := overrides.Apply(transcripts)
		a.logger.Info("applied canonical overrides",
			zap.String("file", canonicalPath),
			zap.Int("overrides", len(overrides)),
			zap.Int("genes_changed", changed))
	}

	path := storePath("transcripts")
	if err := ensureParent(path); err != nil {
		return err
	}
	s, err := cache.OpenStore(path)
	if err != nil {
		return fmt.Errorf("open transcript store: %w", err)
	}
	defer s.Close()
	s.SetLogger(a.logger)

	if err := s.Replace(transcripts); err != nil {
		return err
	}
	fmt.Fprintf(w, "Loaded %d transcripts into %s in %s\n", len(transcripts), path, time.Since(start).Round(time.Millisecond))
	return nil
}
