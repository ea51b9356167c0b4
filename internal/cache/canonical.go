package cache

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// CanonicalOverrides maps gene symbol to the transcript ID that should be
// treated as canonical for that gene.
type CanonicalOverrides map[string]string

// Canonical transcript table published by Genome Nexus, one row per HGNC
// symbol with several curated choices of transcript.
const (
	canonicalURLGRCh38 = "https://raw.githubusercontent.com/genome-nexus/genome-nexus-importer/master/data/grch38_ensembl95/export/ensembl_biomart_canonical_transcripts_per_hgnc.txt"
	canonicalURLGRCh37 = "https://raw.githubusercontent.com/genome-nexus/genome-nexus-importer/master/data/grch37_ensembl92/export/ensembl_biomart_canonical_transcripts_per_hgnc.txt"

	// CanonicalFileName is the local name of the downloaded table.
	CanonicalFileName = "ensembl_biomart_canonical_transcripts_per_hgnc.txt"
)

// Columns of the canonical table selectable with LoadCanonicalOverrides.
const (
	CanonicalColumnGenomeNexus = "genome_nexus_canonical_transcript"
	CanonicalColumnMSKCC       = "mskcc_canonical_transcript"
	CanonicalColumnUniprot     = "uniprot_canonical_transcript"
)

// CanonicalFileURL returns the canonical table URL for assembly.
func CanonicalFileURL(assembly string) string {
	if strings.EqualFold(assembly, "GRCh37") {
		return canonicalURLGRCh37
	}
	return canonicalURLGRCh38
}

// LoadCanonicalOverrides reads the transcript column named column from a
// canonical table. An empty column selects the Genome Nexus choice.
func LoadCanonicalOverrides(path, column string) (CanonicalOverrides, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open canonical overrides file: %w", err)
	}
	defer f.Close()

	return parseCanonicalOverrides(f, column)
}

func parseCanonicalOverrides(r io.Reader, column string) (CanonicalOverrides, error) {
	if column == "" {
		column = CanonicalColumnGenomeNexus
	}
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		return nil, fmt.Errorf("canonical overrides: missing header")
	}
	header := strings.Split(scanner.Text(), "\t")
	col := -1
	for i, name := range header {
		if name == column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("canonical overrides: no column %q", column)
	}

	overrides := make(CanonicalOverrides)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) <= col {
			continue
		}
		gene, tx := fields[0], fields[col]
		if gene == "" || tx == "" || tx == "nan" {
			continue
		}
		overrides[gene] = stripVersion(tx)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan canonical overrides: %w", err)
	}
	return overrides, nil
}

// Apply marks the override transcript of every listed gene as canonical and
// clears the flag on that gene's other transcripts. Genes whose override is
// not among transcripts keep their GTF flags. It returns the number of genes
// changed.
func (o CanonicalOverrides) Apply(transcripts []*Transcript) int {
	present := make(map[string]bool)
	for _, t := range transcripts {
		if id, ok := o[t.GeneName]; ok && id == t.ID {
			present[t.GeneName] = true
		}
	}
	changed := make(map[string]bool)
	for _, t := range transcripts {
		if !present[t.GeneName] {
			continue
		}
		want := t.ID == o[t.GeneName]
		if t.IsCanonical != want {
			t.IsCanonical = want
			changed[t.GeneName] = true
		}
	}
	return len(changed)
}

// DownloadCanonicalOverrides fetches the canonical table for assembly into
// destPath, replacing it atomically.
func DownloadCanonicalOverrides(ctx context.Context, client *http.Client, assembly, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, CanonicalFileURL(assembly), nil)
	if err != nil {
		return fmt.Errorf("download canonical overrides: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download canonical overrides: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download canonical overrides: HTTP %s", resp.Status)
	}

	tmp := destPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write canonical overrides: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write canonical overrides: %w", err)
	}
	if err := os.Rename(tmp, destPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename canonical overrides: %w", err)
	}
	return nil
}
