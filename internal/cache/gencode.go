package cache

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/inodb/vibe-acmg/internal/bgz"
)

// gtfFeature is one parsed GTF line.
type gtfFeature struct {
	chrom       string
	featureType string
	start       int64
	end         int64
	strand      string
	attributes  map[string]string
}

// LoadGENCODE reads protein-coding transcripts from a GENCODE GTF and
// attaches CDS sequences from the matching pc_transcripts FASTA. Either
// file may be gzip or BGZF compressed. fastaPath may be empty.
func LoadGENCODE(gtfPath, fastaPath string) ([]*Transcript, error) {
	gtf, err := bgz.Open(gtfPath)
	if err != nil {
		return nil, fmt.Errorf("open GTF file: %w", err)
	}
	defer gtf.Close()

	transcripts, err := ParseGTF(gtf)
	if err != nil {
		return nil, err
	}
	if fastaPath == "" {
		return transcripts, nil
	}

	fa, err := bgz.Open(fastaPath)
	if err != nil {
		return nil, fmt.Errorf("open FASTA file: %w", err)
	}
	defer fa.Close()

	seqs, err := ParseCDSFASTA(fa)
	if err != nil {
		return nil, err
	}
	for _, t := range transcripts {
		t.CDSSequence = seqs[t.ID]
	}
	return transcripts, nil
}

// ParseGTF returns the protein-coding transcripts of a GTF stream, ordered
// by contig and start. Malformed lines are skipped.
func ParseGTF(r io.Reader) ([]*Transcript, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	byID := make(map[string]*Transcript)
	exons := make(map[string][]Exon)
	cds := make(map[string][][2]int64)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}
		feat, err := parseGTFLine(line)
		if err != nil {
			continue
		}
		id := stripVersion(feat.attributes["transcript_id"])
		if id == "" {
			continue
		}

		switch feat.featureType {
		case "transcript":
			tags := feat.attributes["tag"]
			byID[id] = &Transcript{
				ID:           id,
				GeneID:       stripVersion(feat.attributes["gene_id"]),
				GeneName:     feat.attributes["gene_name"],
				Chrom:        feat.chrom,
				Start:        feat.start,
				End:          feat.end,
				Strand:       parseStrand(feat.strand),
				Biotype:      feat.attributes["transcript_type"],
				IsCanonical:  strings.Contains(tags, "Ensembl_canonical"),
				IsMANESelect: strings.Contains(tags, "MANE_Select"),
			}
		case "exon":
			n, _ := strconv.Atoi(feat.attributes["exon_number"])
			exons[id] = append(exons[id], Exon{Number: n, Start: feat.start, End: feat.end, Frame: -1})
		case "CDS", "stop_codon":
			// GENCODE excludes the stop codon from CDS features
			cds[id] = append(cds[id], [2]int64{feat.start, feat.end})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GTF: %w", err)
	}

	out := make([]*Transcript, 0, len(byID))
	for id, t := range byID {
		regions := cds[id]
		if len(regions) == 0 || len(exons[id]) == 0 {
			continue
		}
		t.CDSStart, t.CDSEnd = regions[0][0], regions[0][1]
		for _, r := range regions[1:] {
			t.CDSStart = min(t.CDSStart, r[0])
			t.CDSEnd = max(t.CDSEnd, r[1])
		}
		t.Exons = assignFrames(t, exons[id])
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Chrom != out[j].Chrom {
			return out[i].Chrom < out[j].Chrom
		}
		return out[i].Start < out[j].Start
	})
	return out, nil
}

// assignFrames clips each exon to the CDS and sets its reading frame,
// walking exons in transcript order. Exons are returned in exon-number
// order.
func assignFrames(t *Transcript, exons []Exon) []Exon {
	sort.Slice(exons, func(i, j int) bool { return exons[i].Number < exons[j].Number })
	var cdsPos int64
	for i := range exons {
		e := &exons[i]
		if e.End < t.CDSStart || e.Start > t.CDSEnd {
			continue
		}
		e.CDSStart = max(e.Start, t.CDSStart)
		e.CDSEnd = min(e.End, t.CDSEnd)
		e.Frame = int(cdsPos % 3)
		cdsPos += e.CDSEnd - e.CDSStart + 1
	}
	return exons
}

func parseGTFLine(line string) (*gtfFeature, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 9 {
		return nil, fmt.Errorf("invalid GTF line: expected 9 fields, got %d", len(fields))
	}
	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse start: %w", err)
	}
	end, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse end: %w", err)
	}
	return &gtfFeature{
		chrom:       normalizeChrom(fields[0]),
		featureType: fields[2],
		start:       start,
		end:         end,
		strand:      fields[6],
		attributes:  parseAttributes(fields[8]),
	}, nil
}

// parseAttributes parses `key "value"; key "value";`. Repeated keys such as
// tag are joined with commas.
func parseAttributes(s string) map[string]string {
	attrs := make(map[string]string)
	for _, part := range strings.Split(s, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), " ")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)
		if prev, dup := attrs[key]; dup {
			value = prev + "," + value
		}
		attrs[key] = value
	}
	return attrs
}

func parseStrand(s string) int8 {
	if s == "-" {
		return -1
	}
	return 1
}

// stripVersion turns "ENST00000456328.2" into "ENST00000456328".
func stripVersion(id string) string {
	if idx := strings.LastIndex(id, "."); idx != -1 {
		return id[:idx]
	}
	return id
}

// ParseCDSFASTA reads a GENCODE pc_transcripts FASTA and returns the CDS
// portion of each sequence keyed by unversioned transcript ID. Headers
// without a CDS range keep the whole sequence.
//
//	>ENST00000311936.8|ENSG00000133703.13|...|KRAS-201|KRAS|5306|UTR5:1-190|CDS:191-757|UTR3:758-5306|
func ParseCDSFASTA(r io.Reader) (map[string]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	seqs := make(map[string]string)
	var header string
	var seq strings.Builder
	flush := func() {
		if header == "" {
			return
		}
		id, s := fastaRecord(header, seq.String())
		seqs[id] = s
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, ">") {
			flush()
			header = line[1:]
			seq.Reset()
			continue
		}
		seq.WriteString(strings.TrimSpace(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan FASTA: %w", err)
	}
	flush()
	return seqs, nil
}

func fastaRecord(header, seq string) (string, string) {
	fields := strings.Split(header, "|")
	id, _, _ := strings.Cut(fields[0], " ")
	id = stripVersion(id)
	for _, f := range fields[1:] {
		r, ok := strings.CutPrefix(f, "CDS:")
		if !ok {
			continue
		}
		from, to, ok := strings.Cut(r, "-")
		if !ok {
			break
		}
		s, err1 := strconv.Atoi(from)
		e, err2 := strconv.Atoi(to)
		if err1 == nil && err2 == nil && s >= 1 && s <= e && e <= len(seq) {
			return id, seq[s-1 : e]
		}
		break
	}
	return id, seq
}
