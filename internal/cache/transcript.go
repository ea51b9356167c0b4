// Package cache holds transcript models and the in-memory and DuckDB-backed
// transcript indexes used for re-annotating reference variants.
package cache

// Transcript represents a specific gene isoform.
type Transcript struct {
	ID           string // Transcript ID (e.g., ENST00000311936)
	GeneID       string
	GeneName     string // Gene symbol
	Chrom        string // Contig name without "chr"
	Start        int64  // 1-based
	End          int64  // 1-based, inclusive
	Strand       int8   // +1 or -1
	Biotype      string
	IsCanonical  bool
	IsMANESelect bool
	Exons        []Exon // Ordered by exon number
	CDSStart     int64  // Genomic, 1-based; 0 if non-coding
	CDSEnd       int64  // Genomic, 1-based; 0 if non-coding
	// CDSSequence is the spliced coding sequence, 5' to 3' on the
	// transcript strand.
	CDSSequence string
}

// Exon represents a single exon within a transcript.
type Exon struct {
	Number   int   // 1-based
	Start    int64 // Genomic start (1-based)
	End      int64 // Genomic end (1-based, inclusive)
	CDSStart int64 // CDS portion start, 0 if entirely non-coding
	CDSEnd   int64 // CDS portion end, 0 if entirely non-coding
	Frame    int   // 0, 1 or 2; -1 if non-coding
}

// IsProteinCoding returns true if the transcript has a coding sequence.
func (t *Transcript) IsProteinCoding() bool {
	return t.CDSStart > 0 && t.CDSEnd > 0
}

// IsForwardStrand returns true if the transcript is on the forward strand.
func (t *Transcript) IsForwardStrand() bool {
	return t.Strand == 1
}

// Contains returns true if pos is within the transcript boundaries.
func (t *Transcript) Contains(pos int64) bool {
	return pos >= t.Start && pos <= t.End
}

// ContainsCDS returns true if pos is within the CDS boundaries.
func (t *Transcript) ContainsCDS(pos int64) bool {
	if !t.IsProteinCoding() {
		return false
	}
	return pos >= t.CDSStart && pos <= t.CDSEnd
}

// FindExon returns the exon containing pos, or nil if pos is intronic.
// Exons may be in ascending (forward strand) or descending (reverse strand)
// genomic order.
func (t *Transcript) FindExon(pos int64) *Exon {
	n := len(t.Exons)
	if n == 0 {
		return nil
	}
	ascending := n < 2 || t.Exons[0].Start <= t.Exons[n-1].Start
	lo, hi := 0, n-1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		e := &t.Exons[mid]
		if pos >= e.Start && pos <= e.End {
			return e
		}
		if ascending == (pos < e.Start) {
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}
	return nil
}

// IsCoding returns true if the exon contains coding sequence.
func (e *Exon) IsCoding() bool {
	return e.CDSStart > 0 && e.CDSEnd > 0
}
