// Package vcf reads variant records from plain, gzip or BGZF compressed VCF
// files.
package vcf

import (
	"strings"

	"github.com/inodb/vibe-acmg/internal/variantkey"
)

// Variant represents a single genomic variant from a VCF file.
type Variant struct {
	Chrom  string                 // Chromosome name (e.g., "12", "chr12")
	Pos    int64                  // 1-based genomic position
	ID     string                 // Variant identifier (e.g., rs ID)
	Ref    string                 // Reference allele
	Alt    string                 // Alternate allele(s); a single allele after splitting
	Qual   float64                // Quality score
	Filter string                 // Filter status (PASS or filter name)
	Info   map[string]interface{} // INFO field key-value pairs
	Format []string               // FORMAT keys, nil without sample columns
	// Samples holds the raw sample columns in header order.
	Samples []string
	// AltIndex is the 1-based index of Alt among the record's original
	// alternate alleles, used to read genotypes after splitting.
	AltIndex int
}

// Key returns the variant key of a split, single-allele record.
func (v *Variant) Key() (variantkey.Key, error) {
	return variantkey.New(v.Chrom, v.Pos, v.Ref, v.Alt)
}

// SampleField returns the value of FORMAT field name for sample i, or ""
// when the field or sample is absent.
func (v *Variant) SampleField(i int, name string) string {
	if i < 0 || i >= len(v.Samples) {
		return ""
	}
	idx := -1
	for j, f := range v.Format {
		if f == name {
			idx = j
			break
		}
	}
	if idx < 0 {
		return ""
	}
	values := strings.Split(v.Samples[i], ":")
	if idx >= len(values) {
		return ""
	}
	return values[idx]
}
