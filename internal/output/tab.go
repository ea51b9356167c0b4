// Package output provides evidence and lookup output formatters.
package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-acmg/internal/assigner"
	"github.com/inodb/vibe-acmg/internal/clinvar"
	"github.com/inodb/vibe-acmg/internal/evaluation"
)

// EvidenceColumns is the header of the evidence table.
var EvidenceColumns = []string{
	"#Variant",
	"Gene",
	"Consequence",
	"HGVSc",
	"HGVSp",
	"Mode",
	"Proband_GT",
	"Evidence",
	"Classification",
	"PS1_PM5_Candidates",
	"Rules_Applied",
}

// EvidenceWriter writes one tab-delimited row per assignment.
type EvidenceWriter struct {
	w *bufio.Writer
}

// NewEvidenceWriter creates a new evidence table writer.
func NewEvidenceWriter(w io.Writer) *EvidenceWriter {
	return &EvidenceWriter{w: bufio.NewWriter(w)}
}

// WriteMeta writes a "##key=value" line. Call before WriteHeader.
func (ew *EvidenceWriter) WriteMeta(key, value string) error {
	_, err := ew.w.WriteString("##" + key + "=" + value + "\n")
	return err
}

// WriteHeader writes the header line.
func (ew *EvidenceWriter) WriteHeader() error {
	_, err := ew.w.WriteString(strings.Join(EvidenceColumns, "\t") + "\n")
	return err
}

// Write writes the assignment of e.
func (ew *EvidenceWriter) Write(e *evaluation.VariantEvaluation, a assigner.Assignment) error {
	values := []string{
		a.Key.String(),
		orDash(e.GeneSymbol),
		orDash(e.Consequence),
		orDash(e.CodingChange),
		orDash(e.ProteinChange),
		string(a.Mode),
		a.ProbandGenotype.String(),
		orDash(a.Evidence.String()),
		string(a.Classification),
		strconv.Itoa(a.Diagnostics.PS1PM5Candidates),
		orDash(strings.Join(a.Diagnostics.Applied, ",")),
	}
	_, err := ew.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (ew *EvidenceWriter) Flush() error {
	return ew.w.Flush()
}

// ClinVarColumns is the header of the ClinVar lookup table.
var ClinVarColumns = []string{
	"#Variant",
	"Significance",
	"Secondary",
	"Review_Status",
	"Stars",
}

// ClinVarWriter writes ClinVar store entries.
type ClinVarWriter struct {
	w *bufio.Writer
}

// NewClinVarWriter creates a new ClinVar entry writer.
func NewClinVarWriter(w io.Writer) *ClinVarWriter {
	return &ClinVarWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line.
func (cw *ClinVarWriter) WriteHeader() error {
	_, err := cw.w.WriteString(strings.Join(ClinVarColumns, "\t") + "\n")
	return err
}

// Write writes a single entry.
func (cw *ClinVarWriter) Write(e clinvar.Entry) error {
	in := e.Interpretation
	secondary := make([]string, len(in.Secondary))
	for i, s := range in.Secondary {
		secondary[i] = string(s)
	}
	values := []string{
		e.Key.String(),
		orDash(string(in.Primary)),
		orDash(strings.Join(secondary, "|")),
		orDash(in.ReviewStatus),
		strconv.Itoa(in.Stars),
	}
	_, err := cw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (cw *ClinVarWriter) Flush() error {
	return cw.w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
