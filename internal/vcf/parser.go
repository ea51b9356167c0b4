package vcf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/inodb/vibe-acmg/internal/bgz"
)

// Parser reads variants from a VCF file.
type Parser struct {
	reader      *bufio.Reader
	closer      io.Closer
	lineNumber  int
	header      []string
	sampleNames []string          // sample names from #CHROM header line
	infoNumbers map[string]string // ##INFO ID -> Number
}

// NewParser creates a new VCF parser for the given file. Plain, gzip and
// BGZF compressed files are detected from their content; "-" reads stdin.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin)
	}

	rc, err := bgz.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}
	p := &Parser{reader: bufio.NewReader(rc), closer: rc}
	if err := p.parseHeader(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader (e.g., stdin).
// Compressed input is detected as in NewParser.
func NewParserFromReader(r io.Reader) (*Parser, error) {
	rc, err := bgz.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open vcf stream: %w", err)
	}
	p := &Parser{reader: bufio.NewReader(rc), closer: rc}
	if err := p.parseHeader(); err != nil {
		return nil, err
	}
	return p, nil
}

// parseHeader reads and stores VCF header lines.
func (p *Parser) parseHeader() error {
	p.infoNumbers = make(map[string]string)
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("read header: %w", err)
		}
		p.lineNumber++
		line = strings.TrimRight(line, "\r\n")

		if strings.HasPrefix(line, "##") {
			p.header = append(p.header, line)
			if def, ok := strings.CutPrefix(line, "##INFO=<"); ok {
				id, number := parseInfoDefinition(def)
				if id != "" {
					p.infoNumbers[id] = number
				}
			}
			continue
		}

		if strings.HasPrefix(line, "#CHROM") {
			p.header = append(p.header, line)
			// sample names start after FORMAT (index 9+)
			fields := strings.Split(line, "\t")
			if len(fields) > 9 {
				p.sampleNames = fields[9:]
			}
			return nil
		}

		return &ParseError{
			Line:    p.lineNumber,
			Message: "expected #CHROM header line",
		}
	}

	return &ParseError{
		Line:    p.lineNumber,
		Message: "no #CHROM header line found",
	}
}

// parseInfoDefinition extracts ID and Number from the body of an ##INFO line.
func parseInfoDefinition(def string) (id, number string) {
	for _, part := range strings.Split(strings.TrimSuffix(def, ">"), ",") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		switch k {
		case "ID":
			id = v
		case "Number":
			number = v
		}
		if id != "" && number != "" {
			break
		}
	}
	return id, number
}

// Next reads the next variant from the VCF file.
// Returns nil, nil when there are no more variants.
func (p *Parser) Next() (*Variant, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("read variant line: %w", err)
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		return p.parseLine(line)
	}
}

// parseLine parses a single VCF data line into a Variant.
func (p *Parser) parseLine(line string) (*Variant, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 8 {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("expected at least 8 columns, found %d", len(fields)),
		}
	}

	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("invalid position: %s", fields[1]),
		}
	}

	qual := 0.0
	if fields[5] != "." {
		qual, _ = strconv.ParseFloat(fields[5], 64)
	}

	v := &Variant{
		Chrom:    fields[0],
		Pos:      pos,
		ID:       fields[2],
		Ref:      fields[3],
		Alt:      fields[4],
		Qual:     qual,
		Filter:   fields[6],
		Info:     parseInfo(fields[7]),
		AltIndex: 1,
	}
	if len(fields) > 8 {
		v.Format = strings.Split(fields[8], ":")
		v.Samples = fields[9:]
	}
	return v, nil
}

// parseInfo parses the INFO field into a map.
func parseInfo(info string) map[string]interface{} {
	result := make(map[string]interface{})
	if info == "." {
		return result
	}

	for _, kv := range strings.Split(info, ";") {
		if k, v, ok := strings.Cut(kv, "="); ok {
			result[k] = v
		} else {
			// flag
			result[k] = true
		}
	}
	return result
}

// Split splits a multi-allelic variant into one variant per alternate
// allele. INFO fields declared Number=A or Number=R in the header are cut
// down to the values of each allele; other fields are shared.
func (p *Parser) Split(v *Variant) []*Variant {
	return SplitMultiAllelic(v, p.infoNumbers)
}

// SplitMultiAllelic splits a multi-allelic variant into separate variants.
// numbers maps INFO IDs to their header Number and may be nil.
func SplitMultiAllelic(v *Variant, numbers map[string]string) []*Variant {
	alts := strings.Split(v.Alt, ",")
	if len(alts) == 1 {
		return []*Variant{v}
	}

	variants := make([]*Variant, len(alts))
	for i, alt := range alts {
		variants[i] = &Variant{
			Chrom:    v.Chrom,
			Pos:      v.Pos,
			ID:       v.ID,
			Ref:      v.Ref,
			Alt:      alt,
			Qual:     v.Qual,
			Filter:   v.Filter,
			Info:     alleleInfo(v.Info, numbers, i, len(alts)),
			Format:   v.Format,
			Samples:  v.Samples,
			AltIndex: i + 1,
		}
	}
	return variants
}

func alleleInfo(info map[string]interface{}, numbers map[string]string, i, n int) map[string]interface{} {
	out := make(map[string]interface{}, len(info))
	for k, val := range info {
		s, isString := val.(string)
		if !isString {
			out[k] = val
			continue
		}
		values := strings.Split(s, ",")
		switch {
		case numbers[k] == "A" && len(values) == n:
			out[k] = values[i]
		case numbers[k] == "R" && len(values) == n+1:
			out[k] = values[0] + "," + values[i+1]
		default:
			out[k] = val
		}
	}
	return out
}

// Header returns the VCF header lines.
func (p *Parser) Header() []string {
	return p.header
}

// SampleNames returns sample names from the #CHROM header line.
// Returns nil if no sample columns are present.
func (p *Parser) SampleNames() []string {
	return p.sampleNames
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}

// ParseError represents an error during VCF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
}
