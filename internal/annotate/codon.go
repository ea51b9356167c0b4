package annotate

// standardCode is NCBI translation table 1 with codons enumerated in TCAG
// order: TTT, TTC, TTA, TTG, TCT, ...
const standardCode = "FFLLSSSSYY**CC*WLLLLPPPPHHQQRRRRIIIMTTTTNNKKSSRRVVVVAAAADDEEGGGG"

var codonTable = buildCodonTable()

func buildCodonTable() map[string]byte {
	const bases = "TCAG"
	table := make(map[string]byte, 64)
	i := 0
	for _, a := range []byte(bases) {
		for _, b := range []byte(bases) {
			for _, c := range []byte(bases) {
				table[string([]byte{a, b, c})] = standardCode[i]
				i++
			}
		}
	}
	return table
}

// TranslateCodon translates a DNA codon to its amino acid. Returns 'X' for
// unknown codons and '*' for stop codons. Codons must be uppercase.
func TranslateCodon(codon string) byte {
	if aa, ok := codonTable[codon]; ok {
		return aa
	}
	return 'X'
}

// Complement returns the complement of a single base.
func Complement(base byte) byte {
	switch base {
	case 'A':
		return 'T'
	case 'T':
		return 'A'
	case 'G':
		return 'C'
	case 'C':
		return 'G'
	case 'a':
		return 't'
	case 't':
		return 'a'
	case 'g':
		return 'c'
	case 'c':
		return 'g'
	default:
		return 'N'
	}
}

// ReverseComplement returns the reverse complement of a DNA sequence.
func ReverseComplement(seq string) string {
	out := make([]byte, len(seq))
	for i := range seq {
		out[len(seq)-1-i] = Complement(seq[i])
	}
	return string(out)
}

// GetCodon extracts 1-based codon number n from a CDS sequence.
func GetCodon(cdsSequence string, n int64) string {
	if n < 1 {
		return ""
	}
	start := (n - 1) * 3
	if start+3 > int64(len(cdsSequence)) {
		return ""
	}
	return cdsSequence[start : start+3]
}

// MutateCodon replaces the base at offset (0, 1 or 2) of codon.
func MutateCodon(codon string, offset int, base byte) string {
	if len(codon) != 3 || offset < 0 || offset > 2 {
		return codon
	}
	b := []byte(codon)
	b[offset] = base
	return string(b)
}

// AminoAcidSingleToThree converts single letter amino acid to three letter code.
var AminoAcidSingleToThree = map[byte]string{
	'A': "Ala", 'C': "Cys", 'D': "Asp", 'E': "Glu",
	'F': "Phe", 'G': "Gly", 'H': "His", 'I': "Ile",
	'K': "Lys", 'L': "Leu", 'M': "Met", 'N': "Asn",
	'P': "Pro", 'Q': "Gln", 'R': "Arg", 'S': "Ser",
	'T': "Thr", 'V': "Val", 'W': "Trp", 'Y': "Tyr",
	'*': "Ter", 'X': "Xaa",
}

func aaThree(aa byte) string {
	if three, ok := AminoAcidSingleToThree[aa]; ok {
		return three
	}
	return "Xaa"
}
