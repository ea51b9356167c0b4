// Package variantkey encodes genomic variants into order-preserving binary keys.
//
// A key is laid out as
//
//	contig (1 byte) | position (4 bytes, big-endian) | ref | 0x00 | alt
//
// so that bytes.Compare on two encodings agrees with Compare on the decoded
// keys: contig, then position, then reference and alternate alleles
// lexicographically.
package variantkey

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Contig identifiers for the non-numeric human chromosomes.
const (
	ContigX  uint8 = 23
	ContigY  uint8 = 24
	ContigMT uint8 = 25
)

// MaxPos is the largest position representable in a key.
const MaxPos = math.MaxUint32

const headerLen = 5

var (
	// ErrUnknownContig is returned for contig names outside 1-22, X, Y and MT.
	ErrUnknownContig = errors.New("unknown contig")
	// ErrMalformedKey is returned when a key cannot be encoded or decoded.
	ErrMalformedKey = errors.New("malformed variant key")
)

// Key identifies a variant by contig, 1-based position and alleles.
// Keys are comparable and can be used as map keys.
type Key struct {
	Contig uint8
	Pos    int64
	Ref    string
	Alt    string
}

// New builds a Key from a contig name such as "7", "chr7" or "MT".
func New(contig string, pos int64, ref, alt string) (Key, error) {
	id, err := ContigID(contig)
	if err != nil {
		return Key{}, err
	}
	return Key{Contig: id, Pos: pos, Ref: ref, Alt: alt}, nil
}

// Parse reads a key written as chrom-pos-ref-alt (the String form) or
// chrom:pos:ref:alt.
func Parse(s string) (Key, error) {
	sep := "-"
	if strings.Contains(s, ":") {
		sep = ":"
	}
	parts := strings.Split(s, sep)
	if len(parts) != 4 {
		return Key{}, fmt.Errorf("parse %q: %w", s, ErrMalformedKey)
	}
	pos, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || pos < 1 || pos > MaxPos {
		return Key{}, fmt.Errorf("parse %q: position: %w", s, ErrMalformedKey)
	}
	k, err := New(parts[0], pos, strings.ToUpper(parts[2]), strings.ToUpper(parts[3]))
	if err != nil {
		return Key{}, fmt.Errorf("parse %q: %w", s, err)
	}
	return k, nil
}

// ContigID maps a contig name to its numeric identifier.
func ContigID(name string) (uint8, error) {
	n := strings.TrimPrefix(name, "chr")
	switch n {
	case "X", "x":
		return ContigX, nil
	case "Y", "y":
		return ContigY, nil
	case "M", "MT", "m", "mt":
		return ContigMT, nil
	}
	v, err := strconv.Atoi(n)
	if err != nil || v < 1 || v > 22 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownContig, name)
	}
	return uint8(v), nil
}

// ContigName returns the canonical name (no "chr" prefix) for an identifier.
func ContigName(id uint8) string {
	switch id {
	case ContigX:
		return "X"
	case ContigY:
		return "Y"
	case ContigMT:
		return "MT"
	}
	return strconv.Itoa(int(id))
}

// ContigName returns the canonical contig name of the key.
func (k Key) ContigName() string {
	return ContigName(k.Contig)
}

// IsSNV reports whether both alleles are a single base.
func (k Key) IsSNV() bool {
	return len(k.Ref) == 1 && len(k.Alt) == 1
}

// String formats the key as chrom-pos-ref-alt.
func (k Key) String() string {
	return k.ContigName() + "-" + strconv.FormatInt(k.Pos, 10) + "-" + k.Ref + "-" + k.Alt
}

// Compare orders keys by contig, position, reference then alternate allele.
func Compare(a, b Key) int {
	switch {
	case a.Contig < b.Contig:
		return -1
	case a.Contig > b.Contig:
		return 1
	case a.Pos < b.Pos:
		return -1
	case a.Pos > b.Pos:
		return 1
	}
	if c := strings.Compare(a.Ref, b.Ref); c != 0 {
		return c
	}
	return strings.Compare(a.Alt, b.Alt)
}

// Less reports whether a sorts before b.
func Less(a, b Key) bool {
	return Compare(a, b) < 0
}

// LowerBound returns the smallest possible key at the given position.
// Negative positions are clamped to zero.
func LowerBound(contig uint8, pos int64) Key {
	if pos < 0 {
		pos = 0
	}
	return Key{Contig: contig, Pos: pos}
}

// Encode serializes k into its order-preserving binary form.
func Encode(k Key) ([]byte, error) {
	if k.Pos < 0 || k.Pos > MaxPos {
		return nil, fmt.Errorf("%w: position %d out of range", ErrMalformedKey, k.Pos)
	}
	if strings.IndexByte(k.Ref, 0) >= 0 || strings.IndexByte(k.Alt, 0) >= 0 {
		return nil, fmt.Errorf("%w: allele contains NUL", ErrMalformedKey)
	}
	buf := make([]byte, headerLen, headerLen+len(k.Ref)+1+len(k.Alt))
	buf[0] = k.Contig
	binary.BigEndian.PutUint32(buf[1:headerLen], uint32(k.Pos))
	buf = append(buf, k.Ref...)
	buf = append(buf, 0)
	buf = append(buf, k.Alt...)
	return buf, nil
}

// MustEncode is like Encode but panics on error. Intended for tests and
// constants.
func MustEncode(k Key) []byte {
	b, err := Encode(k)
	if err != nil {
		panic(err)
	}
	return b
}

// Decode parses a key produced by Encode.
func Decode(b []byte) (Key, error) {
	if len(b) < headerLen+1 {
		return Key{}, fmt.Errorf("%w: %d bytes", ErrMalformedKey, len(b))
	}
	sep := bytes.IndexByte(b[headerLen:], 0)
	if sep < 0 {
		return Key{}, fmt.Errorf("%w: missing allele separator", ErrMalformedKey)
	}
	return Key{
		Contig: b[0],
		Pos:    int64(binary.BigEndian.Uint32(b[1:headerLen])),
		Ref:    string(b[headerLen : headerLen+sep]),
		Alt:    string(b[headerLen+sep+1:]),
	}, nil
}

// LengthFilter selects keys by allele length during range scans.
type LengthFilter func(Key) bool

// AnyLength accepts every key.
func AnyLength(Key) bool { return true }

// SubstitutionsOnly accepts keys whose reference and alternate alleles are
// at most one base long.
func SubstitutionsOnly(k Key) bool {
	return len(k.Ref) <= 1 && len(k.Alt) <= 1
}
