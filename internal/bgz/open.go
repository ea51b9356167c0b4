// Package bgz opens plain, gzip and BGZF compressed text files behind a
// single reader.
package bgz

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/biogo/hts/bgzf"
)

var gzipMagic = []byte{0x1f, 0x8b}

// bgzfExtra is the BC subfield that marks a gzip member as a BGZF block.
var bgzfExtra = []byte{'B', 'C', 0x02, 0x00}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open opens path for reading. Compression is detected from the content,
// not the file name: BGZF files are read with a BGZF reader and other gzip
// files with compress/gzip.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := newReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	r.closers = append(r.closers, f)
	return r, nil
}

// NewReader wraps r, decompressing it if it starts with a gzip header.
// Closing the result does not close r.
func NewReader(r io.Reader) (io.ReadCloser, error) {
	return newReader(r)
}

func newReader(r io.Reader) (*readCloser, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	head, err := br.Peek(16)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, err
	}
	if !bytes.HasPrefix(head, gzipMagic) {
		return &readCloser{Reader: br}, nil
	}
	if isBGZF(head) {
		bz, err := bgzf.NewReader(br, 1)
		if err != nil {
			return nil, fmt.Errorf("bgzf reader: %w", err)
		}
		return &readCloser{Reader: bz, closers: []io.Closer{bz}}, nil
	}
	gz, err := gzip.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	return &readCloser{Reader: gz, closers: []io.Closer{gz}}, nil
}

// isBGZF checks the FEXTRA flag and the BC subfield of a gzip header.
func isBGZF(head []byte) bool {
	const fextra = 0x04
	return len(head) >= 16 && head[3]&fextra != 0 && bytes.Equal(head[12:16], bgzfExtra)
}
