package clinvar

import (
	"fmt"
	"sort"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-acmg/internal/duckdb"
	"github.com/inodb/vibe-acmg/internal/variantkey"
)

// Writer accumulates records for a store build. It is not safe for
// concurrent use; builds are single-threaded.
type Writer struct {
	store      *Store
	pending    map[variantkey.Key]Interpretation
	duplicates int
}

// NewWriter returns a Writer that will replace the contents of s on Commit.
func (s *Store) NewWriter() *Writer {
	return &Writer{store: s, pending: make(map[variantkey.Key]Interpretation)}
}

// Add stages a record. A second record for an already staged key is
// ignored and Add returns false.
func (w *Writer) Add(r Record) bool {
	if _, ok := w.pending[r.Key]; ok {
		w.duplicates++
		return false
	}
	w.pending[r.Key] = r.Interpretation
	return true
}

// Len returns the number of staged records.
func (w *Writer) Len() int {
	return len(w.pending)
}

// Duplicates returns how many records were ignored as duplicate keys.
func (w *Writer) Duplicates() int {
	return w.duplicates
}

// Commit replaces the store contents with the staged records in key order,
// records meta and compacts the database file. On error the previous
// contents and meta are kept.
func (w *Writer) Commit(meta duckdb.Meta) error {
	keys := make([]variantkey.Key, 0, len(w.pending))
	for k := range w.pending {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return variantkey.Less(keys[i], keys[j]) })

	err := w.store.db.ReplaceTable("clinvar", clinvarDDL, meta, func(a *goduckdb.Appender) error {
		for _, k := range keys {
			enc, err := variantkey.Encode(k)
			if err != nil {
				return err
			}
			in := w.pending[k]
			if err := a.AppendRow(
				enc,
				int64(k.Contig),
				k.Pos,
				k.Ref,
				k.Alt,
				string(in.Primary),
				formatSecondary(in.Secondary),
				in.ReviewStatus,
				int64(in.Stars),
				formatIncluded(in.Included),
			); err != nil {
				return fmt.Errorf("append clinvar %s: %w", k, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	w.pending = make(map[variantkey.Key]Interpretation)
	return nil
}
