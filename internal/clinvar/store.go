package clinvar

import (
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-acmg/internal/duckdb"
	"github.com/inodb/vibe-acmg/internal/variantkey"
)

// scanPageSize bounds how many rows a forward scan fetches per query.
const scanPageSize = 64

const selectColumns = `key, significance, secondary, review_status, stars, included`

// Entry is a stored variant and its interpretation.
type Entry struct {
	Key            variantkey.Key
	Interpretation Interpretation
}

// Store is a read-only sorted map from variant key to interpretation.
// Keys are kept in encoded order, so range scans walk the genome in
// contig, position, ref, alt order. Safe for concurrent readers once
// Preload (if used) has returned.
type Store struct {
	db     *duckdb.Store
	index  []Entry // sorted; nil unless preloaded
	logger *zap.Logger
}

// Open opens or creates a ClinVar store at path. Empty path is in-memory.
func Open(path string) (*Store, error) {
	db, err := duckdb.Open(path)
	if err != nil {
		return nil, err
	}
	if err := ensureSchema(db.DB()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure clinvar schema: %w", err)
	}
	return New(db), nil
}

// New wraps an already-open database that holds the clinvar table.
func New(db *duckdb.Store) *Store {
	return &Store{db: db, logger: zap.NewNop()}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger *zap.Logger) {
	s.logger = logger
}

// clinvarDDL creates the clinvar table under the given name. Keys are
// unique by construction (Writer drops duplicates) and rows are appended in
// key order, so zone maps prune point and range lookups without an index.
const clinvarDDL = `CREATE TABLE IF NOT EXISTS %s (
	key BLOB,
	chrom_id BIGINT,
	pos BIGINT,
	ref VARCHAR,
	alt VARCHAR,
	significance VARCHAR,
	secondary VARCHAR,
	review_status VARCHAR,
	stars BIGINT,
	included VARCHAR
)`

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(fmt.Sprintf(clinvarDDL, "clinvar"))
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Meta returns the build metadata of the store.
func (s *Store) Meta() (duckdb.Meta, bool, error) {
	return s.db.ReadMeta()
}

// Count returns the number of stored variants.
func (s *Store) Count() (int64, error) {
	if s.index != nil {
		return int64(len(s.index)), nil
	}
	var n int64
	if err := s.db.DB().QueryRow(`SELECT COUNT(*) FROM clinvar`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count clinvar rows: %w", err)
	}
	return n, nil
}

// Get returns the interpretation stored for k. ok is false when absent.
func (s *Store) Get(k variantkey.Key) (Interpretation, bool, error) {
	if s.index != nil {
		i, found := s.search(k)
		if !found {
			return Interpretation{}, false, nil
		}
		return s.index[i].Interpretation, true, nil
	}

	enc, err := variantkey.Encode(k)
	if err != nil {
		return Interpretation{}, false, nil
	}
	e, ok, err := s.queryOne(`SELECT `+selectColumns+` FROM clinvar WHERE key = ?`, enc)
	if err != nil {
		return Interpretation{}, false, fmt.Errorf("get clinvar %s: %w", k, err)
	}
	return e.Interpretation, ok, nil
}

// Floor returns the greatest stored entry with key <= k.
func (s *Store) Floor(k variantkey.Key) (Entry, bool, error) {
	if s.index != nil {
		i, found := s.search(k)
		if !found {
			i--
		}
		if i < 0 {
			return Entry{}, false, nil
		}
		return s.index[i], true, nil
	}

	enc, err := variantkey.Encode(k)
	if err != nil {
		return Entry{}, false, err
	}
	e, ok, err := s.queryOne(`SELECT `+selectColumns+` FROM clinvar WHERE key <= ? ORDER BY key DESC LIMIT 1`, enc)
	if err != nil {
		return Entry{}, false, fmt.Errorf("floor clinvar %s: %w", k, err)
	}
	return e, ok, nil
}

// Ceiling returns the least stored entry with key >= k.
func (s *Store) Ceiling(k variantkey.Key) (Entry, bool, error) {
	if s.index != nil {
		i, _ := s.search(k)
		if i >= len(s.index) {
			return Entry{}, false, nil
		}
		return s.index[i], true, nil
	}

	enc, err := variantkey.Encode(k)
	if err != nil {
		return Entry{}, false, err
	}
	e, ok, err := s.queryOne(`SELECT `+selectColumns+` FROM clinvar WHERE key >= ? ORDER BY key LIMIT 1`, enc)
	if err != nil {
		return Entry{}, false, fmt.Errorf("ceiling clinvar %s: %w", k, err)
	}
	return e, ok, nil
}

// Ascend calls fn for each entry with key >= from in key order until fn
// returns false or the store is exhausted. Rows are fetched in small pages
// so a scan never reads more of the store than it visits.
func (s *Store) Ascend(from variantkey.Key, fn func(Entry) bool) error {
	if s.index != nil {
		i, _ := s.search(from)
		for ; i < len(s.index); i++ {
			if !fn(s.index[i]) {
				return nil
			}
		}
		return nil
	}

	enc, err := variantkey.Encode(from)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`SELECT %s FROM clinvar WHERE key >= ? ORDER BY key LIMIT %d`, selectColumns, scanPageSize)
	for {
		page, last, err := s.queryPage(query, enc)
		if err != nil {
			return fmt.Errorf("scan clinvar from %s: %w", from, err)
		}
		for _, e := range page {
			if !fn(e) {
				return nil
			}
		}
		if len(page) < scanPageSize {
			return nil
		}
		enc = last
		query = fmt.Sprintf(`SELECT %s FROM clinvar WHERE key > ? ORDER BY key LIMIT %d`, selectColumns, scanPageSize)
	}
}

// FindOverlapping returns every entry on contig whose position lies in
// [start-padding, end+padding] and that passes filter, in key order.
// Unknown contigs and empty stores give an empty result.
func (s *Store) FindOverlapping(contig string, start, end, padding int64, filter variantkey.LengthFilter) ([]Entry, error) {
	id, err := variantkey.ContigID(contig)
	if err != nil {
		return nil, nil
	}
	if filter == nil {
		filter = variantkey.AnyLength
	}
	lo, hi := start-padding, end+padding
	if hi < lo {
		return nil, nil
	}

	lower := variantkey.LowerBound(id, lo)
	from := lower
	floor, ok, err := s.Floor(lower)
	if err != nil {
		return nil, err
	}
	if ok && floor.Key.Contig == id && floor.Key.Pos < lower.Pos {
		from = floor.Key
	}

	var out []Entry
	err = s.Ascend(from, func(e Entry) bool {
		if e.Key.Contig != id || e.Key.Pos > hi {
			return false
		}
		if e.Key.Pos >= lo && filter(e.Key) {
			out = append(out, e)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Preload reads the whole table into a sorted in-memory index. Subsequent
// lookups use binary search instead of SQL.
func (s *Store) Preload() error {
	rows, err := s.db.DB().Query(`SELECT ` + selectColumns + ` FROM clinvar ORDER BY key`)
	if err != nil {
		return fmt.Errorf("query clinvar for preload: %w", err)
	}
	defer rows.Close()

	var index []Entry
	for rows.Next() {
		e, _, err := scanEntry(rows)
		if err != nil {
			return err
		}
		index = append(index, e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("preload rows: %w", err)
	}
	if index == nil {
		index = []Entry{}
	}
	s.index = index
	s.logger.Info("preloaded clinvar index", zap.Int("entries", len(index)))
	return nil
}

// Preloaded reports whether lookups are served from memory.
func (s *Store) Preloaded() bool {
	return s.index != nil
}

// search returns the position of the first index entry >= k and whether it
// equals k.
func (s *Store) search(k variantkey.Key) (int, bool) {
	lo, hi := 0, len(s.index)
	for lo < hi {
		mid := lo + (hi-lo)/2
		if variantkey.Less(s.index[mid].Key, k) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, lo < len(s.index) && s.index[lo].Key == k
}

func (s *Store) queryOne(query string, args ...any) (Entry, bool, error) {
	row := s.db.DB().QueryRow(query, args...)
	e, _, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (s *Store) queryPage(query string, from []byte) ([]Entry, []byte, error) {
	rows, err := s.db.DB().Query(query, from)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var page []Entry
	var last []byte
	for rows.Next() {
		e, raw, err := scanEntry(rows)
		if err != nil {
			return nil, nil, err
		}
		page = append(page, e)
		last = raw
	}
	return page, last, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, []byte, error) {
	var (
		raw                              []byte
		sig, secondary, status, included sql.NullString
		stars                            sql.NullInt64
	)
	if err := row.Scan(&raw, &sig, &secondary, &status, &stars, &included); err != nil {
		return Entry{}, nil, err
	}
	k, err := variantkey.Decode(raw)
	if err != nil {
		return Entry{}, nil, fmt.Errorf("decode clinvar key: %w", err)
	}
	return Entry{
		Key: k,
		Interpretation: Interpretation{
			Primary:      ClinSig(sig.String),
			Secondary:    parseSecondary(secondary.String),
			ReviewStatus: status.String,
			Stars:        int(stars.Int64),
			Included:     parseIncluded(included.String),
		},
	}, raw, nil
}
