package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// FormatVersion is bumped whenever a store's table layout changes.
const FormatVersion = 1

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Meta describes how and from what a store was built.
type Meta struct {
	FormatVersion int
	Source        FileFingerprint
	BuildID       string
	BuiltAt       time.Time
}

// NewMeta returns metadata for a build of source started now.
func NewMeta(source FileFingerprint) Meta {
	return Meta{
		FormatVersion: FormatVersion,
		Source:        source,
		BuildID:       uuid.New().String(),
		BuiltAt:       time.Now().UTC(),
	}
}

// Valid reports whether the store was built by this format version from a
// file matching source.
func (m Meta) Valid(source FileFingerprint) bool {
	return m.FormatVersion == FormatVersion &&
		m.Source.Size == source.Size &&
		m.Source.ModTime.Equal(source.ModTime)
}

// WriteMeta replaces the store metadata.
func (s *Store) WriteMeta(m Meta) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin meta tx: %w", err)
	}
	defer tx.Rollback()

	if err := writeMeta(tx, m); err != nil {
		return err
	}
	return tx.Commit()
}

// writeMeta recreates store_meta inside tx. Recreating rather than deleting
// also upgrades files whose store_meta still has a primary key.
func writeMeta(tx *sql.Tx, m Meta) error {
	if _, err := tx.Exec(`DROP TABLE IF EXISTS store_meta`); err != nil {
		return fmt.Errorf("clear store meta: %w", err)
	}
	if _, err := tx.Exec(metaSchema); err != nil {
		return fmt.Errorf("create store meta: %w", err)
	}
	entries := []struct{ key, val string }{
		{"format_version", strconv.Itoa(m.FormatVersion)},
		{"source_path", m.Source.Path},
		{"source_size", strconv.FormatInt(m.Source.Size, 10)},
		{"source_modtime", m.Source.ModTime.UTC().Format(time.RFC3339Nano)},
		{"build_id", m.BuildID},
		{"built_at", m.BuiltAt.UTC().Format(time.RFC3339Nano)},
	}
	for _, e := range entries {
		if _, err := tx.Exec(`INSERT INTO store_meta VALUES (?, ?)`, e.key, e.val); err != nil {
			return fmt.Errorf("write store meta %s: %w", e.key, err)
		}
	}
	return nil
}

// ReadMeta loads the store metadata. ok is false when the store has never
// been built.
func (s *Store) ReadMeta() (m Meta, ok bool, err error) {
	rows, err := s.db.Query(`SELECT key, value FROM store_meta`)
	if err != nil {
		return Meta{}, false, fmt.Errorf("query store meta: %w", err)
	}
	defer rows.Close()

	kv := make(map[string]string)
	for rows.Next() {
		var k string
		var v sql.NullString
		if err := rows.Scan(&k, &v); err != nil {
			return Meta{}, false, fmt.Errorf("scan store meta: %w", err)
		}
		kv[k] = v.String
	}
	if err := rows.Err(); err != nil {
		return Meta{}, false, fmt.Errorf("store meta rows: %w", err)
	}
	if len(kv) == 0 {
		return Meta{}, false, nil
	}

	m.FormatVersion, _ = strconv.Atoi(kv["format_version"])
	m.Source.Path = kv["source_path"]
	m.Source.Size, _ = strconv.ParseInt(kv["source_size"], 10, 64)
	m.Source.ModTime, _ = time.Parse(time.RFC3339Nano, kv["source_modtime"])
	m.BuildID = kv["build_id"]
	m.BuiltAt, _ = time.Parse(time.RFC3339Nano, kv["built_at"])
	return m, true, nil
}
