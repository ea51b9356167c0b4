// Package duckdb holds the shared plumbing for the DuckDB-backed reference
// stores: opening a database file, bulk appends, store metadata and
// compaction after a build.
package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"

	goduckdb "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for one persisted reference store.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Wrap adopts an existing *sql.DB. The metadata table is not created; use
// this for databases opened elsewhere or for driver mocks in tests.
func Wrap(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// store_meta carries no key constraint: DuckDB rejects re-inserting a
// deleted primary key within one transaction.
const metaSchema = `CREATE TABLE IF NOT EXISTS store_meta (
	key VARCHAR,
	value VARCHAR
)`

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(metaSchema)
	return err
}

// Append bulk-inserts rows into table using the DuckDB Appender API.
// fn is called with the appender and should call AppendRow for each row.
func (s *Store) Append(table string, fn func(a *goduckdb.Appender) error) error {
	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}

	if err := fn(appender); err != nil {
		appender.Close()
		return err
	}
	if err := appender.Close(); err != nil {
		return fmt.Errorf("flush appender: %w", err)
	}
	return nil
}

// Checkpoint flushes the write-ahead log into the database file and
// reclaims free blocks. Called once a build has committed.
func (s *Store) Checkpoint() error {
	if _, err := s.db.Exec("FORCE CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// ReplaceTable rebuilds table from the rows fill appends. ddl is a CREATE
// TABLE IF NOT EXISTS statement with a %s placeholder for the table name.
// Rows go to a staging table first; dropping the old table, renaming the
// staging table and writing meta happen in one transaction, so a failed
// rebuild leaves the previous contents and metadata untouched.
func (s *Store) ReplaceTable(table, ddl string, meta Meta, fill func(a *goduckdb.Appender) error) error {
	staging := table + "_staging"
	if _, err := s.db.Exec("DROP TABLE IF EXISTS " + staging); err != nil {
		return fmt.Errorf("drop stale %s: %w", staging, err)
	}
	if _, err := s.db.Exec(fmt.Sprintf(ddl, staging)); err != nil {
		return fmt.Errorf("create %s: %w", staging, err)
	}

	if err := s.swap(table, staging, meta, fill); err != nil {
		s.db.Exec("DROP TABLE IF EXISTS " + staging)
		return err
	}
	return s.Checkpoint()
}

func (s *Store) swap(table, staging string, meta Meta, fill func(a *goduckdb.Appender) error) error {
	if err := s.Append(staging, fill); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin swap %s: %w", table, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DROP TABLE IF EXISTS " + table); err != nil {
		return fmt.Errorf("drop %s: %w", table, err)
	}
	if _, err := tx.Exec("ALTER TABLE " + staging + " RENAME TO " + table); err != nil {
		return fmt.Errorf("rename %s: %w", staging, err)
	}
	if err := writeMeta(tx, meta); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", table, err)
	}
	return nil
}
