// Package storage implements the SQLite-backed persistence layer: schema
// migrations plus repositories for repos, files, symbols, edges, index
// versions, symbol-version snapshots, symbol references, metrics, and audit
// events (spec §3). It uses the pure-Go modernc.org/sqlite driver so sdlctl
// ships as a single static binary.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/sdlctl/sdlctl/internal/logging"
)

// DB wraps a SQLite connection with transaction helpers and the migration
// ledger.
type DB struct {
	conn   *sql.DB
	logger *logging.Logger
	dbPath string
}

// Open opens or creates the SQLite database at dbPath, applying any
// migrations that have not yet been recorded in the _migrations ledger.
func Open(dbPath string, logger *logging.Logger) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sdlctl: creating database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sdlctl: opening database: %w", err)
	}

	// A single connection serializes every read and write, which avoids
	// SQLITE_BUSY under WAL for the write-heavy indexer.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-64000",
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sdlctl: applying pragma %q: %w", pragma, err)
		}
	}

	db := &DB{conn: conn, logger: logger, dbPath: dbPath}

	if err := db.runMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sdlctl: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Conn returns the underlying *sql.DB for callers that need raw access
// (e.g. repository constructors).
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path returns the on-disk database file path.
func (db *DB) Path() string {
	return db.dbPath
}

// BeginTx starts a new transaction.
func (db *DB) BeginTx() (*sql.Tx, error) {
	return db.conn.Begin()
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back (and re-panicking) otherwise.
func (db *DB) WithTx(fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx()
	if err != nil {
		return fmt.Errorf("sdlctl: beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("failed to rollback transaction", map[string]interface{}{
				"error":         err.Error(),
				"rollbackError": rbErr.Error(),
			})
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sdlctl: committing transaction: %w", err)
	}

	return nil
}

// Exec executes a query without returning rows.
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.conn.Exec(query, args...)
}

// Query executes a query that returns rows.
func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

// QueryRow executes a query that returns at most one row.
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(query, args...)
}
