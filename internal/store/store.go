// Package store provides the durable local store for domain records.
//
// The store is an embedded SQLite database (WAL mode) with one table per
// entity kind, each indexed by owner, stable key, and date. It also hosts
// the mutation queue table so the write path can cover a record write and
// its queue entry with a single transaction.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/barakahspend/barakah/internal/queue"
	"github.com/barakahspend/barakah/internal/record"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrUnavailable wraps local persistence failures (locked file, full disk)
// so callers can distinguish them from domain errors.
var ErrUnavailable = errors.New("local store unavailable")

// DB wraps the SQLite connection with record-store functionality.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates a database connection at the specified path.
//
// The database is opened in embedded mode with WAL for concurrent reads.
// If it doesn't exist it is created; call InitSchema before first use.
// The caller MUST call Close when done.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create database directory: %v", ErrUnavailable, err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", ErrUnavailable, err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %v", ErrUnavailable, err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, path: path}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.conn.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: failed to apply %q: %v", ErrUnavailable, pragma, err)
		}
	}

	return db, nil
}

// RawDB returns the underlying sql.DB connection, for wiring the mutation
// queue and for tests.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection after checkpointing the WAL.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	db.conn = nil
	return nil
}

// InitSchema creates the record tables and the mutation queue table.
// Idempotent; safe to call on every start.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the schema with context support.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	for _, kind := range record.Kinds {
		table := kind.Table()
		ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			remote_id TEXT,
			owner_id TEXT NOT NULL,
			stable_key TEXT NOT NULL UNIQUE,
			date TEXT NOT NULL,
			synced INTEGER NOT NULL DEFAULT 0,
			payload TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_%[1]s_owner ON %[1]s(owner_id);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_date ON %[1]s(date);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_synced ON %[1]s(synced);
		`, table)

		if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to initialize %s schema: %w", table, err)
		}
	}

	if _, err := db.conn.ExecContext(ctx, queue.Schema); err != nil {
		return fmt.Errorf("failed to initialize mutation queue schema: %w", err)
	}
	return nil
}
