package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/tallyhq/tally/internal/common"
)

// SQLiteStore implements Store on a single-file SQLite database. Each
// collection is a set of rows in one documents table.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (creating if necessary) the database at dbPath.
// Pass ":memory:" for an ephemeral store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("dbPath cannot be empty")
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// Migrate creates the schema if it does not already exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}

	schema := `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      BLOB NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (collection, key)
		)`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return common.NewStorageError("migrate", "documents", err)
	}
	return nil
}

// Load returns every document in the named collection, or an empty mapping
// when the collection is absent.
func (s *SQLiteStore) Load(ctx context.Context, name string) (map[string]json.RawMessage, error) {
	if err := validateCollection(name); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM documents WHERE collection = ?`, name)
	if err != nil {
		return nil, common.NewStorageError("load", name, err)
	}
	defer func() { _ = rows.Close() }()

	docs := make(map[string]json.RawMessage)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, common.NewStorageError("load", name, err)
		}
		docs[key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewStorageError("load", name, err)
	}

	return docs, nil
}

// Save replaces the named collection with docs in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, name string, docs map[string]json.RawMessage) error {
	if err := validateCollection(name); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.NewStorageError("save", name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ?`, name); err != nil {
		return common.NewStorageError("save", name, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (collection, key, value) VALUES (?, ?, ?)`)
	if err != nil {
		return common.NewStorageError("save", name, err)
	}
	defer func() { _ = stmt.Close() }()

	for key, value := range docs {
		if _, err := stmt.ExecContext(ctx, name, key, []byte(value)); err != nil {
			return common.NewStorageError("save", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return common.NewStorageError("save", name, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func validateCollection(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("collection name cannot be empty")
	}
	return nil
}
