// Package sqlite backs the docstore with a single sqlite table keyed by
// (collection, key). Every write is one SQL statement, which is exactly
// the single-document atomicity the domain layer assumes; the primary
// key doubles as the store-level unique index behind Insert.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/madalinagriza/flashfinance/internal/docstore"

	_ "modernc.org/sqlite"
)

// Store is a sqlite-backed docstore.Store.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at dbPath and applies the
// embedded migrations.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, key string) (json.RawMessage, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM documents WHERE collection = ? AND key = ?`,
		collection, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", collection, key, docstore.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s/%s: %w", collection, key, err)
	}
	return json.RawMessage(value), nil
}

func (s *Store) Insert(ctx context.Context, collection, key string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s/%s: %w", collection, key, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, key, value) VALUES (?, ?, ?)`,
		collection, key, string(raw),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s/%s: %w", collection, key, docstore.ErrKeyExists)
		}
		return fmt.Errorf("insert document %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *Store) Put(ctx context.Context, collection, key string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s/%s: %w", collection, key, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (collection, key)
		 DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		collection, key, string(raw),
	)
	if err != nil {
		return fmt.Errorf("put document %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND key = ?`,
		collection, key,
	)
	if err != nil {
		return false, fmt.Errorf("delete document %s/%s: %w", collection, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete document %s/%s: rows affected: %w", collection, key, err)
	}
	return n > 0, nil
}

func (s *Store) List(ctx context.Context, collection, prefix string) ([]docstore.Document, error) {
	// substr comparison instead of LIKE: prefixes are raw id material and
	// must not be interpreted as patterns.
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM documents
		 WHERE collection = ? AND substr(key, 1, ?) = ?
		 ORDER BY key`,
		collection, len(prefix), prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents %s/%s*: %w", collection, prefix, err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		docs = append(docs, docstore.Document{Key: key, Value: json.RawMessage(value)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document rows: %w", err)
	}
	return docs, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ docstore.Store = (*Store)(nil)
