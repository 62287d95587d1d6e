// Package docstore defines the document-store boundary the domain
// components are built on. The contract is deliberately narrow: writes
// are atomic for a single (collection, key) pair and nothing else. No
// implementation offers multi-key transactions, so cross-document
// invariants are maintained by the callers with compensating actions.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Get when no document exists under the key.
	ErrNotFound = errors.New("document not found")

	// ErrKeyExists is returned by Insert when the key is already taken.
	// Racing inserts on the same key resolve into one success and one
	// ErrKeyExists, which is what the uniqueness guarantees build on.
	ErrKeyExists = errors.New("document key already exists")
)

// Document is a stored key/value pair returned by List.
type Document struct {
	Key   string
	Value json.RawMessage
}

// Unmarshal decodes the document value into v.
func (d Document) Unmarshal(v any) error {
	return json.Unmarshal(d.Value, v)
}

// Store is the single-key-atomic document store.
type Store interface {
	// Get returns the raw document or ErrNotFound.
	Get(ctx context.Context, collection, key string) (json.RawMessage, error)

	// Insert writes a new document, failing with ErrKeyExists if the
	// key is taken. The existence check and the write are one atomic step.
	Insert(ctx context.Context, collection, key string, doc any) error

	// Put writes the document unconditionally (upsert).
	Put(ctx context.Context, collection, key string, doc any) error

	// Delete removes the document, reporting whether it existed.
	Delete(ctx context.Context, collection, key string) (bool, error)

	// List returns all documents whose key starts with prefix, in key order.
	// An empty prefix lists the whole collection.
	List(ctx context.Context, collection, prefix string) ([]Document, error)
}

// Load fetches and decodes a document into T.
func Load[T any](ctx context.Context, s Store, collection, key string) (T, error) {
	var out T
	raw, err := s.Get(ctx, collection, key)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode document %s/%s: %w", collection, key, err)
	}
	return out, nil
}
