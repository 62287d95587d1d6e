// Package memory provides the in-memory docstore used as the default
// backend and throughout the tests. Data is lost on restart; for
// persistence use the sqlite backend.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/madalinagriza/flashfinance/internal/docstore"
)

// Store keeps documents in nested maps guarded by a single mutex, which
// makes every operation atomic per key. Values are copied on the way in
// and out so callers can never alias stored bytes.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{collections: make(map[string]map[string][]byte)}
}

func (s *Store) Get(_ context.Context, collection, key string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.collections[collection][key]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, key, docstore.ErrNotFound)
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

func (s *Store) Insert(_ context.Context, collection, key string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s/%s: %w", collection, key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collections[collection]
	if coll == nil {
		coll = make(map[string][]byte)
		s.collections[collection] = coll
	}
	if _, taken := coll[key]; taken {
		return fmt.Errorf("%s/%s: %w", collection, key, docstore.ErrKeyExists)
	}
	coll[key] = raw
	return nil
}

func (s *Store) Put(_ context.Context, collection, key string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s/%s: %w", collection, key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collections[collection]
	if coll == nil {
		coll = make(map[string][]byte)
		s.collections[collection] = coll
	}
	coll[key] = raw
	return nil
}

func (s *Store) Delete(_ context.Context, collection, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collections[collection]
	if _, ok := coll[key]; !ok {
		return false, nil
	}
	delete(coll, key)
	return true, nil
}

func (s *Store) List(_ context.Context, collection, prefix string) ([]docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.collections[collection]
	keys := make([]string, 0, len(coll))
	for k := range coll {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	docs := make([]docstore.Document, 0, len(keys))
	for _, k := range keys {
		raw := coll[k]
		out := make([]byte, len(raw))
		copy(out, raw)
		docs = append(docs, docstore.Document{Key: k, Value: out})
	}
	return docs, nil
}

var _ docstore.Store = (*Store)(nil)
