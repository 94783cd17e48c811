package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aluiziolira/go-enrich-products/models"
	"github.com/cockroachdb/pebble"
)

// PebbleStore keeps enriched records as JSON values under "<store>/<id>" keys.
type PebbleStore struct {
	db *pebble.DB
}

// NewPebbleStore opens or creates a Pebble database in dir.
func NewPebbleStore(dir string) (*PebbleStore, error) {
	opts := &pebble.Options{
		MemTableSize:          64 << 20,
		L0CompactionThreshold: 4,
		L0StopWritesThreshold: 8,
	}
	db, err := pebble.Open(filepath.Clean(dir), opts)
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

// Upsert writes p, replacing any value stored under the same key.
func (s *PebbleStore) Upsert(ctx context.Context, p *models.EnrichedProduct) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := recordKey(p)
	if err != nil {
		return err
	}
	value, err := encodeRecord(p)
	if err != nil {
		return err
	}
	if err := s.db.Set([]byte(key), value, pebble.NoSync); err != nil {
		return fmt.Errorf("pebble set %s: %w", key, err)
	}
	return nil
}

// Get loads the record stored for the key.
func (s *PebbleStore) Get(storeName, productID string) (*models.EnrichedProduct, error) {
	key := Key(storeName, productID)
	value, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pebble get %s: %w", key, err)
	}
	defer closer.Close()
	return decodeRecord(value)
}

// Count returns the number of stored keys.
func (s *PebbleStore) Count() (int, error) {
	it, err := s.db.NewIter(nil)
	if err != nil {
		return 0, fmt.Errorf("pebble iter: %w", err)
	}
	n := 0
	for it.First(); it.Valid(); it.Next() {
		n++
	}
	if err := it.Close(); err != nil {
		return 0, fmt.Errorf("pebble iter: %w", err)
	}
	return n, nil
}

// Close flushes pending writes and closes the database.
func (s *PebbleStore) Close() error {
	if err := s.db.Flush(); err != nil {
		s.db.Close()
		return fmt.Errorf("pebble flush: %w", err)
	}
	return s.db.Close()
}

func ensureParent(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
