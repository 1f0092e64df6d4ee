package memstore

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sync"

	"qrmatch/internal/domain"
)

// MemoryStore is an EntryStore that lives only as long as the process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]domain.Entry
	schema  domain.SchemaInfo
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]domain.Entry),
	}
}

func (s *MemoryStore) Insert(ctx context.Context, entry domain.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dim := s.schema.Dimension; dim > 0 && len(entry.Fingerprint) != dim {
		return &domain.DimensionMismatchError{Expected: dim, Actual: len(entry.Fingerprint)}
	}

	if existing, ok := s.entries[entry.ID]; ok {
		if existing.Text == entry.Text {
			return nil
		}
		return fmt.Errorf("%w: %s", domain.ErrDuplicateID, entry.ID)
	}

	entry.Fingerprint = slices.Clone(entry.Fingerprint)
	s.entries[entry.ID] = entry
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return domain.Entry{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	if !ok {
		return domain.Entry{}, fmt.Errorf("entry %s: %w", id, domain.ErrNotFound)
	}
	return entry, nil
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]domain.Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *MemoryStore) EnsureSchema(ctx context.Context, info domain.SchemaInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) > 0 && s.schema.Dimension > 0 && s.schema.Dimension != info.Dimension {
		return &domain.DimensionMismatchError{Expected: s.schema.Dimension, Actual: info.Dimension}
	}
	s.schema = domain.SchemaInfo{Version: 1, Model: info.Model, Dimension: info.Dimension}
	return nil
}

func (s *MemoryStore) Schema(ctx context.Context) (domain.SchemaInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.SchemaInfo{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schema, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// BlobStore keeps artifacts in a map.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string][]byte)}
}

func (s *BlobStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = bytes.Clone(data)
	return nil
}

func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	return data, ok, nil
}

// Delete removes a blob. Used by tests to simulate a lost artifact.
func (s *BlobStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
}
