package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"
	"qrmatch/internal/domain"
)

var (
	bucketEntries   = []byte("entries")
	bucketArtifacts = []byte("artifacts")
	bucketMeta      = []byte("meta")
)

// BoltStore keeps entries in a single bbolt file. The same file backs the
// artifact store and the schema metadata.
type BoltStore struct {
	db *bbolt.DB

	mu        sync.RWMutex
	dimension int
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketEntries, bucketArtifacts, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &BoltStore{db: db}
	info, err := s.Schema(context.Background())
	if err != nil {
		db.Close()
		return nil, err
	}
	s.dimension = info.Dimension

	return s, nil
}

func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

type entryRecord struct {
	Text        string    `json:"text"`
	Fingerprint []float32 `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *BoltStore) Insert(ctx context.Context, entry domain.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	dim := s.dimension
	s.mu.RUnlock()
	if dim > 0 && len(entry.Fingerprint) != dim {
		return &domain.DimensionMismatchError{Expected: dim, Actual: len(entry.Fingerprint)}
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		key := []byte(entry.ID)

		if existing := b.Get(key); existing != nil {
			var rec entryRecord
			if err := json.Unmarshal(existing, &rec); err != nil {
				return fmt.Errorf("decode entry %s: %w", entry.ID, err)
			}
			if rec.Text == entry.Text {
				return nil
			}
			return fmt.Errorf("%w: %s", domain.ErrDuplicateID, entry.ID)
		}

		data, err := json.Marshal(entryRecord{
			Text:        entry.Text,
			Fingerprint: entry.Fingerprint,
			CreatedAt:   entry.CreatedAt.UTC(),
		})
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

func (s *BoltStore) Get(ctx context.Context, id string) (domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return domain.Entry{}, err
	}

	var entry domain.Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketEntries).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("entry %s: %w", id, domain.ErrNotFound)
		}
		var err error
		entry, err = decodeEntry(id, data)
		return err
	})
	return entry, err
}

func (s *BoltStore) ListAll(ctx context.Context) ([]domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []domain.Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		entries = make([]domain.Entry, 0, b.Stats().KeyN)
		return b.ForEach(func(k, v []byte) error {
			entry, err := decodeEntry(string(k), v)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
			return nil
		})
	})
	return entries, err
}

func (s *BoltStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketEntries).Stats().KeyN
		return nil
	})
	return n, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func decodeEntry(id string, data []byte) (domain.Entry, error) {
	var rec entryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.Entry{}, fmt.Errorf("decode entry %s: %w", id, err)
	}
	return domain.Entry{
		ID:          id,
		Text:        rec.Text,
		Fingerprint: rec.Fingerprint,
		CreatedAt:   rec.CreatedAt,
	}, nil
}
