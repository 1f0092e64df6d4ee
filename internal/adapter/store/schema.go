package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"
	"qrmatch/internal/domain"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var (
	keySchemaVersion = []byte("schema_version")
	keyEmbedding     = []byte("embedding")
)

// ErrIncompatibleSchema is returned when a database was populated by a newer
// binary or with a different embedding model.
var ErrIncompatibleSchema = errors.New("incompatible store schema")

type embeddingMeta struct {
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
}

// Schema reads the recorded schema info. A fresh database reports version 0.
func (s *BoltStore) Schema(ctx context.Context) (domain.SchemaInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.SchemaInfo{}, err
	}

	var info domain.SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		return readSchema(tx.Bucket(bucketMeta), &info)
	})
	return info, err
}

// EnsureSchema records info on a fresh or empty database. A populated database
// must have been written by a compatible version with the same embedding
// model and dimension, since stored fingerprints are only comparable to
// vectors from that model.
func (s *BoltStore) EnsureSchema(ctx context.Context, info domain.SchemaInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)

		var stored domain.SchemaInfo
		if err := readSchema(meta, &stored); err != nil {
			return err
		}

		if stored.Version > CurrentSchemaVersion {
			return fmt.Errorf("%w: database created by newer version (v%d > v%d)",
				ErrIncompatibleSchema, stored.Version, CurrentSchemaVersion)
		}

		populated := tx.Bucket(bucketEntries).Stats().KeyN > 0
		if populated && stored.Dimension > 0 &&
			(stored.Model != info.Model || stored.Dimension != info.Dimension) {
			return fmt.Errorf("%w: entries were embedded with %s (%d dims), configured %s (%d dims)",
				ErrIncompatibleSchema, stored.Model, stored.Dimension, info.Model, info.Dimension)
		}

		versionData, err := json.Marshal(CurrentSchemaVersion)
		if err != nil {
			return err
		}
		if err := meta.Put(keySchemaVersion, versionData); err != nil {
			return err
		}

		embData, err := json.Marshal(embeddingMeta{Model: info.Model, Dimension: info.Dimension})
		if err != nil {
			return err
		}
		return meta.Put(keyEmbedding, embData)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.dimension = info.Dimension
	s.mu.Unlock()
	return nil
}

func readSchema(meta *bbolt.Bucket, info *domain.SchemaInfo) error {
	if meta == nil {
		return nil
	}

	if data := meta.Get(keySchemaVersion); data != nil {
		if err := json.Unmarshal(data, &info.Version); err != nil {
			return fmt.Errorf("decode schema version: %w", err)
		}
	}

	if data := meta.Get(keyEmbedding); data != nil {
		var emb embeddingMeta
		if err := json.Unmarshal(data, &emb); err != nil {
			return fmt.Errorf("decode embedding meta: %w", err)
		}
		info.Model = emb.Model
		info.Dimension = emb.Dimension
	}
	return nil
}
