package store

import (
	"bytes"
	"context"

	"go.etcd.io/bbolt"
)

// BoltBlobStore keeps artifacts in the artifacts bucket of a BoltStore's file.
type BoltBlobStore struct {
	db *bbolt.DB
}

func NewBoltBlobStore(s *BoltStore) *BoltBlobStore {
	return &BoltBlobStore{db: s.DB()}
}

func (s *BoltBlobStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketArtifacts).Put([]byte(key), data)
	})
}

func (s *BoltBlobStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketArtifacts).Get([]byte(key))
		if data != nil {
			// bbolt memory is only valid inside the transaction
			out = bytes.Clone(data)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}
