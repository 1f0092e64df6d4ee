package port

import (
	"context"

	"qrmatch/internal/domain"
)

// EntryStore persists registered entries.
type EntryStore interface {
	// Insert stores a new entry. Re-inserting an id with identical text keeps the
	// stored CreatedAt; different text fails with domain.ErrDuplicateID.
	Insert(ctx context.Context, entry domain.Entry) error

	// Get returns the entry for id or domain.ErrNotFound.
	Get(ctx context.Context, id string) (domain.Entry, error)

	// ListAll returns every stored entry. Order is unspecified.
	ListAll(ctx context.Context) ([]domain.Entry, error)

	Count(ctx context.Context) (int, error)

	Close() error
}

// BlobStore persists rendered artifacts keyed by entry id.
type BlobStore interface {
	// Put writes a blob, replacing any previous one under key.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the blob under key. ok is false when it does not exist.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
}

// SchemaStore is implemented by stores that record which embedding model and
// dimension populated them.
type SchemaStore interface {
	// EnsureSchema records info on first use and fails when the stored schema
	// is incompatible with it.
	EnsureSchema(ctx context.Context, info domain.SchemaInfo) error

	Schema(ctx context.Context) (domain.SchemaInfo, error)
}
