package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"qrmatch/internal/domain"
	"qrmatch/internal/port"
)

var (
	_ port.EntryStore  = (*BoltStore)(nil)
	_ port.SchemaStore = (*BoltStore)(nil)
	_ port.BlobStore   = (*BoltBlobStore)(nil)
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	st, err := NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestBoltStore_InsertGet(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entry := domain.Entry{ID: "doc-1", Text: "hello", Fingerprint: []float32{1, 0, 0.5}, CreatedAt: created}
	if err := st.Insert(ctx, entry); err != nil {
		t.Fatal(err)
	}

	got, err := st.Get(ctx, "doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "hello" || len(got.Fingerprint) != 3 || got.Fingerprint[2] != 0.5 {
		t.Errorf("unexpected entry %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}

	_, err = st.Get(ctx, "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBoltStore_InsertDuplicate(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := st.Insert(ctx, domain.Entry{ID: "a", Text: "same", Fingerprint: []float32{1}, CreatedAt: first}); err != nil {
		t.Fatal(err)
	}

	// identical text is a no-op that keeps the first CreatedAt
	if err := st.Insert(ctx, domain.Entry{ID: "a", Text: "same", Fingerprint: []float32{1}, CreatedAt: first.Add(time.Hour)}); err != nil {
		t.Fatalf("idempotent insert failed: %v", err)
	}
	got, _ := st.Get(ctx, "a")
	if !got.CreatedAt.Equal(first) {
		t.Errorf("CreatedAt changed to %v", got.CreatedAt)
	}

	err := st.Insert(ctx, domain.Entry{ID: "a", Text: "different", Fingerprint: []float32{1}})
	if !errors.Is(err, domain.ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
}

func TestBoltStore_ListAllCount(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	n, err := st.Count(ctx)
	if err != nil || n != 0 {
		t.Fatalf("Count on empty store = %d, %v", n, err)
	}
	all, err := st.ListAll(ctx)
	if err != nil || len(all) != 0 {
		t.Fatalf("ListAll on empty store = %v, %v", all, err)
	}

	for _, id := range []string{"b", "a", "c"} {
		if err := st.Insert(ctx, domain.Entry{ID: id, Text: id, Fingerprint: []float32{1, 1}}); err != nil {
			t.Fatal(err)
		}
	}

	n, _ = st.Count(ctx)
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
	all, _ = st.ListAll(ctx)
	if len(all) != 3 {
		t.Errorf("ListAll returned %d entries", len(all))
	}
}

func TestBoltStore_DimensionEnforced(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.EnsureSchema(ctx, domain.SchemaInfo{Model: "m", Dimension: 3}); err != nil {
		t.Fatal(err)
	}

	err := st.Insert(ctx, domain.Entry{ID: "x", Text: "x", Fingerprint: []float32{1, 2}})
	var dimErr *domain.DimensionMismatchError
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected DimensionMismatchError, got %v", err)
	}
	if dimErr.Expected != 3 || dimErr.Actual != 2 {
		t.Errorf("unexpected mismatch %+v", dimErr)
	}
}

func TestBoltStore_Schema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.db")
	ctx := context.Background()

	st, err := NewBoltStore(path)
	if err != nil {
		t.Fatal(err)
	}

	info, err := st.Schema(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if info.Version != 0 {
		t.Errorf("fresh db version = %d", info.Version)
	}

	if err := st.EnsureSchema(ctx, domain.SchemaInfo{Model: "m1", Dimension: 2}); err != nil {
		t.Fatal(err)
	}

	// an empty store may switch models freely
	if err := st.EnsureSchema(ctx, domain.SchemaInfo{Model: "m2", Dimension: 2}); err != nil {
		t.Fatalf("empty store should accept new model: %v", err)
	}
	if err := st.Insert(ctx, domain.Entry{ID: "a", Text: "a", Fingerprint: []float32{1, 0}}); err != nil {
		t.Fatal(err)
	}
	st.Close()

	// reopening restores the dimension and guards the model
	st, err = NewBoltStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	info, _ = st.Schema(ctx)
	if info.Version != CurrentSchemaVersion || info.Model != "m2" || info.Dimension != 2 {
		t.Errorf("unexpected schema %+v", info)
	}

	err = st.EnsureSchema(ctx, domain.SchemaInfo{Model: "other", Dimension: 4})
	if !errors.Is(err, ErrIncompatibleSchema) {
		t.Errorf("expected ErrIncompatibleSchema, got %v", err)
	}

	err = st.Insert(ctx, domain.Entry{ID: "b", Text: "b", Fingerprint: []float32{1, 0, 0}})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected dimension mismatch after reopen, got %v", err)
	}
}

func TestBoltBlobStore(t *testing.T) {
	st := openTestStore(t)
	blobs := NewBoltBlobStore(st)
	ctx := context.Background()

	if _, ok, err := blobs.Get(ctx, "nope"); err != nil || ok {
		t.Fatalf("missing blob: ok=%v err=%v", ok, err)
	}

	if err := blobs.Put(ctx, "a", []byte("png-1")); err != nil {
		t.Fatal(err)
	}
	if err := blobs.Put(ctx, "a", []byte("png-2")); err != nil {
		t.Fatal(err)
	}

	data, ok, err := blobs.Get(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(data) != "png-2" {
		t.Errorf("got %q, want overwrite", data)
	}
}

func TestBoltStore_CanceledContext(t *testing.T) {
	st := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := st.Insert(ctx, domain.Entry{ID: "a", Text: "a", Fingerprint: []float32{1}}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
