package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingEmbedder struct {
	calls  int
	inputs [][]string
	err    error
}

func (e *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	e.inputs = append(e.inputs, texts)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (e *countingEmbedder) Dimension() int   { return 2 }
func (e *countingEmbedder) ModelName() string { return "counting" }

func TestQueryCache_GetPut(t *testing.T) {
	c := NewQueryCache(10, time.Minute)

	if _, ok := c.Get("m", "hello"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Put("m", "hello", []float32{1, 2})
	vec, ok := c.Get("m", "hello")
	if !ok {
		t.Fatal("expected hit")
	}
	if len(vec) != 2 || vec[0] != 1 {
		t.Errorf("unexpected vector %v", vec)
	}

	if _, ok := c.Get("other-model", "hello"); ok {
		t.Error("entries must be scoped by model")
	}
}

func TestQueryCache_Evicts(t *testing.T) {
	c := NewQueryCache(2, time.Minute)
	c.Put("m", "a", []float32{1})
	c.Put("m", "b", []float32{2})

	// touch a so b becomes the oldest
	c.Get("m", "a")
	c.Put("m", "c", []float32{3})

	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
	if _, ok := c.Get("m", "b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("m", "a"); !ok {
		t.Error("expected a to survive")
	}
}

func TestQueryCache_TTL(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Put("m", "a", []float32{1})
	now = now.Add(2 * time.Minute)

	if _, ok := c.Get("m", "a"); ok {
		t.Error("expected expired entry to miss")
	}
	if c.Size() != 0 {
		t.Errorf("expired entry should be dropped, size=%d", c.Size())
	}
}

func TestQueryCache_Invalidate(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	c.Put("m", "a", []float32{1})
	c.Invalidate()
	if c.Size() != 0 {
		t.Errorf("expected empty cache, got %d", c.Size())
	}
}

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{}
	e := NewCachedEmbedder(inner, NewQueryCache(10, time.Minute))
	ctx := context.Background()

	if _, err := e.Embed(ctx, []string{"one", "three"}); err != nil {
		t.Fatal(err)
	}
	vecs, err := e.Embed(ctx, []string{"three", "seven!"})
	if err != nil {
		t.Fatal(err)
	}

	if inner.calls != 2 {
		t.Fatalf("expected 2 inner calls, got %d", inner.calls)
	}
	if got := inner.inputs[1]; len(got) != 1 || got[0] != "seven!" {
		t.Errorf("second call should only carry the miss, got %v", got)
	}
	if vecs[0][0] != 5 || vecs[1][0] != 6 {
		t.Errorf("results out of order: %v", vecs)
	}

	if _, err := e.Embed(ctx, []string{"one"}); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Errorf("full hit should not call through, calls=%d", inner.calls)
	}
}

func TestCachedEmbedder_Error(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("down")}
	e := NewCachedEmbedder(inner, NewQueryCache(10, time.Minute))

	if _, err := e.Embed(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := e.cache.Get("counting", "x"); ok {
		t.Error("failed embeddings must not be cached")
	}
}
