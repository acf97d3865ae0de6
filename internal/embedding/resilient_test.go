package embedding

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kodesearch/semcode/internal/embedcache"
	"github.com/kodesearch/semcode/internal/errs"
	"github.com/kodesearch/semcode/internal/model"
	"github.com/kodesearch/semcode/internal/reqctx"
)

type flakyPort struct {
	failures int32
	calls    int32
	dim      int
}

func (f *flakyPort) Provider() string { return "flaky" }
func (f *flakyPort) Dimension() int   { return f.dim }
func (f *flakyPort) Embed(ctx context.Context, text string) (model.EmbeddingVector, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if n <= f.failures {
		return nil, errs.Unexpected("TEST", "FLAKY", "simulated transient failure", errs.ClassRetriable, nil)
	}
	return model.EmbeddingVector{1, 2, 3, 4}, nil
}
func (f *flakyPort) EmbedBatch(ctx context.Context, texts []string) ([]model.EmbeddingVector, error) {
	out := make([]model.EmbeddingVector, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func TestResilientEmbedderRetriesThenSucceeds(t *testing.T) {
	inner := &flakyPort{failures: 2, dim: 4}
	cache, err := embedcache.New(embedcache.Config{Enabled: true, MaxEntries: 10})
	if err != nil {
		t.Fatal(err)
	}
	policy := errs.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, JitterRatioPct: 0}
	embedder := NewResilientEmbedder(inner, cache, "test-ns", policy, time.Second)

	rc := reqctx.New(context.Background())
	vecs, err := embedder.EmbedBatch(rc, []string{"hello"})
	if err != nil {
		t.Fatal(err)
	}
	if !vecs[0].Equal(model.EmbeddingVector{1, 2, 3, 4}) {
		t.Fatalf("unexpected vector: %v", vecs[0])
	}
	if atomic.LoadInt32(&inner.calls) != 3 {
		t.Fatalf("expected 3 backend calls (2 failures + 1 success), got %d", inner.calls)
	}

	// Repeated call for the same text must hit the cache, not the backend.
	if _, err := embedder.EmbedBatch(rc, []string{"hello"}); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&inner.calls) != 3 {
		t.Fatalf("expected cache hit to avoid a new backend call, got %d total calls", inner.calls)
	}
}

func TestResilientEmbedderRejectsDimensionMismatch(t *testing.T) {
	inner := &flakyPort{failures: 0, dim: 8}
	cache, err := embedcache.New(embedcache.Config{Enabled: true, MaxEntries: 10})
	if err != nil {
		t.Fatal(err)
	}
	embedder := NewResilientEmbedder(inner, cache, "mismatch-ns", errs.DefaultRetryPolicy(), time.Second)
	embedder.dim = 99 // force a mismatch against the backend's real dimension

	rc := reqctx.New(context.Background())
	if _, err := embedder.EmbedBatch(rc, []string{"hi"}); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}
