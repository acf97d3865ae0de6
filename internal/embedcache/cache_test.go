package embedcache

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kodesearch/semcode/internal/model"
)

func TestMakeKeyContentAddressed(t *testing.T) {
	if MakeKey("ns", "text") != MakeKey("ns", "text") {
		t.Fatal("expected deterministic key")
	}
	if MakeKey("ns1", "text") == MakeKey("ns2", "text") {
		t.Fatal("expected namespace to change the key")
	}
}

func TestMemoryOnlyInsertGet(t *testing.T) {
	c, err := New(Config{Enabled: true, MaxEntries: 10})
	if err != nil {
		t.Fatal(err)
	}
	key := c.MakeKey("ns", "hello")
	vec := model.EmbeddingVector{1, 2, 3}
	if err := c.Insert(key, vec); err != nil {
		t.Fatal(err)
	}
	res, err := c.Get(key, 3)
	if err != nil {
		t.Fatal(err)
	}
	if res == nil || res.Source != SourceMemory || !res.Value.Equal(vec) {
		t.Fatalf("expected memory hit with %v, got %+v", vec, res)
	}
}

func TestGetDimensionMismatchIsMiss(t *testing.T) {
	c, err := New(Config{Enabled: true, MaxEntries: 10})
	if err != nil {
		t.Fatal(err)
	}
	key := c.MakeKey("ns", "hello")
	if err := c.Insert(key, model.EmbeddingVector{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	res, err := c.Get(key, 8)
	if err != nil {
		t.Fatal(err)
	}
	if res != nil {
		t.Fatalf("expected dimension mismatch to read as a miss, got %+v", res)
	}
}

func TestDiskTierSurvivesAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Enabled: true, MaxEntries: 10, DiskEnabled: true, DiskPath: filepath.Join(dir, "embeddings.sqlite")}

	c1, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	key := c1.MakeKey("ns", "hello")
	vec := model.EmbeddingVector{0.1, 0.2, 0.3, 0.4}
	if err := c1.Insert(key, vec); err != nil {
		t.Fatal(err)
	}
	if err := c1.Close(); err != nil {
		t.Fatal(err)
	}

	c2, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer c2.Close()
	res, err := c2.Get(key, 4)
	if err != nil {
		t.Fatal(err)
	}
	if res == nil || res.Source != SourceDisk || !res.Value.Equal(vec) {
		t.Fatalf("expected disk hit with %v, got %+v", vec, res)
	}
}

func TestFillOnceInvokedAtMostOnce(t *testing.T) {
	c, err := New(Config{Enabled: true, MaxEntries: 10})
	if err != nil {
		t.Fatal(err)
	}
	key := c.MakeKey("ns", "cold")

	var calls int32
	var wg sync.WaitGroup
	results := make([]model.EmbeddingVector, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			vec, fillErr := c.FillOnce(context.Background(), key, func() (model.EmbeddingVector, error) {
				atomic.AddInt32(&calls, 1)
				return model.EmbeddingVector{9, 9}, nil
			})
			if fillErr != nil {
				t.Error(fillErr)
				return
			}
			results[idx] = vec
		}(i)
	}
	wg.Wait()

	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected exactly one backend call, got %d", calls)
	}
	for _, r := range results {
		if !r.Equal(model.EmbeddingVector{9, 9}) {
			t.Fatalf("expected all subscribers to get the shared result, got %v", r)
		}
	}
}
