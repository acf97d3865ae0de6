package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kodesearch/semcode/internal/embedcache"
	"github.com/kodesearch/semcode/internal/embedding"
	"github.com/kodesearch/semcode/internal/errs"
	"github.com/kodesearch/semcode/internal/identity"
	"github.com/kodesearch/semcode/internal/localstore"
	"github.com/kodesearch/semcode/internal/reqctx"
	"github.com/kodesearch/semcode/internal/splitter"
)

func newTestDeps(t *testing.T) (Deps, *localstore.Store) {
	t.Helper()
	cache, err := embedcache.New(embedcache.Config{Enabled: true, MaxEntries: 1000})
	if err != nil {
		t.Fatal(err)
	}
	static := embedding.NewStaticEmbedder(8)
	embedder := embedding.NewResilientEmbedder(static, cache, "test-ns", errs.DefaultRetryPolicy(), 2*time.Second)
	store := localstore.New("")
	return Deps{
		Embedder:     embedder,
		Store:        store,
		Splitter:     splitter.New(),
		SplitOptions: splitter.DefaultOptions(),
	}, store
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestIndexCodebaseEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n\nfunc Foo() int {\n\treturn 1\n}\n")
	writeFile(t, dir, "b.go", "package a\n\nfunc Bar() int {\n\treturn 2\n}\n")

	deps, store := newTestDeps(t)
	rc := reqctx.New(context.Background())
	name := identity.CollectionName("code_chunks_e2e")

	out, err := IndexCodebase(rc, deps, IndexCodebaseInput{
		CodebaseRoot:       dir,
		CollectionName:     name,
		IndexMode:          identity.IndexModeDense,
		EmbeddingBatchSize: 4,
		ChunkLimit:         100,
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != FinalCompleted {
		t.Fatalf("expected Completed, got %s", out.Status)
	}
	if out.Scan.Processed != 2 {
		t.Fatalf("expected 2 files scanned, got %d", out.Scan.Processed)
	}
	if out.Insert.Processed == 0 {
		t.Fatalf("expected some inserted documents, got 0")
	}

	has, err := store.HasCollection(rc, name)
	if err != nil || !has {
		t.Fatalf("expected collection to exist, err=%v has=%v", err, has)
	}

	// Re-running without forceReindex upserts by ChunkId: document count
	// must not grow.
	firstInserted := out.Insert.Processed
	out2, err := IndexCodebase(rc, deps, IndexCodebaseInput{
		CodebaseRoot:       dir,
		CollectionName:     name,
		IndexMode:          identity.IndexModeDense,
		EmbeddingBatchSize: 4,
		ChunkLimit:         100,
	})
	if err != nil {
		t.Fatal(err)
	}
	if out2.Insert.Processed != firstInserted {
		t.Fatalf("expected idempotent re-index to insert the same count, got %d vs %d", out2.Insert.Processed, firstInserted)
	}
}

func TestIndexCodebaseRespectsMaxFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\nfunc A() {}\n")
	writeFile(t, dir, "b.go", "package a\nfunc B() {}\n")
	writeFile(t, dir, "c.go", "package a\nfunc C() {}\n")

	deps, _ := newTestDeps(t)
	rc := reqctx.New(context.Background())
	maxFiles := 1
	out, err := IndexCodebase(rc, deps, IndexCodebaseInput{
		CodebaseRoot:       dir,
		CollectionName:     identity.CollectionName("code_chunks_limit"),
		IndexMode:          identity.IndexModeDense,
		EmbeddingBatchSize: 4,
		ChunkLimit:         100,
		MaxFiles:           &maxFiles,
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != FinalLimitReached {
		t.Fatalf("expected LimitReached, got %s", out.Status)
	}
}

func TestIndexCodebaseCancelledBeforeStart(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\nfunc A() {}\n")

	deps, _ := newTestDeps(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rc := reqctx.New(ctx)

	out, err := IndexCodebase(rc, deps, IndexCodebaseInput{
		CodebaseRoot:       dir,
		CollectionName:     identity.CollectionName("code_chunks_cancel"),
		IndexMode:          identity.IndexModeDense,
		EmbeddingBatchSize: 4,
		ChunkLimit:         100,
	})
	if err == nil || !errs.IsCancelled(err) {
		t.Fatalf("expected a Cancelled error, got %v", err)
	}
	if out.Status != FinalCancelled {
		t.Fatalf("expected Cancelled status, got %s", out.Status)
	}
}
