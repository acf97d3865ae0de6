package reindex

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kodesearch/semcode/internal/changedetect"
	"github.com/kodesearch/semcode/internal/embedcache"
	"github.com/kodesearch/semcode/internal/embedding"
	"github.com/kodesearch/semcode/internal/errs"
	"github.com/kodesearch/semcode/internal/identity"
	"github.com/kodesearch/semcode/internal/localstore"
	"github.com/kodesearch/semcode/internal/pipeline"
	"github.com/kodesearch/semcode/internal/reqctx"
	"github.com/kodesearch/semcode/internal/splitter"
)

func newTestDeps(t *testing.T, root, persistDir string) (Deps, *localstore.Store) {
	t.Helper()
	cache, err := embedcache.New(embedcache.Config{Enabled: true, MaxEntries: 1000})
	if err != nil {
		t.Fatal(err)
	}
	static := embedding.NewStaticEmbedder(8)
	embedder := embedding.NewResilientEmbedder(static, cache, "reindex-test", errs.DefaultRetryPolicy(), 2*time.Second)
	store := localstore.New("")
	detector := changedetect.New(root, persistDir, "codebase")

	return Deps{
		Detector: detector,
		Store:    store,
		PipelineDeps: pipeline.Deps{
			Embedder:     embedder,
			Store:        store,
			Splitter:     splitter.New(),
			SplitOptions: splitter.DefaultOptions(),
		},
		PersistDir: persistDir,
	}, store
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReindexByChangeScenario(t *testing.T) {
	root := t.TempDir()
	persistDir := t.TempDir()
	writeFile(t, root, "a.go", "package a\nfunc A() int { return 1 }\n")
	writeFile(t, root, "b.go", "package a\nfunc B() int { return 2 }\n")

	deps, store := newTestDeps(t, root, persistDir)
	rc := reqctx.New(context.Background())
	name := identity.CollectionName("code_chunks_reindex")

	out, err := ReindexByChange(rc, deps, ReindexByChangeInput{CodebaseRoot: root, CollectionName: name, IndexMode: identity.IndexModeDense})
	if err != nil {
		t.Fatal(err)
	}
	if out.Added != 2 || out.Removed != 0 || out.Modified != 0 {
		t.Fatalf("expected 2 added, got %+v", out)
	}

	results, err := store.Search(rc, name, mustEmbed(t, deps, "func A() int { return 1 }"), 10, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("expected search results after initial reindex")
	}

	// Modify a.go, remove b.go, add c.go.
	writeFile(t, root, "a.go", "package a\nfunc A() int { return 100 }\n")
	if err := os.Remove(filepath.Join(root, "b.go")); err != nil {
		t.Fatal(err)
	}
	writeFile(t, root, "c.go", "package a\nfunc C() int { return 3 }\n")

	out2, err := ReindexByChange(rc, deps, ReindexByChangeInput{CodebaseRoot: root, CollectionName: name, IndexMode: identity.IndexModeDense})
	if err != nil {
		t.Fatal(err)
	}
	if out2.Added != 1 || out2.Removed != 1 || out2.Modified != 1 {
		t.Fatalf("expected added=1 removed=1 modified=1, got %+v", out2)
	}

	all, err := store.Search(rc, name, mustEmbed(t, deps, "anything"), 100, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range all {
		if r.Document.Metadata.RelativePath == "b.go" {
			t.Fatalf("expected b.go's chunks to be deleted, found %+v", r)
		}
	}
}

func TestClearIndexIdempotent(t *testing.T) {
	root := t.TempDir()
	persistDir := t.TempDir()
	writeFile(t, root, "a.go", "package a\nfunc A() {}\n")

	deps, store := newTestDeps(t, root, persistDir)
	rc := reqctx.New(context.Background())
	name := identity.CollectionName("code_chunks_clear")

	if _, err := ReindexByChange(rc, deps, ReindexByChangeInput{CodebaseRoot: root, CollectionName: name, IndexMode: identity.IndexModeDense}); err != nil {
		t.Fatal(err)
	}
	if err := ClearIndex(rc, deps, ClearIndexInput{CodebaseRoot: root, CollectionName: name}); err != nil {
		t.Fatal(err)
	}
	has, err := store.HasCollection(rc, name)
	if err != nil || has {
		t.Fatalf("expected collection to be gone, err=%v has=%v", err, has)
	}
	// Idempotent: clearing again, or clearing a never-indexed codebase,
	// must still succeed.
	if err := ClearIndex(rc, deps, ClearIndexInput{CodebaseRoot: root, CollectionName: name}); err != nil {
		t.Fatal(err)
	}
}

func mustEmbed(t *testing.T, deps Deps, text string) []float32 {
	t.Helper()
	rc := reqctx.New(context.Background())
	vecs, err := deps.PipelineDeps.Embedder.EmbedBatch(rc, []string{text})
	if err != nil {
		t.Fatal(err)
	}
	return vecs[0]
}
