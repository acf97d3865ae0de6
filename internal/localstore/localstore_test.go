package localstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kodesearch/semcode/internal/identity"
	"github.com/kodesearch/semcode/internal/model"
	"github.com/kodesearch/semcode/internal/reqctx"
	"github.com/kodesearch/semcode/internal/vectorstore"
)

func mustSpan(t *testing.T, start, end int) model.LineSpan {
	t.Helper()
	span, err := model.NewLineSpan(start, end)
	if err != nil {
		t.Fatal(err)
	}
	return span
}

func TestInsertSearchDelete(t *testing.T) {
	store := New("")
	rc := reqctx.New(context.Background())
	name := identity.CollectionName("code_chunks_test")

	if err := store.CreateCollection(rc, name, 4, vectorstore.IndexConfig{}); err != nil {
		t.Fatal(err)
	}
	docs := []model.VectorDocument{
		{ID: "a", Vector: model.EmbeddingVector{1, 0, 0, 0}, Content: "alpha", Metadata: model.VectorDocumentMetadata{RelativePath: "a.go", Span: mustSpan(t, 1, 2)}},
		{ID: "b", Vector: model.EmbeddingVector{0, 1, 0, 0}, Content: "bravo", Metadata: model.VectorDocumentMetadata{RelativePath: "b.go", Span: mustSpan(t, 1, 2)}},
	}
	if err := store.Insert(rc, name, docs); err != nil {
		t.Fatal(err)
	}

	results, err := store.Search(rc, name, model.EmbeddingVector{1, 0, 0, 0}, 10, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].Document.ID != "a" {
		t.Fatalf("expected a to rank first, got %+v", results)
	}

	if err := store.Delete(rc, name, []string{"a"}); err != nil {
		t.Fatal(err)
	}
	results, err = store.Search(rc, name, model.EmbeddingVector{1, 0, 0, 0}, 10, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Document.ID != "b" {
		t.Fatalf("expected only b after delete, got %+v", results)
	}
}

func TestDropCollectionThenSearchReturnsEmpty(t *testing.T) {
	store := New("")
	rc := reqctx.New(context.Background())
	name := identity.CollectionName("code_chunks_drop")

	if err := store.CreateCollection(rc, name, 2, vectorstore.IndexConfig{}); err != nil {
		t.Fatal(err)
	}
	if err := store.Insert(rc, name, []model.VectorDocument{{ID: "x", Vector: model.EmbeddingVector{1, 1}}}); err != nil {
		t.Fatal(err)
	}
	if err := store.DropCollection(rc, name); err != nil {
		t.Fatal(err)
	}
	results, err := store.Search(rc, name, model.EmbeddingVector{1, 1}, 10, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results after drop, got %+v", results)
	}

	// Dropping again must remain idempotent.
	if err := store.DropCollection(rc, name); err != nil {
		t.Fatal(err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rc := reqctx.New(context.Background())
	name := identity.CollectionName("code_chunks_persist")

	s1 := New(filepath.Join(dir, "snapshots"))
	if err := s1.CreateCollection(rc, name, 3, vectorstore.IndexConfig{}); err != nil {
		t.Fatal(err)
	}
	if err := s1.Insert(rc, name, []model.VectorDocument{{ID: "only", Vector: model.EmbeddingVector{1, 2, 3}, Content: "c"}}); err != nil {
		t.Fatal(err)
	}
	if err := s1.Save(name); err != nil {
		t.Fatal(err)
	}

	s2 := New(filepath.Join(dir, "snapshots"))
	if err := s2.Load(name); err != nil {
		t.Fatal(err)
	}
	results, err := s2.Search(rc, name, model.EmbeddingVector{1, 2, 3}, 10, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Document.ID != "only" {
		t.Fatalf("expected loaded collection to contain 'only', got %+v", results)
	}
}

func TestCreateCollectionSchemaMismatch(t *testing.T) {
	store := New("")
	rc := reqctx.New(context.Background())
	name := identity.CollectionName("code_chunks_schema")
	if err := store.CreateCollection(rc, name, 4, vectorstore.IndexConfig{}); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateCollection(rc, name, 8, vectorstore.IndexConfig{}); err == nil {
		t.Fatal("expected schema mismatch error")
	}
	// Re-creating with the same schema is a no-op.
	if err := store.CreateCollection(rc, name, 4, vectorstore.IndexConfig{}); err != nil {
		t.Fatal(err)
	}
}
