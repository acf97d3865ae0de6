// Package vectorstore defines the vector store port (C9): collection
// lifecycle, batch insert (dense/hybrid), and similarity search.
// Concrete providers (Milvus variants) are external collaborators; only
// the port and the local in-process provider (see internal/localstore)
// live in this module.
package vectorstore

import (
	"github.com/kodesearch/semcode/internal/identity"
	"github.com/kodesearch/semcode/internal/model"
	"github.com/kodesearch/semcode/internal/reqctx"
)

// IndexConfig describes a collection's vector index parameters.
// Provider-specific fields are opaque to the pipeline.
type IndexConfig struct {
	Metric string
	Params map[string]string
}

// SearchResult is a single result from Store.Search, in store-native
// order; the search use case (C12) re-sorts deterministically.
type SearchResult struct {
	Document model.VectorDocument
	Score    float32
}

// Store is the vector store port every provider implements.
type Store interface {
	// CreateCollection is idempotent: re-creating an existing collection
	// with the same schema is a no-op; a dimension/schema mismatch is
	// vector/schema_mismatch.
	CreateCollection(rc *reqctx.RequestContext, name identity.CollectionName, dimension int, cfg IndexConfig) error
	HasCollection(rc *reqctx.RequestContext, name identity.CollectionName) (bool, error)
	// DropCollection is idempotent.
	DropCollection(rc *reqctx.RequestContext, name identity.CollectionName) error

	// Insert is a dense upsert keyed by document id.
	Insert(rc *reqctx.RequestContext, name identity.CollectionName, docs []model.VectorDocument) error
	// InsertHybrid additionally carries sparse vectors; only valid for
	// hybrid-mode collections. sparseTerms maps document id to an
	// opaque provider-specific sparse representation.
	InsertHybrid(rc *reqctx.RequestContext, name identity.CollectionName, docs []model.VectorDocument, sparseTerms map[string]map[string]float32) error

	// Delete is idempotent on missing ids.
	Delete(rc *reqctx.RequestContext, name identity.CollectionName, ids []string) error

	// Search returns up to topK results ordered by the store's native
	// scoring; filterExpr is an opaque provider-specific string,
	// validated only by the provider.
	Search(rc *reqctx.RequestContext, name identity.CollectionName, query model.EmbeddingVector, topK int, threshold *float32, filterExpr string) ([]SearchResult, error)
}
