package embedding

import (
	"context"
	"time"

	"github.com/kodesearch/semcode/internal/embedcache"
	"github.com/kodesearch/semcode/internal/errs"
	"github.com/kodesearch/semcode/internal/model"
	"github.com/kodesearch/semcode/internal/reqctx"
)

// ResilientEmbedder wraps an inner Port with cache lookup, retry, and
// timeout, and enforces the collection's fixed embedding dimension.
type ResilientEmbedder struct {
	inner          Port
	cache          *embedcache.Cache
	namespace      string
	dim            int
	retryPolicy    errs.RetryPolicy
	attemptTimeout time.Duration
}

// NewResilientEmbedder builds a ResilientEmbedder. namespace isolates
// this embedder's cache entries from other providers/dimensions.
func NewResilientEmbedder(inner Port, cache *embedcache.Cache, namespace string, retryPolicy errs.RetryPolicy, attemptTimeout time.Duration) *ResilientEmbedder {
	return &ResilientEmbedder{
		inner:          inner,
		cache:          cache,
		namespace:      namespace,
		dim:            inner.Dimension(),
		retryPolicy:    retryPolicy,
		attemptTimeout: attemptTimeout,
	}
}

// Dimension answers the collection's fixed dimension without hitting
// the backend.
func (r *ResilientEmbedder) Dimension() int { return r.dim }

// EmbedBatch resolves each text's vector from cache where possible,
// coalesces concurrent cold-key fills via the cache's at-most-once
// policy, and returns vectors in the original input order.
func (r *ResilientEmbedder) EmbedBatch(rc *reqctx.RequestContext, texts []string) ([]model.EmbeddingVector, error) {
	out := make([]model.EmbeddingVector, len(texts))
	for i, text := range texts {
		if err := rc.EnsureNotCancelled("embedding.EmbedBatch"); err != nil {
			return nil, err
		}
		vec, err := r.embedOne(rc, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (r *ResilientEmbedder) embedOne(rc *reqctx.RequestContext, text string) (model.EmbeddingVector, error) {
	key := r.cache.MakeKey(r.namespace, text)
	if result, err := r.cache.Get(key, r.dim); err != nil {
		return nil, err
	} else if result != nil {
		return result.Value, nil
	}

	return r.cache.FillOnce(rc.Context(), key, func() (model.EmbeddingVector, error) {
		return r.callBackend(rc, text)
	})
}

func (r *ResilientEmbedder) callBackend(rc *reqctx.RequestContext, text string) (model.EmbeddingVector, error) {
	vec, err := errs.RetryWithResult(rc.Context(), r.retryPolicy, func(attempt int) (model.EmbeddingVector, error) {
		return errs.TimeoutWithContext(rc.Context(), r.attemptTimeout, "embedding.Embed", func(ctx context.Context) (model.EmbeddingVector, error) {
			return r.inner.Embed(ctx, text)
		})
	})
	if err != nil {
		return nil, err
	}
	if vec.Dimension() != r.dim {
		return nil, errs.Expected("EMBEDDING", "DIMENSION_MISMATCH", "backend returned a vector of the wrong dimension")
	}
	return vec, nil
}
