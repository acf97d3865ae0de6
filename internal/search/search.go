// Package search implements the search use case (C12): embed the
// query, call the vector store, filter by threshold, and sort results
// into a deterministic total order.
package search

import (
	"math"
	"sort"

	"github.com/kodesearch/semcode/internal/embedding"
	"github.com/kodesearch/semcode/internal/identity"
	"github.com/kodesearch/semcode/internal/model"
	"github.com/kodesearch/semcode/internal/reqctx"
	"github.com/kodesearch/semcode/internal/vectorstore"
)

// DefaultTopK is used when Input.TopK is unset.
const DefaultTopK = 10

// Input is the semanticSearch request.
type Input struct {
	CollectionName identity.CollectionName
	Query          string
	TopK           int
	Threshold      *float32
}

// Result is a single ranked search result.
type Result struct {
	RelativePath string
	Span         model.LineSpan
	Score        float32
	Content      string
	Language     model.Language
}

// Deps are the use case's collaborators.
type Deps struct {
	Embedder *embedding.ResilientEmbedder
	Store    vectorstore.Store
}

// SemanticSearch embeds input.Query, searches the named collection,
// filters by threshold, sorts deterministically, and truncates to
// TopK.
func SemanticSearch(rc *reqctx.RequestContext, deps Deps, input Input) ([]Result, error) {
	topK := input.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	vecs, err := deps.Embedder.EmbedBatch(rc, []string{input.Query})
	if err != nil {
		return nil, err
	}
	queryVector := vecs[0]

	if err := rc.EnsureNotCancelled("search.SemanticSearch"); err != nil {
		return nil, err
	}

	storeResults, err := deps.Store.Search(rc, input.CollectionName, queryVector, topK, input.Threshold, "")
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(storeResults))
	for _, r := range storeResults {
		if input.Threshold != nil && !(r.Score >= *input.Threshold) {
			continue
		}
		results = append(results, Result{
			RelativePath: r.Document.Metadata.RelativePath,
			Span:         r.Document.Metadata.Span,
			Score:        r.Score,
			Content:      r.Document.Content,
			Language:     r.Document.Metadata.Language,
		})
	}

	SortDeterministic(results)
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// SortDeterministic orders results by score descending (NaN-safe), then
// relativePath ascending, then span.startLine ascending, then
// span.endLine ascending.
func SortDeterministic(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if totalCmpDesc(a.Score, b.Score) || totalCmpDesc(b.Score, a.Score) {
			return totalCmpDesc(a.Score, b.Score)
		}
		if a.RelativePath != b.RelativePath {
			return a.RelativePath < b.RelativePath
		}
		if a.Span.StartLine != b.Span.StartLine {
			return a.Span.StartLine < b.Span.StartLine
		}
		return a.Span.EndLine < b.Span.EndLine
	})
}

// totalCmpDesc reports whether a should sort before b under a
// NaN-consistent descending total order over float32 scores.
func totalCmpDesc(a, b float32) bool {
	af, bf := float64(a), float64(b)
	if math.IsNaN(af) {
		af = math.Inf(-1)
	}
	if math.IsNaN(bf) {
		bf = math.Inf(-1)
	}
	return af > bf
}
