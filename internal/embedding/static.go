package embedding

import (
	"context"
	"crypto/sha256"
	"math"

	"github.com/kodesearch/semcode/internal/model"
)

// StaticEmbedder is a deterministic, zero-dependency embedding port
// used by the local vector-store provider and the test suite: vectors
// are hash-derived and normalized rather than produced by a learned
// model.
type StaticEmbedder struct {
	dim int
}

// NewStaticEmbedder constructs a StaticEmbedder producing vectors of
// the given fixed dimension.
func NewStaticEmbedder(dim int) *StaticEmbedder {
	if dim <= 0 {
		dim = 8
	}
	return &StaticEmbedder{dim: dim}
}

func (s *StaticEmbedder) Provider() string { return "test" }
func (s *StaticEmbedder) Dimension() int   { return s.dim }

// Embed derives a unit-length vector from the sha256 of text, spread
// across s.dim floats. Identical text always yields an identical
// vector; similar text tends to diverge, which is sufficient for
// exercising the search pipeline without a learned model.
func (s *StaticEmbedder) Embed(ctx context.Context, text string) (model.EmbeddingVector, error) {
	sum := sha256.Sum256([]byte(text))
	vec := make(model.EmbeddingVector, s.dim)
	for i := 0; i < s.dim; i++ {
		b := sum[i%len(sum)]
		vec[i] = float32(int(b)-128) / 128.0
	}
	return normalize(vec), nil
}

func (s *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]model.EmbeddingVector, error) {
	out := make([]model.EmbeddingVector, len(texts))
	for i, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func normalize(v model.EmbeddingVector) model.EmbeddingVector {
	var sumSquares float64
	for _, f := range v {
		sumSquares += float64(f) * float64(f)
	}
	mag := math.Sqrt(sumSquares)
	if mag == 0 {
		return v
	}
	out := make(model.EmbeddingVector, len(v))
	for i, f := range v {
		out[i] = float32(float64(f) / mag)
	}
	return out
}
