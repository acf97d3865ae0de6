// Package embedding implements the resilient embedding wrapper (C8): a
// cache + retry + timeout layer over a backend EmbeddingPort, plus the
// static in-process test implementation of that port used by the local
// mode and the test suite.
package embedding

import (
	"context"

	"github.com/kodesearch/semcode/internal/model"
)

// Port is the capability set a concrete embedding backend implements.
// Concrete backends (OpenAI, ONNX, Ollama, ...) are out of scope here
// (external collaborators); only the port and the static test
// implementation live in this module.
type Port interface {
	Provider() string
	Dimension() int
	Embed(ctx context.Context, text string) (model.EmbeddingVector, error)
	EmbedBatch(ctx context.Context, texts []string) ([]model.EmbeddingVector, error)
}
