package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/kodesearch/semcode/internal/errs"
	"github.com/kodesearch/semcode/internal/identity"
	"github.com/kodesearch/semcode/internal/model"
	"github.com/kodesearch/semcode/internal/reqctx"
)

func runEmbed(ctx context.Context, rc *reqctx.RequestContext, deps Deps, input IndexCodebaseInput, in <-chan chunkTask, out chan<- embeddedBatch, stats *stageCounters) error {
	g := &errgroup.Group{}
	g.SetLimit(input.MaxInFlightEmbeddingBatches)

	var pending []chunkTask
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		batch := pending
		pending = nil
		g.Go(func() error {
			return embedBatch(ctx, rc, deps, batch, out, stats)
		})
		return nil
	}

	for task := range in {
		if err := rc.EnsureNotCancelled("pipeline.embed"); err != nil {
			_ = g.Wait()
			return err
		}
		pending = append(pending, task)
		if len(pending) >= input.EmbeddingBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	return g.Wait()
}

func embedBatch(ctx context.Context, rc *reqctx.RequestContext, deps Deps, batch []chunkTask, out chan<- embeddedBatch, stats *stageCounters) error {
	stageRC := rc.Derive(ctx)
	texts := make([]string, len(batch))
	for i, t := range batch {
		texts[i] = t.chunk.Content
	}

	vectors, err := deps.Embedder.EmbedBatch(stageRC, texts)
	if err != nil {
		if errs.IsCancelled(err) {
			return err
		}
		stats.addFailed(int64(len(batch)))
		return nil
	}

	records := make([]embeddedRecord, 0, len(batch))
	for i, t := range batch {
		id, idErr := identity.DeriveChunkID(t.relPath, t.chunk.Span.StartLine, t.chunk.Span.EndLine, t.chunk.Content)
		if idErr != nil {
			stats.addFailed(1)
			continue
		}
		doc := model.VectorDocument{
			ID:      string(id),
			Vector:  vectors[i],
			Content: t.chunk.Content,
			Metadata: model.VectorDocumentMetadata{
				RelativePath:  t.relPath,
				Language:      t.language,
				FileExtension: t.ext,
				Span:          t.chunk.Span,
			},
		}
		records = append(records, embeddedRecord{doc: doc})
	}
	stats.addProcessed(int64(len(records)))

	select {
	case <-ctx.Done():
		return errs.Cancelled("pipeline embed cancelled")
	case out <- embeddedBatch{records: records}:
		return nil
	}
}
