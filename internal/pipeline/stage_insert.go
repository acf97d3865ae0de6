package pipeline

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kodesearch/semcode/internal/errs"
	"github.com/kodesearch/semcode/internal/identity"
	"github.com/kodesearch/semcode/internal/model"
	"github.com/kodesearch/semcode/internal/reqctx"
	"github.com/kodesearch/semcode/internal/telemetry"
)

func runInsert(ctx context.Context, rc *reqctx.RequestContext, deps Deps, input IndexCodebaseInput, in <-chan embeddedBatch, stats *stageCounters) error {
	inserts := newInFlightInserts(input.MaxInFlightInserts)
	var cancelled atomic.Bool
	var mu sync.Mutex
	var firstErr error

	for batch := range in {
		if len(batch.records) == 0 {
			continue
		}
		batch := batch
		if err := rc.EnsureNotCancelled("pipeline.insert"); err != nil {
			inserts.wait()
			return err
		}
		scheduleErr := inserts.schedule(ctx, func() {
			stageRC := rc.Derive(ctx)
			err := insertBatch(stageRC, deps, input, batch)
			if err == nil {
				stats.addProcessed(int64(len(batch.records)))
				if deps.OnDocumentInserted != nil {
					for _, r := range batch.records {
						deps.OnDocumentInserted(r.doc.Metadata.RelativePath, r.doc.ID)
					}
				}
				return
			}
			if errs.IsCancelled(err) {
				cancelled.Store(true)
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			stats.addFailed(int64(len(batch.records)))
			deps.Telemetry.Record(telemetry.Event{Name: "pipeline.insert.failed", Fields: map[string]any{"error": err.Error()}})
		})
		if scheduleErr != nil {
			inserts.wait()
			return errs.Cancelled("pipeline insert cancelled")
		}
	}
	inserts.wait()
	if cancelled.Load() {
		return firstErr
	}
	return nil
}

func insertBatch(rc *reqctx.RequestContext, deps Deps, input IndexCodebaseInput, batch embeddedBatch) error {
	docs := make([]model.VectorDocument, len(batch.records))
	for i, r := range batch.records {
		docs[i] = r.doc
	}
	if input.IndexMode == identity.IndexModeHybrid {
		return deps.Store.InsertHybrid(rc, input.CollectionName, docs, nil)
	}
	return deps.Store.Insert(rc, input.CollectionName, docs)
}
