package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/kodesearch/semcode/internal/errs"
	"github.com/kodesearch/semcode/internal/model"
	"github.com/kodesearch/semcode/internal/reqctx"
	"github.com/kodesearch/semcode/internal/telemetry"
)

func runSplit(ctx context.Context, rc *reqctx.RequestContext, deps Deps, input IndexCodebaseInput, in <-chan fileTask, out chan<- chunkTask, stats *stageCounters) error {
	g, gctx := errgroup.WithContext(ctx)
	workers := input.MaxInFlightFiles
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for task := range in {
				if err := rc.EnsureNotCancelled("pipeline.split"); err != nil {
					return err
				}
				if err := splitOneFile(gctx, rc, deps, input, task, out, stats); err != nil {
					if errs.IsCancelled(err) {
						return err
					}
					stats.addFailed(1)
					deps.Telemetry.Record(telemetry.Event{Name: "pipeline.split.failed", Fields: map[string]any{"file": task.relPath, "error": err.Error()}})
					continue
				}
				stats.addProcessed(1)
			}
			return nil
		})
	}
	return g.Wait()
}

func splitOneFile(ctx context.Context, rc *reqctx.RequestContext, deps Deps, input IndexCodebaseInput, task fileTask, out chan<- chunkTask, stats *stageCounters) error {
	if input.MaxFileSizeBytes != nil {
		info, err := os.Stat(task.absPath)
		if err != nil {
			return err
		}
		if info.Size() > *input.MaxFileSizeBytes {
			return errs.Expected("PIPELINE", "FILE_TOO_LARGE", "file exceeds maxFileSizeBytes")
		}
	}
	content, err := os.ReadFile(task.absPath)
	if err != nil {
		return errs.Unexpected("PIPELINE", "FILE_READ_FAILED", "failed to read file", errs.ClassNonRetriable, err)
	}

	ext := filepath.Ext(task.relPath)
	language := model.LanguageForExtension(ext)
	chunks, err := deps.Splitter.Split(ctx, string(content), language, deps.SplitOptions)
	if err != nil {
		return err
	}
	if len(chunks) > input.ChunkLimit {
		chunks = chunks[:input.ChunkLimit]
	}

	for _, chunk := range chunks {
		chunk.FilePath = task.relPath
		select {
		case <-ctx.Done():
			return errs.Cancelled("pipeline split cancelled")
		case out <- chunkTask{relPath: task.relPath, language: language, ext: ext, chunk: chunk}:
		}
	}
	return nil
}
