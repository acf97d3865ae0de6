// Package reindex implements incremental reindex and clear (C11):
// diff-driven reapplication of the indexing pipeline against only the
// files a change-detection snapshot reports as added or modified, with
// targeted deletes for removed/modified chunk ids, plus idempotent
// collection-drop-and-snapshot-purge for a full clear.
package reindex

import (
	"path/filepath"

	"github.com/kodesearch/semcode/internal/changedetect"
	"github.com/kodesearch/semcode/internal/identity"
	"github.com/kodesearch/semcode/internal/pipeline"
	"github.com/kodesearch/semcode/internal/reqctx"
	"github.com/kodesearch/semcode/internal/vectorstore"
)

// Deps are reindex's collaborators.
type Deps struct {
	Detector     *changedetect.Detector
	Store        vectorstore.Store
	PipelineDeps pipeline.Deps

	IgnorePatterns []string
	// PersistDir holds the relativePath -> chunkIds side index this
	// package maintains (see chunkindex.go); "" keeps it in memory only.
	PersistDir string
}

// ReindexByChangeInput is the reindexByChange request.
type ReindexByChangeInput struct {
	CodebaseRoot   string
	CollectionName identity.CollectionName
	IndexMode      identity.IndexMode
}

// ReindexByChangeOutput reports the size of each change-set applied.
type ReindexByChangeOutput struct {
	Added    int
	Removed  int
	Modified int
}

func chunkIndexPath(persistDir string, name identity.CollectionName) string {
	if persistDir == "" {
		return ""
	}
	return filepath.Join(persistDir, string(name)+".chunkindex.json")
}

// ReindexByChange runs the five-step incremental reindex: initialize
// the change detector, diff against the last snapshot, delete stale
// chunk ids for removed/modified files, feed added+modified files
// through the pipeline with forceReindex=false, and report the diff
// sizes.
func ReindexByChange(rc *reqctx.RequestContext, deps Deps, input ReindexByChangeInput) (ReindexByChangeOutput, error) {
	idx := newChunkIndex(chunkIndexPath(deps.PersistDir, input.CollectionName))
	if err := idx.load(); err != nil {
		return ReindexByChangeOutput{}, err
	}

	if err := deps.Detector.Initialize(rc, deps.IgnorePatterns); err != nil {
		return ReindexByChangeOutput{}, err
	}
	diff, err := deps.Detector.CheckForChanges(rc, deps.IgnorePatterns)
	if err != nil {
		return ReindexByChangeOutput{}, err
	}

	var stale []string
	for _, relPath := range diff.Removed {
		stale = append(stale, idx.take(relPath)...)
	}
	for _, relPath := range diff.Modified {
		stale = append(stale, idx.take(relPath)...)
	}
	if len(stale) > 0 {
		if err := deps.Store.Delete(rc, input.CollectionName, stale); err != nil {
			return ReindexByChangeOutput{}, err
		}
	}

	toReindex := sortedUnique(diff.Added, diff.Modified)
	if len(toReindex) > 0 {
		fileList := make([]string, len(toReindex))
		for i, relPath := range toReindex {
			fileList[i] = filepath.Join(input.CodebaseRoot, relPath)
		}

		pdeps := deps.PipelineDeps
		pdeps.OnDocumentInserted = func(relPath, chunkID string) { idx.record(relPath, chunkID) }

		if _, err := pipeline.IndexCodebase(rc, pdeps, pipeline.IndexCodebaseInput{
			CodebaseRoot:   input.CodebaseRoot,
			CollectionName: input.CollectionName,
			IndexMode:      input.IndexMode,
			FileList:       fileList,
			ForceReindex:   false,
		}); err != nil {
			return ReindexByChangeOutput{}, err
		}
	}

	if err := idx.save(); err != nil {
		return ReindexByChangeOutput{}, err
	}

	return ReindexByChangeOutput{Added: len(diff.Added), Removed: len(diff.Removed), Modified: len(diff.Modified)}, nil
}

// ClearIndexInput is the clearIndex request.
type ClearIndexInput struct {
	CodebaseRoot   string
	CollectionName identity.CollectionName
}

// ClearIndex drops the collection and purges the change-detection
// snapshot and chunk-id side index. Every step is idempotent; clearing
// a never-indexed codebase succeeds.
func ClearIndex(rc *reqctx.RequestContext, deps Deps, input ClearIndexInput) error {
	if err := deps.Store.DropCollection(rc, input.CollectionName); err != nil {
		return err
	}
	if err := deps.Detector.DeleteSnapshot(); err != nil {
		return err
	}
	idx := newChunkIndex(chunkIndexPath(deps.PersistDir, input.CollectionName))
	return idx.delete()
}
