package pipeline

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kodesearch/semcode/internal/errs"
	"github.com/kodesearch/semcode/internal/ignore"
	"github.com/kodesearch/semcode/internal/reqctx"
	"github.com/kodesearch/semcode/internal/telemetry"
)

func runScan(ctx context.Context, rc *reqctx.RequestContext, deps Deps, input IndexCodebaseInput, out chan<- fileTask, stats *stageCounters, limitReached *flag) error {
	matcher := ignore.NewMatcher(input.IgnorePatterns)
	extSet := extensionSet(input.SupportedExtensions)
	accepted := 0

	emit := func(relPath, absPath string) error {
		select {
		case <-ctx.Done():
			return errs.Cancelled("pipeline scan cancelled")
		case out <- fileTask{relPath: relPath, absPath: absPath}:
			return nil
		}
	}

	if len(input.FileList) > 0 {
		for _, absPath := range input.FileList {
			if err := rc.EnsureNotCancelled("pipeline.scan"); err != nil {
				return err
			}
			rel, err := filepath.Rel(input.CodebaseRoot, absPath)
			if err != nil {
				stats.addFailed(1)
				continue
			}
			safe, err := ignore.ToSafeRelativePath(rel)
			if err != nil || matcher.Match(string(safe)) {
				continue
			}
			if !acceptFile(absPath, string(safe), extSet, input.MaxFileSizeBytes, stats) {
				continue
			}
			accepted++
			if err := emit(string(safe), absPath); err != nil {
				return err
			}
			if input.MaxFiles != nil && accepted >= *input.MaxFiles {
				limitReached.set()
				break
			}
		}
		stats.addProcessed(int64(accepted))
		deps.Telemetry.Record(telemetry.Event{Name: "pipeline.scan.complete", Fields: map[string]any{"accepted": accepted}})
		return nil
	}

	walkErr := filepath.WalkDir(input.CodebaseRoot, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			stats.addFailed(1)
			return nil
		}
		if cerr := rc.EnsureNotCancelled("pipeline.scan"); cerr != nil {
			return cerr
		}
		if path == input.CodebaseRoot {
			return nil
		}
		rel, relErr := filepath.Rel(input.CodebaseRoot, path)
		if relErr != nil {
			return nil
		}
		safe, safeErr := ignore.ToSafeRelativePath(rel)
		if safeErr != nil {
			return nil
		}
		if matcher.Match(string(safe)) {
			if entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		if !acceptFile(path, string(safe), extSet, input.MaxFileSizeBytes, stats) {
			return nil
		}
		accepted++
		if emitErr := emit(string(safe), path); emitErr != nil {
			return emitErr
		}
		if input.MaxFiles != nil && accepted >= *input.MaxFiles {
			limitReached.set()
			return errStopWalk
		}
		return nil
	})
	if walkErr != nil && walkErr != errStopWalk {
		return walkErr
	}

	stats.addProcessed(int64(accepted))
	deps.Telemetry.Record(telemetry.Event{Name: "pipeline.scan.complete", Fields: map[string]any{"accepted": accepted}})
	return nil
}

// errStopWalk is a sentinel returned by the WalkDir callback to stop
// early once maxFiles is reached, distinct from a real walk error.
var errStopWalk = stopWalkErr{}

type stopWalkErr struct{}

func (stopWalkErr) Error() string { return "scan stopped: maxFiles reached" }

func extensionSet(exts []string) map[string]bool {
	if len(exts) == 0 {
		return nil
	}
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		set[strings.ToLower(e)] = true
	}
	return set
}

func acceptFile(absPath, relPath string, extSet map[string]bool, maxSize *int64, stats *stageCounters) bool {
	if extSet != nil {
		ext := strings.ToLower(filepath.Ext(relPath))
		if !extSet[ext] {
			return false
		}
	}
	if maxSize != nil {
		info, err := os.Stat(absPath)
		if err != nil {
			stats.addFailed(1)
			return false
		}
		if info.Size() > *maxSize {
			return false
		}
	}
	return true
}
