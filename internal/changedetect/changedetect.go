// Package changedetect implements the change-detection snapshot (C4)
// that drives incremental reindex: a persisted relativePath -> {size,
// mtime} map, rewalked and diffed on demand, replaced atomically.
package changedetect

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"

	"github.com/kodesearch/semcode/internal/errs"
	"github.com/kodesearch/semcode/internal/ignore"
	"github.com/kodesearch/semcode/internal/reqctx"
)

// Entry records the size and modification time snapshot recorded for a
// relative path.
type Entry struct {
	Size  int64     `json:"size"`
	Mtime time.Time `json:"mtime"`
}

func (e Entry) equal(other Entry) bool {
	return e.Size == other.Size && e.Mtime.Equal(other.Mtime)
}

// Snapshot is the full relativePath -> Entry mapping.
type Snapshot map[string]Entry

// Diff is the result of comparing two snapshots.
type Diff struct {
	Added    []string
	Removed  []string
	Modified []string
}

type onDisk struct {
	Entries map[string]Entry `json:"entries"`
}

// Detector persists a snapshot under <root>/.context/snapshots/ (or a
// configured alternative directory), or holds it in memory only when
// persistDir is empty.
type Detector struct {
	root        string
	persistDir  string
	snapshotKey string
	current     Snapshot
}

// New constructs a Detector. persistDir == "" disables on-disk
// persistence (in-memory only).
func New(root, persistDir, snapshotKey string) *Detector {
	return &Detector{root: root, persistDir: persistDir, snapshotKey: snapshotKey, current: Snapshot{}}
}

func (d *Detector) snapshotPath() string {
	if d.persistDir == "" {
		return ""
	}
	return filepath.Join(d.persistDir, d.snapshotKey+".json")
}

// Initialize walks the codebase honoring ignorePatterns, loads a prior
// persisted snapshot if present (otherwise starts empty), and emits no
// diff. Initialize is idempotent: calling it again is a no-op if a
// snapshot is already loaded in memory.
func (d *Detector) Initialize(rc *reqctx.RequestContext, ignorePatterns []string) error {
	if d.current != nil && len(d.current) > 0 {
		return nil
	}
	if path := d.snapshotPath(); path != "" {
		if loaded, err := loadSnapshot(path); err == nil {
			d.current = loaded
			return nil
		}
	}
	if _, err := d.walk(rc, ignorePatterns); err != nil {
		return err
	}
	d.current = Snapshot{}
	return nil
}

// CheckForChanges rewalks the codebase, computes the next snapshot,
// diffs it against the current one, atomically persists the new
// snapshot, and returns the diff. On a walk error the current snapshot
// is left untouched.
func (d *Detector) CheckForChanges(rc *reqctx.RequestContext, ignorePatterns []string) (Diff, error) {
	next, err := d.walk(rc, ignorePatterns)
	if err != nil {
		return Diff{}, err
	}
	diff := computeDiff(d.current, next)
	if path := d.snapshotPath(); path != "" {
		if err := persistSnapshot(path, next); err != nil {
			return Diff{}, err
		}
	}
	d.current = next
	return diff, nil
}

// DeleteSnapshot idempotently removes persisted snapshot state.
func (d *Detector) DeleteSnapshot() error {
	d.current = Snapshot{}
	path := d.snapshotPath()
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errs.Unexpected("FS", "SNAPSHOT_DELETE_FAILED", "failed to remove snapshot file", errs.ClassNonRetriable, err)
	}
	return nil
}

func (d *Detector) walk(rc *reqctx.RequestContext, ignorePatterns []string) (Snapshot, error) {
	matcher := ignore.NewMatcher(ignorePatterns)
	snap := Snapshot{}
	err := filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return errs.Unexpected("FS", "WALK_FAILED", "walk failed at "+path, errs.ClassNonRetriable, walkErr)
		}
		if err := rc.EnsureNotCancelled("changedetect.walk"); err != nil {
			return err
		}
		if path == d.root {
			return nil
		}
		rel, relErr := filepath.Rel(d.root, path)
		if relErr != nil {
			return nil
		}
		safe, safeErr := ignore.ToSafeRelativePath(rel)
		if safeErr != nil {
			return nil
		}
		if matcher.Match(string(safe)) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		info, infoErr := entry.Info()
		if infoErr != nil {
			return errs.Unexpected("FS", "STAT_FAILED", "stat failed for "+path, errs.ClassNonRetriable, infoErr)
		}
		snap[string(safe)] = Entry{Size: info.Size(), Mtime: info.ModTime()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func computeDiff(oldSnap, newSnap Snapshot) Diff {
	var diff Diff
	for path, entry := range newSnap {
		old, existed := oldSnap[path]
		if !existed {
			diff.Added = append(diff.Added, path)
			continue
		}
		if !old.equal(entry) {
			diff.Modified = append(diff.Modified, path)
		}
	}
	for path := range oldSnap {
		if _, stillExists := newSnap[path]; !stillExists {
			diff.Removed = append(diff.Removed, path)
		}
	}
	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Strings(diff.Modified)
	return diff
}

func loadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var persisted onDisk
	if err := json.Unmarshal(data, &persisted); err != nil {
		return nil, errs.Unexpected("FS", "SNAPSHOT_CORRUPT", "snapshot file is corrupt", errs.ClassNonRetriable, err)
	}
	if persisted.Entries == nil {
		persisted.Entries = map[string]Entry{}
	}
	return Snapshot(persisted.Entries), nil
}

// persistSnapshot writes the snapshot atomically: write to a temp file
// in the same directory, then rename. A cross-process file lock guards
// concurrent writers of the same snapshot path.
func persistSnapshot(path string, snap Snapshot) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Unexpected("FS", "SNAPSHOT_DIR_FAILED", "failed to create snapshot directory", errs.ClassNonRetriable, err)
	}
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return errs.Unexpected("FS", "SNAPSHOT_LOCK_FAILED", "failed to lock snapshot file", errs.ClassRetriable, err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := json.Marshal(onDisk{Entries: map[string]Entry(snap)})
	if err != nil {
		return errs.Unexpected("FS", "SNAPSHOT_ENCODE_FAILED", "failed to encode snapshot", errs.ClassNonRetriable, err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return errs.Unexpected("FS", "SNAPSHOT_TEMP_FAILED", "failed to create snapshot temp file", errs.ClassNonRetriable, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errs.Unexpected("FS", "SNAPSHOT_WRITE_FAILED", "failed to write snapshot temp file", errs.ClassNonRetriable, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errs.Unexpected("FS", "SNAPSHOT_SYNC_FAILED", "failed to fsync snapshot temp file", errs.ClassNonRetriable, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errs.Unexpected("FS", "SNAPSHOT_CLOSE_FAILED", "failed to close snapshot temp file", errs.ClassNonRetriable, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return errs.Unexpected("FS", "SNAPSHOT_RENAME_FAILED", "failed to replace snapshot file", errs.ClassNonRetriable, err)
	}
	return nil
}
