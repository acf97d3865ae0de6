package reindex

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/kodesearch/semcode/internal/errs"
)

// chunkIndex persists the relativePath -> []chunkId mapping the
// distilled spec's open question (§9) names as the fallback to
// vector-store id enumeration: since the vectorstore.Store port (C9)
// has no enumerate-by-relativePath operation, reindex keeps this side
// index alongside the change-detection snapshot and consults it to
// compute stale ids for removed/modified files.
type chunkIndex struct {
	mu   sync.Mutex
	path string
	data map[string][]string
}

func newChunkIndex(path string) *chunkIndex {
	return &chunkIndex{path: path, data: make(map[string][]string)}
}

func (c *chunkIndex) load() error {
	if c.path == "" {
		return nil
	}
	raw, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errs.Unexpected("REINDEX", "CHUNK_INDEX_READ_FAILED", "failed to read chunk index", errs.ClassNonRetriable, err)
	}
	var data map[string][]string
	if err := json.Unmarshal(raw, &data); err != nil {
		return errs.Unexpected("REINDEX", "CHUNK_INDEX_CORRUPT", "chunk index file is corrupt", errs.ClassNonRetriable, err)
	}
	c.mu.Lock()
	c.data = data
	c.mu.Unlock()
	return nil
}

func (c *chunkIndex) save() error {
	if c.path == "" {
		return nil
	}
	c.mu.Lock()
	snapshot := make(map[string][]string, len(c.data))
	for k, v := range c.data {
		snapshot[k] = append([]string(nil), v...)
	}
	c.mu.Unlock()

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Unexpected("REINDEX", "CHUNK_INDEX_DIR_FAILED", "failed to create chunk index directory", errs.ClassNonRetriable, err)
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return errs.Unexpected("REINDEX", "CHUNK_INDEX_ENCODE_FAILED", "failed to encode chunk index", errs.ClassNonRetriable, err)
	}
	tmp, err := os.CreateTemp(dir, ".chunkindex-*.tmp")
	if err != nil {
		return errs.Unexpected("REINDEX", "CHUNK_INDEX_TEMP_FAILED", "failed to create chunk index temp file", errs.ClassNonRetriable, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errs.Unexpected("REINDEX", "CHUNK_INDEX_WRITE_FAILED", "failed to write chunk index temp file", errs.ClassNonRetriable, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errs.Unexpected("REINDEX", "CHUNK_INDEX_CLOSE_FAILED", "failed to close chunk index temp file", errs.ClassNonRetriable, err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		_ = os.Remove(tmpPath)
		return errs.Unexpected("REINDEX", "CHUNK_INDEX_RENAME_FAILED", "failed to replace chunk index file", errs.ClassNonRetriable, err)
	}
	return nil
}

// record appends chunkID under relPath, deduping.
func (c *chunkIndex) record(relPath, chunkID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.data[relPath] {
		if id == chunkID {
			return
		}
	}
	c.data[relPath] = append(c.data[relPath], chunkID)
}

// take removes and returns the chunk ids recorded for relPath.
func (c *chunkIndex) take(relPath string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := c.data[relPath]
	delete(c.data, relPath)
	return ids
}

// reset clears relPath's entry before a fresh insert pass records it
// again, so stale ids from a prior chunking of the same file (e.g. a
// file shrunk and now produces fewer chunks) do not linger.
func (c *chunkIndex) reset(relPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, relPath)
}

func (c *chunkIndex) delete() error {
	c.mu.Lock()
	c.data = make(map[string][]string)
	c.mu.Unlock()
	if c.path == "" {
		return nil
	}
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return errs.Unexpected("REINDEX", "CHUNK_INDEX_DELETE_FAILED", "failed to remove chunk index file", errs.ClassNonRetriable, err)
	}
	return nil
}

func sortedUnique(paths ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, group := range paths {
		for _, p := range group {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	sort.Strings(out)
	return out
}
