package embedcache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kodesearch/semcode/internal/model"
)

type memoryEntry struct {
	vector model.EmbeddingVector
}

// memoryTier is an LRU bounded by both entry count and byte count;
// eviction removes the least-recently-used entry until both bounds are
// respected.
type memoryTier struct {
	mu       sync.Mutex
	cache    *lru.Cache[Key, memoryEntry]
	maxBytes int64
	curBytes int64
}

func newMemoryTier(maxEntries int, maxBytes int64) *memoryTier {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	t := &memoryTier{maxBytes: maxBytes}
	cache, err := lru.NewWithEvict[Key, memoryEntry](maxEntries, t.onEvict)
	if err != nil {
		cache, _ = lru.New[Key, memoryEntry](1000)
	}
	t.cache = cache
	return t
}

func (t *memoryTier) onEvict(_ Key, value memoryEntry) {
	t.curBytes -= int64(len(value.vector)) * 4
}

func (t *memoryTier) get(key Key) (model.EmbeddingVector, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.cache.Get(key)
	if !ok {
		return nil, false
	}
	return entry.vector, true
}

func (t *memoryTier) insert(key Key, vec model.EmbeddingVector) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.cache.Peek(key); ok {
		t.curBytes -= int64(len(old.vector)) * 4
	}
	t.cache.Add(key, memoryEntry{vector: vec})
	t.curBytes += int64(len(vec)) * 4
	if t.maxBytes <= 0 {
		return
	}
	for t.curBytes > t.maxBytes && t.cache.Len() > 0 {
		t.cache.RemoveOldest()
	}
}

func (t *memoryTier) remove(key Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache.Remove(key)
}
