// Package embedcache implements the two-tier embedding cache (C7):
// a memory LRU tier plus an optional disk KV tier, with at-most-once
// fill coalescing for concurrent cold-key lookups.
package embedcache

import (
	"context"
	"sync"
	"time"

	"github.com/kodesearch/semcode/internal/errs"
	"github.com/kodesearch/semcode/internal/model"
)

// Source identifies which tier satisfied a Get.
type Source string

const (
	SourceMemory Source = "Memory"
	SourceDisk   Source = "Disk"
)

// Result is the value returned by a cache hit.
type Result struct {
	Value  model.EmbeddingVector
	Source Source
}

// Config configures both cache tiers.
type Config struct {
	Enabled      bool
	MaxEntries   int
	MaxBytes     int64
	DiskEnabled  bool
	DiskPath     string
	DiskTable    string
	DiskMaxBytes int64
}

// Cache is the embedding cache port implementation (C7).
type Cache struct {
	cfg    Config
	memory *memoryTier
	disk   *diskTier

	inflightMu sync.Mutex
	inflight   map[Key]*inflightFill
}

// inflightFill is the shared awaitable installed by the first caller for
// a cold key; subsequent callers for the same key subscribe to it
// instead of issuing their own backend call.
type inflightFill struct {
	done chan struct{}
	vec  model.EmbeddingVector
	err  error
}

// New constructs a Cache. If cfg.DiskEnabled, a SQLite-backed disk tier
// is opened at cfg.DiskPath; failures to open the disk tier are
// returned, since the disk tier is expected to be authoritative across
// restarts once configured.
func New(cfg Config) (*Cache, error) {
	c := &Cache{
		cfg:      cfg,
		memory:   newMemoryTier(cfg.MaxEntries, cfg.MaxBytes),
		inflight: make(map[Key]*inflightFill),
	}
	if cfg.DiskEnabled {
		disk, err := newDiskTier(cfg.DiskPath, cfg.DiskTable, cfg.DiskMaxBytes)
		if err != nil {
			return nil, err
		}
		c.disk = disk
	}
	return c, nil
}

// Close releases the disk tier connection, if any.
func (c *Cache) Close() error {
	if c.disk == nil {
		return nil
	}
	return c.disk.close()
}

// MakeKey derives the content-addressed cache key for (namespace, text).
func (c *Cache) MakeKey(namespace, text string) Key {
	return MakeKey(namespace, text)
}

// Get consults the memory tier first, then the disk tier on a memory
// miss, populating memory on a disk hit before returning. A mismatch in
// dimension between a stored value and wantDim is treated as a miss and
// the entry is evicted.
func (c *Cache) Get(key Key, wantDim int) (*Result, error) {
	if !c.cfg.Enabled {
		return nil, nil
	}
	if vec, ok := c.memory.get(key); ok {
		if wantDim > 0 && vec.Dimension() != wantDim {
			c.memory.remove(key)
		} else {
			return &Result{Value: vec, Source: SourceMemory}, nil
		}
	}
	if c.disk == nil {
		return nil, nil
	}
	vec, err := c.disk.get(key, wantDim)
	if err != nil {
		// Disk read failures are expected errors surfaced to the caller;
		// the lookup fails rather than skipping the disk tier.
		return nil, err
	}
	if vec == nil {
		return nil, nil
	}
	c.memory.insert(key, vec)
	return &Result{Value: vec, Source: SourceDisk}, nil
}

// Insert writes value to every tier present.
func (c *Cache) Insert(key Key, value model.EmbeddingVector) error {
	if !c.cfg.Enabled {
		return nil
	}
	c.memory.insert(key, value)
	if c.disk == nil {
		return nil
	}
	return c.disk.insert(key, value, time.Now().Unix())
}

// FillOnce runs fill at most once per cold key across concurrent
// callers: the first caller for key installs a shared awaitable and
// runs fill; later concurrent callers for the same key subscribe to
// that awaitable instead of calling fill themselves. The result is
// inserted into the cache before being returned to every subscriber.
//
// A subscriber's own ctx cancellation only unblocks that subscriber; it
// never cancels the in-flight fill, since other subscribers may still
// be waiting on it.
func (c *Cache) FillOnce(ctx context.Context, key Key, fill func() (model.EmbeddingVector, error)) (model.EmbeddingVector, error) {
	c.inflightMu.Lock()
	existing, alreadyRunning := c.inflight[key]
	if !alreadyRunning {
		existing = &inflightFill{done: make(chan struct{})}
		c.inflight[key] = existing
	}
	c.inflightMu.Unlock()

	if alreadyRunning {
		select {
		case <-ctx.Done():
			return nil, errs.Cancelled("embedding cache fill wait cancelled")
		case <-existing.done:
			return existing.vec, existing.err
		}
	}

	// A previous fill may have completed (and cached its result) between
	// this caller's cache miss and its installing the in-flight entry.
	var vec model.EmbeddingVector
	var err error
	if cached, _ := c.Get(key, 0); cached != nil {
		vec = cached.Value
	} else {
		vec, err = fill()
		if err == nil {
			_ = c.Insert(key, vec)
		}
	}
	existing.vec, existing.err = vec, err
	close(existing.done)

	c.inflightMu.Lock()
	delete(c.inflight, key)
	c.inflightMu.Unlock()

	return vec, err
}
