package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/kodesearch/semcode/internal/changedetect"
	"github.com/kodesearch/semcode/internal/config"
	"github.com/kodesearch/semcode/internal/embedcache"
	"github.com/kodesearch/semcode/internal/embedding"
	"github.com/kodesearch/semcode/internal/errs"
	"github.com/kodesearch/semcode/internal/identity"
	"github.com/kodesearch/semcode/internal/localstore"
	"github.com/kodesearch/semcode/internal/pipeline"
	"github.com/kodesearch/semcode/internal/reindex"
	"github.com/kodesearch/semcode/internal/search"
	"github.com/kodesearch/semcode/internal/splitter"
	"github.com/kodesearch/semcode/internal/vectorstore"
)

// contextDir is the persisted-state directory under a codebase root,
// spec §6's `<codebaseRoot>/.context/`.
func contextDir(codebaseRoot string) string {
	return filepath.Join(codebaseRoot, ".context")
}

func snapshotsDir(codebaseRoot string) string {
	return filepath.Join(contextDir(codebaseRoot), "snapshots")
}

// appDeps bundles every collaborator a subcommand needs, built once
// from the effective Config and the target codebase root. Only the
// "test" embedding provider and the "local" vector-store provider are
// implemented in this build; every other configured provider is an
// out-of-scope external collaborator (see DESIGN.md) and selecting one
// fails fast with an Expected error instead of silently falling back.
type appDeps struct {
	cfg            *config.Config
	codebaseRoot   string
	codebaseID     identity.CodebaseID
	collectionName identity.CollectionName
	cache          *embedcache.Cache
	embedder       *embedding.ResilientEmbedder
	store          vectorstore.Store
	localStore     *localstore.Store
	detector       *changedetect.Detector
	splitter       *splitter.Splitter
	close          func() error
}

func buildAppDeps(cfg *config.Config, codebaseRoot string) (*appDeps, error) {
	codebaseID, err := identity.DeriveCodebaseID(codebaseRoot)
	if err != nil {
		return nil, err
	}
	mode := identity.IndexModeDense
	if cfg.VectorDB.IndexMode == "hybrid" {
		mode = identity.IndexModeHybrid
	}
	collectionName, err := identity.DeriveCollectionName(codebaseID, mode)
	if err != nil {
		return nil, err
	}

	var backend embedding.Port
	switch cfg.Embedding.Provider {
	case "test", "":
		dim := cfg.Embedding.Dimension
		if dim <= 0 {
			dim = 8
		}
		backend = embedding.NewStaticEmbedder(dim)
	default:
		return nil, errs.Expected("EMBEDDING", "PROVIDER_NOT_AVAILABLE",
			fmt.Sprintf("embedding provider %q has no in-tree implementation in this build; only \"test\" is available", cfg.Embedding.Provider))
	}

	cacheCfg := embedcache.Config{
		Enabled:      cfg.Cache.Enabled,
		MaxEntries:   cfg.Cache.MaxEntries,
		MaxBytes:     cfg.Cache.MaxBytes,
		DiskEnabled:  cfg.Cache.DiskEnabled,
		DiskPath:     cfg.Cache.DiskPath,
		DiskTable:    cfg.Cache.DiskTable,
		DiskMaxBytes: cfg.Cache.DiskMaxBytes,
	}
	if cacheCfg.DiskEnabled && cacheCfg.DiskPath == "" {
		cacheCfg.DiskPath = filepath.Join(contextDir(codebaseRoot), "cache", "embeddings.sqlite")
	}
	cache, err := embedcache.New(cacheCfg)
	if err != nil {
		return nil, err
	}

	namespace := cfg.Embedding.Namespace
	if namespace == "" {
		namespace = string(collectionName)
	}
	retryPolicy := errs.DefaultRetryPolicy()
	attemptTimeout := time.Duration(cfg.Core.TimeoutMs) * time.Millisecond
	embedder := embedding.NewResilientEmbedder(backend, cache, namespace, retryPolicy, attemptTimeout)

	var store vectorstore.Store
	var local *localstore.Store
	switch cfg.VectorDB.Provider {
	case "local", "":
		snapDir := ""
		if cfg.VectorDB.SnapshotStorage != "disabled" {
			snapDir = snapshotsDir(codebaseRoot)
			if cfg.VectorDB.SnapshotStorage == "custom" && cfg.VectorDB.SnapshotCustomDir != "" {
				snapDir = cfg.VectorDB.SnapshotCustomDir
			}
		}
		local = localstore.New(snapDir)
		if err := local.Load(collectionName); err != nil {
			_ = cache.Close()
			return nil, err
		}
		store = local
	default:
		_ = cache.Close()
		return nil, errs.Expected("VECTORDB", "PROVIDER_NOT_AVAILABLE",
			fmt.Sprintf("vectorDb provider %q has no in-tree implementation in this build; only \"local\" is available", cfg.VectorDB.Provider))
	}

	detector := changedetect.New(codebaseRoot, snapshotsDir(codebaseRoot), string(codebaseID))

	return &appDeps{
		cfg:            cfg,
		codebaseRoot:   codebaseRoot,
		codebaseID:     codebaseID,
		collectionName: collectionName,
		cache:          cache,
		embedder:       embedder,
		store:          store,
		localStore:     local,
		detector:       detector,
		splitter:       splitter.New(),
		close:          cache.Close,
	}, nil
}

// persist flushes the local store's collection to disk, if the active
// provider is the local one; a no-op for any other provider.
func (d *appDeps) persist() error {
	if d.localStore == nil {
		return nil
	}
	return d.localStore.Save(d.collectionName)
}

func (d *appDeps) indexMode() identity.IndexMode {
	if d.cfg.VectorDB.IndexMode == "hybrid" {
		return identity.IndexModeHybrid
	}
	return identity.IndexModeDense
}

func (d *appDeps) pipelineDeps() pipeline.Deps {
	return pipeline.Deps{
		Embedder:     d.embedder,
		Store:        d.store,
		Splitter:     d.splitter,
		SplitOptions: splitterOptionsFrom(d.cfg),
	}
}

func (d *appDeps) reindexDeps() reindex.Deps {
	return reindex.Deps{
		Detector:       d.detector,
		Store:          d.store,
		PipelineDeps:   d.pipelineDeps(),
		IgnorePatterns: d.cfg.Sync.IgnorePatterns,
		PersistDir:     snapshotsDir(d.codebaseRoot),
	}
}

func (d *appDeps) searchDeps() search.Deps {
	return search.Deps{Embedder: d.embedder, Store: d.store}
}

func splitterOptionsFrom(cfg *config.Config) splitter.Options {
	opts := splitter.DefaultOptions()
	return opts
}
