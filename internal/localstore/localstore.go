// Package localstore implements the "local" in-process dense vector
// store (C13): a map collectionName -> {dim, docs}, with atomic
// gob-encoded persistence. Each collection keeps a pure-Go HNSW graph
// (github.com/coder/hnsw) so larger collections search sub-linearly,
// while brute-force cosine re-scoring still covers small collections
// exactly.
package localstore

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kodesearch/semcode/internal/errs"
	"github.com/kodesearch/semcode/internal/identity"
	"github.com/kodesearch/semcode/internal/model"
	"github.com/kodesearch/semcode/internal/reqctx"
	"github.com/kodesearch/semcode/internal/vectorstore"
)

// bruteForceThreshold is the collection size below which Search scans
// every document directly instead of querying the HNSW graph; small
// collections are dominated by graph-maintenance overhead, not scan
// cost.
const bruteForceThreshold = 256

type docEntry struct {
	doc model.VectorDocument
}

type collection struct {
	dim   int
	docs  map[string]docEntry
	graph *hnsw.Graph[string]
}

func newCollection(dim int) *collection {
	g := hnsw.NewGraph[string]()
	g.Distance = hnsw.CosineDistance
	return &collection{dim: dim, docs: make(map[string]docEntry), graph: g}
}

// Store is the local, zero-dependency vectorstore.Store implementation.
type Store struct {
	mu          sync.RWMutex
	collections map[identity.CollectionName]*collection
	snapshotDir string
}

var _ vectorstore.Store = (*Store)(nil)

// New constructs a local Store. snapshotDir == "" disables persistence.
func New(snapshotDir string) *Store {
	return &Store{collections: make(map[identity.CollectionName]*collection), snapshotDir: snapshotDir}
}

func (s *Store) CreateCollection(rc *reqctx.RequestContext, name identity.CollectionName, dimension int, _ vectorstore.IndexConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.collections[name]; ok {
		if existing.dim != dimension {
			return errs.Expected("VECTOR", "SCHEMA_MISMATCH", fmt.Sprintf("collection %s exists with dimension %d, got %d", name, existing.dim, dimension))
		}
		return nil
	}
	s.collections[name] = newCollection(dimension)
	return nil
}

func (s *Store) HasCollection(rc *reqctx.RequestContext, name identity.CollectionName) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

func (s *Store) DropCollection(rc *reqctx.RequestContext, name identity.CollectionName) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	if s.snapshotDir != "" {
		_ = os.Remove(s.snapshotPath(name))
		_ = os.Remove(s.snapshotPath(name) + ".meta")
	}
	return nil
}

func (s *Store) Insert(rc *reqctx.RequestContext, name identity.CollectionName, docs []model.VectorDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[name]
	if !ok {
		return errs.Expected("VECTOR", "COLLECTION_NOT_FOUND", "collection "+string(name)+" does not exist")
	}
	for _, d := range docs {
		if d.Vector.Dimension() != col.dim {
			return errs.Expected("VECTOR", "DIMENSION_MISMATCH", fmt.Sprintf("document %s has dimension %d, collection expects %d", d.ID, d.Vector.Dimension(), col.dim))
		}
	}
	for _, d := range docs {
		col.docs[d.ID] = docEntry{doc: d}
		col.graph.Add(hnsw.MakeNode(d.ID, []float32(normalized(d.Vector))))
	}
	return nil
}

// InsertHybrid stores the dense vector exactly as Insert does; sparse
// terms have no counterpart in the local provider (it ships dense-only,
// per spec §1's "concrete vector-store backends via their interfaces
// only") and are accepted but not retained.
func (s *Store) InsertHybrid(rc *reqctx.RequestContext, name identity.CollectionName, docs []model.VectorDocument, _ map[string]map[string]float32) error {
	return s.Insert(rc, name, docs)
}

func (s *Store) Delete(rc *reqctx.RequestContext, name identity.CollectionName, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[name]
	if !ok {
		return nil
	}
	for _, id := range ids {
		delete(col.docs, id)
	}
	// Lazy deletion from the graph: orphaned nodes are filtered out of
	// search results by checking col.docs instead of mutating the graph.
	return nil
}

func (s *Store) Search(rc *reqctx.RequestContext, name identity.CollectionName, query model.EmbeddingVector, topK int, threshold *float32, filterExpr string) ([]vectorstore.SearchResult, error) {
	if filterExpr != "" {
		return nil, errs.Expected("VECTOR", "FILTER_UNSUPPORTED", "the local provider does not support filter expressions")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[name]
	if !ok {
		return []vectorstore.SearchResult{}, nil
	}
	if query.Dimension() != col.dim {
		return nil, errs.Expected("VECTOR", "DIMENSION_MISMATCH", fmt.Sprintf("query has dimension %d, collection expects %d", query.Dimension(), col.dim))
	}
	if len(col.docs) == 0 {
		return nil, nil
	}

	q := normalized(query)
	var results []vectorstore.SearchResult
	if len(col.docs) <= bruteForceThreshold {
		results = bruteForceSearch(col, q)
	} else {
		results = graphSearch(col, q, topK)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if threshold != nil {
		filtered := results[:0]
		for _, r := range results {
			if r.Score >= *threshold {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func bruteForceSearch(col *collection, q model.EmbeddingVector) []vectorstore.SearchResult {
	results := make([]vectorstore.SearchResult, 0, len(col.docs))
	for _, entry := range col.docs {
		score := cosineSimilarity(q, normalized(entry.doc.Vector))
		results = append(results, vectorstore.SearchResult{Document: entry.doc, Score: score})
	}
	return results
}

func graphSearch(col *collection, q model.EmbeddingVector, topK int) []vectorstore.SearchResult {
	if topK <= 0 {
		topK = len(col.docs)
	}
	// Over-fetch to compensate for lazily-deleted orphans still present
	// in the graph.
	k := topK * 3
	if k < 32 {
		k = 32
	}
	if k > len(col.docs)*3 {
		k = len(col.docs) * 3
	}
	nodes := col.graph.Search([]float32(q), k)
	results := make([]vectorstore.SearchResult, 0, len(nodes))
	for _, node := range nodes {
		entry, ok := col.docs[node.Key]
		if !ok {
			continue
		}
		score := cosineSimilarity(q, normalized(entry.doc.Vector))
		results = append(results, vectorstore.SearchResult{Document: entry.doc, Score: score})
	}
	return results
}

func cosineSimilarity(a, b model.EmbeddingVector) float32 {
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

func normalized(v model.EmbeddingVector) model.EmbeddingVector {
	var sumSquares float64
	for _, f := range v {
		sumSquares += float64(f) * float64(f)
	}
	if sumSquares == 0 {
		return v
	}
	mag := float32(math.Sqrt(sumSquares))
	out := make(model.EmbeddingVector, len(v))
	for i, f := range v {
		out[i] = f / mag
	}
	return out
}

// persisted is the on-disk representation of a collection's metadata.
type persisted struct {
	Dim  int
	Docs map[string]model.VectorDocument
}

func (s *Store) snapshotPath(name identity.CollectionName) string {
	return filepath.Join(s.snapshotDir, string(name)+".gob")
}

// Save persists a single collection atomically (temp file + rename).
func (s *Store) Save(name identity.CollectionName) error {
	if s.snapshotDir == "" {
		return nil
	}
	s.mu.RLock()
	col, ok := s.collections[name]
	if !ok {
		s.mu.RUnlock()
		return nil
	}
	docsCopy := make(map[string]model.VectorDocument, len(col.docs))
	for id, entry := range col.docs {
		docsCopy[id] = entry.doc
	}
	dim := col.dim
	s.mu.RUnlock()

	if err := os.MkdirAll(s.snapshotDir, 0o755); err != nil {
		return errs.Unexpected("FS", "SNAPSHOT_DIR_FAILED", "failed to create local store snapshot directory", errs.ClassNonRetriable, err)
	}
	path := s.snapshotPath(name)
	tmp, err := os.CreateTemp(s.snapshotDir, ".localstore-*.tmp")
	if err != nil {
		return errs.Unexpected("FS", "SNAPSHOT_TEMP_FAILED", "failed to create local store snapshot temp file", errs.ClassNonRetriable, err)
	}
	tmpPath := tmp.Name()
	enc := gob.NewEncoder(tmp)
	if err := enc.Encode(persisted{Dim: dim, Docs: docsCopy}); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errs.Unexpected("FS", "SNAPSHOT_ENCODE_FAILED", "failed to encode local store snapshot", errs.ClassNonRetriable, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errs.Unexpected("FS", "SNAPSHOT_CLOSE_FAILED", "failed to close local store snapshot temp file", errs.ClassNonRetriable, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return errs.Unexpected("FS", "SNAPSHOT_RENAME_FAILED", "failed to replace local store snapshot", errs.ClassNonRetriable, err)
	}
	return nil
}

// Load restores a single collection from its persisted snapshot, if
// present. A missing file is not an error: the collection starts
// empty.
func (s *Store) Load(name identity.CollectionName) error {
	if s.snapshotDir == "" {
		return nil
	}
	path := s.snapshotPath(name)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errs.Unexpected("FS", "SNAPSHOT_OPEN_FAILED", "failed to open local store snapshot", errs.ClassNonRetriable, err)
	}
	defer func() { _ = f.Close() }()

	var data persisted
	dec := gob.NewDecoder(bufio.NewReader(f))
	if err := dec.Decode(&data); err != nil {
		return errs.Unexpected("FS", "SNAPSHOT_DECODE_FAILED", "local store snapshot is corrupt", errs.ClassNonRetriable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	col := newCollection(data.Dim)
	for id, doc := range data.Docs {
		col.docs[id] = docEntry{doc: doc}
		col.graph.Add(hnsw.MakeNode(id, []float32(normalized(doc.Vector))))
	}
	s.collections[name] = col
	return nil
}
