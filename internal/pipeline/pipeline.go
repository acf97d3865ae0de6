// Package pipeline implements the indexing pipeline (C10): a staged,
// bounded-concurrency dataflow scan -> split -> embed -> insert, with
// backpressure from fixed-capacity channels and progress reporting.
package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/kodesearch/semcode/internal/errs"
	"github.com/kodesearch/semcode/internal/identity"
	"github.com/kodesearch/semcode/internal/model"
	"github.com/kodesearch/semcode/internal/reqctx"
	"github.com/kodesearch/semcode/internal/splitter"
	"github.com/kodesearch/semcode/internal/telemetry"
	"github.com/kodesearch/semcode/internal/vectorstore"
)

// Embedder is the pipeline's view of C8's resilient embedding wrapper.
type Embedder interface {
	Dimension() int
	EmbedBatch(rc *reqctx.RequestContext, texts []string) ([]model.EmbeddingVector, error)
}

// Splitter is the pipeline's view of C6's splitter port.
type Splitter interface {
	Split(ctx context.Context, code string, language model.Language, opts splitter.Options) ([]model.CodeChunk, error)
}

// Deps are the pipeline's collaborators.
type Deps struct {
	Embedder     Embedder
	Store        vectorstore.Store
	Splitter     Splitter
	SplitOptions splitter.Options
	Telemetry    telemetry.Sink

	// OnDocumentInserted, if set, is called once per document after it
	// has been successfully inserted, so callers (e.g. the reindex use
	// case) can maintain a relativePath -> chunkIds side index without
	// the vector store needing an enumerate-by-path capability.
	OnDocumentInserted func(relativePath, chunkID string)
}

// IndexCodebaseInput is the request to run one indexing pass.
type IndexCodebaseInput struct {
	CodebaseRoot        string
	CollectionName      identity.CollectionName
	IndexMode           identity.IndexMode
	SupportedExtensions []string // nil/empty accepts any extension
	IgnorePatterns      []string
	FileList            []string // explicit files, bypassing directory walk
	ForceReindex        bool

	EmbeddingBatchSize int // >= 1
	ChunkLimit         int // >= 1, max chunks retained per file

	MaxFiles         *int
	MaxFileSizeBytes *int64

	MaxBufferedChunks           int
	MaxBufferedEmbeddings       int
	MaxInFlightFiles            int
	MaxInFlightEmbeddingBatches int
	MaxInFlightInserts          int

	OnProgress OnProgress
}

func (in *IndexCodebaseInput) normalize() {
	if in.EmbeddingBatchSize < 1 {
		in.EmbeddingBatchSize = 32
	}
	if in.ChunkLimit < 1 {
		in.ChunkLimit = 10_000
	}
	if in.MaxBufferedChunks < 1 {
		in.MaxBufferedChunks = 256
	}
	if in.MaxBufferedEmbeddings < 1 {
		in.MaxBufferedEmbeddings = 64
	}
	if in.MaxInFlightFiles < 1 {
		in.MaxInFlightFiles = 8
	}
	if in.MaxInFlightEmbeddingBatches < 1 {
		in.MaxInFlightEmbeddingBatches = 4
	}
	if in.MaxInFlightInserts < 1 {
		in.MaxInFlightInserts = 4
	}
}

// FinalStatus is the terminal outcome of one IndexCodebase run.
type FinalStatus string

const (
	FinalCompleted    FinalStatus = "Completed"
	FinalLimitReached FinalStatus = "LimitReached"
	FinalCancelled    FinalStatus = "Cancelled"
)

// IndexCodebaseOutput summarizes one run's outcome and per-stage counts.
type IndexCodebaseOutput struct {
	Status FinalStatus
	Scan   StageStats
	Split  StageStats
	Embed  StageStats
	Insert StageStats
}

type fileTask struct {
	relPath string
	absPath string
}

type chunkTask struct {
	relPath  string
	language model.Language
	ext      string
	chunk    model.CodeChunk
}

type embeddedRecord struct {
	doc model.VectorDocument
}

type embeddedBatch struct {
	records []embeddedRecord
}

// IndexCodebase runs one scan/split/embed/insert pass against
// input.CodebaseRoot, writing into input.CollectionName.
func IndexCodebase(rc *reqctx.RequestContext, deps Deps, input IndexCodebaseInput) (IndexCodebaseOutput, error) {
	input.normalize()
	if deps.Telemetry == nil {
		deps.Telemetry = telemetry.NopSink{}
	}
	reportStatus(input.OnProgress, StatusIndexing)

	if err := rc.EnsureNotCancelled("pipeline.IndexCodebase"); err != nil {
		reportStatus(input.OnProgress, StatusFailed)
		return IndexCodebaseOutput{Status: FinalCancelled}, err
	}

	if input.ForceReindex {
		if err := deps.Store.DropCollection(rc, input.CollectionName); err != nil {
			reportStatus(input.OnProgress, StatusFailed)
			return IndexCodebaseOutput{}, err
		}
	}
	if err := deps.Store.CreateCollection(rc, input.CollectionName, deps.Embedder.Dimension(), vectorstore.IndexConfig{}); err != nil {
		reportStatus(input.OnProgress, StatusFailed)
		return IndexCodebaseOutput{}, err
	}

	scanStats := &stageCounters{}
	splitStats := &stageCounters{}
	embedStats := &stageCounters{}
	insertStats := &stageCounters{}

	filesCh := make(chan fileTask, input.MaxInFlightFiles)
	chunksCh := make(chan chunkTask, input.MaxBufferedChunks)
	embeddingsCh := make(chan embeddedBatch, input.MaxBufferedEmbeddings)

	g, ctx := errgroup.WithContext(rc.Context())
	stageRC := rc.Derive(ctx)
	limitReached := newFlag()

	g.Go(func() error {
		defer close(filesCh)
		return runScan(ctx, stageRC, deps, input, filesCh, scanStats, limitReached)
	})
	g.Go(func() error {
		defer close(chunksCh)
		return runSplit(ctx, stageRC, deps, input, filesCh, chunksCh, splitStats)
	})
	g.Go(func() error {
		defer close(embeddingsCh)
		return runEmbed(ctx, stageRC, deps, input, chunksCh, embeddingsCh, embedStats)
	})
	g.Go(func() error {
		return runInsert(ctx, stageRC, deps, input, embeddingsCh, insertStats)
	})

	waitErr := g.Wait()

	status := FinalCompleted
	switch {
	case errs.IsCancelled(waitErr):
		status = FinalCancelled
		reportStatus(input.OnProgress, StatusFailed)
	case limitReached.get():
		status = FinalLimitReached
		reportStatus(input.OnProgress, StatusLimitReached)
	case waitErr != nil:
		reportStatus(input.OnProgress, StatusFailed)
	default:
		reportStatus(input.OnProgress, StatusIndexed)
	}

	output := IndexCodebaseOutput{
		Status: status,
		Scan:   scanStats.snapshot(),
		Split:  splitStats.snapshot(),
		Embed:  embedStats.snapshot(),
		Insert: insertStats.snapshot(),
	}
	if status == FinalCancelled {
		return output, waitErr
	}
	if waitErr != nil && status == FinalCompleted {
		return output, waitErr
	}
	return output, nil
}

// flag is a tiny concurrency-safe boolean, used for the single
// scan-hit-maxFiles transition.
type flag struct{ ch chan struct{} }

func newFlag() *flag { return &flag{ch: make(chan struct{})} }

func (f *flag) set() {
	select {
	case <-f.ch:
	default:
		close(f.ch)
	}
}

func (f *flag) get() bool {
	select {
	case <-f.ch:
		return true
	default:
		return false
	}
}
