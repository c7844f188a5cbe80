package ingest

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/nocaplabs/claimcheck/core"
	"github.com/nocaplabs/claimcheck/corpus"
)

// Item is one unit of bulk ingestion work.
type Item struct {
	Content string
	Source  core.SourceRef
}

// BulkResult aggregates the outcomes of a bulk ingestion run.
type BulkResult struct {
	Succeeded   int `json:"succeeded"`
	Duplicates  int `json:"duplicates"`
	Failed      int `json:"failed"`
	ChunksAdded int `json:"chunks_added"`
}

// Pipeline runs bulk ingestion over a worker pool. Per-item failures
// are counted and logged but never abort the run.
type Pipeline struct {
	ingestor *Ingestor
	pool     *ants.Pool
	logger   *slog.Logger
}

// PipelineOption is a functional option for configuring a Pipeline.
type PipelineOption func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent ingestion.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) PipelineOption {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithPipelineLogger sets the logger used by the pipeline.
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a bulk ingestion pipeline around an Ingestor.
func NewPipeline(ingestor *Ingestor, opts ...PipelineOption) (*Pipeline, error) {
	if ingestor == nil {
		return nil, ErrIngestorRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		ingestor: ingestor,
		pool:     pool,
		logger:   slog.Default().With("component", "ingest-pipeline"),
	}
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	return p, nil
}

// IngestAll ingests every item into the given corpus store and blocks
// until all workers finish.
func (p *Pipeline) IngestAll(ctx context.Context, store *corpus.Store, items []Item) (BulkResult, error) {
	if store == nil {
		return BulkResult{}, ErrStoreRequired
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result BulkResult
	)

	for _, item := range items {
		item := item
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()

			res, err := p.ingestor.Ingest(ctx, store, item.Content, item.Source, "")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				p.logger.Error("bulk ingestion item failed", "source", item.Source.String(), "err", err)
				return
			}
			switch res.Status {
			case StatusDuplicate:
				result.Duplicates++
			default:
				result.Succeeded++
				result.ChunksAdded += res.ChunksAdded
			}
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			result.Failed++
			mu.Unlock()
			p.logger.Error("failed to submit ingestion task", "err", err)
		}
	}

	wg.Wait()
	p.logger.Info("bulk ingestion complete",
		"succeeded", result.Succeeded, "duplicates", result.Duplicates,
		"failed", result.Failed, "chunks", result.ChunksAdded)
	return result, nil
}

// Release releases the worker pool. The pipeline should not be used
// after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
