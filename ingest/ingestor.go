package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nocaplabs/claimcheck/ai"
	"github.com/nocaplabs/claimcheck/core"
	"github.com/nocaplabs/claimcheck/corpus"
)

// Status is the outcome class of one ingestion.
type Status string

const (
	// StatusSuccess means new chunks were added to the corpus.
	StatusSuccess Status = "success"

	// StatusDuplicate means the content's fingerprint was already present
	// and the corpus was left untouched.
	StatusDuplicate Status = "duplicate"
)

// Result describes the outcome of one ingestion.
type Result struct {
	Status      Status           `json:"status"`
	Corpus      string           `json:"corpus"`
	Fingerprint core.Fingerprint `json:"fingerprint"`
	ChunksAdded int              `json:"chunks_added"`
}

// Ingestor ingests one piece of content at a time: fingerprint the raw
// content, short-circuit on duplicates, split, embed in batch, insert.
type Ingestor struct {
	splitter *Splitter
	embedder ai.Embedder
	logger   *slog.Logger
}

// IngestorOption is a functional option for configuring an Ingestor.
type IngestorOption func(*Ingestor) error

// WithSplitter replaces the default splitter.
func WithSplitter(splitter *Splitter) IngestorOption {
	return func(in *Ingestor) error {
		if splitter == nil {
			return fmt.Errorf("splitter must not be nil")
		}
		in.splitter = splitter
		return nil
	}
}

// WithLogger sets the logger used by the ingestor.
func WithLogger(logger *slog.Logger) IngestorOption {
	return func(in *Ingestor) error {
		if logger == nil {
			return fmt.Errorf("logger must not be nil")
		}
		in.logger = logger
		return nil
	}
}

// NewIngestor creates an Ingestor using the given embedder.
func NewIngestor(embedder ai.Embedder, opts ...IngestorOption) (*Ingestor, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	in := &Ingestor{embedder: embedder}
	for _, opt := range opts {
		if err := opt(in); err != nil {
			return nil, err
		}
	}
	if in.splitter == nil {
		splitter, err := NewSplitter()
		if err != nil {
			return nil, err
		}
		in.splitter = splitter
	}
	if in.logger == nil {
		in.logger = slog.Default().With("component", "ingestor")
	}
	return in, nil
}

// Ingest adds content to the given corpus store. Content whose
// fingerprint was already ingested returns a duplicate result without
// touching the index; the embedder is not called for duplicates.
func (in *Ingestor) Ingest(ctx context.Context, store *corpus.Store, content string, source core.SourceRef, sessionID string) (*Result, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if content == "" {
		return nil, core.ErrEmptyContent
	}

	fp := core.FingerprintContent(content)
	if store.HasFingerprint(fp) {
		in.logger.Debug("duplicate content skipped", "corpus", store.Name(), "fingerprint", fp)
		return &Result{Status: StatusDuplicate, Corpus: store.Name(), Fingerprint: fp}, nil
	}

	texts := in.splitter.Split(content)
	if len(texts) == 0 {
		return nil, core.ErrEmptyContent
	}

	vectors, err := in.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding chunks: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(texts))
	}

	now := time.Now().UTC()
	chunks := make([]core.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = core.Chunk{
			ChunkID:     fmt.Sprintf("%s_%d", fp, i),
			Content:     text,
			ContentHash: fp,
			Source:      source,
			Index:       i,
			TotalChunks: len(texts),
			CreatedAt:   now,
			SessionID:   sessionID,
		}
	}

	if err := store.Add(chunks, vectors); err != nil {
		// A concurrent ingestion of the same content won the race.
		if errors.Is(err, corpus.ErrDuplicateContent) {
			return &Result{Status: StatusDuplicate, Corpus: store.Name(), Fingerprint: fp}, nil
		}
		return nil, fmt.Errorf("adding chunks: %w", err)
	}

	in.logger.Info("content ingested",
		"corpus", store.Name(), "source", source.String(), "chunks", len(chunks))
	return &Result{
		Status:      StatusSuccess,
		Corpus:      store.Name(),
		Fingerprint: fp,
		ChunksAdded: len(chunks),
	}, nil
}
