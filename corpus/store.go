package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/nocaplabs/claimcheck/ai"
	"github.com/nocaplabs/claimcheck/core"
)

// reembedBatchSize bounds how many chunks are sent to the embedder at once.
const reembedBatchSize = 32

// Store is a flat vector index over one corpus. Vectors and chunk
// metadata live in parallel slices guarded by a single RWMutex: reads
// (Search, Stats, HasFingerprint) take the read lock, Add and Reembed
// take the write lock, so the index and its metadata can never be
// observed out of step.
type Store struct {
	name   string
	dim    int
	dir    string
	logger *slog.Logger

	mu      sync.RWMutex
	vectors [][]float32
	chunks  []core.Chunk
	prints  map[core.Fingerprint]struct{}
	seq     uint64
}

// Option is a functional option for configuring a Store.
type Option func(*Store) error

// WithDir enables snapshot persistence rooted at dir. Without it the
// store is memory-only.
func WithDir(dir string) Option {
	return func(s *Store) error {
		s.dir = dir
		return nil
	}
}

// WithLogger sets the logger used by the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			return fmt.Errorf("logger must not be nil")
		}
		s.logger = logger
		return nil
	}
}

// New creates a Store for the named corpus with the given embedding
// dimension. If persistence is enabled and a snapshot exists on disk it
// is loaded; a missing or corrupt snapshot is logged and the store
// starts empty rather than failing.
func New(name string, dim int, opts ...Option) (*Store, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	if dim < 1 {
		return nil, ErrInvalidDimension
	}

	s := &Store{
		name:   name,
		dim:    dim,
		prints: make(map[core.Fingerprint]struct{}),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.logger == nil {
		s.logger = slog.Default().With("component", "corpus", "corpus", name)
	}

	if s.dir != "" {
		if err := s.load(); err != nil {
			s.logger.Warn("snapshot load failed, starting with empty index", "err", err)
			s.vectors = nil
			s.chunks = nil
			s.prints = make(map[core.Fingerprint]struct{})
		}
	}

	s.logger.Info("corpus store ready", "chunks", len(s.chunks), "dimension", dim)
	return s, nil
}

// SearchResult is one nearest-neighbor hit.
type SearchResult struct {
	Chunk core.Chunk

	// Distance is the squared L2 distance between query and hit.
	Distance float64

	// Similarity is 1/(1+Distance), a monotone rescaling of distance
	// into (0, 1] where higher means closer.
	Similarity float64
}

// Stats describes the current state of a store.
type Stats struct {
	Name         string `json:"name"`
	Chunks       int    `json:"chunks"`
	Fingerprints int    `json:"fingerprints"`
	Dimension    int    `json:"dimension"`
}

// Name returns the corpus name.
func (s *Store) Name() string {
	return s.name
}

// Dimension returns the embedding dimension the store accepts.
func (s *Store) Dimension() int {
	return s.dim
}

// Add appends chunks and their vectors to the index as one atomic unit:
// after a successful Add both artifacts reflect the insert, and after a
// failed Add neither does. Chunks sharing an already-ingested
// fingerprint are rejected with ErrDuplicateContent, which makes the
// fingerprint check race-free for concurrent ingestions of identical
// content.
func (s *Store) Add(chunks []core.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks, %d vectors", ErrLengthMismatch, len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}
	for i, vec := range vectors {
		if len(vec) != s.dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(vec), s.dim)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := make(map[core.Fingerprint]struct{})
	for _, chunk := range chunks {
		if chunk.ContentHash == "" {
			continue
		}
		if _, ok := s.prints[chunk.ContentHash]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateContent, chunk.ContentHash)
		}
		fresh[chunk.ContentHash] = struct{}{}
	}

	prevVectors := len(s.vectors)
	prevChunks := len(s.chunks)
	s.vectors = append(s.vectors, vectors...)
	s.chunks = append(s.chunks, chunks...)
	for fp := range fresh {
		s.prints[fp] = struct{}{}
	}

	if s.dir != "" {
		if err := s.persistLocked(); err != nil {
			// Roll back the in-memory append so memory and disk agree.
			s.vectors = s.vectors[:prevVectors]
			s.chunks = s.chunks[:prevChunks]
			for fp := range fresh {
				delete(s.prints, fp)
			}
			return fmt.Errorf("persisting snapshot: %w", err)
		}
	}

	s.logger.Debug("chunks added", "count", len(chunks), "total", len(s.chunks))
	return nil
}

// Search returns up to topK chunks nearest to the query vector by
// squared L2 distance, ascending, excluding hits farther than
// maxDistance. Searching an empty store returns no results.
func (s *Store) Search(query []float32, topK int, maxDistance float64) ([]SearchResult, error) {
	if len(query) != s.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, want %d", ErrDimensionMismatch, len(query), s.dim)
	}
	if topK < 1 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]SearchResult, 0, topK)
	for i, vec := range s.vectors {
		d := squaredL2(query, vec)
		if d > maxDistance {
			continue
		}
		results = append(results, SearchResult{
			Chunk:      s.chunks[i],
			Distance:   d,
			Similarity: 1.0 / (1.0 + d),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// HasFingerprint reports whether content with the given fingerprint has
// already been ingested into this corpus.
func (s *Store) HasFingerprint(fp core.Fingerprint) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.prints[fp]
	return ok
}

// Stats returns the current index statistics.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Name:         s.name,
		Chunks:       len(s.chunks),
		Fingerprints: len(s.prints),
		Dimension:    s.dim,
	}
}

// Reembed regenerates every vector in the index from its chunk content
// using the given embedder, then persists a fresh snapshot. It is used
// after an embedding model change. The store is write-locked for the
// duration, so searches block until reembedding completes.
func (s *Store) Reembed(ctx context.Context, embedder ai.Embedder) error {
	if embedder == nil {
		return ErrEmbedderRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.chunks) == 0 {
		return nil
	}
	s.logger.Info("reembedding corpus", "chunks", len(s.chunks))

	vectors := make([][]float32, 0, len(s.chunks))
	for start := 0; start < len(s.chunks); start += reembedBatchSize {
		end := min(start+reembedBatchSize, len(s.chunks))
		texts := make([]string, 0, end-start)
		for _, chunk := range s.chunks[start:end] {
			texts = append(texts, chunk.Content)
		}

		batch, err := embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding batch at %d: %w", start, err)
		}
		if len(batch) != len(texts) {
			return fmt.Errorf("embedder returned %d vectors for %d texts", len(batch), len(texts))
		}
		for i, vec := range batch {
			if len(vec) != s.dim {
				return fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, start+i, len(vec), s.dim)
			}
		}
		vectors = append(vectors, batch...)
	}

	prev := s.vectors
	s.vectors = vectors
	if s.dir != "" {
		if err := s.persistLocked(); err != nil {
			s.vectors = prev
			return fmt.Errorf("persisting snapshot: %w", err)
		}
	}

	s.logger.Info("reembedding complete", "chunks", len(s.chunks))
	return nil
}

// Close persists a final snapshot when persistence is enabled.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir == "" {
		return nil
	}
	if err := s.persistLocked(); err != nil {
		return fmt.Errorf("persisting final snapshot: %w", err)
	}
	return nil
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
