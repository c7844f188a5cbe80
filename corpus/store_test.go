package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocaplabs/claimcheck/ai/mock"
	"github.com/nocaplabs/claimcheck/core"
)

const testDim = 4

func testChunk(content string) core.Chunk {
	return core.Chunk{
		ChunkID:     content + "_0",
		Content:     content,
		ContentHash: core.FingerprintContent(content),
		Source:      core.SourceRef{URL: "https://example.com/" + content},
		Index:       0,
		TotalChunks: 1,
		CreatedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNew(t *testing.T) {
	t.Run("valid store", func(t *testing.T) {
		store, err := New("web", testDim)
		require.NoError(t, err)
		assert.Equal(t, "web", store.Name())
		assert.Equal(t, testDim, store.Dimension())
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := New("", testDim)
		assert.ErrorIs(t, err, ErrNameRequired)
	})

	t.Run("invalid dimension", func(t *testing.T) {
		_, err := New("web", 0)
		assert.ErrorIs(t, err, ErrInvalidDimension)
	})

	t.Run("nil logger option", func(t *testing.T) {
		_, err := New("web", testDim, WithLogger(nil))
		assert.Error(t, err)
	})
}

func TestStore_Add(t *testing.T) {
	t.Run("adds chunks and vectors", func(t *testing.T) {
		store, err := New("web", testDim)
		require.NoError(t, err)

		chunks := []core.Chunk{testChunk("alpha"), testChunk("beta")}
		vectors := [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}}
		require.NoError(t, store.Add(chunks, vectors))

		stats := store.Stats()
		assert.Equal(t, 2, stats.Chunks)
		assert.Equal(t, testDim, stats.Dimension)
	})

	t.Run("length mismatch", func(t *testing.T) {
		store, err := New("web", testDim)
		require.NoError(t, err)

		err = store.Add([]core.Chunk{testChunk("alpha")}, nil)
		assert.ErrorIs(t, err, ErrLengthMismatch)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		store, err := New("web", testDim)
		require.NoError(t, err)

		err = store.Add([]core.Chunk{testChunk("alpha")}, [][]float32{{1, 0}})
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("duplicate fingerprint rejected", func(t *testing.T) {
		store, err := New("web", testDim)
		require.NoError(t, err)

		chunks := []core.Chunk{testChunk("alpha")}
		vectors := [][]float32{{1, 0, 0, 0}}
		require.NoError(t, store.Add(chunks, vectors))

		err = store.Add(chunks, vectors)
		assert.ErrorIs(t, err, ErrDuplicateContent)
		assert.Equal(t, 1, store.Stats().Chunks)
	})

	t.Run("empty add is a no-op", func(t *testing.T) {
		store, err := New("web", testDim)
		require.NoError(t, err)
		require.NoError(t, store.Add(nil, nil))
		assert.Equal(t, 0, store.Stats().Chunks)
	})
}

func TestStore_Search(t *testing.T) {
	store, err := New("web", testDim)
	require.NoError(t, err)

	chunks := []core.Chunk{testChunk("near"), testChunk("mid"), testChunk("far")}
	vectors := [][]float32{
		{1, 0, 0, 0},
		{2, 0, 0, 0},
		{9, 0, 0, 0},
	}
	require.NoError(t, store.Add(chunks, vectors))

	query := []float32{1, 0, 0, 0}

	t.Run("ascending by distance", func(t *testing.T) {
		results, err := store.Search(query, 5, 1000)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "near", results[0].Chunk.Content)
		assert.Equal(t, "mid", results[1].Chunk.Content)
		assert.Equal(t, "far", results[2].Chunk.Content)
		assert.LessOrEqual(t, results[0].Distance, results[1].Distance)
	})

	t.Run("similarity is monotone in distance", func(t *testing.T) {
		results, err := store.Search(query, 5, 1000)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, results[0].Similarity, 1e-9) // exact match
		assert.Greater(t, results[0].Similarity, results[1].Similarity)
	})

	t.Run("max distance filters", func(t *testing.T) {
		results, err := store.Search(query, 5, 2.0)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "near", results[0].Chunk.Content)
	})

	t.Run("topK bounds result count", func(t *testing.T) {
		results, err := store.Search(query, 1, 1000)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("query dimension mismatch", func(t *testing.T) {
		_, err := store.Search([]float32{1, 0}, 5, 1000)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("empty store returns no results", func(t *testing.T) {
		empty, err := New("web", testDim)
		require.NoError(t, err)
		results, err := empty.Search(query, 5, 1000)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestStore_HasFingerprint(t *testing.T) {
	store, err := New("web", testDim)
	require.NoError(t, err)

	require.NoError(t, store.Add([]core.Chunk{testChunk("alpha")}, [][]float32{{1, 0, 0, 0}}))

	assert.True(t, store.HasFingerprint(core.FingerprintContent("alpha")))
	assert.False(t, store.HasFingerprint(core.FingerprintContent("beta")))
}

func TestStore_Persistence(t *testing.T) {
	t.Run("round trip through snapshot", func(t *testing.T) {
		dir := t.TempDir()

		store, err := New("web", testDim, WithDir(dir))
		require.NoError(t, err)

		chunks := []core.Chunk{testChunk("alpha"), testChunk("beta")}
		vectors := [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}}
		require.NoError(t, store.Add(chunks, vectors))
		require.NoError(t, store.Close())

		reopened, err := New("web", testDim, WithDir(dir))
		require.NoError(t, err)

		stats := reopened.Stats()
		assert.Equal(t, 2, stats.Chunks)
		assert.True(t, reopened.HasFingerprint(core.FingerprintContent("alpha")))

		results, err := reopened.Search([]float32{1, 0, 0, 0}, 1, 1000)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "alpha", results[0].Chunk.Content)
	})

	t.Run("every add is durable", func(t *testing.T) {
		dir := t.TempDir()

		store, err := New("web", testDim, WithDir(dir))
		require.NoError(t, err)
		require.NoError(t, store.Add([]core.Chunk{testChunk("alpha")}, [][]float32{{1, 0, 0, 0}}))

		// Reopen without Close: the snapshot from Add must be live.
		reopened, err := New("web", testDim, WithDir(dir))
		require.NoError(t, err)
		assert.Equal(t, 1, reopened.Stats().Chunks)
	})

	t.Run("corrupt snapshot falls back to empty index", func(t *testing.T) {
		dir := t.TempDir()

		store, err := New("web", testDim, WithDir(dir))
		require.NoError(t, err)
		require.NoError(t, store.Add([]core.Chunk{testChunk("alpha")}, [][]float32{{1, 0, 0, 0}}))

		// Corrupt the live vector blob.
		data, err := os.ReadFile(filepath.Join(dir, "CURRENT"))
		require.NoError(t, err)
		snapDir := filepath.Join(dir, string(data[:8]))
		require.NoError(t, os.WriteFile(filepath.Join(snapDir, "vectors.mus"), []byte("garbage"), 0o644))

		reopened, err := New("web", testDim, WithDir(dir))
		require.NoError(t, err)
		assert.Equal(t, 0, reopened.Stats().Chunks)
	})

	t.Run("missing dir starts empty", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "does-not-exist-yet")

		store, err := New("web", testDim, WithDir(dir))
		require.NoError(t, err)
		assert.Equal(t, 0, store.Stats().Chunks)

		// And persistence still works once the first add happens.
		require.NoError(t, store.Add([]core.Chunk{testChunk("alpha")}, [][]float32{{1, 0, 0, 0}}))
	})
}

func TestStore_Reembed(t *testing.T) {
	t.Run("replaces vectors", func(t *testing.T) {
		store, err := New("web", testDim)
		require.NoError(t, err)

		require.NoError(t, store.Add(
			[]core.Chunk{testChunk("alpha"), testChunk("beta")},
			[][]float32{{9, 9, 9, 9}, {8, 8, 8, 8}},
		))

		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			out := make([][]float32, len(texts))
			for i := range texts {
				out[i] = []float32{0, 0, 0, 0}
			}
			return out, nil
		}

		require.NoError(t, store.Reembed(context.Background(), embedder))

		results, err := store.Search([]float32{0, 0, 0, 0}, 5, 0.5)
		require.NoError(t, err)
		assert.Len(t, results, 2) // both vectors now sit at the origin
	})

	t.Run("nil embedder", func(t *testing.T) {
		store, err := New("web", testDim)
		require.NoError(t, err)
		assert.ErrorIs(t, store.Reembed(context.Background(), nil), ErrEmbedderRequired)
	})

	t.Run("embedder failure keeps old vectors", func(t *testing.T) {
		store, err := New("web", testDim)
		require.NoError(t, err)
		require.NoError(t, store.Add([]core.Chunk{testChunk("alpha")}, [][]float32{{1, 0, 0, 0}}))

		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, fmt.Errorf("embedding service down")
		}

		require.Error(t, store.Reembed(context.Background(), embedder))

		results, err := store.Search([]float32{1, 0, 0, 0}, 1, 0.5)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})
}
