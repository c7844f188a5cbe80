package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"

	"github.com/nocaplabs/claimcheck/core"
)

// Snapshot layout under the store's dir:
//
//	CURRENT            manifest naming the live snapshot directory
//	<seq>/vectors.mus  the vector blob
//	<seq>/chunks.mus   the chunk metadata blob
//
// Both blobs are written into a fresh sequenced directory, then the
// CURRENT manifest is replaced by an atomic rename. A reader therefore
// always sees a snapshot whose two artifacts were written together; a
// crash mid-write leaves the previous snapshot live.
const (
	currentFile = "CURRENT"
	vectorsFile = "vectors.mus"
	chunksFile  = "chunks.mus"
)

func (s *Store) load() error {
	data, err := os.ReadFile(filepath.Join(s.dir, currentFile))
	if os.IsNotExist(err) {
		return nil // nothing persisted yet
	}
	if err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}

	snapName := strings.TrimSpace(string(data))
	seq, err := strconv.ParseUint(snapName, 10, 64)
	if err != nil {
		return fmt.Errorf("parsing manifest %q: %w", snapName, err)
	}
	snapDir := filepath.Join(s.dir, snapName)

	vecData, err := os.ReadFile(filepath.Join(snapDir, vectorsFile))
	if err != nil {
		return fmt.Errorf("reading vector blob: %w", err)
	}
	vectors, err := decodeVectors(vecData, s.dim)
	if err != nil {
		return fmt.Errorf("decoding vector blob: %w", err)
	}

	chunkData, err := os.ReadFile(filepath.Join(snapDir, chunksFile))
	if err != nil {
		return fmt.Errorf("reading chunk blob: %w", err)
	}
	chunks, err := decodeChunks(chunkData)
	if err != nil {
		return fmt.Errorf("decoding chunk blob: %w", err)
	}

	if len(vectors) != len(chunks) {
		return fmt.Errorf("snapshot mismatch: %d vectors, %d chunks", len(vectors), len(chunks))
	}

	s.vectors = vectors
	s.chunks = chunks
	s.prints = make(map[core.Fingerprint]struct{}, len(chunks))
	for _, chunk := range chunks {
		if chunk.ContentHash != "" {
			s.prints[chunk.ContentHash] = struct{}{}
		}
	}
	s.seq = seq
	return nil
}

// persistLocked writes a new snapshot and commits it. Callers must hold
// the write lock.
func (s *Store) persistLocked() error {
	seq := s.seq + 1
	snapName := fmt.Sprintf("%08d", seq)
	snapDir := filepath.Join(s.dir, snapName)

	if err := os.MkdirAll(snapDir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}

	if err := os.WriteFile(filepath.Join(snapDir, vectorsFile), encodeVectors(s.vectors, s.dim), 0o644); err != nil {
		os.RemoveAll(snapDir)
		return fmt.Errorf("writing vector blob: %w", err)
	}
	if err := os.WriteFile(filepath.Join(snapDir, chunksFile), encodeChunks(s.chunks), 0o644); err != nil {
		os.RemoveAll(snapDir)
		return fmt.Errorf("writing chunk blob: %w", err)
	}

	// Commit: the rename of the manifest is the transaction point.
	tmp := filepath.Join(s.dir, currentFile+".tmp")
	if err := os.WriteFile(tmp, []byte(snapName+"\n"), 0o644); err != nil {
		os.RemoveAll(snapDir)
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, currentFile)); err != nil {
		os.RemoveAll(snapDir)
		return fmt.Errorf("committing manifest: %w", err)
	}

	if s.seq > 0 {
		old := filepath.Join(s.dir, fmt.Sprintf("%08d", s.seq))
		if err := os.RemoveAll(old); err != nil {
			s.logger.Warn("failed to remove old snapshot", "dir", old, "err", err)
		}
	}
	s.seq = seq
	return nil
}

func encodeVectors(vectors [][]float32, dim int) []byte {
	size := varint.Int.Size(len(vectors)) + varint.Int.Size(dim)
	for _, vec := range vectors {
		for _, v := range vec {
			size += raw.Float32.Size(v)
		}
	}

	bs := make([]byte, size)
	n := varint.Int.Marshal(len(vectors), bs)
	n += varint.Int.Marshal(dim, bs[n:])
	for _, vec := range vectors {
		for _, v := range vec {
			n += raw.Float32.Marshal(v, bs[n:])
		}
	}
	return bs
}

func decodeVectors(bs []byte, wantDim int) ([][]float32, error) {
	count, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, err
	}
	dim, n1, err := varint.Int.Unmarshal(bs[n:])
	if err != nil {
		return nil, err
	}
	n += n1
	if count < 0 || dim != wantDim {
		return nil, fmt.Errorf("%w: snapshot dimension %d, want %d", ErrDimensionMismatch, dim, wantDim)
	}

	vectors := make([][]float32, 0, count)
	for i := 0; i < count; i++ {
		vec := make([]float32, dim)
		for j := 0; j < dim; j++ {
			v, n1, err := raw.Float32.Unmarshal(bs[n:])
			if err != nil {
				return nil, err
			}
			vec[j] = v
			n += n1
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}

func encodeChunks(chunks []core.Chunk) []byte {
	size := varint.Int.Size(len(chunks))
	for _, chunk := range chunks {
		size += core.ChunkMUS.Size(chunk)
	}

	bs := make([]byte, size)
	n := varint.Int.Marshal(len(chunks), bs)
	for _, chunk := range chunks {
		n += core.ChunkMUS.Marshal(chunk, bs[n:])
	}
	return bs
}

func decodeChunks(bs []byte) ([]core.Chunk, error) {
	count, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("negative chunk count %d", count)
	}

	chunks := make([]core.Chunk, 0, count)
	for i := 0; i < count; i++ {
		chunk, n1, err := core.ChunkMUS.Unmarshal(bs[n:])
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
		n += n1
	}
	return chunks, nil
}
