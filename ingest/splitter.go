package ingest

import "strings"

const (
	// DefaultChunkSize is the maximum chunk length in bytes.
	DefaultChunkSize = 1000

	// DefaultOverlap is the maximum number of bytes carried from the end
	// of one chunk into the start of the next.
	DefaultOverlap = 200
)

// defaultSeparators orders the split boundaries from coarse to fine:
// paragraph, line, sentence, word. A piece that fits under no separator
// is atomic and is kept whole even when oversized.
var defaultSeparators = []string{"\n\n", "\n", ". ", " "}

// Splitter breaks text into chunks of bounded size along natural
// boundaries. Separator text stays attached to the preceding piece, so
// the concatenation of a chunking's non-overlap content reconstructs
// the source text exactly.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// SplitterOption is a functional option for configuring a Splitter.
type SplitterOption func(*Splitter)

// WithChunkSize sets the maximum chunk length.
func WithChunkSize(size int) SplitterOption {
	return func(s *Splitter) {
		s.chunkSize = size
	}
}

// WithOverlap sets the maximum inter-chunk overlap length.
func WithOverlap(overlap int) SplitterOption {
	return func(s *Splitter) {
		s.overlap = overlap
	}
}

// NewSplitter creates a Splitter with the default size and overlap
// unless overridden by options.
func NewSplitter(opts ...SplitterOption) (*Splitter, error) {
	s := &Splitter{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultOverlap,
		separators: defaultSeparators,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.chunkSize < 1 || s.overlap < 0 || s.overlap >= s.chunkSize {
		return nil, ErrInvalidSplit
	}
	return s, nil
}

// Split breaks text into chunks. Empty or whitespace-only text yields
// no chunks.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.pack(s.pieces(text, 0))
}

// pieces recursively breaks text along the separator hierarchy until
// every piece fits the chunk size or is atomic at the finest level.
func (s *Splitter) pieces(text string, level int) []string {
	if len(text) <= s.chunkSize || level >= len(s.separators) {
		return []string{text}
	}

	parts := strings.SplitAfter(text, s.separators[level])
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		if len(part) > s.chunkSize {
			out = append(out, s.pieces(part, level+1)...)
		} else {
			out = append(out, part)
		}
	}
	return out
}

// pack greedily fills chunks with consecutive pieces, carrying up to
// overlap bytes of trailing pieces into the next chunk. An atomic piece
// larger than the chunk size becomes a chunk of its own.
func (s *Splitter) pack(pieces []string) []string {
	var (
		chunks []string
		cur    []string
		curLen int
	)

	flush := func() {
		if curLen == 0 {
			return
		}
		chunks = append(chunks, strings.Join(cur, ""))

		var keep []string
		keepLen := 0
		for i := len(cur) - 1; i >= 0; i-- {
			if keepLen+len(cur[i]) > s.overlap {
				break
			}
			keep = append([]string{cur[i]}, keep...)
			keepLen += len(cur[i])
		}
		cur = keep
		curLen = keepLen
	}

	for _, piece := range pieces {
		if len(piece) > s.chunkSize {
			// Oversized atomic piece: emit as its own chunk.
			flush()
			chunks = append(chunks, piece)
			cur = nil
			curLen = 0
			continue
		}
		if curLen > 0 && curLen+len(piece) > s.chunkSize {
			flush()
			// Drop carried overlap that would push the new chunk oversize.
			for curLen > 0 && curLen+len(piece) > s.chunkSize {
				curLen -= len(cur[0])
				cur = cur[1:]
			}
		}
		cur = append(cur, piece)
		curLen += len(piece)
	}
	if curLen > 0 {
		chunks = append(chunks, strings.Join(cur, ""))
	}
	return chunks
}
