package core

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Fingerprint is a deterministic hash of raw, pre-chunking content.
// It is the dedup key for corpus ingestion: at most one ingestion of a
// given fingerprint succeeds per corpus.
type Fingerprint string

// FingerprintContent computes the fingerprint of raw content.
// Identical content always yields an identical fingerprint.
func FingerprintContent(content string) Fingerprint {
	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	h.Write([]byte(content))
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// SourceType identifies which cascade stage produced a verification answer.
type SourceType string

const (
	// SourceTypeDB means the answer came from the structured article store.
	SourceTypeDB SourceType = "db"
	// SourceTypeRAG means the answer came from corpus vector retrieval.
	SourceTypeRAG SourceType = "rag"
	// SourceTypeWeb means the answer was generated with live web evidence.
	SourceTypeWeb SourceType = "web"
	// SourceTypeLLM means the answer was generated without external evidence.
	SourceTypeLLM SourceType = "llm"
)

// Verdict is the outcome of a verification request.
type Verdict string

const (
	VerdictFake       Verdict = "fake"
	VerdictMisleading Verdict = "misleading"
	VerdictCredible   Verdict = "credible"
	VerdictMixed      Verdict = "mixed"
	VerdictUnknown    Verdict = "unknown"
)

// verdictTokens maps the literal tokens the generative engine is asked to
// emit to their verdicts. Parsing is best-effort; see ParseVerdict.
var verdictTokens = []struct {
	token   string
	verdict Verdict
}{
	{"MISLEADING", VerdictMisleading},
	{"CREDIBLE", VerdictCredible},
	{"MIXED", VerdictMixed},
	{"FAKE", VerdictFake},
}

// ParseVerdict scans generated text for a literal verdict token.
// When the text contains several tokens, the one appearing first in text
// order wins. Text with no token yields VerdictUnknown.
func ParseVerdict(text string) Verdict {
	upper := strings.ToUpper(text)
	verdict := VerdictUnknown
	best := len(upper) + 1
	for _, vt := range verdictTokens {
		if idx := strings.Index(upper, vt.token); idx >= 0 && idx < best {
			best = idx
			verdict = vt.verdict
		}
	}
	return verdict
}

// SourceRef locates the origin of ingested content: a URL for web content,
// or a document name plus page number for document content.
type SourceRef struct {
	URL      string
	Document string
	Page     int
}

// String renders the reference for logs and evidence listings.
func (r SourceRef) String() string {
	if r.URL != "" {
		return r.URL
	}
	if r.Document != "" {
		return fmt.Sprintf("%s#page=%d", r.Document, r.Page)
	}
	return "unknown"
}

// Chunk is a bounded-size slice of source content, the atomic unit stored
// in a corpus. Chunks are immutable once created.
type Chunk struct {
	ChunkID     string
	Content     string
	ContentHash Fingerprint
	Source      SourceRef
	Index       int
	TotalChunks int
	CreatedAt   time.Time
	SessionID   string
}

// WebResult is a single hit returned by a web search provider.
type WebResult struct {
	Title   string
	URL     string
	Snippet string
}

// Evidence is one record supporting a verification answer.
type Evidence struct {
	Type    string // "database", "rag", "web_search", "llm"
	Title   string
	Ref     string
	Excerpt string
	Score   float64
}

// VerificationResult is the complete outcome of one verification request.
type VerificationResult struct {
	Answer     string
	Confidence int // 0..100
	SourceType SourceType
	Sources    []Evidence
	Verdict    Verdict
	SessionID  string
	CreatedAt  time.Time
}

// Article is a labeled record in the structured store. Label carries the
// dataset's verdict for the claim ("Fake", "Credible", ...).
type Article struct {
	Id         ID
	Title      string
	Body       string
	Label      string
	InsertedAt time.Time
}

// LegacyArticle mirrors the loosely-typed record shapes found in older
// datasets, where the body and label travel under several aliased field
// names. Reconcile folds it into a canonical Article.
type LegacyArticle struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	Text        string `json:"text"`
	ArticleText string `json:"article"`
	Claim       string `json:"claim"`
	Description string `json:"description"`
	Label       string `json:"label"`
	Prediction  string `json:"prediction"`
}

// Reconcile maps a legacy record onto the canonical Article shape,
// taking the first non-empty alias for each field.
func (l *LegacyArticle) Reconcile() (*Article, error) {
	body := firstNonEmpty(l.Text, l.Content, l.ArticleText, l.Claim, l.Description)
	if body == "" {
		return nil, fmt.Errorf("%w: no body field set", ErrInvalidArticle)
	}
	label := firstNonEmpty(l.Label, l.Prediction)
	return &Article{
		Id:    IDFromContent(l.Title + "\x00" + body),
		Title: l.Title,
		Body:  body,
		Label: label,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// HistoryRecord is one completed verification exchange, persisted for
// session history and trending aggregation.
type HistoryRecord struct {
	Id         ID
	SessionID  string
	Question   string
	Answer     string
	SourceType SourceType
	Verdict    Verdict
	Confidence int
	Timestamp  time.Time // when the request completed
	InsertedAt time.Time // when the record was inserted into the database
}

// SessionActivity summarizes one session's use of the verifier. It is
// upserted on every completed request.
type SessionActivity struct {
	SessionID  string
	Requests   int
	LastActive time.Time
}

// Exchange is one question/answer pair held in a session's bounded context.
type Exchange struct {
	Question  string
	Answer    string
	Timestamp time.Time
}
