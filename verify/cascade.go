package verify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/nocaplabs/claimcheck/ai"
	"github.com/nocaplabs/claimcheck/cache"
	"github.com/nocaplabs/claimcheck/core"
	"github.com/nocaplabs/claimcheck/corpus"
	"github.com/nocaplabs/claimcheck/session"
	"github.com/nocaplabs/claimcheck/storage"
	"github.com/nocaplabs/claimcheck/websearch"
)

const (
	// DefaultMaxDistance is the squared-L2 cutoff beyond which corpus
	// hits are considered unrelated to the question.
	DefaultMaxDistance = 100.0

	// retrievalTopK bounds corpus retrieval per question.
	retrievalTopK = 5

	// webResultCount bounds live web evidence per question.
	webResultCount = 5

	// maxStageEvidence bounds the evidence records attached to a result.
	maxStageEvidence = 3
)

// failureAnswer is returned when the generator cannot be reached. It
// deliberately carries no verdict token.
const failureAnswer = "The verification model could not be reached, so no verdict was produced for this claim."

// Cascade resolves questions through the verification stages. It is
// safe for concurrent use.
type Cascade struct {
	articles    storage.ArticleRepository
	history     storage.HistoryRepository
	webCorpus   *corpus.Store
	embedder    ai.Embedder
	generator   ai.Generator
	webSearch   websearch.Provider
	tracker     *session.Tracker
	responses   *cache.ResponseCache
	monitor     CascadeMonitor
	maxDistance float64
	logger      *slog.Logger

	webFailures atomic.Uint64
}

// Option configures a Cascade.
type Option func(*Cascade) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cascade) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// WithMonitor sets the cascade monitor.
func WithMonitor(monitor CascadeMonitor) Option {
	return func(c *Cascade) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		c.monitor = monitor
		return nil
	}
}

// WithWebSearch enables live web evidence gathering. Without a
// provider the cascade simply skips that stage.
func WithWebSearch(provider websearch.Provider) Option {
	return func(c *Cascade) error {
		c.webSearch = provider
		return nil
	}
}

// WithMaxDistance overrides the corpus retrieval distance cutoff.
func WithMaxDistance(maxDistance float64) Option {
	return func(c *Cascade) error {
		if maxDistance <= 0 {
			return fmt.Errorf("max distance must be positive")
		}
		c.maxDistance = maxDistance
		return nil
	}
}

// NewCascade creates a verification cascade.
func NewCascade(
	articles storage.ArticleRepository,
	history storage.HistoryRepository,
	webCorpus *corpus.Store,
	provider ai.Provider,
	tracker *session.Tracker,
	responses *cache.ResponseCache,
	opts ...Option,
) (*Cascade, error) {
	if articles == nil {
		return nil, ErrArticleRepositoryRequired
	}
	if history == nil {
		return nil, ErrHistoryRepositoryRequired
	}
	if webCorpus == nil {
		return nil, ErrCorpusRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}
	if tracker == nil {
		return nil, ErrTrackerRequired
	}
	if responses == nil {
		return nil, ErrCacheRequired
	}

	c := &Cascade{
		articles:    articles,
		history:     history,
		webCorpus:   webCorpus,
		embedder:    provider.Embedder(),
		generator:   provider.Generator(),
		tracker:     tracker,
		responses:   responses,
		monitor:     &noopMonitor{},
		maxDistance: DefaultMaxDistance,
		logger:      slog.Default().With("component", "cascade"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// WebFailureCount returns how many web evidence lookups have failed
// since the cascade was created. Failures never abort a verification;
// this counter is the only trace they leave besides logs.
func (c *Cascade) WebFailureCount() uint64 {
	return c.webFailures.Load()
}

// Verify resolves a question through the cascade. The only error it
// returns is input validation failure; every accepted question yields
// a result.
func (c *Cascade) Verify(ctx context.Context, question, sessionID string) (*core.VerificationResult, error) {
	sanitized, err := core.SanitizeQuestion(question)
	if err != nil {
		return nil, err
	}
	c.monitor.Start(sanitized)

	// Stage 0: response cache. A hit skips the evidence stages but still
	// counts as a completed request: session context, the history log and
	// the session activity record all see it.
	if cached, ok := c.responses.Get(sanitized); ok {
		cached.SessionID = sessionID
		c.monitor.CacheHit(&cached)
		c.tracker.Record(sessionID, sanitized, cached.Answer)
		c.appendHistory(ctx, sanitized, &cached)
		return &cached, nil
	}

	// Web evidence is gathered up front, best effort: it feeds the
	// generative fallback and decides whether that fallback counts as
	// web-grounded or model-only.
	webEvidence := c.gatherWebEvidence(ctx, sanitized)

	result := c.resolve(ctx, sanitized, sessionID, webEvidence)
	result.SessionID = sessionID
	result.CreatedAt = time.Now().UTC()

	c.responses.Put(sanitized, *result)
	c.tracker.Record(sessionID, sanitized, result.Answer)
	c.appendHistory(ctx, sanitized, result)
	c.monitor.Finish(result)
	return result, nil
}

// resolve runs the evidence stages in order and returns the first
// conclusive result.
func (c *Cascade) resolve(ctx context.Context, question, sessionID string, webEvidence []core.Evidence) *core.VerificationResult {
	if result := c.resolveStructured(ctx, question); result != nil {
		return result
	}
	if result := c.resolveRetrieval(ctx, question, sessionID); result != nil {
		return result
	}
	return c.resolveGenerative(ctx, question, webEvidence)
}

// gatherWebEvidence queries the web search provider and converts hits
// into evidence records, reputable domains first. Failures are counted,
// logged and reported to the monitor, never propagated.
func (c *Cascade) gatherWebEvidence(ctx context.Context, question string) []core.Evidence {
	if c.webSearch == nil {
		return nil
	}

	results, err := c.webSearch.Search(ctx, question, webResultCount)
	if err != nil {
		c.webFailures.Add(1)
		c.monitor.WebSearchFailed(err)
		c.logger.Warn("web evidence gathering failed", "err", err, "failures", c.webFailures.Load())
		return nil
	}

	ranked, reputable := rankReputable(results)
	c.monitor.WebEvidenceGathered(ranked, reputable)

	evidence := make([]core.Evidence, 0, len(ranked))
	for _, r := range ranked {
		score := 0.5
		if isReputable(r.URL) {
			score = 1.0
		}
		evidence = append(evidence, core.Evidence{
			Type:    "web_search",
			Title:   r.Title,
			Ref:     r.URL,
			Excerpt: r.Snippet,
			Score:   score,
		})
	}
	return evidence
}

// resolveStructured answers from the curated article store. A lookup
// failure degrades to the next stage rather than failing the request.
func (c *Cascade) resolveStructured(ctx context.Context, question string) *core.VerificationResult {
	articles, err := c.articles.SearchArticles(ctx, question, maxStageEvidence)
	if err != nil {
		c.logger.Warn("structured lookup failed", "err", err)
		return nil
	}
	if len(articles) == 0 {
		return nil
	}

	top := articles[0]
	verdict := verdictFromLabel(top.Label)

	evidence := make([]core.Evidence, 0, len(articles))
	for _, article := range articles {
		evidence = append(evidence, core.Evidence{
			Type:    "database",
			Title:   article.Title,
			Ref:     fmt.Sprintf("article:%d", article.Id),
			Excerpt: excerpt(article.Body),
			Score:   1.0,
		})
	}

	// The database supplies the evidence, the model weighs it. When the
	// model is unreachable or returns no verdict token, the dataset
	// label decides.
	answer, err := c.generator.Generate(ctx, buildEvidencePrompt(question, evidence))
	if err != nil || strings.TrimSpace(answer) == "" {
		c.logger.Error("generation failed", "err", err)
		answer = structuredAnswer(top, verdict)
	} else if parsed := core.ParseVerdict(answer); parsed != core.VerdictUnknown {
		verdict = parsed
	}

	c.monitor.StageResolved(core.SourceTypeDB, len(evidence))
	return &core.VerificationResult{
		Answer:     answer,
		Confidence: confidenceFor(core.SourceTypeDB, len(evidence)),
		SourceType: core.SourceTypeDB,
		Sources:    evidence,
		Verdict:    verdict,
	}
}

// resolveRetrieval answers from corpus vector retrieval over previously
// ingested web content, blending the question with session context.
func (c *Cascade) resolveRetrieval(ctx context.Context, question, sessionID string) *core.VerificationResult {
	blended := c.tracker.Blend(sessionID, question)

	vector, err := c.embedder.EmbedText(ctx, blended)
	if err != nil {
		c.logger.Warn("query embedding failed, skipping retrieval", "err", err)
		return nil
	}

	hits, err := c.webCorpus.Search(vector, retrievalTopK, c.maxDistance)
	if err != nil {
		c.logger.Warn("corpus retrieval failed", "err", err)
		return nil
	}
	if len(hits) == 0 {
		return nil
	}

	evidence := make([]core.Evidence, 0, maxStageEvidence)
	for _, hit := range hits {
		if len(evidence) == maxStageEvidence {
			break
		}
		evidence = append(evidence, core.Evidence{
			Type:    "rag",
			Ref:     hit.Chunk.Source.String(),
			Excerpt: excerpt(hit.Chunk.Content),
			Score:   hit.Similarity,
		})
	}

	answer := c.generate(ctx, buildEvidencePrompt(question, evidence))
	c.monitor.StageResolved(core.SourceTypeRAG, len(evidence))
	return &core.VerificationResult{
		Answer:     answer,
		Confidence: confidenceFor(core.SourceTypeRAG, len(evidence)),
		SourceType: core.SourceTypeRAG,
		Sources:    evidence,
		Verdict:    core.ParseVerdict(answer),
	}
}

// resolveGenerative is the terminal stage: synthesize an answer with
// whatever web evidence was gathered, or from the model alone.
func (c *Cascade) resolveGenerative(ctx context.Context, question string, webEvidence []core.Evidence) *core.VerificationResult {
	source := core.SourceTypeLLM
	var answer string
	if len(webEvidence) > 0 {
		source = core.SourceTypeWeb
		if len(webEvidence) > maxStageEvidence {
			webEvidence = webEvidence[:maxStageEvidence]
		}
		answer = c.generate(ctx, buildEvidencePrompt(question, webEvidence))
	} else {
		answer = c.generate(ctx, buildBarePrompt(question))
	}

	c.monitor.StageResolved(source, len(webEvidence))
	return &core.VerificationResult{
		Answer:     answer,
		Confidence: confidenceFor(source, len(webEvidence)),
		SourceType: source,
		Sources:    webEvidence,
		Verdict:    core.ParseVerdict(answer),
	}
}

// generate calls the generator, mapping failure to a fixed no-verdict
// answer so a dead model never fails a request.
func (c *Cascade) generate(ctx context.Context, prompt string) string {
	answer, err := c.generator.Generate(ctx, prompt)
	if err != nil || strings.TrimSpace(answer) == "" {
		c.logger.Error("generation failed", "err", err)
		return failureAnswer
	}
	return answer
}

// appendHistory persists the completed verification; failures are
// logged, the result already belongs to the caller.
func (c *Cascade) appendHistory(ctx context.Context, question string, result *core.VerificationResult) {
	_, err := c.history.AddRecord(ctx, &core.HistoryRecord{
		SessionID:  result.SessionID,
		Question:   question,
		Answer:     result.Answer,
		SourceType: result.SourceType,
		Verdict:    result.Verdict,
		Confidence: result.Confidence,
		Timestamp:  result.CreatedAt,
	})
	if err != nil {
		c.logger.Error("failed to append history record", "err", err)
	}
}

// verdictFromLabel maps dataset labels onto verdicts.
func verdictFromLabel(label string) core.Verdict {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "fake", "false", "fabricated", "pants-fire":
		return core.VerdictFake
	case "misleading", "partly false", "half-true":
		return core.VerdictMisleading
	case "mixed", "mixture", "unproven":
		return core.VerdictMixed
	case "credible", "true", "real", "correct":
		return core.VerdictCredible
	default:
		return core.VerdictUnknown
	}
}

// structuredAnswer renders a database match as an answer carrying the
// verdict token. Used when the model cannot weigh the evidence itself.
func structuredAnswer(article *core.Article, verdict core.Verdict) string {
	token := strings.ToUpper(string(verdict))
	if verdict == core.VerdictUnknown {
		return fmt.Sprintf("A matching record %q exists in the fact database, but it carries no usable label.", article.Title)
	}
	return fmt.Sprintf("VERDICT: %s. The claim matches the fact database record %q, labeled %q.", token, article.Title, article.Label)
}

// excerpt bounds evidence text for prompts and responses, cutting on a
// rune boundary.
func excerpt(text string) string {
	const maxExcerpt = 300
	text = strings.TrimSpace(text)
	if len(text) <= maxExcerpt {
		return text
	}
	cut := maxExcerpt
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "…"
}
