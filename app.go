package claimcheck

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/nocaplabs/claimcheck/ai"
	"github.com/nocaplabs/claimcheck/ai/openai"
	"github.com/nocaplabs/claimcheck/cache"
	"github.com/nocaplabs/claimcheck/core"
	"github.com/nocaplabs/claimcheck/corpus"
	"github.com/nocaplabs/claimcheck/ingest"
	"github.com/nocaplabs/claimcheck/session"
	"github.com/nocaplabs/claimcheck/storage"
	"github.com/nocaplabs/claimcheck/storage/badger"
	"github.com/nocaplabs/claimcheck/verify"
	"github.com/nocaplabs/claimcheck/websearch"
)

// Corpus names used by the application.
const (
	WebCorpusName      = "web"
	DocumentCorpusName = "document"
)

// App wires storage, corpora, AI services and the verification cascade
// into one fact-checking application.
type App struct {
	backend     *badger.Backend
	articleRepo storage.ArticleRepository
	historyRepo storage.HistoryRepository
	webCorpus   *corpus.Store
	docCorpus   *corpus.Store
	provider    ai.Provider
	tracker     *session.Tracker
	responses   *cache.ResponseCache
	ingestor    *ingest.Ingestor
	cascade     *verify.Cascade
	logger      *slog.Logger
}

// AppOption configures an App.
type AppOption func(*appOptions)

type appOptions struct {
	aiConfig  *ai.Config
	provider  ai.Provider
	webSearch websearch.Provider
	cacheOpts []cache.Option
}

// WithAIConfig sets the AI service configuration.
func WithAIConfig(config *ai.Config) AppOption {
	return func(o *appOptions) {
		o.aiConfig = config
	}
}

// WithProvider injects a pre-built AI provider instead of constructing
// one from the AI config. Used by tests to inject mocks.
func WithProvider(provider ai.Provider) AppOption {
	return func(o *appOptions) {
		o.provider = provider
	}
}

// WithWebSearch enables live web evidence gathering.
func WithWebSearch(provider websearch.Provider) AppOption {
	return func(o *appOptions) {
		o.webSearch = provider
	}
}

// WithCacheOptions forwards options to the response cache.
func WithCacheOptions(opts ...cache.Option) AppOption {
	return func(o *appOptions) {
		o.cacheOpts = append(o.cacheOpts, opts...)
	}
}

// NewApp creates the application rooted at dataDir. An empty dataDir
// keeps everything in memory, which is what tests use.
func NewApp(dataDir string, opts ...AppOption) (*App, error) {
	options := &appOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	inMemory := dataDir == ""
	dbPath := ""
	if !inMemory {
		dbPath = filepath.Join(dataDir, "db")
	}

	backend, err := badger.OpenBackend(dbPath, inMemory)
	if err != nil {
		return nil, err
	}

	articleRepo, err := badger.NewArticleRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	historyRepo, err := badger.NewHistoryRepository(backend)
	if err != nil {
		articleRepo.Close()
		backend.Close()
		return nil, err
	}

	var corpusOpts [][]corpus.Option
	if inMemory {
		corpusOpts = [][]corpus.Option{nil, nil}
	} else {
		corpusOpts = [][]corpus.Option{
			{corpus.WithDir(filepath.Join(dataDir, "corpus", WebCorpusName))},
			{corpus.WithDir(filepath.Join(dataDir, "corpus", DocumentCorpusName))},
		}
	}

	webCorpus, err := corpus.New(WebCorpusName, options.aiConfig.Dimension, corpusOpts[0]...)
	if err != nil {
		historyRepo.Close()
		articleRepo.Close()
		backend.Close()
		return nil, err
	}

	docCorpus, err := corpus.New(DocumentCorpusName, options.aiConfig.Dimension, corpusOpts[1]...)
	if err != nil {
		historyRepo.Close()
		articleRepo.Close()
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			historyRepo.Close()
			articleRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	ingestor, err := ingest.NewIngestor(provider.Embedder())
	if err != nil {
		provider.Close()
		historyRepo.Close()
		articleRepo.Close()
		backend.Close()
		return nil, err
	}

	tracker := session.NewTracker()
	responses := cache.New(options.cacheOpts...)

	cascadeOpts := []verify.Option{}
	if options.webSearch != nil {
		cascadeOpts = append(cascadeOpts, verify.WithWebSearch(options.webSearch))
	}
	cascade, err := verify.NewCascade(articleRepo, historyRepo, webCorpus, provider, tracker, responses, cascadeOpts...)
	if err != nil {
		provider.Close()
		historyRepo.Close()
		articleRepo.Close()
		backend.Close()
		return nil, err
	}

	return &App{
		backend:     backend,
		articleRepo: articleRepo,
		historyRepo: historyRepo,
		webCorpus:   webCorpus,
		docCorpus:   docCorpus,
		provider:    provider,
		tracker:     tracker,
		responses:   responses,
		ingestor:    ingestor,
		cascade:     cascade,
		logger:      slog.Default().With("component", "app"),
	}, nil
}

// Verify runs the verification cascade for a question.
func (a *App) Verify(ctx context.Context, question, sessionID string) (*core.VerificationResult, error) {
	return a.cascade.Verify(ctx, question, sessionID)
}

// IngestWeb adds web page content to the web corpus.
func (a *App) IngestWeb(ctx context.Context, content, url, sessionID string) (*ingest.Result, error) {
	return a.ingestor.Ingest(ctx, a.webCorpus, content, core.SourceRef{URL: url}, sessionID)
}

// IngestDocument adds document content to the document corpus.
func (a *App) IngestDocument(ctx context.Context, content, document string, page int, sessionID string) (*ingest.Result, error) {
	return a.ingestor.Ingest(ctx, a.docCorpus, content, core.SourceRef{Document: document, Page: page}, sessionID)
}

// NewPipeline creates a bulk ingestion pipeline sharing the app's
// embedder. The caller picks the target corpus per IngestAll call and
// must Release the pipeline when done.
func (a *App) NewPipeline(opts ...ingest.PipelineOption) (*ingest.Pipeline, error) {
	return ingest.NewPipeline(a.ingestor, opts...)
}

// ArticleRepository returns the structured article store.
func (a *App) ArticleRepository() storage.ArticleRepository {
	return a.articleRepo
}

// HistoryRepository returns the verification history log.
func (a *App) HistoryRepository() storage.HistoryRepository {
	return a.historyRepo
}

// WebCorpus returns the web content corpus.
func (a *App) WebCorpus() *corpus.Store {
	return a.webCorpus
}

// DocumentCorpus returns the document content corpus.
func (a *App) DocumentCorpus() *corpus.Store {
	return a.docCorpus
}

// Stats describes the application's current state.
type Stats struct {
	WebCorpus         corpus.Stats `json:"web_corpus"`
	DocumentCorpus    corpus.Stats `json:"document_corpus"`
	Articles          int          `json:"articles"`
	ActiveSessions    int          `json:"active_sessions"`
	CachedResponses   int          `json:"cached_responses"`
	WebSearchFailures uint64       `json:"web_search_failures"`
}

// Stats gathers statistics from every component.
func (a *App) Stats(ctx context.Context) (*Stats, error) {
	articles, err := a.articleRepo.CountArticles(ctx)
	if err != nil {
		return nil, err
	}

	return &Stats{
		WebCorpus:         a.webCorpus.Stats(),
		DocumentCorpus:    a.docCorpus.Stats(),
		Articles:          articles,
		ActiveSessions:    a.tracker.ActiveSessions(),
		CachedResponses:   a.responses.Len(),
		WebSearchFailures: a.cascade.WebFailureCount(),
	}, nil
}

// Reembed regenerates every corpus vector with the current embedder.
// Used after an embedding model change.
func (a *App) Reembed(ctx context.Context) error {
	if err := a.webCorpus.Reembed(ctx, a.provider.Embedder()); err != nil {
		return err
	}
	return a.docCorpus.Reembed(ctx, a.provider.Embedder())
}

// Close flushes corpus snapshots and closes every component.
func (a *App) Close() error {
	if err := a.provider.Close(); err != nil {
		a.logger.Error("error closing AI provider", "err", err)
	}
	if err := a.webCorpus.Close(); err != nil {
		a.logger.Error("error closing web corpus", "err", err)
		return err
	}
	if err := a.docCorpus.Close(); err != nil {
		a.logger.Error("error closing document corpus", "err", err)
		return err
	}
	if err := a.historyRepo.Close(); err != nil {
		a.logger.Error("error closing history repository", "err", err)
		return err
	}
	if err := a.articleRepo.Close(); err != nil {
		a.logger.Error("error closing article repository", "err", err)
		return err
	}
	if err := a.backend.Close(); err != nil {
		a.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
