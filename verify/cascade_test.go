package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aimock "github.com/nocaplabs/claimcheck/ai/mock"
	"github.com/nocaplabs/claimcheck/cache"
	"github.com/nocaplabs/claimcheck/core"
	"github.com/nocaplabs/claimcheck/corpus"
	"github.com/nocaplabs/claimcheck/session"
	"github.com/nocaplabs/claimcheck/storage"
	"github.com/nocaplabs/claimcheck/storage/badger"
	"github.com/nocaplabs/claimcheck/websearch"
	searchmock "github.com/nocaplabs/claimcheck/websearch/mock"
)

type cascadeFixture struct {
	cascade   *Cascade
	provider  *aimock.MockProvider
	articles  storage.ArticleRepository
	history   storage.HistoryRepository
	webCorpus *corpus.Store
	tracker   *session.Tracker
	responses *cache.ResponseCache
}

func newCascadeFixture(t *testing.T, web websearch.Provider) *cascadeFixture {
	t.Helper()

	articles, history, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = backend.Close()
	})

	webCorpus, err := corpus.New("web", 384)
	require.NoError(t, err)

	provider := aimock.NewMockProvider().(*aimock.MockProvider)
	tracker := session.NewTracker()
	responses := cache.New(cache.WithTTL(time.Minute))

	var opts []Option
	if web != nil {
		opts = append(opts, WithWebSearch(web))
	}

	cascade, err := NewCascade(articles, history, webCorpus, provider, tracker, responses, opts...)
	require.NoError(t, err)

	return &cascadeFixture{
		cascade:   cascade,
		provider:  provider,
		articles:  articles,
		history:   history,
		webCorpus: webCorpus,
		tracker:   tracker,
		responses: responses,
	}
}

// seedCorpus embeds content with the fixture's own embedder and adds it
// to the web corpus, so retrieval distances are consistent.
func (f *cascadeFixture) seedCorpus(t *testing.T, content, url string) {
	t.Helper()

	vectors, err := f.provider.Embedder().EmbedTexts(context.Background(), []string{content})
	require.NoError(t, err)

	err = f.webCorpus.Add([]core.Chunk{{
		ChunkID:     fmt.Sprintf("%s_0", core.FingerprintContent(content)),
		Content:     content,
		ContentHash: core.FingerprintContent(content),
		Source:      core.SourceRef{URL: url},
		Index:       0,
		TotalChunks: 1,
		CreatedAt:   time.Now().UTC(),
	}}, vectors)
	require.NoError(t, err)
}

func TestNewCascade_Validation(t *testing.T) {
	articles, history, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	webCorpus, err := corpus.New("web", 384)
	require.NoError(t, err)

	provider := aimock.NewMockProvider()
	tracker := session.NewTracker()
	responses := cache.New()

	tests := []struct {
		name    string
		build   func() (*Cascade, error)
		wantErr error
	}{
		{
			name: "nil article repository",
			build: func() (*Cascade, error) {
				return NewCascade(nil, history, webCorpus, provider, tracker, responses)
			},
			wantErr: ErrArticleRepositoryRequired,
		},
		{
			name: "nil history repository",
			build: func() (*Cascade, error) {
				return NewCascade(articles, nil, webCorpus, provider, tracker, responses)
			},
			wantErr: ErrHistoryRepositoryRequired,
		},
		{
			name: "nil corpus",
			build: func() (*Cascade, error) {
				return NewCascade(articles, history, nil, provider, tracker, responses)
			},
			wantErr: ErrCorpusRequired,
		},
		{
			name: "nil provider",
			build: func() (*Cascade, error) {
				return NewCascade(articles, history, webCorpus, nil, tracker, responses)
			},
			wantErr: ErrProviderRequired,
		},
		{
			name: "nil tracker",
			build: func() (*Cascade, error) {
				return NewCascade(articles, history, webCorpus, provider, nil, responses)
			},
			wantErr: ErrTrackerRequired,
		},
		{
			name: "nil cache",
			build: func() (*Cascade, error) {
				return NewCascade(articles, history, webCorpus, provider, tracker, nil)
			},
			wantErr: ErrCacheRequired,
		},
		{
			name: "valid",
			build: func() (*Cascade, error) {
				return NewCascade(articles, history, webCorpus, provider, tracker, responses)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := tt.build()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, c)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, c)
			}
		})
	}
}

func TestVerify_RejectsInvalidQuestion(t *testing.T) {
	f := newCascadeFixture(t, nil)

	_, err := f.cascade.Verify(context.Background(), "  <p></p>  ", "s1")
	assert.ErrorIs(t, err, core.ErrInvalidQuestion)
	assert.Equal(t, 0, f.provider.GetMockGenerator().CallCount())
}

func TestVerify_ModelOnlyFallback(t *testing.T) {
	f := newCascadeFixture(t, nil)
	ctx := context.Background()

	result, err := f.cascade.Verify(ctx, "Is the moon made of cheese?", "s1")
	require.NoError(t, err)

	assert.Equal(t, core.SourceTypeLLM, result.SourceType)
	assert.Equal(t, 50, result.Confidence)
	assert.Equal(t, core.VerdictCredible, result.Verdict)
	assert.Empty(t, result.Sources)
	assert.Equal(t, "s1", result.SessionID)
	assert.False(t, result.CreatedAt.IsZero())

	// The completed verification is cached, tracked and logged.
	assert.Equal(t, 1, f.responses.Len())
	assert.Len(t, f.tracker.Recent("s1"), 1)

	records, err := f.history.RecentRecords(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Is the moon made of cheese?", records[0].Question)
	assert.Equal(t, core.SourceTypeLLM, records[0].SourceType)
}

func TestVerify_WebGroundedFallback(t *testing.T) {
	web := searchmock.NewMockProvider()
	f := newCascadeFixture(t, web)

	result, err := f.cascade.Verify(context.Background(), "Did the event happen?", "s1")
	require.NoError(t, err)

	assert.Equal(t, core.SourceTypeWeb, result.SourceType)
	require.Len(t, result.Sources, 2)
	assert.Equal(t, "web_search", result.Sources[0].Type)
	// Canned results come from a reputable outlet.
	assert.Equal(t, 1.0, result.Sources[0].Score)
	assert.Equal(t, 75+2*5, result.Confidence)
	assert.Equal(t, 1, web.CallCount())
}

func TestVerify_CacheHitSkipsCascade(t *testing.T) {
	web := searchmock.NewMockProvider()
	f := newCascadeFixture(t, web)
	ctx := context.Background()

	first, err := f.cascade.Verify(ctx, "Is water wet?", "s1")
	require.NoError(t, err)

	generatorCalls := f.provider.GetMockGenerator().CallCount()
	embedderCalls := f.provider.GetMockEmbedder().CallCount()
	webCalls := web.CallCount()

	// Restated question, different session.
	second, err := f.cascade.Verify(ctx, "  IS WATER WET?  ", "s2")
	require.NoError(t, err)

	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, "s2", second.SessionID)
	assert.Equal(t, generatorCalls, f.provider.GetMockGenerator().CallCount())
	assert.Equal(t, embedderCalls, f.provider.GetMockEmbedder().CallCount())
	assert.Equal(t, webCalls, web.CallCount())

	// The hit still lands in the second session's context.
	assert.Len(t, f.tracker.Recent("s2"), 1)
}

func TestVerify_CacheHitPersistsHistory(t *testing.T) {
	f := newCascadeFixture(t, nil)
	ctx := context.Background()

	_, err := f.cascade.Verify(ctx, "Is water wet?", "s1")
	require.NoError(t, err)
	_, err = f.cascade.Verify(ctx, "Is water wet?", "s2")
	require.NoError(t, err)

	// Both requests completed, so both are logged and both sessions
	// have an activity record.
	records, err := f.history.RecentRecords(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	sessions, err := f.history.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
}

func TestVerify_StructuredStage(t *testing.T) {
	f := newCascadeFixture(t, nil)
	ctx := context.Background()

	_, err := f.articles.AddArticles(ctx, &core.Article{
		Title: "Moon landing hoax claims",
		Body:  "Claims that the moon landing was staged have been debunked repeatedly.",
		Label: "Fake",
	})
	require.NoError(t, err)

	var prompt string
	f.provider.GetMockGenerator().GenerateFunc = func(ctx context.Context, p string) (string, error) {
		prompt = p
		return "VERDICT: FAKE. The claim repeats a long-debunked fabrication.", nil
	}

	result, err := f.cascade.Verify(ctx, "moon landing hoax", "s1")
	require.NoError(t, err)

	assert.Equal(t, core.SourceTypeDB, result.SourceType)
	assert.Equal(t, core.VerdictFake, result.Verdict)
	assert.Equal(t, 90+5, result.Confidence)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "database", result.Sources[0].Type)

	// The model weighs the database evidence: one generation, fed the
	// matched article, and no retrieval embedding.
	assert.Equal(t, 1, f.provider.GetMockGenerator().CallCount())
	assert.Equal(t, 0, f.provider.GetMockEmbedder().CallCount())
	assert.Contains(t, prompt, "Moon landing hoax claims")
	assert.Contains(t, prompt, "debunked repeatedly")
}

func TestVerify_StructuredStageModelFailureFallsBackToLabel(t *testing.T) {
	f := newCascadeFixture(t, nil)
	ctx := context.Background()

	_, err := f.articles.AddArticles(ctx, &core.Article{
		Title: "Moon landing hoax claims",
		Body:  "Claims that the moon landing was staged have been debunked repeatedly.",
		Label: "Fake",
	})
	require.NoError(t, err)

	f.provider.GetMockGenerator().GenerateFunc = func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("model unreachable")
	}

	result, err := f.cascade.Verify(ctx, "moon landing hoax", "s1")
	require.NoError(t, err)

	// The dataset label still decides when the model cannot.
	assert.Equal(t, core.SourceTypeDB, result.SourceType)
	assert.Equal(t, core.VerdictFake, result.Verdict)
	assert.Contains(t, result.Answer, "VERDICT: FAKE")
}

func TestVerify_StructuredStageKeepsLabelWhenModelHasNoToken(t *testing.T) {
	f := newCascadeFixture(t, nil)
	ctx := context.Background()

	_, err := f.articles.AddArticles(ctx, &core.Article{
		Title: "Moon landing hoax claims",
		Body:  "Claims that the moon landing was staged have been debunked repeatedly.",
		Label: "Fake",
	})
	require.NoError(t, err)

	f.provider.GetMockGenerator().GenerateFunc = func(ctx context.Context, prompt string) (string, error) {
		return "The evidence is hard to assess.", nil
	}

	result, err := f.cascade.Verify(ctx, "moon landing hoax", "s1")
	require.NoError(t, err)

	assert.Equal(t, core.VerdictFake, result.Verdict)
	assert.Equal(t, "The evidence is hard to assess.", result.Answer)
}

func TestVerify_RetrievalStage(t *testing.T) {
	f := newCascadeFixture(t, nil)
	ctx := context.Background()

	f.seedCorpus(t, "The Eiffel Tower stands 330 metres tall in Paris.", "https://example.com/eiffel")

	result, err := f.cascade.Verify(ctx, "How tall is the Eiffel Tower?", "s1")
	require.NoError(t, err)

	assert.Equal(t, core.SourceTypeRAG, result.SourceType)
	assert.Equal(t, 70+5, result.Confidence)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "rag", result.Sources[0].Type)
	assert.Equal(t, "https://example.com/eiffel", result.Sources[0].Ref)
	assert.Equal(t, core.VerdictCredible, result.Verdict)
	assert.Equal(t, 1, f.provider.GetMockGenerator().CallCount())
}

func TestVerify_WebSearchFailureIsNonFatal(t *testing.T) {
	web := searchmock.NewMockProvider()
	web.SearchFunc = func(ctx context.Context, query string, max int) ([]core.WebResult, error) {
		return nil, errors.New("rate limited")
	}
	f := newCascadeFixture(t, web)

	result, err := f.cascade.Verify(context.Background(), "Did the event happen?", "s1")
	require.NoError(t, err)

	// Without web evidence the fallback is model-only.
	assert.Equal(t, core.SourceTypeLLM, result.SourceType)
	assert.Empty(t, result.Sources)
	assert.Equal(t, uint64(1), f.cascade.WebFailureCount())
}

func TestVerify_GenerationFailureDegrades(t *testing.T) {
	f := newCascadeFixture(t, nil)
	f.provider.GetMockGenerator().GenerateFunc = func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("model unreachable")
	}

	result, err := f.cascade.Verify(context.Background(), "Is the claim true?", "s1")
	require.NoError(t, err)

	assert.Equal(t, failureAnswer, result.Answer)
	assert.Equal(t, core.VerdictUnknown, result.Verdict)
}

func TestVerify_SessionContextBlendsFollowUp(t *testing.T) {
	f := newCascadeFixture(t, nil)
	ctx := context.Background()

	f.seedCorpus(t, "Mount Everest is 8849 metres above sea level.", "https://example.com/everest")

	var embedded []string
	f.provider.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		embedded = append(embedded, text)
		return make([]float32, 384), nil
	}

	_, err := f.cascade.Verify(ctx, "How tall is Mount Everest?", "s1")
	require.NoError(t, err)
	_, err = f.cascade.Verify(ctx, "And in feet?", "s1")
	require.NoError(t, err)

	require.Len(t, embedded, 2)
	assert.Equal(t, "How tall is Mount Everest?", embedded[0])
	assert.Equal(t, "How tall is Mount Everest?\nAnd in feet?", embedded[1])
}

func TestExcerpt(t *testing.T) {
	t.Run("short text unchanged", func(t *testing.T) {
		assert.Equal(t, "plain text", excerpt("  plain text  "))
	})

	t.Run("long text bounded", func(t *testing.T) {
		long := strings.Repeat("a", 400)
		got := excerpt(long)
		assert.Equal(t, strings.Repeat("a", 300)+"…", got)
	})

	t.Run("multibyte text cut on a rune boundary", func(t *testing.T) {
		// The leading byte misaligns every ü, so a byte-300 cut would
		// land mid-rune.
		long := "a" + strings.Repeat("ü", 400)
		got := excerpt(long)
		assert.True(t, utf8.ValidString(got))
		assert.Equal(t, 299, len(got)-len("…"))
	})
}

func TestVerdictFromLabel(t *testing.T) {
	tests := []struct {
		label string
		want  core.Verdict
	}{
		{"Fake", core.VerdictFake},
		{"false", core.VerdictFake},
		{"  FALSE ", core.VerdictFake},
		{"misleading", core.VerdictMisleading},
		{"half-true", core.VerdictMisleading},
		{"mixture", core.VerdictMixed},
		{"true", core.VerdictCredible},
		{"Real", core.VerdictCredible},
		{"", core.VerdictUnknown},
		{"satire", core.VerdictUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, verdictFromLabel(tt.label))
		})
	}
}
