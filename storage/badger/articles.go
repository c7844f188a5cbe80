package badger

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/blevesearch/bleve"
	"github.com/dgraph-io/badger/v4"

	"github.com/nocaplabs/claimcheck/core"
	"github.com/nocaplabs/claimcheck/storage"
)

// articleDoc is the shape indexed into bleve for full-text search.
type articleDoc struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ArticleRepository implements storage.ArticleRepository for BadgerDB,
// with an in-memory bleve index over title and body for full-text
// search. The bleve index is rebuilt from badger on startup, so it
// needs no persistence of its own.
type ArticleRepository struct {
	backend *Backend
	index   bleve.Index
	logger  *slog.Logger
}

var _ storage.ArticleRepository = (*ArticleRepository)(nil)

// NewArticleRepository creates an ArticleRepository and indexes the
// articles already present in the backend.
func NewArticleRepository(backend *Backend) (*ArticleRepository, error) {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating text index: %w", err)
	}

	r := &ArticleRepository{
		backend: backend,
		index:   index,
		logger:  slog.Default().With("component", "article-repository"),
	}

	indexed := 0
	err = r.scanArticles(func(article *core.Article) error {
		if err := r.indexArticle(article); err != nil {
			return err
		}
		indexed++
		return nil
	})
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("indexing existing articles: %w", err)
	}
	if indexed > 0 {
		r.logger.Info("article text index rebuilt", "articles", indexed)
	}
	return r, nil
}

// Close closes the full-text index. The backend is owned by the caller.
func (r *ArticleRepository) Close() error {
	return r.index.Close()
}

// WithTransaction delegates to the backend.
func (r *ArticleRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddArticles adds one or more articles to storage.
func (r *ArticleRepository) AddArticles(ctx context.Context, articles ...*core.Article) ([]*core.Article, error) {
	for _, article := range articles {
		if err := core.ValidateArticle(article); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, article := range articles {
			if article.Id == 0 {
				article.Id = core.IDFromContent(article.Title + "\x00" + article.Body)
			}
			if article.InsertedAt.IsZero() {
				article.InsertedAt = time.Now().UTC()
			}

			key := makeArticleKey(article.Id)
			if err := tx.Set(key, storage.MarshalArticle(article)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	for _, article := range articles {
		if err := r.indexArticle(article); err != nil {
			// The record is durable; a stale text index only degrades
			// search until the next restart rebuilds it.
			r.logger.Warn("failed to index article", "id", article.Id, "err", err)
		}
	}
	return articles, nil
}

// GetArticle retrieves a single article by ID.
func (r *ArticleRepository) GetArticle(ctx context.Context, id core.ID) (*core.Article, error) {
	var result *core.Article
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeArticleKey(id))
		if err == badger.ErrKeyNotFound {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			result, err = storage.UnmarshalArticle(val)
			return err
		})
	}, false)
	return result, err
}

// SearchArticles finds articles matching the query text, best first.
// The bleve full-text index is consulted first; when it errors or finds
// nothing, a case-insensitive substring scan over all articles runs as
// fallback.
func (r *ArticleRepository) SearchArticles(ctx context.Context, query string, limit int) ([]*core.Article, error) {
	if strings.TrimSpace(query) == "" {
		return nil, storage.ErrInvalidQuery
	}
	if limit < 1 {
		return nil, nil
	}

	articles, err := r.searchFullText(query, limit)
	if err != nil {
		r.logger.Warn("full-text search failed, falling back to scan", "err", err)
	}
	if len(articles) > 0 {
		return articles, nil
	}
	return r.searchSubstring(query, limit)
}

// CountArticles returns the number of stored articles.
func (r *ArticleRepository) CountArticles(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(articlePrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

func (r *ArticleRepository) indexArticle(article *core.Article) error {
	return r.index.Index(strconv.FormatUint(uint64(article.Id), 10), articleDoc{
		Title: article.Title,
		Body:  article.Body,
	})
}

func (r *ArticleRepository) searchFullText(query string, limit int) ([]*core.Article, error) {
	q := bleve.NewQueryStringQuery(query)
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	res, err := r.index.Search(req)
	if err != nil {
		return nil, err
	}

	var articles []*core.Article
	for _, hit := range res.Hits {
		id, err := strconv.ParseUint(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		article, err := r.GetArticle(context.Background(), core.ID(id))
		if err == storage.ErrNotFound {
			continue // indexed but since removed
		}
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	return articles, nil
}

func (r *ArticleRepository) searchSubstring(query string, limit int) ([]*core.Article, error) {
	needle := strings.ToLower(strings.TrimSpace(query))

	var articles []*core.Article
	err := r.scanArticles(func(article *core.Article) error {
		if len(articles) >= limit {
			return nil
		}
		haystack := strings.ToLower(article.Title + " " + article.Body)
		if strings.Contains(haystack, needle) {
			articles = append(articles, article)
		}
		return nil
	})
	return articles, err
}

// scanArticles iterates every stored article in key order.
func (r *ArticleRepository) scanArticles(fn func(*core.Article) error) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(articlePrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var article *core.Article
			err := iter.Item().Value(func(val []byte) error {
				var err error
				article, err = storage.UnmarshalArticle(val)
				return err
			})
			if err != nil {
				return err
			}
			if err := fn(article); err != nil {
				return err
			}
		}
		return nil
	}, false)
}
